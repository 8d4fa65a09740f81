package google

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
)

// OOB is the out-of-band redirect URI for installed applications: the
// consent page displays the authorization code for the user to paste back.
const OOB = "urn:ietf:wg:oauth:2.0:oob"

// Scopes requested from Google. The exporter only reads calendar data.
var Scopes = []string{calendar.CalendarReadonlyScope}

// NewOAuthConfig builds the OAuth2 configuration for the calendar API.
// An explicit client id/secret pair takes precedence; otherwise the
// credentials file (Google Cloud Console "installed app" JSON) is parsed.
func NewOAuthConfig(clientID, clientSecret, credentialsFile string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  OOB,
			Scopes:       Scopes,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file %s: %w", credentialsFile, err)
	}

	conf, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials file %s: %w", credentialsFile, err)
	}
	conf.RedirectURL = OOB
	return conf, nil
}

// AuthURL returns the consent URL the user must visit in a browser.
// Offline access is requested so a refresh token is issued.
func AuthURL(conf *oauth2.Config) string {
	return conf.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
}

// ExchangeCode exchanges an authorization code obtained from the consent
// page for a Credential.
func ExchangeCode(ctx context.Context, conf *oauth2.Config, authCode string) (*Credential, error) {
	t, err := conf.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return CredentialFromToken(t, conf.Scopes), nil
}

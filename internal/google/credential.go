package google

import (
	"time"

	"golang.org/x/oauth2"
)

// Credential is the persisted OAuth2 credential record. It round-trips
// through JSON without field loss, including the expiry instant and the
// granted scopes.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
	Scopes       []string  `json:"scopes"`
}

// Token converts the credential to an oauth2.Token for use with token
// sources and HTTP transports.
func (c *Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    c.TokenType,
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
}

// CredentialFromToken builds a Credential from an oauth2.Token, carrying
// over the granted scopes. If the token omits a refresh token (servers may
// do so on refresh), the previous refresh token should be preserved by the
// caller; oauth2.Config.TokenSource already does this.
func CredentialFromToken(t *oauth2.Token, scopes []string) *Credential {
	return &Credential{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
		Scopes:       scopes,
	}
}

// ExpiresWithin reports whether the access token has expired or will expire
// within the given margin. A zero expiry means the token does not expire.
func (c *Credential) ExpiresWithin(margin time.Duration, now time.Time) bool {
	if c.Expiry.IsZero() {
		return false
	}
	return now.Add(margin).After(c.Expiry)
}

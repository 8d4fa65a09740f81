package google

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"

	"github.com/aluizdacosta/calendar-export/internal/logging"
)

// RefreshMargin is the safety margin before expiry at which the access
// token is refreshed proactively.
const RefreshMargin = 60 * time.Second

// TokenStore persists OAuth2 credentials and keeps them valid.
// Implementations must never hand out an expired credential from
// EnsureValid without having attempted a refresh.
type TokenStore interface {
	// Load reads the persisted credential. It returns ErrCredentialMissing
	// if none exists and ErrCredentialCorrupt if it cannot be parsed.
	Load(ctx context.Context) (*Credential, error)

	// Save persists the credential to durable storage.
	Save(ctx context.Context, cred *Credential) error

	// EnsureValid returns a credential whose access token is valid for at
	// least the refresh margin, refreshing and persisting it if necessary.
	// A rejected refresh token yields ErrRefreshFailed.
	EnsureValid(ctx context.Context, cred *Credential) (*Credential, error)
}

// FileTokenStore is a TokenStore backed by a JSON file on disk.
// Concurrent processes sharing the file are last-writer-wins; this tool is
// not a high-concurrency system.
type FileTokenStore struct {
	path   string
	conf   *oauth2.Config
	logger *slog.Logger
	margin time.Duration
	now    func() time.Time
}

// FileStoreOption configures a FileTokenStore.
type FileStoreOption func(*FileTokenStore)

// WithRefreshMargin overrides the proactive refresh margin.
func WithRefreshMargin(margin time.Duration) FileStoreOption {
	return func(s *FileTokenStore) { s.margin = margin }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) FileStoreOption {
	return func(s *FileTokenStore) { s.now = now }
}

// NewFileTokenStore creates a token store persisting to path, refreshing
// through the given OAuth2 configuration.
func NewFileTokenStore(path string, conf *oauth2.Config, logger *slog.Logger, opts ...FileStoreOption) *FileTokenStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileTokenStore{
		path:   path,
		conf:   conf,
		logger: logger,
		margin: RefreshMargin,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads and validates the persisted credential file.
func (s *FileTokenStore) Load(ctx context.Context) (*Credential, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCredentialMissing, s.path)
		}
		return nil, fmt.Errorf("failed to read token file %s: %w", s.path, err)
	}

	var cred Credential
	if err := json.Unmarshal(b, &cred); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentialCorrupt, err)
	}
	if cred.AccessToken == "" && cred.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token file %s has no usable tokens", ErrCredentialCorrupt, s.path)
	}

	return &cred, nil
}

// Save writes the credential to the token file with owner-only permissions.
func (s *FileTokenStore) Save(ctx context.Context, cred *Credential) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}

	b, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0600); err != nil {
		return fmt.Errorf("failed to write token file %s: %w", s.path, err)
	}
	return nil
}

// EnsureValid refreshes the credential if it is expired or expiring within
// the margin, persisting the result. A failed persist is logged but does
// not invalidate the refreshed in-memory credential for this run.
func (s *FileTokenStore) EnsureValid(ctx context.Context, cred *Credential) (*Credential, error) {
	if !cred.ExpiresWithin(s.margin, s.now()) {
		return cred, nil
	}
	if cred.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token available", ErrRefreshFailed)
	}

	s.logger.Debug("refreshing access token",
		logging.Operation("token.refresh"),
		slog.Time("expiry", cred.Expiry))

	newToken, err := s.conf.TokenSource(ctx, cred.Token()).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	refreshed := CredentialFromToken(newToken, cred.Scopes)
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = cred.RefreshToken
	}

	if err := s.Save(ctx, refreshed); err != nil {
		s.logger.Warn("failed to persist refreshed credential",
			logging.Operation("token.save"),
			logging.Err(err))
	}

	return refreshed, nil
}

// MemoryTokenStore is an in-memory TokenStore for tests and embedding.
// Refreshes mint a deterministic credential instead of calling a server.
type MemoryTokenStore struct {
	Cred     *Credential
	Refreshes int
	margin   time.Duration
}

// NewMemoryTokenStore creates a MemoryTokenStore holding cred.
func NewMemoryTokenStore(cred *Credential) *MemoryTokenStore {
	return &MemoryTokenStore{Cred: cred, margin: RefreshMargin}
}

// Load returns the held credential or ErrCredentialMissing.
func (s *MemoryTokenStore) Load(ctx context.Context) (*Credential, error) {
	if s.Cred == nil {
		return nil, ErrCredentialMissing
	}
	return s.Cred, nil
}

// Save replaces the held credential.
func (s *MemoryTokenStore) Save(ctx context.Context, cred *Credential) error {
	s.Cred = cred
	return nil
}

// EnsureValid extends the expiry of a stale credential, counting refreshes.
func (s *MemoryTokenStore) EnsureValid(ctx context.Context, cred *Credential) (*Credential, error) {
	if !cred.ExpiresWithin(s.margin, time.Now()) {
		return cred, nil
	}
	if cred.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token available", ErrRefreshFailed)
	}
	s.Refreshes++
	refreshed := *cred
	refreshed.AccessToken = fmt.Sprintf("%s-refreshed-%d", cred.AccessToken, s.Refreshes)
	refreshed.Expiry = time.Now().Add(time.Hour)
	s.Cred = &refreshed
	return &refreshed, nil
}

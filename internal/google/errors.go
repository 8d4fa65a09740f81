package google

import "errors"

// Credential lifecycle errors. Callers match these with errors.Is; the
// originating kind is preserved through wrapping and never downgraded.
var (
	// ErrCredentialMissing indicates no persisted credential was found.
	// The caller should fall back to the interactive consent flow.
	ErrCredentialMissing = errors.New("credential missing")

	// ErrCredentialCorrupt indicates persisted credential material exists
	// but could not be parsed.
	ErrCredentialCorrupt = errors.New("credential corrupt")

	// ErrRefreshFailed indicates the refresh token itself was rejected
	// (invalid or revoked). Recovery requires full re-authentication.
	ErrRefreshFailed = errors.New("token refresh failed")
)

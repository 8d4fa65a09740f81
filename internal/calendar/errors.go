package calendar

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/api/googleapi"
)

// Fetch and normalization errors. The pipeline matches these with
// errors.Is; kinds are preserved through wrapping.
var (
	// ErrAuthorizationFailed indicates a request was rejected with 401
	// even after a token refresh.
	ErrAuthorizationFailed = errors.New("authorization failed")

	// ErrQuotaExceeded indicates rate-limit responses persisted through
	// the configured retry budget.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTransientFetch indicates network or server-side errors persisted
	// through the configured retry budget.
	ErrTransientFetch = errors.New("transient fetch failure")

	// ErrCalendarNotFound indicates the calendar id does not exist or is
	// not visible to the authenticated user. Not retryable.
	ErrCalendarNotFound = errors.New("calendar not found")

	// ErrMalformedEvent indicates a raw event record missing both an id
	// and a start; the pipeline skips such records.
	ErrMalformedEvent = errors.New("malformed event")
)

// statusCode extracts the HTTP status from a googleapi error, or 0 for
// network-level failures.
func statusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// isQuotaStatus reports whether the status signals rate limiting. Google
// surfaces quota errors as either 403 or 429.
func isQuotaStatus(code int) bool {
	return code == http.StatusForbidden || code == http.StatusTooManyRequests
}

// isTransientStatus reports whether the failure is worth retrying with the
// generic backoff policy: any 5xx, or a network error without a status.
func isTransientStatus(code int) bool {
	return code == 0 || code >= http.StatusInternalServerError
}

// retryAfterHint extracts a server-supplied Retry-After delay, if any.
func retryAfterHint(err error) time.Duration {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Header == nil {
		return 0
	}
	v := gerr.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, perr := strconv.Atoi(v)
	if perr != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calendar "google.golang.org/api/calendar/v3"

	"github.com/aluizdacosta/calendar-export/internal/google"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validCredential() *google.Credential {
	return &google.Credential{
		AccessToken:  "tok",
		TokenType:    "Bearer",
		RefreshToken: "rtok",
		Expiry:       time.Now().Add(time.Hour),
		Scopes:       google.Scopes,
	}
}

// fakeAPI is an httptest server standing in for the Calendar API. Each
// request is counted; the handler decides the response.
type fakeAPI struct {
	srv      *httptest.Server
	requests atomic.Int64
	lastAuth atomic.Value // string
}

func newFakeAPI(t *testing.T, handler http.HandlerFunc) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		f.lastAuth.Store(r.Header.Get("Authorization"))
		handler(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) count() int64 { return f.requests.Load() }

func newTestClient(t *testing.T, store google.TokenStore, api *fakeAPI, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithLogger(discardLogger()),
		WithEndpoint(api.srv.URL),
		WithRetryBase(time.Millisecond),
	}, opts...)
	c, err := NewClient(context.Background(), store, opts...)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": message},
	})
}

func timedEvent(id string) *calendar.Event {
	return &calendar.Event{
		Id:      id,
		Summary: "event " + id,
		Start:   &calendar.EventDateTime{DateTime: "2026-03-01T10:00:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2026-03-01T11:00:00Z"},
	}
}

func TestListEvents_PaginationRespectsCap(t *testing.T) {
	// Three pages of two events each; the cap of four must stop the
	// client after two pages.
	pages := map[string]*calendar.Events{
		"": {
			Items:         []*calendar.Event{timedEvent("e1"), timedEvent("e2")},
			NextPageToken: "p2",
		},
		"p2": {
			Items:         []*calendar.Event{timedEvent("e3"), timedEvent("e4")},
			NextPageToken: "p3",
		},
		"p3": {
			Items: []*calendar.Event{timedEvent("e5"), timedEvent("e6")},
		},
	}

	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.Query().Get("pageToken")]
		require.True(t, ok, "unexpected page token %q", r.URL.Query().Get("pageToken"))
		writeJSON(w, page)
	})

	c := newTestClient(t, google.NewMemoryTokenStore(validCredential()), api)

	events, err := c.ListEvents(context.Background(),
		"primary", time.Now().AddDate(0, 0, -7), time.Now(), 4)
	require.NoError(t, err)

	require.Len(t, events, 4)
	assert.Equal(t, int64(2), api.count(), "third page must not be fetched")
	for i, want := range []string{"e1", "e2", "e3", "e4"} {
		assert.Equal(t, want, events[i].Id, "server order must be preserved")
	}
}

func TestListEvents_TrimsOverfullPage(t *testing.T) {
	// A server returning more items than requested must still be capped.
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, &calendar.Events{Items: []*calendar.Event{
			timedEvent("e1"), timedEvent("e2"), timedEvent("e3"),
			timedEvent("e4"), timedEvent("e5"),
		}})
	})

	c := newTestClient(t, google.NewMemoryTokenStore(validCredential()), api)

	events, err := c.ListEvents(context.Background(),
		"primary", time.Now().AddDate(0, 0, -7), time.Now(), 3)
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, "e3", events[2].Id)
}

func TestListEvents_RequestParameters(t *testing.T) {
	timeMin := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	timeMax := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, timeMin.Format(time.RFC3339), q.Get("timeMin"))
		assert.Equal(t, timeMax.Format(time.RFC3339), q.Get("timeMax"))
		assert.Equal(t, "true", q.Get("singleEvents"))
		assert.Equal(t, "startTime", q.Get("orderBy"))
		assert.Equal(t, "10", q.Get("maxResults"))
		writeJSON(w, &calendar.Events{Items: []*calendar.Event{timedEvent("e1")}})
	})

	c := newTestClient(t, google.NewMemoryTokenStore(validCredential()), api)

	_, err := c.ListEvents(context.Background(), "primary", timeMin, timeMax, 10)
	require.NoError(t, err)
}

func TestListEvents_QuotaRetryThenSuccess(t *testing.T) {
	var rejections atomic.Int64
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if rejections.Add(1) <= 2 {
			writeAPIError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		writeJSON(w, &calendar.Events{Items: []*calendar.Event{timedEvent("e1")}})
	})

	c := newTestClient(t, google.NewMemoryTokenStore(validCredential()), api)

	events, err := c.ListEvents(context.Background(),
		"primary", time.Now().AddDate(0, 0, -7), time.Now(), 10)
	require.NoError(t, err)

	assert.Len(t, events, 1)
	assert.Equal(t, int64(3), api.count())
}

func TestListEvents_QuotaExhausted(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusForbidden, "quota exceeded")
	})

	c := newTestClient(t, google.NewMemoryTokenStore(validCredential()), api,
		WithMaxAttempts(3))

	_, err := c.ListEvents(context.Background(),
		"primary", time.Now().AddDate(0, 0, -7), time.Now(), 10)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, int64(3), api.count())
}

func TestListEvents_RetryAfterHint(t *testing.T) {
	var first atomic.Bool
	first.Store(true)

	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if first.CompareAndSwap(true, false) {
			w.Header().Set("Retry-After", "1")
			writeAPIError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		writeJSON(w, &calendar.Events{Items: []*calendar.Event{timedEvent("e1")}})
	})

	c := newTestClient(t, google.NewMemoryTokenStore(validCredential()), api)

	start := time.Now()
	events, err := c.ListEvents(context.Background(),
		"primary", time.Now().AddDate(0, 0, -7), time.Now(), 10)
	require.NoError(t, err)

	assert.Len(t, events, 1)
	assert.GreaterOrEqual(t, time.Since(start), time.Second,
		"server Retry-After must be honored")
}

func TestListEvents_UnauthorizedRefreshRetry(t *testing.T) {
	store := google.NewMemoryTokenStore(validCredential())

	var rejected atomic.Bool
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if rejected.CompareAndSwap(false, true) {
			writeAPIError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeJSON(w, &calendar.Events{Items: []*calendar.Event{timedEvent("e1")}})
	})

	c := newTestClient(t, store, api)

	events, err := c.ListEvents(context.Background(),
		"primary", time.Now().AddDate(0, 0, -7), time.Now(), 10)
	require.NoError(t, err)

	assert.Len(t, events, 1)
	assert.Equal(t, 1, store.Refreshes, "a single refresh must follow the 401")
	assert.Equal(t, "Bearer tok-refreshed-1", api.lastAuth.Load(),
		"retry must carry the refreshed access token")
}

func TestListEvents_UnauthorizedAfterRefreshIsFatal(t *testing.T) {
	store := google.NewMemoryTokenStore(validCredential())

	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusUnauthorized, "invalid credentials")
	})

	c := newTestClient(t, store, api)

	_, err := c.ListEvents(context.Background(),
		"primary", time.Now().AddDate(0, 0, -7), time.Now(), 10)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrAuthorizationFailed)
	assert.Equal(t, 1, store.Refreshes, "exactly one refresh attempt")
	assert.Equal(t, int64(2), api.count(), "no retry loop on repeated 401")
}

func TestListEvents_UnauthorizedAndRefreshFails(t *testing.T) {
	cred := validCredential()
	cred.RefreshToken = "" // refresh cannot succeed
	store := google.NewMemoryTokenStore(cred)

	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusUnauthorized, "invalid credentials")
	})

	c := newTestClient(t, store, api)

	_, err := c.ListEvents(context.Background(),
		"primary", time.Now().AddDate(0, 0, -7), time.Now(), 10)
	require.Error(t, err)

	assert.ErrorIs(t, err, google.ErrRefreshFailed)
	assert.Equal(t, int64(1), api.count())
}

func TestListEvents_NotFoundIsFatal(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusNotFound, "calendar not found")
	})

	c := newTestClient(t, google.NewMemoryTokenStore(validCredential()), api)

	_, err := c.ListEvents(context.Background(),
		"nonexistent", time.Now().AddDate(0, 0, -7), time.Now(), 10)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrCalendarNotFound)
	assert.Equal(t, int64(1), api.count(), "404 must not be retried")
}

func TestListEvents_ServerErrorExhausted(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusInternalServerError, "backend error")
	})

	c := newTestClient(t, google.NewMemoryTokenStore(validCredential()), api,
		WithMaxAttempts(4))

	_, err := c.ListEvents(context.Background(),
		"primary", time.Now().AddDate(0, 0, -7), time.Now(), 10)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrTransientFetch)
	assert.Equal(t, int64(4), api.count())
}

func TestListEvents_ServerErrorThenRecovers(t *testing.T) {
	var failures atomic.Int64
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if failures.Add(1) == 1 {
			writeAPIError(w, http.StatusServiceUnavailable, "try again")
			return
		}
		writeJSON(w, &calendar.Events{Items: []*calendar.Event{timedEvent("e1")}})
	})

	c := newTestClient(t, google.NewMemoryTokenStore(validCredential()), api)

	events, err := c.ListEvents(context.Background(),
		"primary", time.Now().AddDate(0, 0, -7), time.Now(), 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestListCalendars(t *testing.T) {
	pages := map[string]*calendar.CalendarList{
		"": {
			Items: []*calendar.CalendarListEntry{
				{
					Id:              "primary",
					Summary:         "Work",
					Primary:         true,
					AccessRole:      "owner",
					ColorId:         "7",
					BackgroundColor: "#9fc6e7",
					ForegroundColor: "#000000",
				},
			},
			NextPageToken: "p2",
		},
		"p2": {
			Items: []*calendar.CalendarListEntry{
				{Id: "team@example.com", Summary: "Team", AccessRole: "reader"},
			},
		},
	}

	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, pages[r.URL.Query().Get("pageToken")])
	})

	c := newTestClient(t, google.NewMemoryTokenStore(validCredential()), api)

	calendars, err := c.ListCalendars(context.Background())
	require.NoError(t, err)

	require.Len(t, calendars, 2)
	assert.Equal(t, CalendarInfo{
		ID:              "primary",
		Summary:         "Work",
		Primary:         true,
		AccessRole:      "owner",
		ColorID:         "7",
		BackgroundColor: "#9fc6e7",
		ForegroundColor: "#000000",
	}, calendars[0])
	assert.Equal(t, "team@example.com", calendars[1].ID)
}

func TestGetCalendar(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, &calendar.CalendarListEntry{
			Id:         "primary",
			Summary:    "Work",
			Primary:    true,
			AccessRole: "owner",
		})
	})

	c := newTestClient(t, google.NewMemoryTokenStore(validCredential()), api)

	info, err := c.GetCalendar(context.Background(), "primary")
	require.NoError(t, err)

	assert.Equal(t, "primary", info.ID)
	assert.Equal(t, "Work", info.Summary)
	assert.True(t, info.Primary)
}

func TestColorDefinitions(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, &calendar.Colors{
			Calendar: map[string]calendar.ColorDefinition{
				"1": {Background: "#ac725e", Foreground: "#1d1d1d"},
			},
			Event: map[string]calendar.ColorDefinition{
				"11": {Background: "#dc2127", Foreground: "#1d1d1d"},
			},
		})
	})

	c := newTestClient(t, google.NewMemoryTokenStore(validCredential()), api)

	colors, err := c.ColorDefinitions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "#ac725e", colors.Calendar["1"].Background)
	assert.Equal(t, "#dc2127", colors.Event["11"].Background)
}

func TestNewClient_NilStore(t *testing.T) {
	_, err := NewClient(context.Background(), nil)
	require.Error(t, err)
}

func TestNewClient_MissingCredential(t *testing.T) {
	store := google.NewMemoryTokenStore(nil)

	_, err := NewClient(context.Background(), store)
	require.Error(t, err)
	assert.ErrorIs(t, err, google.ErrCredentialMissing)
}

func TestNewClient_RefreshesStaleCredential(t *testing.T) {
	cred := validCredential()
	cred.Expiry = time.Now().Add(-time.Minute)
	store := google.NewMemoryTokenStore(cred)

	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, &calendar.Events{})
	})

	c := newTestClient(t, store, api)

	assert.Equal(t, 1, store.Refreshes, "stale credential must refresh during construction")

	events, err := c.ListEvents(context.Background(),
		"primary", time.Now().AddDate(0, 0, -7), time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

var errSentinel = errors.New("sentinel")

func TestErrorKindsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("listing events: %w", fmt.Errorf("%w: calendar xyz", ErrCalendarNotFound))
	assert.ErrorIs(t, wrapped, ErrCalendarNotFound)
	assert.NotErrorIs(t, wrapped, errSentinel)
}

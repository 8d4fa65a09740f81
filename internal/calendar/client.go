package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/aluizdacosta/calendar-export/internal/google"
	"github.com/aluizdacosta/calendar-export/internal/instrumentation"
	"github.com/aluizdacosta/calendar-export/internal/logging"
)

const (
	// defaultPageSize is the per-page cap requested from the events list
	// endpoint. The API default is 250.
	defaultPageSize = 250

	// defaultMaxAttempts bounds the backoff retries for quota and
	// transient failures.
	defaultMaxAttempts = 5

	// defaultRetryBase is the initial backoff interval.
	defaultRetryBase = time.Second
)

// Client wraps the Google Calendar service with pagination, authorization
// retry and bounded backoff. All calls share one sequential credential; the
// client is not safe for concurrent use.
type Client struct {
	svc     *calendar.Service
	store   google.TokenStore
	cred    *google.Credential
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	endpoint    string
	pageSize    int64
	maxAttempts uint
	retryBase   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithEndpoint overrides the API base URL, for tests.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithPageSize overrides the per-page result cap.
func WithPageSize(size int64) Option {
	return func(c *Client) { c.pageSize = size }
}

// WithMaxAttempts overrides the retry budget for quota and transient
// failures.
func WithMaxAttempts(n uint) Option {
	return func(c *Client) { c.maxAttempts = n }
}

// WithRetryBase overrides the initial backoff interval, for tests.
func WithRetryBase(d time.Duration) Option {
	return func(c *Client) { c.retryBase = d }
}

// credSource adapts the client's current credential to oauth2.TokenSource.
// After an authorization retry replaces the credential, subsequent requests
// pick up the new access token automatically.
type credSource struct {
	c *Client
}

func (s credSource) Token() (*oauth2.Token, error) {
	return s.c.cred.Token(), nil
}

// NewClient builds an authenticated Calendar client. The credential is
// loaded from the store and validated (refreshing if needed) before any
// API call is made.
func NewClient(ctx context.Context, store google.TokenStore, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, fmt.Errorf("token store cannot be nil")
	}

	cred, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	cred, err = store.EnsureValid(ctx, cred)
	if err != nil {
		return nil, err
	}

	c := &Client{
		store:       store,
		cred:        cred,
		logger:      slog.Default(),
		metrics:     &instrumentation.Metrics{},
		pageSize:    defaultPageSize,
		maxAttempts: defaultMaxAttempts,
		retryBase:   defaultRetryBase,
	}
	for _, opt := range opts {
		opt(c)
	}

	httpClient := oauth2.NewClient(ctx, credSource{c})
	svcOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(c.endpoint))
	}

	svc, err := calendar.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	c.svc = svc

	return c, nil
}

// ListEvents fetches raw events in [timeMin, timeMax), expanding recurring
// instances and ordering by start time. It pages through the result set
// while a continuation token is present and the accumulated count is below
// maxResults, then trims to exactly maxResults. Server ordering is
// preserved within and across pages.
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int64) ([]*calendar.Event, error) {
	logger := logging.WithCalendar(logging.WithOperation(c.logger, "events.list"), calendarID)

	var all []*calendar.Event
	pageToken := ""
	pages := 0

	for {
		remaining := maxResults - int64(len(all))
		if remaining <= 0 {
			break
		}

		call := c.svc.Events.List(calendarID).
			Context(ctx).
			TimeMin(timeMin.Format(time.RFC3339)).
			TimeMax(timeMax.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(min(remaining, c.pageSize))
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		res, err := doCall(ctx, c, "events.list", func() (*calendar.Events, error) {
			return call.Do()
		})
		if err != nil {
			return nil, err
		}

		pages++
		all = append(all, res.Items...)
		c.metrics.RecordPage(ctx, "events.list")
		logger.Debug("fetched events page",
			slog.Int(logging.KeyPage, pages),
			slog.Int(logging.KeyEvents, len(res.Items)))

		if res.NextPageToken == "" || int64(len(all)) >= maxResults {
			break
		}
		pageToken = res.NextPageToken
	}

	if int64(len(all)) > maxResults {
		all = all[:maxResults]
	}

	logger.Info("fetched events",
		slog.Int(logging.KeyEvents, len(all)),
		slog.Int("pages", pages))
	return all, nil
}

// ListCalendars lists all calendars accessible to the user. The result set
// is small in practice, but the page-token protocol is followed anyway.
func (c *Client) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	var calendars []CalendarInfo
	pageToken := ""

	for {
		call := c.svc.CalendarList.List().Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		res, err := doCall(ctx, c, "calendarList.list", func() (*calendar.CalendarList, error) {
			return call.Do()
		})
		if err != nil {
			return nil, err
		}

		for _, entry := range res.Items {
			calendars = append(calendars, toCalendarInfo(entry))
		}
		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	return calendars, nil
}

// GetCalendar retrieves metadata about a specific calendar.
func (c *Client) GetCalendar(ctx context.Context, calendarID string) (*CalendarInfo, error) {
	entry, err := doCall(ctx, c, "calendarList.get", func() (*calendar.CalendarListEntry, error) {
		return c.svc.CalendarList.Get(calendarID).Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	info := toCalendarInfo(entry)
	return &info, nil
}

// ColorDefinitions retrieves the account-wide color palette.
func (c *Client) ColorDefinitions(ctx context.Context) (ColorDefinitions, error) {
	colors, err := doCall(ctx, c, "colors.get", func() (*calendar.Colors, error) {
		return c.svc.Colors.Get().Context(ctx).Do()
	})
	if err != nil {
		return ColorDefinitions{}, err
	}
	return toColorDefinitions(colors), nil
}

// doCall runs an API call with the shared failure policy: bounded backoff
// for quota and transient errors, and a single token-refresh retry on 401.
// A second 401 is fatal.
func doCall[T any](ctx context.Context, c *Client, op string, call func() (T, error)) (T, error) {
	var zero T

	res, err := runWithBackoff(ctx, c, op, call)
	if err == nil || statusCode(err) != http.StatusUnauthorized {
		return res, err
	}

	// The server rejected the access token regardless of its nominal
	// expiry; force the store to attempt a refresh exchange.
	stale := *c.cred
	stale.Expiry = time.Now().Add(-time.Second)
	refreshed, rerr := c.store.EnsureValid(ctx, &stale)
	if rerr != nil {
		c.metrics.RecordTokenRefresh(ctx, instrumentation.StatusError)
		return zero, rerr
	}
	c.metrics.RecordTokenRefresh(ctx, instrumentation.StatusSuccess)
	c.cred = refreshed
	c.logger.Info("retrying after token refresh", logging.Operation(op))

	res, err = runWithBackoff(ctx, c, op, call)
	if err != nil && statusCode(err) == http.StatusUnauthorized {
		return zero, fmt.Errorf("%w: %v", ErrAuthorizationFailed, err)
	}
	return res, err
}

// runWithBackoff retries quota (403/429) and transient (network/5xx)
// failures with exponential backoff, honoring server Retry-After hints.
// Everything else fails immediately. Exhausted retries are wrapped with
// the matching error kind.
func runWithBackoff[T any](ctx context.Context, c *Client, op string, call func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryBase
	bo.RandomizationFactor = 0.1
	bo.Multiplier = 2

	res, err := backoff.Retry(ctx, func() (T, error) {
		r, callErr := call()
		if callErr == nil {
			return r, nil
		}
		lastErr = callErr

		code := statusCode(callErr)
		switch {
		case isQuotaStatus(code):
			c.metrics.RecordRetry(ctx, op, "quota")
			c.logger.Warn("rate limited, backing off", logging.Operation(op), logging.Err(callErr))
			if hint := retryAfterHint(callErr); hint > 0 {
				return zero, &backoff.RetryAfterError{Duration: hint}
			}
			return zero, callErr
		case isTransientStatus(code):
			if errors.Is(callErr, context.Canceled) || errors.Is(callErr, context.DeadlineExceeded) {
				return zero, backoff.Permanent(callErr)
			}
			c.metrics.RecordRetry(ctx, op, "transient")
			c.logger.Warn("transient failure, backing off", logging.Operation(op), logging.Err(callErr))
			return zero, callErr
		default:
			return zero, backoff.Permanent(callErr)
		}
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(c.maxAttempts))

	if err == nil {
		c.metrics.RecordAPIOperation(ctx, op, instrumentation.StatusSuccess)
		return res, nil
	}
	c.metrics.RecordAPIOperation(ctx, op, instrumentation.StatusError)

	if lastErr == nil {
		lastErr = err
	}
	code := statusCode(lastErr)
	switch {
	case code == http.StatusNotFound:
		return zero, fmt.Errorf("%w: %v", ErrCalendarNotFound, lastErr)
	case isQuotaStatus(code):
		return zero, fmt.Errorf("%w after %d attempts: %v", ErrQuotaExceeded, c.maxAttempts, lastErr)
	case isTransientStatus(code):
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return zero, lastErr
		}
		return zero, fmt.Errorf("%w after %d attempts: %v", ErrTransientFetch, c.maxAttempts, lastErr)
	default:
		return zero, lastErr
	}
}

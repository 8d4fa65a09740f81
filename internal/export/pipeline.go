package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	api "google.golang.org/api/calendar/v3"

	"github.com/aluizdacosta/calendar-export/internal/calendar"
	"github.com/aluizdacosta/calendar-export/internal/instrumentation"
	"github.com/aluizdacosta/calendar-export/internal/logging"
)

// State is the observable phase of a pipeline run. Transitions are linear:
// Init, Authenticated, Fetching, Normalizing, Filtering, Done. Failed is
// reachable from any state and carries the originating error out of Run.
type State string

const (
	StateInit          State = "init"
	StateAuthenticated State = "authenticated"
	StateFetching      State = "fetching"
	StateNormalizing   State = "normalizing"
	StateFiltering     State = "filtering"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// EventSource is the slice of the calendar client the pipeline consumes.
// *calendar.Client satisfies it; tests substitute fakes.
type EventSource interface {
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int64) ([]*api.Event, error)
	GetCalendar(ctx context.Context, calendarID string) (*calendar.CalendarInfo, error)
	ColorDefinitions(ctx context.Context) (calendar.ColorDefinitions, error)
}

// Options configures one export run. The caller validates and defaults the
// values; the pipeline only fills the hard fallbacks.
type Options struct {
	CalendarID string
	TimeMin    time.Time
	TimeMax    time.Time
	MaxResults int64
	Filter     Mode
}

// Export is the output document. Field names and nesting are a
// compatibility contract for downstream consumers.
type Export struct {
	ExportTimestamp  string                    `json:"export_timestamp"`
	TotalEvents      int                       `json:"total_events"`
	CalendarInfo     calendar.CalendarInfo     `json:"calendar_info"`
	ColorDefinitions calendar.ColorDefinitions `json:"color_definitions"`
	Events           []calendar.Event          `json:"events"`
}

// Pipeline runs exports against an EventSource. A pipeline is not safe for
// concurrent use; each Run owns the state for its duration.
type Pipeline struct {
	source  EventSource
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	now     func() time.Time
	state   State
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// WithClock overrides the export timestamp source, for tests.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a pipeline over an authenticated event source.
func NewPipeline(source EventSource, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		source:  source,
		logger:  slog.Default(),
		metrics: &instrumentation.Metrics{},
		now:     time.Now,
		state:   StateInit,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the phase of the current or most recent run.
func (p *Pipeline) State() State {
	return p.state
}

// Run executes one export: fetch the calendar metadata and the capped raw
// event window, normalize every record (skipping malformed ones), filter by
// mode and assemble the output. The maxResults cap applies to fetched raw
// events before filtering; filtering never fetches extra events to
// compensate for exclusions. Errors keep their kind on the way out.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Export, error) {
	start := p.now()

	if opts.CalendarID == "" {
		opts.CalendarID = "primary"
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 1000
	}
	if opts.Filter == "" {
		opts.Filter = ModeAll
	}
	if !opts.TimeMax.After(opts.TimeMin) {
		return p.fail(ctx, start, fmt.Errorf("time window is empty: %s is not before %s",
			opts.TimeMin.Format(time.RFC3339), opts.TimeMax.Format(time.RFC3339)))
	}

	logger := logging.WithCalendar(p.logger, opts.CalendarID)

	// The source was authenticated at construction; the credential is
	// known valid at this point.
	p.state = StateAuthenticated

	p.state = StateFetching
	info, err := p.source.GetCalendar(ctx, opts.CalendarID)
	if err != nil {
		return p.fail(ctx, start, err)
	}
	colors, err := p.source.ColorDefinitions(ctx)
	if err != nil {
		return p.fail(ctx, start, err)
	}
	raw, err := p.source.ListEvents(ctx, opts.CalendarID, opts.TimeMin, opts.TimeMax, opts.MaxResults)
	if err != nil {
		return p.fail(ctx, start, err)
	}
	p.metrics.RecordEvents(ctx, instrumentation.StageFetched, len(raw))

	p.state = StateNormalizing
	normalized := make([]calendar.Event, 0, len(raw))
	skipped := 0
	for _, r := range raw {
		e, nerr := calendar.Normalize(r)
		if nerr != nil {
			if errors.Is(nerr, calendar.ErrMalformedEvent) {
				skipped++
				logger.Warn("skipping malformed event",
					logging.Status(logging.StatusSkipped), logging.Err(nerr))
				continue
			}
			return p.fail(ctx, start, nerr)
		}
		normalized = append(normalized, e)
	}
	if skipped > 0 {
		p.metrics.RecordEvents(ctx, instrumentation.StageSkipped, skipped)
	}

	p.state = StateFiltering
	events := make([]calendar.Event, 0, len(normalized))
	for _, e := range normalized {
		if Include(e, opts.Filter) {
			events = append(events, e)
		}
	}

	out := &Export{
		ExportTimestamp:  start.UTC().Format(time.RFC3339),
		TotalEvents:      len(events),
		CalendarInfo:     *info,
		ColorDefinitions: colors,
		Events:           events,
	}

	p.state = StateDone
	p.metrics.RecordEvents(ctx, instrumentation.StageExported, len(events))
	p.metrics.RecordExportDuration(ctx, instrumentation.StatusSuccess, p.now().Sub(start))
	logger.Info("export complete",
		logging.Status(logging.StatusSuccess),
		slog.Int("fetched", len(raw)),
		slog.Int("skipped", skipped),
		slog.Int(logging.KeyEvents, len(events)),
		slog.Duration(logging.KeyDuration, p.now().Sub(start)))

	return out, nil
}

// fail records the terminal state and surfaces the error unchanged so the
// caller can match its kind.
func (p *Pipeline) fail(ctx context.Context, start time.Time, err error) (*Export, error) {
	p.state = StateFailed
	p.metrics.RecordExportDuration(ctx, instrumentation.StatusError, p.now().Sub(start))
	p.logger.Error("export failed", logging.Status(logging.StatusError), logging.Err(err))
	return nil, err
}

// Summary describes the composition of an export for operator logging.
type Summary struct {
	Total         int
	AllDay        int
	Timed         int
	WithAttendees int
}

// Summarize computes composition counts over the exported events.
func Summarize(e *Export) Summary {
	s := Summary{Total: len(e.Events)}
	for _, ev := range e.Events {
		if ev.AllDay {
			s.AllDay++
		} else {
			s.Timed++
		}
		if len(ev.Attendees) > 0 {
			s.WithAttendees++
		}
	}
	return s
}

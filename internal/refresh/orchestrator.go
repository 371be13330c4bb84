package refresh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/unirecords/internal/assignment"
)

const (
	defaultWorkers = 4
	defaultTimeout = 30 * time.Second
)

var (
	// ErrTimeout marks a unit that had not finished when its refresh timed out
	// or was cancelled.
	ErrTimeout = errors.New("refresh: timed out")
	// ErrUnknownCategory is returned for a category with no registered unit.
	ErrUnknownCategory = errors.New("refresh: unknown category")
)

// Status is the terminal state of a unit.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusTimeout Status = "timeout"
)

// Outcome is the result of refreshing one category.
type Outcome struct {
	Category Category
	Status   Status
	Err      error
	Duration time.Duration
}

// OK reports whether the category refreshed cleanly.
func (o Outcome) OK() bool { return o.Status == StatusOK }

// Report is the structured result of RefreshAll.
type Report struct {
	RunID string
	// Outcomes holds one entry per category in Categories order.
	Outcomes []Outcome
	// Completed counts units that finished, successfully or not, before the
	// join returned.
	Completed int
	Total     int
	Duration  time.Duration
}

// Failed returns the outcomes that did not succeed.
func (r Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// OK reports whether every category refreshed.
func (r Report) OK() bool {
	return r.Completed == r.Total && len(r.Failed()) == 0
}

// Outcome returns the outcome for one category.
func (r Report) Outcome(category Category) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Category == category {
			return o, true
		}
	}
	return Outcome{}, false
}

// Err joins the errors of every failed outcome.
func (r Report) Err() error {
	var errs []error
	for _, o := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", o.Category, o.Err))
	}
	return errors.Join(errs...)
}

// Generator produces the initial assignments of one owner kind.
// *assignment.Repository satisfies it.
type Generator interface {
	Kind() assignment.Kind
	Exists() (bool, error)
	Generate(ctx context.Context) (assignment.GenerationReport, error)
}

// Option customizes an Orchestrator during construction.
type Option func(*Orchestrator)

// WithWorkers bounds how many units run at once.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithTimeout bounds every refresh request.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithSink routes progress messages. A sink that also implements
// BusyIndicator is toggled around each request.
func WithSink(sink ProgressSink) Option {
	return func(o *Orchestrator) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records unit outcomes.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithGenerators registers the assignment generators used by InitialiseData.
func WithGenerators(generators ...Generator) Option {
	return func(o *Orchestrator) {
		for _, g := range generators {
			if g != nil {
				o.generators = append(o.generators, g)
			}
		}
	}
}

// Orchestrator runs refresh units on a bounded pool and streams progress to a
// sink. Unit failures are turned into messages and outcomes; no refresh call
// ever returns an error or panics.
type Orchestrator struct {
	units      map[Category]Unit
	workers    int
	timeout    time.Duration
	sink       ProgressSink
	logger     *zap.Logger
	metrics    *Metrics
	generators []Generator
}

// New builds an orchestrator over the given units.
func New(units map[Category]Unit, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		units:   map[Category]Unit{},
		workers: defaultWorkers,
		timeout: defaultTimeout,
		sink:    SinkFunc(func(string) {}),
		logger:  zap.NewNop(),
	}
	for category, unit := range units {
		if unit != nil && category != All {
			o.units[category] = unit
		}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// RefreshSpecific reloads a single category. All delegates to RefreshAll.
func (o *Orchestrator) RefreshSpecific(ctx context.Context, category Category) Outcome {
	if category == All {
		report := o.RefreshAll(ctx)
		outcome := Outcome{Category: All, Status: StatusOK, Duration: report.Duration}
		if err := report.Err(); err != nil {
			outcome.Status = StatusFailed
			outcome.Err = err
		}
		return outcome
	}

	o.showBusy()
	defer o.hideBusy()
	runID := uuid.NewString()
	o.sink.Report(fmt.Sprintf("Refreshing %s...", category))

	unit, ok := o.units[category]
	if !ok {
		outcome := Outcome{Category: category, Status: StatusFailed, Err: fmt.Errorf("%w: %q", ErrUnknownCategory, category)}
		o.record(runID, outcome)
		o.reportOutcome(outcome)
		return outcome
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	start := time.Now()
	result := make(chan error, 1)
	go func() { result <- o.runUnit(ctx, runID, category, unit) }()

	var err error
	select {
	case err = <-result:
	case <-ctx.Done():
		err = timeoutError(ctx)
	}
	outcome := Outcome{Category: category, Status: statusOf(err), Err: err, Duration: time.Since(start)}
	o.record(runID, outcome)
	o.reportOutcome(outcome)
	return outcome
}

// RefreshAll reloads every registered category concurrently and waits for all
// of them, or for the timeout, before returning.
func (o *Orchestrator) RefreshAll(ctx context.Context) Report {
	runID := uuid.NewString()
	started := time.Now()
	o.showBusy()
	defer o.hideBusy()

	categories := o.categories()
	total := len(categories)
	o.sink.Report(fmt.Sprintf("Refreshing all data (%d categories)...", total))
	o.logger.Info("refresh_all_started", zap.String("run_id", runID), zap.Int("units", total), zap.Int("workers", o.workers))

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var (
		mu        sync.Mutex
		sealed    bool
		completed int
		done      = make([]bool, total)
		outcomes  = make([]Outcome, total)
	)
	// finish runs exactly once per unit. Messages are sent under mu so that the
	// summary never precedes a completion line.
	finish := func(i int, outcome Outcome) {
		mu.Lock()
		defer mu.Unlock()
		if sealed {
			return
		}
		done[i] = true
		outcomes[i] = outcome
		completed++
		o.record(runID, outcome)
		o.reportOutcome(outcome)
		o.sink.Report(fmt.Sprintf("Completed %d of %d", completed, total))
	}

	joined := make(chan struct{})
	go func() {
		defer close(joined)
		var g errgroup.Group
		g.SetLimit(o.workers)
		for i, category := range categories {
			i, category := i, category
			unit := o.units[category]
			g.Go(func() error {
				start := time.Now()
				var err error
				defer func() {
					finish(i, Outcome{Category: category, Status: statusOf(err), Err: err, Duration: time.Since(start)})
				}()
				if ctx.Err() != nil {
					err = timeoutError(ctx)
					return nil
				}
				err = o.runUnit(ctx, runID, category, unit)
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-joined:
	case <-ctx.Done():
	}

	mu.Lock()
	sealed = true
	for i, category := range categories {
		if done[i] {
			continue
		}
		outcomes[i] = Outcome{Category: category, Status: StatusTimeout, Err: timeoutError(ctx), Duration: time.Since(started)}
		o.record(runID, outcomes[i])
		o.reportOutcome(outcomes[i])
	}
	report := Report{
		RunID:     runID,
		Outcomes:  append([]Outcome(nil), outcomes...),
		Completed: completed,
		Total:     total,
		Duration:  time.Since(started),
	}
	mu.Unlock()

	o.sink.Report(summary(report))
	o.logger.Info("refresh_all_finished",
		zap.String("run_id", runID),
		zap.Int("completed", report.Completed),
		zap.Int("failed", len(report.Failed())),
		zap.Duration("duration", report.Duration),
	)
	return report
}

// InitialiseData generates both assignment stores when either file is missing
// and then reloads courses and modules.
func (o *Orchestrator) InitialiseData(ctx context.Context) error {
	var errs []error
	missing := false
	for _, g := range o.generators {
		exists, err := g.Exists()
		if err != nil {
			return fmt.Errorf("refresh: check %s assignments: %w", g.Kind(), err)
		}
		if !exists {
			missing = true
		}
	}
	if missing {
		for _, g := range o.generators {
			if err := o.generate(ctx, g); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, category := range []Category{Courses, Modules} {
		if _, ok := o.units[category]; !ok {
			continue
		}
		if outcome := o.RefreshSpecific(ctx, category); !outcome.OK() {
			errs = append(errs, fmt.Errorf("refresh: %s: %w", category, outcome.Err))
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) generate(ctx context.Context, g Generator) error {
	o.sink.Report(fmt.Sprintf("Generating %s assignments...", g.Kind()))
	report, err := g.Generate(ctx)
	if err != nil {
		o.sink.Report(fmt.Sprintf("Error generating %s assignments: %v", g.Kind(), err))
		return fmt.Errorf("refresh: generate %s assignments: %w", g.Kind(), err)
	}
	o.sink.Report(fmt.Sprintf("Generated %s assignments for %d owners (%d skipped)", g.Kind(), report.Owners, len(report.Skipped)))
	return nil
}

// runUnit executes unit and converts a panic into an error.
func (o *Orchestrator) runUnit(ctx context.Context, runID string, category Category, unit Unit) (err error) {
	o.logger.Debug("refresh_unit_started", zap.String("run_id", runID), zap.String("category", category.String()))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh: %s unit panicked: %v", category, r)
		}
	}()
	return unit(ctx)
}

func (o *Orchestrator) record(runID string, outcome Outcome) {
	o.metrics.observe(outcome.Category, outcome.Status, outcome.Duration)
	fields := []zap.Field{
		zap.String("run_id", runID),
		zap.String("category", outcome.Category.String()),
		zap.String("status", string(outcome.Status)),
		zap.Duration("duration", outcome.Duration),
	}
	if outcome.OK() {
		o.logger.Info("refresh_unit_finished", fields...)
		return
	}
	o.logger.Warn("refresh_unit_failed", append(fields, zap.Error(outcome.Err))...)
}

func (o *Orchestrator) reportOutcome(outcome Outcome) {
	if outcome.OK() {
		o.sink.Report(fmt.Sprintf("%s refresh complete", outcome.Category))
		return
	}
	o.sink.Report(fmt.Sprintf("Error refreshing %s: %v", outcome.Category, outcome.Err))
}

func (o *Orchestrator) categories() []Category {
	var out []Category
	for _, category := range Categories() {
		if _, ok := o.units[category]; ok {
			out = append(out, category)
		}
	}
	return out
}

func (o *Orchestrator) showBusy() {
	if busy, ok := o.sink.(BusyIndicator); ok {
		busy.ShowBusy()
	}
}

func (o *Orchestrator) hideBusy() {
	if busy, ok := o.sink.(BusyIndicator); ok {
		busy.HideBusy()
	}
}

func summary(r Report) string {
	if r.OK() {
		return fmt.Sprintf("All data refreshed (%d of %d)", r.Completed, r.Total)
	}
	failed := r.Failed()
	names := make([]string, 0, len(failed))
	for _, o := range failed {
		names = append(names, o.Category.String())
	}
	return fmt.Sprintf("Refresh finished with %d of %d failed: %s", len(failed), r.Total, strings.Join(names, ", "))
}

func statusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout
	default:
		return StatusFailed
	}
}

func timeoutError(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
}

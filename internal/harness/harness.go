package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/worm/internal/worm"
)

// Options configures a scenario run.
type Options struct {
	// Mode applies when the scenario leaves mode empty.
	Mode worm.Mode

	// Observer is attached to every record the run creates.
	Observer worm.Observer

	// Logger receives installer warnings. Nil discards them; they are
	// counted either way.
	Logger *slog.Logger
}

// Harness executes one scenario. Create a fresh Harness per run.
type Harness struct {
	installer *worm.Installer
	warnings  *atomic.Int64
	rec       *worm.Record
	result    *Result
}

// Run executes a scenario with default options.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithOptions(scenario, Options{})
}

// RunWithOptions executes a scenario and returns the result.
//
// Execution flow:
//  1. Resolve the mode and build the starting record (if any)
//  2. Execute steps in order, tracing each and checking its expect clause
//  3. Snapshot the final record and check final expectations
//
// An error is returned only when the scenario cannot be executed; failed
// expectations are reported in Result.Errors.
func RunWithOptions(scenario *Scenario, opts Options) (*Result, error) {
	if err := ValidateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	mode := opts.Mode
	if scenario.Mode != "" {
		mode, _ = worm.ParseMode(scenario.Mode)
	}

	var inner slog.Handler = slog.NewTextHandler(io.Discard, nil)
	if opts.Logger != nil {
		inner = opts.Logger.Handler()
	}
	counter := &countingHandler{inner: inner, count: &atomic.Int64{}}

	recordOpts := []worm.RecordOption{
		worm.WithMode(mode),
		worm.WithIDGenerator(worm.NewSequenceGenerator("record")),
	}
	if opts.Observer != nil {
		recordOpts = append(recordOpts, worm.WithObserver(opts.Observer))
	}

	h := &Harness{
		installer: worm.NewInstaller(
			worm.WithLogger(slog.New(counter).With("scenario", scenario.Name)),
			worm.WithRecordOptions(recordOpts...),
		),
		warnings: counter.count,
		result:   NewResult(),
	}
	h.result.Mode = mode.String()

	if scenario.Record != nil {
		h.rec = worm.FromMap(scenario.Record, recordOpts...)
	}

	for i, step := range scenario.Steps {
		if err := h.executeStep(i, step); err != nil {
			return nil, err
		}
	}

	if h.rec != nil {
		h.result.Final = snapshot(h.rec)
	}
	for _, msg := range checkFinal(h.rec, scenario.Final) {
		h.result.AddError(msg)
	}
	h.result.Warnings = int(h.warnings.Load())

	return h.result, nil
}

func (h *Harness) executeStep(i int, step Step) error {
	if step.Op != OpGuard && h.rec == nil {
		return fmt.Errorf("steps[%d]: %s before any record exists", i, step.Op)
	}

	var ev *TraceEvent
	same := false

	switch step.Op {
	case OpGuard:
		sel := worm.Fields(step.Keys...)
		if step.All {
			sel = worm.AllFields()
		}
		before := h.rec
		warned := h.warnings.Load()
		got := h.installer.Install(sel, before)
		same = before != nil && got == before
		h.rec = got

		outcome := OutcomeOK
		if h.warnings.Load() > warned {
			outcome = OutcomeWarned
		}
		ev = h.result.addTrace(TraceEvent{
			Op:        OpGuard,
			Record:    got.ID(),
			Selection: sel.String(),
			Outcome:   outcome,
		})

	case OpSet, OpDelete:
		prior := h.rec.State(step.Key)
		var err error
		if step.Op == OpSet {
			err = h.rec.Set(step.Key, step.Value)
		} else {
			err = h.rec.Delete(step.Key)
		}
		outcome := OutcomeOK
		switch {
		case worm.IsViolation(err):
			outcome = OutcomeViolation
		case err != nil:
			return fmt.Errorf("steps[%d]: %s %q: %w", i, step.Op, step.Key, err)
		case refused(step.Op, prior):
			outcome = OutcomeIgnored
		}
		ev = h.result.addTrace(TraceEvent{
			Op:      step.Op,
			Record:  h.rec.ID(),
			Key:     step.Key,
			Value:   step.Value,
			Outcome: outcome,
		})

	case OpGet:
		v, ok := h.rec.Get(step.Key)
		outcome := OutcomeOK
		if !ok {
			outcome = OutcomeMissing
		}
		ev = h.result.addTrace(TraceEvent{
			Op:      OpGet,
			Record:  h.rec.ID(),
			Key:     step.Key,
			Value:   v,
			Outcome: outcome,
		})

	case OpHas:
		ev = h.result.addTrace(TraceEvent{
			Op:      OpHas,
			Record:  h.rec.ID(),
			Key:     step.Key,
			Value:   h.rec.Has(step.Key),
			Outcome: OutcomeOK,
		})

	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}

	for _, msg := range checkStep(i, step, *ev, same, h.rec) {
		h.result.AddError(msg)
	}
	return nil
}

// refused reports whether op on a field in state prior is refused. It is
// only consulted after a nil error, where a refusal means a lenient record
// dropped the operation.
func refused(op string, prior worm.State) bool {
	if op == OpSet {
		return prior == worm.Written
	}
	return prior != worm.Unguarded
}

func snapshot(r *worm.Record) []FieldState {
	fields := r.Snapshot()
	out := make([]FieldState, len(fields))
	for i, f := range fields {
		out[i] = FieldState{Key: f.Key, State: f.State.String(), Value: f.Value}
	}
	return out
}

// countingHandler counts warning-level records and forwards everything to
// an inner handler.
type countingHandler struct {
	inner slog.Handler
	count *atomic.Int64
}

func (c *countingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.LevelWarn || c.inner.Enabled(ctx, level)
}

func (c *countingHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		c.count.Add(1)
	}
	if c.inner.Enabled(ctx, r.Level) {
		return c.inner.Handle(ctx, r)
	}
	return nil
}

func (c *countingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &countingHandler{inner: c.inner.WithAttrs(attrs), count: c.count}
}

func (c *countingHandler) WithGroup(name string) slog.Handler {
	return &countingHandler{inner: c.inner.WithGroup(name), count: c.count}
}

// Package calculator is the entry point used by the REPL and the HTTP API. A
// Calculator parses operands, dispatches to the operation registry, records
// every result in history, and optionally saves it.
package calculator

import (
	"context"
	"fmt"
	"iter"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"go-chi-calculator/internal/arith"
	"go-chi-calculator/internal/config"
	"go-chi-calculator/internal/history"
)

var tracer = otel.Tracer("calculator")

// Result is a successful computation. SaveErr is set when the calculation
// was recorded but the automatic save afterwards failed.
type Result struct {
	Calculation history.Calculation
	SaveErr     error
}

// Step is one link of a chained calculation: the running value is combined
// with Value using Operation.
type Step struct {
	Operation string
	Value     string
}

// Calculator is not safe for concurrent use; callers serialise access.
type Calculator struct {
	cfg       config.Config
	registry  *arith.Registry
	validator arith.Validator
	history   *history.Manager
	observers []Observer
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithRegistry replaces the builtin operation registry.
func WithRegistry(r *arith.Registry) Option {
	return func(c *Calculator) { c.registry = r }
}

// WithClock sets the time source used to stamp calculations.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) { c.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Calculator) { c.logger = l }
}

// WithObserver registers o to be notified of every recorded calculation.
func WithObserver(o Observer) Option {
	return func(c *Calculator) { c.observers = append(c.observers, o) }
}

// NewHistory builds a history manager sized and configured from cfg.
func NewHistory(cfg config.Config, store history.Store, logger *zap.Logger) *history.Manager {
	return history.NewManager(store, history.Options{
		MaxSize:        cfg.MaxHistorySize,
		MaxUndo:        cfg.MaxUndoDepth,
		PersistOnClear: cfg.ClearPersist,
		Logger:         logger,
	})
}

// New returns a Calculator reading its limits from cfg and recording into
// hist.
func New(cfg config.Config, hist *history.Manager, opts ...Option) *Calculator {
	c := &Calculator{
		cfg:       cfg,
		validator: arith.NewValidator(cfg.MaxInputValue),
		history:   hist,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = arith.NewRegistry(cfg.Precision)
	}

	if err := InitMetrics(); err != nil {
		c.logger.Warn("calculator metrics unavailable", zap.Error(err))
	}
	return c
}

// Compute parses both operands, runs the named operation and records the
// calculation. With auto-save enabled the history is saved afterwards; a
// failed save is reported through Result.SaveErr and does not fail the call.
func (c *Calculator) Compute(ctx context.Context, name, rawA, rawB string) (Result, error) {
	ctx, span := tracer.Start(ctx, "calculator.compute",
		trace.WithAttributes(attribute.String("calculator.operation", name)),
	)
	defer span.End()

	start := time.Now()

	calc, err := c.compute(name, rawA, rawB)
	if err != nil {
		return Result{}, c.fail(ctx, span, "compute", name, err)
	}

	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	opsHistogram.Record(ctx, elapsed, metric.WithAttributes(attribute.String("operation", calc.Operator)))

	c.history.Record(calc)
	reportHistory("record", c.history)
	for _, o := range c.observers {
		o.Notify(ctx, calc)
	}

	span.SetAttributes(
		attribute.String("calculator.operand.a", calc.OperandA.String()),
		attribute.String("calculator.operand.b", calc.OperandB.String()),
		attribute.String("calculator.result", calc.Result.String()),
	)
	span.SetStatus(codes.Ok, "")

	c.logger.Info("calculator operation completed",
		zap.String("operation", calc.Operator),
		zap.Stringer("result", calc.Result),
		zap.Float64("duration_ms", elapsed),
	)

	res := Result{Calculation: calc}
	if c.cfg.AutoSave {
		if err := c.history.Save(ctx); err != nil {
			res.SaveErr = wrap("save", err)
			span.AddEvent("autosave.failed", trace.WithAttributes(attribute.String("error", err.Error())))
			c.logger.Warn("auto-save failed", zap.Error(err))
		}
	}
	return res, nil
}

func (c *Calculator) compute(name, rawA, rawB string) (history.Calculation, error) {
	a, err := c.validator.Parse(rawA)
	if err != nil {
		return history.Calculation{}, fmt.Errorf("first operand: %w", err)
	}
	b, err := c.validator.Parse(rawB)
	if err != nil {
		return history.Calculation{}, fmt.Errorf("second operand: %w", err)
	}

	op, err := c.registry.Resolve(name)
	if err != nil {
		return history.Calculation{}, err
	}

	result, err := c.registry.Execute(op, a, b)
	if err != nil {
		return history.Calculation{}, err
	}

	return history.NewCalculation(op.Name, a, b, result, c.now()), nil
}

// Chain starts from initial and applies each step to the running value,
// recording every step as its own calculation. It stops at the first failing
// step and returns the results recorded so far together with the error.
func (c *Calculator) Chain(ctx context.Context, initial string, steps []Step) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "calculator.chain",
		trace.WithAttributes(attribute.Int("chain.steps_count", len(steps))),
	)
	defer span.End()

	if len(steps) == 0 {
		err := fmt.Errorf("%w: no steps provided", arith.ErrInvalidInput)
		return nil, c.fail(ctx, span, "chain", "chain", err)
	}

	running := initial
	results := make([]Result, 0, len(steps))
	for i, step := range steps {
		res, err := c.Compute(ctx, step.Operation, running, step.Value)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, fmt.Sprintf("failed at step %d", i))
			return results, &Error{Kind: KindOf(err), Op: "chain", Err: fmt.Errorf("step %d: %w", i, err)}
		}
		results = append(results, res)
		running = res.Calculation.Result.String()
	}

	span.SetAttributes(attribute.String("chain.result", running))
	span.SetStatus(codes.Ok, "")
	return results, nil
}

// Undo reverses the most recent history action.
func (c *Calculator) Undo(ctx context.Context) (history.Snapshot, error) {
	snap, err := c.history.Undo()
	if err != nil {
		return history.Snapshot{}, c.fail(ctx, trace.SpanFromContext(ctx), "undo", "undo", err)
	}
	reportHistory("undo", c.history)
	c.logger.Info("history undo", zap.Stringer("kind", snap.Kind))
	return snap, nil
}

// Redo replays the most recently undone action.
func (c *Calculator) Redo(ctx context.Context) (history.Snapshot, error) {
	snap, err := c.history.Redo()
	if err != nil {
		return history.Snapshot{}, c.fail(ctx, trace.SpanFromContext(ctx), "redo", "redo", err)
	}
	reportHistory("redo", c.history)
	c.logger.Info("history redo", zap.Stringer("kind", snap.Kind))
	return snap, nil
}

// Clear empties the history. The entries stay cleared even when the
// configured save-on-clear fails; that failure is returned.
func (c *Calculator) Clear(ctx context.Context) error {
	err := c.history.Clear(ctx)
	reportHistory("clear", c.history)
	if err != nil {
		return c.fail(ctx, trace.SpanFromContext(ctx), "clear", "clear", err)
	}
	c.logger.Info("history cleared")
	return nil
}

// History yields the recorded calculations, oldest first.
func (c *Calculator) History() iter.Seq[history.Calculation] {
	return c.history.All()
}

// Len returns the number of recorded calculations.
func (c *Calculator) Len() int {
	return c.history.Len()
}

// UndoDepth returns how many actions can be undone.
func (c *Calculator) UndoDepth() int {
	return c.history.UndoDepth()
}

// RedoDepth returns how many undone actions can be redone.
func (c *Calculator) RedoDepth() int {
	return c.history.RedoDepth()
}

// Save writes the history through the configured store.
func (c *Calculator) Save(ctx context.Context) error {
	if err := c.history.Save(ctx); err != nil {
		return c.fail(ctx, trace.SpanFromContext(ctx), "save", "save", err)
	}
	c.logger.Info("history saved", zap.Int("entries", c.history.Len()))
	return nil
}

// Load replaces the history with the stored entries. Loading resets undo
// and redo and cannot itself be undone.
func (c *Calculator) Load(ctx context.Context) error {
	if err := c.history.Load(ctx); err != nil {
		return c.fail(ctx, trace.SpanFromContext(ctx), "load", "load", err)
	}
	reportHistory("load", c.history)
	c.logger.Info("history loaded", zap.Int("entries", c.history.Len()))
	return nil
}

// Operations lists the registered operations sorted by name.
func (c *Calculator) Operations() []arith.Operation {
	names := c.registry.Names()
	ops := make([]arith.Operation, 0, len(names))
	for _, name := range names {
		op, err := c.registry.Resolve(name)
		if err != nil {
			continue
		}
		ops = append(ops, op)
	}
	return ops
}

// Precision returns the number of significant digits results keep.
func (c *Calculator) Precision() int {
	return c.registry.Precision().Digits
}

// fail translates err, records it on span and the error counter, and logs
// it. Internal errors log at error level, everything else at warn.
func (c *Calculator) fail(ctx context.Context, span trace.Span, op, operation string, err error) error {
	wrapped := wrap(op, err)
	kind := KindOf(wrapped)

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	errorCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("kind", string(kind)),
	))

	fields := []zap.Field{
		zap.String("command", op),
		zap.String("operation", operation),
		zap.String("kind", string(kind)),
		zap.Error(err),
	}
	if kind == KindInternal {
		c.logger.Error("calculator command failed", fields...)
	} else {
		c.logger.Warn("calculator command failed", fields...)
	}
	return wrapped
}

package calculator

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"go-chi-calculator/internal/history"
)

// Observer is notified after every calculation the Calculator records.
// Observers run synchronously on the computing goroutine and must not call
// back into the Calculator.
type Observer interface {
	Notify(ctx context.Context, c history.Calculation)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, c history.Calculation)

func (f ObserverFunc) Notify(ctx context.Context, c history.Calculation) {
	f(ctx, c)
}

// LoggingObserver writes one debug line per calculation with its operands.
// The Calculator already logs each completed operation at info.
type LoggingObserver struct {
	Logger *zap.Logger
}

func (o LoggingObserver) Notify(_ context.Context, c history.Calculation) {
	o.Logger.Debug("calculation recorded",
		zap.String("operation", c.Operator),
		zap.Stringer("a", c.OperandA),
		zap.Stringer("b", c.OperandB),
		zap.Stringer("result", c.Result),
	)
}

// MetricsObserver counts calculations and records the last result. It
// requires InitMetrics to have succeeded.
type MetricsObserver struct{}

func (MetricsObserver) Notify(ctx context.Context, c history.Calculation) {
	attrs := metric.WithAttributes(attribute.String("operation", c.Operator))
	opsCounter.Add(ctx, 1, attrs)
	resultGauge.Record(ctx, c.Result.InexactFloat64(), attrs)
}

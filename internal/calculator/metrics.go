package calculator

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"go-chi-calculator/internal/history"
)

// OTel instruments, created once by InitMetrics.
var (
	metricsOnce sync.Once
	metricsErr  error

	opsCounter   metric.Int64Counter
	opsHistogram metric.Float64Histogram
	errorCounter metric.Int64Counter
	httpErrors   metric.Int64Counter
	resultGauge  metric.Float64Gauge
)

// Prometheus collectors describing the history state, served on /metrics.
var (
	historyEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "calculator",
		Name:      "history_entries",
		Help:      "Number of calculations currently held in history.",
	})
	undoDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "calculator",
		Name:      "undo_depth",
		Help:      "Number of actions that can be undone.",
	})
	redoDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "calculator",
		Name:      "redo_depth",
		Help:      "Number of actions that can be redone.",
	})
	historyActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "calculator",
		Name:      "history_actions_total",
		Help:      "History mutations by action.",
	}, []string{"action"})
)

// InitMetrics registers the calculator's OTel instruments on the global
// meter provider. It is safe to call more than once; only the first call
// creates instruments. Call it after observability.InitMetrics so the
// instruments export through the configured provider.
func InitMetrics() error {
	metricsOnce.Do(func() {
		metricsErr = initInstruments()
	})
	return metricsErr
}

func initInstruments() error {
	meter := otel.Meter("calculator")

	var err error

	opsCounter, err = meter.Int64Counter("calculator.operations.total",
		metric.WithDescription("Total number of calculator operations performed"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return fmt.Errorf("creating ops counter: %w", err)
	}

	opsHistogram, err = meter.Float64Histogram("calculator.operation.duration",
		metric.WithDescription("Duration of calculator operations in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50),
	)
	if err != nil {
		return fmt.Errorf("creating ops histogram: %w", err)
	}

	errorCounter, err = meter.Int64Counter("calculator.errors.total",
		metric.WithDescription("Total number of failed calculator commands"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return fmt.Errorf("creating error counter: %w", err)
	}

	httpErrors, err = meter.Int64Counter("calculator.http.errors.total",
		metric.WithDescription("Total number of calculator HTTP requests answered with an error"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return fmt.Errorf("creating http error counter: %w", err)
	}

	resultGauge, err = meter.Float64Gauge("calculator.last_result",
		metric.WithDescription("The result of the last calculation, as a float approximation"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("creating result gauge: %w", err)
	}

	return nil
}

// reportHistory publishes the history gauges after a mutation.
func reportHistory(action string, m *history.Manager) {
	historyActions.WithLabelValues(action).Inc()
	historyEntries.Set(float64(m.Len()))
	undoDepth.Set(float64(m.UndoDepth()))
	redoDepth.Set(float64(m.RedoDepth()))
}

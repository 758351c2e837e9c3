package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecordError(t *testing.T) {
	tests := []struct {
		name   string
		op     string
		msg    string
		status int
		level  zapcore.Level
	}{
		{"client error logs a warning", "add", "invalid request body", http.StatusBadRequest, zap.WarnLevel},
		{"conflict logs a warning", "undo", "nothing to undo", http.StatusConflict, zap.WarnLevel},
		{"server error logs an error", "save", "history could not be saved", http.StatusInternalServerError, zap.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithRequestID(context.Background(), "req-1")
			core, logs := observer.New(zap.DebugLevel)

			reader := sdkmetric.NewManualReader()
			provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
			t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

			counter, err := provider.Meter("test").Int64Counter("test.errors.total")
			if err != nil {
				t.Fatalf("creating counter: %v", err)
			}

			w := httptest.NewRecorder()
			RecordError(ctx, trace.SpanFromContext(ctx), zap.New(core), counter, tt.op, tt.msg, errors.New("cause"), tt.status, w)

			resp := w.Result()
			if resp.StatusCode != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
				t.Fatalf("expected Content-Type application/json, got %q", ct)
			}

			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decoding response body: %v", err)
			}
			if got := body["error"]; got != tt.msg {
				t.Fatalf("expected error %q, got %q", tt.msg, got)
			}
			if _, ok := body["request_id"]; ok {
				t.Fatal("did not expect request_id field in JSON body")
			}

			entries := logs.All()
			if len(entries) != 1 {
				t.Fatalf("expected 1 log entry, got %d", len(entries))
			}
			if entries[0].Level != tt.level {
				t.Fatalf("expected level %s, got %s", tt.level, entries[0].Level)
			}
			fields := entries[0].ContextMap()
			if fields["request_id"] != "req-1" || fields["operation"] != tt.op || fields["status"] != int64(tt.status) {
				t.Fatalf("unexpected log fields: %v", fields)
			}

			var rm metricdata.ResourceMetrics
			if err := reader.Collect(context.Background(), &rm); err != nil {
				t.Fatalf("collecting metrics: %v", err)
			}
			point := onlyPoint(t, rm)
			if point.Value != 1 {
				t.Fatalf("expected counter value 1, got %d", point.Value)
			}
			if v, ok := point.Attributes.Value(attribute.Key("status")); !ok || v.AsInt64() != int64(tt.status) {
				t.Fatalf("expected status attribute %d, got %v", tt.status, v.Emit())
			}
			if v, ok := point.Attributes.Value(attribute.Key("operation")); !ok || v.AsString() != tt.op {
				t.Fatalf("expected operation attribute %q, got %v", tt.op, v.Emit())
			}
		})
	}
}

func onlyPoint(t *testing.T, rm metricdata.ResourceMetrics) metricdata.DataPoint[int64] {
	t.Helper()
	if len(rm.ScopeMetrics) != 1 || len(rm.ScopeMetrics[0].Metrics) != 1 {
		t.Fatalf("expected a single metric, got %+v", rm.ScopeMetrics)
	}
	sum, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected an int64 sum, got %T", rm.ScopeMetrics[0].Metrics[0].Data)
	}
	if len(sum.DataPoints) != 1 {
		t.Fatalf("expected 1 data point, got %d", len(sum.DataPoints))
	}
	return sum.DataPoints[0]
}

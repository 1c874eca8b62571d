package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("outcome", "success"),
		attribute.String("printer_id", "123"),
		attribute.String("order_number", "42"),
	)
	if len(attrs) != 1 {
		t.Fatalf("expected 1 attribute, got %d", len(attrs))
	}
	if attrs[0].Key != "outcome" {
		t.Fatalf("expected outcome to be retained, got %s", attrs[0].Key)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordDispatchJob(ctx, "success")
	m.RecordDispatchAttempt(ctx, "timeout")
	m.RecordUnassignedLines(ctx, 3)
	m.RecordProbe(ctx, "online", 0)
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "printfan"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m == nil {
		t.Fatal("expected metrics instance")
	}
	m.RecordDispatchJob(context.Background(), "success")
}

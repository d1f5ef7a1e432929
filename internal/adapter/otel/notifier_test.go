package otel_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	adapter "github.com/neomorfeo/roomlist/internal/adapter/otel"
	"github.com/neomorfeo/roomlist/internal/domain"
)

type mockNotifier struct {
	sent []domain.Notification
	err  error
}

func (m *mockNotifier) Notify(_ context.Context, n domain.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

func setupTestMeter(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader
}

var changes = domain.Notification{
	OwnerID: "owner-1",
	RoomID:  "r-1",
	Status:  domain.StatusNeedsChanges,
	Reason:  "thêm ảnh",
}

// countByOutcome sums the notification counter per outcome attribute.
func countByOutcome(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collecting metrics: %v", err)
	}
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "roomlist.notifications" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
				out[outcome.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestTracingNotifier_RecordsSpanAndCount(t *testing.T) {
	exporter := setupTestTracer(t)
	reader := setupTestMeter(t)
	inner := &mockNotifier{}

	n, err := adapter.NewTracingNotifier(inner)
	if err != nil {
		t.Fatalf("NewTracingNotifier: %v", err)
	}
	if err := n.Notify(context.Background(), changes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "Notifier.Notify" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "Notifier.Notify")
	}
	assertAttribute(t, spans[0], "room.status", "needs_changes")

	if len(inner.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(inner.sent))
	}
	if got := countByOutcome(t, reader); got["enqueued"] != 1 {
		t.Errorf("counter = %v, want enqueued=1", got)
	}
}

func TestTracingNotifier_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	reader := setupTestMeter(t)

	n, err := adapter.NewTracingNotifier(&mockNotifier{err: errors.New("queue full")})
	if err != nil {
		t.Fatalf("NewTracingNotifier: %v", err)
	}
	if err := n.Notify(context.Background(), changes); err == nil {
		t.Fatal("expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
	if got := countByOutcome(t, reader); got["failed"] != 1 {
		t.Errorf("counter = %v, want failed=1", got)
	}
}

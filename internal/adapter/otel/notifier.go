package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/roomlist/internal/domain"
)

// TracingNotifier wraps a domain.Notifier with a span and a counter of
// notifications by status and outcome.
type TracingNotifier struct {
	next    domain.Notifier
	tracer  trace.Tracer
	counter metric.Int64Counter
}

// Compile-time check: TracingNotifier implements domain.Notifier.
var _ domain.Notifier = (*TracingNotifier)(nil)

// NewTracingNotifier creates a tracing decorator around the given notifier.
func NewTracingNotifier(next domain.Notifier) (*TracingNotifier, error) {
	counter, err := otel.Meter(tracerName).Int64Counter("roomlist.notifications",
		metric.WithDescription("Moderation notifications handed to the queue."),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}
	return &TracingNotifier{
		next:    next,
		tracer:  otel.Tracer(tracerName),
		counter: counter,
	}, nil
}

func (n *TracingNotifier) Notify(ctx context.Context, note domain.Notification) error {
	ctx, span := n.tracer.Start(ctx, "Notifier.Notify",
		trace.WithAttributes(
			attribute.String("room.id", note.RoomID),
			attribute.String("room.owner_id", note.OwnerID),
			attribute.String("room.status", string(note.Status)),
		),
	)
	defer span.End()

	err := n.next.Notify(ctx, note)
	outcome := "enqueued"
	if err != nil {
		recordErr(span, err)
		outcome = "failed"
	}
	n.counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", string(note.Status)),
		attribute.String("outcome", outcome),
	))
	return err
}

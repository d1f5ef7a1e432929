package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/roomlist/internal/domain"
)

const tracerName = "github.com/neomorfeo/roomlist/internal/adapter/otel"

// TracingRepository wraps a domain.RoomRepository with OpenTelemetry tracing.
// Each method creates a span with room attributes and records errors.
type TracingRepository struct {
	next   domain.RoomRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.RoomRepository.
var _ domain.RoomRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.RoomRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) Create(ctx context.Context, room domain.Room) error {
	ctx, span := r.tracer.Start(ctx, "RoomRepository.Create",
		trace.WithAttributes(
			attribute.String("room.id", room.ID),
			attribute.String("room.owner_id", room.OwnerID),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, room)
	recordErr(span, err)
	return err
}

func (r *TracingRepository) GetByID(ctx context.Context, id string) (domain.Room, error) {
	ctx, span := r.tracer.Start(ctx, "RoomRepository.GetByID",
		trace.WithAttributes(attribute.String("room.id", id)),
	)
	defer span.End()

	room, err := r.next.GetByID(ctx, id)
	recordErr(span, err)
	return room, err
}

func (r *TracingRepository) Update(ctx context.Context, room domain.Room) (domain.Room, error) {
	ctx, span := r.tracer.Start(ctx, "RoomRepository.Update",
		trace.WithAttributes(
			attribute.String("room.id", room.ID),
			attribute.String("room.status", string(room.Status)),
			attribute.Int64("room.version", room.Version),
		),
	)
	defer span.End()

	saved, err := r.next.Update(ctx, room)
	recordErr(span, err)
	return saved, err
}

func (r *TracingRepository) Delete(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "RoomRepository.Delete",
		trace.WithAttributes(attribute.String("room.id", id)),
	)
	defer span.End()

	err := r.next.Delete(ctx, id)
	recordErr(span, err)
	return err
}

func (r *TracingRepository) IncrementCallCount(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "RoomRepository.IncrementCallCount",
		trace.WithAttributes(attribute.String("room.id", id)),
	)
	defer span.End()

	err := r.next.IncrementCallCount(ctx, id)
	recordErr(span, err)
	return err
}

func (r *TracingRepository) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Room, int, error) {
	ctx, span := r.tracer.Start(ctx, "RoomRepository.Search",
		trace.WithAttributes(
			attribute.Int("query.page", q.Page.Number),
			attribute.Int("query.limit", q.Page.Limit),
			attribute.Bool("query.geo", q.Geo != nil),
			attribute.String("query.sort", string(q.Sort.Field)),
		),
	)
	defer span.End()

	if len(q.Statuses) > 0 {
		statuses := make([]string, len(q.Statuses))
		for i, s := range q.Statuses {
			statuses[i] = string(s)
		}
		span.SetAttributes(attribute.StringSlice("query.statuses", statuses))
	}

	rooms, total, err := r.next.Search(ctx, q)
	if err != nil {
		recordErr(span, err)
	} else {
		span.SetAttributes(
			attribute.Int("result.count", len(rooms)),
			attribute.Int("result.total", total),
		)
	}
	return rooms, total, err
}

func recordErr(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

package redis

import (
	"context"
	"log/slog"

	"github.com/neomorfeo/roomlist/internal/domain"
)

// InvalidatingRepository drops cached discovery pages after every successful write.
type InvalidatingRepository struct {
	domain.RoomRepository
	cache  *CachingSearcher
	logger *slog.Logger
}

// NewInvalidatingRepository wraps next so that writes invalidate cache.
func NewInvalidatingRepository(next domain.RoomRepository, cache *CachingSearcher) *InvalidatingRepository {
	return &InvalidatingRepository{RoomRepository: next, cache: cache, logger: cache.logger}
}

func (r *InvalidatingRepository) Create(ctx context.Context, room domain.Room) error {
	if err := r.RoomRepository.Create(ctx, room); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *InvalidatingRepository) Update(ctx context.Context, room domain.Room) (domain.Room, error) {
	saved, err := r.RoomRepository.Update(ctx, room)
	if err != nil {
		return domain.Room{}, err
	}
	r.invalidate(ctx)
	return saved, nil
}

func (r *InvalidatingRepository) Delete(ctx context.Context, id string) error {
	if err := r.RoomRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

// invalidate only logs on failure; the TTL still bounds staleness.
func (r *InvalidatingRepository) invalidate(ctx context.Context) {
	if err := r.cache.Invalidate(ctx); err != nil {
		r.logger.WarnContext(ctx, "invalidating discovery cache", "error", err)
	}
}

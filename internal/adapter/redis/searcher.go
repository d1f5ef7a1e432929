package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neomorfeo/roomlist/internal/domain"
)

const (
	keyPrefix     = "roomlist:search:"
	generationKey = keyPrefix + "generation"
	// DefaultTTL bounds how stale a cached discovery page may be.
	DefaultTTL = 30 * time.Second
)

type cachedPage struct {
	Rooms []domain.Room `json:"rooms"`
	Total int           `json:"total"`
}

// CachingSearcher serves repeated discovery queries from Redis. Entries are keyed by
// the current generation, so Invalidate makes every cached page unreachable at once.
// Cache failures never fail a search; they are logged and the query goes to next.
type CachingSearcher struct {
	next   domain.RoomSearcher
	kv     KV
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachingSearcher wraps next. A non-positive ttl uses DefaultTTL.
func NewCachingSearcher(next domain.RoomSearcher, kv KV, ttl time.Duration, logger *slog.Logger) *CachingSearcher {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingSearcher{next: next, kv: kv, ttl: ttl, logger: logger}
}

func (c *CachingSearcher) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Room, int, error) {
	key, err := c.key(ctx, q)
	if err != nil {
		c.logger.WarnContext(ctx, "discovery cache unavailable", "error", err)
		return c.next.Search(ctx, q)
	}

	if raw, err := c.kv.Get(ctx, key); err == nil {
		var page cachedPage
		if err := json.Unmarshal([]byte(raw), &page); err == nil {
			return page.Rooms, page.Total, nil
		}
		c.logger.WarnContext(ctx, "discarding corrupt cache entry", "key", key)
	} else if !errors.Is(err, ErrMiss) {
		c.logger.WarnContext(ctx, "reading discovery cache", "error", err)
	}

	rooms, total, err := c.next.Search(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	raw, err := json.Marshal(cachedPage{Rooms: rooms, Total: total})
	if err == nil {
		err = c.kv.Set(ctx, key, string(raw), c.ttl)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "writing discovery cache", "error", err)
	}
	return rooms, total, nil
}

// Invalidate moves the cache to a new generation.
func (c *CachingSearcher) Invalidate(ctx context.Context) error {
	if _, err := c.kv.Incr(ctx, generationKey); err != nil {
		return fmt.Errorf("bumping cache generation: %w", err)
	}
	return nil
}

func (c *CachingSearcher) key(ctx context.Context, q domain.SearchQuery) (string, error) {
	gen, err := c.kv.Get(ctx, generationKey)
	switch {
	case errors.Is(err, ErrMiss):
		gen = "0"
	case err != nil:
		return "", err
	}
	raw, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("encoding query: %w", err)
	}
	sum := sha256.Sum256(raw)
	return keyPrefix + gen + ":" + hex.EncodeToString(sum[:]), nil
}

package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/pitchfeed/internal/metrics"
	"github.com/anonto42/pitchfeed/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const (
	feedCachePrefix = "feed:page:"
	invalidateBatch = 100
)

// CachedPostRepository serves feed windows from Redis and falls through to the
// wrapped repository on a miss or a cache failure. New posts shift every
// window, so creation drops all cached pages; boost counts are allowed to be
// stale for one TTL.
type CachedPostRepository struct {
	PostRepository
	client  *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewCachedPostRepository wraps inner with a Redis page cache
func NewCachedPostRepository(inner PostRepository, client *redis.Client, ttl time.Duration, m *metrics.Metrics, log zerolog.Logger) *CachedPostRepository {
	return &CachedPostRepository{
		PostRepository: inner,
		client:         client,
		ttl:            ttl,
		metrics:        m,
		log:            log,
	}
}

func feedCacheKey(offset, limit int64) string {
	return fmt.Sprintf("%s%d:%d", feedCachePrefix, offset, limit)
}

// ListFeed returns the cached window if present
func (r *CachedPostRepository) ListFeed(ctx context.Context, offset, limit int64) ([]models.Post, error) {
	key := feedCacheKey(offset, limit)

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var posts []models.Post
		jsonErr := json.Unmarshal(raw, &posts)
		if jsonErr == nil {
			r.metrics.FeedPageServed(metrics.SourceCache)
			return posts, nil
		}
		r.log.Warn().Err(jsonErr).Str("key", key).Msg("Discarding undecodable feed cache entry")
	case errors.Is(err, redis.Nil):
		// miss
	default:
		r.metrics.CacheError()
		r.log.Warn().Err(err).Str("key", key).Msg("Feed cache read failed")
	}

	posts, err := r.PostRepository.ListFeed(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	r.metrics.FeedPageServed(metrics.SourceStore)

	if r.ttl > 0 {
		if buf, err := json.Marshal(posts); err == nil {
			if err := r.client.Set(ctx, key, buf, r.ttl).Err(); err != nil {
				r.metrics.CacheError()
				r.log.Warn().Err(err).Str("key", key).Msg("Feed cache write failed")
			}
		}
	}
	return posts, nil
}

// CreatePost stores the post and invalidates every cached feed window
func (r *CachedPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if err := r.PostRepository.CreatePost(ctx, post); err != nil {
		return err
	}
	if err := r.Invalidate(ctx); err != nil {
		r.metrics.CacheError()
		r.log.Warn().Err(err).Msg("Feed cache invalidation failed")
	}
	return nil
}

// Invalidate drops all cached feed windows. Keys are walked with SCAN in
// batches so Redis is never blocked on a full keyspace walk.
func (r *CachedPostRepository) Invalidate(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, feedCachePrefix+"*", invalidateBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

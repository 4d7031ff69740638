// Package devotional exposes the one domain read the notification policy
// needs: whether a user already posted a devotional for their group today.
package devotional

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// A confirmed post holds for the rest of the day; a miss is cached only
// briefly so a fresh post flips the answer quickly.
const negativeCacheTTL = 30 * time.Second

// Reader answers the "posted today" question, with an optional Redis
// cache in front of the Postgres read so the foreground-delivery hook
// stays fast. The cache is nil-safe: without Redis every call hits
// Postgres.
type Reader struct {
	pool   *pgxpool.Pool
	rdb    *redis.Client
	logger *slog.Logger
}

// NewReader creates a reader. rdb may be nil.
func NewReader(pool *pgxpool.Pool, rdb *redis.Client, logger *slog.Logger) *Reader {
	return &Reader{pool: pool, rdb: rdb, logger: logger}
}

// HasPostedToday reports whether the user posted a devotional in the group
// on the given day.
func (r *Reader) HasPostedToday(ctx context.Context, userID, groupID string, day time.Time) (bool, error) {
	date := day.Format("2006-01-02")
	key := fmt.Sprintf("devotional:posted:%s:%s:%s", groupID, userID, date)

	if cached, ok := r.cacheGet(ctx, key); ok {
		return cached, nil
	}

	var posted bool
	err := r.pool.QueryRow(ctx, "devotional_posted_today", userID, groupID, date).Scan(&posted)
	if err != nil {
		return false, fmt.Errorf("devotional posted check: %w", err)
	}

	r.cacheSet(ctx, key, posted, day)
	return posted, nil
}

func (r *Reader) cacheGet(ctx context.Context, key string) (bool, bool) {
	if r.rdb == nil {
		return false, false
	}
	val, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, false
	}
	if err != nil {
		r.logger.Warn("Devotional cache read failed", "key", key, "error", err)
		return false, false
	}
	return val == "1", true
}

func (r *Reader) cacheSet(ctx context.Context, key string, posted bool, day time.Time) {
	if r.rdb == nil {
		return
	}

	val, ttl := "0", negativeCacheTTL
	if posted {
		val = "1"
		// Keep until local midnight — the day's answer cannot revert.
		midnight := time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, day.Location())
		ttl = time.Until(midnight)
		if ttl <= 0 {
			ttl = negativeCacheTTL
		}
	}

	if err := r.rdb.Set(ctx, key, val, ttl).Err(); err != nil {
		r.logger.Warn("Devotional cache write failed", "key", key, "error", err)
	}
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// Queue is the subset of the Redis client used by the persistence workers.
type Queue interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// batcher drains a Redis list into batches of T and hands them to flush.
// flush returns the items that must be retried; they are pushed back onto
// the list.
type batcher[T any] struct {
	rdb   Queue
	key   string
	log   zerolog.Logger
	flush func(ctx context.Context, batch []T) []T

	size         int
	timeout      time.Duration
	poll         time.Duration
	backoff      time.Duration
	drainTimeout time.Duration
}

func newBatcher[T any](rdb Queue, key string, log zerolog.Logger, flush func(context.Context, []T) []T) *batcher[T] {
	return &batcher[T]{
		rdb:          rdb,
		key:          key,
		log:          log,
		flush:        flush,
		size:         BatchSize,
		timeout:      BatchTimeout,
		poll:         PollTimeout,
		backoff:      2 * time.Second,
		drainTimeout: 5 * time.Second,
	}
}

func (b *batcher[T]) run(ctx context.Context) {
	buffer := make([]T, 0, b.size)
	lastFlush := time.Now()

	for {
		// 1. Graceful shutdown.
		select {
		case <-ctx.Done():
			b.shutdown(buffer)
			return
		default:
		}

		// 2. Flush on size or age.
		if len(buffer) > 0 && (len(buffer) >= b.size || time.Since(lastFlush) >= b.timeout) {
			b.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		// 3. Fetch. BLPop returns immediately if data exists.
		result, err := b.rdb.BLPop(ctx, b.poll, b.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			b.log.Error().Err(err).Msg("Redis connection error, backing off")
			b.sleep(ctx, b.backoff)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var item T
		if err := json.Unmarshal([]byte(result[1]), &item); err != nil {
			// Malformed JSON can never succeed. Log and discard.
			b.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}
		buffer = append(buffer, item)
	}
}

func (b *batcher[T]) flushSafe(ctx context.Context, batch []T) {
	if len(batch) == 0 {
		return
	}
	if failed := b.flush(ctx, batch); len(failed) > 0 {
		b.requeue(ctx, failed)
	}
}

func (b *batcher[T]) requeue(ctx context.Context, items []T) {
	values := make([]interface{}, 0, len(items))
	for _, it := range items {
		data, err := json.Marshal(it)
		if err != nil {
			continue
		}
		values = append(values, data)
	}
	if len(values) == 0 {
		return
	}

	// The shutdown context may already be cancelled; requeue must still land.
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := b.rdb.RPush(pushCtx, b.key, values...).Err(); err != nil {
		b.log.Error().Err(err).Int("count", len(values)).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}
	b.log.Info().Int("count", len(values)).Msg("Requeued failed items back to Redis")
	// Avoid thrashing while the database is down.
	b.sleep(ctx, b.backoff)
}

func (b *batcher[T]) shutdown(buffer []T) {
	b.log.Info().Int("pending", len(buffer)).Msg("Worker stopping, flushing remaining buffer...")
	ctx, cancel := context.WithTimeout(context.Background(), b.drainTimeout)
	defer cancel()
	b.flushSafe(ctx, buffer)
}

func (b *batcher[T]) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

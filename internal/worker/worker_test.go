package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memQueue is an in-memory stand-in for a Redis list.
type memQueue struct {
	mu    sync.Mutex
	lists map[string][]string
}

func newMemQueue() *memQueue { return &memQueue{lists: map[string][]string{}} }

func (q *memQueue) push(t *testing.T, key string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lists[key] = append(q.lists[key], string(data))
}

func (q *memQueue) len(key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lists[key])
}

func (q *memQueue) BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	q.mu.Lock()
	for _, k := range keys {
		if l := q.lists[k]; len(l) > 0 {
			q.lists[k] = l[1:]
			q.mu.Unlock()
			return redis.NewStringSliceResult([]string{k, l[0]}, nil)
		}
	}
	q.mu.Unlock()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-t.C:
		return redis.NewStringSliceResult(nil, redis.Nil)
	case <-ctx.Done():
		return redis.NewStringSliceResult(nil, ctx.Err())
	}
}

func (q *memQueue) RPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, v := range values {
		switch b := v.(type) {
		case []byte:
			q.lists[key] = append(q.lists[key], string(b))
		case string:
			q.lists[key] = append(q.lists[key], b)
		}
	}
	return redis.NewIntResult(int64(len(q.lists[key])), nil)
}

type memResults struct {
	mu        sync.Mutex
	batchErr  error
	singleErr error
	batches   [][]model.ExamResult
	singles   []model.ExamResult
}

func (s *memResults) InsertBatch(_ context.Context, batch []model.ExamResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batchErr != nil {
		return s.batchErr
	}
	s.batches = append(s.batches, append([]model.ExamResult(nil), batch...))
	return nil
}

func (s *memResults) Insert(_ context.Context, res model.ExamResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.singleErr != nil {
		return s.singleErr
	}
	s.singles = append(s.singles, res)
	return nil
}

func (s *memResults) stored() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.singles)
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func fastResultWorker(store ResultStore, q Queue) *ResultWorker {
	w := NewResultWorker(store, q, zerolog.Nop())
	w.b.size = 2
	w.b.timeout = 20 * time.Millisecond
	w.b.poll = 5 * time.Millisecond
	w.b.backoff = time.Millisecond
	return w
}

func runUntil(t *testing.T, start func(context.Context), cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		start(ctx)
	}()
	assert.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestResultWorkerBatches(t *testing.T) {
	q := newMemQueue()
	for i := 0; i < 5; i++ {
		q.push(t, config.WorkerKey.PersistResultsQueue, model.ExamResult{SessionID: uuid.New(), CorrectCount: i})
	}
	store := &memResults{}
	w := fastResultWorker(store, q)

	runUntil(t, w.Start, func() bool { return store.stored() == 5 })

	store.mu.Lock()
	defer store.mu.Unlock()
	for _, b := range store.batches {
		assert.LessOrEqual(t, len(b), 2)
	}
	assert.Empty(t, store.singles)
	assert.Zero(t, q.len(config.WorkerKey.PersistResultsQueue))
}

func TestResultWorkerFallsBackRowByRow(t *testing.T) {
	q := newMemQueue()
	q.push(t, config.WorkerKey.PersistResultsQueue, model.ExamResult{SessionID: uuid.New()})
	store := &memResults{batchErr: errors.New("deadlock detected")}
	w := fastResultWorker(store, q)

	runUntil(t, w.Start, func() bool { return store.stored() == 1 })

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.singles, 1)
}

func TestResultWorkerRequeuesOnShutdown(t *testing.T) {
	q := newMemQueue()
	store := &memResults{batchErr: errors.New("db down"), singleErr: errors.New("db down")}
	w := fastResultWorker(store, q)
	w.b.size = 100
	w.b.timeout = time.Hour

	q.push(t, config.WorkerKey.PersistResultsQueue, model.ExamResult{SessionID: uuid.New()})
	runUntil(t, w.Start, func() bool { return q.len(config.WorkerKey.PersistResultsQueue) == 0 })

	// The buffered item failed to flush during shutdown and went back on the list.
	assert.Equal(t, 1, q.len(config.WorkerKey.PersistResultsQueue))
}

func TestBatcherDiscardsMalformedJSON(t *testing.T) {
	q := newMemQueue()
	q.mu.Lock()
	q.lists[config.WorkerKey.PersistResultsQueue] = []string{"{not json"}
	q.mu.Unlock()
	store := &memResults{}
	w := fastResultWorker(store, q)

	runUntil(t, w.Start, func() bool { return q.len(config.WorkerKey.PersistResultsQueue) == 0 })
	assert.Zero(t, store.stored())
}

type memViolations struct {
	mu      sync.Mutex
	copyErr error
	copied  []model.Violation
	singles []model.Violation
}

func (s *memViolations) CopyBatch(_ context.Context, batch []model.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.copyErr != nil {
		return s.copyErr
	}
	s.copied = append(s.copied, batch...)
	return nil
}

func (s *memViolations) Insert(_ context.Context, v model.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.singles = append(s.singles, v)
	return nil
}

func TestViolationWorkerFlush(t *testing.T) {
	store := &memViolations{}
	w := NewViolationWorker(store, newMemQueue(), zerolog.Nop())

	failed := w.flush(context.Background(), []model.Violation{
		{SessionID: uuid.New(), Kind: model.ViolationKindHard, Reason: "Attempted to print the exam"},
		{Kind: model.ViolationKindHard, Reason: "orphan"},
	})
	assert.Empty(t, failed)
	require.Len(t, store.copied, 1)
	assert.Equal(t, "Attempted to print the exam", store.copied[0].Reason)

	store.copyErr = errors.New("copy failed")
	failed = w.flush(context.Background(), []model.Violation{{SessionID: uuid.New(), Reason: "x"}})
	assert.Empty(t, failed)
	assert.Len(t, store.singles, 1)
}

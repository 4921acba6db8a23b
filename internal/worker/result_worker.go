package worker

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// ResultStore is the persistence side of the result worker.
type ResultStore interface {
	InsertBatch(ctx context.Context, batch []model.ExamResult) error
	Insert(ctx context.Context, res model.ExamResult) error
}

// ResultWorker moves queued exam results into PostgreSQL.
type ResultWorker struct {
	store ResultStore
	log   zerolog.Logger
	b     *batcher[model.ExamResult]
}

func NewResultWorker(store ResultStore, rdb Queue, log zerolog.Logger) *ResultWorker {
	w := &ResultWorker{
		store: store,
		log:   log.With().Str("component", "result_worker").Logger(),
	}
	w.b = newBatcher(rdb, config.WorkerKey.PersistResultsQueue, w.log, w.flush)
	return w
}

// Start blocks until ctx is cancelled, then flushes what it holds.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")
	w.b.run(ctx)
}

func (w *ResultWorker) flush(ctx context.Context, batch []model.ExamResult) []model.ExamResult {
	err := w.store.InsertBatch(ctx, batch)
	if err == nil {
		w.log.Debug().Int("count", len(batch)).Msg("Results persisted")
		return nil
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk result insert failed, attempting row-by-row recovery")

	var failed []model.ExamResult
	for _, res := range batch {
		if err := w.store.Insert(ctx, res); err != nil {
			w.log.Error().Err(err).Str("session_id", res.SessionID.String()).Msg("Insert failed, requeueing")
			failed = append(failed, res)
		}
	}
	return failed
}

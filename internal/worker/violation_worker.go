package worker

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// ViolationStore is the persistence side of the violation worker.
type ViolationStore interface {
	CopyBatch(ctx context.Context, batch []model.Violation) error
	Insert(ctx context.Context, v model.Violation) error
}

// ViolationWorker moves queued audit entries into PostgreSQL.
type ViolationWorker struct {
	store ViolationStore
	log   zerolog.Logger
	b     *batcher[model.Violation]
}

func NewViolationWorker(store ViolationStore, rdb Queue, log zerolog.Logger) *ViolationWorker {
	w := &ViolationWorker{
		store: store,
		log:   log.With().Str("component", "violation_worker").Logger(),
	}
	w.b = newBatcher(rdb, config.WorkerKey.PersistViolationsQueue, w.log, w.flush)
	return w
}

// Start blocks until ctx is cancelled, then flushes what it holds.
func (w *ViolationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ViolationWorker started")
	w.b.run(ctx)
}

func (w *ViolationWorker) flush(ctx context.Context, batch []model.Violation) []model.Violation {
	valid := make([]model.Violation, 0, len(batch))
	for _, v := range batch {
		if v.SessionID == uuid.Nil {
			w.log.Error().Str("reason", v.Reason).Msg("Dropping violation without session id")
			continue
		}
		valid = append(valid, v)
	}
	if len(valid) == 0 {
		return nil
	}

	err := w.store.CopyBatch(ctx, valid)
	if err == nil {
		return nil
	}
	w.log.Warn().Err(err).Int("count", len(valid)).Msg("Bulk violation copy failed, attempting row-by-row recovery")

	var failed []model.Violation
	for _, v := range valid {
		if err := w.store.Insert(ctx, v); err != nil {
			w.log.Error().Err(err).Str("session_id", v.SessionID.String()).Msg("Insert failed, requeueing")
			failed = append(failed, v)
		}
	}
	return failed
}

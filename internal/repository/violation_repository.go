package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// ViolationRepository writes the proctoring audit log.
type ViolationRepository struct {
	pool *pgxpool.Pool
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(pool *pgxpool.Pool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

// CopyBatch bulk loads violations with the COPY protocol.
func (r *ViolationRepository) CopyBatch(ctx context.Context, batch []model.Violation) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, v := range batch {
		rows = append(rows, []interface{}{
			v.SessionID, v.CandidateName, v.CandidateID, string(v.Kind), v.Reason, v.RecordedAt,
		})
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"exam_violations"},
		[]string{"session_id", "candidate_name", "candidate_id", "kind", "reason", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// Insert writes a single violation. Used as the fallback path.
func (r *ViolationRepository) Insert(ctx context.Context, v model.Violation) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exam_violations (session_id, candidate_name, candidate_id, kind, reason, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		v.SessionID, v.CandidateName, v.CandidateID, string(v.Kind), v.Reason, v.RecordedAt,
	)
	return err
}

// ListBySession returns the audit trail of one session in order.
func (r *ViolationRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Violation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, candidate_name, candidate_id, kind, reason, recorded_at
		 FROM exam_violations WHERE session_id = $1
		 ORDER BY recorded_at, id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Violation
	for rows.Next() {
		var v model.Violation
		var kind string
		if err := rows.Scan(&v.SessionID, &v.CandidateName, &v.CandidateID, &kind, &v.Reason, &v.RecordedAt); err != nil {
			return nil, err
		}
		v.Kind = model.ViolationKind(kind)
		out = append(out, v)
	}
	return out, rows.Err()
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// ResultRepository writes final exam scores.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// InsertBatch writes many results in one statement using UNNEST.
// Rows whose session_id already exists are skipped.
func (r *ResultRepository) InsertBatch(ctx context.Context, batch []model.ExamResult) error {
	n := len(batch)
	if n == 0 {
		return nil
	}

	sessionIDs := make([]uuid.UUID, n)
	names := make([]string, n)
	candidateIDs := make([]string, n)
	correct := make([]int32, n)
	totals := make([]int32, n)
	answered := make([]int32, n)
	percentages := make([]float64, n)
	passed := make([]bool, n)
	auto := make([]bool, n)
	spent := make([]int32, n)
	completedAts := make([]time.Time, n)

	for i, res := range batch {
		sessionIDs[i] = res.SessionID
		names[i] = res.CandidateName
		candidateIDs[i] = res.CandidateID
		correct[i] = int32(res.CorrectCount)
		totals[i] = int32(res.TotalQuestions)
		answered[i] = int32(res.AnsweredCount)
		percentages[i] = res.Percentage
		passed[i] = res.Passed
		auto[i] = res.AutoSubmitted
		spent[i] = int32(res.TimeSpentSeconds)
		completedAts[i] = res.CompletedAt
	}

	query := `
		INSERT INTO exam_results (
			session_id, candidate_name, candidate_id, correct_count, total_questions,
			answered_count, percentage, passed, auto_submitted, time_spent_seconds, completed_at
		)
		SELECT * FROM UNNEST(
			$1::uuid[],
			$2::text[],
			$3::text[],
			$4::int[],
			$5::int[],
			$6::int[],
			$7::float8[],
			$8::bool[],
			$9::bool[],
			$10::int[],
			$11::timestamptz[]
		)
		ON CONFLICT (session_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		sessionIDs, names, candidateIDs, correct, totals,
		answered, percentages, passed, auto, spent, completedAts,
	)
	return err
}

// Insert writes a single result. Used as the fallback path.
func (r *ResultRepository) Insert(ctx context.Context, res model.ExamResult) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exam_results (
			session_id, candidate_name, candidate_id, correct_count, total_questions,
			answered_count, percentage, passed, auto_submitted, time_spent_seconds, completed_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (session_id) DO NOTHING`,
		res.SessionID, res.CandidateName, res.CandidateID, res.CorrectCount, res.TotalQuestions,
		res.AnsweredCount, res.Percentage, res.Passed, res.AutoSubmitted, res.TimeSpentSeconds, res.CompletedAt,
	)
	return err
}

// GetBySession returns the stored result for a session.
func (r *ResultRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.ExamResult, error) {
	var res model.ExamResult
	err := r.pool.QueryRow(ctx,
		`SELECT session_id, candidate_name, candidate_id, correct_count, total_questions,
		        answered_count, percentage::float8, passed, auto_submitted, time_spent_seconds, completed_at
		 FROM exam_results WHERE session_id = $1`, sessionID,
	).Scan(&res.SessionID, &res.CandidateName, &res.CandidateID, &res.CorrectCount, &res.TotalQuestions,
		&res.AnsweredCount, &res.Percentage, &res.Passed, &res.AutoSubmitted, &res.TimeSpentSeconds, &res.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

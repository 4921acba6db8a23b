package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByBank retrieves all questions for a bank, ordered by order_num.
func (r *QuestionRepository) ListByBank(ctx context.Context, bank string) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, bank, question_text, options, correct_option, order_num
		 FROM questions WHERE bank = $1
		 ORDER BY order_num`, bank,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Bank, &q.QuestionText, &q.Options, &q.CorrectOption, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Upsert inserts a question or replaces the one at the same bank position.
func (r *QuestionRepository) Upsert(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (bank, question_text, options, correct_option, order_num)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (bank, order_num) DO UPDATE
		 SET question_text = EXCLUDED.question_text,
		     options = EXCLUDED.options,
		     correct_option = EXCLUDED.correct_option
		 RETURNING id`,
		q.Bank, q.QuestionText, q.Options, q.CorrectOption, q.OrderNum,
	).Scan(&q.ID)
}

// DeleteBank removes every question in a bank. Returns the number deleted.
func (r *QuestionRepository) DeleteBank(ctx context.Context, bank string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE bank = $1`, bank)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

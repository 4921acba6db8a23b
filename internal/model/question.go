package model

import (
	"github.com/google/uuid"
)

// OptionsPerQuestion is the fixed number of choices on every question.
const OptionsPerQuestion = 4

// Question represents a single multiple-choice question in a bank.
type Question struct {
	ID            uuid.UUID `json:"id"`
	Bank          string    `json:"bank"`
	QuestionText  string    `json:"question_text"`
	Options       []string  `json:"options"`
	CorrectOption int       `json:"correct_option"`
	OrderNum      int       `json:"order_num"`
}

// QuestionForCandidate is a question without the correct answer, sent to candidates.
type QuestionForCandidate struct {
	ID           uuid.UUID `json:"id"`
	QuestionText string    `json:"question_text"`
	Options      []string  `json:"options"`
	OrderNum     int       `json:"order_num"`
}

// Paper is the candidate-facing exam payload.
type Paper struct {
	Bank            string                 `json:"bank"`
	DurationSeconds int                    `json:"duration_seconds"`
	GraceSeconds    int                    `json:"grace_seconds"`
	Questions       []QuestionForCandidate `json:"questions"`
}

// ForCandidate strips the answer from a question list.
func ForCandidate(questions []Question) []QuestionForCandidate {
	out := make([]QuestionForCandidate, len(questions))
	for i, q := range questions {
		out[i] = QuestionForCandidate{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Options:      q.Options,
			OrderNum:     q.OrderNum,
		}
	}
	return out
}

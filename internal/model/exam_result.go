package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamResult is the durable score record written once per submitted session.
type ExamResult struct {
	SessionID        uuid.UUID `json:"session_id"`
	CandidateName    string    `json:"candidate_name"`
	CandidateID      string    `json:"candidate_id"`
	CorrectCount     int       `json:"correct_count"`
	TotalQuestions   int       `json:"total_questions"`
	AnsweredCount    int       `json:"answered_count"`
	Percentage       float64   `json:"percentage"`
	Passed           bool      `json:"passed"`
	AutoSubmitted    bool      `json:"auto_submitted"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	CompletedAt      time.Time `json:"completed_at"`
}

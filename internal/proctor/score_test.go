package proctor

import (
	"testing"

	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stretchr/testify/assert"
)

func questionsWithKey(key ...int) []model.Question {
	qs := make([]model.Question, len(key))
	for i, k := range key {
		qs[i] = model.Question{
			QuestionText:  "q",
			Options:       []string{"a", "b", "c", "d"},
			CorrectOption: k,
			OrderNum:      i + 1,
		}
	}
	return qs
}

func TestGrade(t *testing.T) {
	qs := questionsWithKey(1, 2, 3, 0, 1, 2, 3, 0, 1, 2)
	answers := Ledger{1, 2, 3, 0, 1, 2, 3, 0, 1, 0}

	s := Grade(answers, qs)
	assert.Equal(t, 9, s.CorrectCount)
	assert.Equal(t, 10, s.Total)
	assert.Equal(t, "90.00", s.Display())
	assert.InDelta(t, 90.0, s.Rounded(), 1e-9)
}

func TestGradeUnansweredScoresZero(t *testing.T) {
	qs := questionsWithKey(0, 0, 0)
	s := Grade(Ledger{Unanswered, 0, Unanswered}, qs)
	assert.Equal(t, 1, s.CorrectCount)
	assert.Equal(t, "33.33", s.Display())
	assert.InDelta(t, 33.33, s.Rounded(), 1e-9)
}

func TestGradeShortLedger(t *testing.T) {
	s := Grade(Ledger{0}, questionsWithKey(0, 0))
	assert.Equal(t, 1, s.CorrectCount)
	assert.Equal(t, 2, s.Total)
}

func TestGradeEmpty(t *testing.T) {
	s := Grade(nil, nil)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.Percentage)
	assert.Equal(t, "0.00", s.Display())
}

func TestPassedUsesUnroundedPercentage(t *testing.T) {
	s := Grade(Ledger{0, Unanswered, Unanswered}, questionsWithKey(0, 0, 0))
	// 33.333...% rounds to 33.33 for display.
	assert.True(t, s.Passed(33.333))
	assert.False(t, s.Passed(33.334))
	assert.True(t, Score{Percentage: 40}.Passed(40))
}

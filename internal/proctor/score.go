package proctor

import (
	"math"
	"strconv"

	"github.com/stemsi/exstem-proctor/internal/model"
)

// Score is the outcome of grading a ledger against the answer key.
type Score struct {
	CorrectCount int
	Total        int
	// Percentage is unrounded. Use Rounded or Display for presentation.
	Percentage float64
}

// Grade counts exact matches between answers and the answer key.
// Unanswered slots and slots past the end of answers score zero.
func Grade(answers Ledger, questions []model.Question) Score {
	s := Score{Total: len(questions)}
	for i, q := range questions {
		if i < len(answers) && answers[i] != Unanswered && answers[i] == q.CorrectOption {
			s.CorrectCount++
		}
	}
	if s.Total > 0 {
		s.Percentage = float64(s.CorrectCount) / float64(s.Total) * 100
	}
	return s
}

// Rounded returns the percentage rounded to two decimals.
func (s Score) Rounded() float64 {
	return math.Round(s.Percentage*100) / 100
}

// Display formats the percentage with exactly two decimals.
func (s Score) Display() string {
	return strconv.FormatFloat(s.Percentage, 'f', 2, 64)
}

// Passed compares the unrounded percentage against threshold.
func (s Score) Passed(threshold float64) bool {
	return s.Percentage >= threshold
}

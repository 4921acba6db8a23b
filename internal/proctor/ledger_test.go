package proctor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerSelect(t *testing.T) {
	l := NewLedger(3)
	assert.Equal(t, 3, l.UnansweredCount())

	require.NoError(t, l.Select(0, 2, 4))
	require.NoError(t, l.Select(0, 1, 4))
	opt, ok := l.Answered(0)
	assert.True(t, ok)
	assert.Equal(t, 1, opt, "later selection replaces earlier one")
	assert.Equal(t, 2, l.UnansweredCount())
	assert.Equal(t, 1, l.AnsweredCount())
}

func TestLedgerSelectBounds(t *testing.T) {
	tests := []struct {
		name     string
		question int
		option   int
		want     error
	}{
		{"negative question", -1, 0, ErrQuestionOutOfRange},
		{"question past end", 3, 0, ErrQuestionOutOfRange},
		{"negative option", 0, -1, ErrOptionOutOfRange},
		{"option past end", 0, 4, ErrOptionOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger(3)
			assert.ErrorIs(t, l.Select(tt.question, tt.option, 4), tt.want)
			assert.Equal(t, 3, l.UnansweredCount(), "rejected write must not change the ledger")
		})
	}
}

func TestLedgerClone(t *testing.T) {
	l := NewLedger(2)
	c := l.Clone()
	require.NoError(t, c.Select(1, 3, 4))
	_, ok := l.Answered(1)
	assert.False(t, ok)
}

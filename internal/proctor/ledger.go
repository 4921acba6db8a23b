package proctor

import "errors"

// Unanswered marks a ledger slot with no selection.
const Unanswered = -1

var (
	ErrNotActive          = errors.New("session is not active")
	ErrSessionClosed      = errors.New("session is closed")
	ErrQuestionOutOfRange = errors.New("question index out of range")
	ErrOptionOutOfRange   = errors.New("option index out of range")
	ErrNoPendingSubmit    = errors.New("no submission awaiting confirmation")
)

// Ledger holds one selected option index per question, or Unanswered.
type Ledger []int

// NewLedger returns a ledger with every question unanswered.
func NewLedger(questions int) Ledger {
	l := make(Ledger, questions)
	for i := range l {
		l[i] = Unanswered
	}
	return l
}

// Select records option for question, replacing any prior choice.
func (l Ledger) Select(question, option, options int) error {
	if question < 0 || question >= len(l) {
		return ErrQuestionOutOfRange
	}
	if option < 0 || option >= options {
		return ErrOptionOutOfRange
	}
	l[question] = option
	return nil
}

// Answered returns the selection for question, if any.
func (l Ledger) Answered(question int) (int, bool) {
	if question < 0 || question >= len(l) || l[question] == Unanswered {
		return Unanswered, false
	}
	return l[question], true
}

// UnansweredCount returns how many questions have no selection.
func (l Ledger) UnansweredCount() int {
	n := 0
	for _, v := range l {
		if v == Unanswered {
			n++
		}
	}
	return n
}

// AnsweredCount returns how many questions have a selection.
func (l Ledger) AnsweredCount() int { return len(l) - l.UnansweredCount() }

func (l Ledger) Clone() Ledger {
	if l == nil {
		return nil
	}
	out := make(Ledger, len(l))
	copy(out, l)
	return out
}

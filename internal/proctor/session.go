package proctor

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// ExamSession is the authoritative record of one candidate's attempt.
// Values are treated as immutable by Machine; Reduce returns a new copy.
type ExamSession struct {
	ID        uuid.UUID
	Candidate model.Candidate
	State     State

	StartedAt *time.Time
	Deadline  *time.Time
	EndedAt   *time.Time

	Answers         Ledger
	CurrentQuestion int

	// EliminationReason is set iff State is StateEliminated.
	EliminationReason string
	// GraceDeadline is set iff State is StateGracePeriod.
	GraceDeadline *time.Time

	AwaitingConfirmation bool
	AutoSubmitted        bool
}

// NewExamSession returns a NotStarted session with an empty ledger.
func NewExamSession(id uuid.UUID, candidate model.Candidate, questions int) ExamSession {
	return ExamSession{
		ID:        id,
		Candidate: candidate,
		State:     StateNotStarted,
		Answers:   NewLedger(questions),
	}
}

// Clone returns a deep copy.
func (s ExamSession) Clone() ExamSession {
	out := s
	out.Answers = s.Answers.Clone()
	out.StartedAt = cloneTime(s.StartedAt)
	out.Deadline = cloneTime(s.Deadline)
	out.EndedAt = cloneTime(s.EndedAt)
	out.GraceDeadline = cloneTime(s.GraceDeadline)
	return out
}

// Remaining returns the exam time left at now, floored at zero.
func (s ExamSession) Remaining(now time.Time) time.Duration {
	if s.Deadline == nil || s.State.Terminal() {
		return 0
	}
	if d := s.Deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

// TimeSpent returns elapsed exam time, capped at limit.
func (s ExamSession) TimeSpent(limit time.Duration) time.Duration {
	if s.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	d := end.Sub(*s.StartedAt)
	if d < 0 {
		return 0
	}
	if limit > 0 && d > limit {
		return limit
	}
	return d
}

// Snapshot is the read-only view served to clients.
type Snapshot struct {
	SessionID            uuid.UUID       `json:"session_id"`
	Candidate            model.Candidate `json:"candidate"`
	State                State           `json:"state"`
	StartedAt            *time.Time      `json:"started_at,omitempty"`
	Deadline             *time.Time      `json:"deadline,omitempty"`
	EndedAt              *time.Time      `json:"ended_at,omitempty"`
	RemainingSeconds     int             `json:"remaining_seconds"`
	Answers              []int           `json:"answers"`
	Unanswered           int             `json:"unanswered"`
	CurrentQuestion      int             `json:"current_question"`
	EliminationReason    string          `json:"elimination_reason,omitempty"`
	GraceDeadline        *time.Time      `json:"grace_deadline,omitempty"`
	AwaitingConfirmation bool            `json:"awaiting_confirmation"`
}

// Snapshot renders the session at now.
func (s ExamSession) Snapshot(now time.Time) Snapshot {
	c := s.Clone()
	return Snapshot{
		SessionID:            c.ID,
		Candidate:            c.Candidate,
		State:                c.State,
		StartedAt:            c.StartedAt,
		Deadline:             c.Deadline,
		EndedAt:              c.EndedAt,
		RemainingSeconds:     int(c.Remaining(now) / time.Second),
		Answers:              []int(c.Answers),
		Unanswered:           c.Answers.UnansweredCount(),
		CurrentQuestion:      c.CurrentQuestion,
		EliminationReason:    c.EliminationReason,
		GraceDeadline:        c.GraceDeadline,
		AwaitingConfirmation: c.AwaitingConfirmation,
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func timePtr(t time.Time) *time.Time { return &t }

package proctor

import (
	"time"

	"github.com/stemsi/exstem-proctor/internal/model"
)

// EffectKind is a side effect requested by a transition.
type EffectKind int

const (
	EffStartExamTimer EffectKind = iota + 1
	EffCancelExamTimer
	EffStartGraceTimer
	EffCancelGraceTimer
	EffInstallLockdown
	EffRemoveLockdown
	EffExitLockedMode
	EffRequestLockedMode
	EffShowWarning
	EffWarningTick
	EffHideWarning
	EffTimerTick
	EffRenderQuestion
	EffAnswerRecorded
	EffRemediate
	EffConfirmRequired
	EffRecordViolation
	EffEliminated
	EffSubmitted
	EffRejected
)

// Effect is interpreted by the Session actor. The machine itself performs no I/O.
type Effect struct {
	Kind       EffectKind
	Remaining  time.Duration
	Question   int
	Option     int
	Unanswered int
	Reason     string
	Auto       bool
	Err        error
}

// Machine is the pure transition function for ExamSession.
type Machine struct {
	Policy  Policy
	Options int
}

// NewMachine returns a Machine for four-option questions.
func NewMachine(p Policy) Machine {
	return Machine{Policy: p, Options: model.OptionsPerQuestion}
}

// Reduce applies sig to s at now. The input value is never mutated.
// Terminal states accept no transitions.
func (m Machine) Reduce(s ExamSession, sig Signal, now time.Time) (ExamSession, []Effect) {
	next := s.Clone()

	if s.State.Terminal() {
		switch sig.Kind {
		case SigSelectOption, SigNavigate, SigSubmit, SigConfirmSubmit:
			return next, []Effect{{Kind: EffRejected, Err: ErrSessionClosed}}
		}
		return next, nil
	}

	switch s.State {
	case StateNotStarted:
		return m.notStarted(next, sig, now)
	case StateActive:
		return m.active(next, sig, now)
	case StateGracePeriod:
		return m.grace(next, sig, now)
	}
	return next, nil
}

func (m Machine) notStarted(s ExamSession, sig Signal, now time.Time) (ExamSession, []Effect) {
	switch sig.Kind {
	case SigStart:
		if !sig.Locked {
			return s, []Effect{{Kind: EffRemediate}}
		}
		s.State = StateActive
		s.StartedAt = timePtr(now)
		s.Deadline = timePtr(now.Add(m.Policy.ExamDuration))
		s.CurrentQuestion = 0
		return s, []Effect{
			{Kind: EffInstallLockdown},
			{Kind: EffStartExamTimer, Remaining: m.Policy.ExamDuration},
			{Kind: EffRenderQuestion, Question: 0},
		}
	case SigSelectOption, SigNavigate, SigSubmit, SigConfirmSubmit:
		return s, []Effect{{Kind: EffRejected, Err: ErrNotActive}}
	}
	return s, nil
}

func (m Machine) active(s ExamSession, sig Signal, now time.Time) (ExamSession, []Effect) {
	switch sig.Kind {
	case SigDisplayModeLost:
		s.State = StateGracePeriod
		s.GraceDeadline = timePtr(now.Add(m.Policy.GracePeriod))
		s.AwaitingConfirmation = false
		return s, []Effect{
			{Kind: EffStartGraceTimer, Remaining: m.Policy.GracePeriod},
			{Kind: EffShowWarning, Remaining: m.Policy.GracePeriod},
		}
	case SigExamTick:
		return s, []Effect{{Kind: EffTimerTick, Remaining: sig.Remaining}}
	case SigExamExpired:
		return m.submit(s, now, true)
	case SigHardViolation:
		return m.eliminate(s, sig.Reason, now, true)
	case SigOperatorExit:
		return m.eliminate(s, ReasonOperatorExit, now, false)
	case SigSelectOption:
		if err := s.Answers.Select(sig.Question, sig.Option, m.Options); err != nil {
			return s, []Effect{{Kind: EffRejected, Err: err}}
		}
		return s, []Effect{{
			Kind:       EffAnswerRecorded,
			Question:   sig.Question,
			Option:     sig.Option,
			Unanswered: s.Answers.UnansweredCount(),
		}}
	case SigNavigate:
		if sig.Question < 0 || sig.Question >= len(s.Answers) {
			return s, []Effect{{Kind: EffRejected, Err: ErrQuestionOutOfRange}}
		}
		s.CurrentQuestion = sig.Question
		return s, []Effect{{Kind: EffRenderQuestion, Question: sig.Question}}
	case SigSubmit:
		if n := s.Answers.UnansweredCount(); n > 0 {
			s.AwaitingConfirmation = true
			return s, []Effect{{Kind: EffConfirmRequired, Unanswered: n}}
		}
		return m.submit(s, now, false)
	case SigConfirmSubmit:
		if !s.AwaitingConfirmation {
			return s, []Effect{{Kind: EffRejected, Err: ErrNoPendingSubmit}}
		}
		return m.submit(s, now, false)
	case SigCancelSubmit:
		s.AwaitingConfirmation = false
	}
	return s, nil
}

func (m Machine) grace(s ExamSession, sig Signal, now time.Time) (ExamSession, []Effect) {
	switch sig.Kind {
	case SigDisplayModeRestored:
		s.State = StateActive
		s.GraceDeadline = nil
		return s, []Effect{{Kind: EffCancelGraceTimer}, {Kind: EffHideWarning}}
	case SigGraceTick:
		return s, []Effect{{Kind: EffWarningTick, Remaining: sig.Remaining}}
	case SigGraceExpired:
		return m.eliminate(s, ReasonGraceExpired, now, false)
	case SigRecoveryKey:
		return s, []Effect{{Kind: EffRequestLockedMode}}
	case SigExamTick:
		return s, []Effect{{Kind: EffTimerTick, Remaining: sig.Remaining}}
	case SigExamExpired:
		return m.submit(s, now, true)
	case SigHardViolation:
		return m.eliminate(s, sig.Reason, now, true)
	case SigOperatorExit:
		return m.eliminate(s, ReasonOperatorExit, now, false)
	case SigSelectOption, SigNavigate, SigSubmit, SigConfirmSubmit:
		return s, []Effect{{Kind: EffRejected, Err: ErrNotActive}}
	}
	return s, nil
}

// teardown lists the effects that release every timer and interceptor.
func teardown() []Effect {
	return []Effect{
		{Kind: EffCancelExamTimer},
		{Kind: EffCancelGraceTimer},
		{Kind: EffRemoveLockdown},
		{Kind: EffExitLockedMode},
	}
}

func (m Machine) eliminate(s ExamSession, reason string, now time.Time, hard bool) (ExamSession, []Effect) {
	s.State = StateEliminated
	s.EliminationReason = reason
	s.GraceDeadline = nil
	s.AwaitingConfirmation = false
	s.EndedAt = timePtr(now)

	effects := teardown()
	if hard {
		effects = append(effects, Effect{Kind: EffRecordViolation, Reason: reason})
	}
	return s, append(effects, Effect{Kind: EffEliminated, Reason: reason})
}

func (m Machine) submit(s ExamSession, now time.Time, auto bool) (ExamSession, []Effect) {
	s.State = StateSubmitted
	s.GraceDeadline = nil
	s.AwaitingConfirmation = false
	s.AutoSubmitted = auto
	s.EndedAt = timePtr(now)
	return s, append(teardown(), Effect{Kind: EffSubmitted, Auto: auto})
}

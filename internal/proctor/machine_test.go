package proctor

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func testMachine() Machine {
	p := DefaultPolicy()
	p.ExamDuration = 10 * time.Minute
	return NewMachine(p)
}

func kinds(effects []Effect) []EffectKind {
	out := make([]EffectKind, len(effects))
	for i, e := range effects {
		out[i] = e.Kind
	}
	return out
}

func started(t *testing.T, m Machine, questions int) ExamSession {
	t.Helper()
	s := NewExamSession(uuid.New(), model.Candidate{Name: "Ada", ExternalID: "C-1"}, questions)
	s, _ = m.Reduce(s, Start(true), t0)
	require.Equal(t, StateActive, s.State)
	return s
}

func TestReduceStart(t *testing.T) {
	m := testMachine()
	s := NewExamSession(uuid.New(), model.Candidate{Name: "Ada"}, 3)

	next, effects := m.Reduce(s, Start(false), t0)
	assert.Equal(t, StateNotStarted, next.State)
	assert.Equal(t, []EffectKind{EffRemediate}, kinds(effects))

	next, effects = m.Reduce(s, Start(true), t0)
	assert.Equal(t, StateActive, next.State)
	require.NotNil(t, next.StartedAt)
	require.NotNil(t, next.Deadline)
	assert.Equal(t, t0.Add(10*time.Minute), *next.Deadline)
	assert.Equal(t, []EffectKind{EffInstallLockdown, EffStartExamTimer, EffRenderQuestion}, kinds(effects))
	assert.Equal(t, StateNotStarted, s.State, "input value must not change")
}

func TestReduceRejectsAnswersBeforeStart(t *testing.T) {
	m := testMachine()
	s := NewExamSession(uuid.New(), model.Candidate{}, 3)

	for _, sig := range []Signal{SelectOption(0, 1), Navigate(1), {Kind: SigSubmit}} {
		next, effects := m.Reduce(s, sig, t0)
		require.Len(t, effects, 1)
		assert.ErrorIs(t, effects[0].Err, ErrNotActive)
		assert.Equal(t, StateNotStarted, next.State)
	}
}

func TestReduceSelectDoesNotMutateInput(t *testing.T) {
	m := testMachine()
	s := started(t, m, 3)

	next, effects := m.Reduce(s, SelectOption(1, 2), t0)
	assert.Equal(t, []EffectKind{EffAnswerRecorded}, kinds(effects))
	assert.Equal(t, 2, effects[0].Unanswered)
	assert.Equal(t, 2, next.Answers[1])
	assert.Equal(t, Unanswered, s.Answers[1])
}

func TestReduceSelectOutOfRange(t *testing.T) {
	m := testMachine()
	s := started(t, m, 3)

	_, effects := m.Reduce(s, SelectOption(5, 0), t0)
	assert.ErrorIs(t, effects[0].Err, ErrQuestionOutOfRange)
	_, effects = m.Reduce(s, SelectOption(0, 4), t0)
	assert.ErrorIs(t, effects[0].Err, ErrOptionOutOfRange)
	_, effects = m.Reduce(s, Navigate(3), t0)
	assert.ErrorIs(t, effects[0].Err, ErrQuestionOutOfRange)
}

func TestReduceNavigate(t *testing.T) {
	m := testMachine()
	s := started(t, m, 3)

	next, effects := m.Reduce(s, Navigate(2), t0)
	assert.Equal(t, 2, next.CurrentQuestion)
	require.Len(t, effects, 1)
	assert.Equal(t, EffRenderQuestion, effects[0].Kind)
	assert.Equal(t, 2, effects[0].Question)
}

func TestReduceGraceWindow(t *testing.T) {
	m := testMachine()
	s := started(t, m, 3)

	grace, effects := m.Reduce(s, Signal{Kind: SigDisplayModeLost}, t0.Add(time.Minute))
	assert.Equal(t, StateGracePeriod, grace.State)
	require.NotNil(t, grace.GraceDeadline)
	assert.Equal(t, t0.Add(time.Minute+5*time.Second), *grace.GraceDeadline)
	assert.Equal(t, []EffectKind{EffStartGraceTimer, EffShowWarning}, kinds(effects))

	t.Run("restored", func(t *testing.T) {
		next, effects := m.Reduce(grace, Signal{Kind: SigDisplayModeRestored}, t0.Add(time.Minute+3*time.Second))
		assert.Equal(t, StateActive, next.State)
		assert.Nil(t, next.GraceDeadline)
		assert.Equal(t, []EffectKind{EffCancelGraceTimer, EffHideWarning}, kinds(effects))
	})

	t.Run("expired", func(t *testing.T) {
		next, effects := m.Reduce(grace, Signal{Kind: SigGraceExpired}, t0.Add(time.Minute+5*time.Second))
		assert.Equal(t, StateEliminated, next.State)
		assert.Equal(t, ReasonGraceExpired, next.EliminationReason)
		assert.Nil(t, next.GraceDeadline)
		assert.Contains(t, kinds(effects), EffCancelGraceTimer)
		assert.Contains(t, kinds(effects), EffRemoveLockdown)
		assert.NotContains(t, kinds(effects), EffRecordViolation)
	})

	t.Run("recovery key", func(t *testing.T) {
		next, effects := m.Reduce(grace, Signal{Kind: SigRecoveryKey}, t0)
		assert.Equal(t, StateGracePeriod, next.State)
		assert.Equal(t, []EffectKind{EffRequestLockedMode}, kinds(effects))
	})

	t.Run("answers frozen", func(t *testing.T) {
		next, effects := m.Reduce(grace, SelectOption(0, 0), t0)
		assert.ErrorIs(t, effects[0].Err, ErrNotActive)
		assert.Equal(t, Unanswered, next.Answers[0])
	})

	t.Run("exam deadline still applies", func(t *testing.T) {
		next, effects := m.Reduce(grace, Signal{Kind: SigExamExpired}, t0.Add(10*time.Minute))
		assert.Equal(t, StateSubmitted, next.State)
		assert.True(t, next.AutoSubmitted)
		assert.Contains(t, kinds(effects), EffCancelGraceTimer)
	})
}

func TestReduceHardViolationIsImmediate(t *testing.T) {
	m := testMachine()
	active := started(t, m, 3)
	grace, _ := m.Reduce(active, Signal{Kind: SigDisplayModeLost}, t0)

	for name, s := range map[string]ExamSession{"active": active, "grace": grace} {
		t.Run(name, func(t *testing.T) {
			next, effects := m.Reduce(s, HardViolation(ReasonTabSwitch), t0)
			assert.Equal(t, StateEliminated, next.State)
			assert.Equal(t, ReasonTabSwitch, next.EliminationReason)
			assert.Equal(t, []EffectKind{
				EffCancelExamTimer, EffCancelGraceTimer, EffRemoveLockdown, EffExitLockedMode,
				EffRecordViolation, EffEliminated,
			}, kinds(effects))
		})
	}
}

func TestReduceOperatorExit(t *testing.T) {
	m := testMachine()
	next, _ := m.Reduce(started(t, m, 2), Signal{Kind: SigOperatorExit}, t0)
	assert.Equal(t, StateEliminated, next.State)
	assert.Equal(t, ReasonOperatorExit, next.EliminationReason)
}

func TestReduceSubmitConfirmation(t *testing.T) {
	m := testMachine()
	s := started(t, m, 3)
	s, _ = m.Reduce(s, SelectOption(0, 1), t0)

	s, effects := m.Reduce(s, Signal{Kind: SigSubmit}, t0)
	assert.Equal(t, StateActive, s.State)
	assert.True(t, s.AwaitingConfirmation)
	require.Len(t, effects, 1)
	assert.Equal(t, EffConfirmRequired, effects[0].Kind)
	assert.Equal(t, 2, effects[0].Unanswered)

	cancelled, _ := m.Reduce(s, Signal{Kind: SigCancelSubmit}, t0)
	assert.False(t, cancelled.AwaitingConfirmation)
	_, effects = m.Reduce(cancelled, Signal{Kind: SigConfirmSubmit}, t0)
	assert.ErrorIs(t, effects[0].Err, ErrNoPendingSubmit)

	done, effects := m.Reduce(s, Signal{Kind: SigConfirmSubmit}, t0.Add(time.Minute))
	assert.Equal(t, StateSubmitted, done.State)
	assert.False(t, done.AutoSubmitted)
	assert.Equal(t, EffSubmitted, effects[len(effects)-1].Kind)
	require.NotNil(t, done.EndedAt)
}

func TestReduceSubmitAllAnswered(t *testing.T) {
	m := testMachine()
	s := started(t, m, 2)
	s, _ = m.Reduce(s, SelectOption(0, 1), t0)
	s, _ = m.Reduce(s, SelectOption(1, 3), t0)

	next, effects := m.Reduce(s, Signal{Kind: SigSubmit}, t0)
	assert.Equal(t, StateSubmitted, next.State)
	assert.NotContains(t, kinds(effects), EffConfirmRequired)
}

func TestReduceTimerExpiry(t *testing.T) {
	m := testMachine()
	s := started(t, m, 2)

	next, effects := m.Reduce(s, Signal{Kind: SigExamTick, Remaining: 42 * time.Second}, t0)
	assert.Equal(t, []EffectKind{EffTimerTick}, kinds(effects))
	assert.Equal(t, StateActive, next.State)

	next, effects = m.Reduce(s, Signal{Kind: SigExamExpired}, t0.Add(10*time.Minute))
	assert.Equal(t, StateSubmitted, next.State)
	assert.True(t, next.AutoSubmitted)
	assert.Equal(t, EffSubmitted, effects[len(effects)-1].Kind)
	assert.True(t, effects[len(effects)-1].Auto)
}

func TestReduceTerminalStatesIgnoreEverything(t *testing.T) {
	m := testMachine()
	s := started(t, m, 3)
	s, _ = m.Reduce(s, SelectOption(0, 2), t0)
	eliminated, _ := m.Reduce(s, HardViolation(ReasonPrint), t0)
	submitted, _ := m.Reduce(s, Signal{Kind: SigExamExpired}, t0)

	for _, terminal := range []ExamSession{eliminated, submitted} {
		for k := SigStart; k <= SigOperatorExit; k++ {
			sig := Signal{Kind: k, Locked: true, Reason: ReasonScreenshot, Question: 1, Option: 1}
			next, effects := m.Reduce(terminal, sig, t0.Add(time.Hour))
			assert.Equal(t, terminal, next, "signal %s changed a %s session", k, terminal.State)
			for _, e := range effects {
				assert.Equal(t, EffRejected, e.Kind)
				assert.ErrorIs(t, e.Err, ErrSessionClosed)
			}
		}
	}
}

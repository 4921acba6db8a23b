package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/proctor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// manualClock never fires timers; tests move Now explicitly.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

type inertTimer struct{}

func (inertTimer) Stop() bool { return true }

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(time.Duration, func()) proctor.Timer { return inertTimer{} }

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type staticQuestions struct {
	questions []model.Question
	err       error
}

func (s staticQuestions) GetQuestions(context.Context) ([]model.Question, error) {
	return s.questions, s.err
}

func sampleBank(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:            uuid.New(),
			Bank:          "default",
			QuestionText:  "Which option?",
			Options:       []string{"A", "B", "C", "D"},
			CorrectOption: i % 4,
			OrderNum:      i + 1,
		}
	}
	return qs
}

func newTestRegistry(t *testing.T, src QuestionSource) (*SessionRegistry, *manualClock) {
	t.Helper()
	clock := &manualClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	r := NewSessionRegistry(RegistryOptions{
		Questions: src,
		Policy:    proctor.DefaultPolicy(),
		Clock:     clock,
		Secret:    "test-secret",
		TokenTTL:  40 * time.Minute,
		Retention: 10 * time.Minute,
	}, zerolog.Nop())
	t.Cleanup(r.Shutdown)
	return r, clock
}

func TestRegistryCreateAndToken(t *testing.T) {
	r, _ := newTestRegistry(t, staticQuestions{questions: sampleBank(10)})
	ctx := context.Background()

	s, token, err := r.Create(ctx, model.Candidate{Name: "Ada", ExternalID: "C-7"})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	claims, err := r.ValidateToken(token)
	require.NoError(t, err)
	id, err := claims.SessionID()
	require.NoError(t, err)
	assert.Equal(t, s.ID(), id)
	assert.Equal(t, "C-7", claims.CandidateID)

	got, err := r.Get(id)
	require.NoError(t, err)
	assert.Same(t, s, got)

	snap, err := got.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, proctor.StateNotStarted, snap.State)
	assert.Len(t, snap.Answers, 10)

	_, err = r.Get(uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistryCreateWithoutQuestions(t *testing.T) {
	r, _ := newTestRegistry(t, staticQuestions{err: ErrNoQuestions})
	_, _, err := r.Create(context.Background(), model.Candidate{Name: "Ada", ExternalID: "C-7"})
	assert.ErrorIs(t, err, proctor.ErrNoQuestions)
	assert.Zero(t, r.Len())
}

func TestRegistryRejectsBadTokens(t *testing.T) {
	r, clock := newTestRegistry(t, staticQuestions{questions: sampleBank(3)})
	token, err := r.IssueToken(uuid.New(), model.Candidate{ExternalID: "C-1"})
	require.NoError(t, err)

	_, err = r.ValidateToken(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	})
	forgedStr, err := forged.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = r.ValidateToken(forgedStr)
	assert.ErrorIs(t, err, ErrInvalidToken)

	clock.Advance(41 * time.Minute)
	_, err = r.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRegistrySweep(t *testing.T) {
	r, clock := newTestRegistry(t, staticQuestions{questions: sampleBank(3)})
	ctx := context.Background()

	finished, _, err := r.Create(ctx, model.Candidate{Name: "A", ExternalID: "A-1"})
	require.NoError(t, err)
	idle, _, err := r.Create(ctx, model.Candidate{Name: "B", ExternalID: "B-1"})
	require.NoError(t, err)
	running, _, err := r.Create(ctx, model.Candidate{Name: "C", ExternalID: "C-1"})
	require.NoError(t, err)

	require.NoError(t, finished.Dispatch(ctx, proctor.Start(true)))
	require.NoError(t, finished.Dispatch(ctx, proctor.HardViolation(proctor.ReasonTabSwitch)))
	require.NoError(t, running.Dispatch(ctx, proctor.Start(true)))

	clock.Advance(5 * time.Minute)
	assert.Zero(t, r.Sweep(ctx), "nothing has outlived retention yet")

	clock.Advance(6 * time.Minute)
	assert.Equal(t, 1, r.Sweep(ctx))
	_, err = r.Get(finished.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	<-finished.Done()

	clock.Advance(30 * time.Minute)
	assert.Equal(t, 1, r.Sweep(ctx))
	_, err = r.Get(idle.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = r.Get(running.ID())
	assert.NoError(t, err, "active sessions are never swept")
}

func TestRegistryStartStops(t *testing.T) {
	r, _ := newTestRegistry(t, staticQuestions{questions: sampleBank(1)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Start(ctx, time.Millisecond)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	<-done
}

func TestOperatorAuth(t *testing.T) {
	hash, err := HashPasscode("invigilator-42", bcrypt.MinCost)
	require.NoError(t, err)

	auth := NewOperatorAuth(hash)
	assert.True(t, auth.Enabled())
	assert.NoError(t, auth.Verify("invigilator-42"))
	assert.ErrorIs(t, auth.Verify("guess"), ErrInvalidPasscode)
	assert.ErrorIs(t, auth.Verify(""), ErrInvalidPasscode)

	disabled := NewOperatorAuth("")
	assert.False(t, disabled.Enabled())
	assert.ErrorIs(t, disabled.Verify("anything"), ErrOperatorDisabled)
}

func TestValidateBank(t *testing.T) {
	assert.NoError(t, ValidateBank(sampleBank(10)))
	assert.True(t, errors.Is(ValidateBank(nil), ErrNoQuestions))

	bad := sampleBank(2)
	bad[1].Options = bad[1].Options[:3]
	assert.ErrorIs(t, ValidateBank(bad), ErrInvalidQuestion)

	bad = sampleBank(2)
	bad[0].CorrectOption = 4
	assert.ErrorIs(t, ValidateBank(bad), ErrInvalidQuestion)
}

package proctor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// ErrNoQuestions is returned when a session is created without a paper.
var ErrNoQuestions = errors.New("exam has no questions")

// ResultSink persists the final score. Called at most once per session.
type ResultSink interface {
	Persist(ctx context.Context, result model.ExamResult) error
}

// ViolationSink records hard violations and eliminations for audit.
type ViolationSink interface {
	Record(ctx context.Context, v model.Violation) error
}

// Transition describes a state change, published to observers.
type Transition struct {
	SessionID uuid.UUID       `json:"session_id"`
	Candidate model.Candidate `json:"candidate"`
	From      State           `json:"from"`
	To        State           `json:"to"`
	Reason    string          `json:"reason,omitempty"`
	At        time.Time       `json:"at"`
}

// TransitionObserver is notified after every state change.
type TransitionObserver interface {
	OnTransition(ctx context.Context, t Transition)
}

// Options configures a Session.
type Options struct {
	ID         uuid.UUID
	Candidate  model.Candidate
	Questions  []model.Question
	Policy     Policy
	Clock      Clock
	Heuristic  DevToolsHeuristic
	Results    ResultSink
	Violations ViolationSink
	Observer   TransitionObserver
	Logger     *zerolog.Logger
}

const inboxSize = 64

// Session owns one ExamSession. Every signal, timer callback and read is
// serialized through a single goroutine so no two transitions interleave.
type Session struct {
	id        uuid.UUID
	machine   Machine
	policy    Policy
	questions []model.Question
	clock     Clock
	log       zerolog.Logger

	results    ResultSink
	violations ViolationSink
	observer   TransitionObserver

	inbox     chan func()
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	bg        sync.WaitGroup

	// Owned by the run goroutine.
	rec        ExamSession
	enforcer   *Enforcer
	examTimer  *Countdown
	graceTimer *Countdown
	examGen    uint64
	graceGen   uint64
	listener   func(Event)
	listenerID uint64
}

// NewSession starts the actor for a fresh NotStarted session.
func NewSession(opts Options) (*Session, error) {
	if len(opts.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	if opts.ID == uuid.Nil {
		opts.ID = uuid.New()
	}
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.Policy == (Policy{}) {
		opts.Policy = DefaultPolicy()
	}
	if opts.Policy.PersistTimeout <= 0 {
		opts.Policy.PersistTimeout = DefaultPolicy().PersistTimeout
	}
	if opts.Heuristic == nil {
		opts.Heuristic = NewDimensionHeuristic(opts.Policy.DevToolsThreshold, opts.Policy.DevToolsSustain)
	}
	base := log.Logger
	if opts.Logger != nil {
		base = *opts.Logger
	}

	s := &Session{
		id:         opts.ID,
		machine:    NewMachine(opts.Policy),
		policy:     opts.Policy,
		questions:  opts.Questions,
		clock:      opts.Clock,
		log:        base.With().Str("component", "proctor").Str("session_id", opts.ID.String()).Logger(),
		results:    opts.Results,
		violations: opts.Violations,
		observer:   opts.Observer,
		inbox:      make(chan func(), inboxSize),
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
		rec:        NewExamSession(opts.ID, opts.Candidate, len(opts.Questions)),
	}
	s.enforcer = NewEnforcer(s.clock, s.policy.FocusDebounce, opts.Heuristic, s.dispatchLogged, s.post)

	go s.run()
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Done is closed once the actor has stopped.
func (s *Session) Done() <-chan struct{} { return s.stopped }

func (s *Session) run() {
	defer close(s.stopped)
	for {
		select {
		case fn := <-s.inbox:
			fn()
		case <-s.quit:
			return
		}
	}
}

// post schedules fn on the actor without waiting. Used by timer callbacks.
func (s *Session) post(fn func()) {
	select {
	case s.inbox <- fn:
	case <-s.quit:
	}
}

// call runs fn on the actor and waits for it.
func (s *Session) call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case s.inbox <- func() { fn(); close(done) }:
	case <-s.quit:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-s.quit:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch applies sig and returns the rejection error, if any.
func (s *Session) Dispatch(ctx context.Context, sig Signal) error {
	var rejected error
	if err := s.call(ctx, func() { rejected = s.dispatch(sig) }); err != nil {
		return err
	}
	return rejected
}

// Observe feeds a raw surface event through the enforcer.
func (s *Session) Observe(ctx context.Context, in Input) (Outcome, error) {
	var out Outcome
	err := s.call(ctx, func() {
		out = s.enforcer.Observe(in)
		if out.Disposition == DispositionSuppressed {
			s.log.Debug().Str("input", string(in.Kind)).Str("key", in.Key.String()).Msg("Input suppressed")
		}
	})
	return out, err
}

// Snapshot returns the current read-only view.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.call(ctx, func() { snap = s.rec.Snapshot(s.clock.Now()) })
	return snap, err
}

// Interceptors lists the enforcer hooks currently installed.
func (s *Session) Interceptors(ctx context.Context) ([]Interceptor, error) {
	var out []Interceptor
	err := s.call(ctx, func() { out = s.enforcer.Interceptors() })
	return out, err
}

// Attach sets fn as the single event listener and pushes a state event.
// fn runs on the actor goroutine and must not block. The returned detach
// only clears fn if no later Attach replaced it.
func (s *Session) Attach(ctx context.Context, fn func(Event)) (detach func(), err error) {
	var id uint64
	err = s.call(ctx, func() {
		s.listenerID++
		id = s.listenerID
		s.listener = fn
		snap := s.rec.Snapshot(s.clock.Now())
		fn(Event{Type: EventState, State: snap.State, Session: &snap})
	})
	if err != nil {
		return func() {}, err
	}
	return func() {
		s.post(func() {
			if s.listenerID == id {
				s.listener = nil
			}
		})
	}, nil
}

// Close releases timers and interceptors, stops the actor and waits for
// in-flight persistence. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = s.call(ctx, s.release)
		cancel()
		close(s.quit)
		<-s.stopped
		s.bg.Wait()
	})
}

func (s *Session) release() {
	s.stopTimer(&s.examTimer)
	s.stopTimer(&s.graceTimer)
	s.enforcer.Remove()
	s.listener = nil
}

func (s *Session) stopTimer(t **Countdown) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// dispatchLogged applies sig from inside the actor, logging rejections.
func (s *Session) dispatchLogged(sig Signal) {
	if err := s.dispatch(sig); err != nil {
		s.log.Debug().Err(err).Stringer("signal", sig.Kind).Msg("Signal rejected")
	}
}

func (s *Session) stale(sig Signal) bool {
	if sig.Gen == 0 {
		return false
	}
	switch sig.Kind {
	case SigExamTick, SigExamExpired:
		return sig.Gen != s.examGen
	case SigGraceTick, SigGraceExpired:
		return sig.Gen != s.graceGen
	}
	return false
}

func (s *Session) dispatch(sig Signal) error {
	if s.stale(sig) {
		return nil
	}
	now := s.clock.Now()
	prev := s.rec
	next, effects := s.machine.Reduce(prev, sig, now)
	s.rec = next

	if next.State != prev.State {
		s.log.Info().
			Str("from", string(prev.State)).
			Str("to", string(next.State)).
			Stringer("signal", sig.Kind).
			Str("reason", next.EliminationReason).
			Msg("Session transition")
	}

	var rejected error
	for _, eff := range effects {
		if err := s.apply(eff); err != nil {
			rejected = err
		}
	}

	if next.State != prev.State {
		s.notify(Transition{
			SessionID: s.id,
			Candidate: next.Candidate,
			From:      prev.State,
			To:        next.State,
			Reason:    next.EliminationReason,
			At:        now,
		})
		s.emit(Event{Type: EventState, State: next.State})
	}
	return rejected
}

func (s *Session) apply(eff Effect) error {
	switch eff.Kind {
	case EffStartExamTimer:
		s.stopTimer(&s.examTimer)
		s.examGen++
		gen := s.examGen
		s.examTimer = NewCountdown(s.clock, eff.Remaining, s.policy.Tick,
			func(rem time.Duration) {
				s.post(func() { s.dispatchLogged(Signal{Kind: SigExamTick, Remaining: rem, Gen: gen}) })
			},
			func() {
				s.post(func() { s.dispatchLogged(Signal{Kind: SigExamExpired, Gen: gen}) })
			})
		s.examTimer.Start()
		s.emit(Event{Type: EventTimer, Remaining: seconds(eff.Remaining)})
	case EffCancelExamTimer:
		s.stopTimer(&s.examTimer)
	case EffStartGraceTimer:
		s.stopTimer(&s.graceTimer)
		s.graceGen++
		gen := s.graceGen
		s.graceTimer = NewCountdown(s.clock, eff.Remaining, s.policy.Tick,
			func(rem time.Duration) {
				s.post(func() { s.dispatchLogged(Signal{Kind: SigGraceTick, Remaining: rem, Gen: gen}) })
			},
			func() {
				s.post(func() { s.dispatchLogged(Signal{Kind: SigGraceExpired, Gen: gen}) })
			})
		s.graceTimer.Start()
		s.enforcer.SetGraceWindow(true)
	case EffCancelGraceTimer:
		s.stopTimer(&s.graceTimer)
		s.enforcer.SetGraceWindow(false)
	case EffInstallLockdown:
		s.enforcer.Install()
		s.emit(Event{Type: EventLockdown, Allow: AllowList})
	case EffRemoveLockdown:
		s.enforcer.Remove()
		s.emit(Event{Type: EventRelease})
	case EffExitLockedMode:
		s.emit(Event{Type: EventExitLockedMode})
	case EffRequestLockedMode:
		s.emit(Event{Type: EventRequestLockedMode})
	case EffShowWarning, EffWarningTick:
		s.emit(Event{Type: EventWarning, Remaining: seconds(eff.Remaining)})
	case EffHideWarning:
		s.emit(Event{Type: EventWarningCleared})
	case EffTimerTick:
		s.emit(Event{Type: EventTimer, Remaining: seconds(eff.Remaining)})
	case EffRenderQuestion:
		s.emit(Event{Type: EventQuestion, Index: intPtr(eff.Question)})
	case EffAnswerRecorded:
		s.emit(Event{
			Type:       EventAnswered,
			Index:      intPtr(eff.Question),
			Option:     intPtr(eff.Option),
			Unanswered: intPtr(eff.Unanswered),
		})
	case EffRemediate:
		s.emit(Event{Type: EventRemediation, Message: RemediationMessage})
	case EffConfirmRequired:
		s.emit(Event{Type: EventConfirmRequired, Unanswered: intPtr(eff.Unanswered)})
	case EffRecordViolation:
		s.record(model.ViolationKindHard, eff.Reason)
	case EffEliminated:
		s.record(model.ViolationKindElimination, eff.Reason)
		s.emit(Event{Type: EventEliminated, Reason: eff.Reason})
	case EffSubmitted:
		s.finish(eff.Auto)
	case EffRejected:
		return eff.Err
	}
	return nil
}

// finish grades the ledger, tells the candidate and hands the record to the sink.
func (s *Session) finish(auto bool) {
	score := Grade(s.rec.Answers, s.questions)
	passed := score.Passed(s.policy.PassingPercentage)

	s.emit(Event{
		Type:         EventSubmitted,
		CorrectCount: intPtr(score.CorrectCount),
		Total:        intPtr(score.Total),
		Percentage:   score.Display(),
		Passed:       boolPtr(passed),
		Auto:         boolPtr(auto),
	})

	result := model.ExamResult{
		SessionID:        s.id,
		CandidateName:    s.rec.Candidate.Name,
		CandidateID:      s.rec.Candidate.ExternalID,
		CorrectCount:     score.CorrectCount,
		TotalQuestions:   score.Total,
		AnsweredCount:    s.rec.Answers.AnsweredCount(),
		Percentage:       score.Rounded(),
		Passed:           passed,
		AutoSubmitted:    auto,
		TimeSpentSeconds: int(s.rec.TimeSpent(s.policy.ExamDuration) / time.Second),
		CompletedAt:      *s.rec.EndedAt,
	}

	s.log.Info().
		Int("correct", score.CorrectCount).
		Int("total", score.Total).
		Str("percentage", score.Display()).
		Bool("auto", auto).
		Msg("Exam submitted")

	if s.results == nil {
		return
	}
	s.background(func(ctx context.Context) {
		if err := s.results.Persist(ctx, result); err != nil {
			s.log.Error().Err(err).Msg("Failed to persist exam result")
		}
	})
}

func (s *Session) record(kind model.ViolationKind, reason string) {
	if s.violations == nil {
		return
	}
	v := model.Violation{
		SessionID:     s.id,
		CandidateName: s.rec.Candidate.Name,
		CandidateID:   s.rec.Candidate.ExternalID,
		Kind:          kind,
		Reason:        reason,
		RecordedAt:    s.clock.Now(),
	}
	s.background(func(ctx context.Context) {
		if err := s.violations.Record(ctx, v); err != nil {
			s.log.Warn().Err(err).Str("kind", string(kind)).Msg("Failed to record violation")
		}
	})
}

func (s *Session) notify(t Transition) {
	if s.observer == nil {
		return
	}
	s.background(func(ctx context.Context) { s.observer.OnTransition(ctx, t) })
}

// background runs fn off the actor with the persistence timeout.
func (s *Session) background(fn func(ctx context.Context)) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.policy.PersistTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (s *Session) emit(ev Event) {
	if s.listener != nil {
		s.listener(ev)
	}
}

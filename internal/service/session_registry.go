package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/proctor"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidToken    = errors.New("invalid session token")
	ErrTokenExpired    = errors.New("session token expired")
)

// QuestionSource supplies the ordered question list for a new session.
type QuestionSource interface {
	GetQuestions(ctx context.Context) ([]model.Question, error)
}

// SessionClaims binds a bearer token to exactly one exam session.
type SessionClaims struct {
	jwt.RegisteredClaims
	CandidateID string `json:"cid"`
}

// SessionID parses the subject claim.
func (c *SessionClaims) SessionID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// RegistryOptions wires the collaborators every session actor receives.
type RegistryOptions struct {
	Questions  QuestionSource
	Results    proctor.ResultSink
	Violations proctor.ViolationSink
	Observer   proctor.TransitionObserver
	Policy     proctor.Policy
	Clock      proctor.Clock

	Secret    string
	TokenTTL  time.Duration
	Retention time.Duration
}

type registryEntry struct {
	session   *proctor.Session
	createdAt time.Time
}

// SessionRegistry owns every live session actor on this instance.
type SessionRegistry struct {
	opts RegistryOptions
	log  zerolog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*registryEntry
}

// NewSessionRegistry creates a new SessionRegistry.
func NewSessionRegistry(opts RegistryOptions, log zerolog.Logger) *SessionRegistry {
	if opts.Clock == nil {
		opts.Clock = proctor.RealClock()
	}
	return &SessionRegistry{
		opts:     opts,
		log:      log.With().Str("component", "session_registry").Logger(),
		sessions: make(map[uuid.UUID]*registryEntry),
	}
}

// Create starts a fresh NotStarted session for candidate and signs its token.
func (r *SessionRegistry) Create(ctx context.Context, candidate model.Candidate) (*proctor.Session, string, error) {
	questions, err := r.opts.Questions.GetQuestions(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("load questions: %w", err)
	}

	id := uuid.New()
	logger := r.log.With().Str("candidate_id", candidate.ExternalID).Logger()
	session, err := proctor.NewSession(proctor.Options{
		ID:         id,
		Candidate:  candidate,
		Questions:  questions,
		Policy:     r.opts.Policy,
		Clock:      r.opts.Clock,
		Results:    r.opts.Results,
		Violations: r.opts.Violations,
		Observer:   r.opts.Observer,
		Logger:     &logger,
	})
	if err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}

	token, err := r.IssueToken(id, candidate)
	if err != nil {
		session.Close()
		return nil, "", err
	}

	r.mu.Lock()
	r.sessions[id] = &registryEntry{session: session, createdAt: r.opts.Clock.Now()}
	r.mu.Unlock()

	r.log.Info().
		Str("session_id", id.String()).
		Str("candidate_id", candidate.ExternalID).
		Int("questions", len(questions)).
		Msg("Session created")
	return session, token, nil
}

// Get returns the live session with id.
func (r *SessionRegistry) Get(id uuid.UUID) (*proctor.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.session, nil
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IssueToken signs a session token.
func (r *SessionRegistry) IssueToken(id uuid.UUID, candidate model.Candidate) (string, error) {
	now := r.opts.Clock.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.opts.TokenTTL)),
		},
		CandidateID: candidate.ExternalID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(r.opts.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a session token, returning the claims.
func (r *SessionRegistry) ValidateToken(tokenStr string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(r.opts.Secret), nil
	}, jwt.WithTimeFunc(r.opts.Clock.Now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.SessionID(); err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return claims, nil
}

// Sweep closes and forgets sessions that ended more than Retention ago and
// sessions that were never started within the token lifetime.
func (r *SessionRegistry) Sweep(ctx context.Context) int {
	now := r.opts.Clock.Now()

	r.mu.RLock()
	candidates := make(map[uuid.UUID]*registryEntry, len(r.sessions))
	for id, e := range r.sessions {
		candidates[id] = e
	}
	r.mu.RUnlock()

	var expired []uuid.UUID
	for id, e := range candidates {
		snap, err := e.session.Snapshot(ctx)
		switch {
		case errors.Is(err, proctor.ErrSessionClosed):
			expired = append(expired, id)
		case err != nil:
			continue
		case snap.State.Terminal() && snap.EndedAt != nil && now.Sub(*snap.EndedAt) >= r.opts.Retention:
			expired = append(expired, id)
		case snap.State == proctor.StateNotStarted && now.Sub(e.createdAt) >= r.opts.TokenTTL:
			expired = append(expired, id)
		}
	}

	for _, id := range expired {
		r.remove(id)
	}
	if len(expired) > 0 {
		r.log.Info().Int("removed", len(expired)).Int("live", r.Len()).Msg("Sessions swept")
	}
	return len(expired)
}

// Start runs Sweep every interval until ctx is cancelled.
func (r *SessionRegistry) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Shutdown closes every session actor.
func (r *SessionRegistry) Shutdown() {
	r.mu.Lock()
	entries := r.sessions
	r.sessions = make(map[uuid.UUID]*registryEntry)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, e := range entries {
		wg.Add(1)
		go func(s *proctor.Session) {
			defer wg.Done()
			s.Close()
		}(e.session)
	}
	wg.Wait()
	r.log.Info().Int("closed", len(entries)).Msg("Session registry shut down")
}

func (r *SessionRegistry) remove(id uuid.UUID) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		e.session.Close()
	}
}

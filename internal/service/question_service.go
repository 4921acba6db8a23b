package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/proctor"
)

// Domain Errors
var (
	ErrNoQuestions     = fmt.Errorf("question bank is empty: %w", proctor.ErrNoQuestions)
	ErrInvalidQuestion = errors.New("question bank contains an invalid question")
)

// QuestionStore is the durable side of the question source.
type QuestionStore interface {
	ListByBank(ctx context.Context, bank string) ([]model.Question, error)
}

// QuestionService serves the fixed question bank, cached in Redis.
type QuestionService struct {
	store QuestionStore
	rdb   redis.Cmdable
	bank  string
	log   zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(store QuestionStore, rdb redis.Cmdable, bank string, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		store: store,
		rdb:   rdb,
		bank:  bank,
		log:   log.With().Str("component", "question_service").Logger(),
	}
}

// Bank returns the configured bank name.
func (s *QuestionService) Bank() string { return s.bank }

// GetQuestions returns the ordered bank with answers. Cache misses fall back
// to PostgreSQL and repopulate Redis.
func (s *QuestionService) GetQuestions(ctx context.Context) ([]model.Question, error) {
	key := config.CacheKey.QuestionBankKey(s.bank)
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var questions []model.Question
		if err := json.Unmarshal(data, &questions); err == nil && len(questions) > 0 {
			return questions, nil
		}
		s.log.Warn().Str("key", key).Msg("Corrupt question cache, reloading from database")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Redis read failed, reading questions from database")
	}

	questions, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	// Self-heal the cache; a failure here only costs the next request a DB read.
	if err := s.cache(ctx, questions); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache question bank")
	}
	return questions, nil
}

// GetPaper returns the candidate-facing paper without correct answers.
func (s *QuestionService) GetPaper(ctx context.Context, examDuration, grace time.Duration) (*model.Paper, error) {
	questions, err := s.GetQuestions(ctx)
	if err != nil {
		return nil, err
	}
	return &model.Paper{
		Bank:            s.bank,
		DurationSeconds: int(examDuration / time.Second),
		GraceSeconds:    int(grace / time.Second),
		Questions:       model.ForCandidate(questions),
	}, nil
}

// Prewarm loads the bank into Redis before the server accepts traffic.
func (s *QuestionService) Prewarm(ctx context.Context) error {
	questions, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := s.cache(ctx, questions); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}
	s.log.Info().Str("bank", s.bank).Int("questions", len(questions)).Msg("Question bank prewarmed")
	return nil
}

// Invalidate drops the cached bank, e.g. after reseeding.
func (s *QuestionService) Invalidate(ctx context.Context) error {
	return s.rdb.Del(ctx, config.CacheKey.QuestionBankKey(s.bank)).Err()
}

func (s *QuestionService) load(ctx context.Context) ([]model.Question, error) {
	questions, err := s.store.ListByBank(ctx, s.bank)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if err := ValidateBank(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *QuestionService) cache(ctx context.Context, questions []model.Question) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	return s.rdb.Set(ctx, config.CacheKey.QuestionBankKey(s.bank), data, 0).Err()
}

// ValidateBank checks every question has four options and an in-range key.
func ValidateBank(questions []model.Question) error {
	if len(questions) == 0 {
		return ErrNoQuestions
	}
	for i, q := range questions {
		if len(q.Options) != model.OptionsPerQuestion {
			return fmt.Errorf("%w: question %d has %d options", ErrInvalidQuestion, i, len(q.Options))
		}
		if q.CorrectOption < 0 || q.CorrectOption >= model.OptionsPerQuestion {
			return fmt.Errorf("%w: question %d has correct option %d", ErrInvalidQuestion, i, q.CorrectOption)
		}
	}
	return nil
}

package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// ResultService queues final scores for the result worker.
type ResultService struct {
	rdb redis.Cmdable
	log zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(rdb redis.Cmdable, log zerolog.Logger) *ResultService {
	return &ResultService{rdb: rdb, log: log.With().Str("component", "result_service").Logger()}
}

// Persist enqueues the result. The worker makes the insert idempotent per session.
func (s *ResultService) Persist(ctx context.Context, result model.ExamResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, data).Err(); err != nil {
		return fmt.Errorf("enqueue result: %w", err)
	}
	s.log.Debug().Str("session_id", result.SessionID.String()).Msg("Result queued")
	return nil
}

// ViolationService queues audit entries for the violation worker.
type ViolationService struct {
	rdb redis.Cmdable
}

// NewViolationService creates a new ViolationService.
func NewViolationService(rdb redis.Cmdable) *ViolationService {
	return &ViolationService{rdb: rdb}
}

// Record enqueues v.
func (s *ViolationService) Record(ctx context.Context, v model.Violation) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal violation: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, data).Err(); err != nil {
		return fmt.Errorf("enqueue violation: %w", err)
	}
	return nil
}

package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/proctor"
)

// MonitorEvent is the JSON published for every session transition.
type MonitorEvent struct {
	Type string `json:"type"`
	proctor.Transition
}

// MonitorService fans session transitions out over Redis PubSub so every
// server instance can feed the invigilator dashboard.
type MonitorService struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(rdb *redis.Client, log zerolog.Logger) *MonitorService {
	return &MonitorService{rdb: rdb, log: log.With().Str("component", "monitor_service").Logger()}
}

// OnTransition publishes t. Failures are logged and otherwise ignored.
func (s *MonitorService) OnTransition(ctx context.Context, t proctor.Transition) {
	data, err := json.Marshal(MonitorEvent{Type: "transition", Transition: t})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to marshal monitor event")
		return
	}
	if err := s.rdb.Publish(ctx, config.CacheKey.ProctorMonitorChannel(), data).Err(); err != nil {
		s.log.Warn().Err(err).Str("session_id", t.SessionID.String()).Msg("Failed to publish monitor event")
	}
}

// Subscribe opens a subscription to the monitor channel. Callers must Close it.
func (s *MonitorService) Subscribe(ctx context.Context) *redis.PubSub {
	return s.rdb.Subscribe(ctx, config.CacheKey.ProctorMonitorChannel())
}

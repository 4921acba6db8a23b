package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
)

const (
	keepAliveInterval = 30 * time.Second
	lookupTimeout     = 5 * time.Second
)

// MonitorFeed opens a subscription to session transitions.
type MonitorFeed interface {
	Subscribe(ctx context.Context) *redis.PubSub
}

// ResultReader reads stored score records.
type ResultReader interface {
	GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.ExamResult, error)
}

// ViolationReader reads the audit trail of a session.
type ViolationReader interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Violation, error)
}

// MonitorHandler serves the invigilator endpoints.
type MonitorHandler struct {
	feed       MonitorFeed
	results    ResultReader
	violations ViolationReader
	log        zerolog.Logger
}

func NewMonitorHandler(feed MonitorFeed, results ResultReader, violations ViolationReader, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		feed:       feed,
		results:    results,
		violations: violations,
		log:        log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorSSE godoc
// GET /api/v1/monitor/stream
// Relays every session transition published by any instance.
func (h *MonitorHandler) MonitorSSE(c *gin.Context) {
	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	pubsub := h.feed.Subscribe(reqCtx)
	defer pubsub.Close()
	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	h.log.Info().Msg("Operator attached to live monitor SSE")
	c.SSEvent("message", gin.H{"type": "ready"})
	c.Writer.Flush()

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Msg("Operator disconnected from live monitor SSE")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Forward raw JSON directly, no deserialization needed
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-keepAliveTicker.C:
			c.SSEvent("message", gin.H{"type": "ping"})
			c.Writer.Flush()
		}
	}
}

// GetResult godoc
// GET /api/v1/monitor/sessions/:session_id/result
func (h *MonitorHandler) GetResult(c *gin.Context) {
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), lookupTimeout)
	defer cancel()

	result, err := h.results.GetBySession(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("session_id", id.String()).Msg("Failed to load result")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// ListViolations godoc
// GET /api/v1/monitor/sessions/:session_id/violations
func (h *MonitorHandler) ListViolations(c *gin.Context) {
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), lookupTimeout)
	defer cancel()

	violations, err := h.violations.ListBySession(ctx, id)
	if err != nil {
		h.log.Error().Err(err).Str("session_id", id.String()).Msg("Failed to load violations")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if violations == nil {
		violations = []model.Violation{}
	}
	response.Success(c, http.StatusOK, gin.H{"violations": violations})
}

package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/proctor"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
)

// SessionHandler creates candidate sessions and serves their snapshots.
type SessionHandler struct {
	registry *service.SessionRegistry
	log      zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(registry *service.SessionRegistry, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		registry: registry,
		log:      log.With().Str("component", "session_handler").Logger(),
	}
}

// CreateSessionResponse is returned once, when the candidate-info form is submitted.
type CreateSessionResponse struct {
	SessionID uuid.UUID     `json:"session_id"`
	Token     string        `json:"token"`
	State     proctor.State `json:"state"`
}

// CreateSession godoc
// POST /api/v1/sessions
// Captures candidate details and opens a NotStarted session.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req model.CreateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	candidate := model.Candidate{
		Name:       strings.TrimSpace(req.Name),
		ExternalID: req.ExternalID,
	}
	session, token, err := h.registry.Create(c.Request.Context(), candidate)
	if err != nil {
		h.log.Error().Err(err).Str("candidate_id", candidate.ExternalID).Msg("Failed to create session")
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, CreateSessionResponse{
		SessionID: session.ID(),
		Token:     token,
		State:     proctor.StateNotStarted,
	})
}

// GetSession godoc
// GET /api/v1/sessions/:session_id
// Returns the read-only snapshot of the caller's session.
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.registry.Get(id)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	snap, err := session.Snapshot(c.Request.Context())
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, snap)
}

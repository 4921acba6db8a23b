package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
)

// QuestionHandler serves the candidate-facing paper.
type QuestionHandler struct {
	questionService *service.QuestionService
	examDuration    time.Duration
	gracePeriod     time.Duration
	log             zerolog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService, examDuration, gracePeriod time.Duration, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		examDuration:    examDuration,
		gracePeriod:     gracePeriod,
		log:             log.With().Str("component", "question_handler").Logger(),
	}
}

// GetPaper godoc
// GET /api/v1/paper
// Returns questions without answers, plus the exam and grace durations.
func (h *QuestionHandler) GetPaper(c *gin.Context) {
	paper, err := h.questionService.GetPaper(c.Request.Context(), h.examDuration, h.gracePeriod)
	if err != nil {
		c.Header("Cache-Control", "no-store")
		if errors.Is(err, service.ErrNoQuestions) {
			response.Fail(c, http.StatusServiceUnavailable, response.ErrNoQuestions)
			return
		}
		h.log.Error().Err(err).Str("bank", h.questionService.Bank()).Msg("Failed to load paper")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, paper)
}

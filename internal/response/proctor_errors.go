package response

import (
	"errors"
	"net/http"

	"github.com/stemsi/exstem-proctor/internal/proctor"
)

// FromError maps a domain error onto an HTTP status and error code.
func FromError(err error) (int, ErrCode) {
	switch {
	case errors.Is(err, proctor.ErrNotActive):
		return http.StatusConflict, ErrSessionNotActive
	case errors.Is(err, proctor.ErrSessionClosed):
		return http.StatusGone, ErrSessionClosed
	case errors.Is(err, proctor.ErrQuestionOutOfRange):
		return http.StatusUnprocessableEntity, ErrQuestionOutOfRange
	case errors.Is(err, proctor.ErrOptionOutOfRange):
		return http.StatusUnprocessableEntity, ErrOptionOutOfRange
	case errors.Is(err, proctor.ErrNoPendingSubmit):
		return http.StatusConflict, ErrNoPendingSubmit
	case errors.Is(err, proctor.ErrNoQuestions):
		return http.StatusServiceUnavailable, ErrNoQuestions
	}
	return http.StatusInternalServerError, ErrInternal
}

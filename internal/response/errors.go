package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired    ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid     ErrCode = "TOKEN_INVALID"
	ErrTokenExpired     ErrCode = "TOKEN_EXPIRED"
	ErrSessionMismatch  ErrCode = "SESSION_MISMATCH"
	ErrPasscodeRequired ErrCode = "PASSCODE_REQUIRED"
	ErrPasscodeInvalid  ErrCode = "PASSCODE_INVALID"
	ErrOperatorDisabled ErrCode = "OPERATOR_DISABLED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrUnknownAction  ErrCode = "UNKNOWN_ACTION"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrNoQuestions        ErrCode = "NO_QUESTIONS"
	ErrSessionNotActive   ErrCode = "SESSION_NOT_ACTIVE"
	ErrSessionClosed      ErrCode = "SESSION_CLOSED"
	ErrQuestionOutOfRange ErrCode = "QUESTION_OUT_OF_RANGE"
	ErrOptionOutOfRange   ErrCode = "OPTION_OUT_OF_RANGE"
	ErrNoPendingSubmit    ErrCode = "NO_PENDING_SUBMIT"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "A session token is required."
	case ErrTokenInvalid:
		return "The session token is invalid."
	case ErrTokenExpired:
		return "The session token has expired."
	case ErrSessionMismatch:
		return "The token does not belong to this session."
	case ErrPasscodeRequired:
		return "An operator passcode is required."
	case ErrPasscodeInvalid:
		return "The operator passcode is incorrect."
	case ErrOperatorDisabled:
		return "Operator access is not configured on this server."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrUnknownAction:
		return "Unknown action."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrNoQuestions:
		return "The exam has no questions."
	case ErrSessionNotActive:
		return "The exam is not in progress."
	case ErrSessionClosed:
		return "The exam has already ended."
	case ErrQuestionOutOfRange:
		return "Question number is out of range."
	case ErrOptionOutOfRange:
		return "Option is out of range."
	case ErrNoPendingSubmit:
		return "There is no submission awaiting confirmation."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}

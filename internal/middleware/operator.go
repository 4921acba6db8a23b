package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
)

// OperatorPasscodeHeader carries the invigilator passcode.
const OperatorPasscodeHeader = "X-Operator-Passcode"

// RequireOperator guards invigilator endpoints with the bcrypt passcode.
// EventSource cannot send headers, so ?passcode= is accepted as a fallback.
func RequireOperator(auth *service.OperatorAuth) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.Enabled() {
			response.AbortFail(c, http.StatusServiceUnavailable, response.ErrOperatorDisabled)
			return
		}

		passcode := c.GetHeader(OperatorPasscodeHeader)
		if passcode == "" {
			passcode = c.Query("passcode")
		}
		if passcode == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrPasscodeRequired)
			return
		}
		if err := auth.Verify(passcode); err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrPasscodeInvalid)
			return
		}
		c.Next()
	}
}

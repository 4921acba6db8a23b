package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
)

const (
	// ContextKeyClaims is the Gin context key for session token claims.
	ContextKeyClaims = "claims"
)

// TokenValidator is implemented by service.SessionRegistry.
type TokenValidator interface {
	ValidateToken(token string) (*service.SessionClaims, error)
}

// RequireSessionToken validates the session token from the Authorization
// header, or from ?token= for WebSocket upgrades, and checks that it was
// issued for the :session_id in the path.
func RequireSessionToken(tv TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := tv.ValidateToken(tokenStr)
		if err != nil {
			code := response.ErrTokenInvalid
			if errors.Is(err, service.ErrTokenExpired) {
				code = response.ErrTokenExpired
			}
			response.AbortFail(c, http.StatusUnauthorized, code)
			return
		}

		if raw := c.Param("session_id"); raw != "" {
			pathID, err := uuid.Parse(raw)
			if err != nil {
				response.AbortFail(c, http.StatusBadRequest, response.ErrInvalidID)
				return
			}
			tokenID, _ := claims.SessionID()
			if pathID != tokenID {
				response.AbortFail(c, http.StatusForbidden, response.ErrSessionMismatch)
				return
			}
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims retrieves the session claims from the Gin context.
func GetClaims(c *gin.Context) *service.SessionClaims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	// Browsers cannot set headers on WebSocket upgrades.
	return c.Query("token")
}

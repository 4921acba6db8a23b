package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// CacheControl lets the browser (not shared caches) reuse a response for
// maxAge. Handlers override it with no-store on failure.
func CacheControl(maxAge time.Duration) gin.HandlerFunc {
	value := fmt.Sprintf("private, max-age=%d", int(maxAge/time.Second))
	return func(c *gin.Context) {
		c.Header("Cache-Control", value)
		c.Next()
	}
}

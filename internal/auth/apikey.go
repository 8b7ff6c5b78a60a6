package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// callerCtxKey is the Gin context key used to store the authenticated caller.
const callerCtxKey = "caller"

// APIKeyMiddleware maps X-API-Key → caller name (the conversation-flow
// driver, the dashboard, a backfill job). Authentication proper is handled
// outside this service; the key only identifies the caller for logs.
func APIKeyMiddleware(keys map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := strings.TrimSpace(c.GetHeader("X-API-Key"))
		caller, ok := keys[apiKey]
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(callerCtxKey, caller)
		c.Next()
	}
}

// Caller returns the authenticated caller name from the request context.
func Caller(c *gin.Context) string {
	v, _ := c.Get(callerCtxKey)
	s, _ := v.(string)
	return s
}

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/parardhadhar/parardha-insight-engine/internal/session"
	"github.com/parardhadhar/parardha-insight-engine/internal/transport/http/response"
)

const (
	SessionHeader     = "X-Session-ID"
	ContextSessionKey = "session"
)

// RequireSession resolves the caller's session from the X-Session-ID header
// and stores it on the request context. Touching the session here defers
// idle expiry for any authenticated request.
func RequireSession(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(SessionHeader))
		if id == "" {
			response.Error(c, 401, response.CodeSessionRequired, "missing "+SessionHeader+" header")
			c.Abort()
			return
		}

		sess, err := store.Get(id)
		if err != nil {
			response.Error(c, 404, response.CodeSessionNotFound, "unknown or expired session")
			c.Abort()
			return
		}
		sess.Touch()

		c.Set(ContextSessionKey, sess)
		c.Next()
	}
}

// SessionFromContext returns the session placed by RequireSession.
func SessionFromContext(c *gin.Context) (*session.Session, bool) {
	v, ok := c.Get(ContextSessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*session.Session)
	return sess, ok
}

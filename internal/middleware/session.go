package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"personavault/api/internal/models"
)

// SessionCookie is the cookie carrying the opaque session identifier.
const SessionCookie = "session_id"

const (
	ctxUserKey    = "current_user"
	ctxSessionKey = "session_id"
)

// SessionValidator resolves a session identifier to its account.
type SessionValidator interface {
	Validate(ctx context.Context, sessionID string) (models.User, error)
}

// SessionAuth guards routes behind a live session cookie. Missing, unknown
// and expired cookies all get the same 401.
func SessionAuth(auth SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(SessionCookie)
		if err != nil || sessionID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		user, err := auth.Validate(c.Request.Context(), sessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(ctxUserKey, user)
		c.Set(ctxSessionKey, sessionID)

		c.Next()
	}
}

// CurrentUser returns the account the session middleware attached.
func CurrentUser(c *gin.Context) (models.User, bool) {
	value, ok := c.Get(ctxUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := value.(models.User)
	return user, ok
}

// CurrentSessionID returns the session identifier the middleware attached.
func CurrentSessionID(c *gin.Context) string {
	return c.GetString(ctxSessionKey)
}

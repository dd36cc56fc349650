package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/vet-agenda/internal/session"
)

const ContextSession = "session"

// RequireSession loads the session populated at login. It must run after
// AuthMiddleware; a session of another clinic counts as missing.
func RequireSession(store session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)

		sc, err := store.Get(c.Request.Context(), userID)
		if errors.Is(err, session.ErrNotFound) || (err == nil && sc.ClinicID != c.GetString(ContextClinicID)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session_not_found"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session_unavailable"})
			return
		}

		c.Set(ContextSession, sc)
		c.Next()
	}
}

// SessionFrom returns the session set by RequireSession.
func SessionFrom(c *gin.Context) (session.Context, bool) {
	v, ok := c.Get(ContextSession)
	if !ok {
		return session.Context{}, false
	}
	sc, ok := v.(session.Context)
	return sc, ok
}

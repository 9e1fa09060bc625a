package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mmdatafocus/nowmirror_backend/utils"
)

const SessionCookieName = "mirror_session"

// SessionMiddleware resolves the session cookie (or "session" header for
// non-browser clients) and loads the stored remote tokens into the request
// context. A stale or unknown session is rejected here, before any handler
// touches the remote system.
func SessionMiddleware(sessions utils.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(SessionCookieName)
		if err != nil || sessionID == "" {
			sessionID = c.Request.Header.Get("session")
		}
		if sessionID == "" {
			c.Next()
			return
		}

		session, err := sessions.Get(c.Request.Context(), sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetSessionIdInContext(c.Request.Context(), session.ID)
		ctx = utils.SetUsernameInContext(ctx, session.Username)
		ctx = utils.SetAccessTokenInContext(ctx, session.AccessToken)
		ctx = utils.SetRefreshTokenInContext(ctx, session.RefreshToken)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

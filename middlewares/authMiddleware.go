package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mmdatafocus/nowmirror_backend/utils"
)

// AuthMiddleware accepts a Bearer JWT minted at login and loads the remote
// tokens it carries into the request context. Requests without an
// Authorization header pass through untouched so the session middleware can
// handle cookie-based callers.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		if auth == "" {
			c.Next()
			return
		}

		bearer := "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		customClaim, _ := validate.Claims.(*utils.JwtCustomClaim)

		ctx := utils.SetUsernameInContext(c.Request.Context(), customClaim.Username)
		ctx = utils.SetAccessTokenInContext(ctx, customClaim.AccessToken)
		ctx = utils.SetRefreshTokenInContext(ctx, customClaim.RefreshToken)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

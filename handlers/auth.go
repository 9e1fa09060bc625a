package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/mmdatafocus/nowmirror_backend/middlewares"
	"github.com/mmdatafocus/nowmirror_backend/nowsync"
	"github.com/mmdatafocus/nowmirror_backend/utils"
)

type loginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login forwards the credentials to the remote token endpoint. On success a
// server-side session holds the token pair and a signed JWT carrying the
// same pair is returned for cookie-less clients.
func (h *Handler) Login(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateStruct(input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tok, err := nowsync.PasswordGrant(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	session := &utils.Session{
		Username:     input.Username,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if err := h.Sessions.Create(c.Request.Context(), session); err != nil {
		writeError(c, err)
		return
	}

	jwt, err := utils.JwtGenerate(input.Username, tok.AccessToken, tok.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}

	setSessionCookie(c, session.ID)
	c.JSON(http.StatusOK, gin.H{
		"token":    jwt,
		"session":  session.ID,
		"username": input.Username,
	})
}

// Refresh rotates the remote tokens for the current caller and re-issues the
// JWT. Session callers also get the session record updated.
func (h *Handler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	refreshToken, ok := utils.GetRefreshTokenFromContext(ctx)
	if !ok || refreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication expired"})
		return
	}

	tok, err := nowsync.RefreshGrant(ctx, refreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication expired"})
		return
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}

	username, _ := utils.GetUsernameFromContext(ctx)

	if sessionID, ok := utils.GetSessionIdFromContext(ctx); ok && sessionID != "" {
		if session, err := h.Sessions.Get(ctx, sessionID); err == nil {
			session.AccessToken = tok.AccessToken
			session.RefreshToken = tok.RefreshToken
			if err := h.Sessions.Update(ctx, session); err != nil {
				writeError(c, err)
				return
			}
		}
	}

	jwt, err := utils.JwtGenerate(username, tok.AccessToken, tok.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": jwt, "username": username})
}

// Logout drops the session. The remote tokens simply age out on the remote
// side; there is no remote revocation endpoint to call.
func (h *Handler) Logout(c *gin.Context) {
	if sessionID, ok := utils.GetSessionIdFromContext(c.Request.Context()); ok && sessionID != "" {
		if err := h.Sessions.Delete(c.Request.Context(), sessionID); err != nil {
			writeError(c, err)
			return
		}
	}
	clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func setSessionCookie(c *gin.Context, sessionID string) {
	secure := os.Getenv("GIN_MODE") == "release"
	c.SetCookie(middlewares.SessionCookieName, sessionID, 0, "/", "", secure, true)
}

func clearSessionCookie(c *gin.Context) {
	secure := os.Getenv("GIN_MODE") == "release"
	c.SetCookie(middlewares.SessionCookieName, "", -1, "/", "", secure, true)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mmdatafocus/nowmirror_backend/nowsync"
	"github.com/mmdatafocus/nowmirror_backend/utils"
)

// credFromContext pulls the caller's remote tokens out of the request
// context, loaded by either auth middleware.
func credFromContext(c *gin.Context) nowsync.Credential {
	ctx := c.Request.Context()
	cred := nowsync.Credential{}
	if v, ok := utils.GetAccessTokenFromContext(ctx); ok {
		cred.AccessToken = v
	}
	if v, ok := utils.GetRefreshTokenFromContext(ctx); ok {
		cred.RefreshToken = v
	}
	if v, ok := utils.GetSessionIdFromContext(ctx); ok {
		cred.SessionID = v
	}
	return cred
}

// writeOutcome is the single mapping from a synchronizer outcome to HTTP.
// Nothing else in the handlers maps sync states to status codes.
func writeOutcome(c *gin.Context, out nowsync.Outcome, successStatus int) {
	switch out.State {
	case nowsync.StateCommitted:
		c.JSON(successStatus, gin.H{
			"data":     out.Doc,
			"local_id": out.LocalID,
			"sys_id":   out.RemoteID,
		})
	case nowsync.StateReferenceFailed:
		c.JSON(http.StatusNotFound, gin.H{"error": out.Err.Error()})
	case nowsync.StateInvalid:
		c.JSON(http.StatusBadRequest, gin.H{"error": out.Err.Error()})
	case nowsync.StateRemoteFailed:
		writeRemoteError(c, out.Err)
	case nowsync.StateLocalFailed:
		// Remote side is mutated, local mirror is not. Surface everything the
		// caller needs to reconcile; never pretend it succeeded.
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "remote write succeeded but local mirror update failed",
			"state":    out.State.String(),
			"local_id": out.LocalID,
			"sys_id":   out.RemoteID,
			"remote":   out.Remote,
			"detail":   out.Err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": out.Err.Error()})
	}
}

// writeRemoteError maps a failed remote call. Remote rejections pass the
// remote status through verbatim so the client sees what the remote said.
func writeRemoteError(c *gin.Context, err error) {
	if errors.Is(err, nowsync.ErrAuthExpired) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication expired"})
		return
	}
	var remErr *nowsync.RemoteError
	if errors.As(err, &remErr) {
		switch remErr.Kind {
		case nowsync.RemoteRejected, nowsync.RemoteNotFound, nowsync.RemoteUnauthorized:
			c.JSON(remErr.Status, gin.H{"error": remErr.Message, "kind": remErr.Kind.String()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": remErr.Error(), "kind": remErr.Kind.String()})
		}
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}

// writeError maps plain (non-outcome) errors from mirror reads and auth.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, nowsync.ErrDocumentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, nowsync.ErrAuthExpired), errors.Is(err, utils.ErrSessionNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication expired"})
	case nowsync.IsReferenceNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		var remErr *nowsync.RemoteError
		if errors.As(err, &remErr) {
			writeRemoteError(c, err)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mmdatafocus/nowmirror_backend/models"
	"github.com/mmdatafocus/nowmirror_backend/nowsync"
)

// ListSyncEvents is the reconciliation feed: every committed dual-write plus
// every recorded inconsistency, newest first.
func (h *Handler) ListSyncEvents(c *gin.Context) {
	events, err := models.ListSyncEvents(c.Request.Context(), h.db(), c.Query("status"), intQuery(c, "limit", 50))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": events})
}

// Relink repairs an inconsistency: given an entity name and the remote
// sys_id, it pulls the remote record and re-creates (or re-points) the
// mirror document under the external_id the remote record carries.
func (h *Handler) Relink(c *gin.Context) {
	spec, ok := nowsync.Registry[c.Param("entity")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown entity"})
		return
	}
	sysID := c.Param("sys_id")
	if sysID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sys_id required"})
		return
	}

	doc, err := h.Sync.Relink(c.Request.Context(), spec, sysID, credFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": doc})
}

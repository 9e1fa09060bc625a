package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mmdatafocus/nowmirror_backend/config"
	"github.com/mmdatafocus/nowmirror_backend/models"
	"github.com/mmdatafocus/nowmirror_backend/nowsync"
	"github.com/mmdatafocus/nowmirror_backend/utils"
)

// Handler wires the route surface to the synchronizer stack. All mutations
// flow through Sync; reads are served from the local mirror only.
type Handler struct {
	Sync     *nowsync.Synchronizer
	Rels     *nowsync.RelationshipSynchronizer
	Store    *models.GormMirrorStore
	DB       *gorm.DB
	Sessions utils.SessionStore
	Files    utils.FileStorage
	Docs     utils.DocumentGenerator
	Mail     utils.MailSender
	Logger   *logrus.Logger
}

func New(sync *nowsync.Synchronizer, rels *nowsync.RelationshipSynchronizer, store *models.GormMirrorStore, db *gorm.DB, sessions utils.SessionStore, files utils.FileStorage, docs utils.DocumentGenerator, mail utils.MailSender, logger *logrus.Logger) *Handler {
	return &Handler{
		Sync:     sync,
		Rels:     rels,
		Store:    store,
		DB:       db,
		Sessions: sessions,
		Files:    files,
		Docs:     docs,
		Mail:     mail,
		Logger:   logger,
	}
}

func (h *Handler) db() *gorm.DB {
	if h.DB != nil {
		return h.DB
	}
	return config.GetDB()
}

// CreateEntity is the generic create route. Entities needing extra
// validation or relationship wiring get their own handler on top.
func (h *Handler) CreateEntity(spec nowsync.EntitySpec) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload nowsync.Document
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		out := h.Sync.Create(c.Request.Context(), spec, payload, credFromContext(c))
		writeOutcome(c, out, http.StatusCreated)
	}
}

func (h *Handler) GetEntity(spec nowsync.EntitySpec) gin.HandlerFunc {
	return func(c *gin.Context) {
		localID := c.Param("id")
		if !utils.IsDocumentID(localID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed id"})
			return
		}
		doc, err := h.Store.FindByLocalID(c.Request.Context(), spec.Collection, localID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": doc})
	}
}

func (h *Handler) ListEntity(spec nowsync.EntitySpec) gin.HandlerFunc {
	return func(c *gin.Context) {
		var after *string
		if v := c.Query("after"); v != "" {
			after = &v
		}
		limit := intQuery(c, "limit", 20)
		docs, page, err := h.Store.List(c.Request.Context(), spec.Collection, after, limit)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": docs, "page_info": page})
	}
}

func (h *Handler) UpdateEntity(spec nowsync.EntitySpec) gin.HandlerFunc {
	return func(c *gin.Context) {
		localID := c.Param("id")
		if !utils.IsDocumentID(localID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed id"})
			return
		}
		var fields nowsync.Document
		if err := c.ShouldBindJSON(&fields); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		out := h.Sync.Update(c.Request.Context(), spec, localID, fields, credFromContext(c))
		writeOutcome(c, out, http.StatusOK)
	}
}

func (h *Handler) DeleteEntity(spec nowsync.EntitySpec) gin.HandlerFunc {
	return func(c *gin.Context) {
		localID := c.Param("id")
		if !utils.IsDocumentID(localID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed id"})
			return
		}
		out := h.Sync.Delete(c.Request.Context(), spec, localID, credFromContext(c))
		writeOutcome(c, out, http.StatusOK)
	}
}

func intQuery(c *gin.Context, name string, def int) int {
	if v, ok := c.GetQuery(name); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

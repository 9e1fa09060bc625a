package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mmdatafocus/nowmirror_backend/nowsync"
	"github.com/mmdatafocus/nowmirror_backend/utils"
)

// categoriesField is how the API exposes the offering's category membership.
// It never reaches the remote table; it drives the join-record synchronizer.
const categoriesField = "categories"

// idListField extracts a membership field (a JSON array of local ids) from
// the payload. Non-id entries are dropped.
func idListField(payload nowsync.Document, field string) ([]string, bool) {
	raw, ok := payload[field]
	if !ok {
		return nil, false
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, false
	}
	ids := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok && utils.IsDocumentID(s) {
			ids = append(ids, s)
		}
	}
	return ids, true
}

// CreateProductOffering creates the offering, then reconciles its category
// join records against the requested set. The offering create must commit
// first: join records need the parent's sys_id.
func (h *Handler) CreateProductOffering(c *gin.Context) {
	var payload nowsync.Document
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	categories, hasCategories := idListField(payload, categoriesField)
	delete(payload, categoriesField)

	cred := credFromContext(c)
	out := h.Sync.Create(c.Request.Context(), nowsync.ProductOffering, payload, cred)
	if out.State != nowsync.StateCommitted || !hasCategories {
		writeOutcome(c, out, http.StatusCreated)
		return
	}

	err := h.Rels.Sync(c.Request.Context(), nowsync.CatalogCategoryRelation, "source", "target", out.Doc, categories, cred)
	if err != nil {
		// The offering itself committed; report the half-synced membership
		// instead of failing the create.
		c.JSON(http.StatusCreated, gin.H{
			"data":               out.Doc,
			"local_id":           out.LocalID,
			"sys_id":             out.RemoteID,
			"relationship_error": err.Error(),
		})
		return
	}
	writeOutcome(c, out, http.StatusCreated)
}

// UpdateProductOffering reconciles category membership before the remote
// field update, so a relationship failure leaves the offering untouched.
func (h *Handler) UpdateProductOffering(c *gin.Context) {
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

	categories, hasCategories := idListField(fields, categoriesField)
	delete(fields, categoriesField)

	cred := credFromContext(c)
	var opts []nowsync.UpdateOption
	if hasCategories {
		opts = append(opts, nowsync.WithRelationshipSync(func(ctx context.Context, current nowsync.Document) error {
			return h.Rels.Sync(ctx, nowsync.CatalogCategoryRelation, "source", "target", current, categories, cred)
		}))
	}

	out := h.Sync.Update(c.Request.Context(), nowsync.ProductOffering, localID, fields, cred, opts...)
	writeOutcome(c, out, http.StatusOK)
}

// ListOfferingCategories reads the join records for one offering from the
// mirror and returns the referenced categories.
func (h *Handler) ListOfferingCategories(c *gin.Context) {
	localID := c.Param("id")
	if !utils.IsDocumentID(localID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed id"})
		return
	}
	rels, err := h.Store.FindByRef(c.Request.Context(), nowsync.CatalogCategoryRelation.Collection, "source", localID)
	if err != nil {
		writeError(c, err)
		return
	}
	categories := make([]nowsync.Document, 0, len(rels))
	for _, rel := range rels {
		target, ok := rel["target"].(string)
		if !ok || target == "" {
			continue
		}
		if cat, err := h.Store.FindByLocalID(c.Request.Context(), nowsync.ProductOfferingCategory.Collection, target); err == nil {
			categories = append(categories, cat)
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": categories})
}

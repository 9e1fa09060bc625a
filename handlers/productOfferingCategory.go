package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mmdatafocus/nowmirror_backend/nowsync"
	"github.com/mmdatafocus/nowmirror_backend/utils"
)

// offeringsField is the category-side mirror of categoriesField: the
// offerings belonging to a category, driving the same join-record
// synchronizer anchored at the category end.
const offeringsField = "offerings"

// CreateProductOfferingCategory creates the category, then reconciles its
// offering join records. The create must commit first: join records need the
// category's sys_id.
func (h *Handler) CreateProductOfferingCategory(c *gin.Context) {
	var payload nowsync.Document
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	offerings, hasOfferings := idListField(payload, offeringsField)
	delete(payload, offeringsField)

	cred := credFromContext(c)
	out := h.Sync.Create(c.Request.Context(), nowsync.ProductOfferingCategory, payload, cred)
	if out.State != nowsync.StateCommitted || !hasOfferings {
		writeOutcome(c, out, http.StatusCreated)
		return
	}

	err := h.Rels.Sync(c.Request.Context(), nowsync.CatalogCategoryRelation, "target", "source", out.Doc, offerings, cred)
	if err != nil {
		// The category itself committed; report the half-synced membership
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

// UpdateProductOfferingCategory reconciles offering membership before the
// remote field update, so a relationship failure leaves the category
// untouched.
func (h *Handler) UpdateProductOfferingCategory(c *gin.Context) {
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

	offerings, hasOfferings := idListField(fields, offeringsField)
	delete(fields, offeringsField)

	cred := credFromContext(c)
	var opts []nowsync.UpdateOption
	if hasOfferings {
		opts = append(opts, nowsync.WithRelationshipSync(func(ctx context.Context, current nowsync.Document) error {
			return h.Rels.Sync(ctx, nowsync.CatalogCategoryRelation, "target", "source", current, offerings, cred)
		}))
	}

	out := h.Sync.Update(c.Request.Context(), nowsync.ProductOfferingCategory, localID, fields, cred, opts...)
	writeOutcome(c, out, http.StatusOK)
}

// ListCategoryOfferings reads the join records for one category from the
// mirror and returns the referenced offerings.
func (h *Handler) ListCategoryOfferings(c *gin.Context) {
	localID := c.Param("id")
	if !utils.IsDocumentID(localID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed id"})
		return
	}
	rels, err := h.Store.FindByRef(c.Request.Context(), nowsync.CatalogCategoryRelation.Collection, "target", localID)
	if err != nil {
		writeError(c, err)
		return
	}
	offerings := make([]nowsync.Document, 0, len(rels))
	for _, rel := range rels {
		source, ok := rel["source"].(string)
		if !ok || source == "" {
			continue
		}
		if off, err := h.Store.FindByLocalID(c.Request.Context(), nowsync.ProductOffering.Collection, source); err == nil {
			offerings = append(offerings, off)
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": offerings})
}

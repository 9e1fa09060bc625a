package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mmdatafocus/nowmirror_backend/nowsync"
	"github.com/mmdatafocus/nowmirror_backend/utils"
)

// CreateContact validates the contact-specific fields before handing off to
// the generic create protocol.
func (h *Handler) CreateContact(c *gin.Context) {
	var payload nowsync.Document
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if email, ok := payload["email"].(string); ok && email != "" {
		if !utils.IsValidEmail(email) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
			return
		}
	}
	if phone, ok := payload["phone"].(string); ok && phone != "" {
		if err := utils.ValidatePhoneNumber(phone, utils.CountryCode); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phone number"})
			return
		}
	}

	out := h.Sync.Create(c.Request.Context(), nowsync.Contact, payload, credFromContext(c))
	writeOutcome(c, out, http.StatusCreated)
}

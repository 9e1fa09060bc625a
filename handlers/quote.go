package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mmdatafocus/nowmirror_backend/config"
	"github.com/mmdatafocus/nowmirror_backend/models"
	"github.com/mmdatafocus/nowmirror_backend/nowsync"
	"github.com/mmdatafocus/nowmirror_backend/utils"
)

func quotePDFPrefix(localID string) string {
	return "quotes/" + localID + "/"
}

// GetQuoteDetail serves the denormalized quote graph from the mirror. One
// round trip replaces the fan-out the browser would otherwise do.
func (h *Handler) GetQuoteDetail(c *gin.Context) {
	localID := c.Param("id")
	if !utils.IsDocumentID(localID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed id"})
		return
	}
	var after *string
	if v := c.Query("lines_after"); v != "" {
		after = &v
	}
	detail, err := models.BuildQuoteDetail(c.Request.Context(), h.Store, localID, after, intQuery(c, "lines_limit", 20))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// UploadQuotePDF stores a quote document next to the mirror. The caller
// either uploads the file or, when a document generator is configured, the
// PDF is rendered server-side from the mirrored quote graph. The object
// lives under the quote's local id so delete cleanup can sweep it by prefix.
func (h *Handler) UploadQuotePDF(c *gin.Context) {
	localID := c.Param("id")
	if !utils.IsDocumentID(localID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed id"})
		return
	}
	if h.Files == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "file storage not configured"})
		return
	}
	if _, err := h.Store.FindByLocalID(c.Request.Context(), nowsync.Quote.Collection, localID); err != nil {
		writeError(c, err)
		return
	}

	var content io.Reader
	var objectName string
	if file, header, err := c.Request.FormFile("file"); err == nil {
		defer file.Close()
		content = file
		objectName = quotePDFPrefix(localID) + header.Filename
	} else if h.Docs != nil {
		detail, derr := models.BuildQuoteDetail(c.Request.Context(), h.Store, localID, nil, 100)
		if derr != nil {
			writeError(c, derr)
			return
		}
		rendered, derr := h.Docs.Generate(c.Request.Context(), "quote", detail)
		if derr != nil {
			writeError(c, derr)
			return
		}
		content = rendered
		objectName = quotePDFPrefix(localID) + "quote.pdf"
	} else {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}

	if err := h.Files.Upload(c.Request.Context(), objectName, content, "application/pdf"); err != nil {
		writeError(c, err)
		return
	}
	if notify := c.PostForm("notify"); notify != "" && h.Mail != nil {
		if merr := h.Mail.Send(c.Request.Context(), notify, "Quote document ready", objectName); merr != nil && h.Logger != nil {
			config.LogError(h.Logger, "handlers", "UploadQuotePDF", "mail", localID, merr)
		}
	}
	c.JSON(http.StatusCreated, gin.H{"object": objectName})
}

// DeleteQuote runs the delete protocol and sweeps the quote's generated PDFs
// after the local delete commits. A failed sweep is recorded, not surfaced.
func (h *Handler) DeleteQuote(c *gin.Context) {
	localID := c.Param("id")
	if !utils.IsDocumentID(localID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed id"})
		return
	}

	var opts []nowsync.DeleteOption
	if h.Files != nil {
		opts = append(opts, nowsync.WithCleanup(func(ctx context.Context, deleted nowsync.Document) error {
			return h.Files.DeletePrefix(ctx, quotePDFPrefix(deleted.LocalID()))
		}))
	}

	out := h.Sync.Delete(c.Request.Context(), nowsync.Quote, localID, credFromContext(c), opts...)
	writeOutcome(c, out, http.StatusOK)
}

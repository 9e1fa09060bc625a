package utils

import (
	"context"
	"io"
)

// DocumentGenerator renders a printable document (quote PDFs) from mirror
// data. Rendering runs in an external service; implementations adapt its
// API. When none is configured the upload route requires a client-provided
// file instead.
type DocumentGenerator interface {
	Generate(ctx context.Context, kind string, data interface{}) (io.Reader, error)
}

package utils

import (
	"context"
	"io"
	"os"
	"strings"
)

const (
	StorageProviderGCS  = "gcs"
	StorageProviderNone = "none"
)

func GetStorageProvider() string {
	provider := strings.TrimSpace(strings.ToLower(os.Getenv("STORAGE_PROVIDER")))
	if provider == "" {
		return StorageProviderGCS
	}
	return provider
}

// FileStorage holds generated documents (quote PDFs). Deletion is invoked as
// best-effort dependent cleanup after a parent delete commits.
type FileStorage interface {
	Upload(ctx context.Context, objectName string, content io.Reader, contentType string) error
	Delete(ctx context.Context, objectName string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Package storage abstracts the object store holding uploaded PDFs and
// conversion results.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/grahama1970/extractor-sub000/pkg/logger"
	"github.com/grahama1970/extractor-sub000/pkg/storage/minio"
	"github.com/grahama1970/extractor-sub000/pkg/storage/s3"
)

type StorageType string

const (
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// Storage stores and retrieves documents and results by key.
type Storage interface {
	Store(ctx context.Context, reader io.Reader, filename string) (string, error)
	Get(ctx context.Context, fileID string) (io.ReadCloser, error)
	Delete(ctx context.Context, id string) error
	// CleanupBefore removes objects last modified before the threshold.
	CleanupBefore(ctx context.Context, threshold time.Time) error
}

// NewStorage creates the backend for the given type.
func NewStorage(storageType StorageType, logger logger.Logger) (Storage, error) {
	switch storageType {
	case StorageTypeS3:
		return s3.GetClient(logger)
	case StorageTypeMinio:
		return minio.GetClient(logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

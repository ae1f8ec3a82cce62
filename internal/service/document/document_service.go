package document

import (
	"context"
	"mime/multipart"

	"github.com/grahama1970/extractor-sub000/internal/models"
	"github.com/grahama1970/extractor-sub000/pkg/converters"
	"github.com/grahama1970/extractor-sub000/pkg/queue"
)

// DocumentProcessor is the conversion service surface used by the API
// handlers and the workers.
type DocumentProcessor interface {
	ProcessFile(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*models.ProcessingTask, error)
	ProcessBatch(ctx context.Context, files []*multipart.FileHeader) ([]*models.ProcessingTask, error)
	GetProcessingStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error)
	HandleDocument(ctx context.Context, task *queue.Task) error
	GetProcessedDocument(ctx context.Context, taskID string) (*converters.ProcessedDocument, error)
	CancelTask(ctx context.Context, taskID string) error
}

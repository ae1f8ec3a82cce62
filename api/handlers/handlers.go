package handlers

import (
	"github.com/grahama1970/extractor-sub000/internal/service/document"
	"github.com/grahama1970/extractor-sub000/pkg/logger"
)

type Handlers struct {
	Document *DocumentHandler
}

func NewHandlers(
	documentService document.DocumentProcessor,
	logger logger.Logger,
) *Handlers {
	return &Handlers{
		Document: NewDocumentHandler(documentService, logger),
	}
}

// Package textlines supplies positioned text lines for table regions,
// either from the PDF text layer or from OCR on scanned pages. Lines are
// returned in absolute document pixels, top-left origin, matching the
// cell polygons produced by structural recognition.
package textlines

import (
	"context"

	"github.com/grahama1970/extractor-sub000/internal/models"
)

// Provider extracts text lines for one page.
type Provider interface {
	Lines(ctx context.Context, pdfPath string, page *models.Page) ([]models.TextLine, error)
}

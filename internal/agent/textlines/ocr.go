package textlines

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/grahama1970/extractor-sub000/internal/models"
	"github.com/grahama1970/extractor-sub000/internal/render"
	"github.com/grahama1970/extractor-sub000/pkg/logger"
)

// OCRProvider extracts text lines from scanned pages through Tesseract.
// Used when the PDF text layer is empty.
type OCRProvider struct {
	renderer      render.PageRenderer
	dpi           int
	languages     []string
	minConfidence float64
	log           logger.Logger
}

// NewOCRProvider creates an OCR provider rendering at the given DPI.
func NewOCRProvider(renderer render.PageRenderer, dpi int, log logger.Logger) *OCRProvider {
	return &OCRProvider{
		renderer:      renderer,
		dpi:           dpi,
		languages:     []string{"eng"},
		minConfidence: 30,
		log:           log.Named("ocr"),
	}
}

// Lines renders the page and runs line-level OCR over it. Box
// coordinates are scaled from render pixels to the page's document
// dimensions.
func (p *OCRProvider) Lines(ctx context.Context, pdfPath string, page *models.Page) ([]models.TextLine, error) {
	img, err := p.renderer.RenderPage(ctx, pdfPath, page.Index+1, p.dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page for ocr: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode page for ocr: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(p.languages...); err != nil {
		return nil, fmt.Errorf("failed to set ocr language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to load page into ocr: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("ocr failed: %w", err)
	}

	bounds := img.Bounds()
	sx := page.Width / float64(bounds.Dx())
	sy := page.Height / float64(bounds.Dy())

	var lines []models.TextLine
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" || box.Confidence < p.minConfidence {
			continue
		}
		lines = append(lines, models.TextLine{
			BBox: models.NewBBox(
				float64(box.Box.Min.X)*sx,
				float64(box.Box.Min.Y)*sy,
				float64(box.Box.Max.X)*sx,
				float64(box.Box.Max.Y)*sy,
			),
			Text: text,
		})
	}

	p.log.Debug("ocr finished",
		logger.Int("page", page.Index),
		logger.Int("lines", len(lines)))

	return lines, nil
}

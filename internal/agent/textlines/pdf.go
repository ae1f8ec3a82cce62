package textlines

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/grahama1970/extractor-sub000/internal/models"
	"github.com/grahama1970/extractor-sub000/pkg/logger"
)

// PDFProvider reads the born-digital text layer. The source file is
// opened read-only and may be reopened concurrently by the fallback
// extraction path.
type PDFProvider struct {
	dpi int
	log logger.Logger
}

// NewPDFProvider creates a provider producing coordinates at the given
// render DPI, so text lines line up with rendered page images.
func NewPDFProvider(dpi int, log logger.Logger) *PDFProvider {
	return &PDFProvider{dpi: dpi, log: log.Named("textlines")}
}

// BuildPages creates the document pages with their pixel dimensions at
// the provider's DPI and the extracted text lines. Pages with no text
// layer come back with empty TextLines; callers route those to OCR.
func (p *PDFProvider) BuildPages(pdfPath string) ([]*models.Page, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	scale := float64(p.dpi) / 72

	var pages []*models.Page
	for num := 1; num <= r.NumPage(); num++ {
		pg := r.Page(num)
		if pg.V.IsNull() {
			continue
		}

		ptW, ptH := mediaBoxSize(pg)
		page := &models.Page{
			Index:  num - 1,
			Width:  ptW * scale,
			Height: ptH * scale,
		}
		page.TextLines = linesFromContent(pg.Content().Text, ptH, scale)
		pages = append(pages, page)
	}
	return pages, nil
}

// Lines re-extracts the text lines for one page.
func (p *PDFProvider) Lines(_ context.Context, pdfPath string, page *models.Page) ([]models.TextLine, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	num := page.Index + 1
	if num < 1 || num > r.NumPage() {
		return nil, fmt.Errorf("page %d out of range (1-%d)", num, r.NumPage())
	}
	pg := r.Page(num)
	if pg.V.IsNull() {
		return nil, fmt.Errorf("page %d is null", num)
	}

	_, ptH := mediaBoxSize(pg)
	scale := float64(p.dpi) / 72
	return linesFromContent(pg.Content().Text, ptH, scale), nil
}

func mediaBoxSize(page pdf.Page) (width, height float64) {
	width, height = 612, 792

	box := page.V.Key("MediaBox")
	if box.IsNull() || box.Len() < 4 {
		return width, height
	}
	x0, y0 := box.Index(0).Float64(), box.Index(1).Float64()
	x1, y1 := box.Index(2).Float64(), box.Index(3).Float64()
	if x1 > x0 && y1 > y0 {
		width, height = x1-x0, y1-y0
	}
	return width, height
}

// linesFromContent clusters per-glyph text items into baseline lines and
// converts them from PDF points (bottom-left origin) to document pixels
// (top-left origin) at the given scale.
func linesFromContent(chars []pdf.Text, pageHeightPt, scale float64) []models.TextLine {
	if len(chars) == 0 {
		return nil
	}

	sorted := make([]pdf.Text, len(chars))
	copy(sorted, chars)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var lines []models.TextLine
	var sb strings.Builder
	lineY := sorted[0].Y
	lineH := sorted[0].FontSize
	minX, maxX := sorted[0].X, sorted[0].X+sorted[0].W
	lastRight := maxX
	sb.WriteString(sorted[0].S)

	flush := func() {
		text := strings.TrimSpace(sb.String())
		if text != "" {
			top := (pageHeightPt - (lineY + lineH)) * scale
			bottom := (pageHeightPt - lineY) * scale
			lines = append(lines, models.TextLine{
				BBox: models.NewBBox(minX*scale, top, maxX*scale, bottom),
				Text: text,
			})
		}
		sb.Reset()
	}

	for _, ch := range sorted[1:] {
		sameLine := math.Abs(ch.Y-lineY) < math.Max(lineH/2, 1)
		if sameLine {
			gap := ch.X - lastRight
			if gap > math.Max(lineH/3, 1) {
				sb.WriteString(" ")
			}
			sb.WriteString(ch.S)
			if ch.X < minX {
				minX = ch.X
			}
			if ch.X+ch.W > maxX {
				maxX = ch.X + ch.W
			}
			lastRight = ch.X + ch.W
			continue
		}

		flush()
		lineY, lineH = ch.Y, ch.FontSize
		minX, maxX = ch.X, ch.X+ch.W
		lastRight = maxX
		sb.WriteString(ch.S)
	}
	flush()

	return lines
}

package camelot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Word is one positioned text chunk on a page, in PDF points with the
// origin at the bottom-left corner.
type Word struct {
	X    float64 // left edge
	Y    float64 // baseline
	W    float64 // width
	H    float64 // approximate height (font size)
	Text string
}

// Right returns the right edge of the word.
func (w Word) Right() float64 { return w.X + w.W }

// Top returns the top edge of the word in PDF coordinates.
func (w Word) Top() float64 { return w.Y + w.H }

// pageText holds the text content and geometry of one PDF page.
type pageText struct {
	Words  []Word
	Rects  []pdf.Rect
	Width  float64
	Height float64
}

// readPageText extracts positioned words and drawn rectangles from a
// 1-indexed PDF page. The source file is opened read-only; it may be
// reopened concurrently by other extraction paths.
func readPageText(pdfPath string, pageNum int) (*pageText, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	if pageNum < 1 || pageNum > r.NumPage() {
		return nil, fmt.Errorf("page %d out of range (1-%d)", pageNum, r.NumPage())
	}

	page := r.Page(pageNum)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page %d is null", pageNum)
	}

	width, height := mediaBoxSize(page)
	content := page.Content()

	return &pageText{
		Words:  groupWords(content.Text),
		Rects:  content.Rect,
		Width:  width,
		Height: height,
	}, nil
}

// mediaBoxSize returns the page width and height in points, defaulting to
// US Letter when the MediaBox is missing.
func mediaBoxSize(page pdf.Page) (width, height float64) {
	width, height = 612, 792

	box := page.V.Key("MediaBox")
	if box.IsNull() || box.Len() < 4 {
		return width, height
	}

	x0 := box.Index(0).Float64()
	y0 := box.Index(1).Float64()
	x1 := box.Index(2).Float64()
	y1 := box.Index(3).Float64()
	if x1 > x0 && y1 > y0 {
		width = x1 - x0
		height = y1 - y0
	}
	return width, height
}

// groupWords merges adjacent character chunks on the same baseline into
// words. The pdf library emits per-glyph text items; runs closer than a
// third of the font size belong to the same word.
func groupWords(chars []pdf.Text) []Word {
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

	var words []Word
	var sb strings.Builder
	cur := Word{X: sorted[0].X, Y: sorted[0].Y, H: sorted[0].FontSize}
	sb.WriteString(sorted[0].S)
	lastRight := sorted[0].X + sorted[0].W

	flush := func() {
		text := strings.TrimSpace(sb.String())
		if text != "" {
			cur.W = lastRight - cur.X
			cur.Text = text
			words = append(words, cur)
		}
		sb.Reset()
	}

	for _, ch := range sorted[1:] {
		gap := ch.X - lastRight
		sameLine := absFloat(ch.Y-cur.Y) < cur.H/2
		joinGap := cur.H / 3
		if joinGap <= 0 {
			joinGap = 2
		}

		if sameLine && gap >= -1 && gap <= joinGap && ch.S != " " {
			sb.WriteString(ch.S)
			lastRight = ch.X + ch.W
			continue
		}

		flush()
		cur = Word{X: ch.X, Y: ch.Y, H: ch.FontSize}
		sb.WriteString(ch.S)
		lastRight = ch.X + ch.W
	}
	flush()

	return words
}

// wordsInRegion filters words whose center lies inside the region,
// given in PDF points (bottom-left origin).
func wordsInRegion(words []Word, xMin, yMin, xMax, yMax float64) []Word {
	var out []Word
	for _, w := range words {
		cx := w.X + w.W/2
		cy := w.Y + w.H/2
		if cx >= xMin && cx <= xMax && cy >= yMin && cy <= yMax {
			out = append(out, w)
		}
	}
	return out
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

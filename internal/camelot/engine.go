// Package camelot is a heuristic, non-ML table extraction engine used as
// a fallback when structural recognition is low-confidence. The lattice
// flavor reconstructs the cell grid from ruling lines; the stream flavor
// reconstructs it from text alignment. The engine operates in
// page-fraction coordinates with the PDF origin at the bottom-left.
package camelot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/grahama1970/extractor-sub000/internal/models"
	"github.com/grahama1970/extractor-sub000/internal/render"
	"github.com/grahama1970/extractor-sub000/pkg/logger"
)

// ErrUnavailable indicates the engine's native dependency is missing.
// Detected once at pipeline start; fallback is then skipped for the run.
var ErrUnavailable = errors.New("fallback engine unavailable")

// Flavor selects the grid-detection strategy.
type Flavor string

const (
	FlavorLattice Flavor = "lattice"
	FlavorStream  Flavor = "stream"
)

// Params is one extraction parameter set.
type Params struct {
	Flavor    Flavor  `json:"flavor"`
	LineScale int     `json:"line_scale"`
	LineWidth float64 `json:"line_width"`
	EdgeTol   float64 `json:"edge_tol"`
	RowTol    float64 `json:"row_tol"`
	CopyText  bool    `json:"copy_text"`
}

// DefaultParams returns the engine defaults.
func DefaultParams() Params {
	return Params{
		Flavor:    FlavorLattice,
		LineScale: 15,
		LineWidth: 2,
		EdgeTol:   50,
		RowTol:    2,
		CopyText:  true,
	}
}

func (p Params) String() string {
	return fmt.Sprintf("flavor=%s line_scale=%d line_width=%.1f edge_tol=%.1f row_tol=%.1f copy_text=%t",
		p.Flavor, p.LineScale, p.LineWidth, p.EdgeTol, p.RowTol, p.CopyText)
}

// Report is the engine's self-assessment of one extraction.
type Report struct {
	// Accuracy is the percentage of region words placed into cells.
	Accuracy float64 `json:"accuracy"`
	// Whitespace is the percentage of empty cells.
	Whitespace float64 `json:"whitespace"`
	Page       int     `json:"page"`
}

// TableResult is one extracted table: a 2D text grid plus the report.
type TableResult struct {
	Page   int
	Rows   int
	Cols   int
	Grid   [][]string
	Report Report
}

// Cell returns the text at (row, col), or "" when out of range.
func (t *TableResult) Cell(row, col int) string {
	if row < 0 || row >= t.Rows || col < 0 || col >= t.Cols {
		return ""
	}
	return t.Grid[row][col]
}

// Engine extracts tables from a PDF page region.
type Engine struct {
	renderer render.PageRenderer
	dpi      int
	log      logger.Logger
}

// NewEngine creates an engine. The renderer is used for ruling-line
// detection on pages without vector graphics; it may be nil, in which
// case lattice falls back to vector rectangles only.
func NewEngine(renderer render.PageRenderer, log logger.Logger) *Engine {
	return &Engine{
		renderer: renderer,
		dpi:      150,
		log:      log,
	}
}

// Available probes the engine's dependencies. Callers check this once
// per run, not per table.
func (e *Engine) Available() error {
	if e.renderer == nil {
		return nil
	}
	if err := e.renderer.Available(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// ExtractTables extracts tables from the given region of a 1-indexed
// page. The region uses page-fraction coordinates per models.FracBox:
// Top holds the fraction of the region's lower PDF edge, Bottom the
// fraction of its upper PDF edge.
func (e *Engine) ExtractTables(ctx context.Context, pdfPath string, page int, region models.FracBox, params Params) ([]TableResult, error) {
	pt, err := readPageText(pdfPath, page)
	if err != nil {
		return nil, fmt.Errorf("failed to read page %d text: %w", page, err)
	}

	xMin := region.Left * pt.Width
	xMax := region.Right * pt.Width
	yMin := region.Top * pt.Height
	yMax := region.Bottom * pt.Height

	words := wordsInRegion(pt.Words, xMin, yMin, xMax, yMax)
	if len(words) == 0 {
		return nil, nil
	}

	var rowBounds, colBounds []float64
	switch params.Flavor {
	case FlavorStream:
		rowBounds, colBounds = streamBoundaries(words, params.RowTol, params.EdgeTol)
	case FlavorLattice:
		rowBounds, colBounds, err = e.latticeRegionBoundaries(ctx, pdfPath, page, pt, xMin, yMin, xMax, yMax, params)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown flavor %q", params.Flavor)
	}

	if len(rowBounds) < 2 || len(colBounds) < 2 {
		return nil, nil
	}

	result := buildGrid(words, rowBounds, colBounds, params)
	result.Page = page
	result.Report.Page = page

	return []TableResult{result}, nil
}

// latticeRegionBoundaries collects ruling lines from vector rectangles
// and, when none yield a grid, from a rendered page image.
func (e *Engine) latticeRegionBoundaries(ctx context.Context, pdfPath string, page int, pt *pageText, xMin, yMin, xMax, yMax float64, params Params) (rowBounds, colBounds []float64, err error) {
	horiz, vert := rulingsFromRects(pt.Rects, params.LineWidth)
	rowBounds, colBounds = latticeBoundaries(horiz, vert, xMin, yMin, xMax, yMax)
	if len(rowBounds) >= 2 && len(colBounds) >= 2 {
		return rowBounds, colBounds, nil
	}

	if e.renderer == nil {
		return rowBounds, colBounds, nil
	}

	img, err := e.renderer.RenderPage(ctx, pdfPath, page, e.dpi)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}

	ih, iv := rulingsFromImage(img, params.LineScale)
	bounds := img.Bounds()
	ph, pv := imageRulingsToPage(ih, iv, bounds.Dx(), bounds.Dy(), pt.Width, pt.Height)

	rowBounds, colBounds = latticeBoundaries(ph, pv, xMin, yMin, xMax, yMax)
	return rowBounds, colBounds, nil
}

// buildGrid assigns words to grid cells and computes the report.
// rowBounds is descending (PDF coordinates, top first), colBounds
// ascending.
func buildGrid(words []Word, rowBounds, colBounds []float64, params Params) TableResult {
	rows := len(rowBounds) - 1
	cols := len(colBounds) - 1

	grid := make([][]string, rows)
	for r := range grid {
		grid[r] = make([]string, cols)
	}

	assigned := 0
	for _, w := range words {
		r := findBand(w.Y+w.H/2, rowBounds)
		c := findColumn(w.X+w.W/2, colBounds)
		if r < 0 || c < 0 {
			continue
		}
		if grid[r][c] != "" {
			grid[r][c] += " "
		}
		grid[r][c] += w.Text
		assigned++
	}

	if params.CopyText {
		copySpanningText(grid)
	}

	empty := 0
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if strings.TrimSpace(grid[r][c]) == "" {
				empty++
			}
		}
	}

	accuracy := 0.0
	if len(words) > 0 {
		accuracy = 100 * float64(assigned) / float64(len(words))
	}
	whitespace := 0.0
	if rows*cols > 0 {
		whitespace = 100 * float64(empty) / float64(rows*cols)
	}

	return TableResult{
		Rows: rows,
		Cols: cols,
		Grid: grid,
		Report: Report{
			Accuracy:   accuracy,
			Whitespace: whitespace,
		},
	}
}

// findBand locates the row whose [lower, upper) band contains y.
// bounds is descending.
func findBand(y float64, bounds []float64) int {
	for i := 0; i < len(bounds)-1; i++ {
		if y <= bounds[i] && y >= bounds[i+1] {
			return i
		}
	}
	return -1
}

// findColumn locates the column whose [left, right) band contains x.
// bounds is ascending.
func findColumn(x float64, bounds []float64) int {
	for i := 0; i < len(bounds)-1; i++ {
		if x >= bounds[i] && x <= bounds[i+1] {
			return i
		}
	}
	return -1
}

// copySpanningText fills empty cells from the cell above, the common
// layout for row-spanning label columns in ruled tables.
func copySpanningText(grid [][]string) {
	for c := 0; c < len(grid[0]); c++ {
		for r := 1; r < len(grid); r++ {
			if strings.TrimSpace(grid[r][c]) == "" && strings.TrimSpace(grid[r-1][c]) != "" {
				// Only copy into fully empty rows' label column when the
				// row has content elsewhere; otherwise leave blank.
				if rowHasContent(grid[r], c) {
					grid[r][c] = grid[r-1][c]
				}
			}
		}
	}
}

func rowHasContent(row []string, skip int) bool {
	for i, v := range row {
		if i == skip {
			continue
		}
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

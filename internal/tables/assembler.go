package tables

import (
	"regexp"
	"sort"
	"strings"

	"github.com/grahama1970/extractor-sub000/config"
	"github.com/grahama1970/extractor-sub000/internal/models"
	"github.com/grahama1970/extractor-sub000/pkg/logger"
)

// leaderDots matches repeated dot runs such as ". . . ." left behind by
// table-of-contents leaders in OCR output.
var leaderDots = regexp.MustCompile(`(\.\s*){2,}`)

// Assembler converts raw structural-recognition output into cleaned,
// indexed cells and runs the row-split and dollar-column cleanup passes.
type Assembler struct {
	cfg config.AssemblerConfig
	log logger.Logger
}

// NewAssembler creates an assembler with the given cleanup settings.
func NewAssembler(cfg config.AssemblerConfig, log logger.Logger) *Assembler {
	return &Assembler{cfg: cfg, log: log.Named("assembler")}
}

// cleanText strips leader-dot runs and placeholder dots from one line.
// Returns "" when nothing meaningful remains.
func cleanText(s string) string {
	s = leaderDots.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if s == "." {
		return ""
	}
	return s
}

// Assemble builds a table from one region's recognition output. The
// second return value is false when recognition produced zero cells; the
// table is still returned so the caller can treat the empty result as a
// forced-fallback signal rather than an error.
func (a *Assembler) Assemble(region models.TableRegion) (*models.Table, bool) {
	table := models.NewTable(region.PageIndex, region.BBox)
	if len(region.RawCells) == 0 {
		return table, false
	}

	cells := make([]*models.Cell, 0, len(region.RawCells))
	for _, raw := range region.RawCells {
		var lines []string
		for _, line := range raw.Lines {
			if cleaned := cleanText(line); cleaned != "" {
				lines = append(lines, cleaned)
			}
		}

		rowSpan, colSpan := raw.RowSpan, raw.ColSpan
		if rowSpan < 1 {
			rowSpan = 1
		}
		if colSpan < 1 {
			colSpan = 1
		}

		cells = append(cells, &models.Cell{
			Row:      raw.Row,
			Col:      raw.Col,
			RowSpan:  rowSpan,
			ColSpan:  colSpan,
			IsHeader: raw.IsHeader,
			Lines:    lines,
			Polygon:  raw.Polygon,
		})
	}

	compactIndices(cells)
	sortCells(cells)
	table.Cells = cells

	return table, true
}

// compactIndices remaps row and column anchors onto zero-based contiguous
// indices, closing any gaps the recognizer left.
func compactIndices(cells []*models.Cell) {
	rowMap := indexMap(cells, func(c *models.Cell) int { return c.Row })
	colMap := indexMap(cells, func(c *models.Cell) int { return c.Col })
	for _, c := range cells {
		c.Row = rowMap[c.Row]
		c.Col = colMap[c.Col]
	}
}

func indexMap(cells []*models.Cell, key func(*models.Cell) int) map[int]int {
	seen := make(map[int]bool, len(cells))
	for _, c := range cells {
		seen[key(c)] = true
	}
	keys := make([]int, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	m := make(map[int]int, len(keys))
	for i, k := range keys {
		m[k] = i
	}
	return m
}

func sortCells(cells []*models.Cell) {
	sort.SliceStable(cells, func(i, j int) bool {
		if cells[i].Row != cells[j].Row {
			return cells[i].Row < cells[j].Row
		}
		return cells[i].Col < cells[j].Col
	})
}

// AssignText replaces cell text with the given lines: each line goes to
// the cell whose bounding box it overlaps most, by intersection area.
// Ties go to the lower cell index; lines overlapping no cell are
// dropped. Line-level text supersedes whatever word-level text the
// recognizer attached, so with no lines the cells are left untouched.
// Lines and cells must share one coordinate space.
func (a *Assembler) AssignText(cells []*models.Cell, lines []models.TextLine) {
	if len(lines) == 0 {
		return
	}
	for _, cell := range cells {
		cell.Lines = nil
	}

	for _, line := range lines {
		text := cleanText(line.Text)
		if text == "" {
			continue
		}

		bestIdx := -1
		bestArea := 0.0
		for i, cell := range cells {
			area := cell.BBox().IntersectionArea(line.BBox)
			if area > bestArea {
				bestArea = area
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			continue
		}
		cells[bestIdx].Lines = append(cells[bestIdx].Lines, text)
	}
}

// rowSplit classifies one table row for SplitCombinedRows.
type rowSplit struct {
	// lineCount is the number of rows this one splits into; 1 means no split.
	lineCount int
	// partialCol is the column holding the stacked lines in the partial
	// variant; -1 for the full variant.
	partialCol int
}

// SplitCombinedRows detects rows where the recognizer collapsed several
// logical rows into one, visible as equal stacks of text lines across the
// row, and splits them apart. The full variant requires the majority of
// rows to show the pattern so a lone multi-line cell (a wrapped
// paragraph) is not torn apart. The partial variant handles rows where a
// single column carries the stack. Returns the number of rows split.
func (a *Assembler) SplitCombinedRows(t *models.Table) int {
	rowCount := t.RowCount()
	if rowCount == 0 {
		return 0
	}

	splits := make([]rowSplit, rowCount)
	fullCandidates := 0
	for row := 0; row < rowCount; row++ {
		splits[row] = a.classifyRow(t, row)
		if splits[row].lineCount > 1 && splits[row].partialCol < 0 {
			fullCandidates++
		}
	}

	// The full pattern must dominate the table before any full split runs.
	majority := float64(fullCandidates)/float64(rowCount) >= a.cfg.SplitRowFraction

	var out []*models.Cell
	offset := 0
	splitRows := 0

	for row := 0; row < rowCount; row++ {
		rowCells := t.RowCells(row)
		sp := splits[row]

		apply := sp.lineCount > 1 && (sp.partialCol >= 0 || majority)
		if !apply {
			for _, c := range rowCells {
				c.Row = row + offset
				out = append(out, c)
			}
			continue
		}

		out = append(out, splitRow(rowCells, row+offset, sp)...)
		offset += sp.lineCount - 1
		splitRows++
	}

	if splitRows == 0 {
		return 0
	}

	sortCells(out)
	t.ReplaceCells(out)
	return splitRows
}

// classifyRow decides whether one row matches the full or partial
// stacked-lines pattern. Rows crossed by a spanning cell never split.
func (a *Assembler) classifyRow(t *models.Table, row int) rowSplit {
	none := rowSplit{lineCount: 1, partialCol: -1}

	for _, c := range t.Cells {
		if c.RowSpan > 1 && c.Row <= row && c.Row+c.RowSpan > row {
			return none
		}
	}

	rowCells := t.RowCells(row)
	if len(rowCells) == 0 {
		return none
	}

	// Full variant: every cell stacked to the same count.
	count := len(rowCells[0].Lines)
	full := count > 1
	for _, c := range rowCells[1:] {
		if len(c.Lines) != count {
			full = false
			break
		}
	}
	if full {
		return rowSplit{lineCount: count, partialCol: -1}
	}

	// Partial variant: a wide row where exactly one column carries the
	// stack and the rest are single lines.
	if len(rowCells) < a.cfg.MinPartialRowCells {
		return none
	}
	multiCol := -1
	multiCount := 0
	for _, c := range rowCells {
		switch {
		case len(c.Lines) <= 1:
		case multiCol < 0:
			multiCol = c.Col
			multiCount = len(c.Lines)
		default:
			return none
		}
	}
	if multiCol < 0 {
		return none
	}
	return rowSplit{lineCount: multiCount, partialCol: multiCol}
}

// splitRow expands one combined row into lineCount new rows starting at
// baseRow. Cell polygons are divided into equal horizontal bands.
func splitRow(rowCells []*models.Cell, baseRow int, sp rowSplit) []*models.Cell {
	var out []*models.Cell

	for _, c := range rowCells {
		stacked := sp.partialCol < 0 || c.Col == sp.partialCol
		if !stacked {
			c.Row = baseRow
			out = append(out, c)
			continue
		}

		bbox := c.BBox()
		bandH := bbox.Height() / float64(sp.lineCount)
		for i := 0; i < sp.lineCount; i++ {
			var lines []string
			if i < len(c.Lines) {
				lines = []string{c.Lines[i]}
			}
			band := models.NewBBox(
				bbox.Left,
				bbox.Top+float64(i)*bandH,
				bbox.Right,
				bbox.Top+float64(i+1)*bandH,
			)
			out = append(out, &models.Cell{
				Row:      baseRow + i,
				Col:      c.Col,
				RowSpan:  1,
				ColSpan:  c.ColSpan,
				IsHeader: c.IsHeader && i == 0,
				Lines:    lines,
				Polygon:  models.PolygonFromBBox(band),
			})
		}
	}

	return out
}

// MergeDollarColumns folds currency-symbol columns into their amount
// neighbors. A column qualifies when every cell in it is empty or exactly
// "$", no cell spans into or out of it, the table has more than one row,
// and it is not the last column. Returns the number of columns merged.
func (a *Assembler) MergeDollarColumns(t *models.Table) int {
	merged := 0
	for {
		col := a.findDollarColumn(t)
		if col < 0 {
			return merged
		}
		a.foldColumn(t, col)
		merged++
	}
}

func (a *Assembler) findDollarColumn(t *models.Table) int {
	if t.RowCount() <= 1 {
		return -1
	}
	colCount := t.ColCount()

	for col := 0; col < colCount-1; col++ {
		sawDollar := false
		ok := true
		for _, c := range t.Cells {
			if c.Col < col && c.Col+c.ColSpan > col {
				ok = false
				break
			}
			if c.Col != col {
				continue
			}
			if c.ColSpan > 1 || c.RowSpan > 1 {
				ok = false
				break
			}
			text := strings.TrimSpace(c.Text())
			switch text {
			case "$":
				// Each symbol needs an amount cell to fold into.
				if t.CellAt(c.Row, col+1) == nil {
					ok = false
				}
				sawDollar = true
			case "":
			default:
				ok = false
			}
			if !ok {
				break
			}
		}
		if ok && sawDollar {
			return col
		}
	}
	return -1
}

// foldColumn prefixes each "$" onto the cell in the next column and
// removes the folded column, shifting later columns left.
func (a *Assembler) foldColumn(t *models.Table, col int) {
	var kept []*models.Cell
	for _, c := range t.Cells {
		if c.Col != col {
			kept = append(kept, c)
			continue
		}
		if strings.TrimSpace(c.Text()) != "$" {
			continue
		}
		neighbor := t.CellAt(c.Row, col+1)
		if len(neighbor.Lines) == 0 {
			neighbor.Lines = []string{"$"}
		} else {
			neighbor.Lines[0] = "$" + neighbor.Lines[0]
		}
	}

	for _, c := range kept {
		if c.Col > col {
			c.Col--
		}
	}
	sortCells(kept)
	t.ReplaceCells(kept)
}

package models

import (
	"strings"

	"github.com/google/uuid"
)

// ExtractionMethod records which engine produced a table's cells.
type ExtractionMethod string

const (
	// MethodPrimary is the structural-recognition model output.
	MethodPrimary ExtractionMethod = "primary"
	// MethodCamelot is the fallback grid-line engine with default parameters.
	MethodCamelot ExtractionMethod = "camelot"
	// MethodEnhancedCamelot is the fallback engine after parameter search.
	MethodEnhancedCamelot ExtractionMethod = "enhanced_camelot"
)

// MergeDirection describes how a source table was appended to a destination.
type MergeDirection string

const (
	MergeBottom MergeDirection = "bottom"
	MergeRight  MergeDirection = "right"
)

// MergeProvenance records the tables absorbed into a merged table.
type MergeProvenance struct {
	SourceIDs  []string       `json:"sourceIds"`
	Direction  MergeDirection `json:"direction"`
	Confidence float64        `json:"confidence"`
}

// TableMetadata is the typed metadata attached to a table. Fields are set
// through the pipeline rather than injected ad hoc onto the block.
type TableMetadata struct {
	ExtractionMethod ExtractionMethod `json:"extractionMethod"`
	QualityScore     float64          `json:"qualityScore"`
	Merge            *MergeProvenance `json:"merge,omitempty"`
}

// Cell is a single table cell. Row/Col are zero-based grid indices,
// contiguous per table after assembly. The polygon is in absolute document
// coordinates.
type Cell struct {
	Row      int      `json:"row"`
	Col      int      `json:"col"`
	RowSpan  int      `json:"rowSpan"`
	ColSpan  int      `json:"colSpan"`
	IsHeader bool     `json:"isHeader"`
	Lines    []string `json:"lines"`
	Polygon  Polygon  `json:"polygon"`
}

// Text returns the cell's text lines joined with newlines.
func (c *Cell) Text() string {
	return strings.Join(c.Lines, "\n")
}

// IsEmpty reports whether the cell has no non-whitespace text.
func (c *Cell) IsEmpty() bool {
	for _, line := range c.Lines {
		if strings.TrimSpace(line) != "" {
			return false
		}
	}
	return true
}

// BBox returns the bounding box of the cell polygon.
func (c *Cell) BBox() BBox {
	return c.Polygon.BoundingBox()
}

// Table is an ordered set of cells plus extraction metadata. Cells are
// owned by exactly one table; merges move ownership to the destination.
type Table struct {
	ID        string        `json:"id"`
	PageIndex int           `json:"pageIndex"`
	BBox      BBox          `json:"bbox"`
	Cells     []*Cell       `json:"cells"`
	Metadata  TableMetadata `json:"metadata"`
}

// NewTable creates an empty table on the given page.
func NewTable(pageIndex int, bbox BBox) *Table {
	return &Table{
		ID:        uuid.New().String(),
		PageIndex: pageIndex,
		BBox:      bbox,
		Metadata:  TableMetadata{ExtractionMethod: MethodPrimary},
	}
}

// RowCount returns the number of grid rows covered by the cells.
func (t *Table) RowCount() int {
	max := 0
	for _, c := range t.Cells {
		span := c.RowSpan
		if span < 1 {
			span = 1
		}
		if c.Row+span > max {
			max = c.Row + span
		}
	}
	return max
}

// ColCount returns the number of grid columns covered by the cells.
func (t *Table) ColCount() int {
	max := 0
	for _, c := range t.Cells {
		span := c.ColSpan
		if span < 1 {
			span = 1
		}
		if c.Col+span > max {
			max = c.Col + span
		}
	}
	return max
}

// CellAt returns the cell anchored at (row, col), or nil.
func (t *Table) CellAt(row, col int) *Cell {
	for _, c := range t.Cells {
		if c.Row == row && c.Col == col {
			return c
		}
	}
	return nil
}

// RowCells returns the cells anchored in the given row, in column order.
// Cells are stored row-major so the slice order is already stable.
func (t *Table) RowCells(row int) []*Cell {
	var cells []*Cell
	for _, c := range t.Cells {
		if c.Row == row {
			cells = append(cells, c)
		}
	}
	return cells
}

// ReplaceCells swaps in a new cell set, typically after a fallback
// extraction supersedes the primary result.
func (t *Table) ReplaceCells(cells []*Cell) {
	t.Cells = cells
}

// Text renders the table as tab-separated rows, for logging and debugging.
func (t *Table) Text() string {
	var sb strings.Builder
	for r := 0; r < t.RowCount(); r++ {
		for i, c := range t.RowCells(r) {
			if i > 0 {
				sb.WriteString("\t")
			}
			sb.WriteString(strings.ReplaceAll(c.Text(), "\n", " "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// RawCell is one candidate cell from the structural-recognition model,
// before assembly. The polygon is in the same coordinate space as the
// region's text lines.
type RawCell struct {
	Polygon  Polygon
	Row      int
	Col      int
	RowSpan  int
	ColSpan  int
	IsHeader bool
	Lines    []string
}

// TableRegion is a detected table area on one page together with the
// unassembled recognition output. Regions are consumed entirely within one
// pipeline pass.
type TableRegion struct {
	PageIndex int
	BBox      BBox
	RawCells  []RawCell
}

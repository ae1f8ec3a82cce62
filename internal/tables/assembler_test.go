package tables

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grahama1970/extractor-sub000/config"
	"github.com/grahama1970/extractor-sub000/internal/models"
	"github.com/grahama1970/extractor-sub000/pkg/logger"
)

// cellBox places a grid cell on a 100x50 lattice for geometry fixtures.
func cellBox(row, col int) models.BBox {
	return models.NewBBox(float64(col*100), float64(row*50), float64(col*100+100), float64(row*50+50))
}

func textCell(row, col int, lines ...string) *models.Cell {
	return &models.Cell{
		Row:     row,
		Col:     col,
		RowSpan: 1,
		ColSpan: 1,
		Lines:   lines,
		Polygon: models.PolygonFromBBox(cellBox(row, col)),
	}
}

func newTestAssembler(t *testing.T) *Assembler {
	t.Helper()
	return NewAssembler(config.DefaultPipelineConfig().Assembler, logger.NewTestLogger())
}

func tableWith(cells ...*models.Cell) *models.Table {
	tbl := models.NewTable(0, models.NewBBox(0, 0, 400, 400))
	tbl.Cells = cells
	return tbl
}

func TestAssembleCompactsIndices(t *testing.T) {
	a := newTestAssembler(t)

	region := models.TableRegion{
		PageIndex: 0,
		BBox:      models.NewBBox(0, 0, 400, 200),
		RawCells: []models.RawCell{
			{Row: 0, Col: 1, Lines: []string{"a"}, Polygon: models.PolygonFromBBox(cellBox(0, 0))},
			{Row: 0, Col: 3, Lines: []string{"b"}, Polygon: models.PolygonFromBBox(cellBox(0, 1))},
			{Row: 2, Col: 1, Lines: []string{"c"}, Polygon: models.PolygonFromBBox(cellBox(1, 0))},
			{Row: 2, Col: 3, Lines: []string{"d"}, Polygon: models.PolygonFromBBox(cellBox(1, 1))},
		},
	}

	tbl, ok := a.Assemble(region)
	require.True(t, ok)
	require.Len(t, tbl.Cells, 4)

	assert.Equal(t, 2, tbl.RowCount())
	assert.Equal(t, 2, tbl.ColCount())
	assert.Equal(t, "a", tbl.CellAt(0, 0).Text())
	assert.Equal(t, "d", tbl.CellAt(1, 1).Text())
}

func TestAssembleEmptyRegion(t *testing.T) {
	a := newTestAssembler(t)

	tbl, ok := a.Assemble(models.TableRegion{PageIndex: 0, BBox: models.NewBBox(0, 0, 100, 100)})
	assert.False(t, ok)
	require.NotNil(t, tbl)
	assert.Empty(t, tbl.Cells)
}

func TestAssembleStripsLeaderDots(t *testing.T) {
	a := newTestAssembler(t)

	region := models.TableRegion{
		BBox: models.NewBBox(0, 0, 200, 50),
		RawCells: []models.RawCell{
			{Row: 0, Col: 0, Lines: []string{"Introduction . . . . 5"}, Polygon: models.PolygonFromBBox(cellBox(0, 0))},
			{Row: 0, Col: 1, Lines: []string{"."}, Polygon: models.PolygonFromBBox(cellBox(0, 1))},
		},
	}

	tbl, ok := a.Assemble(region)
	require.True(t, ok)

	assert.Equal(t, "Introduction 5", tbl.CellAt(0, 0).Text())
	assert.True(t, tbl.CellAt(0, 1).IsEmpty())
}

func TestAssignTextMaxIntersection(t *testing.T) {
	a := newTestAssembler(t)
	cells := []*models.Cell{textCell(0, 0), textCell(0, 1)}

	lines := []models.TextLine{
		// Mostly inside cell (0,1).
		{BBox: models.NewBBox(120, 10, 190, 40), Text: "value"},
		// No overlap with any cell; dropped.
		{BBox: models.NewBBox(500, 500, 600, 550), Text: "stray"},
	}

	a.AssignText(cells, lines)

	assert.Empty(t, cells[0].Lines)
	assert.Equal(t, []string{"value"}, cells[1].Lines)
}

func TestAssignTextTieGoesToLowerIndex(t *testing.T) {
	a := newTestAssembler(t)
	cells := []*models.Cell{textCell(0, 0), textCell(0, 1)}

	// Exactly half over each cell.
	a.AssignText(cells, []models.TextLine{
		{BBox: models.NewBBox(50, 0, 150, 50), Text: "split"},
	})

	assert.Equal(t, []string{"split"}, cells[0].Lines)
	assert.Empty(t, cells[1].Lines)
}

func TestAssignTextDeterminism(t *testing.T) {
	a := newTestAssembler(t)

	lines := []models.TextLine{
		{BBox: models.NewBBox(10, 5, 90, 45), Text: "r0c0"},
		{BBox: models.NewBBox(110, 5, 190, 45), Text: "r0c1"},
		{BBox: models.NewBBox(10, 55, 90, 95), Text: "r1c0"},
		{BBox: models.NewBBox(50, 0, 150, 50), Text: "tie"},
	}

	run := func() [][]string {
		cells := []*models.Cell{textCell(0, 0), textCell(0, 1), textCell(1, 0), textCell(1, 1)}
		a.AssignText(cells, lines)
		out := make([][]string, len(cells))
		for i, c := range cells {
			out[i] = c.Lines
		}
		return out
	}

	assert.Equal(t, run(), run())
}

func TestAssignTextReplacesRecognizerWords(t *testing.T) {
	a := newTestAssembler(t)
	cells := []*models.Cell{textCell(0, 0), textCell(0, 1)}
	cells[0].Lines = []string{"Total", "revenue"}
	cells[1].Lines = []string{"1,234"}

	a.AssignText(cells, []models.TextLine{
		{BBox: models.NewBBox(10, 10, 90, 40), Text: "Total revenue"},
		{BBox: models.NewBBox(110, 10, 190, 40), Text: "1,234"},
	})

	assert.Equal(t, []string{"Total revenue"}, cells[0].Lines)
	assert.Equal(t, []string{"1,234"}, cells[1].Lines)
}

func TestAssignTextNoLinesKeepsRecognizerWords(t *testing.T) {
	a := newTestAssembler(t)
	cells := []*models.Cell{textCell(0, 0)}
	cells[0].Lines = []string{"kept"}

	a.AssignText(cells, nil)

	assert.Equal(t, []string{"kept"}, cells[0].Lines)
}

func TestSplitCombinedRowsFullVariant(t *testing.T) {
	a := newTestAssembler(t)
	tbl := tableWith(
		textCell(0, 0, "alpha", "beta"),
		textCell(0, 1, "1", "2"),
		textCell(1, 0, "gamma", "delta"),
		textCell(1, 1, "3", "4"),
	)

	split := a.SplitCombinedRows(tbl)

	assert.Equal(t, 2, split)
	require.Equal(t, 4, tbl.RowCount())
	assert.Equal(t, "alpha", tbl.CellAt(0, 0).Text())
	assert.Equal(t, "beta", tbl.CellAt(1, 0).Text())
	assert.Equal(t, "2", tbl.CellAt(1, 1).Text())
	assert.Equal(t, "gamma", tbl.CellAt(2, 0).Text())
	assert.Equal(t, "4", tbl.CellAt(3, 1).Text())
}

func TestSplitCombinedRowsIdempotent(t *testing.T) {
	a := newTestAssembler(t)
	tbl := tableWith(
		textCell(0, 0, "alpha", "beta"),
		textCell(0, 1, "1", "2"),
	)

	require.Equal(t, 1, a.SplitCombinedRows(tbl))
	assert.Equal(t, 0, a.SplitCombinedRows(tbl))
	assert.Equal(t, 2, tbl.RowCount())
}

func TestSplitCombinedRowsMajorityGate(t *testing.T) {
	a := newTestAssembler(t)
	// One wrapped paragraph cell in a three-row table must not trigger a
	// split: 1 of 3 rows is below the 0.5 fraction, and the row is too
	// narrow for the partial variant.
	tbl := tableWith(
		textCell(0, 0, "header"),
		textCell(0, 1, "header"),
		textCell(1, 0, "a long", "wrapped note"),
		textCell(1, 1, "x", "y"),
		textCell(2, 0, "footer"),
		textCell(2, 1, "footer"),
	)

	assert.Equal(t, 0, a.SplitCombinedRows(tbl))
	assert.Equal(t, 3, tbl.RowCount())
}

func TestSplitCombinedRowsPartialVariant(t *testing.T) {
	a := newTestAssembler(t)
	tbl := tableWith(
		textCell(0, 0, "id"),
		textCell(0, 1, "name"),
		textCell(0, 2, "first wrapped", "second wrapped", "third wrapped"),
		textCell(0, 3, "total"),
		textCell(1, 0, "7"),
		textCell(1, 1, "x"),
		textCell(1, 2, "y"),
		textCell(1, 3, "z"),
	)

	split := a.SplitCombinedRows(tbl)

	assert.Equal(t, 1, split)
	require.Equal(t, 4, tbl.RowCount())
	assert.Equal(t, "id", tbl.CellAt(0, 0).Text())
	assert.Equal(t, "first wrapped", tbl.CellAt(0, 2).Text())
	assert.Equal(t, "second wrapped", tbl.CellAt(1, 2).Text())
	assert.Equal(t, "third wrapped", tbl.CellAt(2, 2).Text())
	// The following row shifted down by two.
	assert.Equal(t, "7", tbl.CellAt(3, 0).Text())
}

func TestSplitCombinedRowsSkipsSpannedRows(t *testing.T) {
	a := newTestAssembler(t)
	spanner := textCell(0, 0, "spans", "down")
	spanner.RowSpan = 2
	tbl := tableWith(
		spanner,
		textCell(0, 1, "a", "b"),
		textCell(1, 1, "c", "d"),
	)

	assert.Equal(t, 0, a.SplitCombinedRows(tbl))
}

func TestMergeDollarColumns(t *testing.T) {
	a := newTestAssembler(t)
	tbl := tableWith(
		textCell(0, 0, "rent"),
		textCell(0, 1, "$"),
		textCell(0, 2, "1200"),
		textCell(1, 0, "food"),
		textCell(1, 1, "$"),
		textCell(1, 2, "340"),
	)
	before := allText(tbl)

	merged := a.MergeDollarColumns(tbl)

	assert.Equal(t, 1, merged)
	assert.Equal(t, 2, tbl.ColCount())
	assert.Equal(t, "$1200", tbl.CellAt(0, 1).Text())
	assert.Equal(t, "$340", tbl.CellAt(1, 1).Text())

	// No text lost, only relocated.
	assert.Equal(t, before, allText(tbl))

	// Post-condition: no surviving column is all "$" or empty.
	for col := 0; col < tbl.ColCount(); col++ {
		allDollar := true
		for _, c := range tbl.Cells {
			if c.Col == col && strings.TrimSpace(c.Text()) != "$" && !c.IsEmpty() {
				allDollar = false
			}
		}
		assert.False(t, allDollar, "column %d is still a dollar column", col)
	}
}

func TestMergeDollarColumnsPreconditions(t *testing.T) {
	a := newTestAssembler(t)

	// Single-row tables never merge.
	single := tableWith(textCell(0, 0, "rent"), textCell(0, 1, "$"), textCell(0, 2, "1200"))
	assert.Equal(t, 0, a.MergeDollarColumns(single))

	// The last column never merges, even when all "$".
	last := tableWith(
		textCell(0, 0, "rent"), textCell(0, 1, "$"),
		textCell(1, 0, "food"), textCell(1, 1, "$"),
	)
	assert.Equal(t, 0, a.MergeDollarColumns(last))

	// Mixed text in the candidate column blocks the merge.
	mixed := tableWith(
		textCell(0, 0, "rent"), textCell(0, 1, "$"), textCell(0, 2, "1200"),
		textCell(1, 0, "food"), textCell(1, 1, "eur"), textCell(1, 2, "340"),
	)
	assert.Equal(t, 0, a.MergeDollarColumns(mixed))
}

// allText collects every cell line in a sorted multiset for text
// preservation checks, ignoring position.
func allText(t *models.Table) map[string]int {
	counts := make(map[string]int)
	for _, c := range t.Cells {
		for _, line := range c.Lines {
			for _, part := range strings.Split(line, "$") {
				if part != "" {
					counts[part]++
				}
			}
			if strings.Contains(line, "$") {
				counts["$"]++
			}
		}
	}
	return counts
}

package camelot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// word builds a test word with its center at (cx, cy).
func word(cx, cy float64, text string) Word {
	return Word{X: cx - 5, Y: cy - 4, W: 10, H: 8, Text: text}
}

func TestBuildGridAssignsWordsByCenter(t *testing.T) {
	rowBounds := []float64{100, 50, 0} // descending, PDF coordinates
	colBounds := []float64{0, 50, 100}

	words := []Word{
		word(25, 75, "a"),
		word(75, 75, "b"),
		word(25, 25, "c"),
		word(75, 25, "d"),
	}

	result := buildGrid(words, rowBounds, colBounds, Params{})

	require.Equal(t, 2, result.Rows)
	require.Equal(t, 2, result.Cols)
	assert.Equal(t, "a", result.Cell(0, 0))
	assert.Equal(t, "b", result.Cell(0, 1))
	assert.Equal(t, "c", result.Cell(1, 0))
	assert.Equal(t, "d", result.Cell(1, 1))
	assert.Equal(t, 100.0, result.Report.Accuracy)
	assert.Equal(t, 0.0, result.Report.Whitespace)
}

func TestBuildGridConcatenatesWordsInOneCell(t *testing.T) {
	rowBounds := []float64{100, 0}
	colBounds := []float64{0, 100}

	words := []Word{
		word(30, 50, "hello"),
		word(60, 50, "world"),
	}

	result := buildGrid(words, rowBounds, colBounds, Params{})

	assert.Equal(t, "hello world", result.Cell(0, 0))
}

func TestBuildGridReportsUnassignedWords(t *testing.T) {
	rowBounds := []float64{100, 50}
	colBounds := []float64{0, 50}

	words := []Word{
		word(25, 75, "in"),
		word(200, 200, "out"),
	}

	result := buildGrid(words, rowBounds, colBounds, Params{})

	assert.Equal(t, 50.0, result.Report.Accuracy)
}

func TestBuildGridCopyTextFillsLabelColumn(t *testing.T) {
	rowBounds := []float64{100, 50, 0}
	colBounds := []float64{0, 50, 100}

	// Row-spanning label: present in the first row only, while the
	// second row has content in another column.
	words := []Word{
		word(25, 75, "Label"),
		word(75, 75, "a"),
		word(75, 25, "b"),
	}

	withCopy := buildGrid(words, rowBounds, colBounds, Params{CopyText: true})
	assert.Equal(t, "Label", withCopy.Cell(1, 0))

	withoutCopy := buildGrid(words, rowBounds, colBounds, Params{CopyText: false})
	assert.Equal(t, "", withoutCopy.Cell(1, 0))
}

func TestCopyTextSkipsFullyEmptyRows(t *testing.T) {
	grid := [][]string{
		{"Label", "a"},
		{"", ""},
	}
	copySpanningText(grid)

	assert.Equal(t, "", grid[1][0])
}

func TestFindBandDescendingBounds(t *testing.T) {
	bounds := []float64{100, 50, 0}

	assert.Equal(t, 0, findBand(75, bounds))
	assert.Equal(t, 1, findBand(25, bounds))
	assert.Equal(t, -1, findBand(150, bounds))
	assert.Equal(t, -1, findBand(-1, bounds))
}

func TestFindColumnAscendingBounds(t *testing.T) {
	bounds := []float64{0, 50, 100}

	assert.Equal(t, 0, findColumn(25, bounds))
	assert.Equal(t, 1, findColumn(75, bounds))
	assert.Equal(t, -1, findColumn(150, bounds))
}

func TestWordsInRegionFiltersByCenter(t *testing.T) {
	words := []Word{
		word(50, 50, "inside"),
		word(500, 500, "outside"),
		// Center on the region edge still counts.
		word(100, 50, "edge"),
	}

	got := wordsInRegion(words, 0, 0, 100, 100)

	require.Len(t, got, 2)
	assert.Equal(t, "inside", got[0].Text)
	assert.Equal(t, "edge", got[1].Text)
}

func TestTableResultCellOutOfRange(t *testing.T) {
	result := TableResult{Rows: 1, Cols: 1, Grid: [][]string{{"x"}}}

	assert.Equal(t, "x", result.Cell(0, 0))
	assert.Equal(t, "", result.Cell(1, 0))
	assert.Equal(t, "", result.Cell(0, -1))
}

func TestParamsString(t *testing.T) {
	s := DefaultParams().String()

	assert.Contains(t, s, "flavor=lattice")
	assert.Contains(t, s, "line_scale=15")
}

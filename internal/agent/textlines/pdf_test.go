package textlines

import (
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func glyph(s string, x, y, w float64) pdf.Text {
	return pdf.Text{S: s, X: x, Y: y, W: w, FontSize: 12}
}

func TestLinesFromContentClustersBaselines(t *testing.T) {
	chars := []pdf.Text{
		glyph("H", 10, 700, 7),
		glyph("i", 17, 700, 3),
		glyph("B", 10, 650, 7),
		glyph("y", 17, 650, 6),
		glyph("e", 23, 650, 6),
	}

	lines := linesFromContent(chars, 792, 1)

	require.Len(t, lines, 2)
	assert.Equal(t, "Hi", lines[0].Text)
	assert.Equal(t, "Bye", lines[1].Text)
}

func TestLinesFromContentInsertsWordGaps(t *testing.T) {
	// The gap between the words exceeds a third of the font size.
	chars := []pdf.Text{
		glyph("a", 10, 700, 5),
		glyph("b", 40, 700, 5),
	}

	lines := linesFromContent(chars, 792, 1)

	require.Len(t, lines, 1)
	assert.Equal(t, "a b", lines[0].Text)
}

func TestLinesFromContentConvertsCoordinates(t *testing.T) {
	// One glyph at baseline y=700, font size 12, on a 792pt page,
	// rendered at 2x scale.
	chars := []pdf.Text{glyph("x", 100, 700, 10)}

	lines := linesFromContent(chars, 792, 2)

	require.Len(t, lines, 1)
	box := lines[0].BBox
	// Top-left origin: top = (792 - (700+12)) * 2, bottom = (792 - 700) * 2.
	assert.InDelta(t, 160, box.Top, 1e-9)
	assert.InDelta(t, 184, box.Bottom, 1e-9)
	assert.InDelta(t, 200, box.Left, 1e-9)
	assert.InDelta(t, 220, box.Right, 1e-9)
}

func TestLinesFromContentSkipsWhitespaceOnlyLines(t *testing.T) {
	chars := []pdf.Text{glyph("  ", 10, 700, 5)}

	assert.Empty(t, linesFromContent(chars, 792, 1))
}

func TestLinesFromContentEmptyInput(t *testing.T) {
	assert.Nil(t, linesFromContent(nil, 792, 1))
}

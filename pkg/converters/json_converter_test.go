package converters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grahama1970/extractor-sub000/internal/models"
	"github.com/grahama1970/extractor-sub000/internal/tables"
)

func sampleDocument() *models.Document {
	page := &models.Page{Index: 0, Width: 1000, Height: 2000}

	table := models.NewTable(0, models.NewBBox(100, 100, 500, 300))
	table.Metadata.ExtractionMethod = models.MethodCamelot
	table.Metadata.QualityScore = 0.92
	table.Cells = []*models.Cell{
		{Row: 0, Col: 0, RowSpan: 1, ColSpan: 1, IsHeader: true, Lines: []string{"name"}},
		{Row: 0, Col: 1, RowSpan: 1, ColSpan: 1, IsHeader: true, Lines: []string{"value"}},
		{Row: 1, Col: 0, RowSpan: 1, ColSpan: 1, Lines: []string{"alpha"}},
		{Row: 1, Col: 1, RowSpan: 1, ColSpan: 1, Lines: []string{"1"}},
	}
	page.AddTable(table)

	return &models.Document{ID: "doc-1", Name: "report.pdf", Pages: []*models.Page{page}}
}

func TestConvertDocument(t *testing.T) {
	doc := sampleDocument()
	stats := tables.Stats{Regions: 1, Tables: 1, FallbackRuns: 1, FallbackAccepted: 1, FallbackSkipped: true}

	result, err := NewJSONConverter().Convert(doc, stats)

	require.NoError(t, err)
	assert.Equal(t, "completed", result.Status)
	assert.Equal(t, "report.pdf", result.Metadata.FileName)
	assert.Equal(t, 1, result.Metadata.PageCount)
	assert.Equal(t, 1, result.Metadata.TableCount)
	assert.Equal(t, 1, result.Stats.FallbackAccepted)
	assert.True(t, result.Stats.FallbackSkipped)

	require.Len(t, result.Pages, 1)
	require.Len(t, result.Pages[0].Tables, 1)

	table := result.Pages[0].Tables[0]
	assert.Equal(t, "camelot", table.ExtractionMethod)
	assert.Equal(t, 0.92, table.QualityScore)
	assert.Equal(t, 2, table.RowCount)
	assert.Equal(t, 2, table.ColCount)
	assert.Equal(t, [4]float64{100, 100, 500, 300}, table.BBox)

	require.Len(t, table.Cells, 4)
	assert.Equal(t, "name", table.Cells[0].Text)
	assert.True(t, table.Cells[0].IsHeader)
	assert.Equal(t, "1", table.Cells[3].Text)
}

func TestConvertOrdersTablesByPosition(t *testing.T) {
	doc := sampleDocument()
	page := doc.Pages[0]

	above := models.NewTable(0, models.NewBBox(100, 10, 500, 50))
	above.Cells = []*models.Cell{{Row: 0, Col: 0, RowSpan: 1, ColSpan: 1, Lines: []string{"top"}}}
	page.AddTable(above)

	result, err := NewJSONConverter().Convert(doc, tables.Stats{})

	require.NoError(t, err)
	require.Len(t, result.Pages[0].Tables, 2)
	assert.Equal(t, above.ID, result.Pages[0].Tables[0].ID)
}

func TestConvertCarriesMergeProvenance(t *testing.T) {
	doc := sampleDocument()
	doc.Pages[0].Tables[0].Metadata.Merge = &models.MergeProvenance{
		SourceIDs:  []string{"t-2", "t-3"},
		Direction:  models.MergeBottom,
		Confidence: 0.9,
	}

	result, err := NewJSONConverter().Convert(doc, tables.Stats{})

	require.NoError(t, err)
	assert.Equal(t, []string{"t-2", "t-3"}, result.Pages[0].Tables[0].MergedFrom)
}

func TestConvertRejectsEmptyDocument(t *testing.T) {
	_, err := NewJSONConverter().Convert(nil, tables.Stats{})
	assert.Error(t, err)

	_, err = NewJSONConverter().Convert(&models.Document{}, tables.Stats{})
	assert.Error(t, err)
}

package converters

import (
	"fmt"
	"sort"
	"time"

	"github.com/grahama1970/extractor-sub000/internal/models"
	"github.com/grahama1970/extractor-sub000/internal/tables"
)

// DocumentConverter renders a processed document tree into the result
// payload stored for download.
type DocumentConverter interface {
	Convert(doc *models.Document, stats tables.Stats) (*ProcessedDocument, error)
}

// ProcessedDocument is the JSON result of one conversion task.
type ProcessedDocument struct {
	TaskID      string           `json:"taskId"`
	Status      string           `json:"status"`
	Pages       []PageContent    `json:"pages"`
	Metadata    DocumentMetadata `json:"metadata"`
	Stats       ExtractionStats  `json:"stats"`
	ProcessedAt time.Time        `json:"processedAt"`
}

// PageContent is one page with its extracted tables in reading order.
type PageContent struct {
	Index  int            `json:"index"`
	Width  float64        `json:"width"`
	Height float64        `json:"height"`
	Tables []TableContent `json:"tables"`
}

// TableContent is one extracted table.
type TableContent struct {
	ID               string        `json:"id"`
	BBox             [4]float64    `json:"bbox"`
	RowCount         int           `json:"rowCount"`
	ColCount         int           `json:"colCount"`
	ExtractionMethod string        `json:"extractionMethod"`
	QualityScore     float64       `json:"qualityScore"`
	MergedFrom       []string      `json:"mergedFrom,omitempty"`
	Cells            []CellContent `json:"cells"`
}

// CellContent is one table cell with its grid position.
type CellContent struct {
	Row      int    `json:"row"`
	Col      int    `json:"col"`
	RowSpan  int    `json:"rowSpan"`
	ColSpan  int    `json:"colSpan"`
	IsHeader bool   `json:"isHeader,omitempty"`
	Text     string `json:"text"`
}

// DocumentMetadata describes the source file of a result.
type DocumentMetadata struct {
	FileName     string `json:"fileName"`
	FileType     string `json:"fileType"`
	FileSize     int64  `json:"fileSize"`
	PageCount    int    `json:"pageCount"`
	TableCount   int    `json:"tableCount"`
	ProcessingMs int64  `json:"processingMs"`
}

// ExtractionStats summarizes what the table pipeline did on this
// document.
type ExtractionStats struct {
	Regions          int  `json:"regions"`
	Tables           int  `json:"tables"`
	RowsSplit        int  `json:"rowsSplit"`
	DollarMerges     int  `json:"dollarMerges"`
	FallbackRuns     int  `json:"fallbackRuns"`
	FallbackAccepted int  `json:"fallbackAccepted"`
	TablesMerged     int  `json:"tablesMerged"`
	FallbackSkipped  bool `json:"fallbackSkipped"`
}

// JSONConverter implements DocumentConverter.
type JSONConverter struct{}

func NewJSONConverter() *JSONConverter {
	return &JSONConverter{}
}

// Convert flattens the document tree into the result payload. Tables on
// each page come out top to bottom, left to right.
func (c *JSONConverter) Convert(doc *models.Document, stats tables.Stats) (*ProcessedDocument, error) {
	if doc == nil || len(doc.Pages) == 0 {
		return nil, fmt.Errorf("no pages to convert")
	}

	result := &ProcessedDocument{
		Status:      "completed",
		ProcessedAt: time.Now(),
		Pages:       make([]PageContent, 0, len(doc.Pages)),
		Metadata: DocumentMetadata{
			FileName:   doc.Name,
			PageCount:  len(doc.Pages),
			TableCount: doc.TableCount(),
		},
		Stats: ExtractionStats{
			Regions:          stats.Regions,
			Tables:           stats.Tables,
			RowsSplit:        stats.RowsSplit,
			DollarMerges:     stats.DollarMerges,
			FallbackRuns:     stats.FallbackRuns,
			FallbackAccepted: stats.FallbackAccepted,
			TablesMerged:     stats.TablesMerged,
			FallbackSkipped:  stats.FallbackSkipped,
		},
	}

	for _, page := range doc.Pages {
		result.Pages = append(result.Pages, convertPage(page))
	}

	return result, nil
}

func convertPage(page *models.Page) PageContent {
	content := PageContent{
		Index:  page.Index,
		Width:  page.Width,
		Height: page.Height,
		Tables: make([]TableContent, 0, len(page.Tables)),
	}

	ordered := make([]*models.Table, len(page.Tables))
	copy(ordered, page.Tables)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].BBox.Top != ordered[j].BBox.Top {
			return ordered[i].BBox.Top < ordered[j].BBox.Top
		}
		return ordered[i].BBox.Left < ordered[j].BBox.Left
	})

	for _, t := range ordered {
		content.Tables = append(content.Tables, convertTable(t))
	}
	return content
}

func convertTable(t *models.Table) TableContent {
	content := TableContent{
		ID:               t.ID,
		BBox:             [4]float64{t.BBox.Left, t.BBox.Top, t.BBox.Right, t.BBox.Bottom},
		RowCount:         t.RowCount(),
		ColCount:         t.ColCount(),
		ExtractionMethod: string(t.Metadata.ExtractionMethod),
		QualityScore:     t.Metadata.QualityScore,
		Cells:            make([]CellContent, 0, len(t.Cells)),
	}
	if t.Metadata.Merge != nil {
		content.MergedFrom = t.Metadata.Merge.SourceIDs
	}

	for _, cell := range t.Cells {
		content.Cells = append(content.Cells, CellContent{
			Row:      cell.Row,
			Col:      cell.Col,
			RowSpan:  cell.RowSpan,
			ColSpan:  cell.ColSpan,
			IsHeader: cell.IsHeader,
			Text:     cell.Text(),
		})
	}
	return content
}

package tables

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grahama1970/extractor-sub000/config"
	"github.com/grahama1970/extractor-sub000/internal/camelot"
	"github.com/grahama1970/extractor-sub000/internal/models"
	"github.com/grahama1970/extractor-sub000/pkg/logger"
)

// fakeEngine is a scripted grid-line engine. Safe for the concurrent
// parameter search.
type fakeEngine struct {
	mu           sync.Mutex
	availableErr error
	extractErr   error
	grid         [][]string
	accuracy     float64

	calls     int
	gotPage   int
	gotRegion models.FracBox
}

func (f *fakeEngine) Available() error { return f.availableErr }

func (f *fakeEngine) ExtractTables(_ context.Context, _ string, page int, region models.FracBox, _ camelot.Params) ([]camelot.TableResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.gotPage = page
	f.gotRegion = region

	if f.extractErr != nil {
		return nil, f.extractErr
	}
	if f.grid == nil {
		return nil, nil
	}
	return []camelot.TableResult{{
		Page: page,
		Rows: len(f.grid),
		Cols: len(f.grid[0]),
		Grid: f.grid,
		Report: camelot.Report{
			Accuracy:   f.accuracy,
			Whitespace: 0,
			Page:       page,
		},
	}}, nil
}

func newFallbackFixture(engine Engine, optimize bool) *FallbackExtractor {
	cfg := config.DefaultPipelineConfig()
	cfg.Fallback.Optimize = optimize
	return NewFallbackExtractor(engine, NewEvaluator(cfg.Quality), cfg.Fallback, logger.NewTestLogger())
}

func fallbackPage() *models.Page {
	return &models.Page{Index: 2, Width: 1000, Height: 2000}
}

func fallbackTable() *models.Table {
	tbl := models.NewTable(2, models.NewBBox(100, 100, 300, 200))
	tbl.Cells = []*models.Cell{textCell(0, 0, "partial")}
	return tbl
}

func TestExtractConvertsRegionCoordinates(t *testing.T) {
	engine := &fakeEngine{grid: [][]string{{"a", "b"}, {"c", "d"}}, accuracy: 98}
	f := newFallbackFixture(engine, false)

	_, err := f.Extract(context.Background(), "doc.pdf", fallbackPage(), fallbackTable())
	require.NoError(t, err)

	// Document box [100,100,300,200] on a 1000x2000 page, flipped to the
	// engine's bottom-left page fractions.
	assert.Equal(t, 3, engine.gotPage)
	assert.InDelta(t, 0.1, engine.gotRegion.Left, 1e-9)
	assert.InDelta(t, 0.9, engine.gotRegion.Top, 1e-9)
	assert.InDelta(t, 0.3, engine.gotRegion.Right, 1e-9)
	assert.InDelta(t, 0.95, engine.gotRegion.Bottom, 1e-9)
}

func TestExtractAcceptsHighScoringCandidate(t *testing.T) {
	engine := &fakeEngine{grid: [][]string{{"a", "b"}, {"c", "d"}}, accuracy: 98}
	f := newFallbackFixture(engine, false)
	tbl := fallbackTable()

	outcome, err := f.Extract(context.Background(), "doc.pdf", fallbackPage(), tbl)
	require.NoError(t, err)

	assert.True(t, outcome.Replaced)
	assert.Equal(t, models.MethodCamelot, outcome.Method)
	assert.Equal(t, models.MethodCamelot, tbl.Metadata.ExtractionMethod)
	assert.Len(t, tbl.Cells, 4)
	assert.Equal(t, "a", tbl.CellAt(0, 0).Text())
	assert.Equal(t, outcome.Score, tbl.Metadata.QualityScore)
}

func TestExtractParameterSearchSetsEnhancedMethod(t *testing.T) {
	engine := &fakeEngine{grid: [][]string{{"a", "b"}, {"c", "d"}}, accuracy: 98}
	f := newFallbackFixture(engine, true)
	tbl := fallbackTable()

	outcome, err := f.Extract(context.Background(), "doc.pdf", fallbackPage(), tbl)
	require.NoError(t, err)

	assert.True(t, outcome.Replaced)
	assert.Equal(t, models.MethodEnhancedCamelot, outcome.Method)
	// Every parameter combination from the default grid was tried.
	assert.Greater(t, engine.calls, 1)
}

func TestExtractRejectsLowScoringCandidate(t *testing.T) {
	// Mostly empty grid with a weak engine report stays under the 0.9 bar.
	engine := &fakeEngine{grid: [][]string{{"a", "", ""}, {"", "", ""}}, accuracy: 10}
	log := logger.NewTestLogger()
	cfg := config.DefaultPipelineConfig()
	cfg.Fallback.Optimize = false
	f := NewFallbackExtractor(engine, NewEvaluator(cfg.Quality), cfg.Fallback, log)
	tbl := fallbackTable()
	primary := tbl.Cells

	outcome, err := f.Extract(context.Background(), "doc.pdf", fallbackPage(), tbl)
	require.NoError(t, err)

	assert.False(t, outcome.Replaced)
	assert.Greater(t, outcome.Score, 0.0)
	// Rejection keeps the primary cells and warns, never drops silently.
	assert.Equal(t, primary, tbl.Cells)
	assert.Equal(t, models.MethodPrimary, tbl.Metadata.ExtractionMethod)
	assert.True(t, log.HasEntry("WARN", "fallback extraction below acceptance threshold, keeping primary result"))
}

func TestExtractEngineErrorIsContained(t *testing.T) {
	engine := &fakeEngine{extractErr: errors.New("malformed region")}
	f := newFallbackFixture(engine, false)
	tbl := fallbackTable()
	primary := tbl.Cells

	_, err := f.Extract(context.Background(), "doc.pdf", fallbackPage(), tbl)

	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, 2, extErr.PageIndex)
	assert.Equal(t, tbl.ID, extErr.TableID)
	assert.Equal(t, primary, tbl.Cells)
}

func TestExtractNoResultsKeepsPrimary(t *testing.T) {
	engine := &fakeEngine{}
	f := newFallbackFixture(engine, false)
	tbl := fallbackTable()

	outcome, err := f.Extract(context.Background(), "doc.pdf", fallbackPage(), tbl)

	require.NoError(t, err)
	assert.False(t, outcome.Replaced)
	assert.Len(t, tbl.Cells, 1)
}

func TestCoordinateRoundTrip(t *testing.T) {
	box := models.NewBBox(137.5, 82.25, 460.0, 391.75)
	frac := box.ToPageFraction(612, 792)
	back := models.FromPageFraction(frac, 612, 792)

	assert.InDelta(t, box.Left, back.Left, 1e-9)
	assert.InDelta(t, box.Top, back.Top, 1e-9)
	assert.InDelta(t, box.Right, back.Right, 1e-9)
	assert.InDelta(t, box.Bottom, back.Bottom, 1e-9)
}

package tables

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/grahama1970/extractor-sub000/config"
	"github.com/grahama1970/extractor-sub000/internal/camelot"
	"github.com/grahama1970/extractor-sub000/internal/models"
	"github.com/grahama1970/extractor-sub000/pkg/logger"
)

// Engine abstracts the grid-line extraction engine consumed by the
// fallback path. Satisfied by *camelot.Engine.
type Engine interface {
	Available() error
	ExtractTables(ctx context.Context, pdfPath string, page int, region models.FracBox, params camelot.Params) ([]camelot.TableResult, error)
}

// FallbackOutcome records what one fallback attempt did to a table.
type FallbackOutcome struct {
	Replaced bool
	Score    float64
	Method   models.ExtractionMethod
	Params   camelot.Params
}

// FallbackExtractor re-extracts low-confidence table regions through the
// grid-line engine, searching a bounded parameter space for the best
// scoring candidate.
type FallbackExtractor struct {
	engine Engine
	eval   *Evaluator
	cfg    config.FallbackConfig
	log    logger.Logger
}

// NewFallbackExtractor creates a fallback extractor.
func NewFallbackExtractor(engine Engine, eval *Evaluator, cfg config.FallbackConfig, log logger.Logger) *FallbackExtractor {
	return &FallbackExtractor{
		engine: engine,
		eval:   eval,
		cfg:    cfg,
		log:    log.Named("fallback"),
	}
}

// Available probes the engine once per run.
func (f *FallbackExtractor) Available() error {
	return f.engine.Available()
}

// paramGrid expands the configured parameter space. Without optimization
// it is a single default set.
func (f *FallbackExtractor) paramGrid() []camelot.Params {
	if !f.cfg.Optimize {
		p := camelot.DefaultParams()
		p.CopyText = f.cfg.CopyText
		return []camelot.Params{p}
	}

	grid := []camelot.Params{}
	for _, flavor := range f.cfg.Flavors {
		for _, scale := range orDefaultInts(f.cfg.LineScales, 15) {
			for _, width := range orDefaultFloats(f.cfg.LineWidths, 2) {
				for _, edge := range orDefaultFloats(f.cfg.EdgeTols, 50) {
					for _, row := range orDefaultFloats(f.cfg.RowTols, 2) {
						grid = append(grid, camelot.Params{
							Flavor:    camelot.Flavor(flavor),
							LineScale: scale,
							LineWidth: width,
							EdgeTol:   edge,
							RowTol:    row,
							CopyText:  f.cfg.CopyText,
						})
					}
				}
			}
		}
	}
	return grid
}

func orDefaultInts(vals []int, def int) []int {
	if len(vals) == 0 {
		return []int{def}
	}
	return vals
}

func orDefaultFloats(vals []float64, def float64) []float64 {
	if len(vals) == 0 {
		return []float64{def}
	}
	return vals
}

type fallbackCandidate struct {
	cells  []*models.Cell
	score  float64
	params camelot.Params
}

// Extract runs the parameter search for one table and replaces its cells
// when the best candidate clears the acceptance threshold. The engine
// page number is 1-indexed; table and page use document coordinates with
// the origin at the top-left, converted here to the engine's bottom-left
// page fractions.
func (f *FallbackExtractor) Extract(ctx context.Context, pdfPath string, page *models.Page, table *models.Table) (FallbackOutcome, error) {
	region := table.BBox.ToPageFraction(page.Width, page.Height)
	pageNum := page.Index + 1
	grid := f.paramGrid()

	var (
		mu       sync.Mutex
		best     *fallbackCandidate
		lastErr  error
		errCount int
	)

	// Trials are independent and read-only over the source PDF; only the
	// best-so-far result needs serializing.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, params := range grid {
		params := params
		g.Go(func() error {
			results, err := f.engine.ExtractTables(gctx, pdfPath, pageNum, region, params)
			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				errCount++
				lastErr = err
				f.log.Debug("fallback candidate failed",
					logger.Int("page", page.Index),
					logger.String("params", params.String()),
					logger.Error(err))
				return nil
			}

			for _, result := range results {
				cells := cellsFromGrid(result, table.BBox)
				score := f.eval.EvaluateCandidate(cells, result.Report.Accuracy/100).Score
				if best == nil || score > best.score {
					best = &fallbackCandidate{cells: cells, score: score, params: params}
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if best == nil {
		if lastErr != nil {
			return FallbackOutcome{}, &ExtractionError{
				PageIndex: page.Index,
				TableID:   table.ID,
				Err:       fmt.Errorf("%d of %d parameter sets failed, last: %w", errCount, len(grid), lastErr),
			}
		}
		// The engine found nothing in the region; keep the primary result.
		return FallbackOutcome{}, nil
	}

	if !f.eval.AcceptFallback(best.score) {
		f.log.Warn("fallback extraction below acceptance threshold, keeping primary result",
			logger.Int("page", page.Index),
			logger.String("table", table.ID),
			logger.Float64("score", best.score))
		return FallbackOutcome{Score: best.score}, nil
	}

	method := models.MethodCamelot
	if f.cfg.Optimize && len(grid) > 1 {
		method = models.MethodEnhancedCamelot
	}

	table.ReplaceCells(best.cells)
	table.Metadata.ExtractionMethod = method
	table.Metadata.QualityScore = best.score

	f.log.Info("fallback extraction accepted",
		logger.Int("page", page.Index),
		logger.String("table", table.ID),
		logger.String("method", string(method)),
		logger.Float64("score", best.score),
		logger.String("params", best.params.String()))

	return FallbackOutcome{
		Replaced: true,
		Score:    best.score,
		Method:   method,
		Params:   best.params,
	}, nil
}

// cellsFromGrid converts an engine text grid into document cells laid
// out uniformly over the table's bounding box.
func cellsFromGrid(result camelot.TableResult, bbox models.BBox) []*models.Cell {
	if result.Rows == 0 || result.Cols == 0 {
		return nil
	}

	cellW := bbox.Width() / float64(result.Cols)
	cellH := bbox.Height() / float64(result.Rows)

	cells := make([]*models.Cell, 0, result.Rows*result.Cols)
	for r := 0; r < result.Rows; r++ {
		for c := 0; c < result.Cols; c++ {
			cellBox := models.NewBBox(
				bbox.Left+float64(c)*cellW,
				bbox.Top+float64(r)*cellH,
				bbox.Left+float64(c+1)*cellW,
				bbox.Top+float64(r+1)*cellH,
			)
			var lines []string
			if text := strings.TrimSpace(result.Cell(r, c)); text != "" {
				lines = []string{text}
			}
			cells = append(cells, &models.Cell{
				Row:     r,
				Col:     c,
				RowSpan: 1,
				ColSpan: 1,
				Lines:   lines,
				Polygon: models.PolygonFromBBox(cellBox),
			})
		}
	}
	return cells
}

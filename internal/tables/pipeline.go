package tables

import (
	"context"
	"fmt"

	"github.com/grahama1970/extractor-sub000/config"
	"github.com/grahama1970/extractor-sub000/internal/models"
	"github.com/grahama1970/extractor-sub000/pkg/logger"
)

// RegionSource supplies detected table regions with their structural
// recognition output. Concrete implementations wrap the recognition
// model; tests substitute fixtures.
type RegionSource interface {
	Regions(ctx context.Context, doc *models.Document, pdfPath string) ([]models.TableRegion, error)
}

// Stats summarizes one pipeline pass for logging and the result payload.
type Stats struct {
	Regions          int  `json:"regions"`
	Tables           int  `json:"tables"`
	RowsSplit        int  `json:"rowsSplit"`
	DollarMerges     int  `json:"dollarMerges"`
	FallbackRuns     int  `json:"fallbackRuns"`
	FallbackAccepted int  `json:"fallbackAccepted"`
	TablesMerged     int  `json:"tablesMerged"`
	FallbackSkipped  bool `json:"fallbackSkipped"`
}

// Pipeline orchestrates table extraction for one document: collect
// regions, assemble cells, evaluate quality, escalate to the fallback
// engine as needed, then merge fragmented tables. Stages run strictly
// sequentially per document; documents are never shared across tasks.
type Pipeline struct {
	cfg       *config.PipelineConfig
	source    RegionSource
	assembler *Assembler
	evaluator *Evaluator
	fallback  *FallbackExtractor
	merger    *Merger
	log       logger.Logger
}

// NewPipeline wires the pipeline components. engine and advisor may be
// nil when the corresponding features are disabled in cfg.
func NewPipeline(cfg *config.PipelineConfig, source RegionSource, engine Engine, advisor MergeAdvisor, log logger.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	evaluator := NewEvaluator(cfg.Quality)

	var fallback *FallbackExtractor
	if cfg.Fallback.Enabled && engine != nil {
		fallback = NewFallbackExtractor(engine, evaluator, cfg.Fallback, log)
	}

	return &Pipeline{
		cfg:       cfg,
		source:    source,
		assembler: NewAssembler(cfg.Assembler, log),
		evaluator: evaluator,
		fallback:  fallback,
		merger:    NewMerger(cfg.Merge, advisor, log),
		log:       log.Named("pipeline"),
	}, nil
}

// Process runs the full table pass over one document, mutating it in
// place. Failures inside the per-table loop are contained at table
// granularity; a bad table never aborts the rest of the document.
func (p *Pipeline) Process(ctx context.Context, doc *models.Document, pdfPath string) (Stats, error) {
	var stats Stats

	regions, err := p.source.Regions(ctx, doc, pdfPath)
	if err != nil {
		return stats, fmt.Errorf("failed to collect table regions: %w", err)
	}
	stats.Regions = len(regions)

	fallbackReady := false
	if p.fallback != nil {
		if err := p.fallback.Available(); err != nil {
			// Logged once per run, not per table.
			p.log.Warn("fallback engine unavailable, primary results used as-is", logger.Error(err))
			stats.FallbackSkipped = true
		} else {
			fallbackReady = true
		}
	}

	for _, region := range regions {
		p.processRegion(ctx, doc, pdfPath, region, fallbackReady, &stats)
	}

	stats.TablesMerged = p.merger.Merge(ctx, doc)
	stats.Tables = doc.TableCount()

	p.log.Info("table pipeline finished",
		logger.String("document", doc.ID),
		logger.Int("regions", stats.Regions),
		logger.Int("tables", stats.Tables),
		logger.Int("fallbackRuns", stats.FallbackRuns),
		logger.Int("fallbackAccepted", stats.FallbackAccepted),
		logger.Int("tablesMerged", stats.TablesMerged))

	return stats, nil
}

func (p *Pipeline) processRegion(ctx context.Context, doc *models.Document, pdfPath string, region models.TableRegion, fallbackReady bool, stats *Stats) {
	page := doc.PageAt(region.PageIndex)
	if page == nil {
		p.log.Warn("region references unknown page, skipped", logger.Int("page", region.PageIndex))
		return
	}

	table, recognized := p.assembler.Assemble(region)
	if recognized {
		// Page text lines are the authoritative cell content; the
		// recognizer's word text survives only when the region has none.
		p.assembler.AssignText(table.Cells, linesInRegion(page.TextLines, region.BBox))
		stats.RowsSplit += p.assembler.SplitCombinedRows(table)
		stats.DollarMerges += p.assembler.MergeDollarColumns(table)
	}

	score := p.evaluator.Evaluate(table.Cells)
	table.Metadata.QualityScore = score.Score

	// Zero recognized cells is not an error; the minimum-cell rule turns
	// it into a forced fallback.
	if fallbackReady && p.evaluator.NeedsFallback(score.Score, len(table.Cells)) {
		stats.FallbackRuns++
		outcome, err := p.fallback.Extract(ctx, pdfPath, page, table)
		switch {
		case err != nil:
			p.log.Warn("fallback extraction failed, keeping primary result",
				logger.Int("page", page.Index),
				logger.String("table", table.ID),
				logger.Error(err))
		case outcome.Replaced:
			stats.FallbackAccepted++
			stats.RowsSplit += p.assembler.SplitCombinedRows(table)
			stats.DollarMerges += p.assembler.MergeDollarColumns(table)
		}
	}

	// Degraded-but-present beats dropped: the table is emitted with its
	// low score in metadata even when nothing could improve it.
	page.AddTable(table)
}

// linesInRegion filters page text lines to those whose center falls in
// the region.
func linesInRegion(lines []models.TextLine, region models.BBox) []models.TextLine {
	var out []models.TextLine
	for _, line := range lines {
		if region.Contains(line.BBox.Center()) {
			out = append(out, line)
		}
	}
	return out
}

package tables

import (
	"github.com/grahama1970/extractor-sub000/config"
	"github.com/grahama1970/extractor-sub000/internal/models"
)

// QualityScore is a normalized [0,1] confidence with its per-metric
// breakdown. Recomputed whenever a table's cells change.
type QualityScore struct {
	Score     float64            `json:"score"`
	Breakdown map[string]float64 `json:"breakdown"`
}

// Evaluator scores extracted cells against the configured quality
// metrics. The configuration is validated before the evaluator exists,
// so weights are trusted here.
type Evaluator struct {
	cfg config.QualityConfig
}

// NewEvaluator creates an evaluator from validated configuration.
func NewEvaluator(cfg config.QualityConfig) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Evaluate scores a primary extraction. The accuracy metric has no
// source here, so its weight is redistributed over the remaining
// metrics. Empty input scores exactly 0.0, never an error.
func (e *Evaluator) Evaluate(cells []*models.Cell) QualityScore {
	return e.evaluate(cells, 0, false)
}

// EvaluateCandidate scores a fallback candidate, folding in the
// engine's self-reported confidence in [0,1] as the accuracy metric.
func (e *Evaluator) EvaluateCandidate(cells []*models.Cell, engineConfidence float64) QualityScore {
	return e.evaluate(cells, clamp01(engineConfidence), true)
}

func (e *Evaluator) evaluate(cells []*models.Cell, accuracy float64, hasAccuracy bool) QualityScore {
	if len(cells) == 0 {
		return QualityScore{Score: 0.0, Breakdown: map[string]float64{}}
	}

	subScores := map[string]float64{
		config.MetricCompleteness: completeness(cells),
		config.MetricStructure:    structure(cells),
	}
	if hasAccuracy {
		subScores[config.MetricAccuracy] = accuracy
	}

	score := 0.0
	weightSum := 0.0
	breakdown := make(map[string]float64, len(e.cfg.Metrics))
	for _, m := range e.cfg.Metrics {
		sub, ok := subScores[m.Name]
		if !ok {
			continue
		}
		breakdown[m.Name] = sub
		score += m.Weight * sub
		weightSum += m.Weight
	}
	if weightSum > 0 {
		score /= weightSum
	}

	return QualityScore{Score: clamp01(score), Breakdown: breakdown}
}

// NeedsFallback reports whether a table should be escalated to fallback
// extraction: low score, or so few cells that the score cannot be
// trusted (including the zero-cell recognition case).
func (e *Evaluator) NeedsFallback(score float64, cellCount int) bool {
	return score < e.cfg.MinQuality || cellCount < e.cfg.MinCellCount
}

// AcceptFallback reports whether a fallback candidate scores high enough
// to replace the primary extraction. The bar is stricter than the
// primary threshold since fallback is a last resort.
func (e *Evaluator) AcceptFallback(score float64) bool {
	return score >= e.cfg.FallbackQuality
}

// completeness is the fraction of the row-by-column grid covered by
// cells with non-empty text.
func completeness(cells []*models.Cell) float64 {
	rows, cols := gridSize(cells)
	if rows == 0 || cols == 0 {
		return 0
	}

	filled := 0
	for _, c := range cells {
		if !c.IsEmpty() {
			filled += spanArea(c)
		}
	}
	return clamp01(float64(filled) / float64(rows*cols))
}

// structure measures grid regularity: the fraction of grid positions
// covered by exactly one cell. Gaps and overlapping spans both lower it.
func structure(cells []*models.Cell) float64 {
	rows, cols := gridSize(cells)
	if rows == 0 || cols == 0 {
		return 0
	}

	coverage := make([]int, rows*cols)
	for _, c := range cells {
		rs, cs := c.RowSpan, c.ColSpan
		if rs < 1 {
			rs = 1
		}
		if cs < 1 {
			cs = 1
		}
		for r := c.Row; r < c.Row+rs && r < rows; r++ {
			for col := c.Col; col < c.Col+cs && col < cols; col++ {
				coverage[r*cols+col]++
			}
		}
	}

	regular := 0
	for _, n := range coverage {
		if n == 1 {
			regular++
		}
	}
	return float64(regular) / float64(rows*cols)
}

func gridSize(cells []*models.Cell) (rows, cols int) {
	for _, c := range cells {
		rs, cs := c.RowSpan, c.ColSpan
		if rs < 1 {
			rs = 1
		}
		if cs < 1 {
			cs = 1
		}
		if c.Row+rs > rows {
			rows = c.Row + rs
		}
		if c.Col+cs > cols {
			cols = c.Col + cs
		}
	}
	return rows, cols
}

func spanArea(c *models.Cell) int {
	rs, cs := c.RowSpan, c.ColSpan
	if rs < 1 {
		rs = 1
	}
	if cs < 1 {
		cs = 1
	}
	return rs * cs
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package tables

import (
	"context"
	"math"

	"github.com/grahama1970/extractor-sub000/config"
	"github.com/grahama1970/extractor-sub000/internal/models"
	"github.com/grahama1970/extractor-sub000/pkg/logger"
)

// MergeAdvisor is an optional external decision aid consulted for pairs
// the heuristics score as ambiguous. The heuristic decision stays
// authoritative; the advisor only breaks ties.
type MergeAdvisor interface {
	ShouldMerge(ctx context.Context, a, b *models.Table) (merge bool, confidence float64, err error)
}

// MergeCandidate pairs two adjacent tables with the chosen direction and
// the heuristic's confidence. Transient; discarded once merging is applied.
type MergeCandidate struct {
	A          *models.Table
	B          *models.Table
	Direction  models.MergeDirection
	Confidence float64
}

// Confidence tiers per candidacy signal. Cross-page continuation is the
// strongest signal; horizontal adjacency the weakest.
const (
	confCrossPage       = 0.9
	confVerticalStack   = 0.85
	confHorizontalStack = 0.8
	confAdjacency       = 0.7

	// Below this the advisor is consulted when enabled.
	ambiguityBand = 0.8
)

// Merger consolidates tables that are fragments of one logical table:
// continuations across page boundaries or adjacent fragments on one
// page. It favors recall over precision; ambiguous pairs merge rather
// than fragment.
type Merger struct {
	cfg     config.MergeConfig
	advisor MergeAdvisor
	log     logger.Logger
}

// NewMerger creates a merger. advisor may be nil.
func NewMerger(cfg config.MergeConfig, advisor MergeAdvisor, log logger.Logger) *Merger {
	return &Merger{cfg: cfg, advisor: advisor, log: log.Named("merger")}
}

// Merge runs one merge pass over the document and returns the number of
// tables absorbed. A second pass over the result is a no-op: absorbed
// tables are removed from their pages, so no candidate pairs remain.
func (m *Merger) Merge(ctx context.Context, doc *models.Document) int {
	tables := doc.TablesInOrder()
	merged := 0

	// Walk maximal runs of consecutive candidates; the first table in
	// each run absorbs the rest.
	i := 0
	for i < len(tables)-1 {
		dest := tables[i]
		j := i + 1
		for j < len(tables) {
			cand, ok := m.candidate(ctx, doc, dest, tables[j])
			if !ok {
				break
			}
			if err := m.apply(doc, dest, tables[j], cand); err != nil {
				m.log.Warn("merge skipped",
					logger.String("dest", dest.ID),
					logger.String("source", tables[j].ID),
					logger.Error(err))
				break
			}
			merged++
			j++
		}
		i = j
	}

	return merged
}

// candidate evaluates the candidacy signals for a pair of tables in
// reading order and picks an initial merge direction.
func (m *Merger) candidate(ctx context.Context, doc *models.Document, a, b *models.Table) (MergeCandidate, bool) {
	cand := MergeCandidate{A: a, B: b}

	rowDelta := absInt(a.RowCount() - b.RowCount())
	colDelta := absInt(a.ColCount() - b.ColCount())
	countsClose := rowDelta < m.cfg.MaxRowDelta || colDelta < m.cfg.MaxColDelta

	switch {
	case m.crossPageContinuation(doc, a, b) && countsClose:
		cand.Direction = models.MergeBottom
		cand.Confidence = confCrossPage
	case m.samePageVerticalStack(a, b) && rowDelta < m.cfg.MaxRowDelta:
		cand.Direction = models.MergeBottom
		cand.Confidence = confVerticalStack
	case m.horizontalAdjacency(a, b) && colDelta < m.cfg.MaxColDelta:
		cand.Direction = models.MergeRight
		cand.Confidence = confAdjacency
	case m.horizontalStacking(a, b) && colDelta < m.cfg.MaxColDelta:
		cand.Direction = models.MergeBottom
		cand.Confidence = confHorizontalStack
	default:
		return cand, false
	}

	if m.cfg.LLMAssist && m.advisor != nil && cand.Confidence < ambiguityBand {
		merge, conf, err := m.advisor.ShouldMerge(ctx, a, b)
		if err != nil {
			m.log.Warn("merge advisor failed, keeping heuristic decision",
				logger.String("a", a.ID), logger.String("b", b.ID), logger.Error(err))
		} else if !merge {
			return cand, false
		} else if conf > cand.Confidence {
			cand.Confidence = conf
		}
	}

	return cand, true
}

// crossPageContinuation: consecutive pages, each table filling most of
// its page height, with at least one of the two pages holding no other
// competing table.
func (m *Merger) crossPageContinuation(doc *models.Document, a, b *models.Table) bool {
	if b.PageIndex != a.PageIndex+1 {
		return false
	}
	pageA, pageB := doc.PageAt(a.PageIndex), doc.PageAt(b.PageIndex)
	if pageA == nil || pageB == nil || pageA.Height <= 0 || pageB.Height <= 0 {
		return false
	}
	if a.BBox.Height() < m.cfg.PageCoverage*pageA.Height {
		return false
	}
	if b.BBox.Height() < m.cfg.PageCoverage*pageB.Height {
		return false
	}
	return len(pageA.Tables) == 1 || len(pageB.Tables) == 1
}

// samePageVerticalStack: similar heights, B starting just below A's
// bottom edge and horizontally aligned with it.
func (m *Merger) samePageVerticalStack(a, b *models.Table) bool {
	if a.PageIndex != b.PageIndex {
		return false
	}
	if !withinBand(a.BBox.Height(), b.BBox.Height(), m.cfg.HeightTolerance) {
		return false
	}
	gap := b.BBox.Top - a.BBox.Bottom
	if gap < 0 || gap > m.cfg.VerticalGap {
		return false
	}
	return horizontalOverlap(a.BBox, b.BBox) > 0.5
}

// horizontalAdjacency: B continues A to the right as extra columns.
func (m *Merger) horizontalAdjacency(a, b *models.Table) bool {
	if a.PageIndex != b.PageIndex {
		return false
	}
	gap := b.BBox.Left - a.BBox.Right
	if gap < 0 || gap > m.cfg.HorizontalGap {
		return false
	}
	if b.BBox.Top >= a.BBox.Bottom {
		return false
	}
	return withinBand(a.BBox.Width(), b.BBox.Width(), m.cfg.WidthTolerance)
}

// horizontalStacking: two same-width tables, B directly below A.
func (m *Merger) horizontalStacking(a, b *models.Table) bool {
	if a.PageIndex != b.PageIndex {
		return false
	}
	if !withinBand(a.BBox.Width(), b.BBox.Width(), m.cfg.WidthTolerance) {
		return false
	}
	gap := b.BBox.Top - a.BBox.Bottom
	return gap >= 0 && gap <= m.cfg.VerticalGap
}

// apply merges src into dest along the candidate direction, after
// validating the direction against the tables' structure.
func (m *Merger) apply(doc *models.Document, dest, src *models.Table, cand MergeCandidate) error {
	if len(src.Cells) == 0 {
		return &MergeError{DestID: dest.ID, SourceID: src.ID, Reason: "source table has no cells"}
	}
	if len(dest.Cells) == 0 {
		return &MergeError{DestID: dest.ID, SourceID: src.ID, Reason: "destination table has no cells"}
	}

	direction := m.validateDirection(cand.Direction, dest, src)

	switch direction {
	case models.MergeRight:
		shift := dest.ColCount()
		for _, c := range src.Cells {
			c.Col += shift
		}
	default:
		shift := dest.RowCount()
		for _, c := range src.Cells {
			c.Row += shift
		}
	}

	dest.Cells = append(dest.Cells, src.Cells...)
	src.Cells = nil
	dest.BBox = dest.BBox.Union(src.BBox)

	page := doc.PageAt(src.PageIndex)
	if page != nil {
		page.RemoveTable(src.ID)
	}

	if dest.Metadata.Merge == nil {
		dest.Metadata.Merge = &models.MergeProvenance{Confidence: cand.Confidence}
	}
	prov := dest.Metadata.Merge
	prov.SourceIDs = append(prov.SourceIDs, src.ID)
	prov.Direction = direction
	if cand.Confidence < prov.Confidence {
		prov.Confidence = cand.Confidence
	}

	m.log.Info("tables merged",
		logger.String("dest", dest.ID),
		logger.String("source", src.ID),
		logger.String("direction", string(direction)),
		logger.Float64("confidence", cand.Confidence))

	return nil
}

// validateDirection overrides the initial direction guess when the
// structure makes it implausible: a right merge needs comparable row
// counts, a bottom merge comparable column counts. Cross-page pairs are
// always bottom merges.
func (m *Merger) validateDirection(direction models.MergeDirection, dest, src *models.Table) models.MergeDirection {
	if src.PageIndex != dest.PageIndex {
		return models.MergeBottom
	}

	rowDelta := absInt(dest.RowCount() - src.RowCount())
	colDelta := absInt(dest.ColCount() - src.ColCount())

	if direction == models.MergeRight && rowDelta >= m.cfg.MaxRowDelta {
		return models.MergeBottom
	}
	if direction == models.MergeBottom && colDelta >= m.cfg.MaxColDelta && rowDelta < m.cfg.MaxRowDelta {
		return models.MergeRight
	}
	return direction
}

func withinBand(a, b, tolerance float64) bool {
	larger := math.Max(a, b)
	if larger <= 0 {
		return false
	}
	return math.Abs(a-b)/larger <= tolerance
}

// horizontalOverlap is the overlap of the boxes' X intervals relative to
// the narrower box.
func horizontalOverlap(a, b models.BBox) float64 {
	lo := math.Max(a.Left, b.Left)
	hi := math.Min(a.Right, b.Right)
	if hi <= lo {
		return 0
	}
	narrower := math.Min(a.Width(), b.Width())
	if narrower <= 0 {
		return 0
	}
	return (hi - lo) / narrower
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

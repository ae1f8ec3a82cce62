package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigError is a configuration-time error. It is the only error class
// that propagates to the caller and halts a run; everything inside the
// per-table processing loop is contained at table granularity.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Reason)
}

// Quality metric names understood by the evaluator.
const (
	MetricAccuracy     = "accuracy"
	MetricCompleteness = "completeness"
	MetricStructure    = "structure"
)

// MetricWeight is one weighted quality metric.
type MetricWeight struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

// QualityConfig controls table quality scoring and fallback escalation.
type QualityConfig struct {
	// Metrics and their weights. Weights must sum to 1.0.
	Metrics []MetricWeight `yaml:"metrics"`
	// MinQuality is the score below which a table is escalated to
	// fallback extraction.
	MinQuality float64 `yaml:"minQuality"`
	// MinCellCount escalates tables with almost no recognized cells
	// regardless of score.
	MinCellCount int `yaml:"minCellCount"`
	// FallbackQuality is the acceptance threshold for a fallback
	// candidate, stricter than MinQuality since fallback is a last resort.
	FallbackQuality float64 `yaml:"fallbackQuality"`
}

// AssemblerConfig controls cell assembly cleanup passes.
type AssemblerConfig struct {
	// SplitRowFraction is the minimum fraction of table rows that must
	// exhibit the stacked-lines pattern before any row is split.
	SplitRowFraction float64 `yaml:"splitRowFraction"`
	// MinPartialRowCells is the minimum cell count for the partial-row
	// split variant.
	MinPartialRowCells int `yaml:"minPartialRowCells"`
}

// FallbackConfig controls the grid-line fallback engine.
type FallbackConfig struct {
	Enabled bool `yaml:"enabled"`
	// Optimize searches the parameter space below instead of running a
	// single extraction with defaults.
	Optimize   bool      `yaml:"optimize"`
	Flavors    []string  `yaml:"flavors"`
	LineScales []int     `yaml:"lineScales"`
	LineWidths []float64 `yaml:"lineWidths"`
	EdgeTols   []float64 `yaml:"edgeTols"`
	RowTols    []float64 `yaml:"rowTols"`
	CopyText   bool      `yaml:"copyText"`
}

// MergeConfig holds the table-merge heuristics. The count thresholds are
// tunable constants, not derived semantics; tests read them from here.
type MergeConfig struct {
	// MaxRowDelta is the row-count difference above which a bottom merge
	// is implausible.
	MaxRowDelta int `yaml:"maxRowDelta"`
	// MaxColDelta is the column-count difference above which a right
	// merge is implausible.
	MaxColDelta int `yaml:"maxColDelta"`
	// PageCoverage is the fraction of page height a table must occupy to
	// count as a cross-page continuation candidate.
	PageCoverage float64 `yaml:"pageCoverage"`
	// VerticalGap is the maximum distance between stacked tables, in
	// document units.
	VerticalGap float64 `yaml:"verticalGap"`
	// HorizontalGap is the maximum side-by-side gap for a right merge.
	HorizontalGap float64 `yaml:"horizontalGap"`
	// HeightTolerance and WidthTolerance are relative bands for "about
	// the same size" checks.
	HeightTolerance float64 `yaml:"heightTolerance"`
	WidthTolerance  float64 `yaml:"widthTolerance"`
	// LLMAssist consults the merge advisor for pairs the heuristics
	// score as ambiguous. The heuristic decision stays authoritative.
	LLMAssist bool `yaml:"llmAssist"`
}

// PipelineConfig is the full table-pipeline configuration, loaded from
// YAML and validated before any document processing begins.
type PipelineConfig struct {
	Quality   QualityConfig   `yaml:"quality"`
	Assembler AssemblerConfig `yaml:"assembler"`
	Fallback  FallbackConfig  `yaml:"fallback"`
	Merge     MergeConfig     `yaml:"merge"`
}

// DefaultPipelineConfig returns the built-in defaults.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		Quality: QualityConfig{
			Metrics: []MetricWeight{
				{Name: MetricAccuracy, Weight: 0.4},
				{Name: MetricCompleteness, Weight: 0.3},
				{Name: MetricStructure, Weight: 0.3},
			},
			MinQuality:      0.6,
			MinCellCount:    4,
			FallbackQuality: 0.9,
		},
		Assembler: AssemblerConfig{
			SplitRowFraction:   0.5,
			MinPartialRowCells: 4,
		},
		Fallback: FallbackConfig{
			Enabled:    true,
			Optimize:   true,
			Flavors:    []string{"lattice", "stream"},
			LineScales: []int{15, 40},
			LineWidths: []float64{2},
			EdgeTols:   []float64{50, 500},
			RowTols:    []float64{2, 10},
			CopyText:   true,
		},
		Merge: MergeConfig{
			MaxRowDelta:     5,
			MaxColDelta:     2,
			PageCoverage:    0.8,
			VerticalGap:     30,
			HorizontalGap:   20,
			HeightTolerance: 0.15,
			WidthTolerance:  0.15,
			LLMAssist:       false,
		},
	}
}

// LoadPipelineConfig reads and validates a YAML pipeline configuration.
// Missing file falls back to defaults; an invalid file fails fast.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cfg := DefaultPipelineConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read pipeline config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the configuration invariants. Violations are operator
// errors and must halt the run before any document is processed.
func (c *PipelineConfig) Validate() error {
	if len(c.Quality.Metrics) == 0 {
		return &ConfigError{Field: "quality.metrics", Reason: "at least one metric is required"}
	}

	sum := 0.0
	seen := make(map[string]bool, len(c.Quality.Metrics))
	for _, m := range c.Quality.Metrics {
		switch m.Name {
		case MetricAccuracy, MetricCompleteness, MetricStructure:
		default:
			return &ConfigError{Field: "quality.metrics", Reason: fmt.Sprintf("unknown metric %q", m.Name)}
		}
		if seen[m.Name] {
			return &ConfigError{Field: "quality.metrics", Reason: fmt.Sprintf("duplicate metric %q", m.Name)}
		}
		seen[m.Name] = true
		if m.Weight < 0 {
			return &ConfigError{Field: "quality.metrics", Reason: fmt.Sprintf("negative weight for %q", m.Name)}
		}
		sum += m.Weight
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return &ConfigError{Field: "quality.metrics", Reason: fmt.Sprintf("weights sum to %.4f, expected 1.0", sum)}
	}

	if c.Quality.MinQuality < 0 || c.Quality.MinQuality > 1 {
		return &ConfigError{Field: "quality.minQuality", Reason: "must be within [0, 1]"}
	}
	if c.Quality.FallbackQuality < 0 || c.Quality.FallbackQuality > 1 {
		return &ConfigError{Field: "quality.fallbackQuality", Reason: "must be within [0, 1]"}
	}
	if c.Quality.MinCellCount < 0 {
		return &ConfigError{Field: "quality.minCellCount", Reason: "must not be negative"}
	}

	if c.Assembler.SplitRowFraction <= 0 || c.Assembler.SplitRowFraction > 1 {
		return &ConfigError{Field: "assembler.splitRowFraction", Reason: "must be within (0, 1]"}
	}

	if c.Fallback.Enabled {
		for _, f := range c.Fallback.Flavors {
			if f != "lattice" && f != "stream" {
				return &ConfigError{Field: "fallback.flavors", Reason: fmt.Sprintf("unknown flavor %q", f)}
			}
		}
		if c.Fallback.Optimize && len(c.Fallback.Flavors) == 0 {
			return &ConfigError{Field: "fallback.flavors", Reason: "parameter search requires at least one flavor"}
		}
	}

	if c.Merge.MaxRowDelta < 0 || c.Merge.MaxColDelta < 0 {
		return &ConfigError{Field: "merge", Reason: "count deltas must not be negative"}
	}
	if c.Merge.PageCoverage <= 0 || c.Merge.PageCoverage > 1 {
		return &ConfigError{Field: "merge.pageCoverage", Reason: "must be within (0, 1]"}
	}

	return nil
}

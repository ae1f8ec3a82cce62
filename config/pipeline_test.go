package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPipelineConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultPipelineConfig().Validate())
}

func TestValidateWeightSum(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.Quality.Metrics = []MetricWeight{
		{Name: MetricAccuracy, Weight: 0.5},
		{Name: MetricCompleteness, Weight: 0.3},
	}

	err := cfg.Validate()

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "quality.metrics", cfgErr.Field)
	assert.Contains(t, cfgErr.Reason, "sum")
}

func TestValidateDuplicateMetric(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.Quality.Metrics = []MetricWeight{
		{Name: MetricAccuracy, Weight: 0.5},
		{Name: MetricAccuracy, Weight: 0.5},
	}

	var cfgErr *ConfigError
	require.ErrorAs(t, cfg.Validate(), &cfgErr)
	assert.Contains(t, cfgErr.Reason, "duplicate")
}

func TestValidateUnknownMetric(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.Quality.Metrics = []MetricWeight{
		{Name: "sharpness", Weight: 1.0},
	}

	var cfgErr *ConfigError
	require.ErrorAs(t, cfg.Validate(), &cfgErr)
	assert.Contains(t, cfgErr.Reason, "unknown metric")
}

func TestValidateNoMetrics(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.Quality.Metrics = nil

	var cfgErr *ConfigError
	require.ErrorAs(t, cfg.Validate(), &cfgErr)
}

func TestValidateThresholdRanges(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.Quality.MinQuality = 1.5
	assert.Error(t, cfg.Validate())

	cfg = DefaultPipelineConfig()
	cfg.Quality.FallbackQuality = -0.1
	assert.Error(t, cfg.Validate())

	cfg = DefaultPipelineConfig()
	cfg.Quality.MinCellCount = -1
	assert.Error(t, cfg.Validate())
}

func TestValidateUnknownFlavor(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.Fallback.Flavors = []string{"lattice", "mesh"}

	var cfgErr *ConfigError
	require.ErrorAs(t, cfg.Validate(), &cfgErr)
	assert.Equal(t, "fallback.flavors", cfgErr.Field)
}

func TestValidateFlavorsIgnoredWhenFallbackDisabled(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.Fallback.Enabled = false
	cfg.Fallback.Flavors = []string{"mesh"}

	assert.NoError(t, cfg.Validate())
}

func TestValidateMergeRanges(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.Merge.MaxRowDelta = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultPipelineConfig()
	cfg.Merge.PageCoverage = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadPipelineConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadPipelineConfig(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Equal(t, DefaultPipelineConfig(), cfg)
}

func TestLoadPipelineConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	data := []byte("quality:\n  minQuality: 0.75\nmerge:\n  llmAssist: true\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadPipelineConfig(path)

	require.NoError(t, err)
	assert.Equal(t, 0.75, cfg.Quality.MinQuality)
	assert.True(t, cfg.Merge.LLMAssist)
	// Untouched sections keep their defaults.
	assert.Equal(t, DefaultPipelineConfig().Fallback, cfg.Fallback)
}

func TestLoadPipelineConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	data := []byte("quality:\n  minQuality: 2.0\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err := LoadPipelineConfig(path)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvPipelineSampleSize          = "DELVE_PIPELINE_SAMPLE_SIZE"
	EnvPipelineBatchSize           = "DELVE_PIPELINE_BATCH_SIZE"
	EnvPipelineMaxClusters         = "DELVE_PIPELINE_MAX_CLUSTERS"
	EnvPipelineConfidenceThreshold = "DELVE_PIPELINE_CONFIDENCE_THRESHOLD"
	EnvPipelineLabelWorkers        = "DELVE_PIPELINE_LABEL_WORKERS"
)

// PipelineConfig holds the service-level defaults applied to runs that omit
// the corresponding option. Per-run options always win.
type PipelineConfig struct {
	SampleSize          int     `toml:"sample_size"`
	BatchSize           int     `toml:"batch_size"`
	MaxClusters         int     `toml:"max_clusters"`
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	LabelWorkers        int     `toml:"label_workers"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.SampleSize != 0 {
		c.SampleSize = overlay.SampleSize
	}
	if overlay.BatchSize != 0 {
		c.BatchSize = overlay.BatchSize
	}
	if overlay.MaxClusters != 0 {
		c.MaxClusters = overlay.MaxClusters
	}
	if overlay.ConfidenceThreshold != 0 {
		c.ConfidenceThreshold = overlay.ConfidenceThreshold
	}
	if overlay.LabelWorkers != 0 {
		c.LabelWorkers = overlay.LabelWorkers
	}
}

func (c *PipelineConfig) loadDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 200
	}
	if c.MaxClusters == 0 {
		c.MaxClusters = 25
	}
}

func (c *PipelineConfig) loadEnv() {
	setInt := func(envVar string, target *int) {
		if v := os.Getenv(envVar); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*target = n
			}
		}
	}

	setInt(EnvPipelineSampleSize, &c.SampleSize)
	setInt(EnvPipelineBatchSize, &c.BatchSize)
	setInt(EnvPipelineMaxClusters, &c.MaxClusters)
	setInt(EnvPipelineLabelWorkers, &c.LabelWorkers)

	if v := os.Getenv(EnvPipelineConfidenceThreshold); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.ConfidenceThreshold = f
		}
	}
}

func (c *PipelineConfig) validate() error {
	if c.SampleSize < 0 {
		return fmt.Errorf("sample_size cannot be negative: %d", c.SampleSize)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be positive: %d", c.BatchSize)
	}
	if c.MaxClusters < 1 {
		return fmt.Errorf("max_clusters must be at least 1: %d", c.MaxClusters)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be within [0, 1]: %g", c.ConfidenceThreshold)
	}
	if c.LabelWorkers < 0 {
		return fmt.Errorf("label_workers cannot be negative: %d", c.LabelWorkers)
	}
	return nil
}

package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// RunConfig is the YAML-loadable shape of a batch's run options (§6.1),
// mirroring the teacher's PolicyBundle: strict decoding, nil pointers mean
// "not set", and Validate/ToRunOpts stay separate from parsing.
type RunConfig struct {
	Runs           int     `yaml:"runs"`
	Seed           int64   `yaml:"seed"`
	CollectTraces  *bool   `yaml:"collect_traces"`
	MaxParallelism int     `yaml:"max_parallelism"`
	DeadlineMs     *int64  `yaml:"deadline_ms"`
	TopKPaths      int     `yaml:"top_k_paths"`
	Percentiles    []int   `yaml:"percentiles"`
}

// LoadRunConfig reads and strictly parses a YAML run configuration file.
// Unrecognized keys are rejected, same as the policy bundle loader this is
// grounded on.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	var cfg RunConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing run config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the bounds a RunConfig must satisfy before use.
func (c *RunConfig) Validate() error {
	if c.Runs < 1 {
		return fmt.Errorf("runs must be >= 1, got %d", c.Runs)
	}
	if c.MaxParallelism < 0 {
		return fmt.Errorf("max_parallelism must be >= 0, got %d", c.MaxParallelism)
	}
	if c.DeadlineMs != nil && *c.DeadlineMs < 0 {
		return fmt.Errorf("deadline_ms must be >= 0, got %d", *c.DeadlineMs)
	}
	if c.TopKPaths < 0 {
		return fmt.Errorf("top_k_paths must be >= 0, got %d", c.TopKPaths)
	}
	for _, p := range c.Percentiles {
		if p < 0 || p > 100 || math.IsNaN(float64(p)) {
			return fmt.Errorf("percentiles entries must be in [0, 100], got %d", p)
		}
	}
	return nil
}

// ToRunOpts translates the parsed config into the options RunMany consumes.
func (c *RunConfig) ToRunOpts() RunOpts {
	opts := RunOpts{CollectTraces: true, MaxParallelism: c.MaxParallelism, DeadlineMs: c.DeadlineMs}
	if c.CollectTraces != nil {
		opts.CollectTraces = *c.CollectTraces
	}
	return opts
}

// ToAggregatorOptions translates the parsed config into Aggregate's options.
func (c *RunConfig) ToAggregatorOptions() AggregatorOptions {
	opts := DefaultAggregatorOptions()
	if c.TopKPaths > 0 {
		opts.TopK = c.TopKPaths
	}
	if len(c.Percentiles) > 0 {
		opts.Percentiles = c.Percentiles
	}
	return opts
}

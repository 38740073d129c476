package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/lucasgrd/shopsched/core/agent"
	"github.com/lucasgrd/shopsched/core/gnn"
	"github.com/lucasgrd/shopsched/core/metrics"
	"github.com/lucasgrd/shopsched/core/model"
	"github.com/lucasgrd/shopsched/core/problem"
	"github.com/lucasgrd/shopsched/core/solver"
)

// Config aggregates the settings of every scheduling tier.
type Config struct {
	Problem ProblemConfig  `json:"problem"`
	Solver  solver.Config  `json:"solver"`
	Agent   agent.Config   `json:"agent"`
	GNN     gnn.Config     `json:"gnn"`
	Metrics metrics.Config `json:"metrics"`
	Logging LoggingConfig  `json:"logging"`
	Hybrid  HybridConfig   `json:"hybrid"`
}

// ProblemConfig carries the problem-builder knobs.
type ProblemConfig struct {
	// MinGap is the minimum idle time, in minutes, between consecutive
	// operations of the same job.
	MinGap int `json:"min_gap"`
	// HorizonDays bounds the scheduling horizon.
	HorizonDays int `json:"horizon_days"`
	// PriorityWeights maps job priorities to objective weights.
	PriorityWeights model.PriorityWeights `json:"priority_weights"`
}

// SetDefaults applies sane defaults.
func (c *ProblemConfig) SetDefaults() {
	if c.HorizonDays <= 0 {
		c.HorizonDays = 28
	}
	if c.PriorityWeights == (model.PriorityWeights{}) {
		c.PriorityWeights = model.DefaultPriorityWeights()
	}
}

// Validate checks mandatory fields.
func (c ProblemConfig) Validate() error {
	if c.MinGap < 0 {
		return fmt.Errorf("min_gap must be non-negative")
	}
	w := c.PriorityWeights
	if w.Urgent < w.High || w.High < w.Medium || w.Medium < w.Low {
		return fmt.Errorf("priority weights must be non-increasing from urgent to low")
	}
	return nil
}

// Options converts the section into builder options.
func (c ProblemConfig) Options() problem.Options {
	return problem.Options{
		MinGap:          c.MinGap,
		HorizonMinutes:  c.HorizonDays * model.MinutesPerDay,
		PriorityWeights: c.PriorityWeights,
	}
}

// HybridConfig toggles the reactive and predictive tiers.
type HybridConfig struct {
	EnableRL  bool `json:"enable_rl"`
	EnableGNN bool `json:"enable_gnn"`
}

// Load reads a config file and applies K_ environment overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies defaults on every section.
func (c *Config) SetDefaults() {
	c.Problem.SetDefaults()
	c.Solver.SetDefaults()
	c.Agent.SetDefaults()
	c.GNN.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Problem.Validate(); err != nil {
		return err
	}
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	if c.Hybrid.EnableRL {
		if err := c.Agent.Validate(); err != nil {
			return err
		}
	}
	return c.Logging.Validate()
}

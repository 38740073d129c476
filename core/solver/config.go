package solver

import "errors"

// Config defines Tier 1 solve parameters loaded from configuration.
type Config struct {
	TimeLimitSeconds float64 `json:"time_limit_seconds"`
	MakespanWeight   float64 `json:"makespan_weight"`
	TardinessWeight  float64 `json:"tardiness_weight"`
	Workers          int     `json:"workers"`
}

// SetDefaults fills unset fields with their defaults.
func (c *Config) SetDefaults() {
	if c.TimeLimitSeconds == 0 {
		c.TimeLimitSeconds = 30
	}
	if c.MakespanWeight == 0 && c.TardinessWeight == 0 {
		c.MakespanWeight = 1
		c.TardinessWeight = 1
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.TimeLimitSeconds <= 0 {
		return errors.New("time_limit_seconds must be positive")
	}
	if c.MakespanWeight < 0 || c.TardinessWeight < 0 {
		return errors.New("objective weights must be non-negative")
	}
	if c.MakespanWeight == 0 && c.TardinessWeight == 0 {
		return errors.New("at least one objective weight must be positive")
	}
	return nil
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RangeSearch configures the optional sample-size sweep for a scenario.
type RangeSearch struct {
	Enabled       bool    `yaml:"enabled"`
	Delta         float64 `yaml:"delta"`
	MinPercChange float64 `yaml:"min_perc_change"`
}

// Scenario is one trial design to evaluate.
type Scenario struct {
	Name      string  `yaml:"name"`
	NPatients int     `yaml:"n_patients"`
	Alpha     float64 `yaml:"alpha"`
	Power     float64 `yaml:"power"`

	LowerSpending    string    `yaml:"lower_spending"`
	UpperSpending    string    `yaml:"upper_spending"`
	LookFractions    []float64 `yaml:"look_fractions"`
	CustomAlphaSpend []float64 `yaml:"custom_alpha_spend"`

	PropTreated          float64 `yaml:"prop_treated"`
	HazardEventTreatment float64 `yaml:"hazard_event_treatment"`
	HazardEventControl   float64 `yaml:"hazard_event_control"`
	HazardDropout        float64 `yaml:"hazard_dropout"`

	EnrollmentTimes []float64 `yaml:"enrollment_times"`
	EnrollmentRates []float64 `yaml:"enrollment_rates"`

	GridPoints int     `yaml:"grid_points"`
	Tolerance  float64 `yaml:"tolerance"`

	RangeSearch RangeSearch `yaml:"range_search"`
}

// Config holds all application configuration.
type Config struct {
	Scenarios []Scenario `yaml:"scenarios"`
	Database  struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		RecomputeCron string `yaml:"recompute_cron"`
	} `yaml:"schedule"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and per-scenario defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Environment variable overrides
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("RECOMPUTE_CRON"); v != "" {
		cfg.Schedule.RecomputeCron = v
	}

	// Defaults
	if cfg.Schedule.RecomputeCron == "" {
		cfg.Schedule.RecomputeCron = "0 0 6 * * 1"
	}
	for i := range cfg.Scenarios {
		sc := &cfg.Scenarios[i]
		if sc.PropTreated == 0 {
			sc.PropTreated = 0.5
		}
		if sc.GridPoints == 0 {
			sc.GridPoints = 32
		}
		if sc.Tolerance == 0 {
			sc.Tolerance = 1e-6
		}
		if sc.RangeSearch.Enabled {
			if sc.RangeSearch.Delta == 0 {
				sc.RangeSearch.Delta = 25
			}
			if sc.RangeSearch.MinPercChange == 0 {
				sc.RangeSearch.MinPercChange = 1
			}
		}
	}

	return cfg, nil
}

// Validate checks that all required fields are set. Numeric admissibility is
// the engine's job; this only catches structurally unusable files.
func (c *Config) Validate() error {
	if len(c.Scenarios) == 0 {
		return fmt.Errorf("at least one scenario is required")
	}
	seen := make(map[string]bool)
	for i, sc := range c.Scenarios {
		if sc.Name == "" {
			return fmt.Errorf("scenario %d: name is required", i+1)
		}
		if seen[sc.Name] {
			return fmt.Errorf("scenario %q: duplicate name", sc.Name)
		}
		seen[sc.Name] = true
		if sc.NPatients <= 0 && !sc.RangeSearch.Enabled {
			return fmt.Errorf("scenario %q: n_patients is required unless range_search is enabled", sc.Name)
		}
		if len(sc.EnrollmentTimes) == 0 || len(sc.EnrollmentRates) == 0 {
			return fmt.Errorf("scenario %q: enrollment_times and enrollment_rates are required", sc.Name)
		}
	}
	return nil
}

package main

import (
	"fmt"

	"github.com/aouyang1/go-fceval"
	"github.com/aouyang1/go-fceval/forecast"
	"github.com/aouyang1/go-fceval/transform"
	"github.com/spf13/viper"
)

// Config is the file configuration of an evaluation run: where the series
// comes from, which models compete, and how they are split and scored.
type Config struct {
	Input    string `mapstructure:"input"`
	Output   string `mapstructure:"output"`
	Report   string `mapstructure:"report"`
	LogLevel string `mapstructure:"log_level"`

	Evaluation EvaluationConfig `mapstructure:"evaluation"`
	Specs      []SpecConfig     `mapstructure:"specs"`
}

// EvaluationConfig maps onto fceval.Options.
type EvaluationConfig struct {
	Policy         string    `mapstructure:"policy"`
	TestFraction   float64   `mapstructure:"test_fraction"`
	InitialSize    int       `mapstructure:"initial_size"`
	Step           int       `mapstructure:"step"`
	Horizon        int       `mapstructure:"horizon"`
	IntervalLevels []float64 `mapstructure:"interval_levels"`
	Metrics        []string  `mapstructure:"metrics"`
	PrimaryMetric  string    `mapstructure:"primary_metric"`
	Baseline       string    `mapstructure:"baseline"`
	Parallelism    int       `mapstructure:"parallelism"`
}

// SpecConfig declares one candidate model.
type SpecConfig struct {
	Name           string            `mapstructure:"name"`
	Family         string            `mapstructure:"family"`
	Transform      string            `mapstructure:"transform"`
	Trend          bool              `mapstructure:"trend"`
	SeasonalPeriod int               `mapstructure:"seasonal_period"`
	Covariates     []CovariateConfig `mapstructure:"covariates"`
}

type CovariateConfig struct {
	Name string `mapstructure:"name"`
	Lag  int    `mapstructure:"lag"`
}

// LoadConfig reads and unmarshals the YAML configuration at path.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to read config, %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config, %w", err)
	}
	return &cfg, nil
}

// Options converts the evaluation section into harness options, retaining
// defaults for unset fields.
func (c *Config) Options() *fceval.Options {
	opt := fceval.NewDefaultOptions()
	e := c.Evaluation
	if e.Policy != "" {
		opt.Policy = fceval.SplitPolicy(e.Policy)
	}
	if e.TestFraction != 0 {
		opt.TestFraction = e.TestFraction
	}
	opt.InitialSize = e.InitialSize
	opt.Step = e.Step
	opt.Horizon = e.Horizon
	if len(e.IntervalLevels) > 0 {
		opt.IntervalLevels = e.IntervalLevels
	}
	if len(e.Metrics) > 0 {
		opt.Metrics = e.Metrics
	}
	if e.PrimaryMetric != "" {
		opt.PrimaryMetric = e.PrimaryMetric
	}
	opt.Baseline = e.Baseline
	if e.Parallelism > 0 {
		opt.Parallelism = e.Parallelism
	}
	return opt
}

// Registry builds the model registry from the declared specifications.
func (c *Config) Registry() (*forecast.Registry, error) {
	reg, err := forecast.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, sc := range c.Specs {
		tr, err := transform.Parse(sc.Transform)
		if err != nil {
			return nil, fmt.Errorf("spec %q, %w", sc.Name, err)
		}
		spec := forecast.Spec{
			Name:           sc.Name,
			Family:         forecast.Family(sc.Family),
			Transform:      tr,
			Trend:          sc.Trend,
			SeasonalPeriod: sc.SeasonalPeriod,
		}
		for _, cov := range sc.Covariates {
			spec.Covariates = append(spec.Covariates, forecast.CovariateTerm{
				Name: cov.Name,
				Lag:  cov.Lag,
			})
		}
		if err := reg.Add(spec); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aouyang1/go-fceval"
	"github.com/aouyang1/go-fceval/eval"
	"github.com/aouyang1/go-fceval/forecast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
input: series.csv
output: results.json
log_level: debug

evaluation:
  policy: rolling_origin
  initial_size: 168
  step: 24
  horizon: 48
  metrics:
    - rmse
    - crps
  primary_metric: rmse_skill
  baseline: naive

specs:
  - name: naive
    family: naive
  - name: snaive24
    family: seasonal_naive
    seasonal_period: 24
  - name: lin_log
    family: linear
    transform: log1p
    trend: true
    covariates:
      - name: temperature
        lag: 1
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fceval.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeTestConfig(t))
	require.NoError(t, err)

	assert.Equal(t, "series.csv", cfg.Input)
	assert.Equal(t, "results.json", cfg.Output)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Len(t, cfg.Specs, 3)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigOptions(t *testing.T) {
	cfg, err := LoadConfig(writeTestConfig(t))
	require.NoError(t, err)

	opt := cfg.Options()
	assert.Equal(t, fceval.SplitRollingOrigin, opt.Policy)
	assert.Equal(t, 168, opt.InitialSize)
	assert.Equal(t, 24, opt.Step)
	assert.Equal(t, 48, opt.Horizon)
	assert.Equal(t, []string{eval.MetricRMSE, eval.MetricCRPS}, opt.Metrics)
	assert.Equal(t, eval.MetricRMSE+eval.SkillSuffix, opt.PrimaryMetric)
	assert.Equal(t, "naive", opt.Baseline)
	// unset fields fall back to defaults
	assert.Equal(t, []float64{0.8, 0.95}, opt.IntervalLevels)

	require.NoError(t, opt.Validate())
}

func TestConfigRegistry(t *testing.T) {
	cfg, err := LoadConfig(writeTestConfig(t))
	require.NoError(t, err)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	require.Equal(t, 3, reg.Len())

	spec, exists := reg.Get("lin_log")
	require.True(t, exists)
	assert.Equal(t, forecast.FamilyLinear, spec.Family)
	assert.Equal(t, "log1p", spec.Transform.Name())
	assert.True(t, spec.Trend)
	require.Len(t, spec.Covariates, 1)
	assert.Equal(t, forecast.CovariateTerm{Name: "temperature", Lag: 1}, spec.Covariates[0])

	// transform names are validated at registry build time
	cfg.Specs[0].Transform = "boxcox"
	_, err = cfg.Registry()
	assert.Error(t, err)
}

package fceval

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/aouyang1/go-fceval/eval"
)

var (
	ErrUnknownPolicy      = errors.New("unknown split policy")
	ErrBadIntervalLevel   = errors.New("interval level must be in (0, 1)")
	ErrBadHorizon         = errors.New("rolling-origin evaluation requires a positive forecast horizon")
	ErrBadPrimaryMetric   = errors.New("primary metric is not among the computed metrics")
	ErrSkillNeedsBaseline = errors.New("skill metrics require a baseline model")
)

// SplitPolicy selects the evaluation strategy.
type SplitPolicy string

const (
	SplitHoldout       SplitPolicy = "holdout"
	SplitRollingOrigin SplitPolicy = "rolling_origin"
)

// Options configures an evaluation run. Libraries consume it as an explicit
// struct; the CLI populates it from file configuration.
type Options struct {
	Policy SplitPolicy

	// holdout
	TestFraction float64

	// rolling origin
	InitialSize int
	Step        int
	Horizon     int

	IntervalLevels []float64
	Metrics        []string

	// PrimaryMetric ranks the final table. It may carry the skill suffix
	// when a Baseline is designated. Directions overrides the default sort
	// direction per metric, true meaning higher is better.
	PrimaryMetric string
	Directions    map[string]bool
	Baseline      string

	Parallelism int
}

// NewDefaultOptions returns an evaluation configuration with a 20% holdout,
// 80/95 intervals, RMSE/CRPS scoring ranked by RMSE.
func NewDefaultOptions() *Options {
	return &Options{
		Policy:         SplitHoldout,
		TestFraction:   0.2,
		IntervalLevels: []float64{0.8, 0.95},
		Metrics:        []string{eval.MetricRMSE, eval.MetricCRPS},
		PrimaryMetric:  eval.MetricRMSE,
		Parallelism:    runtime.NumCPU(),
	}
}

// Validate fails fast on ill-posed configurations before any fitting begins.
func (o *Options) Validate() error {
	switch o.Policy {
	case SplitHoldout, SplitRollingOrigin:
	default:
		return fmt.Errorf("%q, %w", o.Policy, ErrUnknownPolicy)
	}
	if o.Policy == SplitRollingOrigin && o.Horizon < 1 {
		return fmt.Errorf("horizon %d, %w", o.Horizon, ErrBadHorizon)
	}
	for _, level := range o.IntervalLevels {
		if level <= 0 || level >= 1 {
			return fmt.Errorf("%f, %w", level, ErrBadIntervalLevel)
		}
	}
	if len(o.Metrics) == 0 {
		return fmt.Errorf("no metrics configured, %w", eval.ErrUnknownMetric)
	}
	for _, m := range o.Metrics {
		if err := eval.ValidMetric(m); err != nil {
			return err
		}
	}

	primary := strings.TrimSuffix(o.PrimaryMetric, eval.SkillSuffix)
	if primary != o.PrimaryMetric && o.Baseline == "" {
		return fmt.Errorf("%q, %w", o.PrimaryMetric, ErrSkillNeedsBaseline)
	}
	found := false
	for _, m := range o.Metrics {
		if m == primary {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%q, %w", o.PrimaryMetric, ErrBadPrimaryMetric)
	}
	return nil
}

// PrimaryHigherBetter resolves the sort direction of the primary metric,
// honoring any per-metric override.
func (o *Options) PrimaryHigherBetter() bool {
	if dir, exists := o.Directions[o.PrimaryMetric]; exists {
		return dir
	}
	return eval.HigherBetter(o.PrimaryMetric)
}

func (o *Options) parallelism() int {
	if o.Parallelism < 1 {
		return runtime.NumCPU()
	}
	return o.Parallelism
}

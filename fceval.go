// Package fceval evaluates candidate forecasting models against a time
// series under holdout or rolling-origin cross-validation, scoring each
// (model, partition) cell independently and aggregating the surviving records
// into a deterministic ranking. Individual cell failures are recorded and
// skipped; they never abort the run.
package fceval

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aouyang1/go-fceval/eval"
	"github.com/aouyang1/go-fceval/forecast"
	"github.com/aouyang1/go-fceval/split"
	"github.com/aouyang1/go-fceval/timedataset"
	"github.com/sirupsen/logrus"
)

var ErrUnknownBaseline = errors.New("baseline model is not registered")

// Harness runs the full model x partition evaluation matrix.
type Harness struct {
	opt    *Options
	logger *logrus.Logger
}

// New creates a Harness with the provided options and logger. A nil option
// uses the defaults and a nil logger falls back to the standard logger.
func New(opt *Options, logger *logrus.Logger) (*Harness, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Harness{
		opt:    opt,
		logger: logger,
	}, nil
}

type cell struct {
	spec    forecast.Spec
	part    split.Partition
	horizon int
}

type cellResult struct {
	model     string
	partition int
	fc        *forecast.Forecast
	scores    map[string]float64
	stage     string
	err       error
}

// Evaluate fans the model x partition matrix out over a bounded worker pool
// and fans the per-cell results back into the output tables. Each cell is
// fully independent so parallel execution needs no shared mutable state
// beyond the read-only input dataset.
func (h *Harness) Evaluate(td *timedataset.TimeDataset, reg *forecast.Registry) (*Results, error) {
	partitions, err := h.partitions(td)
	if err != nil {
		return nil, err
	}
	if h.opt.Baseline != "" {
		if _, exists := reg.Get(h.opt.Baseline); !exists {
			return nil, fmt.Errorf("%q, %w", h.opt.Baseline, ErrUnknownBaseline)
		}
	}

	cells := make([]cell, 0, reg.Len()*len(partitions))
	for _, spec := range reg.Specs() {
		for _, part := range partitions {
			horizon := h.horizonFor(td, part)
			if horizon < 1 {
				// origin at the series end has nothing left to forecast
				// against; it contributes no cell rather than erroring
				continue
			}
			cells = append(cells, cell{spec: spec, part: part, horizon: horizon})
		}
	}

	results := h.runPool(td, cells)

	res := &Results{Partitions: len(partitions)}
	var records []eval.Record
	for _, cr := range results {
		if cr.err != nil {
			h.logger.WithFields(logrus.Fields{
				"model":     cr.model,
				"partition": cr.partition,
				"stage":     cr.stage,
			}).WithError(cr.err).Warn("skipping cell")
			res.Failures = append(res.Failures, Failure{
				Model:     cr.model,
				Partition: cr.partition,
				Stage:     cr.stage,
				Error:     cr.err.Error(),
			})
			continue
		}

		rows, err := h.forecastRows(cr)
		if err != nil {
			return nil, err
		}
		res.Forecasts = append(res.Forecasts, rows...)

		for metric, score := range cr.scores {
			records = append(records, eval.Record{
				Model:     cr.model,
				Partition: cr.partition,
				Metric:    metric,
				Score:     score,
			})
		}
	}

	records = append(records, h.skillRecords(records)...)

	sortRecords(records)
	res.Accuracy = records
	res.Aggregates = eval.Aggregate(records)
	res.Rankings = eval.SortByMetric(res.Aggregates, h.opt.PrimaryMetric, h.opt.PrimaryHigherBetter())

	sort.Slice(res.Forecasts, func(i, j int) bool {
		a, b := res.Forecasts[i], res.Forecasts[j]
		if a.Model != b.Model {
			return a.Model < b.Model
		}
		if a.Partition != b.Partition {
			return a.Partition < b.Partition
		}
		return a.Time.Before(b.Time)
	})
	sort.Slice(res.Failures, func(i, j int) bool {
		a, b := res.Failures[i], res.Failures[j]
		if a.Model != b.Model {
			return a.Model < b.Model
		}
		return a.Partition < b.Partition
	})
	return res, nil
}

func (h *Harness) partitions(td *timedataset.TimeDataset) ([]split.Partition, error) {
	switch h.opt.Policy {
	case SplitHoldout:
		p, err := split.Holdout(td, h.opt.TestFraction)
		if err != nil {
			return nil, err
		}
		return []split.Partition{p}, nil
	case SplitRollingOrigin:
		return split.RollingOrigin(td, h.opt.InitialSize, h.opt.Step)
	}
	return nil, fmt.Errorf("%q, %w", h.opt.Policy, ErrUnknownPolicy)
}

// holdout scores the entire reserved test range; rolling origins forecast the
// configured horizon truncated to the ground truth remaining past the cutoff
func (h *Harness) horizonFor(td *timedataset.TimeDataset, part split.Partition) int {
	remaining := td.Len() - part.TrainEnd
	if h.opt.Policy == SplitHoldout {
		return remaining
	}
	if h.opt.Horizon < remaining {
		return h.opt.Horizon
	}
	return remaining
}

func (h *Harness) runPool(td *timedataset.TimeDataset, cells []cell) []cellResult {
	workers := h.opt.parallelism()
	if workers > len(cells) {
		workers = len(cells)
	}

	jobs := make(chan cell)
	out := make(chan cellResult)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				out <- h.runCell(td, c)
			}
		}()
	}
	go func() {
		for _, c := range cells {
			jobs <- c
		}
		close(jobs)
	}()
	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]cellResult, 0, len(cells))
	for cr := range out {
		results = append(results, cr)
	}
	return results
}

func (h *Harness) runCell(td *timedataset.TimeDataset, c cell) cellResult {
	cr := cellResult{
		model:     c.spec.Name,
		partition: c.part.Origin,
	}

	train, err := c.part.Train(td)
	if err != nil {
		cr.stage, cr.err = "split", err
		return cr
	}

	fm, err := forecast.Fit(train, c.spec)
	if err != nil {
		cr.stage, cr.err = "fit", err
		return cr
	}

	fc, err := fm.Forecast(c.horizon, h.futureCovariates(td, c))
	if err != nil {
		cr.stage, cr.err = "forecast", err
		return cr
	}
	cr.fc = fc

	if c.part.TestLen(td, c.horizon) > 0 {
		test, err := c.part.Test(td, c.horizon)
		if err != nil {
			cr.stage, cr.err = "evaluate", err
			return cr
		}
		scores, err := eval.Evaluate(fc, test, h.opt.Metrics)
		if err != nil {
			cr.stage, cr.err = "evaluate", err
			return cr
		}
		cr.scores = scores
	}
	return cr
}

// futureCovariates hands realized covariate values over the forecast window
// to exogenous specifications. The horizon is already truncated to the series
// end so the realized columns always cover it.
func (h *Harness) futureCovariates(td *timedataset.TimeDataset, c cell) *forecast.FutureCovariates {
	if len(c.spec.Covariates) == 0 {
		return nil
	}
	fut := &forecast.FutureCovariates{Values: make(map[string][]float64)}
	for _, term := range c.spec.Covariates {
		vals, err := td.Covariate(term.Name)
		if err != nil {
			continue
		}
		fut.Values[term.Name] = vals[c.part.TrainEnd : c.part.TrainEnd+c.horizon]
	}
	return fut
}

func (h *Harness) forecastRows(cr cellResult) ([]ForecastRow, error) {
	type band struct {
		level        float64
		lower, upper []float64
	}
	bands := make([]band, 0, len(h.opt.IntervalLevels))
	for _, level := range h.opt.IntervalLevels {
		lower, upper, err := cr.fc.Interval(level)
		if err != nil {
			return nil, err
		}
		bands = append(bands, band{level: level, lower: lower, upper: upper})
	}

	rows := make([]ForecastRow, 0, cr.fc.Horizon())
	for i := 0; i < cr.fc.Horizon(); i++ {
		bounds := make([]Bound, 0, len(bands))
		for _, b := range bands {
			bounds = append(bounds, Bound{Level: b.level, Lower: b.lower[i], Upper: b.upper[i]})
		}
		rows = append(rows, ForecastRow{
			Model:     cr.model,
			Partition: cr.partition,
			Time:      cr.fc.T[i],
			Point:     cr.fc.Point[i],
			Bounds:    bounds,
		})
	}
	return rows, nil
}

// skillRecords re-expresses every record relative to the designated baseline
// model's score on the same partition. Cells whose baseline score is exactly
// zero have no defined skill and are omitted; other metrics for that cell
// still report.
func (h *Harness) skillRecords(records []eval.Record) []eval.Record {
	if h.opt.Baseline == "" {
		return nil
	}

	baseScores := make(map[int]map[string]float64)
	for _, r := range records {
		if r.Model != h.opt.Baseline {
			continue
		}
		if _, exists := baseScores[r.Partition]; !exists {
			baseScores[r.Partition] = make(map[string]float64)
		}
		baseScores[r.Partition][r.Metric] = r.Score
	}

	var out []eval.Record
	for _, r := range records {
		base, exists := baseScores[r.Partition][r.Metric]
		if !exists {
			continue
		}
		sk, err := eval.Skill(r.Score, base)
		if err != nil {
			h.logger.WithFields(logrus.Fields{
				"model":     r.Model,
				"partition": r.Partition,
				"metric":    r.Metric,
			}).WithError(err).Warn("omitting skill score")
			continue
		}
		out = append(out, eval.Record{
			Model:     r.Model,
			Partition: r.Partition,
			Metric:    r.Metric + eval.SkillSuffix,
			Score:     sk,
		})
	}
	return out
}

func sortRecords(records []eval.Record) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Model != b.Model {
			return a.Model < b.Model
		}
		if a.Partition != b.Partition {
			return a.Partition < b.Partition
		}
		return a.Metric < b.Metric
	})
}

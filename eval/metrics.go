// Package eval scores forecasts against realized values and aggregates
// per-partition accuracy records into a deterministic model ranking.
package eval

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	MetricRMSE = "rmse"
	MetricMAE  = "mae"
	MetricMAPE = "mape"
	MetricCRPS = "crps"

	// skill-score records are emitted under the base metric name with this
	// suffix appended
	SkillSuffix = "_skill"
)

var (
	ErrUnknownMetric  = errors.New("unknown metric")
	ErrResLenMismatch = errors.New("predicted and actual have different lengths")
	ErrNoOverlap      = errors.New("no overlapping timestamps between forecast and realized values")
	ErrUndefinedSkill = errors.New("skill score undefined for zero baseline score")
)

// KnownMetrics lists the supported metric names.
func KnownMetrics() []string {
	return []string{MetricRMSE, MetricMAE, MetricMAPE, MetricCRPS}
}

// ValidMetric reports whether name is a computable metric.
func ValidMetric(name string) error {
	for _, m := range KnownMetrics() {
		if name == m {
			return nil
		}
	}
	return fmt.Errorf("%q, %w", name, ErrUnknownMetric)
}

// HigherBetter reports the sort direction of a metric: raw error metrics rank
// ascending, skill scores rank descending.
func HigherBetter(metric string) bool {
	return strings.HasSuffix(metric, SkillSuffix)
}

// RMSE computes the root mean squared error skipping NaN pairs.
func RMSE(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, ErrResLenMismatch
	}
	sum := 0.0
	cnt := 0
	for i := 0; i < len(actual); i++ {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		sum += math.Pow(actual[i]-predicted[i], 2.0)
		cnt++
	}
	if cnt == 0 {
		return math.NaN(), nil
	}
	return math.Sqrt(sum / float64(cnt)), nil
}

// MAE computes the mean absolute error skipping NaN pairs.
func MAE(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, ErrResLenMismatch
	}
	sum := 0.0
	cnt := 0
	for i := 0; i < len(actual); i++ {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		sum += math.Abs(actual[i] - predicted[i])
		cnt++
	}
	if cnt == 0 {
		return math.NaN(), nil
	}
	return sum / float64(cnt), nil
}

// MAPE computes the mean absolute percent error skipping NaN pairs and zero
// actuals.
func MAPE(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, ErrResLenMismatch
	}
	sum := 0.0
	cnt := 0
	for i := 0; i < len(actual); i++ {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) || actual[i] == 0 {
			continue
		}
		sum += math.Abs((actual[i] - predicted[i]) / actual[i])
		cnt++
	}
	if cnt == 0 {
		return math.NaN(), nil
	}
	return sum / float64(cnt), nil
}

// CRPSGaussian evaluates the continuous ranked probability score of a
// Gaussian predictive distribution against a realized value, using the closed
// form sigma*(z*(2*CDF(z)-1) + 2*PDF(z) - 1/sqrt(pi)). A degenerate
// distribution (sigma zero) scores the absolute error.
func CRPSGaussian(mu, sigma, x float64) float64 {
	if sigma == 0 {
		return math.Abs(x - mu)
	}
	z := (x - mu) / sigma
	return sigma * (z*(2.0*distuv.UnitNormal.CDF(z)-1.0) + 2.0*distuv.UnitNormal.Prob(z) - 1.0/math.Sqrt(math.Pi))
}

// MeanCRPSGaussian averages the Gaussian CRPS over aligned slices, skipping
// NaN realized values.
func MeanCRPSGaussian(mu, sigma, x []float64) (float64, error) {
	if len(mu) != len(x) || len(sigma) != len(x) {
		return 0, ErrResLenMismatch
	}
	sum := 0.0
	cnt := 0
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(mu[i]) {
			continue
		}
		sum += CRPSGaussian(mu[i], sigma[i], x[i])
		cnt++
	}
	if cnt == 0 {
		return math.NaN(), nil
	}
	return sum / float64(cnt), nil
}

// Skill expresses a score relative to a baseline model's score on the same
// partition: 1 means perfect, 0 means no better than the baseline.
func Skill(score, baselineScore float64) (float64, error) {
	if baselineScore == 0 {
		return 0, ErrUndefinedSkill
	}
	return 1.0 - score/baselineScore, nil
}

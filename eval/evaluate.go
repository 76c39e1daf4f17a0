package eval

import (
	"fmt"
	"math"

	"github.com/aouyang1/go-fceval/forecast"
	"github.com/aouyang1/go-fceval/timedataset"
)

// Evaluate compares a forecast against realized values over their overlapping
// timestamps and computes the named metrics. Timestamps with NaN realized
// values are skipped; zero overlapping timestamps is an error.
func Evaluate(fc *forecast.Forecast, realized *timedataset.TimeDataset, metrics []string) (map[string]float64, error) {
	for _, m := range metrics {
		if err := ValidMetric(m); err != nil {
			return nil, err
		}
	}

	// align on equal timestamps; both sides sit on regular grids so a
	// two-pointer sweep suffices
	var point, mu, sigma, actual, actualModelScale []float64
	i, j := 0, 0
	for i < len(fc.T) && j < realized.Len() {
		switch {
		case fc.T[i].Before(realized.T[j]):
			i++
		case realized.T[j].Before(fc.T[i]):
			j++
		default:
			if !math.IsNaN(realized.Y[j]) {
				point = append(point, fc.Point[i])
				mu = append(mu, fc.Mu[i])
				sigma = append(sigma, fc.Sigma[i])
				actual = append(actual, realized.Y[j])
				actualModelScale = append(actualModelScale, fc.Transform.Apply([]float64{realized.Y[j]})[0])
			}
			i++
			j++
		}
	}
	if len(actual) == 0 {
		return nil, fmt.Errorf("forecast for model %q, %w", fc.Model, ErrNoOverlap)
	}

	scores := make(map[string]float64, len(metrics))
	for _, m := range metrics {
		var score float64
		var err error
		switch m {
		case MetricRMSE:
			score, err = RMSE(point, actual)
		case MetricMAE:
			score, err = MAE(point, actual)
		case MetricMAPE:
			score, err = MAPE(point, actual)
		case MetricCRPS:
			// distributional fit is scored on the modeling scale against the
			// Gaussian predictive distribution
			score, err = MeanCRPSGaussian(mu, sigma, actualModelScale)
		}
		if err != nil {
			return nil, fmt.Errorf("computing %s for model %q, %w", m, fc.Model, err)
		}
		if !math.IsNaN(score) {
			scores[m] = score
		}
	}
	return scores, nil
}

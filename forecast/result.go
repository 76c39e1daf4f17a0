package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aouyang1/go-fceval/transform"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrBadHorizon       = errors.New("forecast horizon must be positive")
	ErrBadIntervalLevel = errors.New("interval level must be in (0, 1)")
)

// Forecast is an ordered sequence of future time points with a point estimate
// on the original scale and the Gaussian predictive distribution (Mu, Sigma)
// on the modeling scale. The point estimate is the back-transformed
// distribution mean, not the naive inverse of Mu.
type Forecast struct {
	Model string      `json:"model"`
	T     []time.Time `json:"time"`
	Point []float64   `json:"point"`
	Mu    []float64   `json:"mu"`
	Sigma []float64   `json:"sigma"`

	Transform transform.Transform `json:"-"`
}

// Horizon returns the number of forecast periods.
func (f *Forecast) Horizon() int {
	return len(f.T)
}

// Interval returns symmetric lower/upper bounds on the original scale at the
// given nominal coverage level, e.g. 0.8 or 0.95.
func (f *Forecast) Interval(level float64) ([]float64, []float64, error) {
	if level <= 0 || level >= 1 {
		return nil, nil, fmt.Errorf("%f, %w", level, ErrBadIntervalLevel)
	}
	z := distuv.UnitNormal.Quantile(0.5 + level/2.0)

	lower := make([]float64, len(f.Mu))
	upper := make([]float64, len(f.Mu))
	for i := range f.Mu {
		lower[i] = f.Transform.Invert(f.Mu[i] - z*f.Sigma[i])
		upper[i] = f.Transform.Invert(f.Mu[i] + z*f.Sigma[i])
	}
	return lower, upper, nil
}

// Forecast extrapolates the fitted model h periods past its training window.
// Specifications with exogenous predictor terms require future covariate
// values for any step their lag order does not already cover from history.
func (fm *FittedModel) Forecast(h int, fut *FutureCovariates) (*Forecast, error) {
	if h < 1 {
		return nil, fmt.Errorf("%d, %w", h, ErrBadHorizon)
	}

	mu := make([]float64, h)
	switch fm.spec.Family {
	case FamilyMean, FamilyNaive:
		for j := range mu {
			mu[j] = fm.constant
		}
	case FamilySeasonalNaive:
		// seasonVals holds the trailing cycle oldest first, so step j repeats
		// the value one full period earlier regardless of where the training
		// window ends within the cycle
		for j := range mu {
			mu[j] = fm.seasonVals[j%len(fm.seasonVals)]
		}
	case FamilyETS:
		copy(mu, fm.ets.Forecast(h))
	case FamilyLinear:
		reg, err := fm.regressionForecast(h, fut)
		if err != nil {
			return nil, err
		}
		copy(mu, reg)
	case FamilyARIMA:
		copy(mu, fm.arima.Forecast(h))
		if fm.ols != nil {
			reg, err := fm.regressionForecast(h, fut)
			if err != nil {
				return nil, err
			}
			for j := range mu {
				mu[j] += reg[j]
			}
		}
	default:
		return nil, fmt.Errorf("%q, %w", fm.spec.Family, ErrUnknownFamily)
	}

	sigma := make([]float64, h)
	for j := range sigma {
		sigma[j] = fm.sigma
		if fm.widensWithHorizon() {
			sigma[j] *= math.Sqrt(float64(j + 1))
		}
	}

	tr := fm.spec.transformOrIdentity()
	t := make([]time.Time, h)
	point := make([]float64, h)
	for j := 0; j < h; j++ {
		t[j] = fm.lastT.Add(time.Duration(j+1) * fm.period)
		point[j] = tr.Mean(mu[j], sigma[j])
	}

	return &Forecast{
		Model:     fm.spec.Name,
		T:         t,
		Point:     point,
		Mu:        mu,
		Sigma:     sigma,
		Transform: tr,
	}, nil
}

func (fm *FittedModel) regressionForecast(h int, fut *FutureCovariates) ([]float64, error) {
	x, err := fm.design.futureMatrix(h, fut)
	if err != nil {
		return nil, err
	}
	return fm.ols.Predict(x)
}

// the non-stationary families accumulate uncertainty with the horizon
func (fm *FittedModel) widensWithHorizon() bool {
	switch fm.spec.Family {
	case FamilyNaive, FamilyETS, FamilyARIMA:
		return true
	}
	return false
}

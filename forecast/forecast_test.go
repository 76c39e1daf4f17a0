package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/aouyang1/go-fceval/timedataset"
	"github.com/aouyang1/go-fceval/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourlyDataset(t *testing.T, y []float64) *timedataset.TimeDataset {
	t.Helper()
	tGrid := make([]time.Time, 0, len(y))
	ct := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < len(y); i++ {
		tGrid = append(tGrid, ct.Add(time.Duration(i)*time.Hour))
	}
	td, err := timedataset.NewUnivariateDataset(tGrid, y)
	require.NoError(t, err)
	return td
}

func TestSpecValidate(t *testing.T) {
	testData := map[string]struct {
		spec Spec
		err  error
	}{
		"valid mean":  {Spec{Name: "m", Family: FamilyMean}, nil},
		"valid naive": {Spec{Name: "n", Family: FamilyNaive}, nil},
		"valid linear": {
			Spec{Name: "l", Family: FamilyLinear, Trend: true}, nil,
		},
		"no name":        {Spec{Family: FamilyMean}, ErrNoSpecName},
		"unknown family": {Spec{Name: "x", Family: "prophet"}, ErrUnknownFamily},
		"bad period":     {Spec{Name: "x", Family: FamilyMean, SeasonalPeriod: 1}, ErrBadSeasonalPeriod},
		"seasonal naive without period": {
			Spec{Name: "x", Family: FamilySeasonalNaive}, ErrBadSeasonalPeriod,
		},
		"negative lag": {
			Spec{Name: "x", Family: FamilyLinear, Covariates: []CovariateTerm{{Name: "c", Lag: -1}}},
			ErrBadLag,
		},
		"covariates on naive": {
			Spec{Name: "x", Family: FamilyNaive, Covariates: []CovariateTerm{{Name: "c"}}},
			ErrCovariatesUnsupported,
		},
		"linear without predictors": {
			Spec{Name: "x", Family: FamilyLinear}, ErrNoPredictors,
		},
	}

	for name, tc := range testData {
		t.Run(name, func(t *testing.T) {
			err := tc.spec.Validate()
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry(
		Spec{Name: "mean", Family: FamilyMean},
		Spec{Name: "naive", Family: FamilyNaive},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())

	// registration order is preserved
	specs := r.Specs()
	assert.Equal(t, "mean", specs[0].Name)
	assert.Equal(t, "naive", specs[1].Name)

	spec, exists := r.Get("naive")
	assert.True(t, exists)
	assert.Equal(t, FamilyNaive, spec.Family)

	_, exists = r.Get("missing")
	assert.False(t, exists)

	err = r.Add(Spec{Name: "mean", Family: FamilyMean})
	assert.ErrorIs(t, err, ErrDuplicateSpec)
}

func TestFitMeanForecast(t *testing.T) {
	y := []float64{12, 10, 14, 12, 8, 16, 12, 10, 12}
	td := hourlyDataset(t, y)

	fm, err := Fit(td, Spec{Name: "mean", Family: FamilyMean})
	require.NoError(t, err)

	fc, err := fm.Forecast(3, nil)
	require.NoError(t, err)
	require.Equal(t, 3, fc.Horizon())

	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	for j := 0; j < 3; j++ {
		assert.InDelta(t, mean, fc.Point[j], 1e-10)
		assert.InDelta(t, mean, fc.Mu[j], 1e-10)
		// the mean family does not fan out with the horizon
		assert.InDelta(t, fm.ResidualStd(), fc.Sigma[j], 1e-10)
	}
	assert.Equal(t, td.T[len(y)-1].Add(time.Hour), fc.T[0])
}

func TestFitNaiveForecast(t *testing.T) {
	td := hourlyDataset(t, []float64{1, 3, 2, 5, 4, 7})

	fm, err := Fit(td, Spec{Name: "naive", Family: FamilyNaive})
	require.NoError(t, err)

	fc, err := fm.Forecast(4, nil)
	require.NoError(t, err)
	for j := 0; j < 4; j++ {
		assert.InDelta(t, 7.0, fc.Mu[j], 1e-10)
		// random-walk uncertainty grows with the square root of the horizon
		assert.InDelta(t, fm.ResidualStd()*math.Sqrt(float64(j+1)), fc.Sigma[j], 1e-10)
	}
}

func TestFitSeasonalNaiveForecast(t *testing.T) {
	// two full cycles; the forecast repeats the most recent one
	td := hourlyDataset(t, []float64{10, 20, 30, 40, 11, 21, 31, 41})

	fm, err := Fit(td, Spec{Name: "snaive", Family: FamilySeasonalNaive, SeasonalPeriod: 4})
	require.NoError(t, err)

	fc, err := fm.Forecast(6, nil)
	require.NoError(t, err)
	expected := []float64{11, 21, 31, 41, 11, 21}
	for j, v := range expected {
		assert.InDelta(t, v, fc.Mu[j], 1e-10)
	}
}

func TestFitSeasonalNaivePartialCycle(t *testing.T) {
	// training cuts off mid-cycle, as rolling origins routinely do; each
	// step must still repeat the value exactly one period earlier
	td := hourlyDataset(t, []float64{10, 20, 30, 40, 11, 21, 31})

	fm, err := Fit(td, Spec{Name: "snaive", Family: FamilySeasonalNaive, SeasonalPeriod: 4})
	require.NoError(t, err)

	fc, err := fm.Forecast(6, nil)
	require.NoError(t, err)
	expected := []float64{40, 11, 21, 31, 40, 11}
	for j, v := range expected {
		assert.InDelta(t, v, fc.Mu[j], 1e-10)
	}
}

func TestFitSeasonalNaiveTooShort(t *testing.T) {
	td := hourlyDataset(t, []float64{1, 2, 3})
	_, err := Fit(td, Spec{Name: "snaive", Family: FamilySeasonalNaive, SeasonalPeriod: 5})
	require.ErrorIs(t, err, ErrFitFailed)
	require.ErrorIs(t, err, ErrInsufficientTraining)
}

func TestFitLinearTrend(t *testing.T) {
	td := hourlyDataset(t, []float64{1, 2, 3, 4, 5, 6})

	fm, err := Fit(td, Spec{Name: "lin", Family: FamilyLinear, Trend: true})
	require.NoError(t, err)

	fc, err := fm.Forecast(2, nil)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, fc.Point[0], 1e-8)
	assert.InDelta(t, 8.0, fc.Point[1], 1e-8)
	assert.InDelta(t, 0.0, fm.ResidualStd(), 1e-8)
}

func TestFitLinearSeasonalDummies(t *testing.T) {
	// a pure periodic pattern is recovered exactly by the one-hot dummies
	td := hourlyDataset(t, []float64{10, 20, 30, 40, 10, 20, 30, 40})

	fm, err := Fit(td, Spec{Name: "lin", Family: FamilyLinear, SeasonalPeriod: 4})
	require.NoError(t, err)

	fc, err := fm.Forecast(4, nil)
	require.NoError(t, err)
	expected := []float64{10, 20, 30, 40}
	for j, v := range expected {
		assert.InDelta(t, v, fc.Point[j], 1e-8)
	}
}

func TestFitLinearCovariate(t *testing.T) {
	// y tracks five times the previous value of x, so a lag 1 term fits
	// exactly and the first step ahead resolves from history alone
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	y := make([]float64, len(x))
	y[0] = 0.0
	for i := 1; i < len(x); i++ {
		y[i] = 5.0 * x[i-1]
	}

	td := hourlyDataset(t, y)
	_, err := td.WithCovariate("x", x)
	require.NoError(t, err)

	spec := Spec{
		Name:       "lin_x",
		Family:     FamilyLinear,
		Covariates: []CovariateTerm{{Name: "x", Lag: 1}},
	}
	fm, err := Fit(td, spec)
	require.NoError(t, err)

	// step one needs x[9] which the training window already holds
	fc, err := fm.Forecast(1, nil)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, fc.Point[0], 1e-8)

	// step two reaches past the training window
	_, err = fm.Forecast(2, nil)
	require.ErrorIs(t, err, ErrMissingCovariate)

	_, err = fm.Forecast(2, &FutureCovariates{Values: map[string][]float64{"other": {1, 2}}})
	require.ErrorIs(t, err, ErrMissingCovariate)

	fut := &FutureCovariates{Values: map[string][]float64{"x": {11}}}
	fc, err = fm.Forecast(2, fut)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, fc.Point[0], 1e-8)
	assert.InDelta(t, 55.0, fc.Point[1], 1e-8)
}

func TestFitUnknownCovariate(t *testing.T) {
	td := hourlyDataset(t, []float64{1, 2, 3, 4})
	spec := Spec{
		Name:       "lin",
		Family:     FamilyLinear,
		Covariates: []CovariateTerm{{Name: "ghost"}},
	}
	_, err := Fit(td, spec)
	require.ErrorIs(t, err, ErrFitFailed)
	require.ErrorIs(t, err, timedataset.ErrUnknownCovariate)
}

func TestFitLog1pConstant(t *testing.T) {
	// zero residual spread makes the Jensen correction vanish, so the
	// back-transformed point recovers the constant exactly
	td := hourlyDataset(t, []float64{4, 4, 4, 4, 4, 4})

	fm, err := Fit(td, Spec{Name: "mean_log", Family: FamilyMean, Transform: transform.Log1p{}})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, fm.ResidualStd(), 1e-12)

	fc, err := fm.Forecast(2, nil)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, fc.Point[0], 1e-10)
	assert.InDelta(t, 4.0, fc.Point[1], 1e-10)
}

func TestFitLog1pJensen(t *testing.T) {
	td := hourlyDataset(t, []float64{2, 6, 3, 8, 4, 9, 2, 7})

	fm, err := Fit(td, Spec{Name: "mean_log", Family: FamilyMean, Transform: transform.Log1p{}})
	require.NoError(t, err)
	require.Greater(t, fm.ResidualStd(), 0.0)

	fc, err := fm.Forecast(1, nil)
	require.NoError(t, err)
	// the distribution mean sits above the back-transformed Gaussian mean
	assert.Greater(t, fc.Point[0], math.Expm1(fc.Mu[0]))
}

func TestFitNonFiniteResponse(t *testing.T) {
	// log1p of a value below -1 is NaN
	td := hourlyDataset(t, []float64{1, 2, -3, 4})
	_, err := Fit(td, Spec{Name: "mean_log", Family: FamilyMean, Transform: transform.Log1p{}})
	require.ErrorIs(t, err, ErrFitFailed)
	require.ErrorIs(t, err, ErrNonFiniteResponse)
}

func TestFitETSFamily(t *testing.T) {
	y := make([]float64, 12)
	for i := range y {
		y[i] = 1.0 + 0.5*float64(i)
	}
	td := hourlyDataset(t, y)

	fm, err := Fit(td, Spec{Name: "ets", Family: FamilyETS})
	require.NoError(t, err)

	fc, err := fm.Forecast(2, nil)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, fc.Point[0], 1e-8)
	assert.InDelta(t, 7.5, fc.Point[1], 1e-8)
}

func TestFitARIMAFamily(t *testing.T) {
	y := make([]float64, 24)
	for i := range y {
		y[i] = 10.0 + 1.5*float64(i)
	}
	td := hourlyDataset(t, y)

	fm, err := Fit(td, Spec{Name: "arima", Family: FamilyARIMA})
	require.NoError(t, err)

	order, exists := fm.ARIMAOrder()
	require.True(t, exists)
	assert.LessOrEqual(t, order.P, 2)

	fc, err := fm.Forecast(3, nil)
	require.NoError(t, err)
	for _, v := range fc.Point {
		assert.False(t, math.IsNaN(v))
	}
}

func TestFitARIMAWithRegression(t *testing.T) {
	// trend handled by the regression component, ARIMA models the residuals
	y := make([]float64, 24)
	for i := range y {
		y[i] = 5.0 + 2.0*float64(i) + math.Sin(float64(i))
	}
	td := hourlyDataset(t, y)

	fm, err := Fit(td, Spec{Name: "arimax", Family: FamilyARIMA, Trend: true})
	require.NoError(t, err)

	fc, err := fm.Forecast(4, nil)
	require.NoError(t, err)
	for j, v := range fc.Point {
		trend := 5.0 + 2.0*float64(24+j)
		assert.InDelta(t, trend, v, 3.0)
	}
}

func TestForecastBadHorizon(t *testing.T) {
	td := hourlyDataset(t, []float64{1, 2, 3, 4})
	fm, err := Fit(td, Spec{Name: "mean", Family: FamilyMean})
	require.NoError(t, err)

	_, err = fm.Forecast(0, nil)
	assert.ErrorIs(t, err, ErrBadHorizon)
}

func TestForecastInterval(t *testing.T) {
	fc := &Forecast{
		Model:     "m",
		Mu:        []float64{10.0, 10.0},
		Sigma:     []float64{1.0, 2.0},
		Transform: transform.Identity{},
	}

	lower, upper, err := fc.Interval(0.95)
	require.NoError(t, err)
	assert.InDelta(t, 10.0-1.959964, lower[0], 1e-4)
	assert.InDelta(t, 10.0+1.959964, upper[0], 1e-4)
	assert.InDelta(t, 10.0-2.0*1.959964, lower[1], 1e-4)

	// narrower nominal coverage nests inside the wider one
	l80, u80, err := fc.Interval(0.8)
	require.NoError(t, err)
	assert.Greater(t, l80[0], lower[0])
	assert.Less(t, u80[0], upper[0])

	_, _, err = fc.Interval(0.0)
	assert.ErrorIs(t, err, ErrBadIntervalLevel)
	_, _, err = fc.Interval(1.0)
	assert.ErrorIs(t, err, ErrBadIntervalLevel)
}

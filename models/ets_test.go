package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestETSOptionsValidate(t *testing.T) {
	opt, err := (*ETSOptions)(nil).Validate()
	require.NoError(t, err)
	assert.Equal(t, NewDefaultETSOptions(), opt)

	opt, err = (&ETSOptions{Alpha: 1.5, Beta: -0.2, Gamma: 0.4}).Validate()
	require.NoError(t, err)
	assert.Equal(t, 0.3, opt.Alpha)
	assert.Equal(t, 0.1, opt.Beta)
	assert.Equal(t, 0.4, opt.Gamma)

	_, err = (&ETSOptions{SeasonalPeriod: -1}).Validate()
	assert.ErrorIs(t, err, ErrBadOrder)
}

func TestFitETS(t *testing.T) {
	testData := map[string]struct {
		y   []float64
		opt *ETSOptions
		err error
	}{
		"linear trend":      {[]float64{1, 2, 3, 4, 5, 6, 7, 8}, nil, nil},
		"seasonal":          {[]float64{10, 20, 10, 20, 10, 20, 10, 20}, &ETSOptions{SeasonalPeriod: 2}, nil},
		"too short":         {[]float64{3}, nil, ErrInsufficientData},
		"short for seasons": {[]float64{1, 2, 3}, &ETSOptions{SeasonalPeriod: 2}, nil},
	}

	for name, tc := range testData {
		t.Run(name, func(t *testing.T) {
			e, err := FitETS(tc.y, tc.opt)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, e.Fitted(), len(tc.y))
			assert.False(t, math.IsNaN(e.ResidualStd()))
		})
	}
}

func TestETSForecastTrend(t *testing.T) {
	// a perfect line keeps level and trend exact through the recursion, so
	// the extrapolation continues the line
	y := []float64{3, 5, 7, 9, 11, 13}
	e, err := FitETS(y, nil)
	require.NoError(t, err)

	fc := e.Forecast(3)
	require.Len(t, fc, 3)
	assert.InDelta(t, 15.0, fc[0], 1e-8)
	assert.InDelta(t, 17.0, fc[1], 1e-8)
	assert.InDelta(t, 19.0, fc[2], 1e-8)
	assert.InDelta(t, 0.0, e.ResidualStd(), 1e-8)
}

func TestETSForecastSeasonal(t *testing.T) {
	// alternating series with no trend tracks the period-2 pattern
	y := []float64{10, 20, 10, 20, 10, 20, 10, 20, 10, 20}
	e, err := FitETS(y, &ETSOptions{SeasonalPeriod: 2})
	require.NoError(t, err)

	fc := e.Forecast(4)
	require.Len(t, fc, 4)
	assert.InDelta(t, 10.0, fc[0], 1.0)
	assert.InDelta(t, 20.0, fc[1], 1.0)
	assert.Greater(t, fc[1], fc[0])
	assert.Greater(t, fc[3], fc[2])
}

func TestETSSeasonalFallback(t *testing.T) {
	// three points cannot support two full seasons of period 2, so the fit
	// degrades to plain Holt and forecasts carry no seasonal offsets
	e, err := FitETS([]float64{1, 2, 3}, &ETSOptions{SeasonalPeriod: 2})
	require.NoError(t, err)

	fc := e.Forecast(2)
	assert.InDelta(t, 4.0, fc[0], 1e-8)
	assert.InDelta(t, 5.0, fc[1], 1e-8)
}

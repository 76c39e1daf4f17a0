package models

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// ETSOptions holds the smoothing parameters for exponential smoothing.
// SeasonalPeriod of zero disables the seasonal component. When the training
// window is shorter than two full seasons the seasonal component is dropped
// for that fit.
type ETSOptions struct {
	Alpha          float64 // level
	Beta           float64 // trend
	Gamma          float64 // seasonal
	SeasonalPeriod int
}

func NewDefaultETSOptions() *ETSOptions {
	return &ETSOptions{
		Alpha: 0.3,
		Beta:  0.1,
		Gamma: 0.1,
	}
}

func (o *ETSOptions) Validate() (*ETSOptions, error) {
	if o == nil {
		return NewDefaultETSOptions(), nil
	}
	out := *o
	if out.Alpha <= 0 || out.Alpha > 1 {
		out.Alpha = 0.3
	}
	if out.Beta <= 0 || out.Beta > 1 {
		out.Beta = 0.1
	}
	if out.Gamma <= 0 || out.Gamma > 1 {
		out.Gamma = 0.1
	}
	if out.SeasonalPeriod < 0 {
		return nil, fmt.Errorf("seasonal period %d must be non-negative, %w", out.SeasonalPeriod, ErrBadOrder)
	}
	return &out, nil
}

// ETS is a fitted Holt (level + trend) exponential smoothing state, with an
// optional additive Holt-Winters seasonal component.
type ETS struct {
	opt *ETSOptions

	level    float64
	trend    float64
	seasonal []float64 // length SeasonalPeriod when seasonal, nil otherwise
	n        int

	fitted   []float64
	residStd float64
}

// FitETS runs the smoothing recursions over y and retains the terminal state
// for forecasting.
func FitETS(y []float64, opt *ETSOptions) (*ETS, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if len(y) < 2 {
		return nil, fmt.Errorf("need at least 2 points for exponential smoothing, got %d, %w", len(y), ErrInsufficientData)
	}

	period := opt.SeasonalPeriod
	if period > 0 && len(y) < 2*period {
		period = 0
	}

	e := &ETS{opt: opt, n: len(y)}
	if period > 0 {
		e.fitSeasonal(y, period)
	} else {
		e.fitHolt(y)
	}

	residuals := make([]float64, len(y))
	for i := range y {
		residuals[i] = y[i] - e.fitted[i]
	}
	if len(residuals) > 1 {
		_, std := stat.MeanStdDev(residuals, nil)
		e.residStd = std
	}
	return e, nil
}

func (e *ETS) fitHolt(y []float64) {
	alpha, beta := e.opt.Alpha, e.opt.Beta

	level := y[0]
	trend := y[1] - y[0]

	e.fitted = make([]float64, len(y))
	e.fitted[0] = y[0]
	for i := 1; i < len(y); i++ {
		e.fitted[i] = level + trend
		prevLevel := level
		level = alpha*y[i] + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
	}
	e.level = level
	e.trend = trend
}

func (e *ETS) fitSeasonal(y []float64, period int) {
	alpha, beta, gamma := e.opt.Alpha, e.opt.Beta, e.opt.Gamma

	// level seeds from the first season mean, seasonal factors are additive
	// offsets from it
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += y[i]
	}
	level := sum / float64(period)
	trend := (y[period] - y[0]) / float64(period)

	seasonal := make([]float64, period)
	for i := 0; i < period; i++ {
		seasonal[i] = y[i] - level
	}

	e.fitted = make([]float64, len(y))
	e.fitted[0] = level + seasonal[0]
	for i := 1; i < len(y); i++ {
		s := seasonal[i%period]
		e.fitted[i] = level + trend + s

		prevLevel := level
		level = alpha*(y[i]-s) + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
		seasonal[i%period] = gamma*(y[i]-level) + (1-gamma)*s
	}
	e.level = level
	e.trend = trend
	e.seasonal = seasonal
}

// Forecast extrapolates h steps from the terminal smoothing state.
func (e *ETS) Forecast(h int) []float64 {
	out := make([]float64, h)
	for k := 0; k < h; k++ {
		v := e.level + float64(k+1)*e.trend
		if len(e.seasonal) > 0 {
			v += e.seasonal[(e.n+k)%len(e.seasonal)]
		}
		out[k] = v
	}
	return out
}

// Fitted returns the in-sample one-step predictions.
func (e *ETS) Fitted() []float64 {
	out := make([]float64, len(e.fitted))
	copy(out, e.fitted)
	return out
}

// ResidualStd returns the standard deviation of the in-sample residuals.
func (e *ETS) ResidualStd() float64 {
	return e.residStd
}

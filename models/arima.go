package models

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInsufficientData = errors.New("insufficient samples to fit model")
	ErrUnstableSolve    = errors.New("numerical instability solving Yule-Walker equations")
	ErrNoViableOrder    = errors.New("no ARIMA order produced a viable fit")
	ErrBadOrder         = errors.New("invalid ARIMA order")
)

// ARIMAOrder is the (p,d,q) structure of an ARIMA model. Automatic order
// search re-runs independently per training window, so two fits of the same
// specification may carry different orders.
type ARIMAOrder struct {
	P int `json:"p"`
	D int `json:"d"`
	Q int `json:"q"`
}

func (o ARIMAOrder) String() string {
	return fmt.Sprintf("arima(%d,%d,%d)", o.P, o.D, o.Q)
}

type ARIMAOptions struct {
	MaxP int
	MaxD int
	MaxQ int
}

func NewDefaultARIMAOptions() *ARIMAOptions {
	return &ARIMAOptions{
		MaxP: 2,
		MaxD: 1,
		MaxQ: 2,
	}
}

// ARIMA is a fitted AutoRegressive Integrated Moving Average model. AR
// coefficients come from the Yule-Walker equations solved with
// Levinson-Durbin recursion and MA coefficients from the autocorrelation of
// the AR residuals.
type ARIMA struct {
	order ARIMAOrder

	mean    float64   // mean of the differenced series
	arCoef  []float64 // length p
	maCoef  []float64 // length q
	lastObs []float64 // trailing original values needed to invert differencing
	errHist []float64 // in-sample one-step errors, oldest first

	centered []float64 // centered differenced training series
	residStd float64
	aic      float64
}

// FitARIMA fits a fixed-order ARIMA model to y.
func FitARIMA(y []float64, order ARIMAOrder) (*ARIMA, error) {
	if order.P < 0 || order.Q < 0 || order.D < 0 || order.D > 2 {
		return nil, fmt.Errorf("%s, %w", order, ErrBadOrder)
	}
	minPoints := order.P + order.Q + order.D + 2
	if minPoints < 4 {
		minPoints = 4
	}
	if len(y) < minPoints {
		return nil, fmt.Errorf("need at least %d points for %s, got %d, %w",
			minPoints, order, len(y), ErrInsufficientData)
	}

	z := difference(y, order.D)
	mean := meanOf(z)

	centered := make([]float64, len(z))
	for i, v := range z {
		centered[i] = v - mean
	}

	arCoef, err := fitAR(centered, order.P)
	if err != nil {
		return nil, fmt.Errorf("unable to fit AR coefficients for %s, %w", order, err)
	}

	arResiduals := arResiduals(centered, arCoef)
	maCoef := fitMA(arResiduals, order.Q)

	a := &ARIMA{
		order:    order,
		mean:     mean,
		arCoef:   arCoef,
		maCoef:   maCoef,
		centered: centered,
	}

	residuals := a.oneStepErrors()
	a.errHist = residuals

	sse := 0.0
	for _, e := range residuals {
		sse += e * e
	}
	m := float64(len(centered))
	if len(residuals) > 1 {
		a.residStd = math.Sqrt(sse / float64(len(residuals)-1))
	}
	k := float64(order.P + order.Q + 1)
	a.aic = m*math.Log(sse/m+1e-12) + 2.0*k

	a.lastObs = make([]float64, order.D+1)
	copy(a.lastObs, y[len(y)-order.D-1:])

	return a, nil
}

// AutoARIMA grid-searches (p,d,q) up to the configured maximums and returns
// the fit with the lowest AIC.
func AutoARIMA(y []float64, opt *ARIMAOptions) (*ARIMA, error) {
	if opt == nil {
		opt = NewDefaultARIMAOptions()
	}

	var best *ARIMA
	for d := 0; d <= opt.MaxD; d++ {
		for p := 0; p <= opt.MaxP; p++ {
			for q := 0; q <= opt.MaxQ; q++ {
				if p == 0 && q == 0 && d == 0 {
					continue
				}
				a, err := FitARIMA(y, ARIMAOrder{P: p, D: d, Q: q})
				if err != nil {
					continue
				}
				if best == nil || a.aic < best.aic {
					best = a
				}
			}
		}
	}
	if best == nil {
		return nil, fmt.Errorf("series length %d, %w", len(y), ErrNoViableOrder)
	}
	return best, nil
}

// Order returns the fitted (p,d,q) structure.
func (a *ARIMA) Order() ARIMAOrder {
	return a.order
}

// AIC returns the Akaike information criterion of the fit.
func (a *ARIMA) AIC() float64 {
	return a.aic
}

// ResidualStd returns the standard deviation of the in-sample one-step errors.
func (a *ARIMA) ResidualStd() float64 {
	return a.residStd
}

// Forecast extrapolates h steps past the training window on the original
// scale. Future shocks are taken as zero.
func (a *ARIMA) Forecast(h int) []float64 {
	diffHist := make([]float64, len(a.centered), len(a.centered)+h)
	copy(diffHist, a.centered)
	errs := make([]float64, len(a.errHist), len(a.errHist)+h)
	copy(errs, a.errHist)

	// forecast the centered differenced series
	zhat := make([]float64, h)
	for k := 0; k < h; k++ {
		pred := 0.0
		for i := 0; i < a.order.P; i++ {
			idx := len(diffHist) - 1 - i
			if idx >= 0 {
				pred += a.arCoef[i] * diffHist[idx]
			}
		}
		for j := 0; j < a.order.Q; j++ {
			idx := len(errs) - 1 - j
			if idx >= 0 {
				pred += a.maCoef[j] * errs[idx]
			}
		}
		zhat[k] = pred
		diffHist = append(diffHist, pred)
		errs = append(errs, 0.0)
	}

	// invert differencing back to the original scale
	levels := make([][]float64, a.order.D+1)
	levels[0] = a.lastObs
	for d := 1; d <= a.order.D; d++ {
		prev := levels[d-1]
		cur := make([]float64, len(prev)-1)
		for i := 0; i < len(cur); i++ {
			cur[i] = prev[i+1] - prev[i]
		}
		levels[d] = cur
	}

	state := make([]float64, a.order.D+1)
	for d := 0; d <= a.order.D; d++ {
		state[d] = levels[d][len(levels[d])-1]
	}

	out := make([]float64, h)
	for k := 0; k < h; k++ {
		state[a.order.D] = zhat[k] + a.mean
		for d := a.order.D - 1; d >= 0; d-- {
			state[d] += state[d+1]
		}
		out[k] = state[0]
	}
	return out
}

func (a *ARIMA) oneStepErrors() []float64 {
	n := len(a.centered)
	errs := make([]float64, n)
	for t := 0; t < n; t++ {
		pred := 0.0
		for i := 0; i < a.order.P; i++ {
			if t-1-i >= 0 {
				pred += a.arCoef[i] * a.centered[t-1-i]
			}
		}
		for j := 0; j < a.order.Q; j++ {
			if t-1-j >= 0 {
				pred += a.maCoef[j] * errs[t-1-j]
			}
		}
		errs[t] = a.centered[t] - pred
	}
	return errs
}

// difference applies d-order differencing to make the series stationary.
func difference(series []float64, d int) []float64 {
	if d == 0 || len(series) == 0 {
		out := make([]float64, len(series))
		copy(out, series)
		return out
	}

	out := make([]float64, len(series)-1)
	for i := 0; i < len(out); i++ {
		out[i] = series[i+1] - series[i]
	}
	if d > 1 {
		return difference(out, d-1)
	}
	return out
}

func meanOf(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}

// fitAR estimates AR coefficients from the Yule-Walker equations using
// Levinson-Durbin recursion.
func fitAR(centered []float64, p int) ([]float64, error) {
	if p == 0 {
		return []float64{}, nil
	}

	acf := make([]float64, p+1)
	for k := 0; k <= p; k++ {
		acf[k] = autocorr(centered, k)
	}
	if acf[0] == 0 {
		// constant series, nothing to regress on
		return make([]float64, p), nil
	}
	return levinsonDurbin(acf, p)
}

func autocorr(series []float64, lag int) float64 {
	if lag < 0 || lag >= len(series) {
		return 0
	}

	n := len(series)
	mean := meanOf(series)

	var c0, ck float64
	for i := 0; i < n; i++ {
		c0 += (series[i] - mean) * (series[i] - mean)
	}
	for i := 0; i < n-lag; i++ {
		ck += (series[i] - mean) * (series[i+lag] - mean)
	}
	if c0 == 0 {
		return 0
	}
	return ck / c0
}

func levinsonDurbin(acf []float64, p int) ([]float64, error) {
	phi := make([][]float64, p+1)
	for i := range phi {
		phi[i] = make([]float64, p+1)
	}

	v := acf[0]
	for k := 1; k <= p; k++ {
		num := acf[k]
		for j := 1; j < k; j++ {
			num -= phi[k-1][j] * acf[k-j]
		}
		if v == 0 {
			return nil, ErrUnstableSolve
		}
		phi[k][k] = num / v
		for j := 1; j < k; j++ {
			phi[k][j] = phi[k-1][j] - phi[k][k]*phi[k-1][k-j]
		}
		v *= 1 - phi[k][k]*phi[k][k]
		if v < 0 {
			return nil, ErrUnstableSolve
		}
	}

	coef := make([]float64, p)
	for i := 0; i < p; i++ {
		coef[i] = phi[p][i+1]
	}
	return coef, nil
}

// arResiduals computes the residuals of the pure AR component, used to seed
// the MA coefficient estimate.
func arResiduals(centered, arCoef []float64) []float64 {
	p := len(arCoef)
	if len(centered) <= p {
		return []float64{}
	}

	residuals := make([]float64, len(centered)-p)
	for t := p; t < len(centered); t++ {
		pred := 0.0
		for i := 0; i < p; i++ {
			pred += arCoef[i] * centered[t-1-i]
		}
		residuals[t-p] = centered[t] - pred
	}
	return residuals
}

// fitMA estimates MA coefficients from the autocorrelation of the AR
// residuals, clipped into the invertible region.
func fitMA(residuals []float64, q int) []float64 {
	coef := make([]float64, q)
	if q == 0 || len(residuals) == 0 {
		return coef
	}
	for j := 0; j < q && j < len(residuals); j++ {
		coef[j] = autocorr(residuals, j+1)
	}
	for j := range coef {
		if math.Abs(coef[j]) > 1 {
			coef[j] = math.Copysign(0.9, coef[j])
		}
	}
	return coef
}

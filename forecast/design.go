package forecast

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-fceval/timedataset"
	"gonum.org/v1/gonum/mat"
)

var ErrMissingCovariate = errors.New("future covariate values required but not supplied")

// FutureCovariates supplies known future values for exogenous covariate
// columns, indexed from the first period past the training cutoff.
type FutureCovariates struct {
	Values map[string][]float64
}

// designBuilder constructs design matrix rows for the linear and ARIMA
// regression components. Feature columns are, in order: trend (integer period
// index), seasonal one-hot dummies for periods 1..P-1 (period 0 folds into
// the intercept), then covariate terms shifted by their lag. Rows that would
// reach before the series start due to lags are trimmed from training.
type designBuilder struct {
	spec   Spec
	td     *timedataset.TimeDataset
	cols   int
	maxLag int
	covs   [][]float64
}

func newDesignBuilder(td *timedataset.TimeDataset, spec Spec) (*designBuilder, error) {
	b := &designBuilder{
		spec: spec,
		td:   td,
	}
	if spec.Trend {
		b.cols++
	}
	if spec.SeasonalPeriod >= 2 {
		b.cols += spec.SeasonalPeriod - 1
	}
	for _, term := range spec.Covariates {
		vals, err := td.Covariate(term.Name)
		if err != nil {
			return nil, err
		}
		b.covs = append(b.covs, vals)
		if term.Lag > b.maxLag {
			b.maxLag = term.Lag
		}
		b.cols++
	}
	return b, nil
}

func (b *designBuilder) hasTerms() bool {
	return b.cols > 0
}

// row fills dst with the feature values for global period index idx. Future
// covariate indices resolve against fut once they pass the training end.
func (b *designBuilder) row(dst []float64, idx int, fut *FutureCovariates) error {
	n := b.td.Len()
	col := 0
	if b.spec.Trend {
		dst[col] = float64(idx)
		col++
	}
	if p := b.spec.SeasonalPeriod; p >= 2 {
		for s := 1; s < p; s++ {
			if idx%p == s {
				dst[col] = 1.0
			} else {
				dst[col] = 0.0
			}
			col++
		}
	}
	for i, term := range b.spec.Covariates {
		src := idx - term.Lag
		switch {
		case src < n:
			dst[col] = b.covs[i][src]
		default:
			if fut == nil {
				return fmt.Errorf("covariate %q at step %d, %w", term.Name, src-n+1, ErrMissingCovariate)
			}
			futVals, exists := fut.Values[term.Name]
			if !exists || src-n >= len(futVals) {
				return fmt.Errorf("covariate %q at step %d, %w", term.Name, src-n+1, ErrMissingCovariate)
			}
			dst[col] = futVals[src-n]
		}
		col++
	}
	return nil
}

// trainMatrix builds the training design matrix and the aligned target,
// trimming the first maxLag rows.
func (b *designBuilder) trainMatrix(ty []float64) (mat.Matrix, []float64, error) {
	n := b.td.Len()
	m := n - b.maxLag
	if m < 1 {
		return nil, nil, fmt.Errorf("lag order %d leaves no training rows, %w", b.maxLag, ErrInsufficientTraining)
	}

	data := make([]float64, m*b.cols)
	for i := 0; i < m; i++ {
		if err := b.row(data[i*b.cols:(i+1)*b.cols], b.maxLag+i, nil); err != nil {
			return nil, nil, err
		}
	}
	target := make([]float64, m)
	copy(target, ty[b.maxLag:])
	return mat.NewDense(m, b.cols, data), target, nil
}

// futureMatrix builds design rows for the h periods past the training end.
func (b *designBuilder) futureMatrix(h int, fut *FutureCovariates) (mat.Matrix, error) {
	n := b.td.Len()
	data := make([]float64, h*b.cols)
	for j := 0; j < h; j++ {
		if err := b.row(data[j*b.cols:(j+1)*b.cols], n+j, fut); err != nil {
			return nil, err
		}
	}
	return mat.NewDense(h, b.cols, data), nil
}

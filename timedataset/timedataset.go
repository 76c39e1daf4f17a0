// Package timedataset provides the time-indexed series container consumed by
// the rest of the evaluation pipeline. A dataset holds one response series on
// a regular time grid along with any number of aligned covariate columns.
package timedataset

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrNoTrainingData     = errors.New("no training data")
	ErrNonMonotonic       = errors.New("time feature is not monotonic")
	ErrDuplicateTimestamp = errors.New("duplicate timestamp in time feature")
	ErrIrregularSpacing   = errors.New("time feature is not equally spaced")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
	ErrIndexOutOfBounds   = errors.New("offset is outside the dataset bounds")
	ErrOutOfRange         = errors.New("requested range falls outside the dataset grid")
	ErrUnknownCovariate   = errors.New("unknown covariate")
	ErrCovariateExists    = errors.New("covariate already registered")
)

// TimeDataset represents a single time series on a regular grid storing a
// slice of time points, observed values, and optional named covariate columns.
// All slices must be of the same length.
type TimeDataset struct {
	T []time.Time
	Y []float64

	covariates map[string][]float64
}

// NewUnivariateDataset returns an instance of a TimeDataset given a time and
// value slice. Timestamps must be strictly increasing and equally spaced.
func NewUnivariateDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if len(y) == 0 {
		return nil, ErrNoTrainingData
	}
	if len(t) != len(y) {
		return nil, fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}

	for i := 1; i < len(t); i++ {
		if t[i].Equal(t[i-1]) {
			return nil, fmt.Errorf("at index %d, %w", i, ErrDuplicateTimestamp)
		}
		if t[i].Before(t[i-1]) {
			return nil, fmt.Errorf("at index %d, %w", i, ErrNonMonotonic)
		}
	}
	if len(t) > 2 {
		period := t[1].Sub(t[0])
		for i := 2; i < len(t); i++ {
			if t[i].Sub(t[i-1]) != period {
				return nil, fmt.Errorf("at index %d, %w", i, ErrIrregularSpacing)
			}
		}
	}

	tSeries := make([]time.Time, len(t))
	ySeries := make([]float64, len(t))
	copy(tSeries, t)
	copy(ySeries, y)
	td := &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}

	return td, nil
}

// WithCovariate registers a named covariate column aligned to the dataset
// timestamps. The receiver is returned for chaining.
func (td *TimeDataset) WithCovariate(name string, vals []float64) (*TimeDataset, error) {
	if len(vals) != len(td.T) {
		return nil, fmt.Errorf(
			"covariate %q has length of %d, but dataset has a length of %d, %w",
			name, len(vals), len(td.T), ErrDatasetLenMismatch,
		)
	}
	if td.covariates == nil {
		td.covariates = make(map[string][]float64)
	}
	if _, exists := td.covariates[name]; exists {
		return nil, fmt.Errorf("%q, %w", name, ErrCovariateExists)
	}
	c := make([]float64, len(vals))
	copy(c, vals)
	td.covariates[name] = c
	return td, nil
}

// Covariate returns the covariate column registered under name.
func (td *TimeDataset) Covariate(name string) ([]float64, error) {
	c, exists := td.covariates[name]
	if !exists {
		return nil, fmt.Errorf("%q, %w", name, ErrUnknownCovariate)
	}
	return c, nil
}

// CovariateNames returns the registered covariate names in sorted order.
func (td *TimeDataset) CovariateNames() []string {
	names := make([]string, 0, len(td.covariates))
	for name := range td.covariates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of periods in the dataset.
func (td *TimeDataset) Len() int {
	return len(td.T)
}

// Period returns the grid spacing. A dataset with fewer than two points has
// no inferable period and returns zero.
func (td *TimeDataset) Period() time.Duration {
	if len(td.T) < 2 {
		return 0
	}
	return td.T[1].Sub(td.T[0])
}

// At returns the (timestamp, value) pair at a 0-based offset from the series
// start.
func (td *TimeDataset) At(offset int) (time.Time, float64, error) {
	if offset < 0 || offset >= len(td.T) {
		return time.Time{}, 0, fmt.Errorf("offset %d with length %d, %w", offset, len(td.T), ErrIndexOutOfBounds)
	}
	return td.T[offset], td.Y[offset], nil
}

// Slice returns a new dataset over the half-open offset range [start, end)
// including any registered covariates.
func (td *TimeDataset) Slice(start, end int) (*TimeDataset, error) {
	if start < 0 || end > len(td.T) || start >= end {
		return nil, fmt.Errorf("slice [%d, %d) with length %d, %w", start, end, len(td.T), ErrOutOfRange)
	}

	sub, err := NewUnivariateDataset(td.T[start:end], td.Y[start:end])
	if err != nil {
		return nil, err
	}
	for name, vals := range td.covariates {
		if _, err := sub.WithCovariate(name, vals[start:end]); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

// SliceTime returns a new dataset covering the half-open time range
// [start, end). Both bounds must land on the underlying grid. The end bound
// may additionally point one period past the final grid point.
func (td *TimeDataset) SliceTime(start, end time.Time) (*TimeDataset, error) {
	startIdx := -1
	endIdx := -1
	for i := 0; i < len(td.T); i++ {
		if td.T[i].Equal(start) {
			startIdx = i
		}
		if td.T[i].Equal(end) {
			endIdx = i
		}
	}
	if endIdx == -1 && len(td.T) > 1 && end.Equal(td.T[len(td.T)-1].Add(td.Period())) {
		endIdx = len(td.T)
	}
	if startIdx == -1 || endIdx == -1 {
		return nil, fmt.Errorf("time range [%s, %s) not on grid, %w", start, end, ErrOutOfRange)
	}
	return td.Slice(startIdx, endIdx)
}

// Copy returns a deep copy of the dataset.
func (td *TimeDataset) Copy() *TimeDataset {
	cp, err := td.Slice(0, len(td.T))
	if err != nil {
		return nil
	}
	return cp
}

// Package forecast declares candidate model specifications and fits them
// against training windows, producing point forecasts with full Gaussian
// predictive distributions on the modeling scale.
package forecast

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-fceval/transform"
)

var (
	ErrNoSpecName            = errors.New("model specification has no name")
	ErrUnknownFamily         = errors.New("unknown model family")
	ErrBadSeasonalPeriod     = errors.New("seasonal period must be at least 2")
	ErrBadLag                = errors.New("covariate lag must be non-negative")
	ErrNoPredictors          = errors.New("linear specification has no predictor terms")
	ErrCovariatesUnsupported = errors.New("family does not support covariate terms")
	ErrDuplicateSpec         = errors.New("specification name already registered")
)

// Family tags the fitting algorithm used by a specification.
type Family string

const (
	FamilyNaive         Family = "naive"
	FamilySeasonalNaive Family = "seasonal_naive"
	FamilyMean          Family = "mean"
	FamilyLinear        Family = "linear"
	FamilyETS           Family = "ets"
	FamilyARIMA         Family = "arima"
)

// CovariateTerm names an exogenous covariate column with an optional lag
// order applied before alignment.
type CovariateTerm struct {
	Name string `json:"name"`
	Lag  int    `json:"lag"`
}

// Spec is a declarative candidate model: a unique name, an invertible
// response transform, and the predictor terms the family consumes. Trend and
// seasonal dummies apply to the linear and ARIMA regression components;
// SeasonalPeriod additionally sets the cycle length for seasonal naive and
// exponential smoothing fits.
type Spec struct {
	Name           string
	Family         Family
	Transform      transform.Transform
	Trend          bool
	SeasonalPeriod int
	Covariates     []CovariateTerm
}

func (s Spec) Validate() error {
	if s.Name == "" {
		return ErrNoSpecName
	}
	switch s.Family {
	case FamilyNaive, FamilySeasonalNaive, FamilyMean, FamilyLinear, FamilyETS, FamilyARIMA:
	default:
		return fmt.Errorf("%q, %w", s.Family, ErrUnknownFamily)
	}
	if s.SeasonalPeriod != 0 && s.SeasonalPeriod < 2 {
		return fmt.Errorf("%d, %w", s.SeasonalPeriod, ErrBadSeasonalPeriod)
	}
	if s.Family == FamilySeasonalNaive && s.SeasonalPeriod == 0 {
		return fmt.Errorf("seasonal naive requires a period, %w", ErrBadSeasonalPeriod)
	}
	for _, term := range s.Covariates {
		if term.Lag < 0 {
			return fmt.Errorf("covariate %q lag %d, %w", term.Name, term.Lag, ErrBadLag)
		}
	}
	if len(s.Covariates) > 0 && s.Family != FamilyLinear && s.Family != FamilyARIMA {
		return fmt.Errorf("family %q, %w", s.Family, ErrCovariatesUnsupported)
	}
	if s.Family == FamilyLinear && !s.Trend && s.SeasonalPeriod == 0 && len(s.Covariates) == 0 {
		return ErrNoPredictors
	}
	return nil
}

func (s Spec) transformOrIdentity() transform.Transform {
	if s.Transform == nil {
		return transform.Identity{}
	}
	return s.Transform
}

// Registry is an ordered, name-unique collection of model specifications.
type Registry struct {
	specs  []Spec
	byName map[string]int
}

// NewRegistry validates and registers the given specifications.
func NewRegistry(specs ...Spec) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]int),
	}
	for _, spec := range specs {
		if err := r.Add(spec); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add validates and appends a specification, rejecting duplicate names.
func (r *Registry) Add(spec Spec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("invalid specification %q, %w", spec.Name, err)
	}
	if _, exists := r.byName[spec.Name]; exists {
		return fmt.Errorf("%q, %w", spec.Name, ErrDuplicateSpec)
	}
	r.byName[spec.Name] = len(r.specs)
	r.specs = append(r.specs, spec)
	return nil
}

// Specs returns the registered specifications in registration order.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Get returns the specification registered under name.
func (r *Registry) Get(name string) (Spec, bool) {
	idx, exists := r.byName[name]
	if !exists {
		return Spec{}, false
	}
	return r.specs[idx], true
}

// Len returns the number of registered specifications.
func (r *Registry) Len() int {
	return len(r.specs)
}

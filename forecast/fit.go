package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aouyang1/go-fceval/models"
	"github.com/aouyang1/go-fceval/timedataset"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrFitFailed            = errors.New("unable to fit model")
	ErrInsufficientTraining = errors.New("insufficient training data")
	ErrNonFiniteResponse    = errors.New("transformed response contains non-finite values")
)

// FittedModel holds the opaque per-family parameters produced by fitting a
// specification against one training window. A fitted model is never shared
// across partitions; automatic order selection re-runs per window and may
// legitimately settle on different internal structure each time.
type FittedModel struct {
	spec   Spec
	period time.Duration
	lastT  time.Time
	sigma  float64 // residual stddev on the modeling scale

	constant   float64   // mean level or last naive value
	seasonVals []float64 // trailing cycle for seasonal naive
	ols        *models.OLSRegression
	design     *designBuilder
	arima      *models.ARIMA
	ets        *models.ETS
}

// Spec returns the specification this model was fit from.
func (fm *FittedModel) Spec() Spec {
	return fm.spec
}

// ARIMAOrder reports the automatically selected (p,d,q) structure, if this
// fit carries an ARIMA component.
func (fm *FittedModel) ARIMAOrder() (models.ARIMAOrder, bool) {
	if fm.arima == nil {
		return models.ARIMAOrder{}, false
	}
	return fm.arima.Order(), true
}

// ResidualStd returns the training residual standard deviation on the
// modeling scale.
func (fm *FittedModel) ResidualStd() float64 {
	return fm.sigma
}

// Fit applies the specification transform to the training response, builds
// the design matrix from the predictor terms, and dispatches to the
// family-specific fitting routine. Fitting failures wrap ErrFitFailed so the
// calling pipeline can record the cell as missing without aborting the run.
func Fit(td *timedataset.TimeDataset, spec Spec) (*FittedModel, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	ty := spec.transformOrIdentity().Apply(td.Y)
	for i, v := range ty {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("at index %d, %w, %w", i, ErrNonFiniteResponse, ErrFitFailed)
		}
	}

	fm := &FittedModel{
		spec:   spec,
		period: td.Period(),
		lastT:  td.T[td.Len()-1],
	}

	var err error
	switch spec.Family {
	case FamilyMean:
		err = fm.fitMean(ty)
	case FamilyNaive:
		err = fm.fitNaive(ty)
	case FamilySeasonalNaive:
		err = fm.fitSeasonalNaive(ty)
	case FamilyLinear:
		err = fm.fitLinear(td, ty)
	case FamilyETS:
		err = fm.fitETS(ty)
	case FamilyARIMA:
		err = fm.fitARIMA(td, ty)
	default:
		return nil, fmt.Errorf("%q, %w", spec.Family, ErrUnknownFamily)
	}
	if err != nil {
		return nil, fmt.Errorf("spec %q, %w, %w", spec.Name, err, ErrFitFailed)
	}
	return fm, nil
}

func (fm *FittedModel) fitMean(ty []float64) error {
	mean := stat.Mean(ty, nil)
	fm.constant = mean
	fm.sigma = residualStd(ty, func(int) float64 { return mean })
	return nil
}

func (fm *FittedModel) fitNaive(ty []float64) error {
	fm.constant = ty[len(ty)-1]
	if len(ty) > 1 {
		diffs := make([]float64, len(ty)-1)
		for i := 1; i < len(ty); i++ {
			diffs[i-1] = ty[i] - ty[i-1]
		}
		_, std := stat.MeanStdDev(diffs, nil)
		fm.sigma = std
	}
	return nil
}

func (fm *FittedModel) fitSeasonalNaive(ty []float64) error {
	p := fm.spec.SeasonalPeriod
	if len(ty) < p {
		return fmt.Errorf("seasonal period %d exceeds training length %d, %w", p, len(ty), ErrInsufficientTraining)
	}
	fm.seasonVals = make([]float64, p)
	copy(fm.seasonVals, ty[len(ty)-p:])

	if len(ty) > p {
		diffs := make([]float64, len(ty)-p)
		for i := p; i < len(ty); i++ {
			diffs[i-p] = ty[i] - ty[i-p]
		}
		if len(diffs) > 1 {
			_, std := stat.MeanStdDev(diffs, nil)
			fm.sigma = std
		}
	}
	return nil
}

func (fm *FittedModel) fitLinear(td *timedataset.TimeDataset, ty []float64) error {
	b, err := newDesignBuilder(td, fm.spec)
	if err != nil {
		return err
	}
	x, target, err := b.trainMatrix(ty)
	if err != nil {
		return err
	}

	ols, err := models.NewOLSRegression(nil)
	if err != nil {
		return err
	}
	if err := ols.Fit(x, target); err != nil {
		return err
	}

	fitted, err := ols.Predict(x)
	if err != nil {
		return err
	}
	fm.sigma = residualStd(target, func(i int) float64 { return fitted[i] })
	fm.ols = ols
	fm.design = b
	return nil
}

func (fm *FittedModel) fitETS(ty []float64) error {
	opt := models.NewDefaultETSOptions()
	opt.SeasonalPeriod = fm.spec.SeasonalPeriod
	ets, err := models.FitETS(ty, opt)
	if err != nil {
		return err
	}
	fm.ets = ets
	fm.sigma = ets.ResidualStd()
	return nil
}

func (fm *FittedModel) fitARIMA(td *timedataset.TimeDataset, ty []float64) error {
	b, err := newDesignBuilder(td, fm.spec)
	if err != nil {
		return err
	}

	// with predictor terms this is a regression with ARIMA errors: ordinary
	// least squares on the design matrix, ARIMA on its residuals
	target := ty
	if b.hasTerms() {
		x, trimmed, err := b.trainMatrix(ty)
		if err != nil {
			return err
		}
		ols, err := models.NewOLSRegression(nil)
		if err != nil {
			return err
		}
		if err := ols.Fit(x, trimmed); err != nil {
			return err
		}
		fitted, err := ols.Predict(x)
		if err != nil {
			return err
		}
		residuals := make([]float64, len(trimmed))
		for i := range trimmed {
			residuals[i] = trimmed[i] - fitted[i]
		}
		fm.ols = ols
		fm.design = b
		target = residuals
	}

	arima, err := models.AutoARIMA(target, nil)
	if err != nil {
		return err
	}
	fm.arima = arima
	fm.sigma = arima.ResidualStd()
	return nil
}

func residualStd(target []float64, fitted func(int) float64) float64 {
	if len(target) < 2 {
		return 0
	}
	residuals := make([]float64, len(target))
	for i := range target {
		residuals[i] = target[i] - fitted(i)
	}
	_, std := stat.MeanStdDev(residuals, nil)
	if math.IsNaN(std) {
		return 0
	}
	return std
}

package timedataset

import (
	"time"

	"github.com/rickar/cal/v2"
)

// HolidayCovariate builds a 0/1 indicator column marking timestamps that fall
// on the observed date of any of the given holidays. Future values of this
// covariate are derivable from timestamps alone, which makes it usable as an
// exogenous predictor without supplying future covariate values.
func HolidayCovariate(t []time.Time, hols ...*cal.Holiday) []float64 {
	observed := make(map[string]struct{})
	if len(t) > 0 {
		for year := t[0].Year(); year <= t[len(t)-1].Year(); year++ {
			for _, hol := range hols {
				_, obs := hol.Calc(year)
				observed[obs.Format("2006-01-02")] = struct{}{}
			}
		}
	}

	vals := make([]float64, len(t))
	for i, tPnt := range t {
		if _, exists := observed[tPnt.Format("2006-01-02")]; exists {
			vals[i] = 1.0
		}
	}
	return vals
}

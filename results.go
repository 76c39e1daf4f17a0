package fceval

import (
	"time"

	"github.com/aouyang1/go-fceval/eval"
	"github.com/goccy/go-json"
)

// Bound is one symmetric forecast interval at a nominal coverage level.
type Bound struct {
	Level float64 `json:"level"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ForecastRow is one forecast time point for a (model, partition) cell.
type ForecastRow struct {
	Model     string    `json:"model"`
	Partition int       `json:"partition"`
	Time      time.Time `json:"time"`
	Point     float64   `json:"point"`
	Bounds    []Bound   `json:"bounds"`
}

// Failure records a (model, partition) cell that produced no result and at
// which pipeline stage it failed.
type Failure struct {
	Model     string `json:"model"`
	Partition int    `json:"partition"`
	Stage     string `json:"stage"`
	Error     string `json:"error"`
}

// Results holds the three output tables of an evaluation run plus the
// failures that were tolerated along the way. Rankings is the primary-metric
// table sorted best-to-worst; Aggregates carries every computed metric.
type Results struct {
	Partitions int            `json:"partitions"`
	Forecasts  []ForecastRow  `json:"forecasts"`
	Accuracy   []eval.Record  `json:"accuracy"`
	Aggregates []eval.Ranking `json:"aggregates"`
	Rankings   []eval.Ranking `json:"rankings"`
	Failures   []Failure      `json:"failures,omitempty"`
}

// JSON serializes the result tables.
func (r *Results) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

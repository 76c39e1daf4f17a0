// Package split produces train/test partitions of a time dataset under a
// single holdout policy or rolling-origin cross-validation.
package split

import (
	"errors"
	"fmt"
	"math"

	"github.com/aouyang1/go-fceval/timedataset"
)

var ErrBadSplitConfig = errors.New("invalid split configuration")

// Partition references a training cutoff within a dataset. The training range
// is [0, TrainEnd) and the test range starts at TrainEnd. For rolling-origin
// partitions the test length is not fixed at split time but determined by the
// horizon requested at evaluation time, truncated to the ground truth that
// actually exists past the cutoff.
type Partition struct {
	Origin   int `json:"origin"`
	TrainEnd int `json:"train_end"`
}

// Train returns the training sub-dataset for this partition.
func (p Partition) Train(td *timedataset.TimeDataset) (*timedataset.TimeDataset, error) {
	return td.Slice(0, p.TrainEnd)
}

// TestLen returns the number of realized periods available for scoring a
// forecast of the given horizon, possibly zero for late origins.
func (p Partition) TestLen(td *timedataset.TimeDataset, horizon int) int {
	remaining := td.Len() - p.TrainEnd
	if horizon < remaining {
		return horizon
	}
	return remaining
}

// Test returns the realized sub-dataset covering the given horizon past the
// training cutoff, truncated at the series end. Callers must check TestLen
// first; a zero-length test range is an out of range error.
func (p Partition) Test(td *timedataset.TimeDataset, horizon int) (*timedataset.TimeDataset, error) {
	return td.Slice(p.TrainEnd, p.TrainEnd+p.TestLen(td, horizon))
}

// Holdout produces a single partition reserving the trailing
// ceil(n*testFraction) periods for testing.
func Holdout(td *timedataset.TimeDataset, testFraction float64) (Partition, error) {
	if testFraction <= 0.0 || testFraction >= 1.0 {
		return Partition{}, fmt.Errorf("test fraction %f not in (0, 1), %w", testFraction, ErrBadSplitConfig)
	}
	n := td.Len()
	testLen := int(math.Ceil(float64(n) * testFraction))
	trainLen := n - testLen
	if testLen == 0 || trainLen == 0 {
		return Partition{}, fmt.Errorf(
			"test fraction %f yields train length %d and test length %d, %w",
			testFraction, trainLen, testLen, ErrBadSplitConfig,
		)
	}
	return Partition{Origin: 0, TrainEnd: trainLen}, nil
}

// RollingOrigin produces floor((n-initialSize)/step)+1 expanding-window
// partitions. Partition k trains on the first initialSize + k*step periods.
func RollingOrigin(td *timedataset.TimeDataset, initialSize, step int) ([]Partition, error) {
	if initialSize <= 0 {
		return nil, fmt.Errorf("initial size %d must be positive, %w", initialSize, ErrBadSplitConfig)
	}
	if step <= 0 {
		return nil, fmt.Errorf("step %d must be positive, %w", step, ErrBadSplitConfig)
	}
	n := td.Len()
	if initialSize > n {
		return nil, fmt.Errorf("initial size %d exceeds series length %d, %w", initialSize, n, ErrBadSplitConfig)
	}

	numPartitions := (n-initialSize)/step + 1
	partitions := make([]Partition, 0, numPartitions)
	for k := 0; k < numPartitions; k++ {
		partitions = append(partitions, Partition{
			Origin:   k,
			TrainEnd: initialSize + k*step,
		})
	}
	return partitions, nil
}

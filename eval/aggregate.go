package eval

import (
	"sort"
)

// Record is one accuracy score for a (model, partition, metric) cell.
type Record struct {
	Model     string  `json:"model"`
	Partition int     `json:"partition"`
	Metric    string  `json:"metric"`
	Score     float64 `json:"score"`
}

// Ranking is the aggregated score of one model under one metric along with
// how many partitions actually contributed a record. Models that failed on
// some partitions aggregate over the partitions that succeeded.
type Ranking struct {
	Model      string  `json:"model"`
	Metric     string  `json:"metric"`
	Score      float64 `json:"score"`
	Partitions int     `json:"partitions"`
}

// Aggregate averages records per (model, metric) across partitions. Output
// order is deterministic regardless of record insertion order: sorted by
// metric then model.
func Aggregate(records []Record) []Ranking {
	type key struct {
		model  string
		metric string
	}
	sums := make(map[key]float64)
	counts := make(map[key]int)
	for _, r := range records {
		k := key{model: r.Model, metric: r.Metric}
		sums[k] += r.Score
		counts[k]++
	}

	rankings := make([]Ranking, 0, len(sums))
	for k, sum := range sums {
		rankings = append(rankings, Ranking{
			Model:      k.model,
			Metric:     k.metric,
			Score:      sum / float64(counts[k]),
			Partitions: counts[k],
		})
	}
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].Metric != rankings[j].Metric {
			return rankings[i].Metric < rankings[j].Metric
		}
		return rankings[i].Model < rankings[j].Model
	})
	return rankings
}

// SortByMetric filters rankings to one metric and orders them best-to-worst
// honoring the metric direction, breaking ties by model name.
func SortByMetric(rankings []Ranking, metric string, higherBetter bool) []Ranking {
	out := make([]Ranking, 0, len(rankings))
	for _, r := range rankings {
		if r.Metric == metric {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			if higherBetter {
				return out[i].Score > out[j].Score
			}
			return out[i].Score < out[j].Score
		}
		return out[i].Model < out[j].Model
	})
	return out
}

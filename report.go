package fceval

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/aouyang1/go-fceval/eval"
	"github.com/aouyang1/go-fceval/timedataset"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// LineTSeries generates an echart multi-line chart for some arbitrary
// time/value combination. The input y is a slice of series that must have the
// same length as the input time slice.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	lineData := make([][]opts.LineData, len(y))
	for i := 0; i < len(y); i++ {
		lineData[i] = make([]opts.LineData, 0, len(y[i]))
		for j := 0; j < len(y[i]); j++ {
			if math.IsNaN(y[i][j]) {
				continue
			}
			lineData[i] = append(lineData[i], opts.LineData{Value: y[i][j]})
		}
	}

	line = line.SetXAxis(t)
	for i, series := range seriesName {
		line = line.AddSeries(series, lineData[i])
	}
	return line
}

// LineForecast generates an echart line chart for one model's forecast on one
// partition plotting the realized values along with the point forecast and
// the widest interval bounds.
func LineForecast(td *timedataset.TimeDataset, rows []ForecastRow, model string, partition int) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: fmt.Sprintf("%s, origin %d", model, partition),
			},
		),
	)

	t := make([]time.Time, 0, len(rows))
	lineDataActual := make([]opts.LineData, 0, len(rows))
	lineDataForecast := make([]opts.LineData, 0, len(rows))
	lineDataUpper := make([]opts.LineData, 0, len(rows))
	lineDataLower := make([]opts.LineData, 0, len(rows))

	actualAt := make(map[time.Time]float64, td.Len())
	for i := 0; i < td.Len(); i++ {
		actualAt[td.T[i]] = td.Y[i]
	}

	for _, row := range rows {
		if row.Model != model || row.Partition != partition {
			continue
		}
		t = append(t, row.Time)
		if actual, exists := actualAt[row.Time]; exists {
			lineDataActual = append(lineDataActual, opts.LineData{Value: actual})
		} else {
			lineDataActual = append(lineDataActual, opts.LineData{Value: "-"})
		}
		lineDataForecast = append(lineDataForecast, opts.LineData{Value: row.Point})
		if len(row.Bounds) > 0 {
			widest := row.Bounds[0]
			for _, b := range row.Bounds[1:] {
				if b.Level > widest.Level {
					widest = b
				}
			}
			lineDataUpper = append(lineDataUpper, opts.LineData{Value: widest.Upper})
			lineDataLower = append(lineDataLower, opts.LineData{Value: widest.Lower})
		}
	}

	line.SetXAxis(t).
		AddSeries("Actual", lineDataActual).
		AddSeries("Forecast", lineDataForecast).
		AddSeries("Upper", lineDataUpper).
		AddSeries("Lower", lineDataLower)
	return line
}

// BarRanking generates an echart bar chart of aggregated scores for one
// metric, already sorted best to worst.
func BarRanking(rankings []eval.Ranking) *charts.Bar {
	bar := charts.NewBar()

	metric := ""
	if len(rankings) > 0 {
		metric = rankings[0].Metric
	}
	bar.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: fmt.Sprintf("Model ranking by %s", metric),
			},
		),
	)

	names := make([]string, 0, len(rankings))
	barData := make([]opts.BarData, 0, len(rankings))
	for _, r := range rankings {
		names = append(names, fmt.Sprintf("%s (%d)", r.Model, r.Partitions))
		barData = append(barData, opts.BarData{Value: r.Score})
	}
	bar.SetXAxis(names).AddSeries(metric, barData)
	return bar
}

// WriteReport renders an html page with the evaluated series, the ranking bar
// chart, and one forecast chart per model for its last evaluated partition.
func (r *Results) WriteReport(path string, td *timedataset.TimeDataset) error {
	page := components.NewPage()
	page.AddCharts(
		LineTSeries("Series", []string{"Actual"}, td.T, [][]float64{td.Y}),
		BarRanking(r.Rankings),
	)

	lastPartition := make(map[string]int)
	for _, row := range r.Forecasts {
		if part, exists := lastPartition[row.Model]; !exists || row.Partition > part {
			lastPartition[row.Model] = row.Partition
		}
	}
	for _, ranking := range r.Rankings {
		part, exists := lastPartition[ranking.Model]
		if !exists {
			continue
		}
		page.AddCharts(LineForecast(td, r.Forecasts, ranking.Model, part))
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return page.Render(io.MultiWriter(file))
}

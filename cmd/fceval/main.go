// Command fceval evaluates a declared set of candidate forecasting models
// against a CSV time series and writes the accuracy and ranking tables.
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aouyang1/go-fceval"
	"github.com/aouyang1/go-fceval/timedataset"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "fceval",
		Short: "Compare forecasting models under holdout or rolling-origin cross-validation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
		SilenceUsage: true,
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "fceval.yaml", "path to the evaluation config file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)

	td, err := loadSeries(cfg.Input)
	if err != nil {
		return fmt.Errorf("unable to load series from %q, %w", cfg.Input, err)
	}

	reg, err := cfg.Registry()
	if err != nil {
		return err
	}

	harness, err := fceval.New(cfg.Options(), logger)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"series_len": td.Len(),
		"models":     reg.Len(),
		"policy":     cfg.Evaluation.Policy,
	}).Info("starting evaluation")

	res, err := harness.Evaluate(td, reg)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"partitions": res.Partitions,
		"failures":   len(res.Failures),
	}).Info("evaluation complete")

	if cfg.Output != "" {
		bytes, err := res.JSON()
		if err != nil {
			return err
		}
		if err := os.WriteFile(cfg.Output, bytes, 0o644); err != nil {
			return err
		}
	}
	if cfg.Report != "" {
		if err := res.WriteReport(cfg.Report, td); err != nil {
			return err
		}
	}

	for _, r := range res.Rankings {
		logger.WithFields(logrus.Fields{
			"model":      r.Model,
			"metric":     r.Metric,
			"score":      r.Score,
			"partitions": r.Partitions,
		}).Info("ranking")
	}
	return nil
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

// loadSeries reads a headered CSV of (timestamp, value, covariates...) rows
// into a dataset. Covariate column names come from the header.
func loadSeries(path string) (*timedataset.TimeDataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, timedataset.ErrNoTrainingData
	}

	header := rows[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("expected at least timestamp and value columns, got %d", len(header))
	}

	t := make([]time.Time, 0, len(rows)-1)
	y := make([]float64, 0, len(rows)-1)
	covs := make([][]float64, len(header)-2)

	for i, row := range rows[1:] {
		ts, err := parseTime(row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d, %w", i+1, err)
		}
		val, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d, %w", i+1, err)
		}
		t = append(t, ts)
		y = append(y, val)
		for c := 2; c < len(header); c++ {
			cv, err := strconv.ParseFloat(row[c], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q, %w", i+1, header[c], err)
			}
			covs[c-2] = append(covs[c-2], cv)
		}
	}

	td, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		return nil, err
	}
	for c := 2; c < len(header); c++ {
		if _, err := td.WithCovariate(header[c], covs[c-2]); err != nil {
			return nil, err
		}
	}
	return td, nil
}

func parseTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		ts, err := time.Parse(layout, s)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/torutils/relaycharts/analyze"
	"github.com/torutils/relaycharts/chart"
	"github.com/torutils/relaycharts/experiment"
	"github.com/torutils/relaycharts/report"
)

var compareCmd = &cobra.Command{
	Use:   "compare <experiment-dir>...",
	Short: "Compare two or more experiment directories",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runCompare,
}

func init() {
	compareCmd.Flags().String("output-dir", ".", "directory for COMPARISON.md and charts")
	viper.BindPFlag("compare.output-dir", compareCmd.Flags().Lookup("output-dir"))
	rootCmd.AddCommand(compareCmd)
}

func runCompare(_ *cobra.Command, dirs []string) error {
	outDir := viper.GetString("compare.output-dir")

	var results []analyze.ExperimentResult
	for _, dir := range dirs {
		exp, err := experiment.Load(dir)
		if err != nil {
			return err
		}
		rows := experiment.ApplyCutoffs(exp.Measurements, exp.GroupFiles)
		series := analyze.GroupSeries(rows, nil)
		if len(series) == 0 {
			return fmt.Errorf("experiment %s: no grouped measurements", exp.Meta.ID)
		}

		labels := make(map[string]string, len(exp.Meta.Groups))
		for letter, g := range exp.Meta.Groups {
			labels[letter] = g.Name
		}
		results = append(results, analyze.ExperimentResult{
			ID:        exp.Meta.ID,
			Name:      exp.Meta.Name,
			Server:    exp.Meta.Server,
			StartDate: exp.Meta.StartDate,
			Allocator: exp.Meta.Allocator,
			Control:   exp.ControlLetter(),
			Summaries: analyze.SummarizeAll(series),
			Labels:    labels,
		})
		logrus.Infof("loaded experiment %s (%d groups)", exp.Meta.ID, len(series))
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	cmpPath := filepath.Join(outDir, "experiment_comparison.png")
	if err := chart.ExperimentComparison(cmpPath, "Final average by group", results); err != nil {
		return err
	}
	bestPath := filepath.Join(outDir, "best_configurations.png")
	if err := chart.BestConfigurations(bestPath, "Best configurations",
		analyze.RankConfigurations(results, 10)); err != nil {
		return err
	}
	logrus.Infof("wrote charts to %s", outDir)

	out, err := os.Create(filepath.Join(outDir, "COMPARISON.md"))
	if err != nil {
		return err
	}
	err = report.RenderComparison(out, report.BuildComparison(results, time.Now()))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		logrus.Infof("wrote %s", filepath.Join(outDir, "COMPARISON.md"))
	}
	return err
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/torutils/relaycharts/analyze"
	"github.com/torutils/relaycharts/chart"
	"github.com/torutils/relaycharts/measure"
	"github.com/torutils/relaycharts/report"
)

var timeseriesCmd = &cobra.Command{
	Use:   "timeseries",
	Short: "Fleet usage and weekly trend charts from monitor stats",
	RunE:  runTimeseries,
}

func init() {
	timeseriesCmd.Flags().String("input", "memory_stats.csv", "monitor stats CSV")
	timeseriesCmd.Flags().String("output-dir", ".", "directory for generated charts")
	viper.BindPFlag("timeseries.input", timeseriesCmd.Flags().Lookup("input"))
	viper.BindPFlag("timeseries.output-dir", timeseriesCmd.Flags().Lookup("output-dir"))
	rootCmd.AddCommand(timeseriesCmd)
}

func runTimeseries(_ *cobra.Command, _ []string) error {
	input := viper.GetString("timeseries.input")
	outDir := viper.GetString("timeseries.output-dir")

	f, err := os.Open(input)
	if err != nil {
		return err
	}
	rows, skipped, err := measure.ReadMonitorStats(f)
	f.Close()
	if err != nil {
		return err
	}
	if skipped > 0 {
		logrus.Warnf("skipped %d malformed rows in %s", skipped, input)
	}
	logrus.Infof("loaded %d monitor stats rows from %s", len(rows), input)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	totals, perRelay := analyze.MonitorPoints(rows)
	changes := analyze.CountChanges(rows)

	usagePath := filepath.Join(outDir, "fleet_usage.png")
	if err := chart.FleetUsage(usagePath, "Fleet memory usage", totals, perRelay, changes); err != nil {
		return err
	}
	logrus.Infof("wrote %s", usagePath)

	weeklyPath := filepath.Join(outDir, "weekly_trend.png")
	if err := chart.WeeklyTrend(weeklyPath, "Weekly fleet totals", analyze.WeeklyTotals(rows)); err != nil {
		return err
	}
	logrus.Infof("wrote %s", weeklyPath)

	sum, err := analyze.SummarizeMonitor(rows)
	if err != nil {
		return err
	}
	fmt.Println()
	return report.MonitorSummary(os.Stdout, sum)
}

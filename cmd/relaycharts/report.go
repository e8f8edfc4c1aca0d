package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/torutils/relaycharts/analyze"
	"github.com/torutils/relaycharts/chart"
	"github.com/torutils/relaycharts/experiment"
	"github.com/torutils/relaycharts/measure"
	"github.com/torutils/relaycharts/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate charts and REPORT.md for an experiment directory",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().String("dir", ".", "experiment directory")
	reportCmd.Flags().Bool("charts-only", false, "render charts without REPORT.md")
	viper.BindPFlag("report.dir", reportCmd.Flags().Lookup("dir"))
	viper.BindPFlag("report.charts-only", reportCmd.Flags().Lookup("charts-only"))
	rootCmd.AddCommand(reportCmd)
}

func runReport(_ *cobra.Command, _ []string) error {
	dir := viper.GetString("report.dir")

	exp, err := experiment.Load(dir)
	if err != nil {
		return err
	}
	logrus.Infof("experiment %s: %d measurement rows, %d groups",
		exp.Meta.ID, len(exp.Measurements), len(exp.Meta.Groups))

	rows := experiment.ApplyCutoffs(exp.Measurements, exp.GroupFiles)
	series := analyze.GroupSeries(rows, func(m measure.Measurement) string {
		if m.Group != "" {
			return m.Group
		}
		return exp.GroupFor(m.Nickname)
	})
	summaries := analyze.SummarizeAll(series)
	control := exp.ControlLetter()

	var events []chart.Event
	for _, ev := range exp.Events {
		events = append(events, chart.Event{Time: ev.Timestamp, Label: ev.EventType})
	}

	if err := chart.GroupTimeSeries(filepath.Join(dir, "memory_by_group.png"),
		exp.Meta.Name, series, events, exp.GroupLabel); err != nil {
		return err
	}
	if err := chart.GroupComparisonBars(filepath.Join(dir, "group_comparison.png"),
		"Latest average by group", summaries, control, exp.GroupLabel); err != nil {
		return err
	}

	groupOf := make(map[string]string)
	for _, m := range rows {
		if m.Type != measure.RowRelay || m.Nickname == "" {
			continue
		}
		if m.Group != "" {
			groupOf[m.Nickname] = m.Group
		} else if _, ok := groupOf[m.Nickname]; !ok {
			groupOf[m.Nickname] = exp.GroupFor(m.Nickname)
		}
	}
	letters := exp.GroupLetters()
	values := make(map[string][]float64, len(letters))
	for nick, gb := range analyze.LatestPerRelay(rows, "") {
		if letter := groupOf[nick]; letter != "" {
			values[letter] = append(values[letter], gb)
		}
	}
	if err := chart.DistributionBox(filepath.Join(dir, "group_distribution.png"),
		"Per-relay distribution", letters, values, exp.GroupLabel); err != nil {
		return err
	}

	// Monitor-recorded aggregate rows carry the fleet-wide view; when the
	// file has them, render the two-panel fleet chart as well.
	totals := analyze.TotalSeries(rows)
	if len(totals) > 0 {
		if err := chart.FleetUsage(filepath.Join(dir, "fleet_usage.png"),
			exp.Meta.Name+" fleet usage", totals, analyze.AggregateSeries(rows),
			analyze.PointCountChanges(totals)); err != nil {
			return err
		}
	}
	logrus.Infof("wrote charts to %s", dir)

	if viper.GetBool("report.charts-only") {
		return nil
	}

	out, err := os.Create(filepath.Join(dir, "REPORT.md"))
	if err != nil {
		return err
	}
	err = report.Render(out, report.Build(exp, summaries, time.Now()))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		logrus.Infof("wrote %s", filepath.Join(dir, "REPORT.md"))
	}
	return err
}

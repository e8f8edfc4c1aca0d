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
	"github.com/torutils/relaycharts/experiment"
	"github.com/torutils/relaycharts/measure"
	"github.com/torutils/relaycharts/report"
)

var allocatorsCmd = &cobra.Command{
	Use:   "allocators",
	Short: "Compare allocator groups from a measurement CSV and group files",
	RunE:  runAllocators,
}

func init() {
	allocatorsCmd.Flags().String("input", "memory_measurements.csv", "measurement CSV")
	allocatorsCmd.Flags().String("groups-dir", ".", "directory holding group_<letter>_<name>.txt files")
	allocatorsCmd.Flags().String("output-dir", ".", "directory for generated charts")
	viper.BindPFlag("allocators.input", allocatorsCmd.Flags().Lookup("input"))
	viper.BindPFlag("allocators.groups-dir", allocatorsCmd.Flags().Lookup("groups-dir"))
	viper.BindPFlag("allocators.output-dir", allocatorsCmd.Flags().Lookup("output-dir"))
	rootCmd.AddCommand(allocatorsCmd)
}

func runAllocators(_ *cobra.Command, _ []string) error {
	input := viper.GetString("allocators.input")
	groupsDir := viper.GetString("allocators.groups-dir")
	outDir := viper.GetString("allocators.output-dir")

	f, err := os.Open(input)
	if err != nil {
		return err
	}
	rows, skipped, err := measure.ReadMeasurements(f)
	f.Close()
	if err != nil {
		return err
	}
	if skipped > 0 {
		logrus.Warnf("skipped %d malformed rows in %s", skipped, input)
	}

	files, err := experiment.LoadGroupFiles(groupsDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no group files in %s", groupsDir)
	}
	logrus.Infof("loaded %d measurement rows, %d group files", len(rows), len(files))

	members := make(map[string]string)
	labels := make(map[string]string)
	for _, gf := range files {
		labels[gf.Letter] = gf.Name
		for _, nick := range gf.Relays {
			members[nick] = gf.Letter
		}
	}
	labelFor := func(letter string) string {
		if name := labels[letter]; name != "" {
			return name
		}
		return "Group " + letter
	}

	rows = experiment.ApplyCutoffs(rows, files)
	series := analyze.GroupSeries(rows, func(m measure.Measurement) string {
		return members[m.Nickname]
	})
	if len(series) == 0 {
		return fmt.Errorf("no measurements matched the group files")
	}
	summaries := analyze.SummarizeAll(series)

	groups := make(map[string]experiment.GroupMeta, len(labels))
	for letter, name := range labels {
		groups[letter] = experiment.GroupMeta{Name: name}
	}
	control := experiment.ControlLetter(groups)

	letters := make([]string, 0, len(series))
	for _, s := range series {
		letters = append(letters, s.Group)
	}
	values := make(map[string][]float64, len(series))
	for nick, gb := range analyze.LatestPerRelay(rows, "") {
		if letter := members[nick]; letter != "" {
			values[letter] = append(values[letter], gb)
		}
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	charts := []struct {
		name   string
		render func(string) error
	}{
		{"memory_by_group.png", func(p string) error {
			return chart.GroupTimeSeries(p, "Memory by group", series, nil, labelFor)
		}},
		{"group_comparison.png", func(p string) error {
			return chart.GroupComparisonBars(p, "Latest average by group", summaries, control, labelFor)
		}},
		{"group_distribution.png", func(p string) error {
			return chart.DistributionBox(p, "Per-relay distribution", letters, values, labelFor)
		}},
	}
	for _, c := range charts {
		path := filepath.Join(outDir, c.name)
		if err := c.render(path); err != nil {
			return err
		}
		logrus.Infof("wrote %s", path)
	}

	fmt.Println()
	if err := report.AllocatorSummary(os.Stdout, summaries, control, labelFor); err != nil {
		return err
	}
	fmt.Println()
	return report.DistributionSummary(os.Stdout, letters, values, labelFor)
}

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
	"github.com/torutils/relaycharts/measure"
	"github.com/torutils/relaycharts/onionoo"
	"github.com/torutils/relaycharts/report"
)

var bandwidthCmd = &cobra.Command{
	Use:   "bandwidth",
	Short: "Collect relay bandwidth from the metrics API",
	Long: `bandwidth looks up the experiment's relays on the metrics API,
appends snapshot and/or write-history rows to the experiment's
bandwidth CSV, renders bandwidth charts and prints a per-group
summary.`,
	RunE: runBandwidth,
}

func init() {
	bandwidthCmd.Flags().String("dir", ".", "experiment directory")
	bandwidthCmd.Flags().String("base-url", onionoo.DefaultBaseURL, "metrics API base URL")
	bandwidthCmd.Flags().Bool("history", false, "collect write history instead of snapshots")
	bandwidthCmd.Flags().Bool("both", false, "collect snapshots and write history")
	viper.BindPFlag("bandwidth.dir", bandwidthCmd.Flags().Lookup("dir"))
	viper.BindPFlag("bandwidth.base-url", bandwidthCmd.Flags().Lookup("base-url"))
	viper.BindPFlag("bandwidth.history", bandwidthCmd.Flags().Lookup("history"))
	viper.BindPFlag("bandwidth.both", bandwidthCmd.Flags().Lookup("both"))
	rootCmd.AddCommand(bandwidthCmd)
}

func runBandwidth(cmd *cobra.Command, _ []string) error {
	dir := viper.GetString("bandwidth.dir")
	wantHistory := viper.GetBool("bandwidth.history") || viper.GetBool("bandwidth.both")
	wantSnapshot := !viper.GetBool("bandwidth.history") || viper.GetBool("bandwidth.both")

	exp, err := experiment.Load(dir)
	if err != nil {
		return err
	}
	if len(exp.Relays) == 0 {
		return fmt.Errorf("experiment %s has no relay_config.csv", exp.Meta.ID)
	}

	var fingerprints []string
	nicknames := make(map[string]string)
	for _, rc := range exp.Relays {
		if rc.Fingerprint == "" {
			continue
		}
		fingerprints = append(fingerprints, rc.Fingerprint)
		nicknames[rc.Fingerprint] = rc.Nickname
	}
	if len(fingerprints) == 0 {
		return fmt.Errorf("experiment %s has no relay fingerprints", exp.Meta.ID)
	}

	client := onionoo.NewClient()
	client.BaseURL = viper.GetString("bandwidth.base-url")
	ctx := cmd.Context()
	csvPath := filepath.Join(dir, experiment.BandwidthFile)

	if wantSnapshot {
		relays, err := client.Details(ctx, fingerprints)
		if err != nil {
			return err
		}
		rows := onionoo.SnapshotRows(relays, time.Now().UTC().Truncate(time.Second), exp.GroupFor)
		if err := measure.AppendBandwidth(csvPath, rows); err != nil {
			return err
		}
		logrus.Infof("appended %d snapshot rows to %s", len(rows), csvPath)
	}

	if wantHistory {
		total := 0
		for _, fp := range fingerprints {
			points, err := client.WriteHistory(ctx, fp)
			if err != nil {
				return err
			}
			if len(points) == 0 {
				logrus.Debugf("no write history for %s", fp)
				continue
			}
			nick := nicknames[fp]
			rows := onionoo.HistoryRows(fp, nick, exp.GroupFor(nick), points)
			if err := measure.AppendBandwidth(csvPath, rows); err != nil {
				return err
			}
			total += len(rows)
		}
		logrus.Infof("appended %d history rows to %s", total, csvPath)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	all, _, err := measure.ReadBandwidth(f)
	f.Close()
	if err != nil {
		return err
	}

	kind := measure.BandwidthSnapshot
	if wantHistory && !wantSnapshot {
		kind = measure.BandwidthHistory
	}
	control := exp.ControlLetter()

	averages := analyze.GroupBandwidthAverages(all, kind)
	if len(averages) > 0 {
		if err := chart.BandwidthBars(filepath.Join(dir, "bandwidth_by_group.png"),
			"Bandwidth by group", averages, control, exp.GroupLabel); err != nil {
			return err
		}
	}
	if series := analyze.GroupBandwidthSeries(all, measure.BandwidthHistory); len(series) > 0 {
		if err := chart.BandwidthTimeSeries(filepath.Join(dir, "bandwidth_timeseries.png"),
			"Write bandwidth by group", series, exp.GroupLabel); err != nil {
			return err
		}
	}

	fmt.Println()
	return report.BandwidthSummary(os.Stdout, averages, control, exp.GroupLabel)
}

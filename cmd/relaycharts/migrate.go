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
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate a legacy day-column data.csv to an experiment directory",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().String("input", "data.csv", "legacy data.csv")
	migrateCmd.Flags().String("output-dir", "migrated", "output experiment directory")
	migrateCmd.Flags().String("start", "", "experiment start date (YYYY-MM-DD, required)")
	migrateCmd.Flags().String("server", "", "server name recorded in migrated rows")
	migrateCmd.Flags().String("id", "", "experiment id (default exp-<start>)")
	viper.BindPFlag("migrate.input", migrateCmd.Flags().Lookup("input"))
	viper.BindPFlag("migrate.output-dir", migrateCmd.Flags().Lookup("output-dir"))
	viper.BindPFlag("migrate.start", migrateCmd.Flags().Lookup("start"))
	viper.BindPFlag("migrate.server", migrateCmd.Flags().Lookup("server"))
	viper.BindPFlag("migrate.id", migrateCmd.Flags().Lookup("id"))
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(_ *cobra.Command, _ []string) error {
	startText := viper.GetString("migrate.start")
	if startText == "" {
		return fmt.Errorf("--start is required")
	}
	start, err := time.Parse("2006-01-02", startText)
	if err != nil {
		return fmt.Errorf("parse --start: %w", err)
	}

	id := viper.GetString("migrate.id")
	if id == "" {
		id = experiment.DefaultID(start)
	}

	input := viper.GetString("migrate.input")
	outDir := viper.GetString("migrate.output-dir")

	n, err := experiment.MigrateDir(input, outDir, id, viper.GetString("migrate.server"), start)
	if err != nil {
		return err
	}
	logrus.Infof("migrated %d rows into %s as %s", n, outDir, id)

	chartPath := filepath.Join(outDir, "legacy_day_series.png")
	if err := renderLegacyChart(input, chartPath, id); err != nil {
		return err
	}
	logrus.Infof("wrote %s", chartPath)
	return nil
}

// renderLegacyChart charts the legacy table's per-group day averages, the
// view the day-column tooling produced before the migration to timestamps.
func renderLegacyChart(input, path, title string) error {
	f, err := os.Open(input)
	if err != nil {
		return err
	}
	table, err := measure.ReadLegacy(f)
	f.Close()
	if err != nil {
		return err
	}

	labelFor := func(letter string) string {
		if g, ok := table.Groups[letter]; ok && g.Name != "" {
			return g.Name
		}
		return "Group " + letter
	}
	return chart.LegacyDaySeries(path, title, analyze.LegacyGroupSeries(table), labelFor)
}

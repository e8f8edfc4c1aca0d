package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

var legacyCSV = `# A,22gz,jemalloc,0,2GB
# A,23gz,jemalloc,0,2GB
# B,ctrl1,Control (default),default,default

group,relay,day0,day1,day2
A,22gz,1.0,2.0,3.0
A,23gz,1.0,,3.0
B,ctrl1,2.0,2.0,2.0
`

func checkPNGFile(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Errorf("%s: not a PNG file", path)
	}
}

func migrateFixture(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	input := filepath.Join(tmp, "data.csv")
	if err := os.WriteFile(input, []byte(legacyCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(tmp, "migrated")

	viper.Set("migrate.input", input)
	viper.Set("migrate.output-dir", outDir)
	viper.Set("migrate.start", "2025-09-09")
	viper.Set("migrate.server", "co")
	viper.Set("migrate.id", "")
	if err := runMigrate(nil, nil); err != nil {
		t.Fatalf("runMigrate failed: %v", err)
	}
	return outDir
}

func TestMigrateWritesDaySeriesChart(t *testing.T) {
	outDir := migrateFixture(t)

	for _, name := range []string{"memory_measurements.csv", "experiment.json", "relay_config.csv"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	checkPNGFile(t, filepath.Join(outDir, "legacy_day_series.png"))
}

func TestReportRendersFleetUsage(t *testing.T) {
	outDir := migrateFixture(t)

	viper.Set("report.dir", outDir)
	viper.Set("report.charts-only", true)
	if err := runReport(nil, nil); err != nil {
		t.Fatalf("runReport failed: %v", err)
	}

	// Migrated files carry aggregate rows, so the fleet chart renders
	// alongside the three per-group charts.
	for _, name := range []string{
		"memory_by_group.png",
		"group_comparison.png",
		"group_distribution.png",
		"fleet_usage.png",
	} {
		checkPNGFile(t, filepath.Join(outDir, name))
	}
}

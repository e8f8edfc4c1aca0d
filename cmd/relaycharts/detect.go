package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/torutils/relaycharts/measure"
)

var detectCmd = &cobra.Command{
	Use:   "detect <file.csv>...",
	Short: "Print the detected schema of measurement CSVs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(_ *cobra.Command, paths []string) error {
	for _, path := range paths {
		format, err := measure.DetectFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Printf("%s: %s\n", path, format)
	}
	return nil
}

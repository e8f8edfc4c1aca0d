// Command relaycharts generates charts and reports from relay fleet
// memory and bandwidth measurements.
package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "relaycharts",
	Short: "Charts and reports for relay memory experiments",
	Long: `relaycharts turns CSV-logged memory and bandwidth measurements of a
relay fleet into charts and markdown reports, comparing experiment
groups against a control group.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	cobra.OnInitialize(func() {
		if viper.GetBool("verbose") {
			logrus.SetLevel(logrus.DebugLevel)
		}
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

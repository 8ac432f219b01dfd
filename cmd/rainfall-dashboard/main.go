package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/i474232898/rainfall-dashboard/internal/logger"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rainfall-dashboard",
	Short: "Rainfall readings of the AEMET station network",
	Long: `rainfall-dashboard serves rainfall readings of AEMET weather stations,
reconciling the local store with the live AEMET feeds, and harvests the
recent feed into the store on a schedule.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var configDir string

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory holding the .env file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		l, logErr := logger.New(&logger.Config{Level: "debug", Format: "console"})
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

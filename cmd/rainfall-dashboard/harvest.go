package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Import the station inventory and recent readings once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c, err := setup(ctx)
		if err != nil {
			return err
		}
		defer c.close()

		sum, err := c.newHarvester().Run(ctx)
		if err != nil {
			return err
		}
		c.log.Info("harvest done",
			zap.String("run_id", sum.RunID),
			zap.Int("saved", sum.Saved),
			zap.Int("failed", sum.Failed),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(harvestCmd)
}

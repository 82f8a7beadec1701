// File: cmd/schedule.go
package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// scheduleCmd keeps the process resident, rescanning on an interval. The
// first scan records a baseline so only assignments posted afterwards get
// processed.
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Watch for new assignments on an interval and process them as they appear",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := buildApplication(ctx, appCfg)
		if err != nil {
			return err
		}
		defer app.close()

		if err := app.wf.Schedule(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

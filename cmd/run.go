// File: cmd/run.go
package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// runCmd executes a single pass: scan the to-do list, draft a submission for
// every pending assignment, and deliver each one.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every pending assignment once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := buildApplication(ctx, appCfg)
		if err != nil {
			return err
		}
		defer app.close()

		return app.wf.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

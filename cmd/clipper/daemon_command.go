package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipper/internal/daemonrun"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the clipper ingest daemon in the foreground",
		Long: `Daemon runs the ingest worker pool in the foreground until interrupted.
Workers receive delivery events from the transport, admit them through the
job ledger, and drive each admitted job to a terminal state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: logLevel})
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	return cmd
}

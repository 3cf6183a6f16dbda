package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"clipper/internal/preflight"
	"clipper/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show environment checks, daemon state, and job counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			runCtx := cmd.Context()

			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, result := range preflight.RunAll(runCtx, cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			for _, status := range preflight.CheckSystemDeps(runCtx, cfg) {
				kind := statusOK
				message := status.Detail
				if !status.Available {
					kind = statusError
					if status.Optional {
						kind = statusWarn
					}
				} else if message == "" {
					message = status.Command
				}
				fmt.Fprintln(out, renderStatusLine(status.Name, kind, message, colorize))
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			pid, running := daemonPID(cfg.Paths.DataDir)
			if running {
				fmt.Fprintln(out, renderStatusLine("Process", statusOK, fmt.Sprintf("running (pid %d)", pid), colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Process", statusInfo, "not running", colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Database", statusInfo, cfg.DatabasePath(), colorize))

			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			stats, err := st.Stats(runCtx)
			if err != nil {
				return fmt.Errorf("read job stats: %w", err)
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Jobs", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Total", statusInfo, strconv.Itoa(stats.Total), colorize))
			fmt.Fprintln(out, renderStatusLine("Processing", statusInfo, strconv.Itoa(stats.Processing), colorize))
			fmt.Fprintln(out, renderStatusLine("Done", statusOK, strconv.Itoa(stats.Done), colorize))
			failedKind := statusOK
			if stats.Failed > 0 {
				failedKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Failed", failedKind, strconv.Itoa(stats.Failed), colorize))
			return nil
		},
	}
}

// daemonPID reads the daemon pid file and reports whether that process is
// still alive. A stale pid file counts as not running.
func daemonPID(dataDir string) (int, bool) {
	raw, err := os.ReadFile(filepath.Join(dataDir, "clipperd.pid"))
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return 0, false
	}
	return pid, true
}

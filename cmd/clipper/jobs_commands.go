package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipper/internal/logging"
	"clipper/internal/services/llm"
	"clipper/internal/store"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and retry ingest ledger jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsStatsCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger jobs, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			var statuses []store.JobStatus
			if trimmed := strings.TrimSpace(statusFlag); trimmed != "" {
				status, ok := store.ParseJobStatus(trimmed)
				if !ok {
					return fmt.Errorf("unknown job status %q (expected processing, done, or failed)", trimmed)
				}
				statuses = append(statuses, status)
			}

			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			jobs, err := st.ListJobs(cmd.Context(), statuses...)
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs recorded")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					job.VideoUID,
					string(job.Status),
					shortEtag(job.Etag),
					fmt.Sprintf("%d", job.RetryCount),
					formatJobTime(job.FinishedAt),
					truncate(job.ErrorMessage, 60),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Video", "Status", "Etag", "Retries", "Finished", "Error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&statusFlag, "status", "s", "", "Filter by job status (processing, done, failed)")
	return cmd
}

func newJobsStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show ledger job counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("read job stats: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Total", "Processing", "Done", "Failed"},
				[][]string{{
					fmt.Sprintf("%d", stats.Total),
					fmt.Sprintf("%d", stats.Processing),
					fmt.Sprintf("%d", stats.Done),
					fmt.Sprintf("%d", stats.Failed),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Re-run all failed jobs through the ingest pipeline",
		Long: `Retry republishes every failed ledger job as a fresh delivery and
processes it in this process. Failed jobs are re-admittable, so the ledger
flips each one back to processing before the pipeline runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})
			if err != nil {
				return fmt.Errorf("setup logging: %w", err)
			}

			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			runCtx := cmd.Context()
			failed, err := st.ListJobs(runCtx, store.JobFailed)
			if err != nil {
				return fmt.Errorf("list failed jobs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(failed) == 0 {
				fmt.Fprintln(out, "No failed jobs to retry")
				return nil
			}

			llmClient := llm.NewClient(llm.Config{
				APIKey:         cfg.LLM.APIKey,
				BaseURL:        cfg.LLM.BaseURL,
				Model:          cfg.LLM.Model,
				Referer:        cfg.LLM.Referer,
				Title:          cfg.LLM.Title,
				TimeoutSeconds: cfg.LLM.TimeoutSeconds,
			})
			consumer := buildConsumer(cfg, st, llmClient, logger)

			stillFailing := 0
			for _, job := range failed {
				delivery := newRetryDelivery(job)
				if err := consumer.Consume(runCtx, delivery); err != nil {
					stillFailing++
					fmt.Fprintf(out, "retry %s failed: %v\n", job.VideoUID, err)
					continue
				}
				fmt.Fprintf(out, "retried %s\n", job.VideoUID)
			}
			if stillFailing > 0 {
				return fmt.Errorf("%d of %d jobs failed again", stillFailing, len(failed))
			}
			fmt.Fprintf(out, "Retried %d jobs\n", len(failed))
			return nil
		},
	}
	return cmd
}

func shortEtag(etag string) string {
	if len(etag) > 12 {
		return etag[:12]
	}
	return etag
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max-1] + "…"
}

func formatJobTime(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return value.Local().Format("2006-01-02 15:04:05")
}

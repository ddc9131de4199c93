package main

import (
	"context"
	"fmt"
	"time"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"

	"github.com/johnquangdev/call-coach/internal/app"
	"github.com/johnquangdev/call-coach/internal/infrastructure/database"
	"github.com/johnquangdev/call-coach/pkg/isoweek"
)

func enrichCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Pull recent calls from the CRM for every active SDR",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				res, err := c.Pipeline.Enrich(ctx, days)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "lookback window in days (0 uses ENRICH_LOOKBACK_DAYS)")
	return cmd
}

func transcribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe",
		Short: "Transcribe a batch of recorded calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				res, err := c.Pipeline.Transcribe(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Score a batch of transcribed calls with the LLM",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				res, err := c.Pipeline.Score(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func aggregateCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Write daily stats and focus (and the weekly summary on Sundays)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var day time.Time
			if date != "" {
				d, err := time.Parse(time.DateOnly, date)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
				day = d
			}
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				res, err := c.Pipeline.Aggregate(ctx, day)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to aggregate, YYYY-MM-DD (default yesterday)")
	return cmd
}

func runCmd() *cobra.Command {
	var trigger string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every stage in order and record the run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				res, err := c.Pipeline.RunPipeline(ctx, trigger)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				if !res.AllSucceeded {
					return fmt.Errorf("pipeline run %s finished with failed stages", res.RunID)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&trigger, "trigger", "cli", "trigger label stored with the run")
	return cmd
}

func repairCmd() *cobra.Command {
	var year, week int
	cmd := &cobra.Command{
		Use:   "repair-breakdown",
		Short: "Backfill missing per-area breakdowns for an ISO week",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := isoweek.Of(time.Now().UTC()).Previous()
			if cmd.Flags().Changed("year") {
				w.Year = year
			}
			if cmd.Flags().Changed("week") {
				w.Week = week
			}
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				res, err := c.Pipeline.RepairBreakdowns(ctx, w.Year, w.Week)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "ISO year (default: last complete week)")
	cmd.Flags().IntVar(&week, "week", 0, "ISO week number (default: last complete week)")
	return cmd
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent orchestrated runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				runs, err := c.Pipeline.RecentRuns(ctx, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), runs)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list")
	return cmd
}

func migrateCmd() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				direction := migrate.Up
				if down {
					direction = migrate.Down
				}
				n, err := database.Migrate(c.DB, direction, c.Logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✅ Applied %d migration(s)\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back instead of applying")
	return cmd
}

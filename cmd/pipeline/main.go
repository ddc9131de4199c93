// Command pipeline runs the call-coaching stages from the command line, for
// backfills and for schedulers that prefer exec over HTTP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/johnquangdev/call-coach/internal/app"
	"github.com/johnquangdev/call-coach/pkg/config"
	pkglogger "github.com/johnquangdev/call-coach/pkg/logger"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "pipeline",
		Short:         "Call coaching pipeline: enrich, transcribe, score, aggregate",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(enrichCmd())
	rootCmd.AddCommand(transcribeCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(aggregateCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(repairCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(migrateCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withContainer loads config, builds the container and closes it after fn
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *app.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := pkglogger.New(cfg.Server.Environment)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	c, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize dependencies", zap.Error(err))
		return err
	}
	defer c.Close()

	return fn(cmd.Context(), c)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/plustik/kasten/pkg/gc"
	"github.com/spf13/cobra"
)

var gcFlags struct {
	dryRun    bool
	batchSize int
	every     time.Duration
}

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove orphaned permission records and expired sessions",
	Long: `Remove permission records whose file or directory no longer exists and
sessions older than sessions.max_age.

With --every the collector keeps running and repeats the pass at that
interval until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctrl, err := app.controller()
		if err != nil {
			return err
		}

		collector := gc.NewCollector(app.db, ctrl, gc.Config{
			Enabled:   gcFlags.every > 0,
			Interval:  gcFlags.every,
			BatchSize: gcFlags.batchSize,
			DryRun:    gcFlags.dryRun,
		})
		stats, err := collector.RunNow(cmd.Context())
		if err != nil {
			return err
		}

		if gcFlags.dryRun {
			cmd.Printf("Would remove %d orphaned permission records\n", stats.OrphanedCount)
		} else {
			cmd.Printf("Removed %d orphaned permission records and %d expired sessions\n",
				stats.DeletedCount, stats.SessionsPruned)
		}

		if gcFlags.every <= 0 {
			return nil
		}
		return runUntilInterrupted(cmd.Context(), collector)
	},
}

// runUntilInterrupted keeps the collector's background loop running until
// SIGINT or SIGTERM.
func runUntilInterrupted(ctx context.Context, collector *gc.Collector) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector.Start()
	<-ctx.Done()

	shutdown, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return collector.Stop(shutdown)
}

func init() {
	gcCmd.Flags().BoolVar(&gcFlags.dryRun, "dry-run", false, "Only report what would be removed")
	gcCmd.Flags().IntVar(&gcFlags.batchSize, "batch-size", 500, "Permission records deleted per transaction")
	gcCmd.Flags().DurationVar(&gcFlags.every, "every", 0, "Keep running and collect at this interval")
}

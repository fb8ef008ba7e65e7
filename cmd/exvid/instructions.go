package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vmunix/exvid/internal/instructions"
	"github.com/vmunix/exvid/pkg/catalog"
)

var instructionsCmd = &cobra.Command{
	Use:   "instructions [listing-url]",
	Short: "Extract exercise instructions and metadata into a CSV",
	Long: `Visits each exercise page once and records its step-by-step
instructions plus difficulty, force, grips and mechanic. Rows are flushed as
they are written and already-processed pages are skipped, so the command can
be interrupted and resumed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInstructions,
}

func init() {
	rootCmd.AddCommand(instructionsCmd)
	addListingFlags(instructionsCmd)
	f := instructionsCmd.Flags()
	f.String("output", "", "Instructions CSV (default: exercise_instructions.csv)")
	f.String("user-agent", "", "User-Agent header")
	f.Float64("rate-limit", instructions.DefaultRateLimit.Seconds(), "Seconds to pause between pages")
	f.Bool("progress", true, "Show a progress bar")
}

func runInstructions(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	path := cfg.State.Instructions
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		path = out
	}
	if path == "" {
		path = instructions.DefaultFile
	}

	entries, err := readCatalog(ctx, cmd, args, cfg, logger)
	if err != nil {
		return err
	}
	exercises := catalog.Consolidate(entries)

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	secs, _ := cmd.Flags().GetFloat64("rate-limit")
	opts := []instructions.Option{instructions.WithRateLimit(time.Duration(secs * float64(time.Second)))}
	if progress, _ := cmd.Flags().GetBool("progress"); progress {
		opts = append(opts, instructions.WithProgress(os.Stderr))
	}

	stats, err := instructions.New(a.pages, logger, opts...).Run(ctx, exercises, path, 0)
	if err != nil {
		return interrupted(ctx, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Instructions: %d processed, %d already done, %d failed (%d exercises) -> %s\n",
		stats.Processed, stats.Skipped, stats.Failed, stats.Total, path)
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vmunix/exvid/internal/ledger"
	"github.com/vmunix/exvid/internal/pipeline"
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Retry targets from the failure ledger",
	Long: `Re-drives every row of the failure ledger with the expanded slug rules
and both media folders. Parse is tried before guessing unless --retry-method
says otherwise. Targets that have since succeeded are skipped; new outcomes are
appended and existing rows are left untouched.`,
	Args: cobra.NoArgs,
	RunE: runRetry,
}

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Download every video embedded in failed exercise pages",
	Long: `Fetches each page named in the failure ledger once and downloads every
video it embeds, inferring angle and gender from the media file name.`,
	Args: cobra.NoArgs,
	RunE: runHarvest,
}

func init() {
	rootCmd.AddCommand(retryCmd, harvestCmd)
	for _, c := range []*cobra.Command{retryCmd, harvestCmd} {
		f := c.Flags()
		f.String("from", "", "Ledger CSV to read (default: failures.csv in the log dir)")
		f.StringP("output-dir", "o", "", "Directory for downloaded videos")
		f.StringSlice("angles", nil, "Camera angles, e.g. front,side")
		f.String("user-agent", "", "User-Agent header")
		f.Bool("skip-existing", false, "Skip targets whose file already exists")
		f.Bool("dry-run", false, "Resolve only; download and record nothing")
		f.Bool("progress", false, "Show a byte progress bar per download")
		f.Float64("rate-limit", 0, "Seconds to pause between exercise pages")
	}
	retryCmd.Flags().StringP("retry-method", "m", "", "Retry method: parse, guess or both")
	retryCmd.Flags().StringSlice("middle-tokens", nil, "Extra tokens tried between equipment and slug")
	retryCmd.Flags().Int("max-workers", 0, "Concurrent probes per target")
}

// readLedgerRows loads the rows named by --from.
func readLedgerRows(cmd *cobra.Command, logDir string) ([]ledger.Record, error) {
	path, _ := cmd.Flags().GetString("from")
	if path == "" {
		path = filepath.Join(logDir, ledger.FailureFile)
	}
	records, err := ledger.ReadRecords(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &exitError{code: 1, msg: fmt.Sprintf("No ledger at %s; nothing to do.", path)}
		}
		return nil, err
	}
	return records, nil
}

func runRetry(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	records, err := readLedgerRows(cmd, cfg.State.LogDir)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.pipeline(pipeline.StrategyAuto, dryRun, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	logger.Info("retrying failures", "rows", len(records), "method", cfg.Resolve.RetryMethod)
	sum, err := a.run(ctx, cmd.OutOrStdout(), func(ctx context.Context) (pipeline.Summary, error) {
		return p.Retry(ctx, records)
	})
	if err != nil {
		return interrupted(ctx, err)
	}
	return finish(cmd.OutOrStdout(), sum)
}

func runHarvest(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	records, err := readLedgerRows(cmd, cfg.State.LogDir)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.pipeline(pipeline.StrategyParse, dryRun, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	sum, err := a.run(ctx, cmd.OutOrStdout(), func(ctx context.Context) (pipeline.Summary, error) {
		return p.Harvest(ctx, records)
	})
	if err != nil {
		return interrupted(ctx, err)
	}
	return finish(cmd.OutOrStdout(), sum)
}

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vmunix/exvid/internal/audit"
	"github.com/vmunix/exvid/internal/instructions"
)

var missingCmd = &cobra.Command{
	Use:   "missing [listing-url]",
	Short: "Report catalog videos and instructions that are not on disk",
	Long: `Checks every expected video file (exercise x gender x angle) in the
output directory and every exercise in the instructions table. Missing
items are written to missing_videos.csv and missing_instructions.csv in the
log directory. Files that look like a misnamed copy of a missing video are
listed separately.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMissing,
}

func init() {
	rootCmd.AddCommand(missingCmd)
	addListingFlags(missingCmd)
	f := missingCmd.Flags()
	f.StringP("output-dir", "o", "", "Video directory to check")
	f.StringSlice("angles", nil, "Camera angles, e.g. front,side")
	f.String("instructions", "", "Instructions CSV to check")
	f.Bool("no-near-misses", false, "Skip fuzzy matching of misnamed files")
}

func runMissing(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if f := cmd.Flags().Lookup("instructions"); f.Changed {
		cfg.State.Instructions = f.Value.String()
	}
	if cfg.State.Instructions == "" {
		cfg.State.Instructions = instructions.DefaultFile
	}

	entries, err := readCatalog(ctx, cmd, args, cfg, logger)
	if err != nil {
		return err
	}

	noNear, _ := cmd.Flags().GetBool("no-near-misses")
	report, err := audit.New(logger).Run(entries, audit.Options{
		VideoDir:        cfg.Download.OutputDir,
		InstructionsCSV: cfg.State.Instructions,
		Angles:          cfg.Media.Angles,
		NearMisses:      !noNear,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	report.Print(out)

	videosPath := filepath.Join(cfg.State.LogDir, audit.MissingVideosFile)
	if err := report.WriteMissingVideos(videosPath); err != nil {
		return err
	}
	instrPath := filepath.Join(cfg.State.LogDir, audit.MissingInstructionsFile)
	if err := report.WriteMissingInstructions(instrPath); err != nil {
		return err
	}
	if len(report.MissingVideos) > 0 {
		fmt.Fprintf(out, "\nMissing videos written to %s\n", videosPath)
	}
	if len(report.MissingInstructions) > 0 {
		fmt.Fprintf(out, "Missing instructions written to %s\n", instrPath)
	}
	return nil
}

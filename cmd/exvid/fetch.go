package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vmunix/exvid/internal/pipeline"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [listing-url]",
	Short: "Resolve and download videos for every catalog entry",
	Long: `Reads the exercise listing, resolves one video per exercise, gender and
angle, and downloads it. Targets already in the success ledger are skipped,
so an interrupted run can simply be started again.

Methods:
  guess       probe generated media URLs (alias guess-mp4)
  parse       read video URLs from each exercise page
  auto        guess, then parse (default)
  direct-mp4  download the first video of each page, angle-less
  yt-dlp      hand each page to yt-dlp`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	addListingFlags(fetchCmd)
	f := fetchCmd.Flags()
	f.StringP("output-dir", "o", "", "Directory for downloaded videos")
	f.StringP("method", "m", "", "Resolution method: guess, parse, auto, direct-mp4, yt-dlp")
	f.StringSlice("angles", nil, "Camera angles, e.g. front,side")
	f.StringSlice("middle-tokens", nil, "Extra tokens tried between equipment and slug")
	f.StringSlice("templates", nil, "Media path templates: branded, plain or a path with {name}")
	f.String("origin", "", "Media origin for guessed URLs")
	f.String("user-agent", "", "User-Agent header")
	f.Bool("skip-existing", false, "Skip targets whose file already exists")
	f.Bool("allow-angleless-fallback", false, "Accept a page video without an angle token")
	f.Bool("dry-run", false, "Resolve only; download and record nothing")
	f.Bool("progress", false, "Show a byte progress bar per download")
	f.Int("max-workers", 0, "Concurrent probes per target")
	f.Float64("rate-limit", 0, "Seconds to pause between exercise pages")
	f.String("cookies", "", "yt-dlp cookies.txt file")
	f.String("cookies-from-browser", "", "yt-dlp browser to read cookies from")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	strategy, err := pipeline.ParseStrategy(cfg.Resolve.Method)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	entries, err := readCatalog(ctx, cmd, args, cfg, logger)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.pipeline(strategy, dryRun, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	sum, err := a.run(ctx, cmd.OutOrStdout(), func(ctx context.Context) (pipeline.Summary, error) {
		return p.Run(ctx, entries)
	})
	if err != nil {
		return interrupted(ctx, err)
	}
	return finish(cmd.OutOrStdout(), sum)
}

// interrupted reports a canceled run as a fatal error with a resume hint.
func interrupted(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return &exitError{code: 1, msg: "Interrupted. Run the same command again to resume."}
	}
	return err
}

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/exvid/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configTestCmd = &cobra.Command{
	Use:   "test [path]",
	Short: "Validate configuration file",
	Long:  "Validates exvid.toml syntax, values and environment variable substitution without running anything.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigTest,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a commented default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configTestCmd, configInitCmd)
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	path := configPath
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		p, err := config.Discover()
		if err != nil {
			return err
		}
		path = p
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", path)

	cfg, err := config.Load(path)
	if err != nil {
		var configErr *config.ConfigError
		if errors.As(err, &configErr) {
			printConfigErrors(out, configErr)
			return &exitError{code: 1, msg: "configuration invalid"}
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	printConfigSummary(out, cfg)
	fmt.Fprintln(out, "\nConfiguration valid!")
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.DefaultPath()
	if len(args) > 0 {
		path = args[0]
	}
	force, _ := cmd.Flags().GetBool("force")
	if err := config.WriteDefault(path, force); err != nil {
		if errors.Is(err, config.ErrExists) {
			return &exitError{code: 1, msg: fmt.Sprintf("%s already exists (use --force to overwrite)", path)}
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func printConfigErrors(w io.Writer, e *config.ConfigError) {
	if len(e.Missing) > 0 {
		fmt.Fprintln(w, "Missing environment variables:")
		for _, m := range e.Missing {
			fmt.Fprintf(w, "  - %s\n", m)
		}
		fmt.Fprintln(w)
	}

	if len(e.Errors) > 0 {
		fmt.Fprintln(w, "Validation errors:")
		for _, err := range e.Errors {
			fmt.Fprintf(w, "  - %s\n", err)
		}
		fmt.Fprintln(w)
	}
}

func printConfigSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Configuration Summary:")
	fmt.Fprintf(w, "  Log level:  %s\n", cfg.Log.Level)
	if cfg.Catalog.URL != "" {
		fmt.Fprintf(w, "  Listing:    %s (gender: %s)\n", cfg.Catalog.URL, cfg.Catalog.Gender)
	}
	fmt.Fprintf(w, "  Media:      %s (angles: %s; templates: %s)\n",
		cfg.Media.Origin, strings.Join(cfg.Media.Angles, ", "), strings.Join(cfg.Media.Templates, ", "))
	fmt.Fprintf(w, "  Method:     %s (retry: %s, %d workers)\n", cfg.Resolve.Method, cfg.Resolve.RetryMethod, cfg.Resolve.Workers)
	fmt.Fprintf(w, "  Videos:     %s\n", cfg.Download.OutputDir)
	fmt.Fprintf(w, "  State:      %s (db: %s)\n", cfg.State.LogDir, cfg.State.Database)
	if cfg.Resolve.Method == "yt-dlp" {
		fmt.Fprintf(w, "  yt-dlp:     %s\n", cfg.YTDLP.Binary)
	}
}

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "exvid",
	Short: "Collect exercise demonstration videos",
	Long: `exvid - exercise video collector

Reads an exercise directory listing, resolves the demonstration video of
every exercise, gender and camera angle, and downloads it. Every outcome is
appended to a success or failure ledger so interrupted runs resume where
they stopped and failures can be retried.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// Execute runs the root command and returns the process exit code:
// 0 on success, 1 on a fatal error, 2 when targets failed.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.msg != "" {
			fmt.Fprintln(os.Stderr, ee.msg)
		}
		return ee.code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $EXVID_CONFIG, ./exvid.toml, $XDG_CONFIG_HOME/exvid/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().String("log-dir", "", "Directory for run ledgers and the state database")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("exvid {{.Version}}\n")
}

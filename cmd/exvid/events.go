package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vmunix/exvid/internal/events"
	"github.com/vmunix/exvid/internal/store"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent run events",
	Args:  cobra.NoArgs,
	RunE:  runEventsCmd,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	f := eventsCmd.Flags()
	f.IntP("limit", "n", 20, "Number of events to show")
	f.String("target", "", "Show the history of one target, as page_url#angle")
	f.String("run", "", "Show the events of one run ID")
	f.Bool("json", false, "Output as JSON")
}

func runEventsCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := store.Open(ctx, cfg.State.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	log := events.NewEventLog(db)

	limit, _ := cmd.Flags().GetInt("limit")
	target, _ := cmd.Flags().GetString("target")
	run, _ := cmd.Flags().GetString("run")

	var list []events.RawEvent
	switch {
	case target != "":
		list, err = log.ForEntity(ctx, events.EntityTarget, target)
	case run != "":
		list, err = log.ForEntity(ctx, events.EntityRun, run)
	default:
		list, err = log.Recent(ctx, limit)
	}
	if err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(cmd.OutOrStdout(), list)
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No events")
		return nil
	}

	fmt.Fprintf(out, "Events (%d):\n\n", len(list))
	fmt.Fprintf(out, "  %-10s %-20s %-60s %s\n", "TIME", "TYPE", "ENTITY", "DETAIL")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 110))
	reg := events.DefaultRegistry()
	for _, e := range list {
		entity := e.EntityType + "/" + e.EntityKey
		fmt.Fprintf(out, "  %-10s %-20s %-60s %s\n", formatTimeAgo(e.OccurredAt), e.EventType, entity, eventDetail(reg, e))
	}
	return nil
}

// eventDetail summarizes a persisted event's payload in one short string.
func eventDetail(reg *events.Registry, raw events.RawEvent) string {
	e, err := reg.Decode(raw)
	if err != nil {
		return ""
	}
	switch e := e.(type) {
	case *events.RunStarted:
		return fmt.Sprintf("%s %s, %d targets", e.Mode, e.Strategy, e.Targets)
	case *events.RunFinished:
		return fmt.Sprintf("%d resolved, %d failed, %d skipped", e.Resolved, e.Failed, e.Skipped)
	case *events.TargetResolved:
		return e.Method
	case *events.TargetFailed:
		return e.Method + ": " + e.Reason
	case *events.TargetSkipped:
		return e.Reason
	case *events.DownloadCompleted:
		if e.Skipped {
			return "already present"
		}
		return humanize.Bytes(uint64(e.Bytes))
	}
	return ""
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	ago := time.Since(t)
	switch {
	case ago < time.Minute:
		return "just now"
	case ago < time.Hour:
		return fmt.Sprintf("%dm ago", int(ago.Minutes()))
	case ago < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(ago.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(ago.Hours()/24))
	}
}

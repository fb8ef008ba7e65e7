package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vmunix/exvid/internal/config"
	"github.com/vmunix/exvid/pkg/catalog"
)

// defaultSiteOrigin resolves relative links when the listing has no URL.
const defaultSiteOrigin = "https://musclewiki.com/"

const emptyCatalogMsg = "No video page links found in the listing. Check the URL, --html-file or --stdin-html input."

func addListingFlags(cmd *cobra.Command) {
	cmd.Flags().String("html-file", "", "Read the listing from a saved HTML file")
	cmd.Flags().Bool("stdin-html", false, "Read the listing HTML from stdin")
	cmd.Flags().String("gender", "", "Genders to keep: male, female or both")
	cmd.Flags().Int("limit", 0, "Process at most N catalog entries (0 = all)")
}

// readCatalog loads and extracts the listing named by args or config.
func readCatalog(ctx context.Context, cmd *cobra.Command, args []string, cfg *config.Config, logger *slog.Logger) ([]catalog.Entry, error) {
	src := catalog.ListingSource{
		URL:       cfg.Catalog.URL,
		HTMLFile:  cfg.Catalog.HTMLFile,
		UserAgent: cfg.Media.UserAgent,
		Stdin:     os.Stdin,
	}
	if len(args) > 0 {
		src.URL = args[0]
	}
	if f := cmd.Flags().Lookup("html-file"); f != nil && f.Changed {
		src.HTMLFile = f.Value.String()
	}
	src.UseStdin, _ = cmd.Flags().GetBool("stdin-html")

	filter, err := catalog.ParseGenderFilter(cfg.Catalog.Gender)
	if err != nil {
		return nil, err
	}

	origin := defaultSiteOrigin
	if src.URL != "" {
		if origin, err = catalog.Origin(src.URL); err != nil {
			return nil, err
		}
	}

	html, err := catalog.ReadListing(ctx, src)
	if err != nil {
		if errors.Is(err, catalog.ErrEmptyInput) {
			return nil, &exitError{code: 1, msg: emptyCatalogMsg}
		}
		return nil, fmt.Errorf("read listing: %w", err)
	}

	res, err := catalog.Extract(html, origin, filter)
	if err != nil {
		if errors.Is(err, catalog.ErrEmptyCatalog) {
			return nil, &exitError{code: 1, msg: emptyCatalogMsg}
		}
		return nil, err
	}
	if res.Malformed > 0 {
		logger.Warn("dropped malformed listing links", "count", res.Malformed)
	}

	entries := res.Entries
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	logger.Info("catalog loaded", "entries", len(entries), "gender", filter)
	return entries, nil
}

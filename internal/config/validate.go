package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/vmunix/exvid/internal/pipeline"
	"github.com/vmunix/exvid/pkg/candidate"
	"github.com/vmunix/exvid/pkg/catalog"
)

var retryStrategies = map[pipeline.Strategy]bool{
	pipeline.StrategyParse: true, pipeline.StrategyGuess: true, pipeline.StrategyBoth: true,
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if !validLogLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level: must be one of debug, info, warn, error; got %q", c.Log.Level))
	}

	if c.Catalog.URL != "" && !isHTTPURL(c.Catalog.URL) {
		errs = append(errs, fmt.Sprintf("catalog.url: must be an http(s) URL, got %q", c.Catalog.URL))
	}
	if _, err := catalog.ParseGenderFilter(c.Catalog.Gender); err != nil {
		errs = append(errs, fmt.Sprintf("catalog.gender: %v", err))
	}

	if !isHTTPURL(c.Media.Origin) {
		errs = append(errs, fmt.Sprintf("media.origin: must be an http(s) URL, got %q", c.Media.Origin))
	}
	if len(c.Media.Angles) == 0 {
		errs = append(errs, "media.angles: at least one angle is required")
	}
	for _, a := range c.Media.Angles {
		if strings.TrimSpace(a) == "" || strings.ContainsAny(a, "/ ") {
			errs = append(errs, fmt.Sprintf("media.angles: invalid angle %q", a))
		}
	}
	for _, t := range c.Media.Templates {
		if _, err := candidate.ParseTemplate(t); err != nil {
			errs = append(errs, fmt.Sprintf("media.templates: %v", err))
		}
	}

	s, err := pipeline.ParseStrategy(c.Resolve.Method)
	if err != nil || s == pipeline.StrategyBoth {
		errs = append(errs, fmt.Sprintf("resolve.method: must be one of guess, parse, auto, direct-mp4, yt-dlp; got %q", c.Resolve.Method))
	}
	if rs, err := pipeline.ParseStrategy(c.Resolve.RetryMethod); err != nil || !retryStrategies[rs] {
		errs = append(errs, fmt.Sprintf("resolve.retry_method: must be one of parse, guess, both; got %q", c.Resolve.RetryMethod))
	}
	if c.Resolve.Workers < 1 || c.Resolve.Workers > 100 {
		errs = append(errs, fmt.Sprintf("resolve.workers: must be between 1 and 100, got %d", c.Resolve.Workers))
	}
	if c.Resolve.RateLimit < 0 {
		errs = append(errs, "resolve.rate_limit: must not be negative")
	}

	if c.Download.OutputDir == "" {
		errs = append(errs, "download.output_dir: required")
	}
	if c.Download.Retries < 0 {
		errs = append(errs, "download.retries: must not be negative")
	}

	if c.State.LogDir == "" {
		errs = append(errs, "state.log_dir: required")
	}

	if c.YTDLP.Cookies != "" && c.YTDLP.CookiesFromBrowser != "" {
		errs = append(errs, "ytdlp: cookies and cookies_from_browser are mutually exclusive")
	}

	return errs
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

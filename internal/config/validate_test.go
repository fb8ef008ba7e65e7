package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_Default(t *testing.T) {
	assert.Empty(t, Default().Validate(), "defaults must validate")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"catalog url", func(c *Config) { c.Catalog.URL = "ftp://site.example" }, "catalog.url"},
		{"gender", func(c *Config) { c.Catalog.Gender = "other" }, "catalog.gender"},
		{"origin", func(c *Config) { c.Media.Origin = "media.example" }, "media.origin"},
		{"no angles", func(c *Config) { c.Media.Angles = nil }, "media.angles"},
		{"bad angle", func(c *Config) { c.Media.Angles = []string{"front", "top view"} }, "media.angles"},
		{"template", func(c *Config) { c.Media.Templates = []string{"/videos/x.mp4"} }, "media.templates"},
		{"method", func(c *Config) { c.Resolve.Method = "scrape" }, "resolve.method"},
		{"method both", func(c *Config) { c.Resolve.Method = "both" }, "resolve.method"},
		{"retry method", func(c *Config) { c.Resolve.RetryMethod = "auto" }, "resolve.retry_method"},
		{"workers", func(c *Config) { c.Resolve.Workers = 0 }, "resolve.workers"},
		{"rate limit", func(c *Config) { c.Resolve.RateLimit = -1 }, "resolve.rate_limit"},
		{"output dir", func(c *Config) { c.Download.OutputDir = "" }, "download.output_dir"},
		{"log dir", func(c *Config) { c.State.LogDir = "" }, "state.log_dir"},
		{"cookies", func(c *Config) {
			c.YTDLP.Cookies = "cookies.txt"
			c.YTDLP.CookiesFromBrowser = "firefox"
		}, "mutually exclusive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			assert.True(t, containsError(errs, tt.want), "expected %q error, got %v", tt.want, errs)
		})
	}
}

func TestValidate_AcceptsAliases(t *testing.T) {
	cfg := Default()
	cfg.Resolve.Method = "guess-mp4"
	cfg.Resolve.RetryMethod = "parse"
	cfg.Media.Templates = []string{"plain", "/cdn/{name}.mp4"}
	assert.Empty(t, cfg.Validate())
}

func containsError(errs []string, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the root configuration structure.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Media    MediaConfig    `toml:"media"`
	Resolve  ResolveConfig  `toml:"resolve"`
	Download DownloadConfig `toml:"download"`
	State    StateConfig    `toml:"state"`
	YTDLP    YTDLPConfig    `toml:"ytdlp"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// CatalogConfig names the listing page and which genders to keep.
type CatalogConfig struct {
	URL      string `toml:"url"`
	HTMLFile string `toml:"html_file"`
	Gender   string `toml:"gender"` // male, female or both
}

type MediaConfig struct {
	Origin    string   `toml:"origin"`
	Angles    []string `toml:"angles"`
	Middles   []string `toml:"middle_tokens"`
	Templates []string `toml:"templates"` // "branded", "plain" or a literal path with {name}
	UserAgent string   `toml:"user_agent"`
}

type ResolveConfig struct {
	Method                 string        `toml:"method"`
	RetryMethod            string        `toml:"retry_method"`
	Workers                int           `toml:"workers"`
	ProbeTimeout           time.Duration `toml:"probe_timeout"`
	PageTimeout            time.Duration `toml:"page_timeout"`
	RateLimit              time.Duration `toml:"rate_limit"`
	AllowAnglelessFallback bool          `toml:"allow_angleless_fallback"`
	PageCacheTTL           time.Duration `toml:"page_cache_ttl"`
}

type DownloadConfig struct {
	OutputDir    string        `toml:"output_dir"`
	SkipExisting bool          `toml:"skip_existing"`
	Timeout      time.Duration `toml:"timeout"`
	Retries      int           `toml:"retries"`
	Progress     bool          `toml:"progress"`
}

// StateConfig locates the run ledger, the SQLite database and the
// instructions table.
type StateConfig struct {
	LogDir         string        `toml:"log_dir"`
	Database       string        `toml:"database"`
	Instructions   string        `toml:"instructions"`
	EventRetention time.Duration `toml:"event_retention"`
}

type YTDLPConfig struct {
	Binary             string `toml:"binary"`
	Format             string `toml:"format"`
	RateLimit          string `toml:"rate_limit"`
	Cookies            string `toml:"cookies"`
	CookiesFromBrowser string `toml:"cookies_from_browser"`
	Retries            int    `toml:"retries"`
	FragmentRetries    int    `toml:"fragment_retries"`
	Fragments          int    `toml:"fragments"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads, substitutes, parses and validates the configuration file.
func Load(path string) (*Config, error) {
	cfg, err := LoadWithoutValidation(path)
	if err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, &ConfigError{Path: path, Errors: errs}
	}
	return cfg, nil
}

// LoadWithoutValidation reads and parses the configuration file without
// validating values. Unresolved environment variables are still an error.
func LoadWithoutValidation(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	loadDotEnv(filepath.Dir(path))

	content, missing := substituteEnvVars(string(data))
	if len(missing) > 0 {
		return nil, &ConfigError{Path: path, Missing: missing}
	}

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// loadDotEnv loads a .env file next to the config, then one in the working
// directory. Variables already set in the environment win.
func loadDotEnv(dir string) {
	for _, p := range []string{filepath.Join(dir, ".env"), ".env"} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Catalog.Gender == "" {
		c.Catalog.Gender = "both"
	}
	if c.Media.Origin == "" {
		c.Media.Origin = "https://media.musclewiki.com"
	}
	if len(c.Media.Angles) == 0 {
		c.Media.Angles = []string{"front", "side"}
	}
	if len(c.Media.Templates) == 0 {
		c.Media.Templates = []string{"branded"}
	}
	if c.Resolve.Method == "" {
		c.Resolve.Method = "auto"
	}
	if c.Resolve.RetryMethod == "" {
		c.Resolve.RetryMethod = "both"
	}
	if c.Resolve.Workers == 0 {
		c.Resolve.Workers = 10
	}
	if c.Resolve.ProbeTimeout == 0 {
		c.Resolve.ProbeTimeout = 5 * time.Second
	}
	if c.Resolve.PageTimeout == 0 {
		c.Resolve.PageTimeout = 30 * time.Second
	}
	if c.Resolve.PageCacheTTL == 0 {
		c.Resolve.PageCacheTTL = 24 * time.Hour
	}
	if c.Download.OutputDir == "" {
		c.Download.OutputDir = "videos"
	}
	if c.Download.Timeout == 0 {
		c.Download.Timeout = 60 * time.Second
	}
	if c.Download.Retries == 0 {
		c.Download.Retries = 3
	}
	if c.State.LogDir == "" {
		c.State.LogDir = "logs"
	}
	if c.State.Database == "" {
		c.State.Database = filepath.Join(c.State.LogDir, "exvid.db")
	}
	if c.State.Instructions == "" {
		c.State.Instructions = "exercise_instructions.csv"
	}
	if c.State.EventRetention == 0 {
		c.State.EventRetention = 30 * 24 * time.Hour
	}
	if c.YTDLP.Binary == "" {
		c.YTDLP.Binary = "yt-dlp"
	}
}

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// substituteEnvVars replaces environment references and returns the names
// (or "NAME: message" for :? references) that could not be resolved.
// Unresolved references are left in place.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		m := envVarPattern.FindStringSubmatch(match)
		name, op, arg := m[1], m[2], m[3]
		value, ok := os.LookupEnv(name)

		switch op {
		case ":-":
			if !ok || value == "" {
				return arg
			}
			return value
		case ":?":
			if !ok || value == "" {
				missing = append(missing, name+": "+strings.TrimSpace(arg))
				return match
			}
			return value
		}
		if !ok {
			missing = append(missing, name)
			return match
		}
		return value
	})
	return out, missing
}

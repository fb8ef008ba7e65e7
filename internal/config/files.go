package config

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// EnvConfig names the environment variable that pins the config file.
const EnvConfig = "EXVID_CONFIG"

//go:embed default_config.toml
var defaultConfig string

// DefaultPath returns $XDG_CONFIG_HOME/exvid/config.toml, with
// ~/.config standing in for an unset XDG_CONFIG_HOME.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "./exvid.toml"
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "exvid", "config.toml")
}

// SearchPaths lists where Discover looks when EXVID_CONFIG is unset,
// highest priority first.
func SearchPaths() []string {
	return []string{"./exvid.toml", DefaultPath()}
}

// Discover returns the config file to load: EXVID_CONFIG when set (it
// must exist), else the first of SearchPaths that exists. ErrNotFound
// is wrapped when nothing is found.
func Discover() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%s=%s: %w", EnvConfig, p, err)
		}
		return p, nil
	}

	paths := SearchPaths()
	if i := slices.IndexFunc(paths, exists); i >= 0 {
		return paths[i], nil
	}
	return "", fmt.Errorf("%w, checked: %s", ErrNotFound, strings.Join(paths, ", "))
}

// WriteDefault writes the commented example config to path. An existing
// file is only replaced when overwrite is set.
func WriteDefault(path string, overwrite bool) error {
	if !overwrite && exists(path) {
		return fmt.Errorf("%s: %w", path, ErrExists)
	}
	return writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, defaultConfig)
		return err
	})
}

// Write serializes the config as TOML to path, replacing any file there.
func (c *Config) Write(path string) error {
	return writeFile(path, func(w io.Writer) error {
		return toml.NewEncoder(w).Encode(c)
	})
}

// writeFile fills a temp file next to path and renames it into place, so
// a failed write never leaves a truncated config behind.
func writeFile(path string, fill func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := fill(tmp); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

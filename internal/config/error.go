package config

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound indicates no config file exists in the search path.
	ErrNotFound = errors.New("config not found")

	// ErrExists indicates WriteDefault would replace an existing file.
	ErrExists = errors.New("config file already exists")
)

// ConfigError collects every problem found while loading one file, so a
// user can fix them in a single pass.
type ConfigError struct {
	Path    string
	Missing []string // unresolved ${VAR} references
	Errors  []string // "section.key: problem"
}

func (e *ConfigError) Error() string {
	if !e.HasErrors() {
		return ""
	}

	var b strings.Builder
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(":\n")
	}
	if len(e.Missing) > 0 {
		b.WriteString("missing environment variables: ")
		b.WriteString(strings.Join(e.Missing, ", "))
		b.WriteByte('\n')
	}
	if len(e.Errors) > 0 {
		b.WriteString("validation failed:")
		for _, msg := range e.Errors {
			b.WriteString("\n  - ")
			b.WriteString(msg)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// HasErrors reports whether anything was collected.
func (e *ConfigError) HasErrors() bool {
	return len(e.Missing)+len(e.Errors) > 0
}

// Package ledger persists run outcomes in append-only CSV files. The success
// ledger is also the resume state: a target with a success row is never
// processed again.
package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// File names inside the log directory.
const (
	SuccessFile = "successes.csv"
	FailureFile = "failures.csv"
)

// Column sets, in file order.
var (
	SuccessColumns = []string{"title", "page_url", "method", "angle", "final_url", "filename", "equipment", "slug"}
	FailureColumns = []string{"title", "page_url", "method", "angle", "reason", "equipment", "slug"}
)

// Key identifies a target in the ledger.
type Key struct {
	PageURL string
	Angle   string
}

// Record is one ledger row. Successes carry FinalURL and Filename, failures
// carry Reason.
type Record struct {
	Title     string
	PageURL   string
	Method    string
	Angle     string
	FinalURL  string
	Filename  string
	Equipment string
	Slug      string
	Reason    Reason
}

// Key returns the resume key of r.
func (r Record) Key() Key {
	return Key{PageURL: r.PageURL, Angle: r.Angle}
}

func (r Record) successRow() []string {
	return []string{r.Title, r.PageURL, r.Method, r.Angle, r.FinalURL, r.Filename, r.Equipment, r.Slug}
}

func (r Record) failureRow() []string {
	return []string{r.Title, r.PageURL, r.Method, r.Angle, string(r.Reason), r.Equipment, r.Slug}
}

// Ledger appends success and failure rows for one log directory.
// It is safe for concurrent use.
type Ledger struct {
	dir    string
	logger *slog.Logger

	mu        sync.Mutex
	successes *Appender
	failures  *Appender
	succeeded map[Key]bool
}

// Open loads the resume set from dir's success ledger. Ledger files are
// created on first write.
func Open(dir string, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{
		dir:       dir,
		logger:    logger,
		succeeded: make(map[Key]bool),
	}

	records, err := ReadRecords(filepath.Join(dir, SuccessFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load success ledger: %w", err)
	}
	for _, r := range records {
		l.succeeded[r.Key()] = true
	}
	logger.Debug("ledger opened", "dir", dir, "successes", len(l.succeeded))
	return l, nil
}

// Dir returns the log directory.
func (l *Ledger) Dir() string {
	return l.dir
}

// Succeeded reports whether k already has a success row.
func (l *Ledger) Succeeded(k Key) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.succeeded[k]
}

// SuccessCount returns the number of distinct successful keys.
func (l *Ledger) SuccessCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.succeeded)
}

// RecordSuccess appends a success row. It returns ErrAlreadyRecorded if the
// key already has one.
func (l *Ledger) RecordSuccess(r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.succeeded[r.Key()] {
		return ErrAlreadyRecorded
	}
	if l.successes == nil {
		a, err := OpenAppender(filepath.Join(l.dir, SuccessFile), SuccessColumns)
		if err != nil {
			return err
		}
		l.successes = a
	}
	if err := l.successes.Append(r.successRow()); err != nil {
		return err
	}
	l.succeeded[r.Key()] = true
	return nil
}

// RecordFailure appends a failure row.
func (l *Ledger) RecordFailure(r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failures == nil {
		a, err := OpenAppender(filepath.Join(l.dir, FailureFile), FailureColumns)
		if err != nil {
			return err
		}
		l.failures = a
	}
	return l.failures.Append(r.failureRow())
}

// Close closes the underlying files.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	if l.successes != nil {
		errs = append(errs, l.successes.Close())
		l.successes = nil
	}
	if l.failures != nil {
		errs = append(errs, l.failures.Close())
		l.failures = nil
	}
	return errors.Join(errs...)
}

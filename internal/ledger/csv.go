package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Appender writes CSV rows durably: each row is flushed and fsynced before
// Append returns.
type Appender struct {
	mu      sync.Mutex
	path    string
	columns []string
	f       *os.File
	w       *csv.Writer
}

// OpenAppender opens path for appending, writing the header only when the
// file is new or empty.
func OpenAppender(path string, columns []string) (*Appender, error) {
	return openTable(path, columns, os.O_APPEND)
}

// Create truncates path and writes the header.
func Create(path string, columns []string) (*Appender, error) {
	return openTable(path, columns, os.O_TRUNC)
}

func openTable(path string, columns []string, mode int) (*Appender, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	a := &Appender{
		path:    path,
		columns: columns,
		f:       f,
		w:       csv.NewWriter(f),
	}
	if info.Size() == 0 {
		if err := a.write(columns); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return a, nil
}

// Path returns the file path.
func (a *Appender) Path() string {
	return a.path
}

// Append writes one row.
func (a *Appender) Append(row []string) error {
	if len(row) != len(a.columns) {
		return fmt.Errorf("%w: got %d fields, want %d", ErrColumnCount, len(row), len(a.columns))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.write(row)
}

func (a *Appender) write(row []string) error {
	if err := a.w.Write(row); err != nil {
		return fmt.Errorf("write %s: %w", a.path, err)
	}
	a.w.Flush()
	if err := a.w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", a.path, err)
	}
	if err := a.f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", a.path, err)
	}
	return nil
}

// Close closes the file.
func (a *Appender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.f.Close()
}

// Rows reads a CSV file with a header row into column-name maps.
// A missing file returns an error wrapping os.ErrNotExist.
func Rows(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}

	var rows []map[string]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadRecords reads a success or failure ledger.
func ReadRecords(path string) ([]Record, error) {
	rows, err := Rows(path)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record{
			Title:     row["title"],
			PageURL:   row["page_url"],
			Method:    row["method"],
			Angle:     row["angle"],
			FinalURL:  row["final_url"],
			Filename:  row["filename"],
			Equipment: row["equipment"],
			Slug:      row["slug"],
			Reason:    Reason(row["reason"]),
		})
	}
	return records, nil
}

// ProcessedURLs returns the values of column in a CSV file. A missing file
// yields an empty set.
func ProcessedURLs(path, column string) (map[string]bool, error) {
	rows, err := Rows(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]bool{}, nil
		}
		return nil, err
	}
	out := make(map[string]bool, len(rows))
	for _, row := range rows {
		if v := row[column]; v != "" {
			out[v] = true
		}
	}
	return out, nil
}

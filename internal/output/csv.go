/*
PURPOSE:
  Writes the leaderboard CSV.

REQUIREMENTS:
  User-specified:
  - Header taken from the first record's field names, in order.
  - latency_s with 4 decimals, memory_mb with 2.
  - Empty input writes nothing and is not an error.

  Implementation-discovered:
  - Parent directory (results/) may not exist yet.
  - Each run overwrites the previous leaderboard.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine
  - Consumes: internal/model.Record

ERROR HANDLING:
  - Returns error on directory creation, file creation or write failure.

USAGE:
  err := output.WriteCSV("results/leaderboard.csv", records)
*/

package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/daryltucker/vlm-bench/internal/model"
)

// CSVWriter handles writing records to a CSV file.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates path (overwriting it) and writes header.
func NewCSVWriter(path string, header []string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, err
	}

	return &CSVWriter{
		file:   f,
		writer: w,
	}, nil
}

// Write writes a single record.
func (cw *CSVWriter) Write(r model.Record) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	fields := r.Fields()
	row := make([]string, len(fields))
	for i, f := range fields {
		row[i] = f.Value
	}
	return cw.writer.Write(row)
}

// Close flushes and closes the underlying file.
func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		cw.file.Close()
		return err
	}
	return cw.file.Close()
}

// Header returns the column names of r.
func Header(r model.Record) []string {
	fields := r.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// WriteCSV writes records to path with a header from records[0].
func WriteCSV(path string, records []model.Record) error {
	if len(records) == 0 {
		Logger.Info("No results to write", "path", path)
		return nil
	}

	cw, err := NewCSVWriter(path, Header(records[0]))
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r); err != nil {
			cw.Close()
			return err
		}
	}
	return cw.Close()
}

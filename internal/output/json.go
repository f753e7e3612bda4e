/*
PURPOSE:
  Writes records to a JSON Lines file (NDJSON), including run detail such
  as the run id and the full classification probabilities.

REQUIREMENTS:
  Implementation-discovered:
  - JSON Lines is append-friendly and easy to post-process.
  - A ".gz" suffix compresses the file (runs over large image sets).

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine
  - Consumes: internal/model.Record
  - Dependencies: github.com/klauspost/compress/gzip

USAGE:
  w, err := output.NewJSONWriter("results/leaderboard.jsonl.gz")
  w.Write(record)
  w.Close()
*/

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/daryltucker/vlm-bench/internal/model"
)

// JSONWriter handles writing records to a JSON Lines file.
type JSONWriter struct {
	file    *os.File
	gz      *gzip.Writer // nil when uncompressed
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter creates a new JSONWriter.
func NewJSONWriter(path string) (*JSONWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	jw := &JSONWriter{file: f}
	var w io.Writer = f
	if strings.HasSuffix(path, ".gz") {
		jw.gz = gzip.NewWriter(f)
		w = jw.gz
	}
	jw.encoder = json.NewEncoder(w)
	return jw, nil
}

// Write writes a single record as a JSON line.
func (jw *JSONWriter) Write(r model.Record) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	return jw.encoder.Encode(r)
}

// Close flushes compression (if any) and closes the underlying file.
func (jw *JSONWriter) Close() error {
	if jw.gz != nil {
		if err := jw.gz.Close(); err != nil {
			jw.file.Close()
			return err
		}
	}
	return jw.file.Close()
}

// WriteJSONL writes all records to path. Empty input writes nothing.
func WriteJSONL(path string, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}
	jw, err := NewJSONWriter(path)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := jw.Write(r); err != nil {
			jw.Close()
			return err
		}
	}
	return jw.Close()
}

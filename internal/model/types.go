/*
PURPOSE:
  Defines the core data structures used throughout VLM Bench.
  These models represent leaderboard records and per-call metrics.

REQUIREMENTS:
  User-specified:
  - Record model name, image, task, result text, latency and peak memory.
  - One record per (image, model) pair.

  Implementation-discovered:
  - CSV header must follow the record's own field order.
  - JSON tags for the detail file (run id, probabilities).

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine, internal/output

ERROR HANDLING:
  - None (pure data structs).

RELATED FILES:
  - internal/output/csv.go
  - internal/output/json.go
*/

package model

import (
	"fmt"
	"time"
)

// Task names as they appear in the leaderboard.
const (
	TaskClassification = "Zero-Shot Classification"
	TaskCaptioning     = "Image Captioning"
	TaskVQA            = "Visual Question Answering"
)

// Metrics is what a single timed inference call costs.
type Metrics struct {
	Latency   time.Duration
	PeakBytes int64 // 0 when no accelerator was involved
}

// LatencySeconds returns the latency in seconds.
func (m Metrics) LatencySeconds() float64 {
	return m.Latency.Seconds()
}

// MemoryMB returns the peak memory in megabytes.
func (m Metrics) MemoryMB() float64 {
	return float64(m.PeakBytes) / 1024 / 1024
}

// Record is one leaderboard row.
type Record struct {
	Model    string  `json:"model"`
	Image    string  `json:"image"`
	Task     string  `json:"task"`
	Result   string  `json:"result"`
	LatencyS float64 `json:"latency_s"`
	MemoryMB float64 `json:"memory_mb"`
	Detail   Detail  `json:"detail"`
}

// Field is a named, already formatted column value.
type Field struct {
	Name  string
	Value string
}

// Fields returns the record's columns in report order.
func (r Record) Fields() []Field {
	return []Field{
		{"model", r.Model},
		{"image", r.Image},
		{"task", r.Task},
		{"result", r.Result},
		{"latency_s", fmt.Sprintf("%.4f", r.LatencyS)},
		{"memory_mb", fmt.Sprintf("%.2f", r.MemoryMB)},
	}
}

// Detail carries run context that only goes to the JSON Lines file.
type Detail struct {
	RunID         string             `json:"run_id"`
	Timestamp     time.Time          `json:"timestamp"`
	URL           string             `json:"url"`
	ModelTag      string             `json:"model_tag"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
}

// NewRecord builds a record from a finished call.
func NewRecord(name, image, task, result string, m Metrics, d Detail) Record {
	return Record{
		Model:    name,
		Image:    image,
		Task:     task,
		Result:   result,
		LatencyS: m.LatencySeconds(),
		MemoryMB: m.MemoryMB(),
		Detail:   d,
	}
}

/*
PURPOSE:
  High-level runner that orchestrates the benchmarking process.
  Loops through Images -> Tasks and collects leaderboard records.

REQUIREMENTS:
  User-specified:
  - Run classification, captioning and VQA on every discovered image.
  - Write the leaderboard once, at the end.

  Implementation-discovered:
  - A missing image only drops that (image, task) record.
  - Auxiliary outputs (JSONL, table, textfile metrics) follow the CSV.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Uses: internal/images, internal/output

ERROR HANDLING:
  - ErrImageNotFound and empty results are skipped (partial-failure tolerant).
  - Any other error aborts the run. Nothing is written on abort.
  - No images, or no records, returns ErrNoInputData after logging.

USAGE:
  err := engine.Run(ctx, cfg)

RELATED FILES:
  - internal/engine/suite.go
  - internal/output/csv.go
*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/daryltucker/vlm-bench/internal/config"
	"github.com/daryltucker/vlm-bench/internal/images"
	"github.com/daryltucker/vlm-bench/internal/model"
	"github.com/daryltucker/vlm-bench/internal/output"
)

// Re-exported so callers only need this package.
var (
	ErrNoInputData   = images.ErrNoInputData
	ErrImageNotFound = images.ErrImageNotFound
)

// Run executes the full benchmark suite.
func Run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// 1. Discovery Phase
	paths, err := images.Discover(cfg.ImageDir)
	if err != nil {
		output.Logger.Error("No images to benchmark", "dir", cfg.ImageDir, "error", err)
		return err
	}
	output.Logger.Info("Found images to benchmark", "dir", cfg.ImageDir, "count", len(paths))

	// 2. Load Phase
	e, err := New(cfg)
	if err != nil {
		return err
	}
	output.Logger.Info("Loading models...", "url", cfg.URL, "device", cfg.Device, "tasks", enabledTasks(cfg))
	suite, err := Load(ctx, e, NewProbe(cfg, e))
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}
	defer suite.Close(context.WithoutCancel(ctx))
	output.Logger.Info("All models loaded")

	// 3. Execution Phase
	b := &Benchmark{Suite: suite, Config: cfg, RunID: uuid.NewString(), Now: time.Now}
	records, err := b.Run(ctx, paths)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		output.Logger.Error("No results were generated")
		return fmt.Errorf("%w: no records produced for %d images", ErrNoInputData, len(paths))
	}

	// 4. Report Phase
	return writeOutputs(cfg, records, len(paths))
}

func writeOutputs(cfg *config.Config, records []model.Record, imageCount int) error {
	if err := output.WriteCSV(cfg.OutputFile, records); err != nil {
		return fmt.Errorf("failed to write leaderboard %s: %w", cfg.OutputFile, err)
	}
	if cfg.JSONFile != "" {
		if err := output.WriteJSONL(cfg.JSONFile, records); err != nil {
			return fmt.Errorf("failed to write detail file %s: %w", cfg.JSONFile, err)
		}
	}
	if cfg.MetricsFile != "" {
		if err := output.WriteMetricsFile(cfg.MetricsFile, records); err != nil {
			return fmt.Errorf("failed to write metrics file %s: %w", cfg.MetricsFile, err)
		}
	}

	output.RenderLeaderboard(os.Stdout, records)
	output.Logger.Info("Benchmark Complete", "images", imageCount, "records", len(records), "output", cfg.OutputFile)
	return nil
}

// Benchmark drives a loaded Suite over a list of images.
type Benchmark struct {
	Suite  *Suite
	Config *config.Config
	RunID  string
	Now    func() time.Time
}

// Run invokes every enabled wrapper on every image, in order.
func (b *Benchmark) Run(ctx context.Context, paths []string) ([]model.Record, error) {
	var records []model.Record

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := filepath.Base(path)
		output.Logger.Info("Processing image", "image", name)

		if w := b.Suite.CLIP; w != nil {
			c := b.Config.Classification
			res, m, err := w.Classify(ctx, path, c.Prompts)
			if keep, err := b.keep(err, c.Name, name); err != nil {
				return nil, err
			} else if keep {
				top, p := res.Top()
				d := b.detail(w.ModelName())
				d.Probabilities = res.Map()
				records = append(records, b.record(c.Name, name, model.TaskClassification,
					fmt.Sprintf("Top Prediction: %s (%.2f)", top, p), m, d))
			}
		}

		if w := b.Suite.Captioner; w != nil {
			c := b.Config.Captioning
			caption, m, err := w.Caption(ctx, path)
			if keep, err := b.keep(err, c.Name, name); err != nil {
				return nil, err
			} else if keep && caption != "" {
				records = append(records, b.record(c.Name, name, model.TaskCaptioning, caption, m, b.detail(w.ModelName())))
			}
		}

		if w := b.Suite.VQA; w != nil {
			c := b.Config.VQA
			answer, m, err := w.Answer(ctx, path, c.Prompt)
			if keep, err := b.keep(err, c.Name, name); err != nil {
				return nil, err
			} else if keep && answer != "" {
				records = append(records, b.record(c.Name, name, model.TaskVQA,
					fmt.Sprintf("Q: %s A: %s", c.Prompt, answer), m, b.detail(w.ModelName())))
			}
		}
	}

	return records, nil
}

// keep decides what a wrapper error means for the run: skip the record,
// keep it, or abort.
func (b *Benchmark) keep(err error, modelName, image string) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrImageNotFound):
		output.Logger.Warn("Skipping record", "model", modelName, "image", image, "error", err)
		return false, nil
	default:
		return false, fmt.Errorf("%s on %s: %w", modelName, image, err)
	}
}

func (b *Benchmark) detail(tag string) model.Detail {
	return model.Detail{
		RunID:     b.RunID,
		Timestamp: b.Now(),
		URL:       b.Config.URL,
		ModelTag:  tag,
	}
}

func (b *Benchmark) record(name, image, task, result string, m model.Metrics, d model.Detail) model.Record {
	output.Logger.Info("Inference Success",
		"model", name,
		"image", image,
		"latency", m.Latency,
		"memory_mb", fmt.Sprintf("%.2f", m.MemoryMB()),
	)
	return model.NewRecord(name, image, task, result, m, d)
}

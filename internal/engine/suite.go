/*
PURPOSE:
  Holds the wrappers loaded once per run and releases them at the end.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go
*/

package engine

import (
	"context"
	"errors"

	"github.com/daryltucker/vlm-bench/internal/config"
	"github.com/daryltucker/vlm-bench/internal/output"
)

// Suite holds the once-loaded wrappers. A nil wrapper means the task is
// disabled in the configuration.
type Suite struct {
	CLIP      *CLIP
	Captioner *Captioner
	VQA       *VQA
}

// Load constructs every configured wrapper. On failure the wrappers that
// did load are closed again.
func Load(ctx context.Context, e *Engine, probe MemoryProbe) (*Suite, error) {
	cfg := e.Config
	s := &Suite{}
	var err error

	if c := cfg.Classification; c.Model != "" {
		s.CLIP, err = NewCLIP(ctx, e, probe, c.Model, c.LogitScale, c.Prompts[0])
		if err != nil {
			return nil, err
		}
	}
	if c := cfg.Captioning; c.Model != "" {
		s.Captioner, err = NewCaptioner(ctx, e, probe, c.Model, c.Prompt, c.MaxNewTokens)
		if err != nil {
			s.Close(context.WithoutCancel(ctx))
			return nil, err
		}
	}
	if c := cfg.VQA; c.Model != "" {
		s.VQA, err = NewVQA(ctx, e, probe, c.Model, c.MaxNewTokens)
		if err != nil {
			s.Close(context.WithoutCancel(ctx))
			return nil, err
		}
	}

	if s.Empty() {
		return nil, errors.New("no tasks configured: set at least one of classification.model, captioning.model, vqa.model")
	}
	return s, nil
}

// Empty reports whether no task is enabled.
func (s *Suite) Empty() bool {
	return s.CLIP == nil && s.Captioner == nil && s.VQA == nil
}

// Close unloads every loaded model. Failures are logged, not returned.
func (s *Suite) Close(ctx context.Context) {
	type closer interface {
		Close(context.Context) error
		ModelName() string
	}
	var loaded []closer
	if s.CLIP != nil {
		loaded = append(loaded, s.CLIP)
	}
	if s.Captioner != nil {
		loaded = append(loaded, s.Captioner)
	}
	if s.VQA != nil {
		loaded = append(loaded, s.VQA)
	}
	for _, c := range loaded {
		if err := c.Close(ctx); err != nil {
			output.Logger.Warn("Failed to unload model", "model", c.ModelName(), "error", err)
		}
	}
}

// enabledTasks is used for logging only.
func enabledTasks(cfg *config.Config) []string {
	var tasks []string
	if cfg.Classification.Model != "" {
		tasks = append(tasks, cfg.Classification.Name)
	}
	if cfg.Captioning.Model != "" {
		tasks = append(tasks, cfg.Captioning.Name)
	}
	if cfg.VQA.Model != "" {
		tasks = append(tasks, cfg.VQA.Name)
	}
	return tasks
}

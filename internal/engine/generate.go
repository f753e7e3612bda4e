/*
PURPOSE:
  Captioning and visual question answering wrappers.
  Both are "image + prompt -> text" calls on /api/generate.

REQUIREMENTS:
  User-specified:
  - Bounded-length output (max_new_tokens).
  - Load once, call per image.

  Implementation-discovered:
  - An empty prompt preloads the model; keep_alive 0 unloads it.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/suite.go, internal/engine/runner.go

ERROR HANDLING:
  - Same contract as CLIP.Classify.
  - A failed placement check unloads the model before returning.
*/

package engine

import (
	"context"
	"fmt"

	"github.com/ollama/ollama/api"

	"github.com/daryltucker/vlm-bench/internal/images"
	"github.com/daryltucker/vlm-bench/internal/model"
	"github.com/daryltucker/vlm-bench/internal/output"
)

// generator is the shared image+prompt -> text path of Captioner and VQA.
type generator struct {
	engine       *Engine
	probe        MemoryProbe
	modelName    string
	maxNewTokens int
}

func newGenerator(ctx context.Context, e *Engine, probe MemoryProbe, modelName string, maxNewTokens int) (*generator, error) {
	if err := e.Show(ctx, modelName); err != nil {
		return nil, err
	}
	// An empty prompt loads the model without generating.
	if _, err := e.Generate(ctx, modelName, "", nil, 1); err != nil {
		return nil, fmt.Errorf("preload %s: %w", modelName, err)
	}
	g := &generator{engine: e, probe: probe, modelName: modelName, maxNewTokens: maxNewTokens}
	if err := e.CheckPlacement(ctx, modelName); err != nil {
		if uerr := g.close(context.WithoutCancel(ctx)); uerr != nil {
			output.Logger.Warn("Failed to unload model", "model", modelName, "error", uerr)
		}
		return nil, err
	}
	return g, nil
}

func (g *generator) run(ctx context.Context, imagePath, prompt string) (string, model.Metrics, error) {
	img, err := images.Load(imagePath, g.engine.Config.MaxImageSize)
	if err != nil {
		return "", model.Metrics{}, err
	}

	var text string
	m, err := measure(ctx, g.probe, g.modelName, g.engine.Config.SampleInterval, func(ctx context.Context) error {
		var err error
		text, err = g.engine.Generate(ctx, g.modelName, prompt, img, g.maxNewTokens)
		return err
	})
	if err != nil {
		return "", model.Metrics{}, err
	}
	return text, m, nil
}

func (g *generator) close(ctx context.Context) error {
	stream := false
	return g.engine.API.Generate(ctx, &api.GenerateRequest{
		Model:     g.modelName,
		Stream:    &stream,
		KeepAlive: &api.Duration{Duration: 0},
	}, func(api.GenerateResponse) error { return nil })
}

func embedUnload(modelName string) *api.EmbedRequest {
	return &api.EmbedRequest{
		Model:     modelName,
		Input:     []string{},
		KeepAlive: &api.Duration{Duration: 0},
	}
}

// Captioner generates a bounded-length caption for an image.
type Captioner struct {
	*generator
	prompt string
}

// NewCaptioner verifies and preloads modelName.
func NewCaptioner(ctx context.Context, e *Engine, probe MemoryProbe, modelName, prompt string, maxNewTokens int) (*Captioner, error) {
	output.Logger.Info("Loading captioning model", "model", modelName)
	g, err := newGenerator(ctx, e, probe, modelName, maxNewTokens)
	if err != nil {
		return nil, err
	}
	return &Captioner{generator: g, prompt: prompt}, nil
}

// Caption describes imagePath. A missing image yields ErrImageNotFound,
// an empty caption and zero metrics.
func (c *Captioner) Caption(ctx context.Context, imagePath string) (string, model.Metrics, error) {
	return c.run(ctx, imagePath, c.prompt)
}

// ModelName returns the served model tag.
func (c *Captioner) ModelName() string { return c.modelName }

// Close releases the model on the server.
func (c *Captioner) Close(ctx context.Context) error { return c.close(ctx) }

// VQA answers a free-text question about an image.
type VQA struct {
	*generator
}

// NewVQA verifies and preloads modelName.
func NewVQA(ctx context.Context, e *Engine, probe MemoryProbe, modelName string, maxNewTokens int) (*VQA, error) {
	output.Logger.Info("Loading VQA model", "model", modelName)
	g, err := newGenerator(ctx, e, probe, modelName, maxNewTokens)
	if err != nil {
		return nil, err
	}
	return &VQA{generator: g}, nil
}

// Answer answers question about imagePath. Same error contract as Caption.
func (v *VQA) Answer(ctx context.Context, imagePath, question string) (string, model.Metrics, error) {
	return v.run(ctx, imagePath, question)
}

// ModelName returns the served model tag.
func (v *VQA) ModelName() string { return v.modelName }

// Close releases the model on the server.
func (v *VQA) Close(ctx context.Context) error { return v.close(ctx) }

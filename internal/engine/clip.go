/*
PURPOSE:
  Zero-shot image classification against a list of text prompts.

REQUIREMENTS:
  User-specified:
  - One probability per prompt position, summing to 1.
  - Report the top prediction and its probability.

  Implementation-discovered:
  - The server only returns embeddings; similarity and softmax happen here.
  - logit_scale plays the role of CLIP's learned temperature.
  - Log-sum-exp keeps the softmax finite for large scales.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go (Benchmark.Run)
  - Uses: Engine.EmbedText, Engine.EmbedImage, measure

ERROR HANDLING:
  - Missing image returns ErrImageNotFound with nil result and zero metrics.
  - Dimension mismatches and zero vectors are errors.
*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/daryltucker/vlm-bench/internal/images"
	"github.com/daryltucker/vlm-bench/internal/model"
	"github.com/daryltucker/vlm-bench/internal/output"
)

// Classification is a probability per prompt position.
type Classification struct {
	Prompts []string
	Probs   []float64
}

// Top returns the most probable prompt. Ties go to the earliest prompt.
func (c *Classification) Top() (string, float64) {
	best := 0
	for i, p := range c.Probs {
		if p > c.Probs[best] {
			best = i
		}
	}
	return c.Prompts[best], c.Probs[best]
}

// Map returns prompt -> probability. Duplicate prompts keep the later value.
func (c *Classification) Map() map[string]float64 {
	m := make(map[string]float64, len(c.Prompts))
	for i, p := range c.Prompts {
		m[p] = c.Probs[i]
	}
	return m
}

// CLIP scores images against text prompts with an image-text embedding model.
type CLIP struct {
	engine     *Engine
	probe      MemoryProbe
	modelName  string
	logitScale float64
}

// NewCLIP verifies and preloads modelName.
func NewCLIP(ctx context.Context, e *Engine, probe MemoryProbe, modelName string, logitScale float64, warmup string) (*CLIP, error) {
	output.Logger.Info("Loading classification model", "model", modelName)
	if err := e.Show(ctx, modelName); err != nil {
		return nil, err
	}
	if _, err := e.EmbedText(ctx, modelName, []string{warmup}); err != nil {
		return nil, fmt.Errorf("preload %s: %w", modelName, err)
	}
	if err := e.CheckPlacement(ctx, modelName); err != nil {
		if _, uerr := e.API.Embed(context.WithoutCancel(ctx), embedUnload(modelName)); uerr != nil {
			output.Logger.Warn("Failed to unload model", "model", modelName, "error", uerr)
		}
		return nil, err
	}
	return &CLIP{engine: e, probe: probe, modelName: modelName, logitScale: logitScale}, nil
}

// ModelName returns the served model tag.
func (c *CLIP) ModelName() string { return c.modelName }

// Classify runs zero-shot classification of imagePath against prompts.
// A missing image yields ErrImageNotFound, a nil result and zero metrics.
func (c *CLIP) Classify(ctx context.Context, imagePath string, prompts []string) (*Classification, model.Metrics, error) {
	if len(prompts) == 0 {
		return nil, model.Metrics{}, errors.New("classify: no prompts")
	}

	img, err := images.Load(imagePath, c.engine.Config.MaxImageSize)
	if err != nil {
		return nil, model.Metrics{}, err
	}

	var probs []float64
	m, err := measure(ctx, c.probe, c.modelName, c.engine.Config.SampleInterval, func(ctx context.Context) error {
		textEmb, err := c.engine.EmbedText(ctx, c.modelName, prompts)
		if err != nil {
			return err
		}
		imageEmb, err := c.engine.EmbedImage(ctx, c.modelName, img)
		if err != nil {
			return err
		}
		probs, err = zeroShot(imageEmb, textEmb, c.logitScale)
		return err
	})
	if err != nil {
		return nil, model.Metrics{}, err
	}

	return &Classification{Prompts: prompts, Probs: probs}, m, nil
}

// Close releases the model on the server.
func (c *CLIP) Close(ctx context.Context) error {
	_, err := c.engine.API.Embed(ctx, embedUnload(c.modelName))
	return err
}

// zeroShot turns embeddings into softmax(scale * cosine(image, text_i)).
func zeroShot(image []float32, texts [][]float32, scale float64) ([]float64, error) {
	img := toFloat64(image)
	imgNorm := floats.Norm(img, 2)
	if imgNorm == 0 {
		return nil, errors.New("zero-length image embedding")
	}

	logits := make([]float64, len(texts))
	for i, t := range texts {
		if len(t) != len(img) {
			return nil, fmt.Errorf("embedding dimension mismatch: image %d, text %d", len(img), len(t))
		}
		txt := toFloat64(t)
		txtNorm := floats.Norm(txt, 2)
		if txtNorm == 0 {
			return nil, fmt.Errorf("zero-length text embedding at prompt %d", i)
		}
		logits[i] = scale * floats.Dot(img, txt) / (imgNorm * txtNorm)
	}

	lse := floats.LogSumExp(logits)
	probs := make([]float64, len(logits))
	for i, l := range logits {
		probs[i] = math.Exp(l - lse)
	}
	return probs, nil
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

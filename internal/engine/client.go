/*
PURPOSE:
  Core engine for interacting with the Ollama-compatible inference server.
  Handles model discovery, generation with images, text and image
  embeddings, residency queries and load/unload.

REQUIREMENTS:
  User-specified:
  - Caption and VQA via /api/generate with attached images.
  - Zero-shot classification via /api/embed (text) and /api/embed/image.

  Implementation-discovered:
  - /api/embed/image is an extension endpoint not covered by the upstream
    api.Client, so it is called directly over net/http.
  - Requests are non-streaming with temperature 0 so repeated runs give the
    same text.
  - Device placement is sent as options (num_gpu 0 for cpu).

ARCHITECTURE INTEGRATION:
  - Called by: wrappers in this package, internal/cli (list-models)
  - Uses: internal/config, internal/images, internal/output

ERROR HANDLING:
  - No retries. Errors are wrapped with the endpoint and model name.
  - Server-side {"error": ...} bodies are surfaced verbatim.

USAGE:
  e, err := engine.New(cfg)
  models, err := e.GetModels(ctx)

RELATED FILES:
  - internal/engine/probe.go
  - internal/engine/suite.go
*/

package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/daryltucker/vlm-bench/internal/config"
	"github.com/daryltucker/vlm-bench/internal/images"
)

// ErrPlacement means a model did not land on the requested device.
var ErrPlacement = errors.New("device placement violated")

// Engine handles server interactions.
type Engine struct {
	Config *config.Config
	API    *api.Client
	Client *http.Client
	base   *url.URL
}

// New creates a new Engine.
func New(cfg *config.Config) (*Engine, error) {
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", cfg.URL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid url %q: want scheme://host[:port]", cfg.URL)
	}

	// ResponseHeaderTimeout covers model loading on the first request.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.RequestTimeout

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.RequestTimeout,
	}

	return &Engine{
		Config: cfg,
		API:    api.NewClient(base, client),
		Client: client,
		base:   base,
	}, nil
}

// GetModels returns the names of installed models.
func (e *Engine) GetModels(ctx context.Context) ([]string, error) {
	resp, err := e.API.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models at %s: %w", e.base, err)
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// GetRunningModel returns the loaded size and VRAM size of modelName.
// Both are zero if the model is not resident.
func (e *Engine) GetRunningModel(ctx context.Context, modelName string) (int64, int64, error) {
	resp, err := e.API.ListRunning(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list running models at %s: %w", e.base, err)
	}
	for _, m := range resp.Models {
		if matchesModel(m.Name, modelName) || matchesModel(m.Model, modelName) {
			return m.Size, m.SizeVRAM, nil
		}
	}
	return 0, 0, nil
}

// matchesModel loosely matches "llava" against "llava:latest".
func matchesModel(running, want string) bool {
	return running == want || strings.HasPrefix(running, want+":")
}

// options are the per-request model options for the configured device.
func (e *Engine) options(extra map[string]any) map[string]any {
	opts := map[string]any{"temperature": 0}
	if e.Config.Device == config.DeviceCPU {
		opts["num_gpu"] = 0
	}
	for k, v := range extra {
		opts[k] = v
	}
	return opts
}

func (e *Engine) keepAlive(d time.Duration) *api.Duration {
	return &api.Duration{Duration: d}
}

// Generate runs a non-streaming generation with one attached image.
func (e *Engine) Generate(ctx context.Context, modelName, prompt string, img *images.Image, maxTokens int) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:     modelName,
		Prompt:    prompt,
		Stream:    &stream,
		KeepAlive: e.keepAlive(e.Config.KeepAlive),
		Options:   e.options(map[string]any{"num_predict": maxTokens}),
	}
	if img != nil {
		req.Images = []api.ImageData{img.Data}
	}

	var sb strings.Builder
	err := e.API.Generate(ctx, req, func(r api.GenerateResponse) error {
		sb.WriteString(r.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", modelName, err)
	}
	return strings.TrimSpace(sb.String()), nil
}

// EmbedText embeds each prompt, in order.
func (e *Engine) EmbedText(ctx context.Context, modelName string, prompts []string) ([][]float32, error) {
	resp, err := e.API.Embed(ctx, &api.EmbedRequest{
		Model:     modelName,
		Input:     prompts,
		KeepAlive: e.keepAlive(e.Config.KeepAlive),
		Options:   e.options(nil),
	})
	if err != nil {
		return nil, fmt.Errorf("embed text with %s: %w", modelName, err)
	}
	if len(resp.Embeddings) != len(prompts) {
		return nil, fmt.Errorf("embed text with %s: got %d embeddings for %d prompts", modelName, len(resp.Embeddings), len(prompts))
	}
	return resp.Embeddings, nil
}

type embedImageRequest struct {
	Model string `json:"model"`
	Image string `json:"image"`
}

type embedImageResponse struct {
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
	Dimension int       `json:"dimension,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// EmbedImage embeds one image through POST /api/embed/image.
func (e *Engine) EmbedImage(ctx context.Context, modelName string, img *images.Image) ([]float32, error) {
	reqBody, err := json.Marshal(embedImageRequest{
		Model: modelName,
		Image: base64.StdEncoding.EncodeToString(img.Data),
	})
	if err != nil {
		return nil, err
	}

	endpoint := e.base.JoinPath("api", "embed", "image").String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed image with %s: %w", modelName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embed image with %s: failed to read response body: %w", modelName, err)
	}

	var data embedImageResponse
	if err := json.Unmarshal(body, &data); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("embed image with %s: server error (%s): %s", modelName, resp.Status, string(body))
		}
		return nil, fmt.Errorf("embed image with %s: invalid JSON: %w", modelName, err)
	}
	if data.Error != "" {
		return nil, fmt.Errorf("embed image with %s: server error (%s): %s", modelName, resp.Status, data.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed image with %s: server error (%s)", modelName, resp.Status)
	}
	if len(data.Embedding) == 0 {
		return nil, fmt.Errorf("embed image with %s: empty embedding", modelName)
	}
	return data.Embedding, nil
}

// Show verifies that modelName is installed.
func (e *Engine) Show(ctx context.Context, modelName string) error {
	if _, err := e.API.Show(ctx, &api.ShowRequest{Model: modelName}); err != nil {
		return fmt.Errorf("model %s not available at %s: %w", modelName, e.base, err)
	}
	return nil
}

// CheckPlacement enforces the gpu device guard once a model is resident.
func (e *Engine) CheckPlacement(ctx context.Context, modelName string) error {
	if e.Config.Device != config.DeviceGPU {
		return nil
	}
	size, sizeVRAM, err := e.GetRunningModel(ctx, modelName)
	if err != nil {
		return err
	}
	if size == 0 {
		return fmt.Errorf("%w: %s is not resident after load", ErrPlacement, modelName)
	}
	if sizeVRAM == 0 {
		return fmt.Errorf("%w: %s loaded 100%% on CPU (device=gpu)", ErrPlacement, modelName)
	}
	return nil
}

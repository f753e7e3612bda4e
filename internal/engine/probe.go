/*
PURPOSE:
  Reads accelerator memory attributed to a model.

REQUIREMENTS:
  Implementation-discovered:
  - The server is remote, so there is no local peak counter to reset.
    /api/ps size_vram is sampled instead.
  - dcgm-exporter gives device-level framebuffer usage when available.

ERROR HANDLING:
  - Sample errors are returned; the sampler drops them at debug level.
*/

package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/daryltucker/vlm-bench/internal/config"
)

// MemoryProbe reads current accelerator memory attributed to a model.
type MemoryProbe interface {
	Sample(ctx context.Context, modelName string) (int64, error)
}

// NewProbe picks the probe for cfg. It returns nil when memory is not
// measured, which is always the case for device=cpu.
func NewProbe(cfg *config.Config, e *Engine) MemoryProbe {
	if cfg.Device == config.DeviceCPU {
		return nil
	}
	switch cfg.MemoryProbe {
	case config.ProbeOllama:
		return &ollamaProbe{engine: e}
	case config.ProbeDCGM:
		return &dcgmProbe{client: e.Client, endpoint: cfg.DCGMEndpoint}
	}
	return nil
}

// ollamaProbe reports size_vram from /api/ps.
type ollamaProbe struct {
	engine *Engine
}

func (p *ollamaProbe) Sample(ctx context.Context, modelName string) (int64, error) {
	_, vram, err := p.engine.GetRunningModel(ctx, modelName)
	return vram, err
}

const (
	metricFBUsed = "DCGM_FI_DEV_FB_USED"
	mibToBytes   = 1048576
	// dcgm-exporter reports ~1.8e19 for blank fields.
	sentinelThreshold = 1e15
)

// dcgmProbe sums framebuffer usage across all GPUs of a dcgm-exporter.
type dcgmProbe struct {
	client   *http.Client
	endpoint string
}

func (p *dcgmProbe) Sample(ctx context.Context, _ string) (int64, error) {
	url := strings.TrimRight(p.endpoint, "/") + "/metrics"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request for %s: %w", url, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("scraping %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("reading response from %s: %w", url, err)
	}
	return parseFBUsed(body), nil
}

// parseFBUsed extracts DCGM_FI_DEV_FB_USED samples (MiB) and returns their
// sum in bytes.
func parseFBUsed(data []byte) int64 {
	var total int64
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || !strings.HasPrefix(line, metricFBUsed) {
			continue
		}
		rest := line[len(metricFBUsed):]
		if rest == "" || (rest[0] != '{' && rest[0] != ' ') {
			continue // a different metric sharing the prefix
		}
		if i := strings.LastIndexByte(rest, '}'); i >= 0 {
			rest = rest[i+1:]
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil || v < 0 || v > sentinelThreshold {
			continue
		}
		total += int64(v * mibToBytes)
	}
	return total
}

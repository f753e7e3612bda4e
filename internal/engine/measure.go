// Per-call timing and peak memory sampling.

package engine

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/daryltucker/vlm-bench/internal/model"
	"github.com/daryltucker/vlm-bench/internal/output"
)

// peakTracker keeps the highest sample seen since it was created.
type peakTracker struct {
	probe     MemoryProbe
	modelName string
	peak      atomic.Int64
}

func (t *peakTracker) sample(ctx context.Context) {
	b, err := t.probe.Sample(ctx, t.modelName)
	if err != nil {
		if ctx.Err() == nil {
			output.Logger.Debug("Memory sample failed", "model", t.modelName, "error", err)
		}
		return
	}
	for {
		cur := t.peak.Load()
		if b <= cur || t.peak.CompareAndSwap(cur, b) {
			return
		}
	}
}

// measure times call and samples probe while it runs. A fresh tracker per
// call is the "reset"; the sample taken after the call returns is the "read".
// A nil probe yields zero memory.
func measure(ctx context.Context, probe MemoryProbe, modelName string, interval time.Duration, call func(context.Context) error) (model.Metrics, error) {
	if probe == nil {
		start := time.Now()
		if err := call(ctx); err != nil {
			return model.Metrics{}, err
		}
		return model.Metrics{Latency: time.Since(start)}, nil
	}

	tracker := &peakTracker{probe: probe, modelName: modelName}

	samplerCtx, stop := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(samplerCtx)
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				tracker.sample(gctx)
			}
		}
	})

	start := time.Now()
	err := call(ctx)
	latency := time.Since(start)

	stop()
	_ = g.Wait()

	if err != nil {
		return model.Metrics{}, err
	}

	tracker.sample(ctx)
	return model.Metrics{Latency: latency, PeakBytes: tracker.peak.Load()}, nil
}

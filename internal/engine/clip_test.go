package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/vlm-bench/internal/model"
)

func TestZeroShot(t *testing.T) {
	image := []float32{0.9, 0.1, 0.05}
	texts := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

	probs, err := zeroShot(image, texts, 100)
	require.NoError(t, err)
	require.Len(t, probs, 3)

	var sum float64
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, probs[0], probs[1])
	assert.Greater(t, probs[1], probs[2])
}

func TestZeroShotDuplicatePrompts(t *testing.T) {
	probs, err := zeroShot([]float32{1, 0}, [][]float32{{1, 0}, {1, 0}}, 100)
	require.NoError(t, err)
	require.Len(t, probs, 2)
	assert.InDelta(t, 0.5, probs[0], 1e-9)
	assert.InDelta(t, 0.5, probs[1], 1e-9)
}

func TestZeroShotLargeScaleIsStable(t *testing.T) {
	probs, err := zeroShot([]float32{1, 0}, [][]float32{{1, 0}, {-1, 0}}, 1e4)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, probs[0], 1e-9)
	assert.InDelta(t, 0.0, probs[1], 1e-9)
}

func TestZeroShotErrors(t *testing.T) {
	_, err := zeroShot([]float32{1, 0}, [][]float32{{1, 0, 0}}, 100)
	assert.ErrorContains(t, err, "dimension mismatch")

	_, err = zeroShot([]float32{0, 0}, [][]float32{{1, 0}}, 100)
	assert.Error(t, err)

	_, err = zeroShot([]float32{1, 0}, [][]float32{{0, 0}}, 100)
	assert.Error(t, err)
}

func TestClassificationTopAndMap(t *testing.T) {
	c := &Classification{
		Prompts: []string{"cat", "dog", "cat"},
		Probs:   []float64{0.4, 0.2, 0.4},
	}

	top, p := c.Top()
	assert.Equal(t, "cat", top)
	assert.Equal(t, 0.4, p)

	m := c.Map()
	assert.Len(t, m, 2)
	assert.Equal(t, 0.2, m["dog"])
}

type fakeProbe struct {
	samples []int64
	i       int
	err     error
}

func (p *fakeProbe) Sample(context.Context, string) (int64, error) {
	if p.err != nil {
		return 0, p.err
	}
	v := p.samples[p.i%len(p.samples)]
	p.i++
	return v, nil
}

func TestMeasureWithoutProbe(t *testing.T) {
	m, err := measure(context.Background(), nil, "m", time.Millisecond, func(context.Context) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, m.Latency, 5*time.Millisecond)
	assert.Zero(t, m.PeakBytes)
}

func TestMeasureKeepsPeak(t *testing.T) {
	// The after-call sample alone guarantees at least one reading.
	probe := &fakeProbe{samples: []int64{3 << 20}}
	m, err := measure(context.Background(), probe, "m", time.Hour, func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, int64(3<<20), m.PeakBytes)
	assert.InDelta(t, 3.0, m.MemoryMB(), 1e-9)
}

func TestMeasureProbeFailureIsZero(t *testing.T) {
	probe := &fakeProbe{err: errors.New("scrape failed")}
	m, err := measure(context.Background(), probe, "m", time.Millisecond, func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Zero(t, m.PeakBytes)
}

func TestMeasureCallError(t *testing.T) {
	probe := &fakeProbe{samples: []int64{1 << 20}}
	boom := errors.New("boom")
	m, err := measure(context.Background(), probe, "m", time.Millisecond, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, model.Metrics{}, m)
}

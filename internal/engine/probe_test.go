package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/vlm-bench/internal/config"
)

const dcgmMetrics = `# HELP DCGM_FI_DEV_FB_USED Framebuffer memory used (in MiB).
# TYPE DCGM_FI_DEV_FB_USED gauge
DCGM_FI_DEV_FB_USED{gpu="0",UUID="GPU-a"} 2048
DCGM_FI_DEV_FB_USED{gpu="1",UUID="GPU-b"} 1024
`

func TestMemorySamplerSelection(t *testing.T) {
	f := newFakeServer(t, 0)
	cfg := testConfig(t, f)
	e, err := New(cfg)
	require.NoError(t, err)

	cfg.MemoryProbe = config.ProbeOllama
	assert.IsType(t, &ollamaProbe{}, NewProbe(cfg, e))

	cfg.MemoryProbe = config.ProbeDCGM
	assert.IsType(t, &dcgmProbe{}, NewProbe(cfg, e))

	cfg.MemoryProbe = config.ProbeNone
	assert.Nil(t, NewProbe(cfg, e))

	cfg.MemoryProbe = config.ProbeDCGM
	cfg.Device = config.DeviceCPU
	assert.Nil(t, NewProbe(cfg, e))
}

func TestDCGMSample(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		want    int64
		wantErr string
	}{
		{name: "ok", status: http.StatusOK, want: 3072 * mibToBytes},
		{name: "server error", status: http.StatusInternalServerError, wantErr: "unexpected status 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := make(chan string, 1)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				paths <- r.URL.Path
				w.WriteHeader(tt.status)
				w.Write([]byte(dcgmMetrics))
			}))
			defer srv.Close()

			f := newFakeServer(t, 0)
			cfg := testConfig(t, f)
			cfg.MemoryProbe = config.ProbeDCGM
			cfg.DCGMEndpoint = srv.URL + "/"
			e, err := New(cfg)
			require.NoError(t, err)

			got, err := NewProbe(cfg, e).Sample(context.Background(), clipTag)
			assert.Equal(t, "/metrics", <-paths)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				assert.Zero(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOllamaVRAMSample(t *testing.T) {
	f := newFakeServer(t, 700<<20)
	cfg := testConfig(t, f)
	e, err := New(cfg)
	require.NoError(t, err)

	got, err := NewProbe(cfg, e).Sample(context.Background(), vqaTag)
	require.NoError(t, err)
	assert.Equal(t, int64(700<<20), got)

	got, err = NewProbe(cfg, e).Sample(context.Background(), "not-running")
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestParseFBUsed(t *testing.T) {
	data := []byte(`# HELP DCGM_FI_DEV_FB_USED Framebuffer memory used (in MiB).
# TYPE DCGM_FI_DEV_FB_USED gauge
DCGM_FI_DEV_FB_USED{gpu="0",UUID="GPU-a",modelName="NVIDIA A100"} 1024
DCGM_FI_DEV_FB_USED{gpu="1",UUID="GPU-b",modelName="NVIDIA A100"} 512
DCGM_FI_DEV_FB_USED{gpu="2",UUID="GPU-c"} 18446744073709551615
DCGM_FI_DEV_FB_USED_PERCENT{gpu="0"} 12
DCGM_FI_DEV_GPU_UTIL{gpu="0"} 99
`)
	assert.Equal(t, int64(1536*mibToBytes), parseFBUsed(data))
	assert.Zero(t, parseFBUsed([]byte("# nothing here\n")))
}

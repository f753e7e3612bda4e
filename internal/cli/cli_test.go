package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/vlm-bench/internal/config"
	"github.com/daryltucker/vlm-bench/internal/engine"
)

func TestProcessor(t *testing.T) {
	assert.Equal(t, "100% CPU", processor(100, 0))
	assert.Equal(t, "100% GPU", processor(100, 100))
	assert.Equal(t, "25%/75% CPU/GPU", processor(100, 75))
}

func TestApplyRunOverrides(t *testing.T) {
	t.Cleanup(func() {
		urlOverride, imageDirOverride, outputOverride, deviceOverride, promptsOverride = "", "", "", "", nil
	})

	cfg := config.DefaultConfig()
	applyRunOverrides(cfg)
	assert.Equal(t, config.DefaultConfig(), cfg)

	urlOverride = "http://gpu-box:11434"
	imageDirOverride = "imgs"
	outputOverride = "out.csv"
	deviceOverride = config.DeviceCPU
	promptsOverride = []string{"a", "b"}
	applyRunOverrides(cfg)

	assert.Equal(t, "http://gpu-box:11434", cfg.URL)
	assert.Equal(t, "imgs", cfg.ImageDir)
	assert.Equal(t, "out.csv", cfg.OutputFile)
	assert.Equal(t, config.DeviceCPU, cfg.Device)
	assert.Equal(t, []string{"a", "b"}, cfg.Classification.Prompts)
}

func TestListModels(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"blip-vqa-base:latest"},{"name":"clip-vit-base-patch32:latest"}]}`))
	})
	mux.HandleFunc("/api/ps", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"blip-vqa-base:latest","model":"blip-vqa-base:latest","size":2000000000,"size_vram":2000000000}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.URL = srv.URL
	e, err := engine.New(cfg)
	require.NoError(t, err)

	cmd := &cobra.Command{}
	cmd.SetContext(t.Context())
	var buf bytes.Buffer
	require.NoError(t, listModels(cmd, e, &buf))

	out := buf.String()
	assert.Contains(t, out, "- clip-vit-base-patch32:latest")
	assert.Contains(t, out, "100% GPU")
	assert.Contains(t, out, "GB")
}

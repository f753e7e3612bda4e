/*
PURPOSE:
  Defines the configuration structure and loading logic for VLM Bench.
  Adheres to "Config IS Code" philosophy.

REQUIREMENTS:
  User-specified:
  - Configure the inference server, image directory and leaderboard path.
  - Configure each task (model tag, display name, prompts, token caps).

  Implementation-discovered:
  - Needs to support YAML parsing.
  - Needs environment overrides (VLMBENCH_...) for CI runs.
  - Device placement must be explicit (auto/cpu/gpu), never silently guessed.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine
  - Dependencies: gopkg.in/yaml.v3

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - Missing default files fall back to DefaultConfig().
  - Validate() rejects unknown enum values before any model is loaded.

USAGE:
  cfg, err := config.Load("vlm_bench.yaml")

RELATED FILES:
  - internal/cli/run.go
*/

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Device placement values.
const (
	DeviceAuto = "auto"
	DeviceCPU  = "cpu"
	DeviceGPU  = "gpu"
)

// Memory probe values.
const (
	ProbeOllama = "ollama"
	ProbeDCGM   = "dcgm"
	ProbeNone   = "none"
)

// DefaultFiles are searched in order when no --config flag is given.
var DefaultFiles = []string{"vlm_bench.yaml", "vlm-bench.yaml", "bench.yaml"}

// Config represents the full configuration for VLM Bench.
type Config struct {
	URL         string `yaml:"url"`
	ImageDir    string `yaml:"image_dir"`
	OutputFile  string `yaml:"output_file"`
	JSONFile    string `yaml:"json_file"`    // empty disables; ".gz" suffix compresses
	MetricsFile string `yaml:"metrics_file"` // Prometheus textfile, empty disables
	Device      string `yaml:"device"`

	MemoryProbe    string        `yaml:"memory_probe"`
	DCGMEndpoint   string        `yaml:"dcgm_endpoint"`
	SampleInterval time.Duration `yaml:"sample_interval"`

	RequestTimeout time.Duration `yaml:"request_timeout"`
	KeepAlive      time.Duration `yaml:"keep_alive"`
	// MaxImageSize caps the longest edge before upload. 0 sends the file unchanged.
	MaxImageSize int `yaml:"max_image_size"`

	Classification ClassificationConfig `yaml:"classification"`
	Captioning     GenerationConfig     `yaml:"captioning"`
	VQA            GenerationConfig     `yaml:"vqa"`
}

// ClassificationConfig configures the zero-shot classification task.
type ClassificationConfig struct {
	Name       string   `yaml:"name"`
	Model      string   `yaml:"model"` // empty disables the task
	Prompts    []string `yaml:"prompts"`
	LogitScale float64  `yaml:"logit_scale"`
}

// GenerationConfig configures a text-generation task (captioning or VQA).
type GenerationConfig struct {
	Name         string `yaml:"name"`
	Model        string `yaml:"model"` // empty disables the task
	Prompt       string `yaml:"prompt"`
	MaxNewTokens int    `yaml:"max_new_tokens"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		URL:            "http://localhost:11434",
		ImageDir:       "data/sample_images",
		OutputFile:     "results/leaderboard.csv",
		JSONFile:       "results/leaderboard.jsonl",
		Device:         DeviceAuto,
		MemoryProbe:    ProbeOllama,
		DCGMEndpoint:   "http://localhost:9400",
		SampleInterval: 100 * time.Millisecond,
		RequestTimeout: 5 * time.Minute,
		KeepAlive:      10 * time.Minute,
		MaxImageSize:   768,
		Classification: ClassificationConfig{
			Name:  "CLIP",
			Model: "clip-vit-base-patch32",
			Prompts: []string{
				"a photo of a cat",
				"a photo of a dog",
				"a photo of a bird",
				"a photo of a car",
				"a photo of a motorcycle",
			},
			LogitScale: 100,
		},
		Captioning: GenerationConfig{
			Name:         "BLIP-Caption",
			Model:        "blip-image-captioning-large",
			Prompt:       "Describe this image in one sentence.",
			MaxNewTokens: 50,
		},
		VQA: GenerationConfig{
			Name:         "BLIP-VQA",
			Model:        "blip-vqa-base",
			Prompt:       "What is in this photo?",
			MaxNewTokens: 20,
		},
	}
}

// Load reads configuration from a file.
// If path is specified, it attempts to load that file.
// If path is empty, it searches DefaultFiles in order.
// If no file found, returns default config.
// Environment overrides are applied last in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		for _, name := range DefaultFiles {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name
				break
			}
		}
	}

	if path != "" {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("VLMBENCH_URL"); v != "" {
		c.URL = v
	}
	if v := os.Getenv("VLMBENCH_DEVICE"); v != "" {
		c.Device = v
	}
	if v := os.Getenv("VLMBENCH_IMAGE_DIR"); v != "" {
		c.ImageDir = v
	}
}

// Validate checks enum fields and required values.
func (c *Config) Validate() error {
	switch c.Device {
	case DeviceAuto, DeviceCPU, DeviceGPU:
	default:
		return fmt.Errorf("invalid device %q (want auto, cpu or gpu)", c.Device)
	}
	switch c.MemoryProbe {
	case ProbeOllama, ProbeDCGM, ProbeNone:
	default:
		return fmt.Errorf("invalid memory_probe %q (want ollama, dcgm or none)", c.MemoryProbe)
	}
	if c.URL == "" {
		return fmt.Errorf("url must not be empty")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output_file must not be empty")
	}
	if c.Classification.Model != "" && len(c.Classification.Prompts) == 0 {
		return fmt.Errorf("classification.prompts must not be empty")
	}
	if c.Classification.Model != "" && c.Classification.LogitScale <= 0 {
		return fmt.Errorf("classification.logit_scale must be positive")
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("sample_interval must be positive")
	}
	return nil
}

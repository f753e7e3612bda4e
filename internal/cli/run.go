/*
PURPOSE:
  Defines the 'run' subcommand.
  Executes the full benchmark suite.

REQUIREMENTS:
  User-specified:
  - Run the benchmarks.
  - Specific flags for overrides.

  Implementation-discovered:
  - Need to load config first.
  - Apply flag overrides to config.
  - "No images" ends the run without an error exit.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Run()
  - Uses: internal/config

ERROR HANDLING:
  - Returns error if config load fails or engine run fails.

USAGE:
  vlm-bench run --image-dir data/sample_images --device gpu
*/

package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/daryltucker/vlm-bench/internal/config"
	"github.com/daryltucker/vlm-bench/internal/engine"
)

var (
	urlOverride      string
	imageDirOverride string
	outputOverride   string
	deviceOverride   string
	promptsOverride  []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark suite",
	Long: `Executes the full benchmark suite against an Ollama-compatible server.
The process follows a strict protocol:
1. Discovery: Finds jpg/jpeg/png images in the image directory.
2. Load: Verifies and preloads each configured model once.
3. Benchmarking: Runs classification, captioning and VQA on every image,
   timing each call and sampling peak accelerator memory around it.

Results are written once, at the end, to the leaderboard CSV (plus the
optional JSON Lines and Prometheus textfile outputs).`,
	Example: `  # Run with defaults (uses vlm_bench.yaml if present)
  vlm-bench run

  # Point at another server and image set
  vlm-bench run --url http://gpu-box:11434 --image-dir ./images -o results/run2.csv

  # Force CPU execution (memory column is 0)
  vlm-bench run --device cpu

  # Custom zero-shot labels
  vlm-bench run --prompts "a photo of a cat,a photo of a dog"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Load Config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// 2. Overrides
		applyRunOverrides(cfg)

		// 3. Execution
		err = engine.Run(cmd.Context(), cfg)
		if errors.Is(err, engine.ErrNoInputData) {
			// already logged by the engine; nothing to report
			return nil
		}
		return err
	},
}

func applyRunOverrides(cfg *config.Config) {
	if urlOverride != "" {
		cfg.URL = urlOverride
	}
	if imageDirOverride != "" {
		cfg.ImageDir = imageDirOverride
	}
	if outputOverride != "" {
		cfg.OutputFile = outputOverride
	}
	if deviceOverride != "" {
		cfg.Device = deviceOverride
	}
	if len(promptsOverride) > 0 {
		cfg.Classification.Prompts = promptsOverride
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&urlOverride, "url", "", "Inference server URL")
	runCmd.Flags().StringVar(&imageDirOverride, "image-dir", "", "Directory containing jpg/jpeg/png images")
	runCmd.Flags().StringVarP(&outputOverride, "output", "o", "", "Leaderboard CSV path")
	runCmd.Flags().StringVar(&deviceOverride, "device", "", "Device placement: auto, cpu or gpu")
	runCmd.Flags().StringSliceVar(&promptsOverride, "prompts", nil, "Comma-separated zero-shot classification prompts")
}

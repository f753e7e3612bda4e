/*
PURPOSE:
  Defines the root Cobra command for the VLM Bench CLI.
  Handles global flags and command initialization.

REQUIREMENTS:
  User-specified:
  - Provide a CLI interface.
  - Support global flags like --config.

  Implementation-discovered:
  - Log level/format must be set before any subcommand logs.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/vlm-bench/main.go
  - Calls: Child commands (run, list-models)

ERROR HANDLING:
  - Returns error to main.go for exit code handling.

RELATED FILES:
  - cmd/vlm-bench/main.go
*/

package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/daryltucker/vlm-bench/internal/output"
)

var (
	// cfgFile stores the path to the config file (if specified via flag)
	cfgFile   string
	logLevel  string
	logFormat string

	rootCmd = &cobra.Command{
		Use:   "vlm-bench",
		Short: "Leaderboard benchmark for vision-language models",
		Long: `Runs zero-shot classification, captioning and visual question answering
models over a directory of images and writes a leaderboard CSV with
latency and peak accelerator memory per call. Use 'run --help' for options.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return output.Configure(os.Stdout, logLevel, logFormat)
		},
	}
)

// Execute executes the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./vlm_bench.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
}

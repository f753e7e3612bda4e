/*
PURPOSE:
  Defines the 'list-models' subcommand.
  Helps debug connectivity and model discovery before a run.

REQUIREMENTS:
  User-specified:
  - List available models.

  Implementation-discovered:
  - Showing resident models and their VRAM share tells whether memory
    numbers will be non-zero.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine (GetModels, API.ListRunning)

USAGE:
  vlm-bench list-models --url http://localhost:11434
*/

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/ollama/ollama/format"
	"github.com/spf13/cobra"

	"github.com/daryltucker/vlm-bench/internal/config"
	"github.com/daryltucker/vlm-bench/internal/engine"
)

var listURLOverride string

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List installed and running models on the inference server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if listURLOverride != "" {
			cfg.URL = listURLOverride
		}

		e, err := engine.New(cfg)
		if err != nil {
			return err
		}
		return listModels(cmd, e, os.Stdout)
	},
}

func listModels(cmd *cobra.Command, e *engine.Engine, w io.Writer) error {
	ctx := cmd.Context()

	fmt.Fprintf(w, "Querying %s...\n", e.Config.URL)
	models, err := e.GetModels(ctx)
	if err != nil {
		return err
	}
	for _, m := range models {
		fmt.Fprintf(w, "- %s\n", m)
	}

	running, err := e.API.ListRunning(ctx)
	if err != nil {
		return err
	}
	if len(running.Models) == 0 {
		fmt.Fprintln(w, "No models loaded.")
		return nil
	}

	var data [][]string
	for _, m := range running.Models {
		data = append(data, []string{m.Name, format.HumanBytes(m.Size), format.HumanBytes(m.SizeVRAM), processor(m.Size, m.SizeVRAM)})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"NAME", "SIZE", "VRAM", "PROCESSOR"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.AppendBulk(data)
	table.Render()
	return nil
}

func processor(size, sizeVRAM int64) string {
	switch {
	case sizeVRAM == 0:
		return "100% CPU"
	case sizeVRAM >= size:
		return "100% GPU"
	default:
		gpu := float64(sizeVRAM) / float64(size) * 100
		return fmt.Sprintf("%.0f%%/%.0f%% CPU/GPU", 100-gpu, gpu)
	}
}

func init() {
	rootCmd.AddCommand(listModelsCmd)
	listModelsCmd.Flags().StringVar(&listURLOverride, "url", "", "Inference server URL")
}

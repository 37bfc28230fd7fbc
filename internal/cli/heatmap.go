package cli

import (
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/evalforge/ablate/internal/heatmap"
)

// HeatmapOptions holds flags for the heatmap command.
type HeatmapOptions struct {
	*RootOptions
	Table  TableSource
	Metric string
	Agg    string
}

// NewHeatmapCommand creates the heatmap command.
func NewHeatmapCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HeatmapOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "heatmap --csv table.csv --metric hallucination_rate",
		Short: "Reduce the table onto the 2x2 intervention grid",
		Long: `Group records by the (contracts, retrieval+verifier) flags derived
from their modes and reduce the chosen metric per cell. Cells with no
records report n/a rather than failing.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeatmap(cmd, opts)
		},
	}

	addTableFlags(cmd, &opts.Table)
	cmd.Flags().StringVar(&opts.Metric, "metric", "hallucination_rate", "metric to reduce")
	cmd.Flags().StringVar(&opts.Agg, "agg", "mean", "per-cell reduction (mean|count)")

	return cmd
}

func runHeatmap(cmd *cobra.Command, opts *HeatmapOptions) error {
	var agg heatmap.Agg
	switch opts.Agg {
	case "mean":
		agg = heatmap.AggMean
	case "count":
		agg = heatmap.AggCount
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --agg %q: must be mean or count", opts.Agg))
	}

	records, err := opts.Table.Load(cmd.Context())
	if err != nil {
		return err
	}

	grid, err := heatmap.Reduce2x2(records, opts.Metric, agg)
	if err != nil {
		return WrapExitError(ExitFailure, "reduce failed", err)
	}

	// JSON payload keyed by readable cell names; map keys can't be structs,
	// and empty-cell NaNs must become null or the encoder fails.
	payload := make(map[string]any, len(grid))
	for cell, v := range grid {
		key := fmt.Sprintf("contracts=%t,retrieval=%t", cell.ContractsOn, cell.RetrievalVerifierOn)
		if math.IsNaN(v) {
			payload[key] = nil
		} else {
			payload[key] = v
		}
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(payload, func(w io.Writer) {
		fmt.Fprintf(w, "%s (%s)\n", opts.Metric, opts.Agg)
		fmt.Fprintf(w, "%14s  %14s  %14s\n", "", "retrieval=off", "retrieval=on")
		for _, contracts := range []bool{false, true} {
			label := "contracts=off"
			if contracts {
				label = "contracts=on"
			}
			off := grid[heatmap.Cell{ContractsOn: contracts, RetrievalVerifierOn: false}]
			on := grid[heatmap.Cell{ContractsOn: contracts, RetrievalVerifierOn: true}]
			fmt.Fprintf(w, "%14s  %14s  %14s\n", label, formatCell(off), formatCell(on))
		}
	})
}

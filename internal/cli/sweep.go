package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/evalforge/ablate/internal/condition"
	"github.com/evalforge/ablate/internal/contract"
	"github.com/evalforge/ablate/internal/record"
	"github.com/evalforge/ablate/internal/sweep"
)

// SweepOptions holds flags for the sweep command.
type SweepOptions struct {
	*RootOptions
	Table    TableSource
	Mode     string
	Min      float64
	Max      float64
	Steps    int
	Verifier string
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sweep --csv table.csv",
		Short: "Precision/recall/abstain trade-off across verifier thresholds",
		Long: `Recompute accept/abstain/reject aggregates for one mode's records
across an evenly spaced threshold grid.

With --verifier, the grid is centered on the configured verifier
threshold instead of the --min/--max bounds.

Example:
  ablate sweep --csv runs/ablation.csv --mode B3 --min 0.3 --max 0.8 --steps 11`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, opts)
		},
	}

	addTableFlags(cmd, &opts.Table)
	cmd.Flags().StringVar(&opts.Mode, "mode", "B3", "mode whose records are swept")
	cmd.Flags().Float64Var(&opts.Min, "min", 0.30, "lowest threshold")
	cmd.Flags().Float64Var(&opts.Max, "max", 0.80, "highest threshold")
	cmd.Flags().IntVar(&opts.Steps, "steps", 11, "number of thresholds")
	cmd.Flags().StringVar(&opts.Verifier, "verifier", "", "verifier config to center the grid on")

	return cmd
}

func runSweep(cmd *cobra.Command, opts *SweepOptions) error {
	mode, err := condition.Parse(opts.Mode)
	if err != nil {
		return WrapExitError(ExitCommandError, "parse --mode", err)
	}
	if opts.Steps < 1 {
		return NewExitError(ExitCommandError, "--steps must be >= 1")
	}
	if opts.Max < opts.Min {
		return NewExitError(ExitCommandError, "--max must be >= --min")
	}

	lo, hi := opts.Min, opts.Max
	if opts.Verifier != "" {
		cfg, err := contract.LoadVerifierConfig(opts.Verifier)
		if err != nil {
			return WrapExitError(ExitCommandError, "load verifier config", err)
		}
		span := (hi - lo) / 2
		lo, hi = cfg.Threshold-span, cfg.Threshold+span
		if lo < 0 {
			lo = 0
		}
		if hi > 1 {
			hi = 1
		}
	}

	records, err := opts.Table.Load(cmd.Context())
	if err != nil {
		return err
	}
	var group []record.Evaluation
	for _, r := range records {
		if r.Mode == string(mode) {
			group = append(group, r)
		}
	}

	points := sweep.Sweep(group, thresholdGrid(lo, hi, opts.Steps), sweep.VerifierClassify)

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(points, func(w io.Writer) {
		fmt.Fprintf(w, "%9s  %9s  %9s  %12s\n", "threshold", "precision", "recall", "abstain_rate")
		for _, p := range points {
			fmt.Fprintf(w, "%9.3f  %9s  %9s  %12s\n",
				p.Threshold, formatCell(p.Precision), formatCell(p.Recall), formatCell(p.AbstainRate))
		}
	})
}

// thresholdGrid builds an evenly spaced, inclusive grid. The thresholds
// come from configuration, never from the records being analyzed.
func thresholdGrid(lo, hi float64, steps int) []float64 {
	if steps == 1 {
		return []float64{lo}
	}
	grid := make([]float64, steps)
	for i := range grid {
		grid[i] = lo + (hi-lo)*float64(i)/float64(steps-1)
	}
	return grid
}

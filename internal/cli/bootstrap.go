package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evalforge/ablate/internal/condition"
	"github.com/evalforge/ablate/internal/stats"
)

// BootstrapOptions holds flags for the bootstrap command.
type BootstrapOptions struct {
	*RootOptions
	Table      TableSource
	Metrics    []string
	ModeA      string
	ModeB      string
	Resamples  int
	Confidence float64
	Seed       int64
}

// NewBootstrapCommand creates the bootstrap command.
func NewBootstrapCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BootstrapOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bootstrap --metric contract_adherence --a B1 --b B0",
		Short: "Bootstrap CI for a metric's mean difference between two modes",
		Long: `Estimate the difference of a metric's mean between two modes with a
percentile-bootstrap confidence interval.

With several --metric flags the command reports one comparison per
metric, adding Cliff's delta and Holm-Bonferroni adjusted p-values
across the family.

Example:
  ablate bootstrap --csv runs/ablation.csv \
    --metric hallucination_rate --a B0 --b B2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBootstrap(cmd, opts)
		},
	}

	addTableFlags(cmd, &opts.Table)
	cmd.Flags().StringSliceVar(&opts.Metrics, "metric", nil, "metric field name (repeatable)")
	cmd.Flags().StringVar(&opts.ModeA, "a", "", "mode A, e.g. B1 (required)")
	cmd.Flags().StringVar(&opts.ModeB, "b", "", "mode B, e.g. B0 (required)")
	cmd.Flags().IntVar(&opts.Resamples, "resamples", 10000, "bootstrap iterations")
	cmd.Flags().Float64Var(&opts.Confidence, "confidence", 0.95, "confidence level in (0,1)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 42, "resampling seed")
	_ = cmd.MarkFlagRequired("metric")
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")

	return cmd
}

func runBootstrap(cmd *cobra.Command, opts *BootstrapOptions) error {
	modeA, err := condition.Parse(opts.ModeA)
	if err != nil {
		return WrapExitError(ExitCommandError, "parse --a", err)
	}
	modeB, err := condition.Parse(opts.ModeB)
	if err != nil {
		return WrapExitError(ExitCommandError, "parse --b", err)
	}

	records, err := opts.Table.Load(cmd.Context())
	if err != nil {
		return err
	}

	statOpts := stats.Options{
		Resamples:  opts.Resamples,
		Confidence: opts.Confidence,
		Seed:       opts.Seed,
	}
	comparisons, err := stats.Compare(records, opts.Metrics, modeA, modeB, statOpts)
	if err != nil {
		return WrapExitError(ExitFailure, "bootstrap failed", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(comparisons, func(w io.Writer) {
		for _, c := range comparisons {
			fmt.Fprintf(w, "%s | %s - %s: %.4f, %d%% CI = [%.4f, %.4f] (n=%d/%d, delta=%.3f, p=%.4f",
				c.Metric, c.ModeA, c.ModeB, c.CI.Point,
				int(c.CI.Confidence*100), c.CI.Lower, c.CI.Upper,
				c.SampleA, c.SampleB, c.Delta, c.PValue)
			if len(comparisons) > 1 {
				fmt.Fprintf(w, ", p_adj=%.4f", c.PAdjusted)
			}
			fmt.Fprintln(w, ")")
		}
		if len(comparisons) > 1 {
			fmt.Fprintln(w, strings.Repeat("-", 8))
			fmt.Fprintf(w, "p_adj is Holm-Bonferroni over %d comparisons\n", len(comparisons))
		}
	})
}

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evalforge/ablate/internal/condition"
	"github.com/evalforge/ablate/internal/contract"
	"github.com/evalforge/ablate/internal/pack"
	"github.com/evalforge/ablate/internal/record"
	"github.com/evalforge/ablate/internal/runner"
	"github.com/evalforge/ablate/internal/store"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Packs     []string
	Modes     string
	Seed      int64
	Out       string
	Database  string
	Label     string
	Workers   int
	Contract  string
	Verifier  string
	Retriever string

	// IDGen overrides run id generation (for testing).
	IDGen store.IDGenerator
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval --packs pack.jsonl[,pack.jsonl...]",
		Short: "Score prompt packs across modes and emit the result table",
		Long: `Score every (pack, item, mode) cell with the deterministic simulator
and assemble the canonical result table.

The table is written as canonical CSV (--out), stored as a run in a
SQLite database (--db), or both.

Example:
  ablate eval --packs packs/ambiguity.jsonl,packs/refusal.jsonl \
    --modes B0,B1,B2,B3 --seed 42 --out runs/ablation.csv`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Packs, "packs", nil, "prompt pack JSONL paths (required)")
	cmd.Flags().StringVar(&opts.Modes, "modes", "B0,B1,B2,B3", "comma-separated modes to evaluate")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 42, "global seed for deterministic simulation")
	cmd.Flags().StringVar(&opts.Out, "out", "", "write the table as canonical CSV")
	cmd.Flags().StringVar(&opts.Database, "db", "", "store the table as a run in this SQLite database")
	cmd.Flags().StringVar(&opts.Label, "label", "", "label for the stored run")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "parallel item workers (output is identical at any count)")
	cmd.Flags().StringVar(&opts.Contract, "contract", "", "contract definition YAML (validated, passed to external pipelines)")
	cmd.Flags().StringVar(&opts.Verifier, "verifier", "", "verifier config (validated, passed to external pipelines)")
	cmd.Flags().StringVar(&opts.Retriever, "retriever", "", "retriever config (validated, passed to external pipelines)")
	_ = cmd.MarkFlagRequired("packs")

	return cmd
}

func runEval(cmd *cobra.Command, opts *EvalOptions) error {
	if opts.Out == "" && opts.Database == "" {
		return NewExitError(ExitCommandError, "no destination: set --out and/or --db")
	}

	modes, err := parseModes(opts.Modes)
	if err != nil {
		return WrapExitError(ExitCommandError, "parse modes", err)
	}

	// Configs are not interpreted by the simulator; they are validated here
	// so a broken file fails the run before any scoring happens.
	if err := loadBoundaryConfigs(opts); err != nil {
		return err
	}

	var packs []runner.Pack
	for _, path := range opts.Packs {
		name, items, err := pack.LoadFile(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "load pack", err)
		}
		slog.Debug("pack loaded", "pack", name, "items", len(items))
		packs = append(packs, runner.Pack{Name: name, Items: items})
	}

	slog.Info("evaluating", "packs", len(packs), "modes", len(modes), "seed", opts.Seed)
	records, err := runner.RunParallel(cmd.Context(), packs, modes,
		runner.Options{Seed: opts.Seed}, opts.Workers)
	if err != nil {
		return WrapExitError(ExitFailure, "evaluation failed", err)
	}
	slog.Info("table assembled", "records", len(records))

	if opts.Out != "" {
		if err := writeTable(opts.Out, records); err != nil {
			return WrapExitError(ExitCommandError, "write table", err)
		}
		slog.Info("table written", "path", opts.Out)
	}

	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "open database", err)
		}
		defer st.Close()
		meta, err := st.SaveRun(cmd.Context(), opts.Label, opts.Seed, records, opts.IDGen)
		if err != nil {
			return WrapExitError(ExitCommandError, "store run", err)
		}
		slog.Info("run stored", "run", meta.ID, "records", meta.Records)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	summary := struct {
		Records int    `json:"records"`
		Seed    int64  `json:"seed"`
		Out     string `json:"out,omitempty"`
		DB      string `json:"db,omitempty"`
	}{len(records), opts.Seed, opts.Out, opts.Database}
	return formatter.Success(summary, func(w io.Writer) {
		fmt.Fprintf(w, "%d records (seed=%d)\n", len(records), opts.Seed)
	})
}

func loadBoundaryConfigs(opts *EvalOptions) error {
	if opts.Contract != "" {
		c, err := contract.LoadContract(opts.Contract)
		if err != nil {
			return WrapExitError(ExitCommandError, "load contract", err)
		}
		slog.Debug("contract loaded", "id", c.ID, "rules", len(c.Rules))
	}
	if opts.Verifier != "" {
		v, err := contract.LoadVerifierConfig(opts.Verifier)
		if err != nil {
			return WrapExitError(ExitCommandError, "load verifier config", err)
		}
		slog.Debug("verifier config loaded", "threshold", v.Threshold)
	}
	if opts.Retriever != "" {
		r, err := contract.LoadRetrieverConfig(opts.Retriever)
		if err != nil {
			return WrapExitError(ExitCommandError, "load retriever config", err)
		}
		slog.Debug("retriever config loaded", "k", r.K)
	}
	return nil
}

func writeTable(path string, records []record.Evaluation) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := record.WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseModes(s string) ([]condition.Condition, error) {
	var modes []condition.Condition
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		mode, err := condition.Parse(part)
		if err != nil {
			return nil, err
		}
		modes = append(modes, mode)
	}
	if len(modes) == 0 {
		return nil, fmt.Errorf("no modes in %q", s)
	}
	return modes, nil
}

// Package runner assembles the canonical result table.
//
// The runner iterates packs -> items -> modes in a fixed order and produces
// exactly one row per cell, either from the deterministic synthesizer or
// from an external pipeline supplied by the caller. The table it returns is
// the single artifact every analysis stage consumes; analyzers treat it as
// an unordered set, the fixed ordering exists only for reproducible output
// and diffs.
package runner

import (
	"context"
	"fmt"

	"github.com/evalforge/ablate/internal/condition"
	"github.com/evalforge/ablate/internal/pack"
	"github.com/evalforge/ablate/internal/record"
	"github.com/evalforge/ablate/internal/synth"
)

// Pack pairs a pack name with its items, in file order.
type Pack struct {
	Name  string
	Items []pack.Item
}

// PipelineFunc scores one (item, pack, mode) cell. The synthesizer is one
// conforming implementation (see SimulatorFunc); a real model pipeline is
// another. The runner treats the call as an opaque synchronous unit: no
// retries, no local recovery, and no interruption once in flight.
type PipelineFunc func(ctx context.Context, item pack.Item, packName string, mode condition.Condition) (record.Evaluation, error)

// Options configures a run.
type Options struct {
	// Seed keys the synthesizer streams. Ignored when Pipeline is set.
	Seed int64

	// Pipeline, when non-nil, replaces the synthesizer. Its output is
	// validated against the row schema; the first violation aborts the run.
	Pipeline PipelineFunc
}

// SimulatorFunc wraps the deterministic synthesizer as a PipelineFunc.
func SimulatorFunc(seed int64) PipelineFunc {
	return func(_ context.Context, item pack.Item, packName string, mode condition.Condition) (record.Evaluation, error) {
		return synth.Synthesize(seed, item.ID, packName, mode)
	}
}

// Run produces the full result table in canonical (pack, item, mode) order.
//
// Every mode is validated up front; an unknown mode fails before any work.
// When Options.Pipeline is set, each returned record is range-checked and a
// SchemaError aborts the run with no partial table. The returned length
// always equals sum(len(items)) * len(modes).
func Run(ctx context.Context, packs []Pack, modes []condition.Condition, opts Options) ([]record.Evaluation, error) {
	if err := validateModes(modes); err != nil {
		return nil, err
	}
	fn, external := opts.Pipeline, opts.Pipeline != nil
	if !external {
		fn = SimulatorFunc(opts.Seed)
	}

	want := expectedCount(packs, modes)
	records := make([]record.Evaluation, 0, want)
	for _, p := range packs {
		for _, item := range p.Items {
			for _, mode := range modes {
				rec, err := fn(ctx, item, p.Name, mode)
				if err != nil {
					return nil, fmt.Errorf("pipeline failed for item %q pack %q mode %s: %w",
						item.ID, p.Name, mode, err)
				}
				if external {
					if err := rec.Validate(); err != nil {
						return nil, err
					}
				}
				records = append(records, rec)
			}
		}
	}

	if len(records) != want {
		// Unreachable unless the loop above is broken; checked because the
		// count is a stated invariant of the table.
		return nil, fmt.Errorf("produced %d records, want %d", len(records), want)
	}
	return records, nil
}

func validateModes(modes []condition.Condition) error {
	if len(modes) == 0 {
		return fmt.Errorf("no modes given")
	}
	for _, m := range modes {
		if _, err := m.Flags(); err != nil {
			return err
		}
	}
	return nil
}

func expectedCount(packs []Pack, modes []condition.Condition) int {
	n := 0
	for _, p := range packs {
		n += len(p.Items)
	}
	return n * len(modes)
}

package runner

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/evalforge/ablate/internal/condition"
	"github.com/evalforge/ablate/internal/record"
)

// RunParallel is Run with the per-item work fanned out across workers.
//
// Scoring a cell is a pure function of its explicit inputs, so items can be
// evaluated on independent goroutines without coordination. Each item's
// records land in a preallocated slot indexed by canonical position, and
// the slots are flattened afterwards, so the output is byte-identical to
// the sequential Run regardless of completion order.
func RunParallel(ctx context.Context, packs []Pack, modes []condition.Condition, opts Options, workers int) ([]record.Evaluation, error) {
	if workers <= 1 {
		return Run(ctx, packs, modes, opts)
	}
	if err := validateModes(modes); err != nil {
		return nil, err
	}
	fn, external := opts.Pipeline, opts.Pipeline != nil
	if !external {
		fn = SimulatorFunc(opts.Seed)
	}

	type job struct {
		slot     int
		packName string
		item     int
		pack     int
	}
	var jobs []job
	for pi, p := range packs {
		for ii := range p.Items {
			jobs = append(jobs, job{slot: len(jobs), packName: p.Name, item: ii, pack: pi})
		}
	}

	slots := make([][]record.Evaluation, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, j := range jobs {
		g.Go(func() error {
			item := packs[j.pack].Items[j.item]
			rows := make([]record.Evaluation, 0, len(modes))
			for _, mode := range modes {
				rec, err := fn(gctx, item, j.packName, mode)
				if err != nil {
					return err
				}
				if external {
					if err := rec.Validate(); err != nil {
						return err
					}
				}
				rows = append(rows, rec)
			}
			slots[j.slot] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]record.Evaluation, 0, expectedCount(packs, modes))
	for _, rows := range slots {
		records = append(records, rows...)
	}
	return records, nil
}

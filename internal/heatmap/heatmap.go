// Package heatmap reduces the result table onto the 2x2 factorial grid of
// intervention flags. The output feeds a plot; rendering is out of scope.
package heatmap

import (
	"math"

	"github.com/evalforge/ablate/internal/condition"
	"github.com/evalforge/ablate/internal/record"
)

// Agg selects the per-cell reduction.
type Agg int

const (
	AggMean Agg = iota
	AggCount
)

// Cell identifies one cell of the factorial grid, keyed by the flags
// derived from each record's mode.
type Cell struct {
	ContractsOn         bool `json:"contracts_on"`
	RetrievalVerifierOn bool `json:"retrieval_verifier_on"`
}

// Grid maps every cell of the 2x2 design to its reduced value. All four
// cells are always present. An empty mean cell holds NaN rather than
// failing: small factorial designs legitimately produce empty cells, and
// one sparse cell must not sink the other three.
type Grid map[Cell]float64

// Cells returns the four grid cells in row-major (contracts, retrieval)
// order, for deterministic rendering.
func Cells() []Cell {
	return []Cell{
		{false, false},
		{false, true},
		{true, false},
		{true, true},
	}
}

// Reduce2x2 groups records by their mode's intervention flags and reduces
// the named metric per cell. A record with an unknown mode is a corrupted
// table and fails with UnknownModeError; an unknown metric name fails
// before any grouping.
func Reduce2x2(records []record.Evaluation, metric string, agg Agg) (Grid, error) {
	sums := make(map[Cell]float64, 4)
	counts := make(map[Cell]int, 4)
	for _, r := range records {
		flags, err := condition.Condition(r.Mode).Flags()
		if err != nil {
			return nil, err
		}
		v, err := r.Metric(metric)
		if err != nil {
			return nil, err
		}
		cell := Cell{flags.ContractsOn, flags.RetrievalVerifierOn}
		sums[cell] += v
		counts[cell]++
	}

	grid := make(Grid, 4)
	for _, cell := range Cells() {
		switch agg {
		case AggCount:
			grid[cell] = float64(counts[cell])
		default:
			if counts[cell] == 0 {
				grid[cell] = math.NaN()
			} else {
				grid[cell] = sums[cell] / float64(counts[cell])
			}
		}
	}
	return grid, nil
}

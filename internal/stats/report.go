package stats

import (
	"sort"

	"github.com/evalforge/ablate/internal/condition"
	"github.com/evalforge/ablate/internal/record"
)

// Comparison is one line of the pre-registration style report: a metric
// compared between two modes with its interval, effect size, and bootstrap
// p-value. The accept/reject call against the registered threshold is left
// to the reader of the report.
type Comparison struct {
	Metric    string              `json:"metric"`
	ModeA     condition.Condition `json:"mode_a"`
	ModeB     condition.Condition `json:"mode_b"`
	CI        Resample            `json:"ci"`
	Delta     float64             `json:"cliffs_delta"`
	PValue    float64             `json:"p_value"`
	PAdjusted float64             `json:"p_adjusted"`
	SampleA   int                 `json:"n_a"`
	SampleB   int                 `json:"n_b"`
}

// Compare runs the bootstrap for each metric between the same two modes
// and attaches Cliff's delta and Holm-Bonferroni adjusted p-values. The
// adjustment spans exactly the comparisons in one call: one call, one
// family of hypotheses.
func Compare(records []record.Evaluation, metrics []string, modeA, modeB condition.Condition, opts Options) ([]Comparison, error) {
	comparisons := make([]Comparison, 0, len(metrics))
	pvalues := make([]float64, 0, len(metrics))

	for _, metric := range metrics {
		diffs, point, err := bootstrapDiffs(records, metric, modeA, modeB, opts)
		if err != nil {
			return nil, err
		}
		groupA, err := MetricGroup(records, metric, modeA)
		if err != nil {
			return nil, err
		}
		groupB, err := MetricGroup(records, metric, modeB)
		if err != nil {
			return nil, err
		}
		alpha := (1 - opts.Confidence) / 2
		p := bootstrapPValue(diffs)
		comparisons = append(comparisons, Comparison{
			Metric: metric,
			ModeA:  modeA,
			ModeB:  modeB,
			CI: Resample{
				Point:      point,
				Lower:      percentile(diffs, alpha),
				Upper:      percentile(diffs, 1-alpha),
				Resamples:  opts.Resamples,
				Confidence: opts.Confidence,
			},
			Delta:   CliffsDelta(groupA, groupB),
			PValue:  p,
			SampleA: len(groupA),
			SampleB: len(groupB),
		})
		pvalues = append(pvalues, p)
	}

	adjusted := HolmBonferroni(pvalues)
	for i := range comparisons {
		comparisons[i].PAdjusted = adjusted[i]
	}
	return comparisons, nil
}

// bootstrapPValue is the two-sided bootstrap p-value: twice the smaller
// tail proportion of the resampled differences around zero, floored at
// 1/resamples so it is never reported as exactly zero.
func bootstrapPValue(sortedDiffs []float64) float64 {
	n := len(sortedDiffs)
	below := sort.SearchFloat64s(sortedDiffs, 0)
	tail := float64(below) / float64(n)
	if other := 1 - tail; other < tail {
		tail = other
	}
	p := 2 * tail
	if floor := 1 / float64(n); p < floor {
		p = floor
	}
	if p > 1 {
		p = 1
	}
	return p
}

// CliffsDelta computes the ordinal effect size between two groups:
// P(a > b) - P(a < b) over all pairs. Ranges over [-1, 1]; 0 means full
// overlap.
func CliffsDelta(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	more, less := 0, 0
	for _, x := range a {
		for _, y := range b {
			switch {
			case x > y:
				more++
			case x < y:
				less++
			}
		}
	}
	return float64(more-less) / float64(len(a)*len(b))
}

// HolmBonferroni returns step-down adjusted p-values in the input order.
// Adjusted values are monotone and capped at 1.
func HolmBonferroni(pvalues []float64) []float64 {
	n := len(pvalues)
	adjusted := make([]float64, n)
	if n == 0 {
		return adjusted
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return pvalues[order[i]] < pvalues[order[j]]
	})

	running := 0.0
	for rank, idx := range order {
		adj := float64(n-rank) * pvalues[idx]
		if adj < running {
			adj = running
		}
		if adj > 1 {
			adj = 1
		}
		running = adj
		adjusted[idx] = adj
	}
	return adjusted
}

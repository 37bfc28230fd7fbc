// Package stats estimates mode-to-mode metric differences.
//
// The estimator is a percentile bootstrap: repeated with-replacement
// resampling of both groups, difference of resample means collected into an
// empirical distribution, interval bounds read off its percentiles. No
// distributional assumptions; no claim of power beyond what the group
// sizes support.
//
// Every resampling iteration draws from its own stream derived from the
// caller's seed and the iteration index, so iterations are reproducible in
// isolation and can run on any number of workers. Partial distributions
// combine by concatenation only - never by averaging partial percentiles.
package stats

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"

	"github.com/evalforge/ablate/internal/condition"
	"github.com/evalforge/ablate/internal/identity"
	"github.com/evalforge/ablate/internal/record"
)

// Resample is the output of one bootstrap comparison. Ephemeral: computed
// on demand, never persisted as part of the table.
type Resample struct {
	// Point is mean(A) - mean(B) on the original, non-resampled groups.
	Point float64 `json:"point"`

	// Lower and Upper bound the difference at the stated confidence.
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`

	// Resamples is the number of bootstrap iterations used.
	Resamples int `json:"resamples"`

	// Confidence is the interval's confidence level, e.g. 0.95.
	Confidence float64 `json:"confidence"`
}

// Options configures the estimator. Defaults match the pre-registered run
// parameters: 10000 resamples at 95% confidence.
type Options struct {
	Resamples  int
	Confidence float64
	Seed       int64
}

// DefaultOptions returns the standard bootstrap configuration.
func DefaultOptions() Options {
	return Options{Resamples: 10000, Confidence: 0.95}
}

// BootstrapDiff estimates the difference of a metric's mean between modeA
// and modeB with a percentile-bootstrap confidence interval.
//
// Records are partitioned by exact mode match; an empty group fails with
// InsufficientDataError. A group of one record degenerates to a zero-width
// interval rather than failing. Identical seed and inputs reproduce the
// identical interval.
func BootstrapDiff(records []record.Evaluation, metric string, modeA, modeB condition.Condition, opts Options) (Resample, error) {
	diffs, point, err := bootstrapDiffs(records, metric, modeA, modeB, opts)
	if err != nil {
		return Resample{}, err
	}
	alpha := (1 - opts.Confidence) / 2
	return Resample{
		Point:      point,
		Lower:      percentile(diffs, alpha),
		Upper:      percentile(diffs, 1-alpha),
		Resamples:  opts.Resamples,
		Confidence: opts.Confidence,
	}, nil
}

// bootstrapDiffs returns the sorted resampled mean differences plus the
// point estimate. Shared by the interval estimator and the reporting layer.
func bootstrapDiffs(records []record.Evaluation, metric string, modeA, modeB condition.Condition, opts Options) ([]float64, float64, error) {
	if opts.Resamples < 1 {
		return nil, 0, fmt.Errorf("resamples must be >= 1, got %d", opts.Resamples)
	}
	if opts.Confidence <= 0 || opts.Confidence >= 1 {
		return nil, 0, fmt.Errorf("confidence must be in (0,1), got %v", opts.Confidence)
	}

	groupA, err := MetricGroup(records, metric, modeA)
	if err != nil {
		return nil, 0, err
	}
	groupB, err := MetricGroup(records, metric, modeB)
	if err != nil {
		return nil, 0, err
	}

	point := mean(groupA) - mean(groupB)
	seedStr := strconv.FormatInt(opts.Seed, 10)

	diffs := make([]float64, opts.Resamples)
	for i := range diffs {
		hi, lo := identity.Seed(identity.DomainResample, seedStr, strconv.Itoa(i))
		rng := rand.New(rand.NewPCG(hi, lo))
		diffs[i] = resampleMean(groupA, rng) - resampleMean(groupB, rng)
	}
	sort.Float64s(diffs)
	return diffs, point, nil
}

// MetricGroup extracts the metric values for all records of one mode.
// Fails with InsufficientDataError when the group is empty and with an
// error for an unknown mode or metric name.
func MetricGroup(records []record.Evaluation, metric string, mode condition.Condition) ([]float64, error) {
	if _, err := mode.Flags(); err != nil {
		return nil, err
	}
	var values []float64
	for _, r := range records {
		if r.Mode != string(mode) {
			continue
		}
		v, err := r.Metric(metric)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, &InsufficientDataError{Mode: string(mode), Metric: metric}
	}
	return values, nil
}

// resampleMean draws a same-size resample with replacement and returns its
// mean. A group of one always resamples to itself.
func resampleMean(group []float64, rng *rand.Rand) float64 {
	sum := 0.0
	for range group {
		sum += group[rng.IntN(len(group))]
	}
	return sum / float64(len(group))
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// percentile reads an empirical percentile from a sorted distribution,
// interpolating linearly between adjacent order statistics.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p * float64(len(sorted)-1)
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}

// InsufficientDataError indicates a bootstrap request on an empty group.
// Surfaced, never retried: resampling nothing cannot estimate anything.
type InsufficientDataError struct {
	Mode   string
	Metric string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("no records for mode %s when estimating %s", e.Mode, e.Metric)
}

// IsInsufficientData returns true if the error is an InsufficientDataError.
// Uses errors.As to handle wrapped errors.
func IsInsufficientData(err error) bool {
	var ie *InsufficientDataError
	return errors.As(err, &ie)
}

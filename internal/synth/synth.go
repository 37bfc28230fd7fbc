// Package synth generates deterministic pseudo-metrics for simulated runs.
//
// Each call derives its own PRNG stream from (seed, item id, pack, mode)
// via domain-separated hashing, so identical inputs always produce the
// bit-identical record, distinct items never share a stream, and calls
// carry no cross-call ordering dependency. The shaping offsets encode the
// direction of each experimental hypothesis: contracts raise adherence,
// retrieval+verifier cuts hallucination and lifts citation quality, and
// either intervention abstains slightly more and answers slightly slower.
package synth

import (
	"math/rand/v2"
	"strconv"

	"github.com/evalforge/ablate/internal/condition"
	"github.com/evalforge/ablate/internal/identity"
	"github.com/evalforge/ablate/internal/record"
)

// Synthesize produces the metric record for one (item, pack, mode) cell.
// Returns an UnknownModeError for a mode outside B0..B3.
func Synthesize(seed int64, itemID, pack string, mode condition.Condition) (record.Evaluation, error) {
	flags, err := mode.Flags()
	if err != nil {
		return record.Evaluation{}, err
	}

	hi, lo := identity.Seed(identity.DomainMetrics,
		strconv.FormatInt(seed, 10), itemID, pack, string(mode))
	rng := rand.New(rand.NewPCG(hi, lo))
	u := func(min, max float64) float64 {
		return min + (max-min)*rng.Float64()
	}

	adherence := u(0.50, 0.70)
	if flags.ContractsOn {
		adherence += u(0.20, 0.25)
	}

	hallucination := u(0.20, 0.35)
	if flags.RetrievalVerifierOn {
		hallucination *= u(0.55, 0.70)
	}

	precision := u(0.40, 0.60)
	recall := u(0.40, 0.60)
	if flags.RetrievalVerifierOn {
		precision += u(0.10, 0.20)
		recall += u(0.10, 0.20)
	}

	// One bump when any intervention is active, plus a small extra for the
	// full stack. Keeps the expected B3-minus-B0 increase at 0.065, under
	// the 0.10 ceiling.
	abstain := u(0.05, 0.15)
	if flags.ContractsOn || flags.RetrievalVerifierOn {
		abstain += u(0.03, 0.08)
	}
	if flags.ContractsOn && flags.RetrievalVerifierOn {
		abstain += u(0.00, 0.02)
	}

	latency := u(300, 900)
	if flags.ContractsOn {
		latency += u(50, 150)
	}
	if flags.RetrievalVerifierOn {
		latency += u(50, 150)
	}

	return record.Evaluation{
		ID:                itemID,
		Pack:              pack,
		Mode:              string(mode),
		ContractAdherence: clamp01(adherence),
		HallucinationRate: clamp01(hallucination),
		CitationPrecision: clamp01(precision),
		CitationRecall:    clamp01(recall),
		AbstainRate:       clamp01(abstain),
		LatencyMS:         max(0, latency),
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Package sweep recomputes accept/abstain/reject aggregates across an
// externally supplied grid of decision thresholds.
//
// The analyzer reports exactly what the classification function yields at
// each threshold. Non-monotonic curves are passed through untouched: a
// precision curve that dips as the threshold rises signals a modeling bug
// worth seeing, not hiding.
package sweep

import (
	"encoding/json"
	"math"

	"github.com/evalforge/ablate/internal/record"
)

// Decision is the outcome of classifying one record at one threshold.
type Decision int

const (
	Accept Decision = iota
	Abstain
	Reject
)

// Classify re-derives the decision for a record at a given threshold.
type Classify func(record.Evaluation, float64) Decision

// Point is the aggregate at one threshold.
//
// Precision is the mean citation precision over accepted records (NaN when
// nothing is accepted). Recall charges rejections against the answerable
// set: summed citation recall of accepted records over all non-abstaining
// records. AbstainRate is the abstaining fraction of the whole input.
type Point struct {
	Threshold   float64 `json:"threshold"`
	Precision   float64 `json:"precision"`
	Recall      float64 `json:"recall"`
	AbstainRate float64 `json:"abstain_rate"`
}

// MarshalJSON renders NaN aggregates as null; encoding/json rejects NaN
// outright, which would make a threshold that accepts nothing fatal.
func (p Point) MarshalJSON() ([]byte, error) {
	opt := func(v float64) *float64 {
		if math.IsNaN(v) {
			return nil
		}
		return &v
	}
	return json.Marshal(struct {
		Threshold   float64  `json:"threshold"`
		Precision   *float64 `json:"precision"`
		Recall      *float64 `json:"recall"`
		AbstainRate *float64 `json:"abstain_rate"`
	}{p.Threshold, opt(p.Precision), opt(p.Recall), opt(p.AbstainRate)})
}

// Sweep evaluates the classifier across the threshold grid.
// Output length equals len(thresholds), in the same order. Thresholds are
// taken as given, never derived from the records.
func Sweep(records []record.Evaluation, thresholds []float64, classify Classify) []Point {
	points := make([]Point, 0, len(thresholds))
	for _, t := range thresholds {
		points = append(points, aggregate(records, t, classify))
	}
	return points
}

func aggregate(records []record.Evaluation, threshold float64, classify Classify) Point {
	var (
		accepted, abstained, rejected int
		precisionSum, recallSum       float64
	)
	for _, r := range records {
		switch classify(r, threshold) {
		case Accept:
			accepted++
			precisionSum += r.CitationPrecision
			recallSum += r.CitationRecall
		case Abstain:
			abstained++
		default:
			rejected++
		}
	}

	p := Point{Threshold: threshold, Precision: math.NaN()}
	if accepted > 0 {
		p.Precision = precisionSum / float64(accepted)
	}
	if answered := accepted + rejected; answered > 0 {
		p.Recall = recallSum / float64(answered)
	} else {
		p.Recall = math.NaN()
	}
	if len(records) > 0 {
		p.AbstainRate = float64(abstained) / float64(len(records))
	} else {
		p.AbstainRate = math.NaN()
	}
	return p
}

// VerifierClassify is the default decision rule for sweeping a verifier
// threshold: abstain when the record already abstains half the time or
// more, otherwise accept iff its citation precision clears the threshold.
func VerifierClassify(r record.Evaluation, threshold float64) Decision {
	if r.AbstainRate >= 0.5 {
		return Abstain
	}
	if r.CitationPrecision >= threshold {
		return Accept
	}
	return Reject
}

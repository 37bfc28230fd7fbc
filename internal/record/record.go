// Package record defines the canonical result-table row and its fixed
// schema. Every stage of the harness - generation, bootstrap, threshold
// sweep, aggregation - consumes this one row type without reinterpretation.
package record

import (
	"errors"
	"fmt"
)

// Metric field names, as they appear in the row schema.
const (
	MetricContractAdherence = "contract_adherence"
	MetricHallucinationRate = "hallucination_rate"
	MetricCitationPrecision = "citation_precision"
	MetricCitationRecall    = "citation_recall"
	MetricAbstainRate       = "abstain_rate"
	MetricLatencyMS         = "latency_ms"
)

// MetricNames lists the numeric fields in schema order.
var MetricNames = []string{
	MetricContractAdherence,
	MetricHallucinationRate,
	MetricCitationPrecision,
	MetricCitationRecall,
	MetricAbstainRate,
	MetricLatencyMS,
}

// Evaluation is one row of the canonical result table.
//
// ID is unique within a (pack, mode) pair and stable across modes for the
// same prompt. The five rate metrics are constrained to [0,1]; latency is
// non-negative. Rows are immutable once produced.
type Evaluation struct {
	ID   string `json:"id"`
	Pack string `json:"pack"`
	Mode string `json:"mode"`

	ContractAdherence float64 `json:"contract_adherence"`
	HallucinationRate float64 `json:"hallucination_rate"`
	CitationPrecision float64 `json:"citation_precision"`
	CitationRecall    float64 `json:"citation_recall"`
	AbstainRate       float64 `json:"abstain_rate"`
	LatencyMS         float64 `json:"latency_ms"`
}

// Metric returns the named numeric field.
// Returns an error for names outside the fixed schema.
func (e Evaluation) Metric(name string) (float64, error) {
	switch name {
	case MetricContractAdherence:
		return e.ContractAdherence, nil
	case MetricHallucinationRate:
		return e.HallucinationRate, nil
	case MetricCitationPrecision:
		return e.CitationPrecision, nil
	case MetricCitationRecall:
		return e.CitationRecall, nil
	case MetricAbstainRate:
		return e.AbstainRate, nil
	case MetricLatencyMS:
		return e.LatencyMS, nil
	}
	return 0, fmt.Errorf("unknown metric %q", name)
}

// Validate range-checks every numeric field against its declared domain.
// A violation is returned as a SchemaError naming the offending field and
// record id. Values are never clamped here: an out-of-range value from an
// external pipeline is a contract breach, not noise.
func (e Evaluation) Validate() error {
	if e.ID == "" {
		return &SchemaError{ID: e.ID, Field: "id", Reason: "empty"}
	}
	if e.Pack == "" {
		return &SchemaError{ID: e.ID, Field: "pack", Reason: "empty"}
	}
	if e.Mode == "" {
		return &SchemaError{ID: e.ID, Field: "mode", Reason: "empty"}
	}
	rates := []struct {
		field string
		value float64
	}{
		{MetricContractAdherence, e.ContractAdherence},
		{MetricHallucinationRate, e.HallucinationRate},
		{MetricCitationPrecision, e.CitationPrecision},
		{MetricCitationRecall, e.CitationRecall},
		{MetricAbstainRate, e.AbstainRate},
	}
	for _, r := range rates {
		if r.value != r.value { // NaN
			return &SchemaError{ID: e.ID, Field: r.field, Value: r.value, Reason: "not a number"}
		}
		if r.value < 0 || r.value > 1 {
			return &SchemaError{ID: e.ID, Field: r.field, Value: r.value, Reason: "outside [0,1]"}
		}
	}
	if e.LatencyMS != e.LatencyMS {
		return &SchemaError{ID: e.ID, Field: MetricLatencyMS, Value: e.LatencyMS, Reason: "not a number"}
	}
	if e.LatencyMS < 0 {
		return &SchemaError{ID: e.ID, Field: MetricLatencyMS, Value: e.LatencyMS, Reason: "negative"}
	}
	return nil
}

// SchemaError reports a row that violates the fixed schema.
// Detection aborts the producing run: no partial table is returned.
type SchemaError struct {
	ID     string
	Field  string
	Value  float64
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema violation in record %q: field %s %s (value=%v)",
		e.ID, e.Field, e.Reason, e.Value)
}

// IsSchemaViolation returns true if the error is a SchemaError.
// Uses errors.As to handle wrapped errors.
func IsSchemaViolation(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

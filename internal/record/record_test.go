package record

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() Evaluation {
	return Evaluation{
		ID:                "x1",
		Pack:              "ambiguity.jsonl",
		Mode:              "B0",
		ContractAdherence: 0.61,
		HallucinationRate: 0.30,
		CitationPrecision: 0.52,
		CitationRecall:    0.49,
		AbstainRate:       0.10,
		LatencyMS:         451,
	}
}

func TestMetric_Accessors(t *testing.T) {
	r := validRecord()
	tests := map[string]float64{
		MetricContractAdherence: 0.61,
		MetricHallucinationRate: 0.30,
		MetricCitationPrecision: 0.52,
		MetricCitationRecall:    0.49,
		MetricAbstainRate:       0.10,
		MetricLatencyMS:         451,
	}
	for name, want := range tests {
		got, err := r.Metric(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}

	_, err := r.Metric("latency")
	require.Error(t, err)
}

func TestValidate_Passes(t *testing.T) {
	require.NoError(t, validRecord().Validate())

	// Domain boundaries are inclusive.
	r := validRecord()
	r.ContractAdherence = 0
	r.HallucinationRate = 1
	r.LatencyMS = 0
	require.NoError(t, r.Validate())
}

func TestValidate_NamesFieldAndRecord(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Evaluation)
		field  string
	}{
		{"rate above one", func(r *Evaluation) { r.CitationPrecision = 1.2 }, MetricCitationPrecision},
		{"rate below zero", func(r *Evaluation) { r.AbstainRate = -0.01 }, MetricAbstainRate},
		{"nan rate", func(r *Evaluation) { r.HallucinationRate = math.NaN() }, MetricHallucinationRate},
		{"negative latency", func(r *Evaluation) { r.LatencyMS = -5 }, MetricLatencyMS},
		{"missing id", func(r *Evaluation) { r.ID = "" }, "id"},
		{"missing mode", func(r *Evaluation) { r.Mode = "" }, "mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(&r)
			err := r.Validate()
			require.Error(t, err)

			var se *SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.field, se.Field)
			assert.True(t, IsSchemaViolation(err))
		})
	}
}

func TestIsSchemaViolation_Wrapped(t *testing.T) {
	r := validRecord()
	r.CitationRecall = 2
	err := fmt.Errorf("external pipeline: %w", r.Validate())
	assert.True(t, IsSchemaViolation(err))
	assert.False(t, IsSchemaViolation(fmt.Errorf("unrelated")))
}

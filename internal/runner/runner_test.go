package runner

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalforge/ablate/internal/condition"
	"github.com/evalforge/ablate/internal/pack"
	"github.com/evalforge/ablate/internal/record"
)

func testPacks() []Pack {
	return []Pack{
		{Name: "ambiguity.jsonl", Items: []pack.Item{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}}},
		{Name: "refusal.jsonl", Items: []pack.Item{{ID: "r1"}, {ID: "r2"}}},
	}
}

func TestRun_CountInvariant(t *testing.T) {
	records, err := Run(context.Background(), testPacks(), condition.All(), Options{Seed: 42})
	require.NoError(t, err)
	assert.Len(t, records, 5*4)
}

func TestRun_CanonicalOrder(t *testing.T) {
	records, err := Run(context.Background(), testPacks(), condition.All(), Options{Seed: 42})
	require.NoError(t, err)

	// packs -> items -> modes.
	i := 0
	for _, p := range testPacks() {
		for _, item := range p.Items {
			for _, mode := range condition.All() {
				assert.Equal(t, p.Name, records[i].Pack)
				assert.Equal(t, item.ID, records[i].ID)
				assert.Equal(t, string(mode), records[i].Mode)
				i++
			}
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	first, err := Run(context.Background(), testPacks(), condition.All(), Options{Seed: 42})
	require.NoError(t, err)
	second, err := Run(context.Background(), testPacks(), condition.All(), Options{Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := Run(context.Background(), testPacks(), condition.All(), Options{Seed: 7})
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestRun_UnknownModeFailsBeforeWork(t *testing.T) {
	calls := 0
	opts := Options{Pipeline: func(_ context.Context, item pack.Item, packName string, mode condition.Condition) (record.Evaluation, error) {
		calls++
		return record.Evaluation{}, nil
	}}
	_, err := Run(context.Background(), testPacks(), []condition.Condition{condition.B0, "B9"}, opts)
	require.Error(t, err)
	assert.True(t, condition.IsUnknownMode(err))
	assert.Zero(t, calls)
}

func TestRun_ExternalPipeline(t *testing.T) {
	opts := Options{Pipeline: func(_ context.Context, item pack.Item, packName string, mode condition.Condition) (record.Evaluation, error) {
		return record.Evaluation{
			ID: item.ID, Pack: packName, Mode: string(mode),
			ContractAdherence: 0.5, HallucinationRate: 0.2,
			CitationPrecision: 0.6, CitationRecall: 0.6,
			AbstainRate: 0.1, LatencyMS: 800,
		}, nil
	}}
	records, err := Run(context.Background(), testPacks(), condition.All(), opts)
	require.NoError(t, err)
	assert.Len(t, records, 20)
	assert.Equal(t, "a1", records[0].ID)
}

func TestRun_ExternalSchemaViolationAborts(t *testing.T) {
	opts := Options{Pipeline: func(_ context.Context, item pack.Item, packName string, mode condition.Condition) (record.Evaluation, error) {
		rec := record.Evaluation{
			ID: item.ID, Pack: packName, Mode: string(mode),
			ContractAdherence: 0.5, HallucinationRate: 0.2,
			CitationPrecision: 0.6, CitationRecall: 0.6,
			AbstainRate: 0.1, LatencyMS: 800,
		}
		if item.ID == "a2" {
			rec.HallucinationRate = 1.7 // out of range
		}
		return rec, nil
	}}
	records, err := Run(context.Background(), testPacks(), condition.All(), opts)
	require.Error(t, err)
	assert.Nil(t, records, "no partial table on abort")

	var se *record.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "a2", se.ID)
	assert.Equal(t, record.MetricHallucinationRate, se.Field)
}

func TestRun_ExternalErrorPropagates(t *testing.T) {
	boom := fmt.Errorf("upstream unavailable")
	opts := Options{Pipeline: func(_ context.Context, item pack.Item, packName string, mode condition.Condition) (record.Evaluation, error) {
		return record.Evaluation{}, boom
	}}
	_, err := Run(context.Background(), testPacks(), condition.All(), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRunParallel_MatchesSequential(t *testing.T) {
	sequential, err := Run(context.Background(), testPacks(), condition.All(), Options{Seed: 42})
	require.NoError(t, err)

	for _, workers := range []int{2, 4, 16} {
		parallel, err := RunParallel(context.Background(), testPacks(), condition.All(), Options{Seed: 42}, workers)
		require.NoError(t, err)
		assert.Equal(t, sequential, parallel, "workers=%d", workers)
	}
}

func TestRunParallel_SchemaViolationAborts(t *testing.T) {
	opts := Options{Pipeline: func(_ context.Context, item pack.Item, packName string, mode condition.Condition) (record.Evaluation, error) {
		return record.Evaluation{ID: item.ID, Pack: packName, Mode: string(mode), LatencyMS: -1}, nil
	}}
	_, err := RunParallel(context.Background(), testPacks(), condition.All(), opts, 4)
	require.Error(t, err)
	assert.True(t, record.IsSchemaViolation(err))
}

func TestRun_EmptyModes(t *testing.T) {
	_, err := Run(context.Background(), testPacks(), nil, Options{Seed: 42})
	require.Error(t, err)
}

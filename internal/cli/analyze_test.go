package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalFixture runs eval into a temp CSV and returns its path.
func evalFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	packPath := writePack(t, dir, "ambiguity.jsonl",
		`{"id":"x1"}`+"\n"+`{"id":"x2"}`+"\n"+`{"id":"x3"}`+"\n"+`{"id":"x4"}`+"\n")
	out := filepath.Join(dir, "table.csv")
	_, err := runCommand(t, "eval", "--packs", packPath, "--seed", "42", "--out", out)
	require.NoError(t, err)
	return out
}

func TestBootstrapCommand_SingleMetric(t *testing.T) {
	csv := evalFixture(t)

	out, err := runCommand(t, "bootstrap", "--csv", csv,
		"--metric", "hallucination_rate", "--a", "B0", "--b", "B2",
		"--resamples", "500", "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "hallucination_rate | B0 - B2:")
	assert.Contains(t, out, "95% CI = [")
	assert.NotContains(t, out, "p_adj", "single comparison has no adjusted p-value")
}

func TestBootstrapCommand_MetricFamilyJSON(t *testing.T) {
	csv := evalFixture(t)

	out, err := runCommand(t, "--format", "json", "bootstrap", "--csv", csv,
		"--metric", "hallucination_rate", "--metric", "contract_adherence",
		"--a", "B3", "--b", "B0", "--resamples", "500", "--seed", "7")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   []struct {
			Metric    string  `json:"metric"`
			PValue    float64 `json:"p_value"`
			PAdjusted float64 `json:"p_adjusted"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)
	for _, c := range resp.Data {
		assert.GreaterOrEqual(t, c.PAdjusted, c.PValue)
	}
}

func TestBootstrapCommand_MissingModeFails(t *testing.T) {
	csv := evalFixture(t)

	_, err := runCommand(t, "bootstrap", "--csv", csv,
		"--metric", "hallucination_rate", "--a", "B0", "--b", "B9")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSweepCommand_GridShape(t *testing.T) {
	csv := evalFixture(t)

	out, err := runCommand(t, "--format", "json", "sweep", "--csv", csv,
		"--mode", "B3", "--min", "0.30", "--max", "0.80", "--steps", "11")
	require.NoError(t, err)

	var resp struct {
		Data []struct {
			Threshold   float64 `json:"threshold"`
			AbstainRate float64 `json:"abstain_rate"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 11)
	assert.InDelta(t, 0.30, resp.Data[0].Threshold, 1e-12)
	assert.InDelta(t, 0.80, resp.Data[10].Threshold, 1e-12)
	for i := 1; i < len(resp.Data); i++ {
		assert.Greater(t, resp.Data[i].Threshold, resp.Data[i-1].Threshold)
	}
}

func TestHeatmapCommand_CountGrid(t *testing.T) {
	csv := evalFixture(t)

	out, err := runCommand(t, "--format", "json", "heatmap", "--csv", csv,
		"--metric", "hallucination_rate", "--agg", "count")
	require.NoError(t, err)

	var resp struct {
		Data map[string]float64 `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 4)
	for key, n := range resp.Data {
		assert.Equal(t, 4.0, n, "cell %s", key)
	}
}

func TestHeatmapCommand_RejectsBadAgg(t *testing.T) {
	csv := evalFixture(t)

	_, err := runCommand(t, "heatmap", "--csv", csv, "--agg", "median")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := `id: clarify-v1
description: ask before answering ambiguous prompts
rules:
  - must_clarify_when_ambiguous
gates:
  min_clarifications: 1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clarify.yaml"), []byte(good), 0o644))

	out, err := runCommand(t, "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 contracts valid")
	assert.Contains(t, out, "clarify-v1 (v0.1.0)")

	bad := "id: 42\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(bad), 0o644))
	_, err = runCommand(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

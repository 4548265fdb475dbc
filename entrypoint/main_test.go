package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"soarbench.org/soar/evaluation"
	"soarbench.org/soar/ontology"
	"soarbench.org/soar/types"
)

const testOBO = `format-version: 1.2

[Term]
id: CL:0000540
name: neuron

[Term]
id: CL:0000100
name: motor neuron
is_a: CL:0000540
`

func setupEnv(t *testing.T) string {
	dir := t.TempDir()
	t.Setenv("SOAR_SECRETS_PATH", filepath.Join(dir, "env.toml"))
	t.Setenv("SOAR_CACHE_PATH", filepath.Join(dir, "cache"))
	t.Setenv("SOAR_RMQ_ENABLED", "false")
	t.Setenv("SOAR_REDIS_ENABLED", "false")
	t.Setenv("SOAR_S3_ENABLED", "false")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestResolveCommand(t *testing.T) {
	dir := setupEnv(t)
	oboPath := filepath.Join(dir, "cl.obo")
	require.NoError(t, os.WriteFile(oboPath, []byte(testOBO), 0644))
	t.Setenv("SOAR_ONTOLOGY_PATH", oboPath)

	out, err := execute(t, "resolve", "Neuron", "unknown thing")
	require.NoError(t, err)

	var resolutions []ontology.Resolution
	require.NoError(t, json.Unmarshal([]byte(out), &resolutions))
	require.Len(t, resolutions, 2)
	require.Equal(t, "CL:0000540", resolutions[0].Match.ID)
	require.False(t, resolutions[1].Match.IsResolved())

	out, err = execute(t, "resolve", "--broad", "motor neuron")
	require.NoError(t, err)
	var broad map[string][]types.CellType
	require.NoError(t, json.Unmarshal([]byte(out), &broad))
	require.Equal(t, "neuron", broad["motor neuron"][0].Name)

	out, err = execute(t, "resolve", "--search", "NEURON")
	require.NoError(t, err)
	var found map[string][]types.Concept
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	require.Len(t, found["NEURON"], 2)
}

func TestScoreCommand(t *testing.T) {
	dir := setupEnv(t)
	pairs := []types.EvalPair{{
		Prediction: types.Prediction{PredictionText: "t cell", ID: "0"},
		Reference:  types.NewNormalizedAnswers("0", []string{"T cell"}),
	}}
	data, err := json.Marshal(pairs)
	require.NoError(t, err)
	resultsPath := filepath.Join(dir, "eval_results.json")
	require.NoError(t, os.WriteFile(resultsPath, data, 0644))

	out, err := execute(t, "score", resultsPath)
	require.NoError(t, err)

	var report evaluation.ScoreReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, 1, report.Count)
	require.InDelta(t, 1.0, report.ROUGE.Rouge1, 1e-9)
}

func TestCommandErrors(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("SOAR_CONFIG_PATH", dir)

	_, err := execute(t, "score")
	require.Error(t, err)

	_, err = execute(t, "annotate", "missing")
	require.Error(t, err)

	_, err = execute(t, "eval", "--chat-results", "a.json")
	require.Error(t, err)
}

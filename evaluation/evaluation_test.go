package evaluation

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"soarbench.org/soar/cleansing"
	"soarbench.org/soar/lemmatizer"
	"soarbench.org/soar/storage"
	"soarbench.org/soar/types"
)

type fixture struct {
	dataset, label, answer string
	references             []string
}

// writeRun stores a chat results file and its normalized answers.
func writeRun(t *testing.T, dir, name string, fixtures []fixture) (string, string) {
	ctx := context.Background()
	store := storage.New(nil)
	results := make([]types.AnnotationResult, len(fixtures))
	refs := types.ReferenceSet{}
	for i, f := range fixtures {
		sample := types.Sample{Index: i, Dataset: f.dataset, Tissue: "Brain", Genes: []string{"GFAP"}, Label: f.label}
		results[i] = types.AnnotationResult{
			Index:  i,
			Sample: sample,
			Messages: []types.GeneratedOutput{{GeneratedText: types.Conversation{
				{Role: types.RoleUser, Content: "question"},
			}.WithAssistant(f.answer)}},
		}
		refs[strconv.Itoa(i)] = types.ReferenceEntry{
			Sample:            sample,
			NormalizedAnswers: types.NewNormalizedAnswers(strconv.Itoa(i), f.references),
		}
	}
	chatPath := filepath.Join(dir, name+".json")
	refsPath := filepath.Join(dir, name+"_normalized.json")
	require.NoError(t, storage.WriteJSON(ctx, store, chatPath, results))
	require.NoError(t, storage.WriteJSON(ctx, store, refsPath, refs))
	return chatPath, refsPath
}

func newEvaluator() *Evaluator {
	normalizer := cleansing.New(lemmatizer.NewSingularizer(lemmatizer.DefaultNounRules()))
	return NewEvaluator(storage.New(nil), normalizer, nil)
}

func TestRunAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	chat1, refs1 := writeRun(t, dir, "hcl_ts", []fixture{
		{"HCL", "Astrocytes", "Astrocytes.\nThey express GFAP", []string{"Astrocytes", "astrocyte"}},
		{"TS", "CD4+ T cells", "T cells, CD4+", []string{"CD4+ T cells", "CD4-positive, alpha-beta T cell"}},
	})
	chat2, refs2 := writeRun(t, dir, "hcl_extra", []fixture{
		{"HCL", "Microglia", "Microglia", []string{"Microglia"}},
	})

	params := Params{
		ChatResultsPaths:       []string{chat1, chat2},
		NormalizedAnswersPaths: []string{refs1, refs2},
		ResultsPath:            filepath.Join(dir, "eval", "squad_eval.json"),
		Strategy:               cleansing.DefaultStrategy(),
		SaveResults:            true,
		GroupBy:                types.GroupByDataset,
	}
	evaluator := newEvaluator()
	report, err := evaluator.Run(context.Background(), params)
	require.NoError(t, err)

	require.Equal(t, 3, report.Count)
	require.InDelta(t, 200.0/3, report.SQuAD.ExactMatch, 1e-9)
	require.InDelta(t, 100*(1+2.0/3+1)/3, report.SQuAD.F1, 1e-9)
	require.Greater(t, report.BLEU.BLEU, 0.0)
	require.Greater(t, report.METEOR, 0.0)

	require.Len(t, report.Groups, 2)
	require.Equal(t, "HCL", report.Groups[0].Name)
	require.Equal(t, 2, report.Groups[0].Count)
	require.InDelta(t, 100.0, report.Groups[0].SQuAD.ExactMatch, 1e-9)
	require.Equal(t, "TS", report.Groups[1].Name)
	require.InDelta(t, 0.0, report.Groups[1].SQuAD.ExactMatch, 1e-9)
	require.InDelta(t, 200.0/3, report.Groups[1].SQuAD.F1, 1e-9)

	var pairs []types.EvalPair
	require.NoError(t, storage.ReadJSON(context.Background(), storage.New(nil), params.ResultsPath, &pairs))
	require.Len(t, pairs, 3)
	require.Equal(t, "2", pairs[2].Prediction.ID)
	require.Equal(t, "2", pairs[2].Reference.ID)
	require.Equal(t, "Astrocyte", pairs[0].Prediction.PredictionText)
	require.Equal(t, "T cell", pairs[1].Prediction.PredictionText)

	// the source files keep their own ids
	var normalized types.ReferenceSet
	require.NoError(t, storage.ReadJSON(context.Background(), storage.New(nil), refs2, &normalized))
	require.Equal(t, "0", normalized["0"].NormalizedAnswers.ID)

	scores, err := evaluator.ScoreResults(context.Background(), []string{params.ResultsPath})
	require.NoError(t, err)
	require.Equal(t, 3, scores.Count)
	require.Equal(t, report.BLEU, scores.BLEU)
	require.Equal(t, report.ROUGE, scores.ROUGE)
	require.Equal(t, report.METEOR, scores.METEOR)
	require.Contains(t, scores.Metrics(), "rougeLsum")
}

func TestRunWithoutSavingOrGroups(t *testing.T) {
	dir := t.TempDir()
	chat, refs := writeRun(t, dir, "run", []fixture{
		{"HCL", "Astrocytes", "Astrocytes", []string{"Astrocytes"}},
	})
	params := Params{
		ChatResultsPaths:       []string{chat},
		NormalizedAnswersPaths: []string{refs, refs},
		ResultsPath:            filepath.Join(dir, "unused.json"),
		Strategy:               cleansing.DefaultStrategy(),
	}
	report, err := newEvaluator().Run(context.Background(), params)
	require.NoError(t, err)
	require.Equal(t, 1, report.Count)
	require.Empty(t, report.Groups)
	require.Equal(t, 100.0, report.Metrics()["exact_match"])

	_, statErr := os.Stat(params.ResultsPath)
	require.True(t, os.IsNotExist(statErr))
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	chat, _ := writeRun(t, dir, "run", []fixture{{"HCL", "Astrocytes", "Astrocytes", []string{"Astrocytes"}}})
	_, emptyRefs := writeRun(t, dir, "empty", nil)

	testCases := []struct {
		name   string
		params Params
	}{
		{"bad group", Params{GroupBy: "organ"}},
		{"missing reference", Params{ChatResultsPaths: []string{chat}, NormalizedAnswersPaths: []string{emptyRefs}}},
		{"unknown profile", Params{ChatResultsPaths: []string{chat}, NormalizedAnswersPaths: []string{emptyRefs}, Strategy: cleansing.Profile("gpt-5")}},
		{"missing file", Params{ChatResultsPaths: []string{filepath.Join(dir, "absent.json")}, NormalizedAnswersPaths: []string{emptyRefs}}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := newEvaluator().Run(context.Background(), testCase.params)
			require.Error(t, err)
		})
	}
}

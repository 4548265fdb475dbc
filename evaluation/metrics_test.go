package evaluation

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"soarbench.org/soar/types"
)

const tolerance = 1e-9

func refs(id string, texts ...string) types.NormalizedAnswers {
	return types.NewNormalizedAnswers(id, texts)
}

func TestNormalizeAnswer(t *testing.T) {
	require.Equal(t, "cd4 tcells", NormalizeAnswer("The CD4+  T-cells."))
	require.Equal(t, "cell", NormalizeAnswer("an (a) cell"))
	require.Equal(t, "theta cell", NormalizeAnswer("Theta cell"))
}

func TestSQuAD(t *testing.T) {
	references := []types.NormalizedAnswers{
		refs("0", "Astrocytes", "astrocyte"),
		refs("1", "T cells"),
		refs("2", "B cell"),
	}
	predictions := []types.Prediction{
		{PredictionText: "astrocytes.", ID: "0"},
		{PredictionText: "the T cell", ID: "1"},
	}

	score := SQuAD(predictions, references)
	require.InDelta(t, 100.0/3, score.ExactMatch, tolerance)
	require.InDelta(t, 50.0, score.F1, tolerance)

	require.Equal(t, SQuADScore{}, SQuAD(predictions, nil))
}

func TestTokenize13a(t *testing.T) {
	require.Equal(t,
		[]string{"CD4", "+", "T-cells", ",", "(", "naive", ")", "."},
		Tokenize13a("CD4+ T-cells, (naive)."))
	require.Equal(t, []string{"3.5", "&", "1,000", "<", "x"}, Tokenize13a("3.5 &amp; 1,000 &lt;x"))
	require.Equal(t, []string{"IL2", "cells"}, Tokenize13a("IL-\n2 cells"))
	require.Equal(t, []string{"10", "-", "fold"}, Tokenize13a("10-fold"))
}

func TestBLEU(t *testing.T) {
	t.Run("perfect", func(t *testing.T) {
		score := BLEU([]string{"t cell"}, [][]string{{"t cell"}}, 2)
		require.InDelta(t, 1.0, score.BLEU, tolerance)
		require.Equal(t, []float64{1, 1}, score.Precisions)
		require.Equal(t, 2, score.TranslationLength)
		require.Equal(t, 2, score.ReferenceLength)
	})

	t.Run("multiple references", func(t *testing.T) {
		score := BLEU([]string{"cd4 t cell"}, [][]string{{"t cell", "helper t cell"}}, 2)
		require.InDeltaSlice(t, []float64{2.0 / 3, 0.5}, score.Precisions, tolerance)
		require.InDelta(t, math.Sqrt(1.0/3), score.BLEU, tolerance)
		require.InDelta(t, 1.5, score.LengthRatio, tolerance)
		require.Equal(t, 1.0, score.BrevityPenalty)
		require.Equal(t, 2, score.ReferenceLength)
	})

	t.Run("brevity penalty", func(t *testing.T) {
		score := BLEU([]string{"cell"}, [][]string{{"t cell"}}, 2)
		require.Zero(t, score.BLEU)
		require.Equal(t, []float64{1, 0}, score.Precisions)
		require.InDelta(t, math.Exp(-1), score.BrevityPenalty, tolerance)
	})

	t.Run("empty", func(t *testing.T) {
		score := BLEU(nil, nil, 2)
		require.Zero(t, score.BLEU)
		require.Zero(t, score.LengthRatio)
	})
}

func TestROUGE(t *testing.T) {
	score := ROUGE([]string{"t cell"}, [][]string{{"T cells"}})
	require.InDelta(t, 0.5, score.Rouge1, tolerance)
	require.Zero(t, score.Rouge2)
	require.InDelta(t, 0.5, score.RougeL, tolerance)
	require.InDelta(t, 0.5, score.RougeLsum, tolerance)

	score = ROUGE([]string{"t cell", "t cell"}, [][]string{{"T cells"}, {"T cells", "t cell"}})
	require.InDelta(t, 0.75, score.Rouge1, tolerance)
	require.InDelta(t, 0.5, score.Rouge2, tolerance)
	require.InDelta(t, 0.75, score.RougeL, tolerance)

	require.Equal(t, ROUGEScore{}, ROUGE(nil, nil))
}

func TestRougeLsum(t *testing.T) {
	require.InDelta(t, 1.0, rougeLsum("a b\nc d", "a b c d").fmeasure, tolerance)
	require.InDelta(t, 0.5, rougeL([]string{"a", "b", "c", "d"}, []string{"c", "d", "a", "b"}).fmeasure, tolerance)
	require.Zero(t, rougeLsum("", "a b").fmeasure)
}

func TestMETEOR(t *testing.T) {
	stem := func(w string) string { return strings.TrimSuffix(w, "s") }

	require.InDelta(t, 0.9375, METEOR([]string{"t cell"}, [][]string{{"t cell"}}, nil), tolerance)
	require.InDelta(t, 0.5, METEOR([]string{"cell t"}, [][]string{{"t cell"}}, nil), tolerance)
	require.InDelta(t, 0.25, METEOR([]string{"t cells"}, [][]string{{"t cell"}}, nil), tolerance)
	require.InDelta(t, 0.9375, METEOR([]string{"t cells"}, [][]string{{"t cell"}}, stem), tolerance)
	require.Zero(t, METEOR([]string{"neuron"}, [][]string{{"t cell"}}, nil))
	require.InDelta(t, 0.625, METEOR([]string{"activated t cell"}, [][]string{{"activation t cell"}}, nil), tolerance)
	require.InDelta(t, 1-0.5/27, METEOR([]string{"activated t cell"}, [][]string{{"activation t cell"}}, PorterStem), tolerance)

	// best reference per prediction, then the mean
	require.InDelta(t, (0.9375+0.5)/2,
		METEOR([]string{"t cell", "cell t"}, [][]string{{"b cell", "t cell"}, {"t cell"}}, nil), tolerance)
}

func TestPorterStem(t *testing.T) {
	require.Equal(t, PorterStem("activation"), PorterStem("activated"))
	require.Equal(t, "cell", PorterStem("cells"))
	require.Equal(t, "t", PorterStem("t"))
}

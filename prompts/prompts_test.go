package prompts

import (
	"testing"

	"github.com/stretchr/testify/require"

	"soarbench.org/soar/types"
)

var genes = []string{"GFAP", "AQP4", "SLC1A3"}

func userTurn(t *testing.T, name string, opts Options) string {
	template, err := Get(name)
	require.NoError(t, err)
	conv, err := template.Messages("Brain", genes, opts)
	require.NoError(t, err)
	require.Len(t, conv, 2)
	require.Equal(t, types.RoleSystem, conv[0].Role)
	require.Equal(t, types.RoleUser, conv[1].Role)
	return conv[1].Content
}

func TestTemplates(t *testing.T) {
	reasoning := "GFAP and AQP4 mark astroglia."

	testCases := []struct {
		name     string
		template string
		opts     Options
		expected string
	}{
		{"ranked gene", types.PromptRankedGene, Options{},
			"Identify the cell type of Brain using the following markers, GFAP, AQP4, SLC1A3."},
		{"zero shot", types.PromptZeroShot, Options{},
			"Given the following markers [GFAP, AQP4, SLC1A3], what is the specific cell type in Brain corresponding to these markers? The most likely cell type (directly return one cell type name) is"},
		{"zero shot scact", types.PromptZeroShotSCACT, Options{},
			"Given the following markers [GFAP, AQP4, SLC1A3], what is the specific cell type in Brain corresponding to these markers? The most likely specific cell type in Brain (directly return one cell type name) is"},
		{"cot first pass", types.PromptZeroShotCoT, Options{},
			"Given the following markers [GFAP, AQP4, SLC1A3], what is the specific cell type in Brain corresponding to these markers? Let's think step by step."},
		{"cot second pass", types.PromptZeroShotCoT, Options{Reasoning: &reasoning},
			"Given the following markers [GFAP, AQP4, SLC1A3], what is the specific cell type in Brain corresponding to these markers? Let's think step by step. GFAP and AQP4 mark astroglia. In summary, the most likely cell type (directly return one cell type name) is"},
		{"cot scact second pass", types.PromptZeroShotCoTSCACT, Options{Reasoning: &reasoning},
			"Given the following markers [GFAP, AQP4, SLC1A3], what is the specific cell type in Brain corresponding to these markers? Let's think step by step. GFAP and AQP4 mark astroglia. In summary, the most likely specific cell type in Brain (directly return one cell type name) is"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.expected, userTurn(t, testCase.template, testCase.opts))
		})
	}
}

func TestSystemPrompts(t *testing.T) {
	zero, _ := Get(types.PromptZeroShot)
	conv, err := zero.Messages("Brain", genes, Options{})
	require.NoError(t, err)
	require.Contains(t, conv[0].Content, "carefully considering")

	ranked, _ := Get(types.PromptRankedGene)
	conv, err = ranked.Messages("Brain", genes, Options{})
	require.NoError(t, err)
	require.Contains(t, conv[0].Content, "carefully consiering")
}

func TestFewShot(t *testing.T) {
	demos := types.Demos{
		{GeneNames: []string{"CD3E", "CD4"}, Tissue: "Blood", Reasoning: "CD3E marks T cells.", CellType: "CD4 T cell"},
		{GeneNames: []string{"MS4A1"}, Tissue: "Spleen", Reasoning: "MS4A1 is CD20.", CellType: "B cell"},
	}
	expected := "Question: Given the following markers [CD3E, CD4], what is the cell type in Blood corresponding to these markers?\n" +
		"Let's think step by step.\nCD3E marks T cells.\nIn summary, the most likely cell type (one cell type name) is CD4 T cell\n\n" +
		"Question: Given the following markers [MS4A1], what is the cell type in Spleen corresponding to these markers?\n" +
		"Let's think step by step.\nMS4A1 is CD20.\nIn summary, the most likely cell type (one cell type name) is B cell\n\n" +
		"Question: Given the following markers [GFAP, AQP4, SLC1A3], what is the specific cell type in Brain corresponding to these markers?"
	require.Equal(t, expected, userTurn(t, types.PromptFewShot, Options{Demos: demos}))

	template, _ := Get(types.PromptFewShot)
	_, err := template.Messages("Brain", genes, Options{})
	require.ErrorIs(t, err, ErrMissingDemo)
}

func TestUnknownTemplate(t *testing.T) {
	_, err := Get("one_shot")
	require.ErrorIs(t, err, ErrUnknownTemplate)
}

package lemmatizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSingularizer(t *testing.T) {
	singular := NewSingularizer(nil)

	cases := []struct {
		in, out string
	}{
		{"cells", "cell"},
		{"Neurons", "Neuron"},
		{"monocytes", "monocyte"},
		{"macrophages", "macrophage"},
		{"cell", "cell"},
		{"is", "is"},
		{"mice", "mouse"},
		{"Mice", "Mouse"},
		{"nucleus", "nucleus"},
		{"analysis", "analysis"},
		{"T", "T"},
		{"CD4+", "CD4+"},
		{"12", "12"},
		{"nerves", "nerve"},
		{"leaves", "leaf"},
		{"waves", "wave"},
		{"men", "man"},
		{"glass", "glass"},
	}

	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			require.Equal(t, c.out, singular(c.in))
		})
	}
}

func TestSingularizerKeepsSingulars(t *testing.T) {
	singular := NewSingularizer(nil)

	for _, word := range []string{
		"beta", "Beta", "delta", "theta", "zeta", "eta", "iota", "gamma",
		"propria", "lamina", "Langerhans", "pancreas", "stroma", "plasma",
		"epithelium", "nerve", "cortex", "progenitor", "B",
	} {
		t.Run(word, func(t *testing.T) {
			require.Equal(t, word, singular(word))
		})
	}
}

func TestSingularizerWords(t *testing.T) {
	singular := NewSingularizer(nil)
	require.Equal(t, "motor neuron", singular.Words("motor   neurons"))
	require.Equal(t, "Pancreatic beta cell", singular.Words("Pancreatic beta cells"))
	require.Equal(t, "Gamma delta T cell", singular.Words("Gamma delta T cells"))
	require.Equal(t, "Lamina propria macrophage", singular.Words("Lamina propria macrophages"))
	require.Equal(t, "islet of Langerhans", singular.Words("islets of Langerhans"))
	require.Equal(t, "", singular.Words("   "))
}

func TestLoadNounRules(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, NounRuleFile), []byte("ies|y\nes|\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, NounBaseFile), []byte("progeny\nglia\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, NounExcFile), []byte("glias|glia\n"), 0o644))

	rules, err := LoadNounRules(dir)
	require.NoError(t, err)
	require.Len(t, rules.NounRule, 2)

	singular := NewSingularizer(rules)
	require.Equal(t, "progeny", singular("progenies"))
	require.Equal(t, "glia", singular("glias"))
	require.Equal(t, "glia", singular("glia"))
	// defaults survive
	require.Equal(t, "is", singular("is"))
}

func TestLoadNounRulesMissingDir(t *testing.T) {
	rules, err := LoadNounRules(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	require.Empty(t, rules.NounRule)

	rules, err = LoadNounRules("")
	require.NoError(t, err)
	require.Equal(t, "mouse", rules.NounExc["mice"])
}

func TestReadRuleListRejectsBadRows(t *testing.T) {
	p := filepath.Join(t.TempDir(), NounRuleFile)
	require.NoError(t, os.WriteFile(p, []byte("ies|y\nbroken\n"), 0o644))
	_, err := ReadRuleList(p)
	require.Error(t, err)
}

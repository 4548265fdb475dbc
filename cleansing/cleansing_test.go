package cleansing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanDefaultStrategy(t *testing.T) {
	n := New(nil)

	cases := []struct {
		name, in, out string
	}{
		{"markdown answer", "**GABAergic Interneuron**.\n\nThe presence of markers such as CNR1", "GABAergic Interneuron"},
		{"no delimiters", "  Motor neurons  ", "Motor neuron"},
		{"stops at comma", "B cells, most likely", "B cell"},
		{"quotes and colons", `"T cells: CD4"`, "T cell CD4"},
		{"leading delimiter", ".B cell", ""},
		{"empty", "", ""},
		{"greek letter", "Pancreatic beta cells.", "Pancreatic beta cell"},
		{"two greek letters", "Gamma delta T cells", "Gamma delta T cell"},
		{"latin adjective", "Lamina propria macrophages", "Lamina propria macrophage"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := n.Clean(c.in, DefaultStrategy(), "")
			require.NoError(t, err)
			require.Equal(t, c.out, got)
		})
	}
}

func TestCleanProfiles(t *testing.T) {
	n := New(nil)

	t.Run("qwen2-72b", func(t *testing.T) {
		got, err := n.Clean("In summary, the most likely cell type (one cell type name) is motor neurons. However", Profile("qwen2-72b"), "")
		require.NoError(t, err)
		require.Equal(t, "motor neuron", got)
	})

	t.Run("no match is empty", func(t *testing.T) {
		got, err := n.Clean("I cannot tell", Profile("qwen2-72b"), "")
		require.NoError(t, err)
		require.Equal(t, "", got)
	})

	t.Run("first pattern wins", func(t *testing.T) {
		got, err := n.Clean("The cell type is Astrocytes. Microglia are the cell type", Profile("zero-shot-qwen2-72b"), "")
		require.NoError(t, err)
		require.Equal(t, "Astrocyte", got)
	})

	t.Run("second pattern whole match", func(t *testing.T) {
		got, err := n.Clean("Astrocytes are the cell type", Profile("zero-shot-qwen2-72b"), "")
		require.NoError(t, err)
		require.Equal(t, "Astrocyte are the cell type", got)
	})

	t.Run("unknown profile is fatal", func(t *testing.T) {
		_, err := n.Clean("anything", Profile("llama-3"), "")
		require.True(t, errors.Is(err, ErrUnknownProfile))
	})
}

func TestCleanExplicitPattern(t *testing.T) {
	n := New(nil)

	got, err := n.Clean("Answer: Oligodendrocytes.", ExplicitPattern(`Answer: ([^\.]+)`, 1), "")
	require.NoError(t, err)
	require.Equal(t, "Oligodendrocyte", got)

	got, err = n.Clean("Answer:", ExplicitPattern(`Answer:(\s*)`, 1), "")
	require.NoError(t, err)
	require.Equal(t, "", got)

	_, err = n.Clean("Answer: x", ExplicitPattern(`Answer: (x)`, 2), "")
	require.True(t, errors.Is(err, ErrGroupIndex))

	_, err = n.Clean("x", ExplicitPattern(`(`, 0), "")
	require.Error(t, err)
}

func TestCleanGPT4Activated(t *testing.T) {
	n := New(nil)

	got, err := n.Clean("Activated T cells", DefaultStrategy(), "gpt-4o")
	require.NoError(t, err)
	require.Equal(t, "Activated T cell", got)

	got, err = n.Clean("activated T cells", DefaultStrategy(), "gpt-4o")
	require.NoError(t, err)
	require.Equal(t, "T cell", got)

	got, err = n.Clean("activated T cells", DefaultStrategy(), "qwen2-72b")
	require.NoError(t, err)
	require.Equal(t, "activated T cell", got)
}

func TestStrategyFromOptions(t *testing.T) {
	require.Equal(t, ExplicitPattern("p", 2), StrategyFromOptions("p", 2, "qwen2-72b"))
	require.Equal(t, Profile("qwen2-72b"), StrategyFromOptions("", 0, "qwen2-72b"))
	require.Equal(t, DefaultStrategy(), StrategyFromOptions("", 0, ""))
}

func TestProfilesIsACopy(t *testing.T) {
	p := Profiles()
	p["qwen2-72b"][0].Group = 7
	delete(p, "zero-shot-qwen2-72b")

	require.Equal(t, 1, Profiles()["qwen2-72b"][0].Group)
	require.Equal(t, []string{"qwen2-72b", "zero-shot-qwen2-72b"}, ProfileNames())
}

package ontology

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"soarbench.org/soar/types"
)

// Graph is a read-only concept graph. Node order is load order.
type Graph struct {
	nodes []types.Concept
	index map[string]int
}

// FromConcepts builds a graph from concepts in scan order. Ids must be unique.
func FromConcepts(concepts []types.Concept) (*Graph, error) {
	g := &Graph{
		nodes: make([]types.Concept, 0, len(concepts)),
		index: make(map[string]int, len(concepts)),
	}
	for _, c := range concepts {
		if c.ID == "" {
			return nil, fmt.Errorf("concept %q has no id", c.Label)
		}
		if _, ok := g.index[c.ID]; ok {
			return nil, fmt.Errorf("duplicate concept id %s", c.ID)
		}
		c.Label = norm.NFC.String(c.Label)
		g.index[c.ID] = len(g.nodes)
		g.nodes = append(g.nodes, c)
	}
	return g, nil
}

func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns a copy of the concepts in scan order.
func (g *Graph) Nodes() []types.Concept {
	out := make([]types.Concept, len(g.nodes))
	copy(out, g.nodes)
	return out
}

func (g *Graph) Concept(id string) (types.Concept, bool) {
	i, ok := g.index[id]
	if !ok {
		return types.Concept{}, false
	}
	return g.nodes[i], true
}

// Label returns the label of id, or "" for nodes outside the graph.
func (g *Graph) Label(id string) string {
	c, _ := g.Concept(id)
	return c.Label
}

// Parents returns the direct parent ids of id.
func (g *Graph) Parents(id string) []string {
	c, ok := g.Concept(id)
	if !ok {
		return nil
	}
	return append([]string(nil), c.Parents...)
}

// Search returns the concepts whose label contains q, case-insensitively.
func (g *Graph) Search(q string) []types.Concept {
	q = strings.ToLower(norm.NFC.String(q))
	var out []types.Concept
	for _, c := range g.nodes {
		if c.Label != "" && strings.Contains(strings.ToLower(c.Label), q) {
			out = append(out, c)
		}
	}
	return out
}

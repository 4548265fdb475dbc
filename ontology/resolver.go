package ontology

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"soarbench.org/soar/types"
)

// Resolution is the outcome of mapping one name onto the graph. Candidates is
// only set when ambiguity was requested and more than one node matched; Match
// is then unresolved.
type Resolution struct {
	Match      types.CellType   `json:"match"`
	Candidates []types.CellType `json:"candidates,omitempty"`
}

func (r Resolution) IsAmbiguous() bool {
	return len(r.Candidates) > 1
}

type Resolver struct {
	graph *Graph
}

func NewResolver(g *Graph) *Resolver {
	return &Resolver{graph: g}
}

func (r *Resolver) Graph() *Graph {
	return r.graph
}

// Resolve scans every labeled node. An exact case-insensitive match returns at
// once; otherwise nodes whose label contains the name, or is contained in it,
// are candidates. Several candidates are disambiguated by fuzzy similarity
// unless returnAmbiguity is set. No candidate yields an unresolved cell type.
// A blank or whitespace-only name is unresolved without scanning, although as
// a substring it would match every label.
func (r *Resolver) Resolve(name string, returnAmbiguity bool) Resolution {
	query := strings.ToLower(norm.NFC.String(name))
	if strings.TrimSpace(query) == "" {
		return Resolution{Match: types.Unresolved(name)}
	}

	var matches []types.CellType
	for _, node := range r.graph.nodes {
		if node.Label == "" {
			continue
		}
		label := strings.ToLower(node.Label)
		ct := types.CellType{Name: node.Label, ID: node.ID, OriginalName: name}

		if strings.Contains(label, query) {
			matches = append(matches, ct)
		}
		if strings.Contains(query, label) {
			matches = append(matches, ct)
		}
		if label == query {
			return Resolution{Match: ct}
		}
	}

	switch {
	case len(matches) == 1:
		return Resolution{Match: matches[0]}
	case len(matches) > 1:
		if returnAmbiguity {
			return Resolution{Match: types.Unresolved(name), Candidates: matches}
		}
		return Resolution{Match: bestMatch(name, matches)}
	}
	return Resolution{Match: types.Unresolved(name)}
}

// bestMatch picks the highest scoring label. Labels are deduplicated keeping
// their first position, but a repeated label resolves to its last candidate.
// Ties go to the earliest label.
func bestMatch(name string, matches []types.CellType) types.CellType {
	var labels []string
	last := make(map[string]int, len(matches))
	for i, m := range matches {
		if _, ok := last[m.Name]; !ok {
			labels = append(labels, m.Name)
		}
		last[m.Name] = i
	}

	best, bestScore := labels[0], -1.0
	for _, label := range labels {
		if sc := score(name, label); sc > bestScore {
			best, bestScore = label, sc
		}
	}
	return matches[last[best]]
}

// MapName resolves name to a single cell type.
func (r *Resolver) MapName(name string) types.CellType {
	return r.Resolve(name, false).Match
}

// BroadTypes returns the direct parents of ct, each carrying ct's original name.
func (r *Resolver) BroadTypes(ct types.CellType) []types.CellType {
	if ct.ID == "" {
		return nil
	}
	parents := r.graph.Parents(ct.ID)
	out := make([]types.CellType, 0, len(parents))
	for _, p := range parents {
		out = append(out, types.CellType{Name: r.graph.Label(p), ID: p, OriginalName: ct.OriginalName})
	}
	return out
}

func (r *Resolver) MapNameToBroadType(name string) []types.CellType {
	return r.BroadTypes(r.MapName(name))
}

// Synonyms returns the synonyms of the concept behind ct.
func (r *Resolver) Synonyms(ct types.CellType) []string {
	c, ok := r.graph.Concept(ct.ID)
	if !ok {
		return nil
	}
	return append([]string(nil), c.Synonyms...)
}

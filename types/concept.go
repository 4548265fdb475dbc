package types

// Concept is a node of the cell ontology graph.
type Concept struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Synonyms   []string `json:"synonyms,omitempty"`
	Definition string   `json:"definition,omitempty"`
	Parents    []string `json:"parents,omitempty"`
}

// CellType is the result of mapping a free text name onto the ontology.
// An unresolved name has empty Name and ID and keeps only OriginalName.
type CellType struct {
	Name         string `json:"name"`
	ID           string `json:"id"`
	OriginalName string `json:"original_name"`
}

func Unresolved(name string) CellType {
	return CellType{OriginalName: name}
}

func (ct CellType) IsResolved() bool {
	return ct.ID != "" || ct.Name != ""
}

// DecodedTerm is a flattened remote ontology search result.
type DecodedTerm struct {
	PrefLabel  string        `json:"prefLabel"`
	Synonym    []string      `json:"synonym"`
	Definition string        `json:"definition"`
	Parents    []DecodedTerm `json:"parents,omitempty"`
}

// FallbackTerm is returned when the remote search has no results.
func FallbackTerm(name string) DecodedTerm {
	return DecodedTerm{PrefLabel: name, Synonym: []string{}, Definition: ""}
}

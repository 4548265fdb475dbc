package types

import (
	"bytes"
	"encoding/json"
)

type Demo struct {
	GeneNames []string `json:"gene_names"`
	Tissue    string   `json:"tissue"`
	Reasoning string   `json:"reasoning"`
	CellType  string   `json:"cell_type"`
}

// Demos is the few-shot demonstration list attached to a sample.
// An empty list is written as "" to stay compatible with existing result files.
type Demos []Demo

func (d Demos) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte(`""`), nil
	}
	return json.Marshal([]Demo(d))
}

func (d *Demos) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] == '"' || bytes.Equal(trimmed, []byte("null")) {
		*d = nil
		return nil
	}
	var list []Demo
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return err
	}
	*d = list
	return nil
}

type Sample struct {
	Index     int      `json:"index"`
	Dataset   string   `json:"dataset"`
	Tissue    string   `json:"tissue"`
	Genes     []string `json:"genes"`
	Label     string   `json:"label"`
	LabelCL   string   `json:"label_cl"`
	LabelID   string   `json:"label_id"`
	BroadType string   `json:"broadtype"`
	Demo      Demos    `json:"demo"`
}

// GroupKey returns the sample attribute used to group evaluation scores.
func (s Sample) GroupKey(groupBy string) string {
	switch groupBy {
	case GroupByDataset:
		return s.Dataset
	case GroupByTissue:
		return s.Tissue
	}
	return ""
}

const (
	GroupByNone    = ""
	GroupByDataset = "dataset"
	GroupByTissue  = "tissue"
)

// AnnotationResult is one element of an annotation results file.
type AnnotationResult struct {
	Index    int               `json:"index"`
	Sample   Sample            `json:"sample"`
	Messages []GeneratedOutput `json:"messages"`
}

// Answer returns the last turn of the first generated conversation.
func (r AnnotationResult) Answer() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].GeneratedText.LastContent()
}

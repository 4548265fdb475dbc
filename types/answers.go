package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Prediction struct {
	PredictionText string `json:"prediction_text"`
	ID             string `json:"id"`
}

type Answers struct {
	AnswerStart []int    `json:"answer_start"`
	Text        []string `json:"text"`
}

type NormalizedAnswers struct {
	Answers Answers `json:"answers"`
	ID      string  `json:"id"`
}

func NewNormalizedAnswers(id string, labels []string) NormalizedAnswers {
	starts := make([]int, len(labels))
	for i := range starts {
		starts[i] = -1
	}
	return NormalizedAnswers{
		Answers: Answers{AnswerStart: starts, Text: labels},
		ID:      id,
	}
}

type ReferenceEntry struct {
	Sample            Sample            `json:"sample"`
	NormalizedAnswers NormalizedAnswers `json:"normalized_answers"`
}

// ReferenceSet maps a problem id to its acceptable answers.
type ReferenceSet map[string]ReferenceEntry

// EvalPair is stored as a two element JSON array [prediction, reference].
type EvalPair struct {
	Prediction Prediction
	Reference  NormalizedAnswers
}

func (p EvalPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{p.Prediction, p.Reference})
}

func (p *EvalPair) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("evaluation pair should have 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Prediction); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &p.Reference)
}

// JobSummary is published when a batch job finishes.
type JobSummary struct {
	RunID    string             `json:"run_id"`
	Job      string             `json:"job"`
	Output   string             `json:"output"`
	Count    int                `json:"count"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`
	Finished string             `json:"finished"`
}

func NewJobSummary(job, output string, count int) JobSummary {
	return JobSummary{
		RunID:    uuid.NewString(),
		Job:      job,
		Output:   output,
		Count:    count,
		Finished: time.Now().UTC().Format(time.RFC3339),
	}
}

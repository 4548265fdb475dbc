package task

import (
	"context"
	"errors"
	"fmt"

	"soarbench.org/soar/types"
)

type pipelineMock struct {
	fail   bool
	panics bool
	calls  [][]types.Conversation
	closed bool
}

func (m *pipelineMock) Generate(_ context.Context, conversations []types.Conversation, _ types.GenerationConfig) ([][]types.GeneratedOutput, error) {
	m.calls = append(m.calls, conversations)
	if m.panics {
		panic("device lost")
	}
	if m.fail {
		return nil, errors.New("generation failed")
	}
	outputs := make([][]types.GeneratedOutput, len(conversations))
	for i, conversation := range conversations {
		answer := fmt.Sprintf("pass %d answer %d", len(m.calls), i)
		outputs[i] = []types.GeneratedOutput{{GeneratedText: conversation.WithAssistant(answer)}}
	}
	return outputs, nil
}

func (m *pipelineMock) Close() error {
	m.closed = true
	return nil
}

type sourceMock struct {
	samples []types.Sample
}

func (s *sourceMock) Len() int {
	return len(s.samples)
}

func (s *sourceMock) Sample(i int) (types.Sample, error) {
	return s.samples[i], nil
}

func newSource(n int, demos types.Demos) *sourceMock {
	source := &sourceMock{}
	for i := 0; i < n; i++ {
		source.samples = append(source.samples, types.Sample{
			Index:   i,
			Dataset: "HCL",
			Tissue:  "Brain",
			Genes:   []string{"GFAP", "AQP4", "SLC1A3", "ALDH1L1"},
			Label:   fmt.Sprintf("label %d", i),
			Demo:    demos,
		})
	}
	return source
}

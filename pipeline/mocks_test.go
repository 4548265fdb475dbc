package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/sashabaranov/go-openai"
)

type completerMockConfig struct {
	fail   bool
	answer string
	empty  bool
}

type completerMock struct {
	mu                 sync.Mutex
	config             completerMockConfig
	chatRequests       []openai.ChatCompletionRequest
	completionRequests []openai.CompletionRequest
}

func (m *completerMock) CreateChatCompletion(_ context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatRequests = append(m.chatRequests, request)
	if m.config.fail {
		return openai.ChatCompletionResponse{}, errors.New("service unavailable")
	}
	if m.config.empty {
		return openai.ChatCompletionResponse{}, nil
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.config.answer},
		}},
	}, nil
}

func (m *completerMock) CreateCompletion(_ context.Context, request openai.CompletionRequest) (openai.CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completionRequests = append(m.completionRequests, request)
	if m.config.fail {
		return openai.CompletionResponse{}, errors.New("service unavailable")
	}
	if m.config.empty {
		return openai.CompletionResponse{}, nil
	}
	return openai.CompletionResponse{
		Choices: []openai.CompletionChoice{{Text: m.config.answer}},
	}, nil
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"soarbench.org/soar/logger"
	"soarbench.org/soar/types"
)

var (
	ErrUnknownPipeline = errors.New("unknown pipeline class")
	ErrNoChoices       = errors.New("completion returned no choices")
	ErrMissingEndpoint = errors.New("pipeline endpoint is not configured")
)

// zeroTemperature stands in for 0, which the request encoder drops as empty.
const zeroTemperature = math.SmallestNonzeroFloat32

// Pipeline appends one assistant turn to every conversation. Each element of
// the result holds a single generated conversation.
type Pipeline interface {
	Generate(ctx context.Context, conversations []types.Conversation, gen types.GenerationConfig) ([][]types.GeneratedOutput, error)
	Close() error
}

// Completer is the subset of *openai.Client used by the backends.
type Completer interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateCompletion(ctx context.Context, request openai.CompletionRequest) (openai.CompletionResponse, error)
}

type options struct {
	completer Completer
	seed      *int
}

type Option func(*options)

// WithCompleter replaces the HTTP client built from the pipeline config.
func WithCompleter(completer Completer) Option {
	return func(o *options) { o.completer = completer }
}

func WithSeed(seed int) Option {
	return func(o *options) { o.seed = &seed }
}

func New(cfg types.PipelineConfig, opts ...Option) (Pipeline, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	log := logger.NewLogger("Pipeline").With().
		Str("pipeline_class", cfg.PipelineClassName).
		Str("model", cfg.ModelName).
		Logger()

	switch cfg.PipelineClassName {
	case types.LocalPipelineClass:
		completer, err := completerFor(o.completer, cfg.BaseURL, cfg.HuggingfaceToken)
		if err != nil {
			return nil, err
		}
		return newLocal(cfg, completer, o.seed, log), nil
	case types.Cell2SentPipelineClass:
		baseURL := cfg.FinetunedBaseURL
		if baseURL == "" {
			baseURL = cfg.BaseURL
		}
		completer, err := completerFor(o.completer, baseURL, cfg.HuggingfaceToken)
		if err != nil {
			return nil, err
		}
		return newCell2Sent(cfg, completer, o.seed, log), nil
	case types.ChatGPTPipelineClass:
		completer := o.completer
		if completer == nil {
			config := openai.DefaultConfig(cfg.OpenAIToken)
			if cfg.BaseURL != "" {
				config.BaseURL = cfg.BaseURL
			}
			completer = openai.NewClientWithConfig(config)
		}
		return newChatGPT(cfg, completer, o.seed, log), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPipeline, cfg.PipelineClassName)
}

// completerFor builds a client for a self-hosted OpenAI compatible server.
func completerFor(completer Completer, baseURL, token string) (Completer, error) {
	if completer != nil {
		return completer, nil
	}
	if baseURL == "" {
		return nil, ErrMissingEndpoint
	}
	if token == "" {
		token = "EMPTY"
	}
	config := openai.DefaultConfig(token)
	config.BaseURL = strings.TrimRight(baseURL, "/")
	return openai.NewClientWithConfig(config), nil
}

func chatMessages(conversation types.Conversation) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, len(conversation))
	for i, msg := range conversation {
		messages[i] = openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content}
	}
	return messages
}

func chatContent(response openai.ChatCompletionResponse) (string, error) {
	if len(response.Choices) == 0 {
		return "", ErrNoChoices
	}
	return response.Choices[0].Message.Content, nil
}

func single(conversation types.Conversation, answer string) []types.GeneratedOutput {
	return []types.GeneratedOutput{{GeneratedText: conversation.WithAssistant(answer)}}
}

// generateEach runs generate on each conversation in order and stops at the first failure.
func generateEach(ctx context.Context, log zerolog.Logger, conversations []types.Conversation,
	generate func(context.Context, types.Conversation) (string, error)) ([][]types.GeneratedOutput, error) {
	results := make([][]types.GeneratedOutput, 0, len(conversations))
	for i, conversation := range conversations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		answer, err := generate(ctx, conversation)
		if err != nil {
			log.Error().Err(err).Int("conversation", i).Msg("Generation failed")
			return nil, fmt.Errorf("conversation %d: %w", i, err)
		}
		results = append(results, single(conversation, answer))
	}
	return results, nil
}

package pipeline

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"soarbench.org/soar/types"
)

const llama3Terminator = "<|eot_id|>"

// localPipeline talks to a chat model served from a local checkpoint.
type localPipeline struct {
	cfg       types.PipelineConfig
	completer Completer
	seed      *int
	log       zerolog.Logger
}

func newLocal(cfg types.PipelineConfig, completer Completer, seed *int, log zerolog.Logger) *localPipeline {
	return &localPipeline{cfg: cfg, completer: completer, seed: seed, log: log}
}

func (p *localPipeline) request(conversation types.Conversation, gen types.GenerationConfig) openai.ChatCompletionRequest {
	request := openai.ChatCompletionRequest{
		Model:       p.cfg.ModelName,
		Messages:    chatMessages(conversation),
		MaxTokens:   gen.MaxNewTokens,
		Temperature: zeroTemperature,
		Seed:        p.seed,
	}
	if gen.DoSample {
		request.Temperature = gen.Temperature
		request.TopP = gen.TopP
	}
	if strings.Contains(p.cfg.ModelName, "Meta-Llama-3") {
		request.Stop = []string{llama3Terminator}
	}
	return request
}

func (p *localPipeline) Generate(ctx context.Context, conversations []types.Conversation, gen types.GenerationConfig) ([][]types.GeneratedOutput, error) {
	return generateEach(ctx, p.log, conversations, func(ctx context.Context, conversation types.Conversation) (string, error) {
		response, err := p.completer.CreateChatCompletion(ctx, p.request(conversation, gen))
		if err != nil {
			return "", err
		}
		return chatContent(response)
	})
}

func (p *localPipeline) Close() error {
	return nil
}

package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"soarbench.org/soar/types"
)

var legacyEngines = map[string]string{
	"gpt3":        "text-ada-001",
	"gpt3-medium": "text-babbage-001",
	"gpt3-large":  "text-curie-001",
	"gpt3-xl":     "text-davinci-002",
}

func engineFor(model string) string {
	if engine, ok := legacyEngines[model]; ok {
		return engine
	}
	return model
}

type chatGPTPipeline struct {
	cfg       types.PipelineConfig
	completer Completer
	seed      *int
	limiter   *rate.Limiter
	log       zerolog.Logger
}

func newChatGPT(cfg types.PipelineConfig, completer Completer, seed *int, log zerolog.Logger) *chatGPTPipeline {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.APITimeInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Duration(cfg.APITimeInterval*float64(time.Second))), 1)
		// every call waits a full interval, the first one included
		limiter.Allow()
	}
	return &chatGPTPipeline{cfg: cfg, completer: completer, seed: seed, limiter: limiter, log: log}
}

func (p *chatGPTPipeline) Generate(ctx context.Context, conversations []types.Conversation, gen types.GenerationConfig) ([][]types.GeneratedOutput, error) {
	engine := engineFor(p.cfg.ModelName)
	return generateEach(ctx, p.log, conversations, func(ctx context.Context, conversation types.Conversation) (string, error) {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", err
		}
		response, err := p.completer.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       engine,
			Messages:    chatMessages(conversation),
			MaxTokens:   gen.MaxNewTokens,
			Temperature: zeroTemperature,
			Seed:        p.seed,
		})
		if err != nil {
			return "", err
		}
		return chatContent(response)
	})
}

func (p *chatGPTPipeline) Close() error {
	return nil
}

package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"soarbench.org/soar/types"
)

const (
	cell2SentMaxTokens = 2048
	cell2SentTopP      = 0.95
)

var bracketedGenes = regexp.MustCompile(`\[(.*?)\]`)

// cell2SentPipeline prompts a model fine-tuned on cell sentences: gene names
// ordered by expression, separated by spaces.
type cell2SentPipeline struct {
	cfg       types.PipelineConfig
	completer Completer
	seed      *int
	log       zerolog.Logger
}

func newCell2Sent(cfg types.PipelineConfig, completer Completer, seed *int, log zerolog.Logger) *cell2SentPipeline {
	return &cell2SentPipeline{cfg: cfg, completer: completer, seed: seed, log: log}
}

// CellSentencePrompt rewrites the bracketed marker list of the last user turn
// into the cell sentence prompt.
func CellSentencePrompt(conversation types.Conversation) (string, error) {
	match := bracketedGenes.FindStringSubmatch(conversation.LastContent())
	if match == nil {
		return "", fmt.Errorf("no bracketed gene list in %q", conversation.LastContent())
	}
	genes := strings.Fields(strings.ReplaceAll(match[1], ",", " "))
	return fmt.Sprintf("Identify the cell type most likely associated with these %d highly expressed genes listed in descending order. ", len(genes)) +
		strings.Join(genes, " ") +
		" The expected cell type based on these genes is: ", nil
}

func (p *cell2SentPipeline) Generate(ctx context.Context, conversations []types.Conversation, _ types.GenerationConfig) ([][]types.GeneratedOutput, error) {
	return generateEach(ctx, p.log, conversations, func(ctx context.Context, conversation types.Conversation) (string, error) {
		prompt, err := CellSentencePrompt(conversation)
		if err != nil {
			return "", err
		}
		response, err := p.completer.CreateCompletion(ctx, openai.CompletionRequest{
			Model:     p.cfg.ModelName,
			Prompt:    prompt,
			MaxTokens: cell2SentMaxTokens,
			TopP:      cell2SentTopP,
			Seed:      p.seed,
		})
		if err != nil {
			return "", err
		}
		if len(response.Choices) == 0 {
			return "", ErrNoChoices
		}
		return response.Choices[0].Text, nil
	})
}

func (p *cell2SentPipeline) Close() error {
	return nil
}

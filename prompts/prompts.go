package prompts

import (
	"errors"
	"fmt"
	"strings"

	"soarbench.org/soar/types"
)

var (
	ErrMissingDemo     = errors.New("few-shot prompt requires demonstrations")
	ErrUnknownTemplate = errors.New("unknown prompt template")
)

// The misspelling is kept so prompts stay byte-identical across runs.
const (
	systemPrompt          = "You are a biology expert who always responds the cell type annotation result by carefully consiering the markers provided by the user."
	zeroShotSystemPrompt  = "You are a biology expert who always responds the cell type annotation result by carefully considering the markers provided by the user."
	cotTrigger            = "Let's think step by step."
	directAnswerTrigger   = "The most likely cell type (directly return one cell type name) is"
	cotAnswerTrigger      = "In summary, the most likely cell type (directly return one cell type name) is"
	fewShotAnswerTemplate = "In summary, the most likely cell type (one cell type name) is %s"
)

type Options struct {
	// Reasoning is the first pass answer of a chain-of-thought prompt.
	Reasoning *string
	Demos     types.Demos
}

type Template interface {
	Messages(tissue string, genes []string, opts Options) (types.Conversation, error)
}

type templateFunc func(tissue, genes string, opts Options) (types.Conversation, error)

func (f templateFunc) Messages(tissue string, genes []string, opts Options) (types.Conversation, error) {
	return f(tissue, strings.Join(genes, ", "), opts)
}

var templates = map[string]Template{
	types.PromptRankedGene:       templateFunc(rankedGene),
	types.PromptZeroShot:         templateFunc(zeroShot),
	types.PromptZeroShotSCACT:    templateFunc(zeroShotSCACT),
	types.PromptZeroShotCoT:      templateFunc(zeroShotCoT),
	types.PromptZeroShotCoTSCACT: templateFunc(zeroShotCoTSCACT),
	types.PromptFewShot:          templateFunc(fewShot),
}

func Get(name string) (Template, error) {
	template, ok := templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	return template, nil
}

func conversation(system, user string) types.Conversation {
	return types.Conversation{
		{Role: types.RoleSystem, Content: system},
		{Role: types.RoleUser, Content: user},
	}
}

func question(tissue, genes string) string {
	return fmt.Sprintf("Given the following markers [%s], what is the specific cell type in %s corresponding to these markers?", genes, tissue)
}

func rankedGene(tissue, genes string, _ Options) (types.Conversation, error) {
	return conversation(systemPrompt,
		fmt.Sprintf("Identify the cell type of %s using the following markers, %s.", tissue, genes)), nil
}

func zeroShot(tissue, genes string, _ Options) (types.Conversation, error) {
	return conversation(zeroShotSystemPrompt, question(tissue, genes)+" "+directAnswerTrigger), nil
}

func zeroShotSCACT(tissue, genes string, _ Options) (types.Conversation, error) {
	trigger := fmt.Sprintf("The most likely specific cell type in %s (directly return one cell type name) is", tissue)
	return conversation(systemPrompt, question(tissue, genes)+" "+trigger), nil
}

func chainOfThought(tissue, genes string, opts Options, answerTrigger string) types.Conversation {
	user := question(tissue, genes) + " " + cotTrigger
	if opts.Reasoning != nil {
		user += " " + *opts.Reasoning + " " + answerTrigger
	}
	return conversation(systemPrompt, user)
}

func zeroShotCoT(tissue, genes string, opts Options) (types.Conversation, error) {
	return chainOfThought(tissue, genes, opts, cotAnswerTrigger), nil
}

func zeroShotCoTSCACT(tissue, genes string, opts Options) (types.Conversation, error) {
	trigger := fmt.Sprintf("In summary, the most likely specific cell type in %s (directly return one cell type name) is", tissue)
	return chainOfThought(tissue, genes, opts, trigger), nil
}

func fewShot(tissue, genes string, opts Options) (types.Conversation, error) {
	if opts.Demos == nil {
		return nil, ErrMissingDemo
	}
	demos := make([]string, 0, len(opts.Demos))
	for _, demo := range opts.Demos {
		demoQuestion := fmt.Sprintf("Question: Given the following markers [%s], what is the cell type in %s corresponding to these markers?",
			strings.Join(demo.GeneNames, ", "), demo.Tissue)
		answer := fmt.Sprintf(fewShotAnswerTemplate, demo.CellType)
		demos = append(demos, strings.Join([]string{demoQuestion, cotTrigger, demo.Reasoning, answer}, "\n"))
	}
	user := strings.Join(demos, "\n\n") + "\n\nQuestion: " + question(tissue, genes)
	return conversation(systemPrompt, user), nil
}

package task

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"soarbench.org/soar/dataset"
	"soarbench.org/soar/logger"
	"soarbench.org/soar/pipeline"
	"soarbench.org/soar/prompts"
	"soarbench.org/soar/storage"
	"soarbench.org/soar/types"
	"soarbench.org/soar/utils"
)

const configFileName = "config.json"

// Deps lets callers inject the pieces Run needs. Nil fields are built from the config.
type Deps struct {
	Store    storage.Store
	Source   dataset.Source
	Pipeline pipeline.Pipeline
}

type AnnotationTask struct {
	cfg      types.TaskConfig
	store    storage.Store
	source   dataset.Source
	pipeline pipeline.Pipeline
	template prompts.Template
	log      zerolog.Logger
}

func NewAnnotationTask(ctx context.Context, cfg types.TaskConfig, deps Deps) (*AnnotationTask, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	template, err := prompts.Get(cfg.PromterName)
	if err != nil {
		return nil, err
	}

	store := deps.Store
	if store == nil {
		store = storage.New(nil)
	}
	source := deps.Source
	if source == nil {
		if source, err = dataset.Open(ctx, store, cfg.Dataset); err != nil {
			return nil, err
		}
	}
	ppln := deps.Pipeline
	if ppln == nil {
		if ppln, err = pipeline.New(cfg.Pipeline, pipeline.WithSeed(cfg.RandomSeed)); err != nil {
			return nil, err
		}
	}

	return &AnnotationTask{
		cfg:      cfg,
		store:    store,
		source:   source,
		pipeline: ppln,
		template: template,
		log: logger.NewLogger("AnnotationTask").With().
			Str("experiment", cfg.Name).
			Str("model_custom_id", cfg.Pipeline.ModelCustomID).
			Logger(),
	}, nil
}

// ResultsPath is where Run writes the annotation results.
func (t *AnnotationTask) ResultsPath() string {
	return storage.Join(t.cfg.OutputFolder, t.cfg.Pipeline.ModelCustomID+".json")
}

// Run annotates every sample in batches and writes config.json and the
// results file to the output folder.
func (t *AnnotationTask) Run(ctx context.Context) (results []types.AnnotationResult, err error) {
	defer utils.RecoverWithError(&err)
	defer func() {
		if closeErr := t.pipeline.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err = storage.WriteJSON(ctx, t.store, storage.Join(t.cfg.OutputFolder, configFileName), t.cfg); err != nil {
		return nil, err
	}

	total := t.source.Len()
	batchSize := t.cfg.Pipeline.BatchSize
	results = make([]types.AnnotationResult, 0, total)
	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}
		batch, err := t.samples(start, end)
		if err != nil {
			return nil, err
		}

		responses, err := t.annotate(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("batch [%d, %d): %w", start, end, err)
		}
		for i, response := range responses {
			results = append(results, types.AnnotationResult{
				Index:    batch[i].Index,
				Sample:   batch[i],
				Messages: response,
			})
			t.log.Debug().Int("index", batch[i].Index).Str("answer", results[len(results)-1].Answer()).Msg("Annotated sample")
		}
		t.log.Info().Int("done", end).Int("total", total).Msg("Finished batch")
	}

	if err = storage.WriteJSON(ctx, t.store, t.ResultsPath(), results); err != nil {
		return nil, err
	}
	t.log.Info().Str("path", t.ResultsPath()).Int("count", len(results)).Msg("Saved annotation results")
	return results, nil
}

func (t *AnnotationTask) samples(start, end int) ([]types.Sample, error) {
	batch := make([]types.Sample, 0, end-start)
	for i := start; i < end; i++ {
		sample, err := t.source.Sample(i)
		if err != nil {
			return nil, err
		}
		batch = append(batch, sample)
	}
	return batch, nil
}

// annotate runs one generation pass, or two for chain-of-thought prompts
// where the first answer is fed back as reasoning.
func (t *AnnotationTask) annotate(ctx context.Context, batch []types.Sample) ([][]types.GeneratedOutput, error) {
	conversations, err := t.prepareInput(batch, nil)
	if err != nil {
		return nil, err
	}
	responses, err := t.pipeline.Generate(ctx, conversations, t.cfg.Generation)
	if err != nil {
		return nil, err
	}
	if !types.IsCoTPrompt(t.cfg.PromterName) {
		return responses, nil
	}

	if conversations, err = t.prepareInput(batch, responses); err != nil {
		return nil, err
	}
	return t.pipeline.Generate(ctx, conversations, t.cfg.Generation)
}

func (t *AnnotationTask) prepareInput(batch []types.Sample, firstPass [][]types.GeneratedOutput) ([]types.Conversation, error) {
	conversations := make([]types.Conversation, len(batch))
	for i, sample := range batch {
		opts := prompts.Options{}
		switch {
		case t.cfg.PromterName == types.PromptFewShot:
			opts.Demos = sample.Demo
		case firstPass != nil:
			if len(firstPass[i]) == 0 {
				return nil, fmt.Errorf("sample %d: empty first pass response", sample.Index)
			}
			reasoning := firstPass[i][0].GeneratedText.LastContent()
			opts.Reasoning = &reasoning
		}

		conversation, err := t.template.Messages(sample.Tissue, limitGenes(sample.Genes, t.cfg.GeneNumLimit), opts)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", sample.Index, err)
		}
		conversations[i] = conversation
	}
	return conversations, nil
}

// limitGenes keeps the first limit genes. A limit <= 0 keeps all of them.
func limitGenes(genes []string, limit int) []string {
	if limit > 0 && limit < len(genes) {
		return genes[:limit]
	}
	return genes
}

package normalization

import (
	"context"
	"fmt"
	"strconv"

	"soarbench.org/soar/bioportal"
	"soarbench.org/soar/logger"
	"soarbench.org/soar/ontology"
	"soarbench.org/soar/storage"
	"soarbench.org/soar/types"
	"soarbench.org/soar/utils"
)

type Params struct {
	ChatResultsPath          string
	NormalizedAnswersPath    string
	PossibleLabelMappingPath string
}

// LabelResolver returns the preferred ontology label of a ground truth label
// followed by its synonyms.
type LabelResolver interface {
	Labels(ctx context.Context, label string) ([]string, error)
}

// RemoteResolver asks BioPortal for the top search hit.
type RemoteResolver struct {
	Decoder *bioportal.Decoder
}

func (r RemoteResolver) Labels(ctx context.Context, label string) ([]string, error) {
	terms, err := r.Decoder.DecodeOne(ctx, label, 1)
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return []string{label}, nil
	}
	return append([]string{terms[0].PrefLabel}, terms[0].Synonym...), nil
}

// LocalResolver maps labels onto a loaded ontology graph.
type LocalResolver struct {
	Resolver *ontology.Resolver
}

func (r LocalResolver) Labels(_ context.Context, label string) ([]string, error) {
	ct := r.Resolver.MapName(label)
	if !ct.IsResolved() {
		return []string{label}, nil
	}
	return append([]string{ct.Name}, r.Resolver.Synonyms(ct)...), nil
}

// Run builds the reference answers for every annotation result and writes
// them to params.NormalizedAnswersPath.
func Run(ctx context.Context, store storage.Store, params Params, resolver LabelResolver) (types.ReferenceSet, error) {
	log := logger.NewLogger("LabelMapping").With().Str("chat_results", params.ChatResultsPath).Logger()

	var results []types.AnnotationResult
	if err := storage.ReadJSON(ctx, store, params.ChatResultsPath, &results); err != nil {
		return nil, err
	}

	labelMapping := map[string]string{}
	if params.PossibleLabelMappingPath != "" {
		if err := storage.ReadJSON(ctx, store, params.PossibleLabelMappingPath, &labelMapping); err != nil {
			return nil, err
		}
	}

	references := make(types.ReferenceSet, len(results))
	for _, result := range results {
		problemID := strconv.Itoa(result.Index)

		rawLabel := result.Sample.Label
		if mapped, ok := labelMapping[rawLabel]; ok {
			rawLabel = mapped
		}

		normalized, err := resolver.Labels(ctx, rawLabel)
		if err != nil {
			return nil, fmt.Errorf("problem %s: normalize %q: %w", problemID, rawLabel, err)
		}
		labels := Union(append([]string{rawLabel}, normalized...))
		log.Debug().Str("id", problemID).Strs("labels", labels).Msg("Normalized label")

		references[problemID] = types.ReferenceEntry{
			Sample:            result.Sample,
			NormalizedAnswers: types.NewNormalizedAnswers(problemID, labels),
		}
	}

	if err := storage.WriteJSON(ctx, store, params.NormalizedAnswersPath, references); err != nil {
		return nil, err
	}
	log.Info().Str("path", params.NormalizedAnswersPath).Int("count", len(references)).Msg("Saved normalized answers")
	return references, nil
}

// Union drops repeated labels and keeps the first occurrence of each.
func Union(labels []string) []string {
	return utils.Unique(labels)
}

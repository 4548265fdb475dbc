package evaluation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"soarbench.org/soar/cleansing"
	"soarbench.org/soar/logger"
	"soarbench.org/soar/storage"
	"soarbench.org/soar/types"
)

const bleuMaxOrder = 2

type Params struct {
	ChatResultsPaths       []string
	NormalizedAnswersPaths []string
	ResultsPath            string
	Strategy               cleansing.Strategy
	ModelName              string
	SaveResults            bool
	GroupBy                string
}

type GroupReport struct {
	Name  string     `json:"name"`
	Count int        `json:"count"`
	SQuAD SQuADScore `json:"squad"`
	BLEU  BLEUScore  `json:"bleu"`
}

type Report struct {
	Count  int           `json:"count"`
	SQuAD  SQuADScore    `json:"squad"`
	BLEU   BLEUScore     `json:"bleu"`
	ROUGE  ROUGEScore    `json:"rouge"`
	METEOR float64       `json:"meteor"`
	Groups []GroupReport `json:"groups,omitempty"`
}

// Metrics flattens the overall scores for job notifications.
func (r Report) Metrics() map[string]float64 {
	return map[string]float64{
		"exact_match": r.SQuAD.ExactMatch,
		"f1":          r.SQuAD.F1,
		"bleu":        r.BLEU.BLEU,
		"rouge1":      r.ROUGE.Rouge1,
		"rouge2":      r.ROUGE.Rouge2,
		"rougeL":      r.ROUGE.RougeL,
		"rougeLsum":   r.ROUGE.RougeLsum,
		"meteor":      r.METEOR,
	}
}

type ScoreReport struct {
	Count  int        `json:"count"`
	BLEU   BLEUScore  `json:"bleu"`
	ROUGE  ROUGEScore `json:"rouge"`
	METEOR float64    `json:"meteor"`
}

func (r ScoreReport) Metrics() map[string]float64 {
	return map[string]float64{
		"bleu":      r.BLEU.BLEU,
		"rouge1":    r.ROUGE.Rouge1,
		"rouge2":    r.ROUGE.Rouge2,
		"rougeL":    r.ROUGE.RougeL,
		"rougeLsum": r.ROUGE.RougeLsum,
		"meteor":    r.METEOR,
	}
}

// Evaluator scores cleaned model answers against normalized references.
type Evaluator struct {
	store      storage.Store
	normalizer *cleansing.Normalizer
	stem       func(string) string
	log        zerolog.Logger
}

func NewEvaluator(store storage.Store, normalizer *cleansing.Normalizer, stem func(string) string) *Evaluator {
	return &Evaluator{
		store:      store,
		normalizer: normalizer,
		stem:       stem,
		log:        logger.NewLogger("Evaluation"),
	}
}

// lowerTexts maps SQuAD style pairs to the lowercased lists the text metrics use.
func lowerTexts(predictions []types.Prediction, references []types.NormalizedAnswers) ([]string, [][]string) {
	preds := make([]string, len(predictions))
	refs := make([][]string, len(references))
	for i, p := range predictions {
		preds[i] = strings.ToLower(p.PredictionText)
	}
	for i, r := range references {
		refs[i] = make([]string, len(r.Answers.Text))
		for j, text := range r.Answers.Text {
			refs[i][j] = strings.ToLower(text)
		}
	}
	return preds, refs
}

// Run cleans every answer of the chat results files, pairs it with the
// reference of the matching normalized answers file and scores the lot.
// Answers are renumbered across files so ids stay unique.
func (e *Evaluator) Run(ctx context.Context, params Params) (Report, error) {
	switch params.GroupBy {
	case types.GroupByNone, types.GroupByDataset, types.GroupByTissue:
	default:
		return Report{}, fmt.Errorf("invalid group_by %q", params.GroupBy)
	}

	var predictions []types.Prediction
	var references []types.NormalizedAnswers
	var samples []types.Sample

	files := min(len(params.ChatResultsPaths), len(params.NormalizedAnswersPaths))
	for f := 0; f < files; f++ {
		var results []types.AnnotationResult
		if err := storage.ReadJSON(ctx, e.store, params.ChatResultsPaths[f], &results); err != nil {
			return Report{}, err
		}
		var normalized types.ReferenceSet
		if err := storage.ReadJSON(ctx, e.store, params.NormalizedAnswersPaths[f], &normalized); err != nil {
			return Report{}, err
		}

		for _, result := range results {
			totalID := strconv.Itoa(len(predictions))
			problemID := strconv.Itoa(result.Index)

			cleaned, err := e.normalizer.Clean(result.Answer(), params.Strategy, params.ModelName)
			if err != nil {
				return Report{}, fmt.Errorf("%s problem %s: %w", params.ChatResultsPaths[f], problemID, err)
			}
			entry, ok := normalized[problemID]
			if !ok {
				return Report{}, fmt.Errorf("%s: no reference for problem %s", params.NormalizedAnswersPaths[f], problemID)
			}

			reference := entry.NormalizedAnswers
			reference.Answers.Text = append([]string(nil), reference.Answers.Text...)
			reference.Answers.AnswerStart = append([]int(nil), reference.Answers.AnswerStart...)
			reference.ID = totalID

			predictions = append(predictions, types.Prediction{PredictionText: cleaned, ID: totalID})
			references = append(references, reference)
			samples = append(samples, entry.Sample)
		}
	}

	report := e.score(predictions, references)
	e.log.Info().Int("count", report.Count).Interface("squad", report.SQuAD).Interface("bleu", report.BLEU).
		Interface("rouge", report.ROUGE).Float64("meteor", report.METEOR).Msg("All")

	if params.SaveResults {
		pairs := make([]types.EvalPair, len(predictions))
		for i := range predictions {
			pairs[i] = types.EvalPair{Prediction: predictions[i], Reference: references[i]}
		}
		if err := storage.WriteJSON(ctx, e.store, params.ResultsPath, pairs); err != nil {
			return Report{}, err
		}
	}

	if params.GroupBy != types.GroupByNone {
		report.Groups = e.groups(params.GroupBy, predictions, references, samples)
	}
	return report, nil
}

func (e *Evaluator) score(predictions []types.Prediction, references []types.NormalizedAnswers) Report {
	preds, refs := lowerTexts(predictions, references)
	return Report{
		Count:  len(predictions),
		SQuAD:  SQuAD(predictions, references),
		BLEU:   BLEU(preds, refs, bleuMaxOrder),
		ROUGE:  ROUGE(preds, refs),
		METEOR: METEOR(preds, refs, e.stem),
	}
}

// groups scores each group in order of first appearance.
func (e *Evaluator) groups(groupBy string, predictions []types.Prediction, references []types.NormalizedAnswers, samples []types.Sample) []GroupReport {
	var order []string
	members := map[string][]int{}
	for i, sample := range samples {
		key := sample.GroupKey(groupBy)
		if _, ok := members[key]; !ok {
			order = append(order, key)
		}
		members[key] = append(members[key], i)
	}

	reports := make([]GroupReport, 0, len(order))
	for _, name := range order {
		subPredictions := make([]types.Prediction, 0, len(members[name]))
		subReferences := make([]types.NormalizedAnswers, 0, len(members[name]))
		for _, i := range members[name] {
			subPredictions = append(subPredictions, predictions[i])
			subReferences = append(subReferences, references[i])
		}
		preds, refs := lowerTexts(subPredictions, subReferences)
		group := GroupReport{
			Name:  name,
			Count: len(subPredictions),
			SQuAD: SQuAD(subPredictions, subReferences),
			BLEU:  BLEU(preds, refs, bleuMaxOrder),
		}
		e.log.Info().Str("group", name).Int("count", group.Count).Interface("squad", group.SQuAD).
			Interface("bleu", group.BLEU).Msg("Group")
		reports = append(reports, group)
	}
	return reports
}

// ScoreResults recomputes the text metrics from saved evaluation results files.
func (e *Evaluator) ScoreResults(ctx context.Context, paths []string) (ScoreReport, error) {
	var preds []string
	var refs [][]string
	for _, path := range paths {
		var pairs []types.EvalPair
		if err := storage.ReadJSON(ctx, e.store, path, &pairs); err != nil {
			return ScoreReport{}, err
		}
		for _, pair := range pairs {
			p, r := lowerTexts([]types.Prediction{pair.Prediction}, []types.NormalizedAnswers{pair.Reference})
			preds = append(preds, p[0])
			refs = append(refs, r[0])
		}
	}

	report := ScoreReport{
		Count:  len(preds),
		BLEU:   BLEU(preds, refs, bleuMaxOrder),
		ROUGE:  ROUGE(preds, refs),
		METEOR: METEOR(preds, refs, e.stem),
	}
	e.log.Info().Int("count", report.Count).Interface("bleu", report.BLEU).Interface("rouge", report.ROUGE).
		Float64("meteor", report.METEOR).Msg("Scores")
	return report, nil
}

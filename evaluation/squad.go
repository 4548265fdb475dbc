package evaluation

import (
	"regexp"
	"strings"

	"soarbench.org/soar/types"
)

const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

var articles = regexp.MustCompile(`\b(a|an|the)\b`)

type SQuADScore struct {
	ExactMatch float64 `json:"exact_match"`
	F1         float64 `json:"f1"`
}

// NormalizeAnswer lowercases s and drops punctuation, articles and extra whitespace.
func NormalizeAnswer(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, strings.ToLower(s))
	s = articles.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

func exactMatch(prediction, truth string) float64 {
	if NormalizeAnswer(prediction) == NormalizeAnswer(truth) {
		return 1
	}
	return 0
}

func tokenF1(prediction, truth string) float64 {
	predTokens := strings.Fields(NormalizeAnswer(prediction))
	truthTokens := strings.Fields(NormalizeAnswer(truth))

	counts := make(map[string]int, len(truthTokens))
	for _, token := range truthTokens {
		counts[token]++
	}
	same := 0
	for _, token := range predTokens {
		if counts[token] > 0 {
			counts[token]--
			same++
		}
	}
	if same == 0 {
		return 0
	}
	precision := float64(same) / float64(len(predTokens))
	recall := float64(same) / float64(len(truthTokens))
	return 2 * precision * recall / (precision + recall)
}

func maxOverTruths(score func(string, string) float64, prediction string, truths []string) float64 {
	best := 0.0
	for _, truth := range truths {
		if s := score(prediction, truth); s > best {
			best = s
		}
	}
	return best
}

// SQuAD scores predictions against references matched by id. A reference
// without a prediction counts as 0.
func SQuAD(predictions []types.Prediction, references []types.NormalizedAnswers) SQuADScore {
	if len(references) == 0 {
		return SQuADScore{}
	}
	byID := make(map[string]string, len(predictions))
	for _, p := range predictions {
		byID[p.ID] = p.PredictionText
	}

	var em, f1 float64
	for _, ref := range references {
		prediction, ok := byID[ref.ID]
		if !ok {
			continue
		}
		em += maxOverTruths(exactMatch, prediction, ref.Answers.Text)
		f1 += maxOverTruths(tokenF1, prediction, ref.Answers.Text)
	}
	total := float64(len(references))
	return SQuADScore{ExactMatch: 100 * em / total, F1: 100 * f1 / total}
}

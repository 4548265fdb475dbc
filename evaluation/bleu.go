package evaluation

import (
	"math"
	"regexp"
	"strings"
)

type BLEUScore struct {
	BLEU              float64   `json:"bleu"`
	Precisions        []float64 `json:"precisions"`
	BrevityPenalty    float64   `json:"brevity_penalty"`
	LengthRatio       float64   `json:"length_ratio"`
	TranslationLength int       `json:"translation_length"`
	ReferenceLength   int       `json:"reference_length"`
}

type substitution struct {
	pattern *regexp.Regexp
	repl    string
}

// mteval-v13a tokenization rules.
var tokenizer13a = []substitution{
	{regexp.MustCompile(`([\{-~\[-\x60 -&\(-\+:-@/])`), " ${1} "},
	{regexp.MustCompile(`([^0-9])([\.,])`), "${1} ${2} "},
	{regexp.MustCompile(`([\.,])([^0-9])`), " ${1} ${2}"},
	{regexp.MustCompile(`([0-9])(-)`), "${1} ${2} "},
}

var unescape13a = strings.NewReplacer("&quot;", `"`, "&amp;", "&", "&lt;", "<", "&gt;", ">")

func Tokenize13a(line string) []string {
	line = strings.ReplaceAll(line, "<skipped>", "")
	line = strings.ReplaceAll(line, "-\n", "")
	line = strings.ReplaceAll(line, "\n", " ")
	if strings.Contains(line, "&") {
		line = unescape13a.Replace(line)
	}
	line = " " + line + " "
	for _, sub := range tokenizer13a {
		line = sub.pattern.ReplaceAllString(line, sub.repl)
	}
	return strings.Fields(line)
}

// ngramCounts counts n-grams per order; index 0 holds unigrams.
func ngramCounts(tokens []string, maxOrder int) []map[string]int {
	counts := make([]map[string]int, maxOrder)
	for order := 1; order <= maxOrder; order++ {
		counts[order-1] = map[string]int{}
		for i := 0; i+order <= len(tokens); i++ {
			counts[order-1][strings.Join(tokens[i:i+order], "\x00")]++
		}
	}
	return counts
}

// BLEU computes corpus BLEU without smoothing. Every prediction needs at
// least one reference.
func BLEU(predictions []string, references [][]string, maxOrder int) BLEUScore {
	matches := make([]int, maxOrder)
	possible := make([]int, maxOrder)
	referenceLength, translationLength := 0, 0

	for i, prediction := range predictions {
		translation := Tokenize13a(prediction)
		translationLength += len(translation)

		merged := make([]map[string]int, maxOrder)
		for order := range merged {
			merged[order] = map[string]int{}
		}
		shortest := -1
		for _, ref := range references[i] {
			tokens := Tokenize13a(ref)
			if shortest < 0 || len(tokens) < shortest {
				shortest = len(tokens)
			}
			for order, counts := range ngramCounts(tokens, maxOrder) {
				for ngram, n := range counts {
					if n > merged[order][ngram] {
						merged[order][ngram] = n
					}
				}
			}
		}
		if shortest > 0 {
			referenceLength += shortest
		}

		for order, counts := range ngramCounts(translation, maxOrder) {
			for ngram, n := range counts {
				if m := merged[order][ngram]; m < n {
					n = m
				}
				matches[order] += n
			}
			if p := len(translation) - order; p > 0 {
				possible[order] += p
			}
		}
	}

	precisions := make([]float64, maxOrder)
	logSum, positive := 0.0, true
	for i := range precisions {
		if possible[i] > 0 {
			precisions[i] = float64(matches[i]) / float64(possible[i])
		}
		if precisions[i] > 0 {
			logSum += math.Log(precisions[i]) / float64(maxOrder)
		} else {
			positive = false
		}
	}
	geoMean := 0.0
	if positive {
		geoMean = math.Exp(logSum)
	}

	ratio := 0.0
	if referenceLength > 0 {
		ratio = float64(translationLength) / float64(referenceLength)
	}
	bp := 1.0
	switch {
	case ratio == 0:
		bp = 0
	case ratio <= 1:
		bp = math.Exp(1 - 1/ratio)
	}

	return BLEUScore{
		BLEU:              geoMean * bp,
		Precisions:        precisions,
		BrevityPenalty:    bp,
		LengthRatio:       ratio,
		TranslationLength: translationLength,
		ReferenceLength:   referenceLength,
	}
}

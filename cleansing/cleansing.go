package cleansing

import (
	"regexp"
	"strings"

	"soarbench.org/soar/lemmatizer"
)

var (
	noiseChars = regexp.MustCompile(`"|'|\n|\.|[\s\v\p{Z}]|:|,|\*`)
	activated  = "activated"
)

// Normalizer turns free text model answers into short candidate labels.
type Normalizer struct {
	singular lemmatizer.Singularizer
}

func New(singular lemmatizer.Singularizer) *Normalizer {
	if singular == nil {
		singular = lemmatizer.NewSingularizer(nil)
	}
	return &Normalizer{singular: singular}
}

// Clean extracts the candidate label with the strategy and tidies it.
// No match is not an error and yields "".
func (n *Normalizer) Clean(answer string, strategy Strategy, modelName string) (string, error) {
	rules, err := strategy.rules()
	if err != nil {
		return "", err
	}

	pred, err := extract(answer, rules)
	if err != nil {
		return "", err
	}

	pred = noiseChars.ReplaceAllString(pred, " ")
	pred = n.singular.Words(strings.TrimSpace(pred))

	// gpt-4 answers tend to qualify cells as "activated"
	if strings.Contains(modelName, "gpt-4") {
		pred = strings.TrimSpace(strings.ReplaceAll(pred, activated, ""))
	}

	return pred, nil
}

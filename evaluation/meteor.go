package evaluation

import (
	"math"
	"regexp"
	"sort"
	"strings"

	porterstemmer "github.com/reiver/go-porterstemmer"
)

const (
	meteorAlpha = 0.9
	meteorBeta  = 3
	meteorGamma = 0.5
)

var meteorWords = regexp.MustCompile(`\w+|[^\w\s]`)

type wordPair struct {
	hyp, ref int
}

type indexedWord struct {
	index int
	word  string
}

func enumerate(text string) []indexedWord {
	words := meteorWords.FindAllString(strings.ToLower(text), -1)
	out := make([]indexedWord, len(words))
	for i, w := range words {
		out[i] = indexedWord{index: i, word: w}
	}
	return out
}

// matchWords pairs equal words, scanning both lists from the end, and
// returns the pairs with the unmatched remainders.
func matchWords(hyp, ref []indexedWord, key func(string) string) ([]wordPair, []indexedWord, []indexedWord) {
	var pairs []wordPair
	for i := len(hyp) - 1; i >= 0; i-- {
		for j := len(ref) - 1; j >= 0; j-- {
			if key(hyp[i].word) == key(ref[j].word) {
				pairs = append(pairs, wordPair{hyp: hyp[i].index, ref: ref[j].index})
				hyp = append(hyp[:i:i], hyp[i+1:]...)
				ref = append(ref[:j:j], ref[j+1:]...)
				break
			}
		}
	}
	return pairs, hyp, ref
}

func countChunks(pairs []wordPair) int {
	chunks := 1
	for i := 0; i < len(pairs)-1; i++ {
		if pairs[i+1].hyp != pairs[i].hyp+1 || pairs[i+1].ref != pairs[i].ref+1 {
			chunks++
		}
	}
	return chunks
}

func identity(s string) string { return s }

// PorterStem is the stem stage METEOR uses by default.
func PorterStem(word string) string {
	return porterstemmer.StemString(word)
}

func singleMeteor(reference, hypothesis string, stem func(string) string) float64 {
	hyp, ref := enumerate(hypothesis), enumerate(reference)
	hypLen, refLen := len(hyp), len(ref)

	pairs, hyp, ref := matchWords(hyp, ref, identity)
	if stem != nil {
		var stemPairs []wordPair
		stemPairs, _, _ = matchWords(hyp, ref, stem)
		pairs = append(pairs, stemPairs...)
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].hyp < pairs[j].hyp })

	matched := len(pairs)
	if matched == 0 || hypLen == 0 || refLen == 0 {
		return 0
	}
	precision := float64(matched) / float64(hypLen)
	recall := float64(matched) / float64(refLen)
	fmean := precision * recall / (meteorAlpha*precision + (1-meteorAlpha)*recall)
	fragmentation := float64(countChunks(pairs)) / float64(matched)
	penalty := meteorGamma * math.Pow(fragmentation, meteorBeta)
	return (1 - penalty) * fmean
}

// METEOR averages over predictions the best score against any reference,
// matching exact words and then words with equal stems. stem may be nil.
func METEOR(predictions []string, references [][]string, stem func(string) string) float64 {
	if len(predictions) == 0 {
		return 0
	}
	total := 0.0
	for i, prediction := range predictions {
		best := 0.0
		for _, ref := range references[i] {
			best = max(best, singleMeteor(ref, prediction, stem))
		}
		total += best
	}
	return total / float64(len(predictions))
}

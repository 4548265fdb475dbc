package evaluation

import (
	"regexp"
	"sort"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

type ROUGEScore struct {
	Rouge1    float64 `json:"rouge1"`
	Rouge2    float64 `json:"rouge2"`
	RougeL    float64 `json:"rougeL"`
	RougeLsum float64 `json:"rougeLsum"`
}

type prf struct {
	precision, recall, fmeasure float64
}

func newPRF(hits, predicted, target int) prf {
	p := float64(hits) / float64(max(predicted, 1))
	r := float64(hits) / float64(max(target, 1))
	score := prf{precision: p, recall: r}
	if p+r > 0 {
		score.fmeasure = 2 * p * r / (p + r)
	}
	return score
}

func rougeTokens(text string) []string {
	return strings.Fields(nonAlphanumeric.ReplaceAllString(strings.ToLower(text), " "))
}

func rougeN(target, prediction []string, n int) prf {
	targetCounts := ngramCounts(target, n)[n-1]
	predictionCounts := ngramCounts(prediction, n)[n-1]
	hits, targetTotal, predictionTotal := 0, 0, 0
	for ngram, count := range predictionCounts {
		hits += min(count, targetCounts[ngram])
		predictionTotal += count
	}
	for _, count := range targetCounts {
		targetTotal += count
	}
	return newPRF(hits, predictionTotal, targetTotal)
}

func lcsTable(ref, can []string) [][]int {
	table := make([][]int, len(ref)+1)
	for i := range table {
		table[i] = make([]int, len(can)+1)
	}
	for i := 1; i <= len(ref); i++ {
		for j := 1; j <= len(can); j++ {
			if ref[i-1] == can[j-1] {
				table[i][j] = table[i-1][j-1] + 1
			} else {
				table[i][j] = max(table[i-1][j], table[i][j-1])
			}
		}
	}
	return table
}

func rougeL(target, prediction []string) prf {
	if len(target) == 0 || len(prediction) == 0 {
		return prf{}
	}
	hits := lcsTable(target, prediction)[len(target)][len(prediction)]
	return newPRF(hits, len(prediction), len(target))
}

// lcsIndices returns the indices into ref of one longest common subsequence.
func lcsIndices(ref, can []string) []int {
	table := lcsTable(ref, can)
	var indices []int
	i, j := len(ref), len(can)
	for i > 0 && j > 0 {
		switch {
		case ref[i-1] == can[j-1]:
			indices = append(indices, i-1)
			i--
			j--
		case table[i][j-1] > table[i-1][j]:
			j--
		default:
			i--
		}
	}
	for l, r := 0, len(indices)-1; l < r; l, r = l+1, r-1 {
		indices[l], indices[r] = indices[r], indices[l]
	}
	return indices
}

func unionLCS(ref []string, candidates [][]string) []string {
	union := map[int]bool{}
	for _, can := range candidates {
		for _, i := range lcsIndices(ref, can) {
			union[i] = true
		}
	}
	indices := make([]int, 0, len(union))
	for i := range union {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	tokens := make([]string, len(indices))
	for k, i := range indices {
		tokens[k] = ref[i]
	}
	return tokens
}

func sentences(text string) [][]string {
	var out [][]string
	for _, s := range strings.Split(text, "\n") {
		if s != "" {
			out = append(out, rougeTokens(s))
		}
	}
	return out
}

// rougeLsum is the summary level LCS over newline separated sentences.
func rougeLsum(target, prediction string) prf {
	refSents, canSents := sentences(target), sentences(prediction)
	if len(refSents) == 0 || len(canSents) == 0 {
		return prf{}
	}
	refCounts, canCounts := map[string]int{}, map[string]int{}
	m, n := 0, 0
	for _, s := range refSents {
		m += len(s)
		for _, token := range s {
			refCounts[token]++
		}
	}
	for _, s := range canSents {
		n += len(s)
		for _, token := range s {
			canCounts[token]++
		}
	}
	if m == 0 || n == 0 {
		return prf{}
	}

	hits := 0
	for _, ref := range refSents {
		for _, token := range unionLCS(ref, canSents) {
			if canCounts[token] > 0 && refCounts[token] > 0 {
				hits++
				canCounts[token]--
				refCounts[token]--
			}
		}
	}
	return newPRF(hits, n, m)
}

// ROUGE returns F-measures, taking the best reference per prediction and
// averaging over predictions.
func ROUGE(predictions []string, references [][]string) ROUGEScore {
	if len(predictions) == 0 {
		return ROUGEScore{}
	}
	var total ROUGEScore
	for i, prediction := range predictions {
		predTokens := rougeTokens(prediction)
		var best ROUGEScore
		for _, ref := range references[i] {
			refTokens := rougeTokens(ref)
			best.Rouge1 = max(best.Rouge1, rougeN(refTokens, predTokens, 1).fmeasure)
			best.Rouge2 = max(best.Rouge2, rougeN(refTokens, predTokens, 2).fmeasure)
			best.RougeL = max(best.RougeL, rougeL(refTokens, predTokens).fmeasure)
			best.RougeLsum = max(best.RougeLsum, rougeLsum(ref, prediction).fmeasure)
		}
		total.Rouge1 += best.Rouge1
		total.Rouge2 += best.Rouge2
		total.RougeL += best.RougeL
		total.RougeLsum += best.RougeLsum
	}
	count := float64(len(predictions))
	return ROUGEScore{
		Rouge1:    total.Rouge1 / count,
		Rouge2:    total.Rouge2 / count,
		RougeL:    total.RougeL / count,
		RougeLsum: total.RougeLsum / count,
	}
}

package ontology

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Similarity is score rounded half to even, for display.
func Similarity(a, b string) int {
	return int(math.RoundToEven(score(a, b)))
}

// score rates two strings in [0, 100] the way a weighted fuzzy ratio does:
// plain, token and partial ratios over processed strings.
func score(a, b string) float64 {
	return wratio(fullProcess(a), fullProcess(b))
}

// fullProcess lowercases, replaces non alphanumerics by spaces and trims.
func fullProcess(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s))
}

func wratio(s1, s2 string) float64 {
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 || len(r2) == 0 {
		return 0
	}

	const unbaseScale = 0.95

	l1, l2 := float64(len(r1)), float64(len(r2))
	lenRatio := math.Max(l1, l2) / math.Min(l1, l2)

	end := ratio(r1, r2)
	if lenRatio < 1.5 {
		tokens := math.Max(tokenSortRatio(s1, s2), tokenSetRatio(s1, s2))
		return math.Max(end, tokens*unbaseScale)
	}

	partialScale := 0.9
	if lenRatio >= 8 {
		partialScale = 0.6
	}
	end = math.Max(end, partialRatio(r1, r2)*partialScale)
	return math.Max(end, partialTokenRatio(s1, s2)*unbaseScale*partialScale)
}

// ratio is the normalized insert/delete similarity: 200*lcs/(len1+len2).
func ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	return 100 * float64(2*lcs(a, b)) / float64(total)
}

func lcs(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// partialRatio is the best ratio of the shorter string against every
// window of the longer one, including windows cut at either end.
func partialRatio(a, b []rune) float64 {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}

	best := 0.0
	for start := -(len(short) - 1); start < len(long); start++ {
		lo := start
		if lo < 0 {
			lo = 0
		}
		hi := start + len(short)
		if hi > len(long) {
			hi = len(long)
		}
		if r := ratio(short, long[lo:hi]); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

func sortedTokens(s string) []string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return tokens
}

func tokenSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, t := range strings.Fields(s) {
		set[t] = true
	}
	return set
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func tokenSortRatio(s1, s2 string) float64 {
	return ratio([]rune(strings.Join(sortedTokens(s1), " ")), []rune(strings.Join(sortedTokens(s2), " ")))
}

func tokenSetRatio(s1, s2 string) float64 {
	a, b := tokenSet(s1), tokenSet(s2)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersect := map[string]bool{}
	diffAB := map[string]bool{}
	diffBA := map[string]bool{}
	for t := range a {
		if b[t] {
			intersect[t] = true
		} else {
			diffAB[t] = true
		}
	}
	for t := range b {
		if !a[t] {
			diffBA[t] = true
		}
	}

	if len(intersect) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return 100
	}

	ab := []rune(strings.Join(sortedKeys(diffAB), " "))
	ba := []rune(strings.Join(sortedKeys(diffBA), " "))
	sectLen := len([]rune(strings.Join(sortedKeys(intersect), " ")))

	result := ratio(ab, ba)
	if sectLen == 0 {
		return result
	}

	// "sect" against "sect diff": the distance is the diff plus one separator
	sectAB := sectLen + 1 + len(ab)
	sectBA := sectLen + 1 + len(ba)
	abRatio := 100 * (1 - float64(1+len(ab))/float64(sectLen+sectAB))
	baRatio := 100 * (1 - float64(1+len(ba))/float64(sectLen+sectBA))

	return math.Max(result, math.Max(abRatio, baRatio))
}

// partialTokenRatio is 100 when the strings share a token. Otherwise it is
// the partial ratio of the sorted token lists, duplicates kept, or of the
// sorted token differences when that scores higher.
func partialTokenRatio(s1, s2 string) float64 {
	a, b := tokenSet(s1), tokenSet(s2)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	for t := range a {
		if b[t] {
			return 100
		}
	}

	result := partialRatio([]rune(strings.Join(sortedTokens(s1), " ")), []rune(strings.Join(sortedTokens(s2), " ")))
	// with no shared token the differences are the sets themselves
	diff := partialRatio([]rune(strings.Join(sortedKeys(a), " ")), []rune(strings.Join(sortedKeys(b), " ")))
	return math.Max(result, diff)
}

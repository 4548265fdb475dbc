package lemmatizer

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"soarbench.org/soar/utils"
)

const (
	NounRuleFile = "noun_rule.bsv"
	NounExcFile  = "noun_exc.bsv"
	NounBaseFile = "noun_base.txt"
)

// NounRules are the morphological resources used to singularize nouns.
type NounRules struct {
	NounExc  map[string]string
	NounBase map[string]bool
	NounRule [][]string
}

// defaultNounExc holds words that end like plurals but never are.
var defaultNounExc = map[string]string{
	"is":       "is",
	"was":      "was",
	"has":      "has",
	"this":     "this",
	"its":      "its",
	"as":       "as",
	"us":       "us",
	"his":      "his",
	"yes":      "yes",
	"thus":     "thus",
	"plus":     "plus",
	"does":     "does",
	"gas":      "gas",
	"lens":     "lens",
	"bus":      "bus",
	"series":   "series",
	"species":  "species",
	"mice":     "mouse",
	"teeth":    "tooth",
	"feet":     "foot",
	"children": "child",
	// latin singulars the inflection engine would turn into -um
	"glia":      "glia",
	"microglia": "microglia",
	"macroglia": "macroglia",
	"neuroglia": "neuroglia",
	"aorta":     "aorta",
	"lamina":    "lamina",
	"retina":    "retina",
	"cornea":    "cornea",
	"pia":       "pia",
	"dura":      "dura",
	"propria":   "propria",
	// greek letters name cell subsets
	"alpha":  "alpha",
	"beta":   "beta",
	"gamma":  "gamma",
	"delta":  "delta",
	"zeta":   "zeta",
	"eta":    "eta",
	"theta":  "theta",
	"iota":   "iota",
	"kappa":  "kappa",
	"lambda": "lambda",
	// singulars ending in s
	"langerhans": "langerhans",
	"pancreas":   "pancreas",
	"bias":       "bias",
	// -ves plurals whose singular keeps the v
	"nerves":  "nerve",
	"valves":  "valve",
	"curves":  "curve",
	"sleeves": "sleeve",
	"grooves": "groove",
	// -ves plurals of -f and -fe nouns
	"leaves":  "leaf",
	"halves":  "half",
	"calves":  "calf",
	"selves":  "self",
	"shelves": "shelf",
	"wolves":  "wolf",
	"knives":  "knife",
	"lives":   "life",
	"wives":   "wife",
}

// irregularPlurals are plural forms without a trailing s that the inflection
// engine knows how to singularize.
var irregularPlurals = map[string]bool{
	"men":       true,
	"women":     true,
	"people":    true,
	"geese":     true,
	"oxen":      true,
	"data":      true,
	"criteria":  true,
	"phenomena": true,
	"bacteria":  true,
}

func DefaultNounRules() *NounRules {
	rules := &NounRules{
		NounExc:  make(map[string]string, len(defaultNounExc)),
		NounBase: map[string]bool{},
	}
	for k, v := range defaultNounExc {
		rules.NounExc[k] = v
	}
	return rules
}

// LoadNounRules reads the noun resources from resPath on top of the defaults.
// Missing files are skipped.
func LoadNounRules(resPath string) (*NounRules, error) {
	rules := DefaultNounRules()
	if resPath == "" {
		return rules, nil
	}

	exc, err := utils.ReadMap(path.Join(resPath, NounExcFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	for k, v := range exc {
		rules.NounExc[strings.ToLower(k)] = strings.ToLower(v)
	}

	base, err := utils.ReadSet(path.Join(resPath, NounBaseFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	for k := range base {
		rules.NounBase[strings.ToLower(k)] = true
	}

	rules.NounRule, err = ReadRuleList(path.Join(resPath, NounRuleFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	return rules, nil
}

func ReadRuleList(filePath string) ([][]string, error) {
	rows, err := utils.NewBSVReader(filePath, utils.ColumnsHash)
	if err != nil {
		return nil, err
	}

	var result [][]string
	var bad []string
	for p := range rows {
		if len(p) != 2 {
			bad = append(bad, strings.Join(p, "|"))
			continue
		}
		result = append(result, p)
	}
	if len(bad) > 0 {
		return nil, fmt.Errorf("%s: rule should have 2 columns: %q", filePath, bad)
	}

	return result, nil
}

func (rules *NounRules) getException(form string) (string, bool) {
	exc, hasExc := rules.NounExc[form]
	return exc, hasExc
}

func (rules *NounRules) getBase(form string) (string, bool) {
	if rules.NounBase[form] {
		return form, true
	}
	return getBaseAux(form, rules.NounBase, rules.NounRule)
}

func getBaseAux(form string, set map[string]bool, rules [][]string) (string, bool) {
	for _, rule := range rules {
		if strings.HasSuffix(form, rule[0]) {
			offset := len(form) - len(rule[0])
			base := form[0:offset] + rule[1]

			if set[base] {
				return base, true
			}
		}
	}

	return "", false
}

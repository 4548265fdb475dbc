package lemmatizer

import (
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// Singularizer returns the singular form of a word, or the word itself when it has none.
type Singularizer func(word string) string

// NewSingularizer looks a word up in the noun exceptions, then the suffix rules
// against the base forms, and finally falls back to the inflection engine for
// words that look plural. Anything else is returned unchanged.
func NewSingularizer(rules *NounRules) Singularizer {
	if rules == nil {
		rules = DefaultNounRules()
	}

	return func(word string) string {
		form := strings.ToLower(word)
		if !hasLetter(form) {
			return word
		}

		if exc, ok := rules.getException(form); ok {
			return restoreCase(word, exc)
		}

		if base, ok := rules.getBase(form); ok {
			return restoreCase(word, base)
		}

		if len(form) <= 2 || !looksPlural(form) {
			return word
		}
		// the engine turns any -ves into -f or -fe; known ones are exceptions
		if strings.HasSuffix(form, "ves") {
			return word[:len(word)-1]
		}

		return inflection.Singular(word)
	}
}

// looksPlural keeps the inflection engine away from singular words, since it
// rewrites endings such as -a or -ss regardless of number.
func looksPlural(form string) bool {
	if irregularPlurals[form] {
		return true
	}
	if !strings.HasSuffix(form, "s") {
		return false
	}
	// latin -us/-is singulars and -ss words
	return !strings.HasSuffix(form, "us") && !strings.HasSuffix(form, "is") && !strings.HasSuffix(form, "ss")
}

// Words singularizes every whitespace separated token and rejoins them with single spaces.
func (s Singularizer) Words(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		words[i] = s(w)
	}
	return strings.Join(words, " ")
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// restoreCase applies the case pattern of orig to the lowercase base form.
func restoreCase(orig, base string) string {
	switch {
	case orig == strings.ToLower(orig):
		return base
	case orig == strings.ToUpper(orig):
		return strings.ToUpper(base)
	}

	r := []rune(orig)
	if unicode.IsUpper(r[0]) {
		b := []rune(base)
		b[0] = unicode.ToUpper(b[0])
		return string(b)
	}
	return base
}

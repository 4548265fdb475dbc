package cleansing

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
)

var (
	ErrUnknownProfile = errors.New("unknown instruction model profile")
	ErrGroupIndex     = errors.New("capture group index out of range")
)

type strategyKind int

const (
	kindDefault strategyKind = iota
	kindExplicit
	kindProfile
)

// Strategy selects how the candidate label is extracted from a raw answer.
type Strategy struct {
	kind    strategyKind
	pattern string
	group   int
	profile string
}

func DefaultStrategy() Strategy {
	return Strategy{kind: kindDefault}
}

func ExplicitPattern(pattern string, group int) Strategy {
	return Strategy{kind: kindExplicit, pattern: pattern, group: group}
}

func Profile(name string) Strategy {
	return Strategy{kind: kindProfile, profile: name}
}

// StrategyFromOptions picks the explicit pattern first, then the profile, then the default.
func StrategyFromOptions(prefix string, group int, instructionModel string) Strategy {
	switch {
	case prefix != "":
		return ExplicitPattern(prefix, group)
	case instructionModel != "":
		return Profile(instructionModel)
	}
	return DefaultStrategy()
}

func (s Strategy) String() string {
	switch s.kind {
	case kindExplicit:
		return fmt.Sprintf("pattern(%q, %d)", s.pattern, s.group)
	case kindProfile:
		return fmt.Sprintf("profile(%s)", s.profile)
	}
	return "default"
}

type rule struct {
	re    *regexp.Regexp
	group int
}

// ProfileRule is a pattern and the capture group holding the label.
type ProfileRule struct {
	Pattern string
	Group   int
}

var profileRules = map[string][]ProfileRule{
	"qwen2-72b": {
		{Pattern: `the most likely cell type \(one cell type name\) is ([^\n,\.]+)`, Group: 1},
	},
	"zero-shot-qwen2-72b": {
		{Pattern: `cell type(.*?)(is|are|would be|corresponds to|could be) ([^\n,\.]+)`, Group: 3},
		{Pattern: `([^\n,\.]+) (is|are|would be|corresponds to|could be)(.*?)cell type`, Group: 0},
	},
}

// compiled once, never mutated
var profiles = compileProfiles(profileRules)

var defaultRule = rule{re: regexp.MustCompile(`^[^\n,\.]*`), group: 0}

func compileProfiles(src map[string][]ProfileRule) map[string][]rule {
	out := make(map[string][]rule, len(src))
	for name, rules := range src {
		compiled := make([]rule, len(rules))
		for i, r := range rules {
			compiled[i] = rule{re: regexp.MustCompile(r.Pattern), group: r.Group}
		}
		out[name] = compiled
	}
	return out
}

// Profiles returns a copy of the instruction model profile table.
func Profiles() map[string][]ProfileRule {
	out := make(map[string][]ProfileRule, len(profileRules))
	for name, rules := range profileRules {
		out[name] = append([]ProfileRule(nil), rules...)
	}
	return out
}

func ProfileNames() []string {
	names := make([]string, 0, len(profileRules))
	for name := range profileRules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s Strategy) rules() ([]rule, error) {
	switch s.kind {
	case kindExplicit:
		re, err := regexp.Compile(s.pattern)
		if err != nil {
			return nil, fmt.Errorf("instruction prefix %q: %w", s.pattern, err)
		}
		return []rule{{re: re, group: s.group}}, nil
	case kindProfile:
		rules, ok := profiles[s.profile]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, s.profile)
		}
		return rules, nil
	}
	return []rule{defaultRule}, nil
}

// extract runs the rules in order; the first match wins.
func extract(answer string, rules []rule) (string, error) {
	for _, r := range rules {
		m := r.re.FindStringSubmatch(answer)
		if m == nil {
			continue
		}
		if r.group < 0 || r.group >= len(m) {
			return "", fmt.Errorf("%w: group %d of %q", ErrGroupIndex, r.group, r.re.String())
		}
		return m[r.group], nil
	}
	return "", nil
}

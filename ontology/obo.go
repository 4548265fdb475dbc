package ontology

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"soarbench.org/soar/types"
)

// LoadOBO reads the [Term] stanzas of an OBO 1.4 document. Parents come from
// is_a and relationship lines.
func LoadOBO(r io.Reader) (*Graph, error) {
	var (
		concepts []types.Concept
		current  *types.Concept
		inTerm   bool
		lineNo   int
	)

	flush := func() {
		if current != nil && current.ID != "" {
			concepts = append(concepts, *current)
		}
		current = nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}

		if strings.HasPrefix(line, "[") {
			flush()
			inTerm = line == "[Term]"
			if inTerm {
				current = &types.Concept{}
			}
			continue
		}
		if !inTerm {
			continue
		}

		tag, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("obo line %d: missing tag separator", lineNo)
		}
		value = strings.TrimSpace(value)

		switch tag {
		case "id":
			current.ID = value
		case "name":
			current.Label = value
		case "def":
			current.Definition = quoted(value)
		case "synonym":
			if s := quoted(value); s != "" {
				current.Synonyms = append(current.Synonyms, s)
			}
		case "is_a":
			current.Parents = appendParent(current.Parents, stripComment(value))
		case "relationship":
			fields := strings.Fields(stripComment(value))
			if len(fields) >= 2 {
				current.Parents = appendParent(current.Parents, fields[1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return FromConcepts(concepts)
}

func appendParent(parents []string, id string) []string {
	id = strings.TrimSpace(id)
	if id == "" {
		return parents
	}
	for _, p := range parents {
		if p == id {
			return parents
		}
	}
	return append(parents, id)
}

func stripComment(value string) string {
	if i := strings.Index(value, " !"); i >= 0 {
		value = value[:i]
	}
	// qualifiers such as {source="..."}
	if i := strings.Index(value, " {"); i >= 0 {
		value = value[:i]
	}
	return strings.TrimSpace(value)
}

// quoted returns the first double quoted string of an OBO value, honoring escapes.
func quoted(value string) string {
	if !strings.HasPrefix(value, `"`) {
		return ""
	}
	var b strings.Builder
	escaped := false
	for _, r := range value[1:] {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			return b.String()
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

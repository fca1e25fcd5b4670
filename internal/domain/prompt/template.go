// Package prompt handles [[variable]] placeholders in prompt files
package prompt

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// rePH matches placeholders of the form [[name]]
var rePH = regexp.MustCompile(`\[\[(.*?)\]\]`)

// MissingVariableError reports a placeholder with no value
type MissingVariableError struct {
	Name string
}

// Error implements the error interface
func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("prompt: no value for variable %q", e.Name)
}

// Placeholders returns every placeholder name in text in order, repeats
// included
func Placeholders(text string) []string {
	matches := rePH.FindAllStringSubmatch(text, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// Variables returns the placeholder names in text, unique, in first-seen order
func Variables(text string) []string {
	var names []string
	seen := map[string]struct{}{}
	for _, m := range rePH.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// Render replaces every placeholder in text with its value
func Render(text string, values map[string]string) (string, error) {
	out := text
	for _, name := range Variables(text) {
		v, ok := values[name]
		if !ok {
			return "", &MissingVariableError{Name: name}
		}
		out = strings.ReplaceAll(out, "[["+name+"]]", v)
	}
	return out, nil
}

// ConfigHash identifies a prompt's placeholders: the hex sha256 of the names
// joined with "," exactly as they occur, repeats included (see Placeholders).
// Prompts with the same placeholder sequence share a hash, which is how
// earlier values are found for reuse. No placeholders hash to "".
func ConfigHash(occurrences []string) string {
	if len(occurrences) == 0 {
		return ""
	}
	sum := sha256.Sum256([]byte(strings.Join(occurrences, ",")))
	return hex.EncodeToString(sum[:])
}

// Segment is a piece of highlighted text
type Segment struct {
	Text  string
	Match bool
}

// Highlight splits base into segments, marking every occurrence of each
// match string. Overlapping occurrences keep the earliest one.
func Highlight(base string, matches []string) []Segment {
	type span struct{ start, end int }
	var spans []span
	for _, m := range matches {
		if m == "" {
			continue
		}
		pos := 0
		for {
			i := strings.Index(base[pos:], m)
			if i < 0 {
				break
			}
			start := pos + i
			spans = append(spans, span{start, start + len(m)})
			pos = start + len(m)
		}
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start == spans[j].start {
			return spans[i].end > spans[j].end
		}
		return spans[i].start < spans[j].start
	})

	var segments []Segment
	cur := 0
	for _, s := range spans {
		if s.start < cur {
			continue
		}
		if s.start > cur {
			segments = append(segments, Segment{Text: base[cur:s.start]})
		}
		segments = append(segments, Segment{Text: base[s.start:s.end], Match: true})
		cur = s.end
	}
	if cur < len(base) {
		segments = append(segments, Segment{Text: base[cur:]})
	}
	return segments
}

package loader

import (
	"regexp"
	"strings"

	"lawrag/internal/domain"
)

const genericSectionLabel = "Full Text"

// sectionDetector applies an ordered list of jurisdiction-specific
// header patterns per line. Pattern order doubles as hierarchy depth:
// a line matching pattern 0 opens a top-level heading, pattern 1 a
// heading nested under it, and so on. First matching pattern wins for
// a line.
type sectionDetector struct {
	patterns []*regexp.Regexp
}

func newSectionDetector(patterns []string) (*sectionDetector, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return &sectionDetector{patterns: compiled}, nil
}

// Detect returns a gap-free, ordered list of sections covering every
// line of the document. Lines before the first header fold into a
// preamble section; if nothing matches, the whole document is one
// generic section.
func (d *sectionDetector) Detect(text string) []domain.Section {
	lines := strings.Split(text, "\n")
	total := len(lines)
	if total == 0 {
		return nil
	}

	type header struct {
		label string
		level int
		line  int // 1-based
	}
	var headers []header

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		for level, re := range d.patterns {
			m := re.FindStringSubmatch(trimmed)
			if m == nil {
				continue
			}
			label := trimmed
			if len(m) > 1 && m[1] != "" {
				label = strings.TrimSpace(m[1])
			}
			headers = append(headers, header{label: label, level: level, line: i + 1})
			break
		}
	}

	if len(headers) == 0 {
		return []domain.Section{{
			Label:     genericSectionLabel,
			Path:      genericSectionLabel,
			StartLine: 1,
			EndLine:   total,
		}}
	}

	var sections []domain.Section
	if headers[0].line > 1 {
		sections = append(sections, domain.Section{
			Label:     "Preamble",
			Path:      "Preamble",
			StartLine: 1,
			EndLine:   headers[0].line - 1,
		})
	}

	// ancestry holds the active label at each hierarchy depth.
	var ancestry []string
	for i, h := range headers {
		if h.level < len(ancestry) {
			ancestry = ancestry[:h.level]
		}
		for len(ancestry) < h.level {
			ancestry = append(ancestry, "")
		}
		ancestry = append(ancestry, h.label)

		end := total
		if i+1 < len(headers) {
			end = headers[i+1].line - 1
		}

		sections = append(sections, domain.Section{
			Label:     h.label,
			Path:      joinPath(ancestry),
			StartLine: h.line,
			EndLine:   end,
		})
	}

	return sections
}

func joinPath(ancestry []string) string {
	parts := make([]string, 0, len(ancestry))
	for _, a := range ancestry {
		if a != "" {
			parts = append(parts, a)
		}
	}
	return strings.Join(parts, " > ")
}

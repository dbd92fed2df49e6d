package evidence

import "regexp"

// Redactor masks sensitive patterns in every string leaf of a record
// before it is serialized. Patterns are applied in order; each match is
// replaced wholesale with its placeholder.
type Redactor struct {
	rules []redactRule
}

type redactRule struct {
	pattern     *regexp.Regexp
	placeholder string
}

// NewRedactor builds the default rule set: emails, phone numbers,
// payment card numbers, national id numbers, and long opaque tokens
// (API keys, session tokens).
func NewRedactor() *Redactor {
	return &Redactor{rules: []redactRule{
		{
			pattern:     regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
			placeholder: "[EMAIL]",
		},
		{
			pattern:     regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`),
			placeholder: "[CARD]",
		},
		{
			pattern:     regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
			placeholder: "[NATIONAL_ID]",
		},
		{
			pattern:     regexp.MustCompile(`(?:\+?\d{1,3}[ .-]?)?\(?\d{3}\)?[ .-]?\d{3}[ .-]?\d{4}\b`),
			placeholder: "[PHONE]",
		},
		{
			// No dash in the charset: dashed uuids (request ids) stay
			// intact while long opaque tokens are still caught.
			pattern:     regexp.MustCompile(`\b[A-Za-z0-9_]{32,}\b`),
			placeholder: "[TOKEN]",
		},
	}}
}

// RedactString masks every rule match in s.
func (r *Redactor) RedactString(s string) string {
	for _, rule := range r.rules {
		s = rule.pattern.ReplaceAllString(s, rule.placeholder)
	}
	return s
}

// RedactValue walks a decoded JSON value and masks every string leaf,
// at any nesting depth.
func (r *Redactor) RedactValue(v any) any {
	switch val := v.(type) {
	case string:
		return r.RedactString(val)
	case map[string]any:
		for k, inner := range val {
			val[k] = r.RedactValue(inner)
		}
		return val
	case []any:
		for i, inner := range val {
			val[i] = r.RedactValue(inner)
		}
		return val
	default:
		return v
	}
}

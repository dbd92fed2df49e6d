package retriever

import (
	"sort"
	"strings"
)

// QueryExpander widens a query with a small legal-domain synonym table
// so compliance phrasing matches statute vocabulary.
type QueryExpander struct {
	synonyms map[string][]string
}

func NewQueryExpander() *QueryExpander {
	return &QueryExpander{synonyms: defaultSynonyms()}
}

// Expand appends synonym terms for every table key found in the query.
// The original query always comes first so its own terms dominate
// scoring; expansion order is sorted for determinism.
func (e *QueryExpander) Expand(query string) string {
	lower := strings.ToLower(query)

	var extra []string
	for key, syns := range e.synonyms {
		if strings.Contains(lower, key) {
			extra = append(extra, syns...)
		}
	}
	if len(extra) == 0 {
		return query
	}

	sort.Strings(extra)
	return query + " " + strings.Join(extra, " ")
}

func defaultSynonyms() map[string][]string {
	return map[string][]string{
		"minor":            {"child", "underage", "juvenile"},
		"child":            {"minor", "underage"},
		"age verification": {"age assurance", "age gate"},
		"parental consent": {"guardian consent", "verifiable parental consent"},
		"personal data":    {"personal information", "pii"},
		"data protection":  {"privacy", "data privacy"},
		"curfew":           {"time restriction", "night hours"},
		"recommendation":   {"algorithmic feed", "personalized feed"},
		"moderation":       {"content review", "takedown"},
		"breach":           {"incident", "unauthorized disclosure"},
		"opt out":          {"withdraw consent", "refuse"},
		"biometric":        {"face recognition", "fingerprint"},
		"location":         {"geolocation", "gps"},
		"advertising":      {"targeted ads", "marketing"},
	}
}

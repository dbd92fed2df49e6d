package retriever

import "strings"

// Snippet truncates content to at most maxChars, preferring a sentence
// boundary, then a word boundary with an ellipsis, then a hard cut.
func Snippet(content string, maxChars int) string {
	content = strings.TrimSpace(content)
	if maxChars <= 0 || len(content) <= maxChars {
		return content
	}

	window := content[:maxChars]

	if at := lastSentenceBoundary(window); at > 0 {
		return strings.TrimSpace(window[:at])
	}

	if at := strings.LastIndexByte(window, ' '); at > 0 {
		return strings.TrimSpace(window[:at]) + "..."
	}

	return window + "..."
}

func lastSentenceBoundary(s string) int {
	best := -1
	for i := len(s) - 1; i > 0; i-- {
		ch := s[i]
		if ch != ' ' && ch != '\n' {
			continue
		}
		prev := s[i-1]
		if prev == '.' || prev == '!' || prev == '?' {
			best = i
			break
		}
	}
	return best
}

package analyzer

import (
	"regexp"
	"strings"
	"unicode"
)

// Tokenizer splits legal text into tokens: lower-cased, citation
// markers collapsed, stopwords removed, short tokens discarded.
type Tokenizer struct {
	stopwords map[string]struct{}
	minLen    int
}

// Citation forms like "§ 230(c)", "§§ 1681-1681x", "Sec. 512" or
// "Article 17" collapse into a single token ("sec230c", "art17") so a
// query citing a provision matches the statute text regardless of
// typography.
var (
	sectionSymbolRe = regexp.MustCompile(`§+\s*([0-9]+[0-9A-Za-z().-]*)`)
	sectionWordRe   = regexp.MustCompile(`(?i)\bsec(?:tion)?s?\.?\s+([0-9]+[0-9A-Za-z().-]*)`)
	articleWordRe   = regexp.MustCompile(`(?i)\bart(?:icle)?s?\.?\s+([0-9]+[0-9A-Za-z().-]*)`)
)

func NewTokenizer() *Tokenizer {
	return &Tokenizer{
		stopwords: defaultStopwords(),
		minLen:    3,
	}
}

// Tokenize splits text into normalized tokens.
func (t *Tokenizer) Tokenize(text string) []string {
	text = collapseCitations(text)

	words := splitWords(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		word = strings.ToLower(word)
		if len(word) < t.minLen {
			continue
		}
		if _, isStop := t.stopwords[word]; isStop {
			continue
		}
		tokens = append(tokens, word)
	}

	return tokens
}

func collapseCitations(text string) string {
	text = sectionSymbolRe.ReplaceAllStringFunc(text, func(m string) string {
		ref := sectionSymbolRe.FindStringSubmatch(m)[1]
		return " sec" + stripRefPunct(ref) + " "
	})
	text = sectionWordRe.ReplaceAllStringFunc(text, func(m string) string {
		ref := sectionWordRe.FindStringSubmatch(m)[1]
		return " sec" + stripRefPunct(ref) + " "
	})
	text = articleWordRe.ReplaceAllStringFunc(text, func(m string) string {
		ref := articleWordRe.FindStringSubmatch(m)[1]
		return " art" + stripRefPunct(ref) + " "
	})
	return text
}

func stripRefPunct(ref string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, ref)
}

// splitWords splits text into words on unicode boundaries.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

// defaultStopwords returns a set of common English stopwords plus
// boilerplate that carries no signal in statute text.
func defaultStopwords() map[string]struct{} {
	stops := []string{
		"and", "are", "for", "from", "has", "its", "was", "were",
		"will", "with", "this", "have", "had", "but", "not", "you",
		"your", "our", "they", "their", "she", "her", "his",
		"can", "does", "did", "been", "being", "would", "could",
		"should", "may", "might", "must", "shall", "which", "who",
		"whom", "what", "when", "where", "why", "how", "all",
		"each", "every", "both", "few", "more", "most", "other",
		"some", "such", "than", "too", "very", "just", "also",
		"the", "any", "upon", "thereof", "herein", "hereby",
		"pursuant", "whereas",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}

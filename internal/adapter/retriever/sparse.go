package retriever

import (
	"math"

	"lawrag/internal/domain"
	"lawrag/internal/port"
)

// SparseScorer ranks chunks lexically: saturating term frequency with
// length normalization over an in-memory document-frequency table.
// After Fit it is read-only and safe for concurrent use.
type SparseScorer struct {
	tokenizer port.Tokenizer
	k1        float64
	b         float64

	termFreqs []map[string]int // per-chunk TF, corpus ordinal order
	docLens   []int
	docFreq   map[string]int
	avgLen    float64
	fitted    bool
}

func NewSparseScorer(tokenizer port.Tokenizer, k1, b float64) *SparseScorer {
	if k1 <= 0 {
		k1 = 1.5
	}
	if b < 0 || b > 1 {
		b = 0.75
	}
	return &SparseScorer{
		tokenizer: tokenizer,
		k1:        k1,
		b:         b,
		docFreq:   make(map[string]int),
	}
}

// Fit builds term statistics over the corpus. Chunk ordinals follow the
// given slice order; Score addresses candidates by those ordinals.
func (s *SparseScorer) Fit(corpus []domain.TextChunk) {
	s.termFreqs = make([]map[string]int, len(corpus))
	s.docLens = make([]int, len(corpus))
	s.docFreq = make(map[string]int, 1024)

	totalLen := 0
	for i, chunk := range corpus {
		tokens := s.tokenizer.Tokenize(chunk.Content)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for term := range tf {
			s.docFreq[term]++
		}
		s.termFreqs[i] = tf
		s.docLens[i] = len(tokens)
		totalLen += len(tokens)
	}

	s.avgLen = 0
	if len(corpus) > 0 {
		s.avgLen = float64(totalLen) / float64(len(corpus))
	}
	s.fitted = true
}

// Fitted reports whether Fit has run.
func (s *SparseScorer) Fitted() bool {
	return s.fitted
}

// CorpusSize returns the number of fitted chunks.
func (s *SparseScorer) CorpusSize() int {
	return len(s.termFreqs)
}

// Score computes the raw sparse score of the query against each
// candidate ordinal. Unseen query terms contribute zero. Scores are
// deterministic and independent of corpus iteration order: every
// candidate is scored in isolation from per-term statistics.
func (s *SparseScorer) Score(query string, candidates []int) []float64 {
	scores := make([]float64, len(candidates))
	if !s.fitted {
		return scores
	}

	queryTokens := s.tokenizer.Tokenize(query)
	if len(queryTokens) == 0 {
		return scores
	}

	n := float64(len(s.termFreqs))
	for i, ord := range candidates {
		if ord < 0 || ord >= len(s.termFreqs) {
			continue
		}
		tf := s.termFreqs[ord]
		dl := float64(s.docLens[ord])

		var score float64
		for _, term := range queryTokens {
			freq, ok := tf[term]
			if !ok {
				continue
			}
			df := float64(s.docFreq[term])
			idf := math.Log((n-df+0.5)/(df+0.5) + 1)

			f := float64(freq)
			norm := f + s.k1*(1-s.b+s.b*dl/s.avgLen)
			score += idf * (f * (s.k1 + 1)) / norm
		}
		scores[i] = score
	}

	return scores
}

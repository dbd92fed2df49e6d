package retriever

import (
	"sort"

	"lawrag/internal/domain"
)

// HybridRanker fuses sparse lexical scores with pre-computed dense
// similarity scores over a shared corpus ordering. After construction
// it is read-only and safe for concurrent use.
type HybridRanker struct {
	corpus       []domain.TextChunk // ordinal order shared with the scorer and index
	sparse       *SparseScorer
	expander     *QueryExpander
	sparseWeight float64
	denseWeight  float64
}

func NewHybridRanker(corpus []domain.TextChunk, sparse *SparseScorer, expander *QueryExpander, sparseWeight, denseWeight float64) *HybridRanker {
	if sparseWeight < 0 {
		sparseWeight = 0
	}
	if denseWeight < 0 {
		denseWeight = 0
	}
	if sparseWeight == 0 && denseWeight == 0 {
		sparseWeight, denseWeight = 0.3, 0.7
	}
	return &HybridRanker{
		corpus:       corpus,
		sparse:       sparse,
		expander:     expander,
		sparseWeight: sparseWeight,
		denseWeight:  denseWeight,
	}
}

// Retrieve ranks candidates for the query. denseScores maps corpus
// ordinals to dense similarity (clamped into [0,1] before fusion;
// missing ordinals score zero dense). lawFilter restricts candidates
// to the given law ids; empty means the whole corpus. Equal combined
// scores break ties by lexicographic chunk id so ranking never depends
// on corpus iteration order.
func (r *HybridRanker) Retrieve(query string, denseScores map[int]float64, lawFilter []string, topK, maxSnippetChars int) []domain.SearchResult {
	if topK <= 0 || len(r.corpus) == 0 {
		return nil
	}

	candidates := r.candidateOrdinals(lawFilter)
	if len(candidates) == 0 {
		return nil
	}

	expanded := r.expander.Expand(query)
	rawSparse := r.sparse.Score(expanded, candidates)
	normSparse := minMaxNormalize(rawSparse)

	results := make([]domain.SearchResult, 0, len(candidates))
	for i, ord := range candidates {
		chunk := r.corpus[ord]

		dense := clamp01(denseScores[ord])
		combined := r.sparseWeight*normSparse[i] + r.denseWeight*dense

		results = append(results, domain.SearchResult{
			ChunkID:      chunk.ID,
			LawID:        chunk.LawID,
			LawName:      chunk.LawName,
			Jurisdiction: chunk.Jurisdiction,
			SectionLabel: chunk.SectionLabel,
			Score:        combined,
			DenseScore:   dense,
			SparseScore:  normSparse[i],
			Snippet:      Snippet(chunk.Content, maxSnippetChars),
			StartLine:    chunk.StartLine,
			EndLine:      chunk.EndLine,
			SourcePath:   chunk.SourcePath,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func (r *HybridRanker) candidateOrdinals(lawFilter []string) []int {
	if len(lawFilter) == 0 {
		all := make([]int, len(r.corpus))
		for i := range all {
			all[i] = i
		}
		return all
	}

	allowed := make(map[string]struct{}, len(lawFilter))
	for _, id := range lawFilter {
		allowed[id] = struct{}{}
	}

	var ords []int
	for i, chunk := range r.corpus {
		if _, ok := allowed[chunk.LawID]; ok {
			ords = append(ords, i)
		}
	}
	return ords
}

// minMaxNormalize maps raw scores into [0,1] across the candidate set.
// A degenerate set (one candidate, or all scores equal) normalizes to
// 1.0 for positive raw scores and 0.0 otherwise.
func minMaxNormalize(raw []float64) []float64 {
	norm := make([]float64, len(raw))
	if len(raw) == 0 {
		return norm
	}

	lo, hi := raw[0], raw[0]
	for _, v := range raw {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if hi == lo {
		for i, v := range raw {
			if v > 0 {
				norm[i] = 1.0
			}
		}
		return norm
	}

	for i, v := range raw {
		norm[i] = (v - lo) / (hi - lo)
	}
	return norm
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

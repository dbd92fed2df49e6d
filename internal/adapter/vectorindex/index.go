package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"lawrag/internal/domain"
	"lawrag/internal/port"
)

// Index is a flat nearest-neighbor index over unit-normalized vectors;
// inner product equals cosine similarity. Rows are ordinal-ordered and
// carry the chunk metadata needed to resolve a hit without going back
// to the corpus. Build is a single-writer offline phase; a built index
// is read-only and safe to share without locking.
type Index struct {
	embedder  port.Embedder
	workers   int
	batchSize int

	vectors [][]float32
	rows    []domain.TextChunk
	built   bool
}

// Hit is one ranked search result row.
type Hit struct {
	Ordinal int
	Score   float64
	Chunk   domain.TextChunk
}

func New(embedder port.Embedder, workers, batchSize int) *Index {
	if workers <= 0 {
		workers = 4
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Index{
		embedder:  embedder,
		workers:   workers,
		batchSize: batchSize,
	}
}

// Build batch-embeds every chunk through a bounded worker pool and
// stores unit-normalized vectors with a parallel, row-ordered metadata
// slice.
func (ix *Index) Build(ctx context.Context, chunks []domain.TextChunk) error {
	vectors := make([][]float32, len(chunks))

	pool, err := ants.NewPool(ix.workers)
	if err != nil {
		return fmt.Errorf("failed to create embedding pool: %w", err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	for start := 0; start < len(chunks); start += ix.batchSize {
		end := start + ix.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		lo, hi := start, end

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			texts := make([]string, hi-lo)
			for i := lo; i < hi; i++ {
				texts[i-lo] = chunks[i].Content
			}

			embedded, err := ix.embedder.Embed(ctx, texts)
			if err != nil {
				errOnce.Do(func() { firstErr = err })
				return
			}
			if len(embedded) != hi-lo {
				errOnce.Do(func() {
					firstErr = fmt.Errorf("embedder returned %d vectors for %d texts", len(embedded), hi-lo)
				})
				return
			}
			for i, vec := range embedded {
				vectors[lo+i] = unitNormalize(vec)
			}
		})
		if submitErr != nil {
			wg.Done()
			errOnce.Do(func() { firstErr = submitErr })
			break
		}
	}

	wg.Wait()
	if firstErr != nil {
		return fmt.Errorf("index build failed: %w", firstErr)
	}

	rows := make([]domain.TextChunk, len(chunks))
	copy(rows, chunks)

	ix.vectors = vectors
	ix.rows = rows
	ix.built = true
	return nil
}

// Restore installs previously persisted vectors and rows, marking the
// index as built.
func (ix *Index) Restore(vectors [][]float32, rows []domain.TextChunk) error {
	if len(vectors) != len(rows) {
		return fmt.Errorf("vector/row count mismatch: %d vs %d", len(vectors), len(rows))
	}
	for i, vec := range vectors {
		vectors[i] = unitNormalize(vec)
	}
	ix.vectors = vectors
	ix.rows = rows
	ix.built = true
	return nil
}

// EmbedQuery embeds and unit-normalizes a single query text.
func (ix *Index) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embedded, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embedded) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(embedded))
	}
	return unitNormalize(embedded[0]), nil
}

// Search returns the topK most similar rows by inner product.
// Searching an unbuilt index fails fast instead of silently returning
// nothing.
func (ix *Index) Search(query []float32, topK int) ([]Hit, error) {
	if !ix.built {
		return nil, domain.ErrIndexNotBuilt
	}
	if topK <= 0 || len(ix.vectors) == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(ix.vectors))
	for ord, vec := range ix.vectors {
		hits = append(hits, Hit{
			Ordinal: ord,
			Score:   dot(query, vec),
			Chunk:   ix.rows[ord],
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})

	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK], nil
}

// Built reports whether the index holds vectors.
func (ix *Index) Built() bool {
	return ix.built
}

// Count returns the number of indexed rows.
func (ix *Index) Count() int {
	return len(ix.rows)
}

// Rows returns the ordinal-ordered chunk metadata.
func (ix *Index) Rows() []domain.TextChunk {
	return ix.rows
}

// Vectors returns the stored unit-normalized vectors.
func (ix *Index) Vectors() [][]float32 {
	return ix.vectors
}

func dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func unitNormalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(sum))
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v * inv
	}
	return out
}

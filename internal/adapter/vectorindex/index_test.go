package vectorindex

import (
	"context"
	"errors"
	"testing"

	"lawrag/internal/adapter/embedding"
	"lawrag/internal/domain"
)

func indexCorpus() []domain.TextChunk {
	return []domain.TextChunk{
		{ID: "c0", LawID: "coppa", Content: "parental consent required before collecting data from children"},
		{ID: "c1", LawID: "gdpr", Content: "controllers shall document processing activities"},
		{ID: "c2", LawID: "coppa", Content: "parental consent mechanisms must be verifiable"},
	}
}

func TestSearchUnbuiltIndex(t *testing.T) {
	ix := New(embedding.NewMockEmbedder(32), 2, 2)

	_, err := ix.Search([]float32{1, 0}, 5)
	if !errors.Is(err, domain.ErrIndexNotBuilt) {
		t.Fatalf("Search on unbuilt index: err = %v, want ErrIndexNotBuilt", err)
	}
}

func TestBuildAndSearch(t *testing.T) {
	embedder := embedding.NewMockEmbedder(64)
	ix := New(embedder, 2, 2)
	corpus := indexCorpus()

	if err := ix.Build(context.Background(), corpus); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !ix.Built() || ix.Count() != 3 {
		t.Fatalf("built = %v, count = %d", ix.Built(), ix.Count())
	}

	query, err := ix.EmbedQuery(context.Background(), "parental consent")
	if err != nil {
		t.Fatalf("EmbedQuery: %v", err)
	}

	hits, err := ix.Search(query, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	// Both consent chunks share query vocabulary; the unrelated chunk
	// must not outrank them.
	for _, h := range hits {
		if h.Chunk.ID == "c1" {
			t.Errorf("unrelated chunk ranked in top 2 with score %f", h.Score)
		}
	}
	if hits[0].Score < hits[1].Score {
		t.Errorf("hits not sorted by score: %f then %f", hits[0].Score, hits[1].Score)
	}
}

func TestBuildRowOrderMatchesCorpus(t *testing.T) {
	ix := New(embedding.NewMockEmbedder(32), 4, 1)
	corpus := indexCorpus()

	if err := ix.Build(context.Background(), corpus); err != nil {
		t.Fatalf("Build: %v", err)
	}

	rows := ix.Rows()
	for i, chunk := range corpus {
		if rows[i].ID != chunk.ID {
			t.Errorf("row %d = %s, want %s", i, rows[i].ID, chunk.ID)
		}
	}
	if len(ix.Vectors()) != len(corpus) {
		t.Errorf("got %d vectors for %d chunks", len(ix.Vectors()), len(corpus))
	}
}

func TestBuildPropagatesEmbedderError(t *testing.T) {
	ix := New(failingEmbedder{}, 2, 2)

	err := ix.Build(context.Background(), indexCorpus())
	if err == nil {
		t.Fatal("Build succeeded with a failing embedder")
	}
	if ix.Built() {
		t.Error("index reports built after a failed build")
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	embedder := embedding.NewMockEmbedder(32)
	src := New(embedder, 2, 2)
	if err := src.Build(context.Background(), indexCorpus()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	dst := New(embedder, 2, 2)
	if err := dst.Restore(src.Vectors(), src.Rows()); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	query, _ := dst.EmbedQuery(context.Background(), "parental consent")
	a, _ := src.Search(query, 3)
	b, _ := dst.Search(query, 3)

	for i := range a {
		if a[i].Chunk.ID != b[i].Chunk.ID || a[i].Score != b[i].Score {
			t.Errorf("hit %d differs after restore: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestRestoreCountMismatch(t *testing.T) {
	ix := New(embedding.NewMockEmbedder(32), 2, 2)
	err := ix.Restore([][]float32{{1, 0}}, nil)
	if err == nil {
		t.Fatal("Restore accepted mismatched vectors and rows")
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedding backend unavailable")
}

func (failingEmbedder) Dimension() int    { return 32 }
func (failingEmbedder) ModelName() string { return "failing" }

package store

import (
	"path/filepath"
	"testing"

	"lawrag/internal/domain"
)

func testSnapshot() Snapshot {
	return Snapshot{
		EmbeddingModel: "mock",
		Dimension:      32,
		MaxChars:       900,
		MinChars:       600,
		OverlapRatio:   0.15,
	}
}

func openTestStore(t *testing.T) *ArtifactStore {
	t.Helper()
	s, err := NewArtifactStore(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("NewArtifactStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	rows := []domain.TextChunk{
		{ID: "c0", LawID: "gdpr", Content: "first", StartLine: 1, EndLine: 4},
		{ID: "c1", LawID: "gdpr", Content: "second", StartLine: 4, EndLine: 9},
		{ID: "c2", LawID: "coppa", Content: "third", StartLine: 1, EndLine: 2},
	}

	if err := s.Save(testSnapshot(), vectors, rows); err != nil {
		t.Fatalf("Save: %v", err)
	}

	gotVecs, gotRows, err := s.Load(testSnapshot())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(gotRows) != 3 || len(gotVecs) != 3 {
		t.Fatalf("got %d rows, %d vectors", len(gotRows), len(gotVecs))
	}
	for i, row := range rows {
		if gotRows[i].ID != row.ID || gotRows[i].Content != row.Content {
			t.Errorf("row %d = %+v, want %+v", i, gotRows[i], row)
		}
		for j := range vectors[i] {
			if gotVecs[i][j] != vectors[i][j] {
				t.Errorf("vector %d[%d] = %f, want %f", i, j, gotVecs[i][j], vectors[i][j])
			}
		}
	}
}

func TestSavePreservesRowOrderBeyondSingleByte(t *testing.T) {
	s := openTestStore(t)

	// Enough rows that lexicographic byte keys would misorder a naive
	// decimal encoding.
	n := 300
	vectors := make([][]float32, n)
	rows := make([]domain.TextChunk, n)
	for i := 0; i < n; i++ {
		vectors[i] = []float32{float32(i)}
		rows[i] = domain.TextChunk{ID: "c", LawID: "gdpr", StartChar: i}
	}

	if err := s.Save(testSnapshot(), vectors, rows); err != nil {
		t.Fatalf("Save: %v", err)
	}
	gotVecs, gotRows, err := s.Load(testSnapshot())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i := 0; i < n; i++ {
		if gotRows[i].StartChar != i {
			t.Fatalf("row %d out of order: StartChar = %d", i, gotRows[i].StartChar)
		}
		if gotVecs[i][0] != float32(i) {
			t.Fatalf("vector %d out of order: %f", i, gotVecs[i][0])
		}
	}
}

func TestLoadSnapshotMismatch(t *testing.T) {
	s := openTestStore(t)

	if err := s.Save(testSnapshot(), [][]float32{{1}}, []domain.TextChunk{{ID: "c0"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	changed := testSnapshot()
	changed.EmbeddingModel = "text-embedding-3-small"

	_, _, err := s.Load(changed)
	if err == nil {
		t.Fatal("Load succeeded with a mismatched snapshot")
	}
	if !domain.IsConfiguration(err) {
		t.Errorf("err = %v, want a configuration error", err)
	}
}

func TestLoadEmptyStore(t *testing.T) {
	s := openTestStore(t)

	empty, err := s.Empty()
	if err != nil || !empty {
		t.Fatalf("Empty = %v, %v; want true, nil", empty, err)
	}

	_, _, err = s.Load(testSnapshot())
	if !domain.IsConfiguration(err) {
		t.Errorf("Load on empty store: err = %v, want a configuration error", err)
	}
}

func TestSaveReplacesPreviousArtifact(t *testing.T) {
	s := openTestStore(t)

	first := []domain.TextChunk{{ID: "old0"}, {ID: "old1"}}
	if err := s.Save(testSnapshot(), [][]float32{{1}, {2}}, first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second := []domain.TextChunk{{ID: "new0"}}
	if err := s.Save(testSnapshot(), [][]float32{{3}}, second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	_, rows, err := s.Load(testSnapshot())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "new0" {
		t.Errorf("stale rows survived a re-save: %+v", rows)
	}
}

func TestSaveCountMismatch(t *testing.T) {
	s := openTestStore(t)

	err := s.Save(testSnapshot(), [][]float32{{1}}, nil)
	if err == nil {
		t.Fatal("Save accepted mismatched vectors and rows")
	}
}

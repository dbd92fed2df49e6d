package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lawrag/config"
	"lawrag/internal/adapter/embedding"
	"lawrag/internal/adapter/loader"
	"lawrag/internal/adapter/store"
	"lawrag/internal/domain"
)

const coppaText = `Section 1. Definitions
Operator means any person who operates an online service directed to children.

Section 2. Parental consent
Operators must obtain verifiable parental consent before collecting personal information from a child.
`

const gdprText = `Article 8. Child consent
Processing of the personal data of a child is lawful where the child is at least sixteen years old.
`

func builderFixture(t *testing.T) (*IndexBuilder, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "coppa.txt"), []byte(coppaText), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gdpr.txt"), []byte(gdprText), 0644))

	cfg := config.DefaultConfig()
	cfg.Corpus.Sources = []config.LawSource{
		{
			ID: "coppa", Name: "COPPA", Jurisdiction: "US",
			Path:     filepath.Join(dir, "coppa.txt"),
			Patterns: []string{`^(Section \d+)\.`},
		},
		{
			ID: "gdpr", Name: "GDPR", Jurisdiction: "EU",
			Path:     filepath.Join(dir, "gdpr.txt"),
			Patterns: []string{`^(Article \d+)\.`},
		},
	}
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimension = 64

	ld, err := loader.New(cfg.Corpus)
	require.NoError(t, err)

	return NewIndexBuilder(ld, embedding.NewMockEmbedder(64), cfg, nil), cfg
}

func TestBuildProducesServableVersion(t *testing.T) {
	b, _ := builderFixture(t)

	var seen []string
	result, err := b.Build(context.Background(), func(done, total int, lawID string) {
		seen = append(seen, lawID)
		assert.Equal(t, 2, total)
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Docs)
	assert.Greater(t, result.Chunks, 0)
	assert.Equal(t, []string{"coppa", "gdpr"}, seen)
	require.NotNil(t, result.Version)
	assert.True(t, result.Version.Index.Built())
	assert.Equal(t, result.Chunks, result.Version.Stats.TotalChunks)

	hits := result.Version.Ranker.Retrieve("verifiable parental consent", nil, nil, 3, 300)
	require.NotEmpty(t, hits)
	assert.Equal(t, "coppa", hits[0].LawID)
	assert.Equal(t, "Section 2", hits[0].SectionLabel)
}

func TestBuildWithNoSources(t *testing.T) {
	ld, err := loader.New(config.CorpusConfig{})
	require.NoError(t, err)

	b := NewIndexBuilder(ld, embedding.NewMockEmbedder(64), config.DefaultConfig(), nil)
	_, err = b.Build(context.Background(), nil)
	assert.True(t, domain.IsConfiguration(err))
}

func TestPersistRestoreRoundTrip(t *testing.T) {
	b, _ := builderFixture(t)

	result, err := b.Build(context.Background(), nil)
	require.NoError(t, err)

	artifact, err := store.NewArtifactStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	defer artifact.Close()

	require.NoError(t, b.Persist(artifact, result.Version))

	restored, err := b.Restore(artifact)
	require.NoError(t, err)
	assert.Equal(t, result.Version.Stats.TotalChunks, restored.Stats.TotalChunks)
	assert.Equal(t, result.Version.Stats.TotalDocs, restored.Stats.TotalDocs)

	built := result.Version.Ranker.Retrieve("verifiable parental consent", nil, nil, 3, 300)
	back := restored.Ranker.Retrieve("verifiable parental consent", nil, nil, 3, 300)
	require.Equal(t, len(built), len(back))
	for i := range built {
		assert.Equal(t, built[i].ChunkID, back[i].ChunkID)
		assert.InDelta(t, built[i].Score, back[i].Score, 1e-9)
	}
}

func TestRestoreRefusesChangedConfig(t *testing.T) {
	b, cfg := builderFixture(t)

	result, err := b.Build(context.Background(), nil)
	require.NoError(t, err)

	artifact, err := store.NewArtifactStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	defer artifact.Close()
	require.NoError(t, b.Persist(artifact, result.Version))

	cfg.Chunking.MaxChars = 1200
	_, err = b.Restore(artifact)
	assert.True(t, domain.IsConfiguration(err), "changed chunking config must invalidate the artifact")
}

func TestPersistUnbuiltVersion(t *testing.T) {
	b, _ := builderFixture(t)

	artifact, err := store.NewArtifactStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	defer artifact.Close()

	assert.Error(t, b.Persist(artifact, nil))
}

func TestRebuildInstallsOnService(t *testing.T) {
	b, _ := builderFixture(t)
	svc, _ := newTestService(t)

	require.False(t, svc.Ready())

	result, err := b.Rebuild(context.Background(), svc, nil)
	require.NoError(t, err)
	assert.True(t, svc.Ready())
	assert.Equal(t, result.Chunks, svc.Status().IndexedChunks)

	resp, err := svc.Retrieve(context.Background(), Request{Query: "parental consent", TopK: 3, MaxChars: 300})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Results)
}

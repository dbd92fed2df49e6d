package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"lawrag/config"
	"lawrag/internal/adapter/analyzer"
	"lawrag/internal/adapter/chunker"
	"lawrag/internal/adapter/loader"
	"lawrag/internal/adapter/retriever"
	"lawrag/internal/adapter/store"
	"lawrag/internal/adapter/vectorindex"
	"lawrag/internal/domain"
	"lawrag/internal/port"
)

// ProgressFunc reports build progress: documents processed so far, the
// total, and the law id just finished.
type ProgressFunc func(processed, total int, lawID string)

// BuildResult summarizes a completed index build.
type BuildResult struct {
	Version  *Version
	Docs     int
	Chunks   int
	Warnings []domain.ParseWarning
}

// IndexBuilder runs the offline single-writer build phase: load every
// configured law, detect sections, chunk, fit the sparse scorer, and
// embed into a fresh vector index. The produced Version is immutable.
type IndexBuilder struct {
	loader   *loader.Loader
	chunker  *chunker.SectionChunker
	embedder port.Embedder
	cfg      *config.Config
	log      *slog.Logger
}

func NewIndexBuilder(ld *loader.Loader, embedder port.Embedder, cfg *config.Config, log *slog.Logger) *IndexBuilder {
	if log == nil {
		log = slog.Default()
	}
	return &IndexBuilder{
		loader: ld,
		chunker: chunker.NewSectionChunker(
			cfg.Chunking.MaxChars,
			cfg.Chunking.MinChars,
			cfg.Chunking.OverlapRatio,
		),
		embedder: embedder,
		cfg:      cfg,
		log:      log,
	}
}

// Build loads, chunks, and embeds the whole corpus. Loading failures
// are fatal (ConfigurationError); parse warnings accumulate in the
// result.
func (b *IndexBuilder) Build(ctx context.Context, progress ProgressFunc) (*BuildResult, error) {
	ids := b.loader.LawIDs()
	if len(ids) == 0 {
		return nil, domain.NewConfigurationError("corpus", "no law sources configured")
	}

	result := &BuildResult{}
	var corpus []domain.TextChunk

	for i, id := range ids {
		doc, sections, err := b.loader.Load(id)
		if err != nil {
			return nil, err
		}
		result.Warnings = append(result.Warnings, doc.Warnings...)

		chunks := b.chunker.ChunkDocument(doc, sections)
		corpus = append(corpus, chunks...)
		result.Docs++

		if progress != nil {
			progress(i+1, len(ids), id)
		}
	}
	result.Chunks = len(corpus)

	version, err := b.assemble(ctx, corpus, result.Docs)
	if err != nil {
		return nil, err
	}
	result.Version = version

	b.log.Info("index built",
		"docs", result.Docs, "chunks", result.Chunks,
		"model", b.embedder.ModelName())
	return result, nil
}

// assemble fits the sparse scorer and builds the vector index over a
// shared corpus ordering.
func (b *IndexBuilder) assemble(ctx context.Context, corpus []domain.TextChunk, docs int) (*Version, error) {
	tokenizer := analyzer.NewTokenizer()

	sparse := retriever.NewSparseScorer(tokenizer, b.cfg.Scorer.K1, b.cfg.Scorer.B)
	sparse.Fit(corpus)

	index := vectorindex.New(b.embedder, b.cfg.Embedding.Workers, b.cfg.Embedding.BatchSize)
	if err := index.Build(ctx, corpus); err != nil {
		return nil, err
	}

	ranker := retriever.NewHybridRanker(
		corpus, sparse, retriever.NewQueryExpander(),
		b.cfg.Retrieve.SparseWeight, b.cfg.Retrieve.DenseWeight,
	)

	avgLen := 0.0
	if len(corpus) > 0 {
		total := 0
		for _, c := range corpus {
			total += len(c.Content)
		}
		avgLen = float64(total) / float64(len(corpus))
	}

	return &Version{
		Index:  index,
		Ranker: ranker,
		Chunks: corpus,
		Stats: domain.CorpusStats{
			TotalDocs:   docs,
			TotalChunks: len(corpus),
			AvgChunkLen: avgLen,
		},
	}, nil
}

// Snapshot describes the configuration this builder would stamp on a
// persisted artifact.
func (b *IndexBuilder) Snapshot() store.Snapshot {
	return store.Snapshot{
		EmbeddingModel: b.embedder.ModelName(),
		Dimension:      b.embedder.Dimension(),
		MaxChars:       b.cfg.Chunking.MaxChars,
		MinChars:       b.cfg.Chunking.MinChars,
		OverlapRatio:   b.cfg.Chunking.OverlapRatio,
	}
}

// Persist writes a built version to the artifact store with the
// current configuration snapshot.
func (b *IndexBuilder) Persist(artifact *store.ArtifactStore, version *Version) error {
	if version == nil || !version.Index.Built() {
		return fmt.Errorf("cannot persist an unbuilt index")
	}
	return artifact.Save(b.Snapshot(), version.Index.Vectors(), version.Index.Rows())
}

// Restore rebuilds a Version from a persisted artifact, refusing reuse
// when the stored snapshot differs from the current configuration.
func (b *IndexBuilder) Restore(artifact *store.ArtifactStore) (*Version, error) {
	vectors, rows, err := artifact.Load(b.Snapshot())
	if err != nil {
		return nil, err
	}

	index := vectorindex.New(b.embedder, b.cfg.Embedding.Workers, b.cfg.Embedding.BatchSize)
	if err := index.Restore(vectors, rows); err != nil {
		return nil, err
	}

	return b.assembleRestored(index, rows)
}

func (b *IndexBuilder) assembleRestored(index *vectorindex.Index, rows []domain.TextChunk) (*Version, error) {
	tokenizer := analyzer.NewTokenizer()

	sparse := retriever.NewSparseScorer(tokenizer, b.cfg.Scorer.K1, b.cfg.Scorer.B)
	sparse.Fit(rows)

	ranker := retriever.NewHybridRanker(
		rows, sparse, retriever.NewQueryExpander(),
		b.cfg.Retrieve.SparseWeight, b.cfg.Retrieve.DenseWeight,
	)

	docs := make(map[string]struct{})
	total := 0
	for _, c := range rows {
		docs[c.LawID] = struct{}{}
		total += len(c.Content)
	}
	avgLen := 0.0
	if len(rows) > 0 {
		avgLen = float64(total) / float64(len(rows))
	}

	return &Version{
		Index:  index,
		Ranker: ranker,
		Chunks: rows,
		Stats: domain.CorpusStats{
			TotalDocs:   len(docs),
			TotalChunks: len(rows),
			AvgChunkLen: avgLen,
		},
	}, nil
}

// Rebuild runs a full build off the query path and installs the new
// version on the service; queries keep being served from the prior
// version until the swap completes.
func (b *IndexBuilder) Rebuild(ctx context.Context, svc *Service, progress ProgressFunc) (*BuildResult, error) {
	result, err := b.Build(ctx, progress)
	if err != nil {
		return nil, err
	}
	svc.Install(result.Version)
	return result, nil
}

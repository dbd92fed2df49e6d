package cli

import (
	"fmt"
	"time"

	"lawrag/config"
	"lawrag/internal/adapter/cache"
	"lawrag/internal/adapter/embedding"
	"lawrag/internal/adapter/loader"
	"lawrag/internal/adapter/store"
	"lawrag/internal/evidence"
	"lawrag/internal/port"
	"lawrag/internal/usecase"
)

func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	e := cfg.Embedding
	switch e.Provider {
	case "openai", "":
		return embedding.NewOpenAIEmbedder(e.APIKeyEnv, e.Model, e.BaseURL, e.Dimension, e.BatchSize)
	case "ollama":
		return embedding.NewOllamaEmbedder(e.Model, e.BaseURL, e.Dimension), nil
	case "mock":
		return embedding.NewMockEmbedder(e.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", e.Provider)
	}
}

func newBuilder(cfg *config.Config) (*usecase.IndexBuilder, error) {
	ld, err := loader.New(cfg.Corpus)
	if err != nil {
		return nil, err
	}
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	return usecase.NewIndexBuilder(ld, embedder, cfg, nil), nil
}

func openArtifact(cfg *config.Config) (*store.ArtifactStore, error) {
	if err := config.EnsureStateDir(rootDir); err != nil {
		return nil, err
	}
	return store.NewArtifactStore(config.IndexDBPath(rootDir))
}

// newService wires cache, evidence logger, and retrieval service the
// way the process owns them: one logger instance per process, passed
// by reference.
func newService(cfg *config.Config) (*usecase.Service, *evidence.Logger, error) {
	evLog, err := evidence.NewLogger(cfg.Evidence)
	if err != nil {
		return nil, nil, err
	}

	queryCache := cache.NewQueryCache(cfg.Cache.MaxSize, time.Duration(cfg.Cache.TTLSeconds)*time.Second)

	svc, err := usecase.NewService(queryCache, evLog,
		usecase.WithTimeout(time.Duration(cfg.Retrieve.TimeoutMS)*time.Millisecond),
		usecase.WithOverFetch(cfg.Retrieve.OverFetchFactor),
		usecase.WithLatencyWindow(cfg.Retrieve.LatencyWindow),
	)
	if err != nil {
		evLog.Close()
		return nil, nil, err
	}

	return svc, evLog, nil
}

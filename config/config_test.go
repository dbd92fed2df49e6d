package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Chunking.MaxChars != 900 {
		t.Errorf("expected MaxChars=900, got %d", cfg.Chunking.MaxChars)
	}
	if cfg.Chunking.MinChars != 600 {
		t.Errorf("expected MinChars=600, got %d", cfg.Chunking.MinChars)
	}
	if cfg.Scorer.K1 != 1.5 {
		t.Errorf("expected K1=1.5, got %f", cfg.Scorer.K1)
	}
	if cfg.Scorer.B != 0.75 {
		t.Errorf("expected B=0.75, got %f", cfg.Scorer.B)
	}
	if cfg.Retrieve.SparseWeight+cfg.Retrieve.DenseWeight != 1.0 {
		t.Errorf("expected weights summing to 1.0, got %f and %f",
			cfg.Retrieve.SparseWeight, cfg.Retrieve.DenseWeight)
	}
	if cfg.Evidence.Rotation != "daily" {
		t.Errorf("expected daily rotation, got %s", cfg.Evidence.Rotation)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "lawrag.yaml")

	content := `
chunking:
  max_chars: 1200
retrieve:
  top_k: 10
corpus:
  sources:
    - id: gdpr
      name: GDPR
      jurisdiction: EU
      path: laws/gdpr.txt
      patterns:
        - '^Article\s+(\d+)'
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Chunking.MaxChars != 1200 {
		t.Errorf("expected MaxChars=1200, got %d", cfg.Chunking.MaxChars)
	}
	if cfg.Retrieve.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Retrieve.TopK)
	}
	if len(cfg.Corpus.Sources) != 1 || cfg.Corpus.Sources[0].ID != "gdpr" {
		t.Fatalf("expected one gdpr source, got %+v", cfg.Corpus.Sources)
	}
	if len(cfg.Corpus.Sources[0].Patterns) != 1 {
		t.Errorf("expected one pattern, got %d", len(cfg.Corpus.Sources[0].Patterns))
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "lawrag.yaml")

	content := `
evidence:
  retention_days: 30
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Evidence.RetentionDays != 30 {
		t.Errorf("expected RetentionDays=30, got %d", cfg.Evidence.RetentionDays)
	}
}

func TestIndexDBPath(t *testing.T) {
	path := IndexDBPath("/home/user/project")
	expected := filepath.Join("/home/user/project", ".lawrag", "index.db")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}
}

package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the retrieval subsystem.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Scorer    ScorerConfig    `yaml:"scorer"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cache     CacheConfig     `yaml:"cache"`
	Evidence  EvidenceConfig  `yaml:"evidence"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LawSource describes one law text on disk plus the ordered section
// header patterns for its jurisdiction. Patterns are applied per line,
// first match wins.
type LawSource struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Jurisdiction string   `yaml:"jurisdiction"`
	Path         string   `yaml:"path"`
	Patterns     []string `yaml:"patterns"`
}

// CorpusConfig holds the document sources. Explicit sources win;
// Includes/Excludes discover additional plain-text sources under Dir,
// with the file stem used as the law id.
type CorpusConfig struct {
	Dir      string      `yaml:"dir"`
	Includes []string    `yaml:"includes"`
	Excludes []string    `yaml:"excludes"`
	Sources  []LawSource `yaml:"sources"`
}

// ChunkingConfig holds chunk window parameters.
type ChunkingConfig struct {
	MaxChars     int     `yaml:"max_chars"`
	MinChars     int     `yaml:"min_chars"`
	OverlapRatio float64 `yaml:"overlap_ratio"`
}

// ScorerConfig holds sparse scorer tuning.
type ScorerConfig struct {
	K1 float64 `yaml:"k1"`
	B  float64 `yaml:"b"`
}

// RetrieveConfig holds hybrid retrieval configuration.
type RetrieveConfig struct {
	TopK            int     `yaml:"top_k"`
	MaxSnippetChars int     `yaml:"max_snippet_chars"`
	SparseWeight    float64 `yaml:"sparse_weight"`
	DenseWeight     float64 `yaml:"dense_weight"`
	OverFetchFactor int     `yaml:"over_fetch_factor"`
	TimeoutMS       int     `yaml:"timeout_ms"`
	LatencyWindow   int     `yaml:"latency_window"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "openai", "ollama", "mock"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
	Workers   int    `yaml:"workers"`
}

// CacheConfig holds query cache configuration.
type CacheConfig struct {
	MaxSize    int `yaml:"max_size"`
	TTLSeconds int `yaml:"ttl_seconds"`
}

// EvidenceConfig holds audit sink configuration.
type EvidenceConfig struct {
	Dir           string `yaml:"dir"`
	Rotation      string `yaml:"rotation"` // "daily" or "size"
	MaxBytes      int64  `yaml:"max_bytes"`
	RetentionDays int    `yaml:"retention_days"`
}

// ServerConfig holds the HTTP facade configuration.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Dir:      "laws",
			Includes: []string{"**/*.txt"},
			Excludes: []string{"**/.*/**"},
		},
		Chunking: ChunkingConfig{
			MaxChars:     900,
			MinChars:     600,
			OverlapRatio: 0.15,
		},
		Scorer: ScorerConfig{
			K1: 1.5,
			B:  0.75,
		},
		Retrieve: RetrieveConfig{
			TopK:            5,
			MaxSnippetChars: 300,
			SparseWeight:    0.3,
			DenseWeight:     0.7,
			OverFetchFactor: 3,
			TimeoutMS:       5000,
			LatencyWindow:   1000,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
			BatchSize: 100,
			Workers:   4,
		},
		Cache: CacheConfig{
			MaxSize:    256,
			TTLSeconds: 300,
		},
		Evidence: EvidenceConfig{
			Dir:           "evidence",
			Rotation:      "daily",
			MaxBytes:      64 << 20,
			RetentionDays: 90,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults
// when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for lawrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "lawrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".lawrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path to the persisted index artifact.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, ".lawrag", "index.db")
}

// EnsureStateDir ensures the .lawrag directory exists.
func EnsureStateDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".lawrag"), 0755)
}

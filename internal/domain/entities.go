package domain

import "time"

// LegalDocument is a fully loaded, normalized law text. Immutable once
// loaded; a source change reloads the whole document.
type LegalDocument struct {
	LawID        string
	Name         string
	Jurisdiction string
	Text         string
	LineCount    int
	SourcePath   string
	Warnings     []ParseWarning
}

// Section is a detected span of a LegalDocument. Line numbers are
// 1-based and inclusive.
type Section struct {
	Label     string
	Path      string
	StartLine int
	EndLine   int
}

// TextChunk is the atomic retrieval unit: a bounded, positionally
// anchored excerpt of one section of one document. Its ID is
// deterministic from (law id, line span) so re-chunking an unchanged
// document is idempotent.
type TextChunk struct {
	ID           string
	LawID        string
	LawName      string
	Jurisdiction string
	SectionLabel string
	SectionPath  string
	Content      string
	StartLine    int
	EndLine      int
	StartChar    int
	EndChar      int
	SourcePath   string
}

// SearchResult is one ranked hit, constructed per query and never
// persisted.
type SearchResult struct {
	ChunkID      string  `json:"chunk_id"`
	LawID        string  `json:"law_id"`
	LawName      string  `json:"law_name"`
	Jurisdiction string  `json:"jurisdiction"`
	SectionLabel string  `json:"section_label"`
	Score        float64 `json:"score"`
	DenseScore   float64 `json:"dense_score"`
	SparseScore  float64 `json:"sparse_score"`
	Snippet      string  `json:"snippet"`
	StartLine    int     `json:"start_line"`
	EndLine      int     `json:"end_line"`
	SourcePath   string  `json:"source_path"`
}

// ParseWarning records a non-fatal loading problem (encoding fallback,
// unmatched optional pattern). Accumulated in document metadata, never
// raised.
type ParseWarning struct {
	LawID   string `json:"law_id"`
	Message string `json:"message"`
}

// CorpusStats summarizes the indexed corpus.
type CorpusStats struct {
	TotalDocs   int
	TotalChunks int
	AvgChunkLen float64
}

// EvidenceRecord is one immutable audit entry. Required fields are
// substituted with sentinels when missing, so a record stays
// structurally valid even when it captures a failed decision.
type EvidenceRecord struct {
	RequestID   string             `json:"request_id"`
	Timestamp   string             `json:"timestamp"`
	Component   string             `json:"component"`
	Decision    bool               `json:"decision"`
	Reasoning   string             `json:"reasoning"`
	FeatureID   string             `json:"feature_id,omitempty"`
	Regulations []string           `json:"regulations,omitempty"`
	Confidence  float64            `json:"confidence,omitempty"`
	Retrieval   map[string]any     `json:"retrieval,omitempty"`
	Model       map[string]any     `json:"model,omitempty"`
	Timings     map[string]float64 `json:"timings,omitempty"`
	ErrorInfo   *ErrorInfo         `json:"error,omitempty"`
}

// ErrorInfo carries structured failure detail inside an EvidenceRecord.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NowISO returns the timestamp format used across evidence records.
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

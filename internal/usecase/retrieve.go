package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"lawrag/internal/adapter/cache"
	"lawrag/internal/adapter/retriever"
	"lawrag/internal/adapter/vectorindex"
	"lawrag/internal/domain"
	"lawrag/internal/port"
)

const componentName = "retrieval_service"

// Version is one immutable, fully built index generation: vector
// index, fitted sparse scorer wired into the ranker, and the shared
// corpus ordering. Queries read whichever version is installed;
// installing a new one is an atomic pointer swap.
type Version struct {
	Index  *vectorindex.Index
	Ranker *retriever.HybridRanker
	Chunks []domain.TextChunk
	Stats  domain.CorpusStats
}

// Request is one retrieval call.
type Request struct {
	RequestID string
	Query     string
	Laws      []string
	TopK      int
	MaxChars  int
}

// Response is always well-formed; zero results is a valid outcome, not
// an error.
type Response struct {
	RequestID    string                `json:"request_id"`
	Results      []domain.SearchResult `json:"results"`
	LatencyMS    float64               `json:"latency_ms"`
	LawsSearched []string              `json:"laws_searched"`
	CacheHit     bool                  `json:"cache_hit"`
}

// Status is the health/status view of the service.
type Status struct {
	Ready         bool    `json:"ready"`
	TotalQueries  uint64  `json:"total_queries"`
	AvgLatencyMS  float64 `json:"avg_latency_ms"`
	P50LatencyMS  float64 `json:"p50_latency_ms"`
	P95LatencyMS  float64 `json:"p95_latency_ms"`
	CacheHits     uint64  `json:"cache_hits"`
	CacheMisses   uint64  `json:"cache_misses"`
	CacheSize     int     `json:"cache_size"`
	IndexedChunks int     `json:"indexed_chunks"`
}

// Service orchestrates the retrieval pipeline under concurrent load.
// The cache and the latency window are the only mutable shared state;
// each is guarded by its own small critical section so embedding and
// search work is never serialized.
type Service struct {
	current  atomic.Pointer[Version]
	cache    *cache.QueryCache
	evidence port.DecisionLogger
	log      *slog.Logger

	timeout   time.Duration
	overFetch int

	latMu     sync.Mutex
	latencies []float64
	latWindow int

	queries atomic.Uint64
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the operational logger. Default is slog.Default().
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTimeout bounds embedding plus vector search per request.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithOverFetch sets the dense candidate multiplier over top_k.
func WithOverFetch(factor int) ServiceOption {
	return func(s *Service) {
		if factor > 0 {
			s.overFetch = factor
		}
	}
}

// WithLatencyWindow bounds the rolling latency sample count.
func WithLatencyWindow(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.latWindow = n
		}
	}
}

// NewService builds a Service. The evidence logger is owned by the
// caller and shared by reference; it must not be nil.
func NewService(queryCache *cache.QueryCache, evidenceLog port.DecisionLogger, opts ...ServiceOption) (*Service, error) {
	if queryCache == nil {
		return nil, fmt.Errorf("query cache required")
	}
	if evidenceLog == nil {
		return nil, fmt.Errorf("evidence logger required")
	}

	s := &Service{
		cache:     queryCache,
		evidence:  evidenceLog,
		log:       slog.Default(),
		timeout:   5 * time.Second,
		overFetch: 3,
		latWindow: 1000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Install atomically swaps in a new index version and invalidates the
// cache. Queries in flight keep reading the prior version.
func (s *Service) Install(v *Version) {
	s.current.Store(v)
	s.cache.Invalidate()
	if v != nil {
		s.log.Info("index version installed",
			"chunks", v.Stats.TotalChunks, "docs", v.Stats.TotalDocs)
	}
}

// Ready reports whether an index version is installed.
func (s *Service) Ready() bool {
	v := s.current.Load()
	return v != nil && v.Index.Built()
}

// Retrieve runs the full pipeline. Validation failures are returned to
// the caller before any index access; every internal failure converts
// to an empty, zero-latency response with an evidence record carrying
// decision=false.
func (s *Service) Retrieve(ctx context.Context, req Request) (Response, error) {
	if err := validate(req); err != nil {
		return Response{}, err
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	start := time.Now()
	s.queries.Add(1)

	version := s.current.Load()
	if version == nil || !version.Index.Built() {
		return s.fail(req, nil, "index_unavailable", domain.ErrIndexNotBuilt)
	}

	canonLaws := cache.CanonicalFilter(req.Laws)
	searched := canonLaws
	if len(searched) == 0 {
		searched = lawIDs(version.Chunks)
	}

	key := cache.Key(req.Query, req.Laws, req.TopK, req.MaxChars)
	if results, hit := s.cache.Get(key); hit {
		resp := Response{
			RequestID:    req.RequestID,
			Results:      results,
			LatencyMS:    msSince(start),
			LawsSearched: searched,
			CacheHit:     true,
		}
		s.recordLatency(resp.LatencyMS)
		s.logDecision(req, resp, nil)
		return resp, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	queryVec, err := version.Index.EmbedQuery(ctx, req.Query)
	if err != nil {
		return s.fail(req, searched, "embedding_failed", err)
	}

	// Over-fetch dense candidates so the ranker has room to re-order.
	fetchK := req.TopK * s.overFetch
	if fetchK < 20 {
		fetchK = 20
	}
	hits, err := version.Index.Search(queryVec, fetchK)
	if err != nil {
		return s.fail(req, searched, "vector_search_failed", err)
	}
	if err := ctx.Err(); err != nil {
		return s.fail(req, searched, "timeout", err)
	}

	denseScores := make(map[int]float64, len(hits))
	for _, hit := range hits {
		denseScores[hit.Ordinal] = hit.Score
	}

	results := version.Ranker.Retrieve(req.Query, denseScores, canonLaws, req.TopK, req.MaxChars)
	if results == nil {
		results = []domain.SearchResult{}
	}

	resp := Response{
		RequestID:    req.RequestID,
		Results:      results,
		LatencyMS:    msSince(start),
		LawsSearched: searched,
	}

	s.cache.Put(key, results)
	s.recordLatency(resp.LatencyMS)
	s.logDecision(req, resp, nil)
	return resp, nil
}

// Status reports readiness and service counters.
func (s *Service) Status() Status {
	hits, misses, size := s.cache.Stats()

	s.latMu.Lock()
	avg, p50, p95 := latencySummary(s.latencies)
	s.latMu.Unlock()

	st := Status{
		Ready:        s.Ready(),
		TotalQueries: s.queries.Load(),
		AvgLatencyMS: avg,
		P50LatencyMS: p50,
		P95LatencyMS: p95,
		CacheHits:    hits,
		CacheMisses:  misses,
		CacheSize:    size,
	}
	if v := s.current.Load(); v != nil {
		st.IndexedChunks = v.Index.Count()
	}
	return st
}

// fail converts an internal failure into the empty-result contract and
// records audit evidence with decision=false.
func (s *Service) fail(req Request, searched []string, kind string, cause error) (Response, error) {
	s.log.Warn("retrieval degraded to empty result",
		"request_id", req.RequestID, "kind", kind, "err", cause)

	resp := Response{
		RequestID:    req.RequestID,
		Results:      []domain.SearchResult{},
		LatencyMS:    0,
		LawsSearched: searched,
	}
	s.logDecision(req, resp, &domain.ErrorInfo{Kind: kind, Message: cause.Error()})
	return resp, nil
}

// logDecision emits exactly one evidence record per retrieval outcome.
func (s *Service) logDecision(req Request, resp Response, errInfo *domain.ErrorInfo) {
	regs := make([]string, 0, len(resp.Results))
	seen := make(map[string]struct{}, len(resp.Results))
	var confidence float64
	for _, r := range resp.Results {
		if r.Score > confidence {
			confidence = r.Score
		}
		if _, dup := seen[r.LawID]; !dup {
			seen[r.LawID] = struct{}{}
			regs = append(regs, r.LawID)
		}
	}

	reasoning := fmt.Sprintf("returned %d passages for query %q", len(resp.Results), req.Query)
	if errInfo != nil {
		reasoning = fmt.Sprintf("retrieval failed (%s) for query %q, returned empty result", errInfo.Kind, req.Query)
	}

	record := domain.EvidenceRecord{
		RequestID:   req.RequestID,
		Timestamp:   domain.NowISO(),
		Component:   componentName,
		Decision:    errInfo == nil,
		Reasoning:   reasoning,
		Regulations: regs,
		Confidence:  confidence,
		Retrieval: map[string]any{
			"query":         req.Query,
			"top_k":         req.TopK,
			"max_chars":     req.MaxChars,
			"laws_searched": resp.LawsSearched,
			"num_results":   len(resp.Results),
			"cache_hit":     resp.CacheHit,
		},
		Timings:   map[string]float64{"total_ms": resp.LatencyMS},
		ErrorInfo: errInfo,
	}

	if err := s.evidence.LogDecision(record); err != nil {
		s.log.Warn("evidence logging failed", "request_id", req.RequestID, "err", err)
	}
}

func (s *Service) recordLatency(ms float64) {
	s.latMu.Lock()
	defer s.latMu.Unlock()

	if len(s.latencies) >= s.latWindow {
		// Evict oldest-first to keep the window bounded.
		s.latencies = s.latencies[1:]
	}
	s.latencies = append(s.latencies, ms)
}

func validate(req Request) error {
	if strings.TrimSpace(req.Query) == "" {
		return domain.ErrEmptyQuery
	}
	if req.TopK <= 0 {
		return domain.ErrInvalidTopK
	}
	if req.MaxChars <= 0 {
		return domain.ErrInvalidMaxChars
	}
	return nil
}

func lawIDs(chunks []domain.TextChunk) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, c := range chunks {
		if _, dup := seen[c.LawID]; !dup {
			seen[c.LawID] = struct{}{}
			ids = append(ids, c.LawID)
		}
	}
	return ids
}

func latencySummary(window []float64) (avg, p50, p95 float64) {
	if len(window) == 0 {
		return 0, 0, 0
	}

	sorted := make([]float64, len(window))
	copy(sorted, window)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	avg = sum / float64(len(sorted))
	p50 = sorted[nearestRank(len(sorted), 0.50)]
	p95 = sorted[nearestRank(len(sorted), 0.95)]
	return avg, p50, p95
}

func nearestRank(n int, p float64) int {
	idx := int(math.Ceil(p*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	return idx
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

package evidence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"lawrag/internal/domain"
)

// Filter selects evidence records for export. Zero values match
// everything.
type Filter struct {
	From      time.Time
	To        time.Time
	Component string
	Decision  *bool
	Search    string // free-text match over the serialized record
}

// AggregateResult is a paginated, aggregated view over matching
// records.
type AggregateResult struct {
	Total        int                       `json:"total"`
	Page         int                       `json:"page"`
	PageSize     int                       `json:"page_size"`
	Records      []domain.EvidenceRecord   `json:"records"`
	ByDecision   map[string]int            `json:"by_decision"`
	ByComponent  map[string]int            `json:"by_component"`
	ByRegulation map[string]int            `json:"by_regulation"`
	LatencyP50MS float64                   `json:"latency_p50_ms"`
	LatencyP95MS float64                   `json:"latency_p95_ms"`
}

// Exporter reads across sink files in a window and serves filtered
// exports. It only ever reads; the Logger owns writes.
type Exporter struct {
	dir string
}

func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// Records returns every record matching the filter, in file then line
// order. Unknown fields in a sink line are ignored (forward-compatible
// schema); unreadable lines are skipped.
func (e *Exporter) Records(filter Filter) ([]domain.EvidenceRecord, error) {
	files, err := e.sinkFiles(filter)
	if err != nil {
		return nil, err
	}

	var records []domain.EvidenceRecord
	for _, path := range files {
		if err := e.scanFile(path, filter, &records); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// Tabular flattens matching records into header + rows for CSV-style
// export.
func (e *Exporter) Tabular(filter Filter) ([]string, [][]string, error) {
	records, err := e.Records(filter)
	if err != nil {
		return nil, nil, err
	}

	header := []string{
		"request_id", "timestamp", "component", "decision",
		"reasoning", "feature_id", "regulations", "confidence", "error",
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		errText := ""
		if r.ErrorInfo != nil {
			errText = r.ErrorInfo.Kind + ": " + r.ErrorInfo.Message
		}
		rows = append(rows, []string{
			r.RequestID,
			r.Timestamp,
			r.Component,
			fmt.Sprintf("%t", r.Decision),
			r.Reasoning,
			r.FeatureID,
			strings.Join(r.Regulations, ";"),
			fmt.Sprintf("%.3f", r.Confidence),
			errText,
		})
	}
	return header, rows, nil
}

// Aggregate computes counts by decision/component/regulation and
// latency percentiles over all matching records, returning one page of
// the underlying records alongside.
func (e *Exporter) Aggregate(filter Filter, page, pageSize int) (*AggregateResult, error) {
	records, err := e.Records(filter)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}

	res := &AggregateResult{
		Total:        len(records),
		Page:         page,
		PageSize:     pageSize,
		ByDecision:   make(map[string]int),
		ByComponent:  make(map[string]int),
		ByRegulation: make(map[string]int),
	}

	var latencies []float64
	for _, r := range records {
		res.ByDecision[fmt.Sprintf("%t", r.Decision)]++
		res.ByComponent[r.Component]++
		for _, reg := range r.Regulations {
			res.ByRegulation[reg]++
		}
		if ms, ok := r.Timings["total_ms"]; ok {
			latencies = append(latencies, ms)
		}
	}

	sort.Float64s(latencies)
	res.LatencyP50MS = percentile(latencies, 0.50)
	res.LatencyP95MS = percentile(latencies, 0.95)

	start := (page - 1) * pageSize
	if start < len(records) {
		end := start + pageSize
		if end > len(records) {
			end = len(records)
		}
		res.Records = records[start:end]
	}

	return res, nil
}

func (e *Exporter) scanFile(path string, filter Filter, out *[]domain.EvidenceRecord) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record domain.EvidenceRecord
		if err := json.Unmarshal(line, &record); err != nil {
			continue // tolerate a torn or foreign line
		}
		if filter.matches(record, line) {
			*out = append(*out, record)
		}
	}
	return scanner.Err()
}

func (f Filter) matches(record domain.EvidenceRecord, raw []byte) bool {
	if f.Component != "" && record.Component != f.Component {
		return false
	}
	if f.Decision != nil && record.Decision != *f.Decision {
		return false
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		ts, err := time.Parse(time.RFC3339Nano, record.Timestamp)
		if err != nil {
			return false
		}
		if !f.From.IsZero() && ts.Before(f.From) {
			return false
		}
		if !f.To.IsZero() && ts.After(f.To) {
			return false
		}
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(string(raw)), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// sinkFiles lists sink files in ascending date order, pre-filtered by
// the filter's date range at file granularity.
func (e *Exporter) sinkFiles(filter Filter) ([]string, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		date, ok := sinkFileDate(entry.Name())
		if !ok {
			continue
		}
		if !filter.From.IsZero() && date.Before(filter.From.Truncate(24*time.Hour)) {
			continue
		}
		if !filter.To.IsZero() && date.After(filter.To) {
			continue
		}
		files = append(files, filepath.Join(e.dir, entry.Name()))
	}

	sort.Strings(files)
	return files, nil
}

// percentile is nearest-rank over an ascending slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

package evidence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lawrag/internal/domain"
)

func writeSinkFile(t *testing.T, dir, date string, records []domain.EvidenceRecord) {
	t.Helper()
	path := filepath.Join(dir, "evidence-"+date+".jsonl")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	require.NoError(t, err)
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, r := range records {
		require.NoError(t, enc.Encode(r))
	}
}

func exportFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeSinkFile(t, dir, "2026-08-25", []domain.EvidenceRecord{
		{
			RequestID: "req-1", Timestamp: "2026-08-25T10:00:00Z",
			Component: "retrieval_service", Decision: true,
			Reasoning:   "matched parental consent provisions",
			Regulations: []string{"COPPA"},
			Timings:     map[string]float64{"total_ms": 12},
		},
		{
			RequestID: "req-2", Timestamp: "2026-08-25T11:00:00Z",
			Component: "retrieval_service", Decision: false,
			Reasoning: "index unavailable",
			ErrorInfo: &domain.ErrorInfo{Kind: "index_not_built", Message: "no artifact"},
			Timings:   map[string]float64{"total_ms": 1},
		},
	})
	writeSinkFile(t, dir, "2026-08-26", []domain.EvidenceRecord{
		{
			RequestID: "req-3", Timestamp: "2026-08-26T09:00:00Z",
			Component: "index_builder", Decision: true,
			Reasoning:   "rebuild completed",
			Regulations: []string{"COPPA", "GDPR"},
			Timings:     map[string]float64{"total_ms": 40},
		},
	})
	return dir
}

func TestRecordsReadsAcrossFilesInOrder(t *testing.T) {
	e := NewExporter(exportFixture(t))

	records, err := e.Records(Filter{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "req-1", records[0].RequestID)
	assert.Equal(t, "req-3", records[2].RequestID)
}

func TestRecordsFilters(t *testing.T) {
	e := NewExporter(exportFixture(t))

	byComponent, err := e.Records(Filter{Component: "index_builder"})
	require.NoError(t, err)
	require.Len(t, byComponent, 1)
	assert.Equal(t, "req-3", byComponent[0].RequestID)

	denied := false
	byDecision, err := e.Records(Filter{Decision: &denied})
	require.NoError(t, err)
	require.Len(t, byDecision, 1)
	assert.Equal(t, "req-2", byDecision[0].RequestID)

	from, _ := time.Parse(time.RFC3339, "2026-08-26T00:00:00Z")
	byDate, err := e.Records(Filter{From: from})
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, "req-3", byDate[0].RequestID)

	bySearch, err := e.Records(Filter{Search: "parental consent"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	assert.Equal(t, "req-1", bySearch[0].RequestID)
}

func TestRecordsToleratesTornLines(t *testing.T) {
	dir := exportFixture(t)
	torn := filepath.Join(dir, "evidence-2026-08-24.jsonl")
	require.NoError(t, os.WriteFile(torn, []byte("{\"request_id\":\"req-0\",\"component\":\"retrieval_service\",\"decision\":true}\n{\"request_id\":\"trunc"), 0644))

	e := NewExporter(dir)
	records, err := e.Records(Filter{})
	require.NoError(t, err)
	assert.Len(t, records, 4, "torn line should be skipped, intact lines kept")
}

func TestRecordsMissingDir(t *testing.T) {
	e := NewExporter(filepath.Join(t.TempDir(), "nope"))
	records, err := e.Records(Filter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAggregateCountsAndPercentiles(t *testing.T) {
	e := NewExporter(exportFixture(t))

	res, err := e.Aggregate(Filter{}, 1, 2)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.ByDecision["true"])
	assert.Equal(t, 1, res.ByDecision["false"])
	assert.Equal(t, 2, res.ByComponent["retrieval_service"])
	assert.Equal(t, 1, res.ByComponent["index_builder"])
	assert.Equal(t, 2, res.ByRegulation["COPPA"])
	assert.Equal(t, 1, res.ByRegulation["GDPR"])
	assert.Equal(t, 12.0, res.LatencyP50MS)
	assert.Equal(t, 40.0, res.LatencyP95MS)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "req-1", res.Records[0].RequestID)

	page2, err := e.Aggregate(Filter{}, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2.Records, 1)
	assert.Equal(t, "req-3", page2.Records[0].RequestID)
}

func TestTabularExport(t *testing.T) {
	e := NewExporter(exportFixture(t))

	header, rows, err := e.Tabular(Filter{})
	require.NoError(t, err)
	assert.Equal(t, "request_id", header[0])
	require.Len(t, rows, 3)
	assert.Equal(t, "req-2", rows[1][0])
	assert.Contains(t, rows[1][8], "index_not_built")
	assert.Equal(t, "COPPA;GDPR", rows[2][6])
}

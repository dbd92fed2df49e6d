package evidence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"lawrag/config"
	"lawrag/internal/domain"
)

const (
	filePrefix = "evidence-"
	fileExt    = ".jsonl"

	sentinelComponent = "unknown"
	sentinelReasoning = "[not provided]"
)

// Logger is the append-only audit sink. One Logger instance is one
// logical audit stream; it is constructed explicitly by its owner and
// passed by reference to every collaborator that logs (no process-wide
// singleton). Writes never panic past LogDecision; a failed write is
// reported through the return value and a counter.
type Logger struct {
	dir           string
	rotateOnSize  bool
	maxBytes      int64
	retentionDays int
	redactor      *Redactor
	log           *slog.Logger

	// mu guards the active file handle and the rotation decision so
	// concurrent writers interleave only at line granularity.
	mu       sync.Mutex
	file     *os.File
	fileDate string
	fileSize int64
	fileSeq  int

	writeFailures atomic.Uint64
	written       atomic.Uint64
}

// Option configures a Logger.
type Option func(*Logger)

// WithSlog sets the operational logger. Default is slog.Default().
func WithSlog(log *slog.Logger) Option {
	return func(l *Logger) {
		if log != nil {
			l.log = log
		}
	}
}

// NewLogger opens the sink directory, sweeps files past the retention
// window, and prepares the active sink.
func NewLogger(cfg config.EvidenceConfig, opts ...Option) (*Logger, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("evidence dir must be set")
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create evidence dir: %w", err)
	}

	l := &Logger{
		dir:           cfg.Dir,
		rotateOnSize:  cfg.Rotation == "size",
		maxBytes:      cfg.MaxBytes,
		retentionDays: cfg.RetentionDays,
		redactor:      NewRedactor(),
		log:           slog.Default(),
	}
	if l.rotateOnSize && l.maxBytes <= 0 {
		l.maxBytes = 64 << 20
	}

	for _, opt := range opts {
		opt(l)
	}

	l.sweepRetention()
	return l, nil
}

// LogDecision validates, redacts, and appends one record as a single
// line. Missing required fields are substituted with sentinels rather
// than rejected: audit logging must never be the reason a compliance
// decision fails.
func (l *Logger) LogDecision(record domain.EvidenceRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.writeFailures.Add(1)
			err = fmt.Errorf("evidence write panicked: %v", r)
		}
	}()

	applySentinels(&record)

	line, err := l.encode(record)
	if err != nil {
		l.writeFailures.Add(1)
		l.log.Error("evidence record not encodable", "request_id", record.RequestID, "err", err)
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rotateLocked(len(line)); err != nil {
		l.writeFailures.Add(1)
		l.log.Error("evidence sink rotation failed", "err", err)
		return err
	}

	n, err := l.file.Write(line)
	if err != nil {
		l.writeFailures.Add(1)
		l.log.Error("evidence write failed", "request_id", record.RequestID, "err", err)
		return err
	}

	l.fileSize += int64(n)
	l.written.Add(1)
	return nil
}

// Written returns the number of records appended.
func (l *Logger) Written() uint64 {
	return l.written.Load()
}

// WriteFailures returns the number of failed appends.
func (l *Logger) WriteFailures() uint64 {
	return l.writeFailures.Load()
}

// Close closes the active sink file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func applySentinels(record *domain.EvidenceRecord) {
	if record.RequestID == "" {
		record.RequestID = uuid.NewString()
	}
	if record.Timestamp == "" {
		record.Timestamp = domain.NowISO()
	}
	if record.Component == "" {
		record.Component = sentinelComponent
	}
	if strings.TrimSpace(record.Reasoning) == "" {
		record.Reasoning = sentinelReasoning
	}
}

// encode round-trips the record through generic JSON so redaction
// reaches every string leaf, including nested metadata maps.
func (l *Logger) encode(record domain.EvidenceRecord) ([]byte, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}

	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	redacted := l.redactor.RedactValue(generic)

	line, err := json.Marshal(redacted)
	if err != nil {
		return nil, err
	}
	return append(line, '\n'), nil
}

// rotateLocked opens or swaps the active sink file. Caller holds mu.
func (l *Logger) rotateLocked(pending int) error {
	today := time.Now().UTC().Format("2006-01-02")

	needsNew := l.file == nil || l.fileDate != today
	if !needsNew && l.rotateOnSize && l.fileSize+int64(pending) > l.maxBytes {
		l.fileSeq++
		needsNew = true
	}
	if !needsNew {
		return nil
	}

	if l.fileDate != today {
		l.fileSeq = 0
	}

	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	name := filePrefix + today
	if l.fileSeq > 0 {
		name = fmt.Sprintf("%s-%03d", name, l.fileSeq)
	}
	path := filepath.Join(l.dir, name+fileExt)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	l.file = f
	l.fileDate = today
	l.fileSize = info.Size()
	return nil
}

// sweepRetention deletes sink files whose date stem falls outside the
// retention window. Failures are logged and ignored.
func (l *Logger) sweepRetention() {
	if l.retentionDays <= 0 {
		return
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -l.retentionDays)

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		l.log.Warn("retention sweep skipped", "err", err)
		return
	}

	for _, entry := range entries {
		date, ok := sinkFileDate(entry.Name())
		if !ok {
			continue
		}
		if date.Before(cutoff) {
			if err := os.Remove(filepath.Join(l.dir, entry.Name())); err != nil {
				l.log.Warn("retention delete failed", "file", entry.Name(), "err", err)
			}
		}
	}
}

// sinkFileDate parses the date stem of an evidence sink file name,
// tolerating a size-rotation sequence suffix.
func sinkFileDate(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
		return time.Time{}, false
	}
	stem := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileExt)
	if len(stem) > 10 {
		stem = stem[:10]
	}
	date, err := time.Parse("2006-01-02", stem)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

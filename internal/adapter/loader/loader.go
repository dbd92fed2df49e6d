package loader

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"lawrag/config"
	"lawrag/internal/adapter/fs"
	"lawrag/internal/domain"
)

// Loader resolves law ids to normalized document text. The source
// table is an injected configuration object, so multiple corpora can
// coexist in one process.
type Loader struct {
	sources map[string]config.LawSource
	order   []string
}

// New builds a Loader from explicit sources plus any files discovered
// under cfg.Dir by the include/exclude globs. Discovered files use the
// file stem as law id and inherit no section patterns (the generic
// fallback section applies). Explicit sources win on id collision.
func New(cfg config.CorpusConfig) (*Loader, error) {
	l := &Loader{sources: make(map[string]config.LawSource)}

	if cfg.Dir != "" && len(cfg.Includes) > 0 {
		walker := fs.NewWalker(cfg.Includes, cfg.Excludes)
		paths, err := walker.Discover(cfg.Dir)
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			l.add(config.LawSource{
				ID:           stem,
				Name:         stem,
				Jurisdiction: "unspecified",
				Path:         path,
			})
		}
	}

	for _, src := range cfg.Sources {
		if src.ID == "" {
			return nil, domain.NewConfigurationError("corpus.sources", "source with empty id (path %q)", src.Path)
		}
		l.add(src)
	}

	return l, nil
}

func (l *Loader) add(src config.LawSource) {
	if _, seen := l.sources[src.ID]; !seen {
		l.order = append(l.order, src.ID)
	}
	l.sources[src.ID] = src
}

// LawIDs returns every known law id in stable order.
func (l *Loader) LawIDs() []string {
	ids := make([]string, len(l.order))
	copy(ids, l.order)
	return ids
}

// Source returns the configured source for a law id.
func (l *Loader) Source(lawID string) (config.LawSource, bool) {
	src, ok := l.sources[lawID]
	return src, ok
}

// Load reads and normalizes the text for a law id and detects its
// sections. Unknown ids and missing source files fail fast with a
// ConfigurationError; invalid encoding degrades to best-effort
// decoding recorded as a ParseWarning.
func (l *Loader) Load(lawID string) (domain.LegalDocument, []domain.Section, error) {
	src, ok := l.sources[lawID]
	if !ok {
		return domain.LegalDocument{}, nil, domain.NewConfigurationError(lawID, "unknown law id")
	}

	raw, err := os.ReadFile(src.Path)
	if err != nil {
		return domain.LegalDocument{}, nil, domain.NewConfigurationError(lawID, "source not readable: %v", err)
	}

	doc := domain.LegalDocument{
		LawID:        src.ID,
		Name:         src.Name,
		Jurisdiction: src.Jurisdiction,
		SourcePath:   src.Path,
	}

	text := string(raw)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
		doc.Warnings = append(doc.Warnings, domain.ParseWarning{
			LawID:   src.ID,
			Message: "invalid UTF-8 in source, replaced undecodable bytes",
		})
	}

	doc.Text = normalize(text)
	doc.LineCount = lineCount(doc.Text)

	detector, err := newSectionDetector(src.Patterns)
	if err != nil {
		return domain.LegalDocument{}, nil, domain.NewConfigurationError(lawID, "bad section pattern: %v", err)
	}

	sections := detector.Detect(doc.Text)
	if len(sections) == 1 && sections[0].Label == genericSectionLabel && len(src.Patterns) > 0 {
		doc.Warnings = append(doc.Warnings, domain.ParseWarning{
			LawID:   src.ID,
			Message: "no section pattern matched, using single generic section",
		})
	}

	return doc, sections, nil
}

// normalize collapses line endings to \n and strips trailing
// whitespace per line. Leading indentation is preserved; it can be
// structurally meaningful in statute text.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

func lineCount(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, "\n") + 1
}

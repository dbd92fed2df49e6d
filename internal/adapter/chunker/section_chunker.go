package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"lawrag/internal/domain"
)

// SectionChunker splits detected sections into overlapping, boundary
// aware passages. A section that fits the character window becomes one
// chunk; larger sections split into [minChars, maxChars] windows with
// break-point search preferring sentence end, then paragraph break,
// then line break, then the raw maximum. Overlap is a fixed fraction
// of maxChars so no boundary-spanning fact is lost from every chunk.
type SectionChunker struct {
	maxChars     int
	minChars     int
	overlapRatio float64
}

func NewSectionChunker(maxChars, minChars int, overlapRatio float64) *SectionChunker {
	if maxChars <= 0 {
		maxChars = 900
	}
	if minChars <= 0 || minChars >= maxChars {
		minChars = maxChars * 2 / 3
	}
	if overlapRatio < 0 || overlapRatio >= 1 {
		overlapRatio = 0.15
	}
	return &SectionChunker{
		maxChars:     maxChars,
		minChars:     minChars,
		overlapRatio: overlapRatio,
	}
}

// Overlap returns the fixed overlap width in characters.
func (c *SectionChunker) Overlap() int {
	return int(float64(c.maxChars) * c.overlapRatio)
}

// ChunkDocument chunks every section of a document. Re-running on an
// unchanged document yields byte-identical chunks.
func (c *SectionChunker) ChunkDocument(doc domain.LegalDocument, sections []domain.Section) []domain.TextChunk {
	lines := strings.Split(doc.Text, "\n")
	lineStarts := lineStartOffsets(lines)

	var chunks []domain.TextChunk
	for _, sec := range sections {
		chunks = append(chunks, c.chunkSection(doc, sec, lines, lineStarts)...)
	}
	return chunks
}

func (c *SectionChunker) chunkSection(doc domain.LegalDocument, sec domain.Section, lines []string, lineStarts []int) []domain.TextChunk {
	if sec.StartLine < 1 || sec.EndLine > len(lines) || sec.StartLine > sec.EndLine {
		return nil
	}

	secStart := lineStarts[sec.StartLine-1]
	secEnd := lineStarts[sec.EndLine-1] + len(lines[sec.EndLine-1])
	text := doc.Text

	var chunks []domain.TextChunk
	start := secStart

	for start < secEnd {
		end := c.findBreak(text, start, secEnd)

		chunks = append(chunks, c.newChunk(doc, sec, text, lineStarts, start, end))

		if end >= secEnd {
			break
		}

		next := end - c.Overlap()
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// findBreak picks the end offset for a chunk starting at start.
func (c *SectionChunker) findBreak(text string, start, secEnd int) int {
	if secEnd-start <= c.maxChars {
		return secEnd
	}

	lo := start + c.minChars
	hi := start + c.maxChars
	window := text[lo:hi]

	if at := lastSentenceEnd(window); at >= 0 {
		return lo + at
	}
	if at := strings.LastIndex(window, "\n\n"); at >= 0 {
		return lo + at + 1
	}
	if at := strings.LastIndexByte(window, '\n'); at >= 0 {
		return lo + at + 1
	}
	return hi
}

// lastSentenceEnd returns the offset just past the last sentence
// terminator in s, or -1.
func lastSentenceEnd(s string) int {
	best := -1
	for i := len(s) - 1; i > 0; i-- {
		ch := s[i]
		if ch != ' ' && ch != '\n' {
			continue
		}
		prev := s[i-1]
		if prev == '.' || prev == '!' || prev == '?' || prev == ';' {
			best = i + 1
			break
		}
	}
	return best
}

func (c *SectionChunker) newChunk(doc domain.LegalDocument, sec domain.Section, text string, lineStarts []int, start, end int) domain.TextChunk {
	startLine := lineAt(lineStarts, start)
	endLine := lineAt(lineStarts, end-1)

	return domain.TextChunk{
		ID:           chunkID(doc.LawID, startLine, endLine, start, end),
		LawID:        doc.LawID,
		LawName:      doc.Name,
		Jurisdiction: doc.Jurisdiction,
		SectionLabel: sec.Label,
		SectionPath:  sec.Path,
		Content:      text[start:end],
		StartLine:    startLine,
		EndLine:      endLine,
		StartChar:    start,
		EndChar:      end,
		SourcePath:   doc.SourcePath,
	}
}

// chunkID derives a stable id from the law id and the chunk's span.
// Char offsets disambiguate multiple windows cut from one long line.
func chunkID(lawID string, startLine, endLine, startChar, endChar int) string {
	data := fmt.Sprintf("%s:%d-%d:%d-%d", lawID, startLine, endLine, startChar, endChar)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}

func lineStartOffsets(lines []string) []int {
	starts := make([]int, len(lines))
	offset := 0
	for i, line := range lines {
		starts[i] = offset
		offset += len(line) + 1 // trailing \n
	}
	return starts
}

// lineAt returns the 1-based line containing the char offset.
func lineAt(starts []int, offset int) int {
	lo, hi := 0, len(starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1
}

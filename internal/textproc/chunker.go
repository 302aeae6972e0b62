package textproc

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"

	"github.com/xxxsen/docqa/internal/model"
)

const (
	defaultChunkWindow  = 1200
	defaultChunkOverlap = 400
	minChunkLen         = 50
	maxHeadingLevel     = 4
)

// Chunker splits markdown first along heading boundaries (levels 1-4,
// heading text kept with its section), then into fixed-size overlapping
// windows that prefer paragraph and sentence breaks over hard cuts.
// Identical input always yields identical chunk boundaries and indices.
type Chunker struct {
	window  int
	overlap int
}

func NewChunker() *Chunker {
	return &Chunker{window: defaultChunkWindow, overlap: defaultChunkOverlap}
}

func (c *Chunker) Chunk(markdown string, origin string) []model.Chunk {
	md := NormalizeForChunking(markdown)
	var chunks []model.Chunk
	index := 0
	for _, section := range splitHeadingSections(md) {
		for _, piece := range windowSplit(section, c.window, c.overlap) {
			idx := index
			index++
			trimmed := strings.TrimSpace(piece)
			if len(trimmed) < minChunkLen {
				continue
			}
			chunks = append(chunks, model.Chunk{
				Text:       trimmed,
				Source:     origin,
				ChunkIndex: idx,
			})
		}
	}
	return chunks
}

// splitHeadingSections cuts the source at every heading of level 1-4.
// Parsing through goldmark keeps "#" lines inside fenced code blocks from
// being treated as boundaries.
func splitHeadingSections(md string) []string {
	if md == "" {
		return nil
	}
	src := []byte(md)
	doc := goldmark.New().Parser().Parse(gtext.NewReader(src))
	var starts []int
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		h, ok := node.(*ast.Heading)
		if !ok || h.Level > maxHeadingLevel {
			continue
		}
		if h.Lines().Len() == 0 {
			continue
		}
		starts = append(starts, lineStart(src, h.Lines().At(0).Start))
	}
	if len(starts) == 0 {
		return []string{md}
	}
	var sections []string
	if starts[0] > 0 {
		sections = append(sections, md[:starts[0]])
	}
	for i, s := range starts {
		end := len(md)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		sections = append(sections, md[s:end])
	}
	return sections
}

func lineStart(src []byte, pos int) int {
	for pos > 0 && src[pos-1] != '\n' {
		pos--
	}
	return pos
}

var breakMarkers = []string{"\n\n", "\n", ". ", " "}

func windowSplit(s string, window, overlap int) []string {
	if len(s) <= window {
		return []string{s}
	}
	var out []string
	start := 0
	for {
		end := start + window
		if end >= len(s) {
			out = append(out, s[start:])
			break
		}
		cut := findBreak(s, start, end)
		out = append(out, s[start:cut])
		next := cut - overlap
		if next <= start {
			// Degenerate overlap configuration, fall back to no overlap
			// rather than looping forever.
			next = cut
		}
		start = runeStart(s, next)
	}
	return out
}

// findBreak searches the second half of the window for a natural
// boundary, most-structured marker first, and hard-cuts at the window
// edge when none is found.
func findBreak(s string, start, end int) int {
	floor := start + (end-start)/2
	for _, marker := range breakMarkers {
		if idx := strings.LastIndex(s[floor:end], marker); idx >= 0 {
			return floor + idx + len(marker)
		}
	}
	return runeStart(s, end)
}

func runeStart(s string, pos int) int {
	for pos > 0 && pos < len(s) && !utf8.RuneStart(s[pos]) {
		pos--
	}
	return pos
}

package chunker

import (
	"context"
	"strings"

	"github.com/dshills/codemerkle/pkg/types"
)

// segment is a chunk before it is bound to a file
type segment struct {
	startLine int // 1-based
	endLine   int // 1-based, inclusive
	content   string
	kind      types.ChunkType
	name      string
}

// splitter is the capability shared by the structural and generic variants
type splitter interface {
	split(ctx context.Context, content string) []segment
}

// genericSplitter closes line windows by count or byte size
type genericSplitter struct {
	maxBytes      int
	linesPerChunk int
}

func (g *genericSplitter) split(_ context.Context, content string) []segment {
	return g.splitLines(splitLines(content), 0)
}

// splitLines windows lines whose first element is line offset+1. Blank
// lines before the first and after the last non-blank line are dropped.
func (g *genericSplitter) splitLines(lines []string, offset int) []segment {
	start, end := trimBlank(lines)
	if start >= end {
		return nil
	}

	var out []segment
	winStart, size := start, 0
	for i := start; i < end; i++ {
		if i > winStart {
			size++ // newline separator
		}
		size += len(lines[i])

		if i-winStart+1 >= g.linesPerChunk || size >= g.maxBytes || i == end-1 {
			out = g.emit(out, lines, winStart, i+1, offset, types.ChunkDefault, "")
			winStart, size = i+1, 0
		}
	}
	return out
}

// emit appends lines[lo:hi] as one segment, bisecting by line count while
// the content exceeds the byte ceiling. Each line lands in exactly one
// segment; a single line is never split.
func (g *genericSplitter) emit(out []segment, lines []string, lo, hi, offset int, kind types.ChunkType, name string) []segment {
	content := strings.Join(lines[lo:hi], "\n")
	if len(content) <= g.maxBytes || hi-lo == 1 {
		return append(out, segment{
			startLine: offset + lo + 1,
			endLine:   offset + hi,
			content:   content,
			kind:      kind,
			name:      name,
		})
	}
	mid := lo + (hi-lo)/2
	out = g.emit(out, lines, lo, mid, offset, kind, name)
	return g.emit(out, lines, mid, hi, offset, kind, name)
}

// bisect splits an oversized segment, keeping its type, name and line range
func (g *genericSplitter) bisect(out []segment, seg segment) []segment {
	if len(seg.content) <= g.maxBytes {
		return append(out, seg)
	}
	lines := strings.Split(seg.content, "\n")
	return g.emit(out, lines, 0, len(lines), seg.startLine-1, seg.kind, seg.name)
}

// splitLines splits content on "\n". A trailing newline terminates the
// last line rather than starting an empty one.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// trimBlank returns the bounds of lines without leading and trailing blank lines
func trimBlank(lines []string) (int, int) {
	start, end := 0, len(lines)
	for start < end && isBlank(lines[start]) {
		start++
	}
	for end > start && isBlank(lines[end-1]) {
		end--
	}
	return start, end
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

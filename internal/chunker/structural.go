package chunker

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/dshills/codemerkle/internal/parser"
	"github.com/dshills/codemerkle/pkg/types"
)

// structuralSplitter chunks a file along its top-level syntax nodes
type structuralSplitter struct {
	parser        *parser.Parser
	generic       *genericSplitter
	maxParseLines int
	logger        *zap.Logger
}

// span is a segment with the byte range it covers in the parsed source
type span struct {
	segment
	startByte int
	endByte   int
}

// parsed is the outcome of a successful parse attempt
type parsed struct {
	src   string
	nodes []parser.Node
	// cut is the number of leading lines that were parsed when the parse
	// only succeeded on a prefix, 0 otherwise
	cut int
}

// split returns the file's structural segments, or nil when every parse
// attempt failed.
func (s *structuralSplitter) split(ctx context.Context, content string) []segment {
	p, ok := s.parse(ctx, content)
	if !ok {
		return nil
	}

	spans := make([]span, 0, len(p.nodes))
	for _, n := range p.nodes {
		if n.EndByte <= n.StartByte || n.EndByte > len(p.src) {
			continue
		}
		spans = append(spans, span{
			segment: segment{
				startLine: n.StartLine,
				endLine:   n.EndLine,
				content:   p.src[n.StartByte:n.EndByte],
				kind:      n.Kind,
				name:      n.Name,
			},
			startByte: n.StartByte,
			endByte:   n.EndByte,
		})
	}

	var out []segment
	for _, sp := range merge(p.src, spans) {
		out = s.generic.bisect(out, sp.segment)
	}

	if p.cut > 0 {
		lines := splitLines(p.src)
		if p.cut < len(lines) {
			out = append(out, s.generic.splitLines(lines[p.cut:], p.cut)...)
		}
	}
	return out
}

// parse runs the robustness ladder: the content as-is, then sanitized, then
// only the first maxParseLines lines of the sanitized content.
func (s *structuralSplitter) parse(ctx context.Context, content string) (parsed, bool) {
	lang := string(s.parser.Language())

	nodes, err := s.attempt(ctx, content)
	if err == nil {
		return parsed{src: content, nodes: nodes}, true
	}
	s.logger.Debug("parse failed, retrying sanitized", zap.String("language", lang), zap.Error(err))

	clean := sanitize(content)
	if clean != content {
		if ctx.Err() != nil {
			return parsed{}, false
		}
		nodes, err = s.attempt(ctx, clean)
		if err == nil {
			return parsed{src: clean, nodes: nodes}, true
		}
	}

	lines := splitLines(clean)
	if len(lines) > s.maxParseLines && ctx.Err() == nil {
		prefix := strings.Join(lines[:s.maxParseLines], "\n")
		nodes, err = s.attempt(ctx, prefix)
		if err == nil {
			s.logger.Debug("parsed truncated prefix",
				zap.String("language", lang), zap.Int("lines", s.maxParseLines))
			return parsed{src: clean, nodes: nodes, cut: s.maxParseLines}, true
		}
	}

	s.logger.Warn("structural parse failed, falling back to generic splitting",
		zap.String("language", lang), zap.Error(err))
	return parsed{}, false
}

func (s *structuralSplitter) attempt(ctx context.Context, src string) ([]parser.Node, error) {
	return s.parser.Parse(ctx, []byte(src))
}

// merge joins overlapping spans, and adjacent spans of the same type that
// are separated by at most one blank line. The merged content is the
// source text between the outer offsets.
func merge(src string, spans []span) []span {
	out := make([]span, 0, len(spans))
	for _, sp := range spans {
		if n := len(out); n > 0 {
			prev := &out[n-1]
			if overlaps(*prev, sp) || adjacent(src, *prev, sp) {
				join(src, prev, sp)
				continue
			}
		}
		out = append(out, sp)
	}
	return out
}

// overlaps reports whether next starts on a line prev already covers
func overlaps(prev, next span) bool {
	return next.startLine <= prev.endLine
}

func adjacent(src string, prev, next span) bool {
	if prev.kind != next.kind {
		return false
	}
	if next.startLine-prev.endLine-1 > 1 {
		return false
	}
	if next.startByte < prev.endByte {
		return false
	}
	return strings.TrimSpace(src[prev.endByte:next.startByte]) == ""
}

func join(src string, prev *span, next span) {
	if prev.kind == types.ChunkOther && next.kind != types.ChunkOther {
		prev.kind = next.kind
	}
	if prev.name == "" {
		prev.name = next.name
	}
	if next.endByte > prev.endByte {
		prev.endByte = next.endByte
	}
	if next.endLine > prev.endLine {
		prev.endLine = next.endLine
	}
	prev.content = src[prev.startByte:prev.endByte]
}

// sanitize normalizes line endings to "\n" and strips control characters
// other than newline and tab. Line numbering is preserved.
func sanitize(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == '\uFEFF' {
			return -1
		}
		return r
	}, content)
}

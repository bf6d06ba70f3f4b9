package parser

import (
	"context"
	"errors"
	"fmt"
	"time"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/dshills/codemerkle/pkg/types"
)

var (
	// ErrUnsupportedLanguage is returned for languages without a grammar
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrNoTree is returned when the grammar produced no usable tree
	ErrNoTree = errors.New("parser produced no tree")
	// ErrSyntax is returned when the tree contains syntax errors
	ErrSyntax = errors.New("source contains syntax errors")
)

// Node is one top-level syntax node with its exact source span
type Node struct {
	Kind      types.ChunkType
	Type      string // grammar node type
	Name      string
	StartByte int
	EndByte   int // exclusive
	StartLine int // 1-based
	EndLine   int // 1-based, inclusive
}

// Parser wraps a tree-sitter parser for one language. A Parser is not safe
// for concurrent use; create one per goroutine.
type Parser struct {
	lang Language
	ts   *sitter.Parser
}

// New creates a Parser for lang
func New(lang Language) (*Parser, error) {
	grammar := lang.grammar()
	if grammar == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	ts := sitter.NewParser()
	ts.SetLanguage(grammar)
	return &Parser{lang: lang, ts: ts}, nil
}

// Language returns the parser's language
func (p *Parser) Language() Language {
	return p.lang
}

// SetTimeout bounds the wall time of each Parse call. Zero removes the bound.
func (p *Parser) SetTimeout(d time.Duration) {
	p.ts.SetOperationLimit(int(d.Microseconds()))
}

// Close releases the underlying parser
func (p *Parser) Close() {
	p.ts.Close()
}

// Parse parses src and returns its top-level nodes in source order. It
// fails when the grammar yields no tree or the tree contains errors.
//
// ctx is only checked before parsing. A cancellable context handed to
// tree-sitter leaves a watcher that can raise the parser's cancel flag after
// the parse returned, halting the next parse on this Parser, so the parse
// itself is bounded by SetTimeout instead.
func (p *Parser) Parse(ctx context.Context, src []byte) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tree, err := p.ts.ParseCtx(context.Background(), nil, src)
	if err != nil {
		// a halted parse keeps its state for resumption; drop it
		p.ts.Reset()
		return nil, fmt.Errorf("failed to parse %s: %w", p.lang, err)
	}
	if tree == nil {
		p.ts.Reset()
		return nil, ErrNoTree
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, ErrNoTree
	}
	if root.HasError() {
		return nil, ErrSyntax
	}

	count := int(root.NamedChildCount())
	nodes := make([]Node, 0, count)
	for i := 0; i < count; i++ {
		n := root.NamedChild(i)
		if n == nil {
			continue
		}
		kind, name := classify(p.lang, n, src)
		nodes = append(nodes, span(n, kind, name, src))
	}
	return nodes, nil
}

// span converts a syntax node to byte and line coordinates. A node whose end
// sits at column 0 of a later row ends on the previous line, so the trailing
// newline is dropped from its span.
func span(n *sitter.Node, kind types.ChunkType, name string, src []byte) Node {
	start, end := int(n.StartByte()), int(n.EndByte())
	end = min(end, len(src))
	start = min(start, end)
	startPt, endPt := n.StartPoint(), n.EndPoint()

	endLine := int(endPt.Row) + 1
	if endPt.Column == 0 && endPt.Row > startPt.Row {
		endLine--
	}
	for end > start && (src[end-1] == '\n' || src[end-1] == '\r') {
		end--
	}

	return Node{
		Kind:      kind,
		Type:      n.Type(),
		Name:      name,
		StartByte: start,
		EndByte:   end,
		StartLine: int(startPt.Row) + 1,
		EndLine:   endLine,
	}
}

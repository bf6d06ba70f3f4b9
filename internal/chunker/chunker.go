package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/dshills/codemerkle/internal/parser"
	"github.com/dshills/codemerkle/pkg/types"
)

// Engine turns file content into chunks. It lazily creates one parser per
// language and is not safe for concurrent use.
type Engine struct {
	cfg        Config
	logger     *zap.Logger
	generic    *genericSplitter
	structural map[parser.Language]*structuralSplitter
}

// NewEngine creates an Engine. Zero config fields take their defaults.
func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	parsers := make(map[string]Strategy, len(cfg.Parsers))
	for lang, s := range cfg.Parsers {
		parsers[strings.ToLower(lang)] = s
	}
	cfg.Parsers = parsers

	return &Engine{
		cfg:    cfg,
		logger: logger,
		generic: &genericSplitter{
			maxBytes:      cfg.MaxChunkBytes,
			linesPerChunk: cfg.LinesPerChunk,
		},
		structural: make(map[parser.Language]*structuralSplitter),
	}
}

// Config returns the engine's effective configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// Chunk splits content into chunks ordered by line. It never fails: parse
// problems degrade to generic splitting, and blank content yields no chunks.
// A file whose structural parse fails on every retry, including the
// truncated one, is split generically rather than returned with no chunks.
func (e *Engine) Chunk(ctx context.Context, path, content, language string) []types.Chunk {
	sp := e.splitterFor(language)

	segments := sp.split(ctx, content)
	if len(segments) == 0 && sp != splitter(e.generic) {
		segments = e.generic.split(ctx, content)
	}

	chunks := make([]types.Chunk, 0, len(segments))
	for _, seg := range segments {
		chunks = append(chunks, types.Chunk{
			ID:        ChunkID(path, seg.startLine, seg.endLine),
			FilePath:  path,
			Language:  language,
			StartLine: seg.startLine,
			EndLine:   seg.endLine,
			Content:   seg.content,
			Type:      seg.kind,
			Name:      seg.name,
		})
	}
	return chunks
}

// ChunkFile chunks a scanned file. Binary files produce a single file chunk
// carrying their placeholder or base64 marker.
func (e *Engine) ChunkFile(ctx context.Context, rec types.FileRecord, content string) []types.Chunk {
	if !rec.IsBinary {
		return e.Chunk(ctx, rec.Path, content, rec.Language)
	}
	return []types.Chunk{{
		ID:        ChunkID(rec.Path, 1, 1),
		FilePath:  rec.Path,
		Language:  rec.Language,
		StartLine: 1,
		EndLine:   1,
		Content:   content,
		Type:      types.ChunkFile,
	}}
}

// StrategyFor reports which strategy the engine applies to a language
func (e *Engine) StrategyFor(language string) Strategy {
	if _, ok := e.splitterFor(language).(*structuralSplitter); ok {
		return StrategyStructural
	}
	return StrategyGeneric
}

// Close releases every cached parser
func (e *Engine) Close() {
	for lang, s := range e.structural {
		if s != nil {
			s.parser.Close()
		}
		delete(e.structural, lang)
	}
}

// splitterFor picks the structural splitter when the language has a grammar
// and is not mapped to the generic strategy.
func (e *Engine) splitterFor(language string) splitter {
	lang, ok := parser.Lookup(language)
	if !ok || e.cfg.strategyFor(language) == StrategyGeneric {
		return e.generic
	}

	s, cached := e.structural[lang]
	if cached {
		if s == nil {
			return e.generic
		}
		return s
	}

	p, err := parser.New(lang)
	if err != nil {
		e.logger.Warn("failed to create parser, using generic splitting",
			zap.String("language", string(lang)), zap.Error(err))
		e.structural[lang] = nil
		return e.generic
	}
	p.SetTimeout(e.cfg.ParseTimeout)
	s = &structuralSplitter{
		parser:        p,
		generic:       e.generic,
		maxParseLines: e.cfg.MaxParseLines,
		logger:        e.logger,
	}
	e.structural[lang] = s
	return s
}

// ChunkID derives a chunk identifier from its file path and line range
func ChunkID(path string, startLine, endLine int) string {
	key := fmt.Sprintf("%s:%d-%d", path, startLine, endLine)
	return fmt.Sprintf("%016x", xxhash.Sum64String(key))
}

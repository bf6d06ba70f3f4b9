package chunker

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	// DefaultMaxChunkBytes is 1 KiB under a 10 KiB transport limit
	DefaultMaxChunkBytes = 9 * 1024
	// DefaultLinesPerChunk is the generic splitter's window size
	DefaultLinesPerChunk = 15
	// DefaultMaxParseLines bounds the truncated parse retry
	DefaultMaxParseLines = 100
	// DefaultParseTimeout bounds a single parse attempt
	DefaultParseTimeout = 5 * time.Second
)

// Strategy selects how a language is split
type Strategy string

const (
	// StrategyStructural parses the file with its grammar
	StrategyStructural Strategy = "structural"
	// StrategyGeneric uses the line-window splitter
	StrategyGeneric Strategy = "generic"
)

// ParseStrategy converts a configuration string to a Strategy
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyStructural:
		return StrategyStructural, nil
	case StrategyGeneric:
		return StrategyGeneric, nil
	}
	return "", fmt.Errorf("unknown chunking strategy %q", s)
}

// Config controls chunk sizing and parser selection
type Config struct {
	MaxChunkBytes int
	LinesPerChunk int
	MaxParseLines int
	ParseTimeout  time.Duration

	// Parsers maps a language name to its strategy. Languages with a
	// grammar default to StrategyStructural, everything else is generic.
	Parsers map[string]Strategy
}

// DefaultConfig returns the default chunking configuration
func DefaultConfig() Config {
	return Config{
		MaxChunkBytes: DefaultMaxChunkBytes,
		LinesPerChunk: DefaultLinesPerChunk,
		MaxParseLines: DefaultMaxParseLines,
		ParseTimeout:  DefaultParseTimeout,
	}
}

// withDefaults fills zero or negative fields with defaults
func (c Config) withDefaults() Config {
	if c.MaxChunkBytes <= 0 {
		c.MaxChunkBytes = DefaultMaxChunkBytes
	}
	if c.LinesPerChunk <= 0 {
		c.LinesPerChunk = DefaultLinesPerChunk
	}
	if c.MaxParseLines <= 0 {
		c.MaxParseLines = DefaultMaxParseLines
	}
	if c.ParseTimeout <= 0 {
		c.ParseTimeout = DefaultParseTimeout
	}
	return c
}

// Fingerprint identifies the settings that shape chunk boundaries, so chunks
// stored under one fingerprint are only reused by an engine with the same one.
// ParseTimeout is not part of it.
func (c Config) Fingerprint() string {
	c = c.withDefaults()
	h := xxhash.New()
	fmt.Fprintf(h, "bytes=%d;lines=%d;parse=%d", c.MaxChunkBytes, c.LinesPerChunk, c.MaxParseLines)

	parsers := make([]string, 0, len(c.Parsers))
	for lang, s := range c.Parsers {
		parsers = append(parsers, strings.ToLower(lang)+"="+string(s))
	}
	sort.Strings(parsers)
	for _, p := range parsers {
		fmt.Fprintf(h, ";%s", p)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// strategyFor returns the configured strategy for a language name
func (c Config) strategyFor(language string) Strategy {
	if s, ok := c.Parsers[strings.ToLower(language)]; ok {
		return s
	}
	return StrategyStructural
}

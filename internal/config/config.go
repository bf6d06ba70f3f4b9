package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/codemerkle/internal/chunker"
	"github.com/dshills/codemerkle/internal/dispatcher"
	"github.com/dshills/codemerkle/internal/indexer"
	"github.com/dshills/codemerkle/internal/walker"
	"github.com/dshills/codemerkle/pkg/types"
)

// Environment variables read by Load
const (
	EnvConfig   = "CODEMERKLE_CONFIG"
	EnvDBPath   = "CODEMERKLE_DB_PATH"
	EnvLogLevel = "CODEMERKLE_LOG_LEVEL"
)

// DefaultDBPath is the database location used when none is configured
const DefaultDBPath = "~/.codemerkle/codemerkle.db"

// ErrInvalidConfig wraps every validation failure other than an empty
// allow-list
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the on-disk configuration of the indexer
type Config struct {
	Extensions     []string `yaml:"extensions"`
	IgnorePatterns []string `yaml:"ignore_patterns"`
	IgnoredDirs    []string `yaml:"ignored_dirs"`
	MaxFileSize    int64    `yaml:"max_file_size"`
	MaxDepth       int      `yaml:"max_depth"`
	ValueFilter    bool     `yaml:"value_filter"`
	BinaryMode     string   `yaml:"binary_mode"` // placeholder, base64

	Symlinks SymlinkConfig  `yaml:"symlinks"`
	Chunking ChunkingConfig `yaml:"chunking"`
	Dispatch DispatchConfig `yaml:"dispatch"`

	DBPath        string `yaml:"db_path"`
	KeepSnapshots int    `yaml:"keep_snapshots"`
	LogLevel      string `yaml:"log_level"` // debug, info, warn, error
}

// SymlinkConfig controls symlink traversal
type SymlinkConfig struct {
	Follow   bool `yaml:"follow"`
	MaxDepth int  `yaml:"max_depth"`
}

// ChunkingConfig configures the chunking engine
type ChunkingConfig struct {
	MaxChunkBytes int               `yaml:"max_chunk_bytes"`
	LinesPerChunk int               `yaml:"lines_per_chunk"`
	MaxParseLines int               `yaml:"max_parse_lines"`
	ParseTimeout  string            `yaml:"parse_timeout"`
	Languages     map[string]string `yaml:"languages"` // extension -> language
	Parsers       map[string]string `yaml:"parsers"`   // language -> structural, generic
}

// DispatchConfig configures the chunk dispatcher
type DispatchConfig struct {
	Concurrent       bool    `yaml:"concurrent"`
	Workers          int     `yaml:"workers"`
	BatchSize        int     `yaml:"batch_size"`
	TaskTimeout      string  `yaml:"task_timeout"`
	FailureThreshold int     `yaml:"failure_threshold"`
	MemoryThreshold  float64 `yaml:"memory_threshold"`
	BatchDelay       string  `yaml:"batch_delay"`
}

// DefaultExtensions is the allow-list used when no configuration file
// supplies one
var DefaultExtensions = []string{
	".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs",
	".java", ".kt", ".scala", ".rs", ".c", ".h", ".cc", ".cpp", ".hpp",
	".cs", ".rb", ".php", ".swift", ".m", ".sh", ".bash", ".sql",
	".proto", ".graphql", ".md", ".yaml", ".yml", ".toml", ".json",
	"Dockerfile", "Makefile",
}

// DefaultIgnoredDirs lists directories that are never descended into
var DefaultIgnoredDirs = []string{
	".git", ".svn", ".hg", "node_modules", "vendor", "__pycache__",
	".venv", "venv", "dist", "build", "target", ".idea", ".vscode",
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Extensions:  append([]string(nil), DefaultExtensions...),
		IgnoredDirs: append([]string(nil), DefaultIgnoredDirs...),
		MaxFileSize: walker.DefaultMaxFileSize,
		MaxDepth:    walker.DefaultMaxDepth,
		BinaryMode:  string(walker.BinaryPlaceholder),
		Symlinks: SymlinkConfig{
			MaxDepth: walker.DefaultMaxSymlinkDepth,
		},
		Chunking: ChunkingConfig{
			MaxChunkBytes: chunker.DefaultMaxChunkBytes,
			LinesPerChunk: chunker.DefaultLinesPerChunk,
			MaxParseLines: chunker.DefaultMaxParseLines,
			ParseTimeout:  chunker.DefaultParseTimeout.String(),
		},
		Dispatch: DispatchConfig{
			Workers:          dispatcher.DefaultWorkers,
			BatchSize:        dispatcher.DefaultBatchSize,
			TaskTimeout:      dispatcher.DefaultTaskTimeout.String(),
			FailureThreshold: dispatcher.DefaultFailureThreshold,
			MemoryThreshold:  dispatcher.DefaultMemoryThreshold,
		},
		DBPath:   DefaultDBPath,
		LogLevel: "info",
	}
}

// Load reads configuration from a YAML file layered over Default. An empty
// path falls back to $CODEMERKLE_CONFIG; a missing file yields the
// defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if path := os.Getenv(EnvDBPath); path != "" {
		c.DBPath = path
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.LogLevel = level
	}
}

// Validate checks the configuration. An empty allow-list yields
// types.ErrNoExtensions; other problems wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	nonEmpty := false
	for _, e := range c.Extensions {
		if strings.TrimSpace(e) != "" {
			nonEmpty = true
			break
		}
	}
	if !nonEmpty {
		return types.ErrNoExtensions
	}

	switch walker.BinaryMode(c.BinaryMode) {
	case "", walker.BinaryPlaceholder, walker.BinaryBase64:
	default:
		return fmt.Errorf("%w: binary_mode %q", ErrInvalidConfig, c.BinaryMode)
	}

	for lang, s := range c.Chunking.Parsers {
		if _, err := chunker.ParseStrategy(s); err != nil {
			return fmt.Errorf("%w: parser for %s: %v", ErrInvalidConfig, lang, err)
		}
	}

	durations := map[string]string{
		"chunking.parse_timeout": c.Chunking.ParseTimeout,
		"dispatch.task_timeout":  c.Dispatch.TaskTimeout,
		"dispatch.batch_delay":   c.Dispatch.BatchDelay,
	}
	for name, v := range durations {
		if _, err := parseDuration(v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
	}

	if c.Dispatch.MemoryThreshold < 0 || c.Dispatch.MemoryThreshold > 1 {
		return fmt.Errorf("%w: dispatch.memory_threshold must be within [0, 1]", ErrInvalidConfig)
	}
	if c.Dispatch.Workers < 0 || c.Dispatch.BatchSize < 0 {
		return fmt.Errorf("%w: dispatch workers and batch_size must not be negative", ErrInvalidConfig)
	}
	return nil
}

// WalkerConfig converts the scan settings
func (c *Config) WalkerConfig() walker.Config {
	return walker.Config{
		Extensions:      c.Extensions,
		IgnorePatterns:  c.IgnorePatterns,
		IgnoredDirs:     c.IgnoredDirs,
		MaxFileSize:     c.MaxFileSize,
		MaxDepth:        c.MaxDepth,
		FollowSymlinks:  c.Symlinks.Follow,
		MaxSymlinkDepth: c.Symlinks.MaxDepth,
		UseValueFilter:  c.ValueFilter,
		BinaryMode:      walker.BinaryMode(c.BinaryMode),
		Languages:       c.Chunking.Languages,
	}
}

// ChunkerConfig converts the chunking settings
func (c *Config) ChunkerConfig() (chunker.Config, error) {
	timeout, err := parseDuration(c.Chunking.ParseTimeout)
	if err != nil {
		return chunker.Config{}, fmt.Errorf("%w: chunking.parse_timeout: %v", ErrInvalidConfig, err)
	}
	parsers := make(map[string]chunker.Strategy, len(c.Chunking.Parsers))
	for lang, s := range c.Chunking.Parsers {
		strategy, err := chunker.ParseStrategy(s)
		if err != nil {
			return chunker.Config{}, fmt.Errorf("%w: parser for %s: %v", ErrInvalidConfig, lang, err)
		}
		parsers[lang] = strategy
	}
	return chunker.Config{
		MaxChunkBytes: c.Chunking.MaxChunkBytes,
		LinesPerChunk: c.Chunking.LinesPerChunk,
		MaxParseLines: c.Chunking.MaxParseLines,
		ParseTimeout:  timeout,
		Parsers:       parsers,
	}, nil
}

// DispatcherConfig converts the dispatch settings
func (c *Config) DispatcherConfig() (dispatcher.Config, error) {
	timeout, err := parseDuration(c.Dispatch.TaskTimeout)
	if err != nil {
		return dispatcher.Config{}, fmt.Errorf("%w: dispatch.task_timeout: %v", ErrInvalidConfig, err)
	}
	delay, err := parseDuration(c.Dispatch.BatchDelay)
	if err != nil {
		return dispatcher.Config{}, fmt.Errorf("%w: dispatch.batch_delay: %v", ErrInvalidConfig, err)
	}
	return dispatcher.Config{
		Concurrent:       c.Dispatch.Concurrent,
		Workers:          c.Dispatch.Workers,
		BatchSize:        c.Dispatch.BatchSize,
		TaskTimeout:      timeout,
		FailureThreshold: c.Dispatch.FailureThreshold,
		MemoryThreshold:  c.Dispatch.MemoryThreshold,
		BatchDelay:       delay,
	}, nil
}

// IndexerConfig validates the configuration and assembles the pipeline
// settings
func (c *Config) IndexerConfig() (indexer.Config, error) {
	if err := c.Validate(); err != nil {
		return indexer.Config{}, err
	}
	chunkCfg, err := c.ChunkerConfig()
	if err != nil {
		return indexer.Config{}, err
	}
	dispatchCfg, err := c.DispatcherConfig()
	if err != nil {
		return indexer.Config{}, err
	}
	return indexer.Config{
		Walker:        c.WalkerConfig(),
		Chunker:       chunkCfg,
		Dispatch:      dispatchCfg,
		KeepSnapshots: c.KeepSnapshots,
	}, nil
}

// ResolveDBPath returns the database path with a leading ~ expanded
func (c *Config) ResolveDBPath() (string, error) {
	path := c.DBPath
	if path == "" {
		path = DefaultDBPath
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path, nil
}

// parseDuration accepts Go duration strings; empty means zero
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

package walker

import (
	"strings"

	"github.com/dshills/codemerkle/pkg/types"
)

const (
	// DefaultMaxDepth bounds directory nesting below the workspace root
	DefaultMaxDepth = 100

	// DefaultMaxSymlinkDepth bounds how many links may be chained
	DefaultMaxSymlinkDepth = 10

	// DefaultMaxFileSize is the size ceiling above which files are not read
	DefaultMaxFileSize = 2 * 1024 * 1024
)

// BinaryMode selects how binary file content is represented
type BinaryMode string

const (
	BinaryPlaceholder BinaryMode = "placeholder"
	BinaryBase64      BinaryMode = "base64"
)

// Config controls a scan. Extensions is mandatory; there is no built-in
// default allow-list.
type Config struct {
	// Extensions lists accepted files. Entries starting with a dot (or
	// "*.") are extensions; anything else matches a whole file name.
	// Matching is case-insensitive.
	Extensions      []string
	IgnorePatterns  []string // gitignore-style globs on relative paths
	IgnoredDirs     []string // bare directory names never descended into
	MaxFileSize     int64
	MaxDepth        int
	FollowSymlinks  bool
	MaxSymlinkDepth int
	UseValueFilter  bool
	BinaryMode      BinaryMode
	Languages       map[string]string // extension -> language overrides
}

// Validate checks required fields and fills defaults
func (c *Config) Validate() error {
	if len(c.Extensions) == 0 {
		return types.ErrNoExtensions
	}
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
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.MaxSymlinkDepth <= 0 {
		c.MaxSymlinkDepth = DefaultMaxSymlinkDepth
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	if c.BinaryMode == "" {
		c.BinaryMode = BinaryPlaceholder
	}
	return nil
}

// allowList splits the configured entries into extension and name sets
type allowList struct {
	exts  map[string]struct{}
	names map[string]struct{}
}

func newAllowList(entries []string) allowList {
	al := allowList{exts: map[string]struct{}{}, names: map[string]struct{}{}}
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		e = strings.TrimPrefix(e, "*")
		switch {
		case e == "":
		case strings.HasPrefix(e, "."):
			al.exts[e] = struct{}{}
		default:
			al.names[e] = struct{}{}
		}
	}
	return al
}

func (al allowList) allows(name, ext string) bool {
	if _, ok := al.exts[ext]; ok && ext != "" {
		return true
	}
	_, ok := al.names[strings.ToLower(name)]
	return ok
}

package filter

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar"

	"github.com/dshills/codemerkle/internal/pathutil"
)

type globPattern struct {
	expr     string
	dirOnly  bool
	anchored bool // matched against the full relative path
}

// Matcher applies ignore globs to normalized workspace-relative paths.
//
// A pattern without a slash matches the base name at any depth; a leading
// or inner slash anchors it to the workspace root. A trailing slash
// restricts the pattern to directories. "dir/**" also matches "dir".
type Matcher struct {
	patterns []globPattern
}

// NewMatcher compiles patterns, rejecting malformed ones
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, raw := range patterns {
		p := strings.TrimSpace(raw)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		gp := globPattern{}
		if strings.HasSuffix(p, "/") {
			gp.dirOnly = true
			p = strings.TrimSuffix(p, "/")
		}
		gp.anchored = strings.Contains(p, "/")
		gp.expr = strings.TrimPrefix(p, "/")
		// doublestar only reports syntax errors it reaches while matching
		if _, err := path.Match(gp.expr, gp.expr); err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", raw, err)
		}
		m.patterns = append(m.patterns, gp)
	}
	return m, nil
}

// Len returns the number of active patterns
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}

// Match reports whether rel (a workspace-relative path) is ignored
func (m *Matcher) Match(rel string, isDir bool) bool {
	if m == nil {
		return false
	}
	rel = pathutil.Normalize(rel)
	base := pathutil.Base(rel)
	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		if p.anchored {
			if match(p.expr, rel) {
				return true
			}
			if isDir && strings.HasSuffix(p.expr, "/**") && match(strings.TrimSuffix(p.expr, "/**"), rel) {
				return true
			}
			continue
		}
		if match(p.expr, base) || match(p.expr, rel) {
			return true
		}
	}
	return false
}

func match(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}

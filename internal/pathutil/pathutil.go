// Package pathutil provides pure helpers for workspace-relative paths.
//
// All paths handled by the scanner, the Merkle builder and storage use
// forward slashes regardless of platform. The workspace root is ".".
package pathutil

import (
	"path"
	"strings"
)

// Root is the key used for the workspace root directory
const Root = "."

// Normalize converts p to the canonical relative form: forward slashes, no
// leading "./" or "/", no trailing slash, redundant elements removed.
// An empty or root path normalizes to Root.
func Normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	p = strings.TrimLeft(p, "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	if p == "" || p == "." {
		return Root
	}
	return p
}

// Parent returns the parent directory of a normalized path. The parent of a
// top-level entry is Root; Root has no parent and returns "".
func Parent(p string) string {
	p = Normalize(p)
	if p == Root {
		return ""
	}
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return Root
	}
	return p[:i]
}

// Depth returns the number of path segments. Root has depth 0.
func Depth(p string) int {
	p = Normalize(p)
	if p == Root {
		return 0
	}
	return strings.Count(p, "/") + 1
}

// Equal reports whether two paths normalize to the same key
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Base returns the last element of p
func Base(p string) string {
	p = Normalize(p)
	if p == Root {
		return Root
	}
	return path.Base(p)
}

// Ext returns the lower-cased extension of p including the dot
func Ext(p string) string {
	return strings.ToLower(path.Ext(Base(p)))
}

// Join joins elements and normalizes the result
func Join(elem ...string) string {
	return Normalize(path.Join(elem...))
}

// Ancestors returns every ancestor directory of p, nearest first, ending
// with Root. Root itself has no ancestors.
func Ancestors(p string) []string {
	var out []string
	for dir := Parent(p); dir != ""; dir = Parent(dir) {
		out = append(out, dir)
	}
	return out
}

// IsWithin reports whether child is base or lies beneath it. Both arguments
// must be cleaned absolute or relative paths using the same separator.
func IsWithin(base, child string) bool {
	base = strings.TrimSuffix(base, "/")
	if child == base || base == "" {
		return true
	}
	return strings.HasPrefix(child, base+"/")
}

// Package merkle builds content-addressed hash trees over scanned files and
// compares them.
//
// Leaves are file content hashes. Each directory hash is the SHA-256 of its
// children's hashes, sorted and concatenated, so identical trees hash
// identically whatever order files were discovered in. Directories are
// hashed deepest first so every child hash exists before its parent needs
// it.
//
// The root hash is computed independently of the directory nodes: it is the
// SHA-256 of all file hashes concatenated in path order.
//
// # Change Detection
//
// Diff compares the Files maps of two trees and reports added, modified and
// deleted paths. It never looks at directory nodes, so it is safe to call on
// trees loaded from storage or from JSON with Load.
package merkle

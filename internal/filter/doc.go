// Package filter decides which workspace entries are worth indexing.
//
// Three independent rules are provided and layered by the walker:
//
//   - IsJunk rejects generated or OS-metadata files by name (minified and
//     bundled assets, source maps, GPU intermediates, .DS_Store, ...).
//   - Matcher applies gitignore-style glob patterns with ** support.
//   - ValueFilter is an optional heuristic that keeps source files and
//     recognized project manifests and drops everything else.
//
// None of these replace the extension allow-list, which is mandatory.
package filter

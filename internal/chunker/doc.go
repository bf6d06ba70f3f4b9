// Package chunker splits file content into bounded-size, line-addressed
// chunks.
//
// Languages with a tree-sitter grammar are split structurally: every
// top-level syntax node becomes a raw chunk classified as import, class,
// function, variable or other. Adjacent chunks of the same type separated by
// at most one blank line are merged, and oversized chunks are bisected by
// line count. Every other language, and every file whose parse fails, goes
// through the generic line-window splitter.
//
// # Basic Usage
//
//	e := chunker.NewEngine(chunker.DefaultConfig(), logger)
//	defer e.Close()
//
//	chunks := e.Chunk(ctx, "pkg/server.go", content, "go")
//	for _, c := range chunks {
//	    fmt.Printf("%s %s lines %d-%d\n", c.ID, c.Type, c.StartLine, c.EndLine)
//	}
//
// # Parse Failures
//
// A failed parse is retried after stripping control characters and
// normalizing line endings, then on only the first MaxParseLines lines
// (the remainder is split generically). When every attempt fails the file
// falls back to the generic splitter. Chunk never returns an error.
//
// # Chunk Identifiers
//
// IDs are derived from (path, startLine, endLine) with xxhash, so they are
// stable while chunk boundaries stay put and change when they move.
//
// # Concurrency
//
// An Engine caches one parser per language and is not safe for concurrent
// use. Create one Engine per goroutine.
package chunker

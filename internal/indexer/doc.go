// Package indexer coordinates the end-to-end indexing pipeline for a workspace.
//
// The indexer orchestrates scanning, Merkle tree construction, chunking and
// snapshot storage, re-chunking only what changed since the last run.
//
// # Basic Usage
//
//	idx, err := indexer.New(indexer.Config{
//	    Walker: walker.Config{Extensions: []string{".go", ".py"}},
//	}, store, logger)
//	if err != nil {
//	    return err
//	}
//
//	stats, err := idx.IndexWorkspace(ctx, "/path/to/workspace", indexer.Options{})
//	fmt.Printf("chunked %d files, reused %d\n", stats.FilesChunked, stats.FilesReused)
//
// # Indexing Pipeline
//
//  1. Scan: walk the workspace, classify, hash and read accepted files
//  2. Tree: build the Merkle tree from the file records
//  3. Diff: compare with the tree of the latest stored snapshot
//  4. Chunk: dispatch added and modified files to the chunking engine
//  5. Store: persist tree, file records and chunks as a new snapshot
//
// # Incremental Indexing
//
// A run whose root hash equals the stored one does no chunking and writes
// no snapshot; Statistics.Unchanged is set and RunID names the existing
// snapshot. Otherwise chunks of files whose content hash did not change are
// copied from the previous snapshot. Options.ForceReindex chunks everything,
// and so does a change of chunking settings or language overrides since the
// snapshot was written. A stored tree with a different Merkle version is
// ignored, forcing a full run.
//
// # Error Handling
//
// Only configuration, root validation, storage failures and context
// cancellation abort a run. Per-file scan errors and files that could not
// be chunked are counted in Statistics.FilesFailed and listed in
// Statistics.ErrorMessages.
//
// # Concurrency
//
// An Indexer runs one indexing operation at a time; a concurrent call
// returns ErrIndexInProgress naming the workspace being indexed. DiffWorkspace takes no lock.
package indexer

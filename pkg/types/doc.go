// Package types provides shared type definitions for codemerkle.
//
// This package defines the domain types passed between the scanner, the
// Merkle builder, the chunking engine and storage.
//
// # Core Types
//
// FileRecord describes one scanned file, identified by its workspace-relative
// path and the SHA-256 of its raw bytes:
//
//	rec := types.FileRecord{
//	    Path:        "internal/walker/walker.go",
//	    ContentHash: "9f86d08...",
//	    Size:        4213,
//	}
//
// Chunk is a bounded-size unit of a file's content, addressed by line range:
//
//	chunk := &types.Chunk{
//	    FilePath:  "a.py",
//	    StartLine: 3,
//	    EndLine:   40,
//	    Type:      types.ChunkFunction,
//	    Name:      "main",
//	}
//
// MerkleTree is the hash tree built from a scan. Two trees are compared with
// merkle.Diff, which yields Change entries of kind added, modified or deleted.
//
// # Errors
//
// Configuration and root-level traversal failures are reported with the
// sentinel errors in this package and abort a run. Per-file failures are
// reported as *ScanError values and are aggregated, never returned.
package types

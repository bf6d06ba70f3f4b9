// Package storage persists Merkle snapshots and their chunks in SQLite.
//
// Every indexing run of a workspace stores one snapshot: the file and
// directory nodes of its Merkle tree plus the chunks produced for it. The
// latest snapshot is the "old tree" the next run diffs against, and its
// chunks are reused for files whose hash did not change.
//
// # Database Schema
//
// Tables:
//   - workspaces: one row per indexed root path
//   - snapshots: one row per indexing run (run UUID, root hash, totals)
//   - snapshot_files: file nodes of a snapshot
//   - snapshot_dirs: directory nodes of a snapshot
//   - chunks: chunks of a snapshot, in dispatch order
//
// Deleting a snapshot cascades to its files, directories and chunks.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.codemerkle/index.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	prev, err := db.LatestSnapshot(ctx, root)
//	if errors.Is(err, storage.ErrNotFound) {
//	    // first run
//	}
//
//	err = db.SaveSnapshot(ctx, &storage.Snapshot{
//	    WorkspacePath: root,
//	    Tree:          tree,
//	    Chunks:        chunks,
//	})
//
// # Drivers
//
// The default build uses modernc.org/sqlite (no CGO). Building with the
// cgo_sqlite tag switches to github.com/mattn/go-sqlite3.
//
// # Migrations
//
// Schema versions are semantic versions recorded in schema_version.
// NewSQLiteStorage applies every pending migration in order.
package storage

//go:build cgo_sqlite && !purego

// Snapshot databases are opened through mattn/go-sqlite3 when built with
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite ./...
//
// Bulk chunk inserts run noticeably faster through the C library, which
// matters for workspaces large enough that most runs rewrite many files.

package storage

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver snapshots are stored through
	DriverName = "sqlite3"
	// BuildMode is reported by --version and the server startup log
	BuildMode = "cgo"
)

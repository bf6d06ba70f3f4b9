//go:build purego || !cgo_sqlite

// The default build stores snapshots through modernc.org/sqlite, so the
// binary cross-compiles with CGO_ENABLED=0 and needs no C toolchain.

package storage

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver snapshots are stored through
	DriverName = "sqlite"
	// BuildMode is reported by --version and the server startup log
	BuildMode = "purego"
)

// Package config loads the codemerkle configuration.
//
// Configuration is a YAML file layered over Default. Durations are written
// as Go duration strings ("30s", "250ms"):
//
//	extensions: [".go", ".py", "Dockerfile"]
//	ignore_patterns: ["**/testdata/**"]
//	binary_mode: placeholder
//	chunking:
//	  max_chunk_bytes: 9216
//	  parsers:
//	    python: generic
//	dispatch:
//	  concurrent: true
//	  workers: 4
//	  task_timeout: 30s
//
// The allow-list defaults live only in Default; the walker itself has none
// and rejects an empty list with types.ErrNoExtensions.
//
// Environment variables CODEMERKLE_CONFIG, CODEMERKLE_DB_PATH and
// CODEMERKLE_LOG_LEVEL override the file location, db_path and log_level.
package config

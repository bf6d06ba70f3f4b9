// Package mcp implements the Model Context Protocol (MCP) server for codemerkle.
//
// The MCP server exposes four tools:
//   - index_workspace: scan a workspace and store a snapshot of its chunks
//   - diff_workspace: report files changed since the last snapshot
//   - get_status: snapshot statistics and database health
//   - get_chunks: page through the chunks of the latest snapshot
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Stdout carries protocol messages only; logs go to stderr.
//
// # Tool: index_workspace
//
//	Request:
//	{
//	  "name": "index_workspace",
//	  "arguments": {
//	    "path": "/path/to/workspace",
//	    "force_reindex": false
//	  }
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "run_id": "0b6f2c1e-...",
//	  "root_hash": "9f2c...",
//	  "unchanged": false,
//	  "files_scanned": 247,
//	  "files_chunked": 3,
//	  "files_reused": 244,
//	  "chunks_created": 12,
//	  "changes": {"added": 1, "modified": 2, "deleted": 0},
//	  "dispatch": {"start_mode": "sequential", "end_mode": "sequential", ...},
//	  "duration_ms": 412
//	}
//
// # Tool: diff_workspace
//
// Scans the workspace and compares it with the stored tree without writing
// anything. The response lists added, modified and deleted paths plus a
// human-readable summary.
//
// # Tool: get_status
//
// Returns "indexed": false for unknown workspaces, otherwise the latest
// run, file/directory/chunk counts, and health flags (database reachable,
// stored chunk rows matching the snapshot, schema version).
//
// # Tool: get_chunks
//
//	{
//	  "name": "get_chunks",
//	  "arguments": {"path": "/path/to/workspace", "file": "cmd/main.go", "limit": 50, "offset": 0}
//	}
//
// # Error Codes
//
//	-32602  Invalid params (missing/relative/unreadable path, bad limit)
//	-32603  Internal error (scan, storage)
//	-32002  Indexing already in progress
//	-32003  Workspace not indexed (get_chunks)
//
// # Paths
//
// Workspace paths must be absolute. They are resolved through symlinks so a
// workspace is keyed by its real path regardless of how it was reached.
package mcp

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dshills/codemerkle/internal/indexer"
	"github.com/dshills/codemerkle/internal/pathutil"
	"github.com/dshills/codemerkle/internal/storage"
	"github.com/dshills/codemerkle/internal/walker"
	"github.com/dshills/codemerkle/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Workspace has no snapshot
)

const (
	defaultChunkLimit = 100
	maxChunkLimit     = 1000
	maxErrorMessages  = 5
)

// handleIndexWorkspace handles the index_workspace tool invocation
func (s *Server) handleIndexWorkspace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, root, err := workspaceArgs(request)
	if err != nil {
		return nil, err
	}
	forceReindex := getBoolDefault(args, "force_reindex", false)

	stats, err := s.indexer.IndexWorkspace(ctx, root, indexer.Options{ForceReindex: forceReindex})
	if errors.Is(err, indexer.ErrIndexInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", map[string]interface{}{
			"path": root,
		})
	}
	if err != nil {
		s.logger.Error("indexing failed", zap.String("path", root), zap.Error(err))
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":        true,
		"workspace":      stats.WorkspacePath,
		"run_id":         stats.RunID,
		"root_hash":      stats.RootHash,
		"unchanged":      stats.Unchanged,
		"files_scanned":  stats.FilesScanned,
		"files_skipped":  stats.FilesSkipped,
		"files_failed":   stats.FilesFailed,
		"dirs_skipped":   stats.DirsSkipped,
		"files_chunked":  stats.FilesChunked,
		"files_reused":   stats.FilesReused,
		"chunks_created": stats.ChunksCreated,
		"chunks_reused":  stats.ChunksReused,
		"changes": map[string]interface{}{
			"added":    stats.Added,
			"modified": stats.Modified,
			"deleted":  stats.Deleted,
		},
		"dispatch":    stats.Dispatch,
		"duration_ms": stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		// Include first few errors
		errorCount := len(stats.ErrorMessages)
		if errorCount > maxErrorMessages {
			response["errors"] = stats.ErrorMessages[:maxErrorMessages]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDiffWorkspace handles the diff_workspace tool invocation
func (s *Server) handleDiffWorkspace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, root, err := workspaceArgs(request)
	if err != nil {
		return nil, err
	}

	diff, err := s.indexer.DiffWorkspace(ctx, root)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "diff failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	cs := types.Partition(diff.Changes)
	response := map[string]interface{}{
		"workspace":     diff.WorkspacePath,
		"has_snapshot":  diff.HasSnapshot,
		"old_root_hash": diff.OldRootHash,
		"new_root_hash": diff.NewRootHash,
		"unchanged":     len(diff.Changes) == 0,
		"added":         nonNil(cs.Added),
		"modified":      nonNil(cs.Modified),
		"deleted":       nonNil(cs.Deleted),
		"summary":       diff.Summary,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, root, err := workspaceArgs(request)
	if err != nil {
		return nil, err
	}

	status, err := s.storage.GetStatus(ctx, root)
	if errors.Is(err, storage.ErrNotFound) {
		// Workspace not indexed
		response := map[string]interface{}{
			"indexed": false,
			"path":    root,
			"message": "Workspace not indexed. Use index_workspace tool to index it.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed": status.SnapshotCount > 0,
		"workspace": map[string]interface{}{
			"path":            status.WorkspacePath,
			"latest_run_id":   status.LatestRunID,
			"root_hash":       status.RootHash,
			"last_indexed_at": status.LastIndexedAt.Format("2006-01-02T15:04:05Z07:00"),
			"last_duration":   status.LastDuration.String(),
		},
		"statistics": map[string]interface{}{
			"snapshots":    status.SnapshotCount,
			"files_count":  status.FilesCount,
			"dirs_count":   status.DirsCount,
			"chunks_count": status.ChunksCount,
			"total_size":   status.TotalSize,
		},
		"health": map[string]interface{}{
			"database_accessible": status.Health.DatabaseAccessible,
			"chunks_consistent":   status.Health.ChunksConsistent,
			"schema_version":      status.SchemaVersion,
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetChunks handles the get_chunks tool invocation
func (s *Server) handleGetChunks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, root, err := workspaceArgs(request)
	if err != nil {
		return nil, err
	}

	limit := getIntDefault(args, "limit", defaultChunkLimit)
	if limit < 1 || limit > maxChunkLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", maxChunkLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	offset := getIntDefault(args, "offset", 0)
	if offset < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "offset must not be negative", map[string]interface{}{
			"param": "offset",
			"value": offset,
		})
	}
	file := getStringDefault(args, "file", "")
	if file != "" {
		file = pathutil.Normalize(file)
	}

	snap, err := s.storage.LatestSnapshot(ctx, root)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotIndexed, "workspace not indexed", map[string]interface{}{
			"path": root,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load snapshot", map[string]interface{}{
			"error": err.Error(),
		})
	}

	chunks, err := s.storage.ListChunks(ctx, snap.ID, file)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list chunks", map[string]interface{}{
			"error": err.Error(),
		})
	}

	total := len(chunks)
	start := min(offset, total)
	end := min(start+limit, total)
	page := chunks[start:end]
	if page == nil {
		page = []types.Chunk{}
	}

	response := map[string]interface{}{
		"workspace": snap.WorkspacePath,
		"run_id":    snap.RunID,
		"total":     total,
		"offset":    start,
		"returned":  len(page),
		"chunks":    page,
	}
	if file != "" {
		response["file"] = file
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// workspaceArgs extracts the argument map and the resolved workspace root
func workspaceArgs(request mcp.CallToolRequest) (map[string]interface{}, string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	root, err := validatePath(path)
	if err != nil {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	return args, root, nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that path is an absolute, readable directory and
// returns the real path snapshots are keyed by
func validatePath(path string) (string, error) {
	if path == "" {
		return "", ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return "", ErrPathNotAbsolute
	}

	root, err := walker.ResolveRoot(path)
	switch {
	case err == nil:
		return root, nil
	case errors.Is(err, types.ErrRootNotFound):
		return "", ErrPathNotFound
	case errors.Is(err, types.ErrRootNotDirectory):
		return "", ErrNotDirectory
	default:
		return "", ErrPathNotReadable
	}
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)

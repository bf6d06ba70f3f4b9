package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexWorkspaceTool returns the tool definition for index_workspace
func indexWorkspaceTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_workspace",
		Description: "Scan a workspace, chunk changed files and store a content-addressed snapshot",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the workspace root",
				},
				"force_reindex": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, chunk every file instead of reusing chunks of unchanged files",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// diffWorkspaceTool returns the tool definition for diff_workspace
func diffWorkspaceTool() mcp.Tool {
	return mcp.Tool{
		Name:        "diff_workspace",
		Description: "List files added, modified or deleted since the last indexed snapshot",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the workspace root",
				},
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query snapshot status and statistics for a workspace",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the workspace root",
				},
			},
			Required: []string{"path"},
		},
	}
}

// getChunksTool returns the tool definition for get_chunks
func getChunksTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_chunks",
		Description: "Read chunks of the latest snapshot, optionally for a single file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the workspace root",
				},
				"file": map[string]interface{}{
					"type":        "string",
					"description": "Workspace-relative file path (forward slashes); all files when omitted",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of chunks to return (1-1000)",
					"default":     defaultChunkLimit,
					"minimum":     1,
					"maximum":     maxChunkLimit,
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Number of chunks to skip",
					"default":     0,
					"minimum":     0,
				},
			},
			Required: []string{"path"},
		},
	}
}

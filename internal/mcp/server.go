package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/codemerkle/internal/config"
	"github.com/dshills/codemerkle/internal/indexer"
	"github.com/dshills/codemerkle/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "codemerkle"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	storage storage.Storage
	indexer *indexer.Indexer
	logger  *zap.Logger
}

// NewServer opens the snapshot database named by cfg and creates a server
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		return nil, err
	}
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	s, err := newServer(cfg, store, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	logger.Info("storage ready",
		zap.String("db_path", dbPath),
		zap.String("driver", storage.DriverName),
		zap.String("build_mode", storage.BuildMode))
	return s, nil
}

func newServer(cfg *config.Config, store storage.Storage, logger *zap.Logger) (*Server, error) {
	idxCfg, err := cfg.IndexerConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	idx, err := indexer.New(idxCfg, store, logger.Named("indexer"))
	if err != nil {
		return nil, fmt.Errorf("failed to create indexer: %w", err)
	}

	s := &Server{
		mcp:     server.NewMCPServer(ServerName, ServerVersion),
		storage: store,
		indexer: idx,
		logger:  logger,
	}
	s.registerTools()
	return s, nil
}

// Serve runs the MCP protocol on stdio until ctx is cancelled or stdin
// closes, then closes the storage
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()

	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger.Named("stdio")))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// Close releases the storage without serving
func (s *Server) Close() error {
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexWorkspaceTool(), s.handleIndexWorkspace)
	s.mcp.AddTool(diffWorkspaceTool(), s.handleDiffWorkspace)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	s.mcp.AddTool(getChunksTool(), s.handleGetChunks)
}

package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dshills/codemerkle/pkg/types"
)

// Storage persists indexing snapshots
type Storage interface {
	// Snapshot operations
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	LatestSnapshot(ctx context.Context, rootPath string) (*Snapshot, error)
	PruneSnapshots(ctx context.Context, rootPath string, keep int) (int, error)

	// Chunk operations
	ListChunks(ctx context.Context, snapshotID int64, filePath string) ([]types.Chunk, error)

	// Status operations
	GetStatus(ctx context.Context, rootPath string) (*WorkspaceStatus, error)

	// Database operations
	Close() error
}

// Snapshot is one indexing run of a workspace
type Snapshot struct {
	ID            int64
	RunID         string // UUID assigned on save
	WorkspacePath string
	Tree          *types.MerkleTree
	Chunks        []types.Chunk // written on save; LatestSnapshot leaves it nil
	Records       []types.FileRecord
	ChunkCount    int
	Duration      time.Duration
	Report        json.RawMessage // optional run report
	ChunkConfig   string          // fingerprint of the chunking settings
	CreatedAt     time.Time
}

// WorkspaceStatus summarizes what is stored for a workspace
type WorkspaceStatus struct {
	WorkspacePath string
	SnapshotCount int
	LatestRunID   string
	RootHash      string
	FilesCount    int
	DirsCount     int
	ChunksCount   int
	TotalSize     int64
	LastIndexedAt time.Time
	LastDuration  time.Duration
	SchemaVersion string
	Health        HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible bool
	ChunksConsistent   bool // stored chunk rows match the snapshot's count
}

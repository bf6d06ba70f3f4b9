package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codemerkle/internal/merkle"
	"github.com/dshills/codemerkle/pkg/types"
)

const testRoot = "/work/project"

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func testRecords() []types.FileRecord {
	mod := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []types.FileRecord{
		{Path: "main.go", ContentHash: "aa11", Size: 120, LastModified: mod, Encoding: types.EncodingUTF8, Language: "go"},
		{Path: "pkg/util/strings.go", ContentHash: "bb22", Size: 20 * 1024, LastModified: mod, Encoding: types.EncodingASCII, Language: "go"},
		{Path: "assets/logo.png", ContentHash: "cc33", Size: 200 * 1024, LastModified: mod, IsBinary: true, Language: "unknown"},
	}
}

func testChunks() []types.Chunk {
	return []types.Chunk{
		{ID: "c1", FilePath: "main.go", Language: "go", StartLine: 1, EndLine: 1, Content: "package main", Type: types.ChunkOther},
		{ID: "c2", FilePath: "main.go", Language: "go", StartLine: 3, EndLine: 5, Content: "func main() {\n}\n", Type: types.ChunkFunction, Name: "main"},
		{ID: "c3", FilePath: "pkg/util/strings.go", Language: "go", StartLine: 1, EndLine: 9, Content: "package util", Type: types.ChunkDefault},
		{ID: "c4", FilePath: "assets/logo.png", StartLine: 1, EndLine: 1, Content: "[BINARY FILE: 204800 bytes, type: image]", Type: types.ChunkFile},
	}
}

func testSnapshot() *Snapshot {
	records := testRecords()
	tree := merkle.NewBuilder(nil).Build(records, testRoot)
	return &Snapshot{
		WorkspacePath: testRoot,
		Tree:          tree,
		Records:       records,
		Chunks:        testChunks(),
		Duration:      1500 * time.Millisecond,
		Report:        json.RawMessage(`{"end_mode":"sequential"}`),
		ChunkConfig:   "5d41402abc4b2a76",
	}
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	assert.NotNil(t, storage.db)

	version, err := SchemaVersion(context.Background(), storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestSaveSnapshot(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	snap := testSnapshot()

	require.NoError(t, storage.SaveSnapshot(ctx, snap))
	assert.Greater(t, snap.ID, int64(0))
	assert.Len(t, snap.RunID, 36)
	assert.Equal(t, 4, snap.ChunkCount)
	assert.False(t, snap.CreatedAt.IsZero())

	second := testSnapshot()
	require.NoError(t, storage.SaveSnapshot(ctx, second))
	assert.Greater(t, second.ID, snap.ID)
	assert.NotEqual(t, snap.RunID, second.RunID)
}

func TestSaveSnapshot_Invalid(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	err := storage.SaveSnapshot(ctx, &Snapshot{WorkspacePath: testRoot})
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	err = storage.SaveSnapshot(ctx, &Snapshot{Tree: &types.MerkleTree{}})
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	snap := testSnapshot()
	snap.Chunks = append(snap.Chunks, types.Chunk{FilePath: "main.go", Content: "x", Type: types.ChunkOther})
	err = storage.SaveSnapshot(ctx, snap)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	// the failed save must not leave a partial snapshot behind
	_, err = storage.LatestSnapshot(ctx, testRoot)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestSnapshot_RebuildsTree(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	snap := testSnapshot()
	require.NoError(t, storage.SaveSnapshot(ctx, snap))

	loaded, err := storage.LatestSnapshot(ctx, testRoot)
	require.NoError(t, err)

	assert.Equal(t, snap.ID, loaded.ID)
	assert.Equal(t, snap.RunID, loaded.RunID)
	assert.Equal(t, testRoot, loaded.WorkspacePath)
	assert.Equal(t, 4, loaded.ChunkCount)
	assert.Equal(t, 1500*time.Millisecond, loaded.Duration)
	assert.JSONEq(t, `{"end_mode":"sequential"}`, string(loaded.Report))
	assert.Equal(t, "5d41402abc4b2a76", loaded.ChunkConfig)
	assert.Nil(t, loaded.Chunks)

	tree := loaded.Tree
	require.NotNil(t, tree)
	assert.Equal(t, snap.Tree.RootHash, tree.RootHash)
	assert.Equal(t, snap.Tree.Version, tree.Version)
	assert.Equal(t, snap.Tree.TotalSize, tree.TotalSize)
	assert.Equal(t, snap.Tree.MaxDepth, tree.MaxDepth)
	assert.Equal(t, snap.Tree.ByExtension, tree.ByExtension)
	assert.Equal(t, snap.Tree.BySize, tree.BySize)
	require.Len(t, tree.Directories, len(snap.Tree.Directories))
	for path, dir := range snap.Tree.Directories {
		require.Contains(t, tree.Directories, path)
		assert.Equal(t, dir.Hash, tree.Directories[path].Hash)
		assert.Equal(t, dir.Children, tree.Directories[path].Children)
		assert.Equal(t, dir.FileCount, tree.Directories[path].FileCount)
	}
	assert.Empty(t, merkle.Diff(snap.Tree, tree))
	assert.True(t, tree.Files["assets/logo.png"].IsBinary)
	assert.True(t, tree.Files["main.go"].LastModified.Equal(snap.Tree.Files["main.go"].LastModified))

	require.Len(t, loaded.Records, 3)
	assert.Equal(t, "assets/logo.png", loaded.Records[0].Path)
	assert.Equal(t, types.EncodingUTF8, loaded.Records[1].Encoding)
	assert.Equal(t, "go", loaded.Records[1].Language)
}

func TestLatestSnapshot_NotFound(t *testing.T) {
	storage := setupTestDB(t)
	_, err := storage.LatestSnapshot(context.Background(), "/nowhere")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestSnapshot_ReturnsNewest(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	first := testSnapshot()
	require.NoError(t, storage.SaveSnapshot(ctx, first))

	records := testRecords()[:1]
	second := &Snapshot{
		WorkspacePath: testRoot,
		Tree:          merkle.NewBuilder(nil).Build(records, testRoot),
		Records:       records,
	}
	require.NoError(t, storage.SaveSnapshot(ctx, second))

	loaded, err := storage.LatestSnapshot(ctx, testRoot)
	require.NoError(t, err)
	assert.Equal(t, second.RunID, loaded.RunID)
	assert.Equal(t, 1, loaded.Tree.FileCount())
	assert.Equal(t, 0, loaded.ChunkCount)
	assert.Nil(t, loaded.Report)
}

func TestListChunks(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	snap := testSnapshot()
	require.NoError(t, storage.SaveSnapshot(ctx, snap))

	all, err := storage.ListChunks(ctx, snap.ID, "")
	require.NoError(t, err)
	assert.Equal(t, testChunks(), all)

	mainChunks, err := storage.ListChunks(ctx, snap.ID, "main.go")
	require.NoError(t, err)
	require.Len(t, mainChunks, 2)
	assert.Equal(t, "main", mainChunks[1].Name)
	assert.Equal(t, types.ChunkFunction, mainChunks[1].Type)

	none, err := storage.ListChunks(ctx, snap.ID+100, "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetStatus(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	_, err := storage.GetStatus(ctx, testRoot)
	assert.ErrorIs(t, err, ErrNotFound)

	snap := testSnapshot()
	require.NoError(t, storage.SaveSnapshot(ctx, snap))
	require.NoError(t, storage.SaveSnapshot(ctx, testSnapshot()))

	status, err := storage.GetStatus(ctx, testRoot)
	require.NoError(t, err)
	assert.Equal(t, testRoot, status.WorkspacePath)
	assert.Equal(t, 2, status.SnapshotCount)
	assert.Equal(t, snap.Tree.RootHash, status.RootHash)
	assert.Equal(t, 3, status.FilesCount)
	assert.Equal(t, len(snap.Tree.Directories), status.DirsCount)
	assert.Equal(t, 4, status.ChunksCount)
	assert.Equal(t, snap.Tree.TotalSize, status.TotalSize)
	assert.Equal(t, 1500*time.Millisecond, status.LastDuration)
	assert.Equal(t, CurrentSchemaVersion, status.SchemaVersion)
	assert.True(t, status.Health.DatabaseAccessible)
	assert.True(t, status.Health.ChunksConsistent)
	assert.False(t, status.LastIndexedAt.IsZero())
}

func TestPruneSnapshots(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 4; i++ {
		snap := testSnapshot()
		require.NoError(t, storage.SaveSnapshot(ctx, snap))
		ids = append(ids, snap.ID)
	}

	removed, err := storage.PruneSnapshots(ctx, testRoot, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	status, err := storage.GetStatus(ctx, testRoot)
	require.NoError(t, err)
	assert.Equal(t, 2, status.SnapshotCount)

	// chunks of pruned snapshots cascade away
	gone, err := storage.ListChunks(ctx, ids[0], "")
	require.NoError(t, err)
	assert.Empty(t, gone)

	kept, err := storage.ListChunks(ctx, ids[3], "")
	require.NoError(t, err)
	assert.Len(t, kept, 4)

	_, err = storage.PruneSnapshots(ctx, "/nowhere", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotsAreScopedToWorkspace(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	a := testSnapshot()
	require.NoError(t, storage.SaveSnapshot(ctx, a))

	records := testRecords()[1:2]
	b := &Snapshot{
		WorkspacePath: "/work/other",
		Tree:          merkle.NewBuilder(nil).Build(records, "/work/other"),
		Records:       records,
	}
	require.NoError(t, storage.SaveSnapshot(ctx, b))

	loaded, err := storage.LatestSnapshot(ctx, testRoot)
	require.NoError(t, err)
	assert.Equal(t, a.RunID, loaded.RunID)

	other, err := storage.LatestSnapshot(ctx, "/work/other")
	require.NoError(t, err)
	assert.Equal(t, 1, other.Tree.FileCount())
}

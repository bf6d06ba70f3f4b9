package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dshills/codemerkle/internal/storage"
	"github.com/dshills/codemerkle/internal/walker"
	"github.com/dshills/codemerkle/pkg/types"
)

const goSource = `package main

import "fmt"

func main() {
	fmt.Println("hello")
}
`

const pySource = `import os


def walk(root):
    return os.listdir(root)
`

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func setupWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "main.go", goSource)
	writeFile(t, root, "tools/walk.py", pySource)
	writeFile(t, root, "docs/notes.txt", "first line\nsecond line\n")
	writeFile(t, root, "ignored.bin", "not in the allow-list")
	return root
}

func testConfig() Config {
	return Config{
		Walker: walker.Config{Extensions: []string{".go", ".py", ".txt"}},
	}
}

func setupIndexer(t *testing.T, cfg Config) (*Indexer, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	idx, err := New(cfg, store, zaptest.NewLogger(t))
	require.NoError(t, err)
	return idx, store
}

func latestChunks(t *testing.T, store storage.Storage, root string) []types.Chunk {
	t.Helper()
	ctx := context.Background()
	snap, err := store.LatestSnapshot(ctx, root)
	require.NoError(t, err)
	chunks, err := store.ListChunks(ctx, snap.ID, "")
	require.NoError(t, err)
	return chunks
}

func filePaths(chunks []types.Chunk) map[string]int {
	out := map[string]int{}
	for _, c := range chunks {
		out[c.FilePath]++
	}
	return out
}

func TestNew_RequiresExtensions(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, err = New(Config{}, store, nil)
	assert.ErrorIs(t, err, types.ErrNoExtensions)
}

func TestIndexWorkspace_FirstRun(t *testing.T) {
	root := setupWorkspace(t)
	idx, store := setupIndexer(t, testConfig())

	stats, err := idx.IndexWorkspace(context.Background(), root, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.FilesScanned)
	assert.Equal(t, 3, stats.FilesChunked)
	assert.Equal(t, 0, stats.FilesReused)
	assert.Equal(t, 3, stats.Added)
	assert.False(t, stats.Unchanged)
	assert.NotEmpty(t, stats.RunID)
	assert.NotEmpty(t, stats.RootHash)
	assert.Greater(t, stats.ChunksCreated, 0)
	assert.Equal(t, 0, stats.ChunksReused)

	chunks := latestChunks(t, store, stats.WorkspacePath)
	assert.Len(t, chunks, stats.ChunksCreated)
	paths := filePaths(chunks)
	assert.Contains(t, paths, "main.go")
	assert.Contains(t, paths, "tools/walk.py")
	assert.Contains(t, paths, "docs/notes.txt")
	assert.NotContains(t, paths, "ignored.bin")

	for _, c := range chunks {
		assert.NoError(t, c.Validate())
	}
}

func TestIndexWorkspace_UnchangedSkipsSnapshot(t *testing.T) {
	root := setupWorkspace(t)
	idx, store := setupIndexer(t, testConfig())
	ctx := context.Background()

	first, err := idx.IndexWorkspace(ctx, root, Options{})
	require.NoError(t, err)

	second, err := idx.IndexWorkspace(ctx, root, Options{})
	require.NoError(t, err)
	assert.True(t, second.Unchanged)
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, first.RootHash, second.RootHash)
	assert.Equal(t, 3, second.FilesReused)
	assert.Equal(t, first.ChunksCreated, second.ChunksReused)
	assert.Equal(t, 0, second.ChunksCreated)

	status, err := store.GetStatus(ctx, first.WorkspacePath)
	require.NoError(t, err)
	assert.Equal(t, 1, status.SnapshotCount)
}

func TestIndexWorkspace_Incremental(t *testing.T) {
	root := setupWorkspace(t)
	idx, store := setupIndexer(t, testConfig())
	ctx := context.Background()

	first, err := idx.IndexWorkspace(ctx, root, Options{})
	require.NoError(t, err)
	before := latestChunks(t, store, first.WorkspacePath)

	writeFile(t, root, "docs/notes.txt", "first line\nchanged line\n")
	writeFile(t, root, "pkg/extra.go", "package pkg\n\nvar Answer = 42\n")
	require.NoError(t, os.Remove(filepath.Join(root, "tools", "walk.py")))

	second, err := idx.IndexWorkspace(ctx, root, Options{})
	require.NoError(t, err)
	assert.False(t, second.Unchanged)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.NotEqual(t, first.RootHash, second.RootHash)
	assert.Equal(t, 1, second.Added)
	assert.Equal(t, 1, second.Modified)
	assert.Equal(t, 1, second.Deleted)
	assert.Equal(t, 2, second.FilesChunked)
	assert.Equal(t, 1, second.FilesReused)

	after := latestChunks(t, store, second.WorkspacePath)
	assert.Len(t, after, second.ChunksCreated+second.ChunksReused)
	paths := filePaths(after)
	assert.Contains(t, paths, "pkg/extra.go")
	assert.NotContains(t, paths, "tools/walk.py")

	// chunks of the untouched file are carried over verbatim
	var oldMain, newMain []types.Chunk
	for _, c := range before {
		if c.FilePath == "main.go" {
			oldMain = append(oldMain, c)
		}
	}
	for _, c := range after {
		if c.FilePath == "main.go" {
			newMain = append(newMain, c)
		}
	}
	assert.Equal(t, oldMain, newMain)

	for _, c := range after {
		if c.FilePath == "docs/notes.txt" {
			assert.Contains(t, c.Content, "changed line")
		}
	}
}

func TestIndexWorkspace_ForceReindex(t *testing.T) {
	root := setupWorkspace(t)
	idx, _ := setupIndexer(t, testConfig())
	ctx := context.Background()

	first, err := idx.IndexWorkspace(ctx, root, Options{})
	require.NoError(t, err)

	forced, err := idx.IndexWorkspace(ctx, root, Options{ForceReindex: true})
	require.NoError(t, err)
	assert.False(t, forced.Unchanged)
	assert.NotEqual(t, first.RunID, forced.RunID)
	assert.Equal(t, 3, forced.FilesChunked)
	assert.Equal(t, 0, forced.FilesReused)
	assert.Equal(t, first.ChunksCreated, forced.ChunksCreated)
}

func TestIndexWorkspace_ChunkSettingsChangeRechunks(t *testing.T) {
	root := setupWorkspace(t)
	idx, store := setupIndexer(t, testConfig())
	ctx := context.Background()

	first, err := idx.IndexWorkspace(ctx, root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, filePaths(latestChunks(t, store, first.WorkspacePath))["docs/notes.txt"])

	cfg := testConfig()
	cfg.Chunker.LinesPerChunk = 1
	narrow, err := New(cfg, store, zaptest.NewLogger(t))
	require.NoError(t, err)

	stats, err := narrow.IndexWorkspace(ctx, root, Options{})
	require.NoError(t, err)
	assert.False(t, stats.Unchanged)
	assert.NotEqual(t, first.RunID, stats.RunID)
	assert.Equal(t, 3, stats.FilesChunked)
	assert.Zero(t, stats.FilesReused)
	assert.Equal(t, 2, filePaths(latestChunks(t, store, stats.WorkspacePath))["docs/notes.txt"])

	again, err := narrow.IndexWorkspace(ctx, root, Options{})
	require.NoError(t, err)
	assert.True(t, again.Unchanged)
	assert.Equal(t, stats.RunID, again.RunID)
}

func TestChunkFingerprint(t *testing.T) {
	base := chunkFingerprint(testConfig())
	assert.Equal(t, base, chunkFingerprint(testConfig()))

	langs := testConfig()
	langs.Walker.Languages = map[string]string{".txt": "markdown"}
	assert.NotEqual(t, base, chunkFingerprint(langs))

	size := testConfig()
	size.Chunker.MaxChunkBytes = 512
	assert.NotEqual(t, base, chunkFingerprint(size))
}

func TestIndexWorkspace_PrunesSnapshots(t *testing.T) {
	root := setupWorkspace(t)
	cfg := testConfig()
	cfg.KeepSnapshots = 1
	idx, store := setupIndexer(t, cfg)
	ctx := context.Background()

	_, err := idx.IndexWorkspace(ctx, root, Options{})
	require.NoError(t, err)
	writeFile(t, root, "docs/more.txt", "more\n")
	stats, err := idx.IndexWorkspace(ctx, root, Options{})
	require.NoError(t, err)

	status, err := store.GetStatus(ctx, stats.WorkspacePath)
	require.NoError(t, err)
	assert.Equal(t, 1, status.SnapshotCount)
	assert.Equal(t, stats.RunID, status.LatestRunID)
}

func TestIndexWorkspace_ConcurrentDispatch(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 30; i++ {
		writeFile(t, root, fmt.Sprintf("src/f%02d.txt", i), "line\n")
	}
	cfg := testConfig()
	cfg.Dispatch.Concurrent = true
	cfg.Dispatch.Workers = 4
	cfg.Dispatch.BatchSize = 8
	idx, _ := setupIndexer(t, cfg)

	stats, err := idx.IndexWorkspace(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 30, stats.FilesChunked)
	assert.Equal(t, 30, stats.ChunksCreated)
	assert.Equal(t, 4, stats.Dispatch.Batches)
}

func TestIndexWorkspace_InvalidRoot(t *testing.T) {
	idx, _ := setupIndexer(t, testConfig())
	_, err := idx.IndexWorkspace(context.Background(), filepath.Join(t.TempDir(), "missing"), Options{})
	assert.ErrorIs(t, err, types.ErrRootNotFound)
}

func TestIndexWorkspace_Locked(t *testing.T) {
	root := setupWorkspace(t)
	idx, _ := setupIndexer(t, testConfig())

	require.True(t, idx.lock.TryAcquire("/elsewhere"))
	_, err := idx.IndexWorkspace(context.Background(), root, Options{})
	assert.ErrorIs(t, err, ErrIndexInProgress)
	assert.Contains(t, err.Error(), "/elsewhere")

	idx.lock.Release()
	_, err = idx.IndexWorkspace(context.Background(), root, Options{})
	assert.NoError(t, err)
}

func TestDiffWorkspace(t *testing.T) {
	root := setupWorkspace(t)
	idx, _ := setupIndexer(t, testConfig())
	ctx := context.Background()

	diff, err := idx.DiffWorkspace(ctx, root)
	require.NoError(t, err)
	assert.False(t, diff.HasSnapshot)
	assert.Len(t, diff.Changes, 3)
	for _, c := range diff.Changes {
		assert.Equal(t, types.ChangeAdded, c.Kind)
	}

	_, err = idx.IndexWorkspace(ctx, root, Options{})
	require.NoError(t, err)

	diff, err = idx.DiffWorkspace(ctx, root)
	require.NoError(t, err)
	assert.True(t, diff.HasSnapshot)
	assert.Empty(t, diff.Changes)
	assert.Equal(t, diff.OldRootHash, diff.NewRootHash)
	assert.Equal(t, "No changes detected.", diff.Summary)

	writeFile(t, root, "main.go", goSource+"\n// trailing\n")
	diff, err = idx.DiffWorkspace(ctx, root)
	require.NoError(t, err)
	require.Len(t, diff.Changes, 1)
	assert.Equal(t, "main.go", diff.Changes[0].Path)
	assert.Equal(t, types.ChangeModified, diff.Changes[0].Kind)
	assert.Contains(t, diff.Summary, "MODIFIED")
}

func TestIndexLock(t *testing.T) {
	var l IndexLock
	assert.Empty(t, l.Holder())
	assert.True(t, l.TryAcquire("/a"))
	assert.False(t, l.TryAcquire("/b"))
	assert.Equal(t, "/a", l.Holder())
	l.Release()
	assert.Empty(t, l.Holder())
	assert.True(t, l.TryAcquire("/b"))
	assert.Equal(t, "/b", l.Holder())
}

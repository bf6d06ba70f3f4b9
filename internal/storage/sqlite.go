package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/codemerkle/internal/merkle"
	"github.com/dshills/codemerkle/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidSnapshot is returned when a snapshot cannot be saved
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

var _ Storage = (*SQLiteStorage)(nil)

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// withTx runs fn in a transaction, committing only when fn succeeds
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Workspace operations

// upsertWorkspaceWithQuerier returns the workspace id for rootPath,
// creating the row when needed
func (s *SQLiteStorage) upsertWorkspaceWithQuerier(ctx context.Context, q querier, rootPath string, indexedAt time.Time) (int64, error) {
	_, err := q.ExecContext(ctx, `
		INSERT INTO workspaces (root_path, last_indexed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(root_path) DO UPDATE SET last_indexed_at = excluded.last_indexed_at,
		                                     updated_at = excluded.updated_at
	`, rootPath, indexedAt, indexedAt, indexedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert workspace: %w", err)
	}
	return s.workspaceIDWithQuerier(ctx, q, rootPath)
}

func (s *SQLiteStorage) workspaceIDWithQuerier(ctx context.Context, q querier, rootPath string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, "SELECT id FROM workspaces WHERE root_path = ?", rootPath).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Snapshot operations

// SaveSnapshot stores the tree, file metadata and chunks of one run in a
// single transaction. It assigns snap.ID, snap.RunID and snap.ChunkCount.
func (s *SQLiteStorage) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap == nil || snap.Tree == nil {
		return fmt.Errorf("%w: missing tree", ErrInvalidSnapshot)
	}
	if snap.WorkspacePath == "" {
		snap.WorkspacePath = snap.Tree.WorkspacePath
	}
	if snap.WorkspacePath == "" {
		return fmt.Errorf("%w: missing workspace path", ErrInvalidSnapshot)
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}
	runID := uuid.NewString()

	err := s.withTx(ctx, func(q querier) error {
		wsID, err := s.upsertWorkspaceWithQuerier(ctx, q, snap.WorkspacePath, snap.CreatedAt)
		if err != nil {
			return err
		}

		var report interface{}
		if len(snap.Report) > 0 {
			report = string(snap.Report)
		}
		tree := snap.Tree
		result, err := q.ExecContext(ctx, `
			INSERT INTO snapshots (run_id, workspace_id, merkle_version, root_hash, file_count, dir_count,
			                       chunk_count, total_size, max_depth, created_at, duration_ms, report,
			                       chunk_config)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, wsID, tree.Version, tree.RootHash, len(tree.Files), len(tree.Directories),
			len(snap.Chunks), tree.TotalSize, tree.MaxDepth, snap.CreatedAt,
			snap.Duration.Milliseconds(), report, snap.ChunkConfig)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}

		if err := s.insertFilesWithQuerier(ctx, q, id, tree, snap.Records); err != nil {
			return err
		}
		if err := s.insertDirsWithQuerier(ctx, q, id, tree); err != nil {
			return err
		}
		if err := s.insertChunksWithQuerier(ctx, q, id, snap.Chunks); err != nil {
			return err
		}
		snap.ID = id
		return nil
	})
	if err != nil {
		return err
	}

	snap.RunID = runID
	snap.ChunkCount = len(snap.Chunks)
	return nil
}

func (s *SQLiteStorage) insertFilesWithQuerier(ctx context.Context, q querier, snapshotID int64, tree *types.MerkleTree, records []types.FileRecord) error {
	meta := make(map[string]types.FileRecord, len(records))
	for _, r := range records {
		meta[r.Path] = r
	}

	query := `
		INSERT INTO snapshot_files (snapshot_id, path, content_hash, size, mod_time, is_binary, encoding, language)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, path := range sortedKeys(tree.Files) {
		f := tree.Files[path]
		rec := meta[path]
		_, err := q.ExecContext(ctx, query,
			snapshotID, f.Path, f.Hash, f.Size, f.LastModified, f.IsBinary,
			string(rec.Encoding), rec.Language)
		if err != nil {
			return fmt.Errorf("failed to store file %s: %w", path, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) insertDirsWithQuerier(ctx context.Context, q querier, snapshotID int64, tree *types.MerkleTree) error {
	query := `
		INSERT INTO snapshot_dirs (snapshot_id, path, hash, children, file_count)
		VALUES (?, ?, ?, ?, ?)
	`
	for _, path := range sortedKeys(tree.Directories) {
		d := tree.Directories[path]
		children, err := json.Marshal(d.Children)
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, query, snapshotID, d.Path, d.Hash, string(children), d.FileCount); err != nil {
			return fmt.Errorf("failed to store directory %s: %w", path, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) insertChunksWithQuerier(ctx context.Context, q querier, snapshotID int64, chunks []types.Chunk) error {
	query := `
		INSERT INTO chunks (snapshot_id, seq, chunk_id, file_path, language, start_line, end_line,
		                    content, chunk_type, name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i := range chunks {
		c := &chunks[i]
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w: chunk %d of %s: %v", ErrInvalidSnapshot, i, c.FilePath, err)
		}
		_, err := q.ExecContext(ctx, query,
			snapshotID, i, c.ID, c.FilePath, c.Language, c.StartLine, c.EndLine,
			c.Content, string(c.Type), c.Name)
		if err != nil {
			return fmt.Errorf("failed to store chunk: %w", err)
		}
	}
	return nil
}

// LatestSnapshot loads the newest snapshot of a workspace with its Merkle
// tree and file records. Chunks are loaded separately with ListChunks.
func (s *SQLiteStorage) LatestSnapshot(ctx context.Context, rootPath string) (*Snapshot, error) {
	var (
		snap       Snapshot
		tree       types.MerkleTree
		durationMS int64
		report     sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.run_id, w.root_path, s.merkle_version, s.root_hash, s.chunk_count,
		       s.total_size, s.max_depth, s.created_at, s.duration_ms, s.report, s.chunk_config
		FROM snapshots s
		JOIN workspaces w ON s.workspace_id = w.id
		WHERE w.root_path = ?
		ORDER BY s.id DESC
		LIMIT 1
	`, rootPath).Scan(
		&snap.ID, &snap.RunID, &snap.WorkspacePath, &tree.Version, &tree.RootHash, &snap.ChunkCount,
		&tree.TotalSize, &tree.MaxDepth, &snap.CreatedAt, &durationMS, &report, &snap.ChunkConfig,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	snap.Duration = time.Duration(durationMS) * time.Millisecond
	if report.Valid {
		snap.Report = json.RawMessage(report.String)
	}

	tree.WorkspacePath = snap.WorkspacePath
	tree.CreatedAt = snap.CreatedAt
	records, err := s.loadFiles(ctx, snap.ID, &tree)
	if err != nil {
		return nil, err
	}
	if err := s.loadDirs(ctx, snap.ID, &tree); err != nil {
		return nil, err
	}
	merkle.Recompute(&tree)

	snap.Tree = &tree
	snap.Records = records
	return &snap, nil
}

func (s *SQLiteStorage) loadFiles(ctx context.Context, snapshotID int64, tree *types.MerkleTree) ([]types.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, content_hash, size, mod_time, is_binary, encoding, language
		FROM snapshot_files
		WHERE snapshot_id = ?
		ORDER BY path
	`, snapshotID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	tree.Files = make(map[string]*types.FileNode)
	var records []types.FileRecord
	for rows.Next() {
		var (
			rec      types.FileRecord
			modTime  sql.NullTime
			encoding string
		)
		if err := rows.Scan(&rec.Path, &rec.ContentHash, &rec.Size, &modTime, &rec.IsBinary, &encoding, &rec.Language); err != nil {
			return nil, err
		}
		if modTime.Valid {
			rec.LastModified = modTime.Time
		}
		rec.Encoding = types.Encoding(encoding)

		tree.Files[rec.Path] = &types.FileNode{
			Path:         rec.Path,
			Hash:         rec.ContentHash,
			Size:         rec.Size,
			LastModified: rec.LastModified,
			IsBinary:     rec.IsBinary,
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStorage) loadDirs(ctx context.Context, snapshotID int64, tree *types.MerkleTree) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, hash, children, file_count
		FROM snapshot_dirs
		WHERE snapshot_id = ?
	`, snapshotID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	tree.Directories = make(map[string]*types.DirectoryNode)
	for rows.Next() {
		var (
			dir      types.DirectoryNode
			children string
		)
		if err := rows.Scan(&dir.Path, &dir.Hash, &children, &dir.FileCount); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(children), &dir.Children); err != nil {
			return fmt.Errorf("corrupt children of %s: %w", dir.Path, err)
		}
		tree.Directories[dir.Path] = &dir
	}
	return rows.Err()
}

// PruneSnapshots deletes all but the newest keep snapshots of a workspace
// and returns how many were removed
func (s *SQLiteStorage) PruneSnapshots(ctx context.Context, rootPath string, keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}
	wsID, err := s.workspaceIDWithQuerier(ctx, s.db, rootPath)
	if err != nil {
		return 0, err
	}
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE workspace_id = ?
		  AND id NOT IN (
		      SELECT id FROM snapshots WHERE workspace_id = ? ORDER BY id DESC LIMIT ?
		  )
	`, wsID, wsID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Chunk operations

// ListChunks returns the chunks of a snapshot in stored order. An empty
// filePath returns every chunk.
func (s *SQLiteStorage) ListChunks(ctx context.Context, snapshotID int64, filePath string) ([]types.Chunk, error) {
	query := `
		SELECT chunk_id, file_path, language, start_line, end_line, content, chunk_type, name
		FROM chunks
		WHERE snapshot_id = ?
	`
	args := []interface{}{snapshotID}
	if filePath != "" {
		query += " AND file_path = ?"
		args = append(args, filePath)
	}
	query += " ORDER BY seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chunks []types.Chunk
	for rows.Next() {
		var (
			c         types.Chunk
			language  sql.NullString
			name      sql.NullString
			chunkType string
		)
		if err := rows.Scan(&c.ID, &c.FilePath, &language, &c.StartLine, &c.EndLine, &c.Content, &chunkType, &name); err != nil {
			return nil, err
		}
		c.Language = language.String
		c.Name = name.String
		c.Type = types.ChunkType(chunkType)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Status operations

// GetStatus reports what is stored for a workspace
func (s *SQLiteStorage) GetStatus(ctx context.Context, rootPath string) (*WorkspaceStatus, error) {
	status := &WorkspaceStatus{WorkspacePath: rootPath}
	status.Health.DatabaseAccessible = s.db.PingContext(ctx) == nil

	wsID, err := s.workspaceIDWithQuerier(ctx, s.db, rootPath)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots WHERE workspace_id = ?", wsID).Scan(&status.SnapshotCount)
	if err != nil {
		return nil, err
	}

	var (
		snapshotID int64
		durationMS int64
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT id, run_id, root_hash, file_count, dir_count, chunk_count, total_size, created_at, duration_ms
		FROM snapshots
		WHERE workspace_id = ?
		ORDER BY id DESC
		LIMIT 1
	`, wsID).Scan(&snapshotID, &status.LatestRunID, &status.RootHash, &status.FilesCount, &status.DirsCount,
		&status.ChunksCount, &status.TotalSize, &status.LastIndexedAt, &durationMS)
	if err == sql.ErrNoRows {
		return status, nil
	}
	if err != nil {
		return nil, err
	}
	status.LastDuration = time.Duration(durationMS) * time.Millisecond

	var stored int
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE snapshot_id = ?", snapshotID).Scan(&stored)
	if err != nil {
		return nil, err
	}
	status.Health.ChunksConsistent = stored == status.ChunksCount

	if status.SchemaVersion, err = SchemaVersion(ctx, s.db); err != nil {
		return nil, err
	}
	return status, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

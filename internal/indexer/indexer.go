package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/dshills/codemerkle/internal/chunker"
	"github.com/dshills/codemerkle/internal/dispatcher"
	"github.com/dshills/codemerkle/internal/merkle"
	"github.com/dshills/codemerkle/internal/storage"
	"github.com/dshills/codemerkle/internal/walker"
	"github.com/dshills/codemerkle/pkg/types"
)

// ErrIndexInProgress is returned when a run is already active on the Indexer
var ErrIndexInProgress = errors.New("indexing already in progress")

// Indexer coordinates the indexing pipeline: scan -> tree -> diff -> chunk -> store
type Indexer struct {
	walker     *walker.Walker
	builder    *merkle.Builder
	dispatcher *dispatcher.Dispatcher
	storage    storage.Storage
	logger     *zap.Logger

	keepSnapshots int
	chunkConfig   string
	lock          IndexLock
}

// Config contains configuration for the indexer
type Config struct {
	Walker   walker.Config
	Chunker  chunker.Config
	Dispatch dispatcher.Config

	// KeepSnapshots bounds stored snapshots per workspace; 0 keeps all
	KeepSnapshots int
}

// Options control a single run
type Options struct {
	ForceReindex bool // chunk every file even when a previous snapshot exists
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	WorkspacePath string `json:"workspace_path"`
	RunID         string `json:"run_id,omitempty"`
	RootHash      string `json:"root_hash"`
	Unchanged     bool   `json:"unchanged"`

	FilesScanned int `json:"files_scanned"`
	FilesSkipped int `json:"files_skipped"`
	FilesFailed  int `json:"files_failed"`
	DirsSkipped  int `json:"dirs_skipped"`
	FilesChunked int `json:"files_chunked"`
	FilesReused  int `json:"files_reused"`

	ChunksCreated int `json:"chunks_created"`
	ChunksReused  int `json:"chunks_reused"`

	Added    int `json:"added"`
	Modified int `json:"modified"`
	Deleted  int `json:"deleted"`

	Duration      time.Duration     `json:"duration"`
	ErrorMessages []string          `json:"error_messages"`
	Dispatch      dispatcher.Report `json:"dispatch"`
}

// DiffResult describes how the workspace differs from its last snapshot
type DiffResult struct {
	WorkspacePath string         `json:"workspace_path"`
	OldRootHash   string         `json:"old_root_hash,omitempty"`
	NewRootHash   string         `json:"new_root_hash"`
	Changes       []types.Change `json:"changes"`
	Summary       string         `json:"summary"`
	HasSnapshot   bool           `json:"has_snapshot"`
}

// New creates a new Indexer. It fails when the walker configuration is
// invalid, most notably with types.ErrNoExtensions.
func New(cfg Config, store storage.Storage, logger *zap.Logger) (*Indexer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, err := walker.New(cfg.Walker, logger.Named("walker"))
	if err != nil {
		return nil, err
	}

	chunkCfg := cfg.Chunker
	chunkLogger := logger.Named("chunker")
	factory := func() (dispatcher.Engine, error) {
		return chunker.NewEngine(chunkCfg, chunkLogger), nil
	}

	return &Indexer{
		walker:        w,
		builder:       merkle.NewBuilder(logger.Named("merkle")),
		dispatcher:    dispatcher.New(cfg.Dispatch, factory, logger.Named("dispatcher")),
		storage:       store,
		logger:        logger,
		keepSnapshots: cfg.KeepSnapshots,
		chunkConfig:   chunkFingerprint(cfg),
	}, nil
}

// chunkFingerprint covers everything that decides a file's chunks besides
// its content: the chunker settings and the language overrides
func chunkFingerprint(cfg Config) string {
	overrides := make([]string, 0, len(cfg.Walker.Languages))
	for ext, lang := range cfg.Walker.Languages {
		overrides = append(overrides, ext+"="+lang)
	}
	sort.Strings(overrides)

	h := xxhash.New()
	_, _ = h.WriteString(cfg.Chunker.Fingerprint())
	for _, o := range overrides {
		_, _ = h.WriteString(";" + o)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// IndexWorkspace scans root, chunks files that changed since the last
// snapshot and stores a new snapshot. Chunks of unchanged files are copied
// from the previous snapshot. When nothing changed no snapshot is written.
func (idx *Indexer) IndexWorkspace(ctx context.Context, root string, opts Options) (*Statistics, error) {
	if !idx.lock.TryAcquire(root) {
		return nil, fmt.Errorf("%w: %s", ErrIndexInProgress, idx.lock.Holder())
	}
	defer idx.lock.Release()

	startTime := time.Now()

	scan, err := idx.walker.Scan(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan workspace: %w", err)
	}
	tree := idx.builder.Build(scan.Records(), scan.Root)

	stats := &Statistics{
		WorkspacePath: scan.Root,
		RootHash:      tree.RootHash,
		FilesScanned:  scan.Stats.FilesScanned,
		FilesSkipped:  scan.Stats.FilesSkipped,
		FilesFailed:   scan.Stats.FilesFailed,
		DirsSkipped:   scan.Stats.DirsSkipped,
		ErrorMessages: scan.ErrorMessages(),
	}

	prev, err := idx.previous(ctx, scan.Root)
	if err != nil {
		return nil, err
	}

	changes := merkle.Diff(prevTree(prev), tree)
	cs := types.Partition(changes)
	stats.Added, stats.Modified, stats.Deleted = len(cs.Added), len(cs.Modified), len(cs.Deleted)

	rechunk := opts.ForceReindex
	if prev != nil && !rechunk && prev.ChunkConfig != idx.chunkConfig {
		idx.logger.Info("chunking settings changed since last snapshot, rechunking all files",
			zap.String("root", scan.Root))
		rechunk = true
	}

	if prev != nil && !rechunk && merkle.Unchanged(prev.Tree, tree) {
		stats.Unchanged = true
		stats.RunID = prev.RunID
		stats.FilesReused = len(scan.Files)
		stats.ChunksReused = prev.ChunkCount
		stats.Duration = time.Since(startTime)
		idx.logger.Info("workspace unchanged",
			zap.String("root", scan.Root),
			zap.String("root_hash", tree.RootHash))
		return stats, nil
	}

	// files whose previous chunks can be carried over
	reusable := map[string][]types.Chunk{}
	if prev != nil && !rechunk {
		reusable, err = idx.reusableChunks(ctx, prev, tree)
		if err != nil {
			return nil, err
		}
	}

	var pending []walker.ScannedFile
	for _, f := range scan.Files {
		if _, ok := reusable[f.Record.Path]; !ok {
			pending = append(pending, f)
		}
	}

	res, err := idx.dispatcher.Process(ctx, pending)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk files: %w", err)
	}
	stats.Dispatch = res.Report
	stats.FilesChunked = len(pending) - len(res.Failed)
	stats.ChunksCreated = len(res.Chunks)
	for _, f := range res.Failed {
		stats.FilesFailed++
		stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", f.Path, f.Err))
	}

	created := groupByFile(res.Chunks)
	chunks := make([]types.Chunk, 0, len(res.Chunks))
	for _, f := range scan.Files {
		if reused, ok := reusable[f.Record.Path]; ok {
			stats.FilesReused++
			stats.ChunksReused += len(reused)
			chunks = append(chunks, reused...)
			continue
		}
		chunks = append(chunks, created[f.Record.Path]...)
	}

	report, err := json.Marshal(res.Report)
	if err != nil {
		return nil, err
	}
	stats.Duration = time.Since(startTime)
	snap := &storage.Snapshot{
		WorkspacePath: scan.Root,
		Tree:          tree,
		Chunks:        chunks,
		Records:       scan.Records(),
		Duration:      stats.Duration,
		Report:        report,
		ChunkConfig:   idx.chunkConfig,
	}
	if err := idx.storage.SaveSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}
	stats.RunID = snap.RunID

	if idx.keepSnapshots > 0 {
		removed, err := idx.storage.PruneSnapshots(ctx, scan.Root, idx.keepSnapshots)
		if err != nil {
			idx.logger.Warn("failed to prune snapshots", zap.String("root", scan.Root), zap.Error(err))
		} else if removed > 0 {
			idx.logger.Debug("pruned snapshots", zap.Int("removed", removed))
		}
	}

	idx.logger.Info("indexing complete",
		zap.String("root", scan.Root),
		zap.String("run_id", snap.RunID),
		zap.Int("files", stats.FilesScanned),
		zap.Int("chunked", stats.FilesChunked),
		zap.Int("reused", stats.FilesReused),
		zap.Int("chunks", len(chunks)),
		zap.Duration("duration", stats.Duration))

	return stats, nil
}

// DiffWorkspace scans root and compares it with the last stored snapshot
// without persisting anything
func (idx *Indexer) DiffWorkspace(ctx context.Context, root string) (*DiffResult, error) {
	scan, err := idx.walker.Scan(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan workspace: %w", err)
	}
	tree := idx.builder.Build(scan.Records(), scan.Root)

	prev, err := idx.previous(ctx, scan.Root)
	if err != nil {
		return nil, err
	}

	changes := merkle.Diff(prevTree(prev), tree)
	result := &DiffResult{
		WorkspacePath: scan.Root,
		NewRootHash:   tree.RootHash,
		Changes:       changes,
		Summary:       merkle.FormatReport(changes),
		HasSnapshot:   prev != nil,
	}
	if prev != nil {
		result.OldRootHash = prev.Tree.RootHash
	}
	return result, nil
}

// previous loads the last snapshot of root, nil when there is none or its
// tree was built with a different hashing scheme
func (idx *Indexer) previous(ctx context.Context, root string) (*storage.Snapshot, error) {
	prev, err := idx.storage.LatestSnapshot(ctx, root)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load previous snapshot: %w", err)
	}
	if prev.Tree.Version != types.MerkleVersion {
		idx.logger.Warn("ignoring snapshot with different tree version",
			zap.String("root", root),
			zap.String("version", prev.Tree.Version))
		return nil, nil
	}
	return prev, nil
}

// reusableChunks returns the stored chunks of every file whose hash did not
// change, keyed by path
func (idx *Indexer) reusableChunks(ctx context.Context, prev *storage.Snapshot, tree *types.MerkleTree) (map[string][]types.Chunk, error) {
	stored, err := idx.storage.ListChunks(ctx, prev.ID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load previous chunks: %w", err)
	}
	byFile := groupByFile(stored)

	reusable := make(map[string][]types.Chunk)
	for path, node := range tree.Files {
		old, ok := prev.Tree.Files[path]
		if !ok || old.Hash != node.Hash {
			continue
		}
		reusable[path] = byFile[path]
	}
	return reusable, nil
}

func prevTree(prev *storage.Snapshot) *types.MerkleTree {
	if prev == nil {
		return nil
	}
	return prev.Tree
}

func groupByFile(chunks []types.Chunk) map[string][]types.Chunk {
	out := make(map[string][]types.Chunk)
	for _, c := range chunks {
		out[c.FilePath] = append(out[c.FilePath], c)
	}
	return out
}

package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/codemerkle/internal/pathutil"
	"github.com/dshills/codemerkle/pkg/types"
)

// Size bucket boundaries
const (
	SmallFileLimit  = 10 * 1024
	MediumFileLimit = 100 * 1024
)

// Builder constructs Merkle trees from file records
type Builder struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewBuilder creates a Builder. A nil logger disables logging.
func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{logger: logger, now: time.Now}
}

// Build creates the tree for records scanned from workspace
func (b *Builder) Build(records []types.FileRecord, workspace string) *types.MerkleTree {
	tree := &types.MerkleTree{
		Version:       types.MerkleVersion,
		CreatedAt:     b.now().UTC(),
		WorkspacePath: workspace,
		Files:         make(map[string]*types.FileNode, len(records)),
		Directories:   make(map[string]*types.DirectoryNode),
	}

	for _, rec := range records {
		p := pathutil.Normalize(rec.Path)
		tree.Files[p] = &types.FileNode{
			Path:         p,
			Hash:         rec.ContentHash,
			Size:         rec.Size,
			LastModified: rec.LastModified,
			IsBinary:     rec.IsBinary,
		}
	}

	b.buildDirectories(tree)
	tree.RootHash = RootHash(tree.Files)
	Recompute(tree)
	return tree
}

// buildDirectories derives directory membership from file paths and hashes
// directories bottom-up
func (b *Builder) buildDirectories(tree *types.MerkleTree) {
	members := map[string]map[string]struct{}{pathutil.Root: {}}

	for p := range tree.Files {
		child := p
		for dir := pathutil.Parent(p); dir != ""; dir = pathutil.Parent(dir) {
			set, ok := members[dir]
			if !ok {
				set = map[string]struct{}{}
				members[dir] = set
			}
			if _, linked := set[child]; linked {
				break // the rest of the chain is already recorded
			}
			set[child] = struct{}{}
			child = dir
		}
	}

	dirs := make([]string, 0, len(members))
	for d := range members {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := pathutil.Depth(dirs[i]), pathutil.Depth(dirs[j])
		if di != dj {
			return di > dj
		}
		return dirs[i] < dirs[j]
	})

	for _, dir := range dirs {
		children := make([]string, 0, len(members[dir]))
		for c := range members[dir] {
			children = append(children, c)
		}
		sort.Strings(children)

		hashes := make([]string, 0, len(children))
		count := 0
		for _, c := range children {
			if f, ok := tree.Files[c]; ok {
				hashes = append(hashes, f.Hash)
				count++
				continue
			}
			if d, ok := tree.Directories[c]; ok {
				hashes = append(hashes, d.Hash)
				count += d.FileCount
				continue
			}
			b.logger.Warn("missing child hash, using name",
				zap.String("directory", dir), zap.String("child", c))
			hashes = append(hashes, c)
		}

		tree.Directories[dir] = &types.DirectoryNode{
			Path:      dir,
			Hash:      HashChildren(hashes),
			Children:  children,
			FileCount: count,
		}
	}
}

// HashChildren returns the hex SHA-256 of hashes sorted and concatenated
func HashChildren(hashes []string) string {
	sorted := make([]string, len(hashes))
	copy(sorted, hashes)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "")))
	return hex.EncodeToString(sum[:])
}

// RootHash returns the hex SHA-256 of every file hash concatenated in path
// order. An empty file set hashes the empty string.
func RootHash(files map[string]*types.FileNode) string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		h.Write([]byte(files[p].Hash))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Recompute rebuilds the derived indexes of tree from its Files map
func Recompute(tree *types.MerkleTree) {
	tree.ByExtension = make(map[string][]string)
	tree.BySize = types.SizeBuckets{}
	tree.TotalSize = 0
	tree.MaxDepth = 0

	paths := make([]string, 0, len(tree.Files))
	for p := range tree.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		f := tree.Files[p]
		ext := pathutil.Ext(p)
		tree.ByExtension[ext] = append(tree.ByExtension[ext], p)

		switch {
		case f.Size < SmallFileLimit:
			tree.BySize.Small = append(tree.BySize.Small, p)
		case f.Size < MediumFileLimit:
			tree.BySize.Medium = append(tree.BySize.Medium, p)
		default:
			tree.BySize.Large = append(tree.BySize.Large, p)
		}

		tree.TotalSize += f.Size
		if d := pathutil.Depth(p); d > tree.MaxDepth {
			tree.MaxDepth = d
		}
	}
}

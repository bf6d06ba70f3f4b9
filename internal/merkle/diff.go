package merkle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/codemerkle/pkg/types"
)

// Diff reports how newTree's files differ from oldTree's. A nil tree is
// treated as empty. Results are sorted by path.
func Diff(oldTree, newTree *types.MerkleTree) []types.Change {
	oldFiles := filesOf(oldTree)
	newFiles := filesOf(newTree)

	changes := make([]types.Change, 0)
	for p, nf := range newFiles {
		of, ok := oldFiles[p]
		if !ok {
			changes = append(changes, types.Change{Path: p, Kind: types.ChangeAdded, NewHash: nf.Hash})
			continue
		}
		if of.Hash != nf.Hash {
			changes = append(changes, types.Change{
				Path:    p,
				Kind:    types.ChangeModified,
				OldHash: of.Hash,
				NewHash: nf.Hash,
			})
		}
	}
	for p, of := range oldFiles {
		if _, ok := newFiles[p]; !ok {
			changes = append(changes, types.Change{Path: p, Kind: types.ChangeDeleted, OldHash: of.Hash})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
	return changes
}

// Unchanged reports whether two trees have identical root hashes
func Unchanged(oldTree, newTree *types.MerkleTree) bool {
	if oldTree == nil || newTree == nil {
		return false
	}
	return oldTree.RootHash == newTree.RootHash
}

func filesOf(t *types.MerkleTree) map[string]*types.FileNode {
	if t == nil || t.Files == nil {
		return map[string]*types.FileNode{}
	}
	return t.Files
}

// FormatReport renders changes for humans
func FormatReport(changes []types.Change) string {
	if len(changes) == 0 {
		return "No changes detected."
	}

	cs := types.Partition(changes)
	var b strings.Builder
	b.WriteString("Changes detected:\n")

	section := func(title, marker string, paths []string) {
		if len(paths) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s (%d files):\n", title, len(paths))
		for _, p := range paths {
			fmt.Fprintf(&b, "  %s %s\n", marker, p)
		}
	}
	section("ADDED", "+", cs.Added)
	section("MODIFIED", "~", cs.Modified)
	section("DELETED", "-", cs.Deleted)

	return b.String()
}

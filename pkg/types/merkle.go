package types

import "time"

// MerkleVersion tags the tree layout so stored trees can be rejected when
// the hashing scheme changes.
const MerkleVersion = "1.0.0"

// FileNode is a leaf of the Merkle tree
type FileNode struct {
	Path         string    `json:"path"`
	Hash         string    `json:"hash"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	IsBinary     bool      `json:"is_binary,omitempty"`
}

// DirectoryNode is an interior node. Hash is the SHA-256 of the sorted
// child hashes concatenated.
type DirectoryNode struct {
	Path      string   `json:"path"`
	Hash      string   `json:"hash"`
	Children  []string `json:"children"`   // sorted child path keys
	FileCount int      `json:"file_count"` // files in the whole subtree
}

// SizeBuckets groups file paths by size class
type SizeBuckets struct {
	Small  []string `json:"small"`  // < 10 KiB
	Medium []string `json:"medium"` // < 100 KiB
	Large  []string `json:"large"`  // >= 100 KiB
}

// MerkleTree is the content-addressed snapshot of a workspace.
// ByExtension, BySize, TotalSize and MaxDepth are derived from Files and
// Directories and may be recomputed at any time.
type MerkleTree struct {
	Version       string    `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	WorkspacePath string    `json:"workspace_path"`
	RootHash      string    `json:"root_hash"`

	Files       map[string]*FileNode      `json:"files"`
	Directories map[string]*DirectoryNode `json:"directories"`

	ByExtension map[string][]string `json:"by_extension"`
	BySize      SizeBuckets         `json:"by_size"`
	TotalSize   int64               `json:"total_size"`
	MaxDepth    int                 `json:"max_depth"`
}

// FileCount returns the number of files in the tree
func (t *MerkleTree) FileCount() int {
	if t == nil {
		return 0
	}
	return len(t.Files)
}

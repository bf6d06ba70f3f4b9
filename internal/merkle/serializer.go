package merkle

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dshills/codemerkle/pkg/types"
)

// Marshal encodes tree as indented JSON
func Marshal(tree *types.MerkleTree) ([]byte, error) {
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tree: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a tree and recomputes its derived indexes
func Unmarshal(data []byte) (*types.MerkleTree, error) {
	var tree types.MerkleTree
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tree: %w", err)
	}
	if tree.Version != types.MerkleVersion {
		return nil, fmt.Errorf("unsupported tree version %q", tree.Version)
	}
	if tree.Files == nil {
		tree.Files = map[string]*types.FileNode{}
	}
	if tree.Directories == nil {
		tree.Directories = map[string]*types.DirectoryNode{}
	}
	Recompute(&tree)
	return &tree, nil
}

// Save writes tree to path as JSON
func Save(tree *types.MerkleTree, path string) error {
	data, err := Marshal(tree)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Load reads a tree written by Save
func Load(path string) (*types.MerkleTree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Unmarshal(data)
}

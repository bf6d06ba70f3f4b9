package types

// ChangeKind describes how a file differs between two trees
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
)

// Change is one entry of a tree diff
type Change struct {
	Path    string     `json:"path"`
	Kind    ChangeKind `json:"kind"`
	OldHash string     `json:"old_hash,omitempty"`
	NewHash string     `json:"new_hash,omitempty"`
}

// ChangeSet partitions a diff by kind
type ChangeSet struct {
	Added    []string
	Modified []string
	Deleted  []string
}

// Partition splits changes by kind, preserving order
func Partition(changes []Change) ChangeSet {
	var cs ChangeSet
	for _, c := range changes {
		switch c.Kind {
		case ChangeAdded:
			cs.Added = append(cs.Added, c.Path)
		case ChangeModified:
			cs.Modified = append(cs.Modified, c.Path)
		case ChangeDeleted:
			cs.Deleted = append(cs.Deleted, c.Path)
		}
	}
	return cs
}

// Empty reports whether the change set has no entries
func (cs ChangeSet) Empty() bool {
	return len(cs.Added) == 0 && len(cs.Modified) == 0 && len(cs.Deleted) == 0
}

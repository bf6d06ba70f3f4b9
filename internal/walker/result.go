package walker

import "github.com/dshills/codemerkle/pkg/types"

// ScannedFile pairs a file record with its chunkable content. For binary
// files Content holds the placeholder or base64 marker.
type ScannedFile struct {
	Record  types.FileRecord
	Content string
}

// Result is the output of one scan. A file is present in Files only if it
// was read and classified successfully, so the record, hash and content
// views below are always aligned.
type Result struct {
	Root   string // resolved absolute workspace root
	Files  []ScannedFile
	Stats  types.ScanStats
	Errors []*types.ScanError
}

// Records returns the file records in scan order
func (r *Result) Records() []types.FileRecord {
	out := make([]types.FileRecord, len(r.Files))
	for i := range r.Files {
		out[i] = r.Files[i].Record
	}
	return out
}

// Paths returns the relative paths in scan order
func (r *Result) Paths() []string {
	out := make([]string, len(r.Files))
	for i := range r.Files {
		out[i] = r.Files[i].Record.Path
	}
	return out
}

// Hashes returns the content hashes in scan order
func (r *Result) Hashes() []string {
	out := make([]string, len(r.Files))
	for i := range r.Files {
		out[i] = r.Files[i].Record.ContentHash
	}
	return out
}

// Contents returns the chunkable contents in scan order
func (r *Result) Contents() []string {
	out := make([]string, len(r.Files))
	for i := range r.Files {
		out[i] = r.Files[i].Content
	}
	return out
}

// ErrorMessages renders per-file errors for reporting
func (r *Result) ErrorMessages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Error())
	}
	return out
}

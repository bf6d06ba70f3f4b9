package types

import (
	"fmt"
	"time"
)

// Encoding is the detected text encoding of a file. The zero value means
// the encoding could not be determined; callers treat it as UTF-8.
type Encoding string

const (
	EncodingUnknown Encoding = ""
	EncodingUTF8    Encoding = "utf-8"
	EncodingUTF16LE Encoding = "utf-16le"
	EncodingUTF16BE Encoding = "utf-16be"
	EncodingASCII   Encoding = "ascii"
)

// FileRecord describes one scanned file. Records are immutable once produced.
type FileRecord struct {
	Path         string    `json:"path"`         // workspace-relative, forward slashes
	ContentHash  string    `json:"content_hash"` // hex SHA-256 of raw bytes
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	IsBinary     bool      `json:"is_binary"`
	Encoding     Encoding  `json:"encoding,omitempty"`
	Language     string    `json:"language,omitempty"`
}

// ScanStats holds counters for a single scan run
type ScanStats struct {
	FilesScanned    int   `json:"files_scanned"`
	FilesSkipped    int   `json:"files_skipped"`
	FilesFailed     int   `json:"files_failed"`
	DirsScanned     int   `json:"dirs_scanned"`
	DirsSkipped     int   `json:"dirs_skipped"`
	SymlinksSkipped int   `json:"symlinks_skipped"`
	BytesRead       int64 `json:"bytes_read"`
}

// ScanErrorKind classifies a recoverable per-file failure
type ScanErrorKind string

const (
	ScanErrNotFound         ScanErrorKind = "not_found"
	ScanErrPermission       ScanErrorKind = "permission_denied"
	ScanErrIsDirectory      ScanErrorKind = "is_directory"
	ScanErrTooManyOpenFiles ScanErrorKind = "too_many_open_files"
	ScanErrInvalidEncoding  ScanErrorKind = "invalid_encoding"
	ScanErrTooLarge         ScanErrorKind = "too_large"
	ScanErrOther            ScanErrorKind = "other"
)

// ScanError is a per-file failure. It is aggregated on the scan result and
// never aborts a traversal.
type ScanError struct {
	Path string
	Kind ScanErrorKind
	Err  error
}

func (e *ScanError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

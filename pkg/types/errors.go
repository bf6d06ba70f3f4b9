package types

import "errors"

// Configuration and traversal errors. These abort a run.
var (
	ErrNoExtensions     = errors.New("extension allow-list is empty")
	ErrInvalidWorkspace = errors.New("invalid workspace path")
	ErrRootNotFound     = errors.New("workspace root does not exist")
	ErrRootNotDirectory = errors.New("workspace root is not a directory")
	ErrRootNotReadable  = errors.New("workspace root is not readable")
)

// Domain errors for type validation
var (
	ErrInvalidChunkID  = errors.New("invalid chunk ID")
	ErrMissingFileInfo = errors.New("file info is required")
	ErrEmptyContent    = errors.New("content cannot be empty")
)

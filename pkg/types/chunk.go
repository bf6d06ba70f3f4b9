package types

import (
	"errors"
	"fmt"
)

// ChunkType represents the type of content chunk
type ChunkType string

const (
	ChunkImport   ChunkType = "import"
	ChunkClass    ChunkType = "class"
	ChunkFunction ChunkType = "function"
	ChunkVariable ChunkType = "variable"
	ChunkOther    ChunkType = "other"
	ChunkDefault  ChunkType = "default" // produced by the generic line splitter
	ChunkFile     ChunkType = "file"    // whole-file chunk, used for binary content
)

// Chunk represents one bounded-size, line-addressed unit of file content
type Chunk struct {
	// Identification
	ID       string `json:"id"` // boundary-addressed, see chunker.ChunkID
	FilePath string `json:"file_path"`
	Language string `json:"language"`

	// Location (1-based, inclusive)
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	// Content
	Content string    `json:"content"`
	Type    ChunkType `json:"type"`
	Name    string    `json:"name,omitempty"`
}

// ValidateContent checks if the chunk content and range are valid
func (c *Chunk) ValidateContent() error {
	if c.Content == "" {
		return ErrEmptyContent
	}

	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}

	if c.StartLine > c.EndLine {
		return errors.New("start line must be before or equal to end line")
	}

	return nil
}

// ValidateChunkType checks if the chunk type is valid
func (c *Chunk) ValidateChunkType() error {
	switch c.Type {
	case ChunkImport, ChunkClass, ChunkFunction, ChunkVariable, ChunkOther, ChunkDefault, ChunkFile:
		return nil
	default:
		return fmt.Errorf("invalid chunk type %q", c.Type)
	}
}

// Validate performs comprehensive validation of the chunk
func (c *Chunk) Validate() error {
	if c.ID == "" {
		return ErrInvalidChunkID
	}

	if c.FilePath == "" {
		return ErrMissingFileInfo
	}

	if err := c.ValidateContent(); err != nil {
		return err
	}

	return c.ValidateChunkType()
}

// LineCount returns the number of lines the chunk spans
func (c *Chunk) LineCount() int {
	return c.EndLine - c.StartLine + 1
}

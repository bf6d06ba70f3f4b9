package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkValidate(t *testing.T) {
	valid := func() Chunk {
		return Chunk{
			ID:        "abc",
			FilePath:  "a.go",
			StartLine: 1,
			EndLine:   3,
			Content:   "package a",
			Type:      ChunkDefault,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Chunk)
		wantErr error
	}{
		{"valid", func(c *Chunk) {}, nil},
		{"missing id", func(c *Chunk) { c.ID = "" }, ErrInvalidChunkID},
		{"missing path", func(c *Chunk) { c.FilePath = "" }, ErrMissingFileInfo},
		{"empty content", func(c *Chunk) { c.Content = "" }, ErrEmptyContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("inverted range", func(t *testing.T) {
		c := valid()
		c.StartLine, c.EndLine = 5, 2
		assert.Error(t, c.Validate())
	})

	t.Run("unknown type", func(t *testing.T) {
		c := valid()
		c.Type = "method"
		assert.Error(t, c.Validate())
	})
}

func TestPartition(t *testing.T) {
	cs := Partition([]Change{
		{Path: "a", Kind: ChangeAdded},
		{Path: "b", Kind: ChangeDeleted},
		{Path: "c", Kind: ChangeModified},
		{Path: "d", Kind: ChangeAdded},
	})
	assert.Equal(t, []string{"a", "d"}, cs.Added)
	assert.Equal(t, []string{"c"}, cs.Modified)
	assert.Equal(t, []string{"b"}, cs.Deleted)
	assert.False(t, cs.Empty())
	assert.True(t, ChangeSet{}.Empty())
}

func TestScanErrorUnwrap(t *testing.T) {
	inner := assert.AnError
	err := &ScanError{Path: "x.go", Kind: ScanErrPermission, Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "permission_denied")
}

package walker

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dshills/codemerkle/pkg/types"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newWalker(t *testing.T, cfg Config) *Walker {
	t.Helper()
	w, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return w
}

func paths(r *Result) []string {
	return r.Paths()
}

func TestNewRequiresExtensions(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.ErrorIs(t, err, types.ErrNoExtensions)

	_, err = New(Config{Extensions: []string{" "}}, nil)
	assert.ErrorIs(t, err, types.ErrNoExtensions)
}

func TestNewRejectsBadPattern(t *testing.T) {
	_, err := New(Config{Extensions: []string{".go"}, IgnorePatterns: []string{"[x"}}, nil)
	assert.Error(t, err)
}

func TestScanRootValidation(t *testing.T) {
	w := newWalker(t, Config{Extensions: []string{".go"}})
	ctx := context.Background()

	_, err := w.Scan(ctx, filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, types.ErrRootNotFound)

	dir := t.TempDir()
	writeFile(t, dir, "file.go", "package x\n")
	_, err = w.Scan(ctx, filepath.Join(dir, "file.go"))
	assert.ErrorIs(t, err, types.ErrRootNotDirectory)

	_, err = w.Scan(ctx, "")
	assert.ErrorIs(t, err, types.ErrInvalidWorkspace)
}

func TestScanSingleFile(t *testing.T) {
	root := t.TempDir()
	content := "import os\n\ndef main():\n    pass\n"
	writeFile(t, root, "a.py", content)

	w := newWalker(t, Config{Extensions: []string{".py"}})
	res, err := w.Scan(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, res.Files, 1)
	rec := res.Files[0].Record
	assert.Equal(t, "a.py", rec.Path)
	assert.Equal(t, int64(len(content)), rec.Size)
	assert.Equal(t, "python", rec.Language)
	assert.Equal(t, types.EncodingASCII, rec.Encoding)
	assert.Len(t, rec.ContentHash, 64)
	assert.Equal(t, content, res.Files[0].Content)
	assert.Equal(t, 1, res.Stats.FilesScanned)
}

func TestScanFileRules(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "README.md", "# readme\n")
	writeFile(t, root, "web/app.js", "console.log(1)\n")
	writeFile(t, root, "web/build.min.js", "x\n")
	writeFile(t, root, "node_modules/dep/index.js", "x\n")
	writeFile(t, root, "gen/out.go", "package gen\n")
	writeFile(t, root, "pkg/thing_test.go", "package pkg\n")
	writeFile(t, root, "pkg/thing.go", "package pkg\n")
	writeFile(t, root, "Makefile", "all:\n")
	writeFile(t, root, "big.go", strings.Repeat("a", 200))

	w := newWalker(t, Config{
		Extensions:     []string{".go", "*.js", "Makefile"},
		IgnoredDirs:    []string{"node_modules"},
		IgnorePatterns: []string{"gen/", "*_test.go"},
		MaxFileSize:    100,
	})
	res, err := w.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"Makefile", "main.go", "pkg/thing.go", "web/app.js"}, paths(res))
	assert.Equal(t, 2, res.Stats.DirsSkipped)
	// README.md, build.min.js, thing_test.go, big.go
	assert.Equal(t, 4, res.Stats.FilesSkipped)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, types.ScanErrTooLarge, res.Errors[0].Kind)
	assert.Equal(t, "big.go", res.Errors[0].Path)
}

func TestScanMinifiedOverridesAllowList(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "build.min.js", "var a=1;\n")

	w := newWalker(t, Config{Extensions: []string{".js"}})
	res, err := w.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, res.Files)
}

func TestScanValueFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "LICENSE.txt", "MIT\n")
	writeFile(t, root, "notes.txt", "hello\n")
	writeFile(t, root, "CMakeLists.txt", "project(x)\n")

	w := newWalker(t, Config{Extensions: []string{".txt"}, UseValueFilter: true})
	res, err := w.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"CMakeLists.txt"}, paths(res))
}

func TestScanMaxDepth(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "l1/a.go", "package a\n")
	writeFile(t, root, "l1/l2/b.go", "package b\n")
	writeFile(t, root, "l1/l2/l3/c.go", "package c\n")

	w := newWalker(t, Config{Extensions: []string{".go"}, MaxDepth: 2})
	res, err := w.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"l1/a.go", "l1/l2/b.go"}, paths(res))
	assert.Equal(t, 1, res.Stats.DirsSkipped)
}

func TestScanBinaryModes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "blob.dat", "ab\x00cd")

	w := newWalker(t, Config{Extensions: []string{".dat"}})
	res, err := w.Scan(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.True(t, res.Files[0].Record.IsBinary)
	assert.Equal(t, "[BINARY FILE: 5 bytes, type: binary]", res.Files[0].Content)

	w = newWalker(t, Config{Extensions: []string{".dat"}, BinaryMode: BinaryBase64})
	res, err = w.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, "[BINARY:YWIAY2Q=]", res.Files[0].Content)
}

func TestScanInvalidEncodingExcluded(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ok.txt", "fine\n")
	writeFile(t, root, "bad.txt", "\xFF\xFEx")

	w := newWalker(t, Config{Extensions: []string{".txt"}})
	res, err := w.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"ok.txt"}, paths(res))
	require.Len(t, res.Errors, 1)
	assert.Equal(t, types.ScanErrInvalidEncoding, res.Errors[0].Kind)
	assert.Equal(t, 1, res.Stats.FilesFailed)
}

func TestScanPermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	root := t.TempDir()
	writeFile(t, root, "ok.go", "package ok\n")
	writeFile(t, root, "locked.go", "package locked\n")
	require.NoError(t, os.Chmod(filepath.Join(root, "locked.go"), 0000))

	w := newWalker(t, Config{Extensions: []string{".go"}})
	res, err := w.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"ok.go"}, paths(res))
	require.Len(t, res.Errors, 1)
	assert.Equal(t, types.ScanErrPermission, res.Errors[0].Kind)
}

func TestResultViewsAligned(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n")
	writeFile(t, root, "b/b.go", "package b\n")
	writeFile(t, root, "c.txt", "\xFE\xFFx")

	w := newWalker(t, Config{Extensions: []string{".go", ".txt"}})
	res, err := w.Scan(context.Background(), root)
	require.NoError(t, err)

	p, h, c := res.Paths(), res.Hashes(), res.Contents()
	require.Len(t, h, len(p))
	require.Len(t, c, len(p))
	for i := range p {
		assert.Equal(t, res.Files[i].Record.ContentHash, h[i])
		assert.Contains(t, c[i], "package")
	}
	assert.Len(t, res.ErrorMessages(), 1)
}

func TestScanCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := newWalker(t, Config{Extensions: []string{".go"}})
	_, err := w.Scan(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

package walker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/dshills/codemerkle/internal/classifier"
	"github.com/dshills/codemerkle/internal/filter"
	"github.com/dshills/codemerkle/internal/pathutil"
	"github.com/dshills/codemerkle/pkg/types"
)

// Walker enumerates and classifies the files of a workspace. A Walker holds
// only read-only configuration, so one instance may run several scans; all
// per-scan state lives in the scan itself.
type Walker struct {
	cfg         Config
	allow       allowList
	ignoredDirs map[string]struct{}
	matcher     *filter.Matcher
	value       *filter.ValueFilter
	classifier  *classifier.Classifier
	languages   *classifier.LanguageDetector
	logger      *zap.Logger
}

// New creates a Walker. It fails with types.ErrNoExtensions when the
// allow-list is empty and on malformed ignore patterns.
func New(cfg Config, logger *zap.Logger) (*Walker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	matcher, err := filter.NewMatcher(cfg.IgnorePatterns)
	if err != nil {
		return nil, err
	}

	ignored := make(map[string]struct{}, len(cfg.IgnoredDirs))
	for _, d := range cfg.IgnoredDirs {
		ignored[d] = struct{}{}
	}

	w := &Walker{
		cfg:         cfg,
		allow:       newAllowList(cfg.Extensions),
		ignoredDirs: ignored,
		matcher:     matcher,
		classifier:  classifier.New(),
		languages:   classifier.NewLanguageDetector(cfg.Languages),
		logger:      logger,
	}
	if cfg.UseValueFilter {
		w.value = filter.NewValueFilter()
	}
	return w, nil
}

// workItem is one directory waiting on the traversal stack
type workItem struct {
	dir          string   // path used for reading (real path)
	rel          string   // workspace-relative path as reached
	depth        int      // directory depth below the root
	symlinkDepth int      // links followed to reach this directory
	ancestors    []string // real paths of enclosing directories, root first
}

// scan holds the state of a single traversal
type scan struct {
	w      *Walker
	root   string
	result *Result
}

// Scan walks root and returns every accepted file with its hash and
// content. Only root validation failures (and context cancellation) are
// returned as errors; per-file failures are collected in Result.Errors.
func (w *Walker) Scan(ctx context.Context, root string) (*Result, error) {
	realRoot, err := ResolveRoot(root)
	if err != nil {
		return nil, err
	}

	s := &scan{
		w:      w,
		root:   realRoot,
		result: &Result{Root: realRoot},
	}

	stack := []workItem{{dir: realRoot, rel: pathutil.Root}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children := s.visitDir(item)
		// push in reverse so entries are processed in name order
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	w.logger.Debug("scan complete",
		zap.String("root", realRoot),
		zap.Int("files", s.result.Stats.FilesScanned),
		zap.Int("skipped", s.result.Stats.FilesSkipped),
		zap.Int("failed", s.result.Stats.FilesFailed),
		zap.Int("dirs_skipped", s.result.Stats.DirsSkipped))

	return s.result, nil
}

// ResolveRoot validates root and resolves it to the real absolute directory
// path used as the workspace key
func ResolveRoot(root string) (string, error) {
	if root == "" {
		return "", types.ErrInvalidWorkspace
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrInvalidWorkspace, err)
	}

	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", types.ErrRootNotFound, abs)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrRootNotReadable, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", types.ErrRootNotDirectory, abs)
	}

	f, err := os.Open(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrRootNotReadable, err)
	}
	_, err = f.ReadDir(1)
	_ = f.Close()
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: %v", types.ErrRootNotReadable, err)
	}

	realRoot, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrRootNotReadable, err)
	}
	return realRoot, nil
}

// visitDir processes one directory's entries and returns subdirectories
// to descend into
func (s *scan) visitDir(item workItem) []workItem {
	entries, err := os.ReadDir(item.dir)
	if err != nil {
		s.w.logger.Warn("cannot read directory", zap.String("path", item.rel), zap.Error(err))
		s.result.Stats.DirsSkipped++
		return nil
	}
	s.result.Stats.DirsScanned++

	var next []workItem
	for _, entry := range entries {
		name := entry.Name()
		rel := pathutil.Join(item.rel, name)
		full := filepath.Join(item.dir, name)

		switch mode := entry.Type(); {
		case mode&fs.ModeSymlink != 0:
			if child, ok := s.followSymlink(item, full, rel, name); ok {
				next = append(next, child)
			}
		case mode.IsDir():
			if child, ok := s.enterDir(item, full, rel, name, item.symlinkDepth); ok {
				next = append(next, child)
			}
		case mode.IsRegular():
			s.visitFile(full, rel, name)
		default:
			s.w.logger.Debug("skipping special file", zap.String("path", rel), zap.String("mode", mode.String()))
			s.result.Stats.FilesSkipped++
		}
	}
	return next
}

// enterDir applies directory rules and builds the work item for dir
func (s *scan) enterDir(parent workItem, dir, rel, name string, symlinkDepth int) (workItem, bool) {
	if _, ok := s.w.ignoredDirs[name]; ok {
		s.result.Stats.DirsSkipped++
		return workItem{}, false
	}
	if s.w.matcher.Match(rel, true) {
		s.result.Stats.DirsSkipped++
		return workItem{}, false
	}

	depth := parent.depth + 1
	if depth > s.w.cfg.MaxDepth {
		s.w.logger.Warn("max depth exceeded, skipping subtree",
			zap.String("path", rel), zap.Int("max_depth", s.w.cfg.MaxDepth))
		s.result.Stats.DirsSkipped++
		return workItem{}, false
	}

	ancestors := make([]string, len(parent.ancestors), len(parent.ancestors)+1)
	copy(ancestors, parent.ancestors)
	ancestors = append(ancestors, parent.dir)

	return workItem{
		dir:          dir,
		rel:          rel,
		depth:        depth,
		symlinkDepth: symlinkDepth,
		ancestors:    ancestors,
	}, true
}

// visitFile applies file rules, then reads, classifies and records the file
func (s *scan) visitFile(path, rel, name string) {
	if !s.accepts(rel, name) {
		s.result.Stats.FilesSkipped++
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		s.fail(rel, err)
		return
	}
	if info.IsDir() {
		s.fail(rel, syscall.EISDIR)
		return
	}
	if info.Size() > s.w.cfg.MaxFileSize {
		s.w.logger.Debug("file exceeds size limit",
			zap.String("path", rel), zap.Int64("size", info.Size()), zap.Int64("limit", s.w.cfg.MaxFileSize))
		s.result.Stats.FilesSkipped++
		s.result.Errors = append(s.result.Errors, &types.ScanError{
			Path: rel,
			Kind: types.ScanErrTooLarge,
			Err:  fmt.Errorf("%d bytes exceeds limit of %d", info.Size(), s.w.cfg.MaxFileSize),
		})
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.fail(rel, err)
		return
	}

	class, err := s.w.classifier.Classify(data, rel)
	if err != nil {
		s.fail(rel, err)
		return
	}

	content := class.Content
	if class.IsBinary {
		if s.w.cfg.BinaryMode == BinaryBase64 {
			content = classifier.Base64Marker(data)
		} else {
			content = classifier.Placeholder(class.Size, class.Category)
		}
	}

	s.result.Files = append(s.result.Files, ScannedFile{
		Record: types.FileRecord{
			Path:         rel,
			ContentHash:  class.Hash,
			Size:         class.Size,
			LastModified: info.ModTime(),
			IsBinary:     class.IsBinary,
			Encoding:     class.Encoding,
			Language:     s.w.languages.Detect(rel),
		},
		Content: content,
	})
	s.result.Stats.FilesScanned++
	s.result.Stats.BytesRead += class.Size
}

// accepts runs the name-based file rules in order: allow-list, junk names,
// ignore globs, value heuristic
func (s *scan) accepts(rel, name string) bool {
	if !s.w.allow.allows(name, pathutil.Ext(name)) {
		return false
	}
	if filter.IsJunk(name) {
		return false
	}
	if s.w.matcher.Match(rel, false) {
		return false
	}
	if s.w.value != nil && !s.w.value.IsValuable(rel) {
		return false
	}
	return true
}

// fail records a per-file error
func (s *scan) fail(rel string, err error) {
	kind := scanErrorKind(err)
	s.w.logger.Warn("failed to scan file",
		zap.String("path", rel), zap.String("kind", string(kind)), zap.Error(err))
	s.result.Stats.FilesFailed++
	s.result.Errors = append(s.result.Errors, &types.ScanError{Path: rel, Kind: kind, Err: err})
}

func scanErrorKind(err error) types.ScanErrorKind {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return types.ScanErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return types.ScanErrPermission
	case errors.Is(err, syscall.EISDIR):
		return types.ScanErrIsDirectory
	case errors.Is(err, syscall.EMFILE), errors.Is(err, syscall.ENFILE):
		return types.ScanErrTooManyOpenFiles
	case errors.Is(err, classifier.ErrInvalidEncoding):
		return types.ScanErrInvalidEncoding
	}
	return types.ScanErrOther
}

package walker

import (
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dshills/codemerkle/internal/pathutil"
)

var (
	errSymlinkSelf     = errors.New("symlink points to itself")
	errSymlinkCycle    = errors.New("symlink cycle")
	errSymlinkDepth    = errors.New("symlink chain too deep")
	errSymlinkOutside  = errors.New("symlink resolves outside workspace")
	errSymlinkAncestor = errors.New("symlink resolves to an ancestor directory")
)

// followSymlink resolves the link at link and processes its target as a
// file or directory. Directory targets are returned for the caller to push.
func (s *scan) followSymlink(parent workItem, link, rel, name string) (workItem, bool) {
	if !s.w.cfg.FollowSymlinks {
		s.result.Stats.SymlinksSkipped++
		return workItem{}, false
	}

	target, hops, err := s.resolve(link, parent.symlinkDepth)
	if err == nil {
		err = s.checkTarget(parent, target)
	}
	if err != nil {
		s.w.logger.Warn("skipping symlink", zap.String("path", rel), zap.Error(err))
		s.result.Stats.SymlinksSkipped++
		return workItem{}, false
	}

	info, err := os.Stat(target)
	if err != nil {
		s.fail(rel, err)
		return workItem{}, false
	}

	switch {
	case info.IsDir():
		return s.enterDir(parent, target, rel, name, parent.symlinkDepth+hops)
	case info.Mode().IsRegular():
		s.visitFile(target, rel, name)
	default:
		s.result.Stats.FilesSkipped++
	}
	return workItem{}, false
}

// resolve follows a chain of links starting at link and returns the real
// path of the final target with the number of links followed. The visited
// set lives only for this resolution.
func (s *scan) resolve(link string, depth int) (string, int, error) {
	visited := map[string]struct{}{}
	cur := link
	hops := 0

	for {
		visited[cur] = struct{}{}

		dest, err := os.Readlink(cur)
		if err != nil {
			return "", hops, err
		}
		if !filepath.IsAbs(dest) {
			dest = filepath.Join(filepath.Dir(cur), dest)
		}
		dest = filepath.Clean(dest)
		hops++

		if depth+hops > s.w.cfg.MaxSymlinkDepth {
			return "", hops, errSymlinkDepth
		}
		if dest == link {
			return "", hops, errSymlinkSelf
		}
		if _, seen := visited[dest]; seen {
			return "", hops, errSymlinkCycle
		}

		info, err := os.Lstat(dest)
		if err != nil {
			return "", hops, err
		}
		if info.Mode()&os.ModeSymlink == 0 {
			// intermediate path components may themselves be links
			resolved, err := filepath.EvalSymlinks(dest)
			if err != nil {
				return "", hops, err
			}
			return resolved, hops, nil
		}
		cur = dest
	}
}

// checkTarget rejects targets outside the workspace and targets that
// would re-enter a directory on the current path
func (s *scan) checkTarget(parent workItem, target string) error {
	if !pathutil.IsWithin(filepath.ToSlash(s.root), filepath.ToSlash(target)) {
		return errSymlinkOutside
	}
	if target == parent.dir {
		return errSymlinkAncestor
	}
	for _, a := range parent.ancestors {
		if target == a {
			return errSymlinkAncestor
		}
	}
	return nil
}

// Package sandbox implements bounded filesystem path resolution for
// file-mode scrubbing: every resolved path is guaranteed to land inside
// a fixed root directory, with no filesystem access attempted for a
// path that would escape it.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sandbox resolves (subdir, name) pairs to absolute paths rooted under
// a fixed, canonicalized root directory. It is immutable after New.
type Sandbox struct {
	root string
}

// New canonicalizes root once and creates it (and its in/out
// subdirectories) if missing.
func New(root string) (*Sandbox, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("sandbox: resolve root: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("sandbox: canonicalize root: %w", err)
		}
		if mkErr := os.MkdirAll(abs, 0o755); mkErr != nil {
			return nil, fmt.Errorf("sandbox: create root: %w", mkErr)
		}
		canonical, err = filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, fmt.Errorf("sandbox: canonicalize root after create: %w", err)
		}
	}

	sb := &Sandbox{root: canonical}
	for _, sub := range []string{"in", "out"} {
		if err := os.MkdirAll(filepath.Join(canonical, sub), 0o755); err != nil {
			return nil, fmt.Errorf("sandbox: create %s: %w", sub, err)
		}
	}
	return sb, nil
}

// Root returns the sandbox's canonicalized root directory.
func (s *Sandbox) Root() string { return s.root }

// Resolve computes the absolute path for (subdir, name) under the
// sandbox root and rejects any result that is not a descendant of
// root/subdir (or root, if subdir is empty). No filesystem access is
// attempted for a rejected path; rejection is a hard error.
func (s *Sandbox) Resolve(subdir, name string) (string, error) {
	boundary := s.root
	if subdir != "" {
		boundary = filepath.Join(s.root, subdir)
	}

	target := filepath.Join(boundary, name)
	target = filepath.Clean(target)

	if !isDescendant(boundary, target) {
		return "", fmt.Errorf("sandbox: path %q escapes boundary %q", name, boundary)
	}
	return target, nil
}

// isDescendant reports whether target is boundary itself or lies
// strictly inside it, using a pure string comparison (no filesystem
// access) so that rejected paths are never touched on disk.
func isDescendant(boundary, target string) bool {
	boundary = filepath.Clean(boundary)
	target = filepath.Clean(target)

	if target == boundary {
		return true
	}
	return strings.HasPrefix(target, boundary+string(filepath.Separator))
}

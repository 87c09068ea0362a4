// Package digest computes deterministic content fingerprints of source
// trees. The digest is a pure function of the relative file paths and
// byte contents, walked in sorted-path order, so it is reproducible
// across platforms and filesystem iteration orders. Symlinks are refused
// outright — there is no partial-trust fallback.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rvachev/trustgate/internal/errclass"
)

// ignoreNames are pruned before descending: version control, tooling
// caches, and environment directories never contribute to the digest.
var ignoreNames = map[string]bool{
	".git":            true,
	".hg":             true,
	".svn":            true,
	".idea":           true,
	".vscode":         true,
	".DS_Store":       true,
	".env":            true,
	".venv":           true,
	"venv":            true,
	".tox":            true,
	"__pycache__":     true,
	".mypy_cache":     true,
	".pytest_cache":   true,
	".ruff_cache":     true,
	"node_modules":    true,
	".terraform":      true,
	".trustgate-tmp":  true,
}

// Tree computes the SHA-256 digest of the tree rooted at root.
// Per file, in sorted POSIX relative-path order, the path bytes followed
// by the content bytes are folded into one running hash. A rename
// therefore changes the digest even when no byte of content changes.
// Any symlink anywhere in the tree returns errclass.ErrSecurity.
func Tree(root string) (string, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return "", fmt.Errorf("digest: stat root: %w", err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return "", errclass.ErrSecurity.WithMessagef("symlink at tree root: %s", root)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("digest: root is not a directory: %s", root)
	}

	var rels []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if ignoreNames[d.Name()] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			rel, _ := filepath.Rel(root, path)
			return errclass.ErrSecurity.WithMessagef("symlink in source tree: %s", filepath.ToSlash(rel))
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relative path: %w", err)
		}
		rels = append(rels, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return "", err
	}

	// Byte order, not locale order — must match across platforms.
	sort.Strings(rels)

	h := sha256.New()
	for _, rel := range rels {
		h.Write([]byte(rel))
		f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return "", fmt.Errorf("digest: open %s: %w", rel, err)
		}
		if _, err := io.Copy(h, f); err != nil {
			f.Close()
			return "", fmt.Errorf("digest: read %s: %w", rel, err)
		}
		f.Close()
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify recomputes the digest of root and compares it to expected.
// An empty expected digest is a failure in its own right: an absent
// claim is not a passing one.
func Verify(expected, root string) error {
	if expected == "" {
		return errclass.ErrIntegrity.WithMessage("no expected digest declared for source tree")
	}
	actual, err := Tree(root)
	if err != nil {
		return err
	}
	if actual != expected {
		return errclass.ErrIntegrity.WithMessagef("source tree digest mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}

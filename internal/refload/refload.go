// Package refload resolves multi-document YAML references inside a
// sandbox. A map node whose "$ref" key holds a string is a reference to
// another document, resolved relative to the referencing document's
// directory. No resolved path may leave the configured jail root, target
// a symlink or directory, or close a reference cycle. Diamond
// dependencies (the same document reached via two different branches)
// are legal and resolve normally.
package refload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rvachev/trustgate/internal/errclass"
)

// Config holds loader parameters.
type Config struct {
	// Jail is the root directory no resolved reference may escape.
	Jail string

	// NoResolve returns reference nodes unexpanded, for callers that
	// want lazy resolution.
	NoResolve bool
}

// Loader loads YAML documents under a jail root.
type Loader struct {
	jail      string
	noResolve bool
}

// New creates a Loader. The jail root must exist; it is canonicalized
// once so containment checks compare like with like.
func New(cfg Config) (*Loader, error) {
	if cfg.Jail == "" {
		return nil, fmt.Errorf("refload: jail root is required")
	}
	abs, err := filepath.Abs(cfg.Jail)
	if err != nil {
		return nil, fmt.Errorf("refload: resolve jail root: %w", err)
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("refload: canonicalize jail root: %w", err)
	}
	return &Loader{jail: canon, noResolve: cfg.NoResolve}, nil
}

// Load parses the document at path and recursively resolves its
// references. Each resolution branch threads its own visited set, so a
// true cycle (A → B → A) is rejected while a diamond (A → B → D,
// A → C → D) is not. Every run allocates fresh state; concurrent loads
// are independent.
func (l *Loader) Load(path string) (any, error) {
	canon, err := l.admit(path, "")
	if err != nil {
		return nil, err
	}
	visited := map[string]bool{canon: true}
	return l.loadFile(canon, visited)
}

// loadFile reads, parses, and expands one document.
func (l *Loader) loadFile(canon string, visited map[string]bool) (any, error) {
	data, err := os.ReadFile(canon)
	if err != nil {
		return nil, fmt.Errorf("refload: read %s: %w", canon, err)
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("refload: parse %s: %w", canon, err)
	}
	if l.noResolve {
		return doc, nil
	}
	return l.expand(doc, filepath.Dir(canon), visited)
}

// expand walks a parsed node, substituting resolved content in place of
// reference nodes. All non-reference shapes pass through unchanged.
func (l *Loader) expand(node any, baseDir string, visited map[string]bool) (any, error) {
	switch n := node.(type) {
	case map[string]any:
		if target, ok := refTarget(n); ok {
			canon, err := l.admit(target, baseDir)
			if err != nil {
				return nil, err
			}
			if visited[canon] {
				return nil, errclass.ErrSecurity.WithMessagef("circular reference: %s revisits %s", target, canon)
			}
			// Fresh set per branch: siblings must not see this visit.
			branch := make(map[string]bool, len(visited)+1)
			for k := range visited {
				branch[k] = true
			}
			branch[canon] = true
			return l.loadFile(canon, branch)
		}
		out := make(map[string]any, len(n))
		for k, v := range n {
			resolved, err := l.expand(v, baseDir, visited)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil

	case []any:
		out := make([]any, len(n))
		for i, v := range n {
			resolved, err := l.expand(v, baseDir, visited)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil

	default:
		return node, nil
	}
}

// refTarget reports whether a map node is a reference node.
func refTarget(n map[string]any) (string, bool) {
	v, ok := n["$ref"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// admit canonicalizes a reference target and enforces the sandbox:
// the path must stay inside the jail, exist, and be a regular file.
// baseDir is the referencing document's directory; empty means the
// target is an entry path resolved against the working directory.
func (l *Loader) admit(target, baseDir string) (string, error) {
	path := target
	if !filepath.IsAbs(path) {
		if baseDir != "" {
			path = filepath.Join(baseDir, path)
		} else {
			abs, err := filepath.Abs(path)
			if err != nil {
				return "", fmt.Errorf("refload: resolve %s: %w", target, err)
			}
			path = abs
		}
	}
	path = filepath.Clean(path)

	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errclass.ErrSecurity.WithMessagef("reference target does not exist: %s", target)
		}
		return "", fmt.Errorf("refload: stat %s: %w", target, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return "", errclass.ErrSecurity.WithMessagef("reference target is a symlink: %s", target)
	}
	if info.IsDir() {
		return "", errclass.ErrSecurity.WithMessagef("reference target is a directory: %s", target)
	}

	// Canonicalize through the parent so a symlinked ancestor cannot
	// smuggle the target outside the jail.
	parent, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil {
		return "", fmt.Errorf("refload: canonicalize %s: %w", target, err)
	}
	canon := filepath.Join(parent, filepath.Base(path))

	if !within(l.jail, canon) {
		return "", errclass.ErrSecurity.WithMessagef("reference escapes jail root: %s resolves to %s", target, canon)
	}
	return canon, nil
}

// within reports whether path is jail or contained beneath it.
func within(jail, path string) bool {
	rel, err := filepath.Rel(jail, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

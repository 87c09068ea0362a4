package digest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rvachev/trustgate/internal/errclass"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func newTestTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "agent.yaml", "name: demo\n")
	writeFile(t, root, "tools/search.yaml", "endpoint: https://good.com/api\n")
	writeFile(t, root, "workflow/steps.yaml", "steps: []\n")
	return root
}

func TestTreeIsIdempotent(t *testing.T) {
	root := newTestTree(t)

	first, err := Tree(root)
	if err != nil {
		t.Fatalf("first digest: %v", err)
	}
	second, err := Tree(root)
	if err != nil {
		t.Fatalf("second digest: %v", err)
	}
	if first != second {
		t.Fatalf("digest not stable: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(first))
	}
}

func TestRenameChangesDigest(t *testing.T) {
	root := newTestTree(t)
	before, err := Tree(root)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}

	// Same bytes, new relative path.
	old := filepath.Join(root, "agent.yaml")
	if err := os.Rename(old, filepath.Join(root, "agent2.yaml")); err != nil {
		t.Fatalf("rename: %v", err)
	}

	after, err := Tree(root)
	if err != nil {
		t.Fatalf("digest after rename: %v", err)
	}
	if before == after {
		t.Fatal("rename did not change digest")
	}
}

func TestIgnoredEntriesDoNotChangeDigest(t *testing.T) {
	root := newTestTree(t)
	before, err := Tree(root)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}

	writeFile(t, root, ".git/HEAD", "ref: refs/heads/main\n")
	writeFile(t, root, "__pycache__/mod.pyc", "bytecode")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = {}\n")
	writeFile(t, root, ".env", "SECRET=1\n")

	after, err := Tree(root)
	if err != nil {
		t.Fatalf("digest with ignored entries: %v", err)
	}
	if before != after {
		t.Fatal("ignored entries changed the digest")
	}
}

func TestContentChangeChangesDigest(t *testing.T) {
	root := newTestTree(t)
	before, _ := Tree(root)

	writeFile(t, root, "agent.yaml", "name: demo-v2\n")

	after, _ := Tree(root)
	if before == after {
		t.Fatal("content change did not change digest")
	}
}

func TestSymlinkFileIsSecurityViolation(t *testing.T) {
	root := newTestTree(t)
	if err := os.Symlink(filepath.Join(root, "agent.yaml"), filepath.Join(root, "link.yaml")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := Tree(root)
	if !errors.Is(err, errclass.ErrSecurity) {
		t.Fatalf("expected E_SECURITY, got %v", err)
	}
}

func TestSymlinkDirIsSecurityViolation(t *testing.T) {
	root := newTestTree(t)
	other := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "nested"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Symlink(other, filepath.Join(root, "nested", "dir")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := Tree(root)
	if !errors.Is(err, errclass.ErrSecurity) {
		t.Fatalf("expected E_SECURITY, got %v", err)
	}
}

func TestSymlinkRootIsSecurityViolation(t *testing.T) {
	root := newTestTree(t)
	link := filepath.Join(t.TempDir(), "rootlink")
	if err := os.Symlink(root, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := Tree(link)
	if !errors.Is(err, errclass.ErrSecurity) {
		t.Fatalf("expected E_SECURITY, got %v", err)
	}
}

func TestVerify(t *testing.T) {
	root := newTestTree(t)
	d, err := Tree(root)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}

	if err := Verify(d, root); err != nil {
		t.Fatalf("verify with correct digest: %v", err)
	}

	err = Verify("0000000000000000000000000000000000000000000000000000000000000000", root)
	if !errors.Is(err, errclass.ErrIntegrity) {
		t.Fatalf("expected E_INTEGRITY on mismatch, got %v", err)
	}

	err = Verify("", root)
	if !errors.Is(err, errclass.ErrIntegrity) {
		t.Fatalf("expected E_INTEGRITY on missing expected digest, got %v", err)
	}
}

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvachev/trustgate/internal/digest"
	"github.com/rvachev/trustgate/internal/errclass"
	"github.com/rvachev/trustgate/internal/governance"
)

func write(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// sourceTree creates a small source tree under dir/src and returns its
// digest.
func sourceTree(t *testing.T, dir string) string {
	t.Helper()
	write(t, dir, "src/main.py", "def main():\n    pass\n")
	write(t, dir, "src/util/helpers.py", "HELPERS = True\n")
	d, err := digest.Tree(filepath.Join(dir, "src"))
	require.NoError(t, err)
	return d
}

func testPolicy() *governance.Policy {
	return &governance.Policy{
		AllowedDomains:      []string{"good.com"},
		MaxRiskLevel:        governance.RiskStandard,
		AllowCustomLogic:    false,
		StrictURLValidation: true,
	}
}

func TestCleanManifestPassesEndToEnd(t *testing.T) {
	dir := t.TempDir()
	d := sourceTree(t, dir)
	path := write(t, dir, "agent.yaml", fmt.Sprintf(`
name: demo-agent
source:
  root: ./src
  digest: %s
tools:
  - id: search
    endpoint: https://good.com/api
    risk_level: SAFE
workflow:
  steps:
    - id: s1
      type: tool_call
      tool: search
`, d))

	res, err := Run(Config{ManifestPath: path, Policy: testPolicy()})
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.True(t, res.Governance.Passed)
	assert.True(t, res.Integrity.Checked)
	assert.True(t, res.Integrity.Passed)
	assert.Equal(t, d, res.Integrity.Actual)
}

func TestThreeDistinctViolationsAccumulate(t *testing.T) {
	dir := t.TempDir()
	d := sourceTree(t, dir)
	path := write(t, dir, "agent.yaml", fmt.Sprintf(`
name: demo-agent
source:
  root: ./src
  digest: %s
tools:
  - id: safe-search
    endpoint: https://good.com/api
    risk_level: SAFE
  - id: hot-exec
    endpoint: https://evil.com/run
    risk_level: CRITICAL
workflow:
  steps:
    - id: s1
      type: inline_code
      code: "exec(payload)"
`, d))

	res, err := Run(Config{ManifestPath: path, Policy: testPolicy()})
	require.NoError(t, err, "governance violations are report data, not errors")

	assert.False(t, res.Passed)
	require.Len(t, res.Governance.Violations, 3)

	got := map[string]bool{}
	for _, v := range res.Governance.Violations {
		got[v.Rule] = true
	}
	assert.True(t, got[governance.RuleRiskLevel])
	assert.True(t, got[governance.RuleDomain])
	assert.True(t, got[governance.RuleCustomLogic])

	// The integrity stage is independent of governance and still passes.
	assert.True(t, res.Integrity.Checked)
	assert.True(t, res.Integrity.Passed)
}

func TestSchemaErrorIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "agent.yaml", "tools: not-a-list\n")

	res, err := Run(Config{ManifestPath: path, Policy: testPolicy()})
	require.ErrorIs(t, err, errclass.ErrSchema)
	assert.Nil(t, res.Governance, "governance must not run on malformed input")
}

func TestJailEscapeIsFatal(t *testing.T) {
	parent := t.TempDir()
	write(t, parent, "outside.yaml", "secret: true\n")
	jail := filepath.Join(parent, "jail")
	require.NoError(t, os.MkdirAll(jail, 0755))
	path := write(t, jail, "agent.yaml", "name: demo\nleak:\n  $ref: ../outside.yaml\n")

	_, err := Run(Config{ManifestPath: path, Policy: testPolicy()})
	require.ErrorIs(t, err, errclass.ErrSecurity)
}

func TestDigestMismatchIsFatal(t *testing.T) {
	dir := t.TempDir()
	sourceTree(t, dir)
	path := write(t, dir, "agent.yaml", `
name: demo-agent
source:
  root: ./src
  digest: `+`"0000000000000000000000000000000000000000000000000000000000000000"`+`
tools:
  - id: search
    endpoint: https://good.com/api
    risk_level: SAFE
`)

	res, err := Run(Config{ManifestPath: path, Policy: testPolicy()})
	require.ErrorIs(t, err, errclass.ErrIntegrity)
	assert.False(t, res.Passed)
	assert.True(t, res.Integrity.Checked)
	assert.False(t, res.Integrity.Passed)
	// Governance already ran; its report is preserved.
	require.NotNil(t, res.Governance)
	assert.True(t, res.Governance.Passed)
}

func TestDeclaredRootWithoutDigestIsFatal(t *testing.T) {
	dir := t.TempDir()
	sourceTree(t, dir)
	path := write(t, dir, "agent.yaml", "name: demo\nsource:\n  root: ./src\n")

	_, err := Run(Config{ManifestPath: path, Policy: testPolicy()})
	require.ErrorIs(t, err, errclass.ErrIntegrity)
}

func TestNoDeclaredSourceSkipsIntegrity(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "agent.yaml", "name: demo\n")

	res, err := Run(Config{ManifestPath: path, Policy: testPolicy()})
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.False(t, res.Integrity.Checked)
}

func TestManifestAssembledFromReferences(t *testing.T) {
	dir := t.TempDir()
	d := sourceTree(t, dir)
	write(t, dir, "tools/search.yaml", "id: search\nendpoint: https://good.com/api\nrisk_level: SAFE\n")
	path := write(t, dir, "agent.yaml", fmt.Sprintf(`
name: demo-agent
source:
  root: ./src
  digest: %s
tools:
  - $ref: tools/search.yaml
`, d))

	res, err := Run(Config{ManifestPath: path, Policy: testPolicy()})
	require.NoError(t, err)
	assert.True(t, res.Passed)
	require.Len(t, res.Manifest.Tools, 1)
	assert.Equal(t, "search", res.Manifest.Tools[0].ID)
}

func TestSymlinkInSourceTreeIsFatal(t *testing.T) {
	dir := t.TempDir()
	d := sourceTree(t, dir)
	if err := os.Symlink(filepath.Join(dir, "src", "main.py"), filepath.Join(dir, "src", "alias.py")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	path := write(t, dir, "agent.yaml", fmt.Sprintf("name: demo\nsource:\n  root: ./src\n  digest: %s\n", d))

	res, err := Run(Config{ManifestPath: path, Policy: testPolicy()})
	require.ErrorIs(t, err, errclass.ErrSecurity)
	assert.False(t, res.Integrity.Passed)
}

package governance

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvachev/trustgate/internal/errclass"
	"github.com/rvachev/trustgate/internal/manifest"
)

// fakeEvaluator writes an executable shell script that prints the given
// stdout and returns its path.
func fakeEvaluator(t *testing.T, stdout string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script evaluator fixture is unix-only")
	}
	path := filepath.Join(t.TempDir(), "fake-evaluator")
	script := "#!/bin/sh\ncat >/dev/null\nprintf '%s' '" + stdout + "'\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func externalPolicy(t *testing.T, evaluator string) *Policy {
	t.Helper()
	ruleFile := filepath.Join(t.TempDir(), "rules.rego")
	require.NoError(t, os.WriteFile(ruleFile, []byte("package deploy\n"), 0644))
	pol := DefaultPolicy()
	pol.External = External{Evaluator: evaluator, RuleFile: ruleFile}
	return pol
}

func TestExternalEvaluatorViolations(t *testing.T) {
	out := `{"result":[{"expressions":[{"value":["dependency lodash@1.0 is not in the approved catalog","tool fetch lacks an owner"]}]}]}`
	pol := externalPolicy(t, fakeEvaluator(t, out))
	m := &manifest.Model{Name: "demo-agent"}

	report, err := Check(m, pol)
	require.NoError(t, err)
	assert.Equal(t, 2, countRule(report, RuleExternal))
	assert.False(t, report.Passed)
	assert.Equal(t, "demo-agent", report.Violations[0].ComponentID)
}

func TestExternalEvaluatorCleanResult(t *testing.T) {
	pol := externalPolicy(t, fakeEvaluator(t, `{"result":[{"expressions":[{"value":[]}]}]}`))

	report, err := Check(&manifest.Model{Name: "demo-agent"}, pol)
	require.NoError(t, err)
	assert.True(t, report.Passed)
}

func TestMissingEvaluatorIsRuntimeError(t *testing.T) {
	pol := externalPolicy(t, "trustgate-no-such-evaluator-binary")

	_, err := Check(&manifest.Model{Name: "demo-agent"}, pol)
	require.ErrorIs(t, err, errclass.ErrEvaluator)
}

func TestMalformedEvaluatorOutputIsRuntimeError(t *testing.T) {
	pol := externalPolicy(t, fakeEvaluator(t, "this is not json"))

	_, err := Check(&manifest.Model{Name: "demo-agent"}, pol)
	require.ErrorIs(t, err, errclass.ErrEvaluator)
}

func TestAbsentResultIsRuntimeError(t *testing.T) {
	pol := externalPolicy(t, fakeEvaluator(t, `{}`))

	_, err := Check(&manifest.Model{Name: "demo-agent"}, pol)
	require.ErrorIs(t, err, errclass.ErrEvaluator)
}

func TestEvaluatorNotConfiguredIsSkipped(t *testing.T) {
	report, err := Check(&manifest.Model{Name: "demo-agent"}, DefaultPolicy())
	require.NoError(t, err)
	assert.True(t, report.Passed)
}

func TestLoadPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"allowed_domains:\n  - good.com\nmax_risk_level: CRITICAL\nallow_custom_logic: true\nstrict_url_validation: false\n"), 0644))

	pol, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"good.com"}, pol.AllowedDomains)
	assert.Equal(t, "CRITICAL", pol.MaxRiskLevel)
	assert.True(t, pol.AllowCustomLogic)
	assert.False(t, pol.StrictURLValidation)
}

func TestLoadPolicyMissingFileReturnsDefaults(t *testing.T) {
	pol, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), pol)
}

func TestLoadPolicyInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("allowed_domains: ["), 0644))

	_, err := LoadPolicy(path)
	require.Error(t, err)
}

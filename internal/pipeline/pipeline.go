// Package pipeline sequences the trust checks that decide whether an
// agent manifest may be deployed: sandboxed reference resolution and
// schema validation first, then governance evaluation and source-tree
// integrity verification. A fatal failure stops the run; governance
// violations do not, they accumulate into the report.
package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/rvachev/trustgate/internal/digest"
	"github.com/rvachev/trustgate/internal/errclass"
	"github.com/rvachev/trustgate/internal/governance"
	"github.com/rvachev/trustgate/internal/manifest"
	"github.com/rvachev/trustgate/internal/refload"
)

// Config holds one validation run's parameters.
type Config struct {
	// ManifestPath is the root manifest document.
	ManifestPath string

	// Jail is the sandbox root for reference resolution. Empty defaults
	// to the manifest's directory.
	Jail string

	// PolicyPath is the governance policy file. Empty means defaults.
	PolicyPath string

	// Policy overrides PolicyPath when non-nil.
	Policy *governance.Policy
}

// IntegrityResult is the outcome of the source-tree verification stage.
type IntegrityResult struct {
	Checked  bool   `json:"checked"`
	Passed   bool   `json:"passed"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Result is the structured outcome of one validation run.
type Result struct {
	ManifestPath string             `json:"manifest"`
	Manifest     *manifest.Model    `json:"-"`
	Governance   *governance.Report `json:"governance,omitempty"`
	Integrity    IntegrityResult    `json:"integrity"`
	Passed       bool               `json:"passed"`
}

// Run executes the full pipeline. Each run allocates fresh state, so
// concurrent runs over different manifests are independent.
//
// The returned error, when non-nil, is the failing stage's own kind
// (E_SECURITY, E_SCHEMA, E_EVALUATOR, E_INTEGRITY); no stage converts
// another's. The Result carries whatever stages completed, so callers
// always have a structured report to show.
func Run(cfg Config) (*Result, error) {
	res := &Result{ManifestPath: cfg.ManifestPath}

	jail := cfg.Jail
	if jail == "" {
		jail = filepath.Dir(cfg.ManifestPath)
	}

	// Stage 1: sandboxed resolution of the raw document.
	loader, err := refload.New(refload.Config{Jail: jail})
	if err != nil {
		return res, err
	}
	doc, err := loader.Load(cfg.ManifestPath)
	if err != nil {
		return res, err
	}

	// Stage 2: schema validation and normalization. Malformed input
	// cannot be safely interpreted by anything downstream.
	m, err := manifest.Normalize(doc)
	if err != nil {
		return res, err
	}
	res.Manifest = m

	// Stage 3: governance. Violations accumulate; only evaluator
	// malfunction is fatal here.
	pol := cfg.Policy
	if pol == nil {
		pol, err = governance.LoadPolicy(cfg.PolicyPath)
		if err != nil {
			return res, err
		}
	}
	report, err := governance.Check(m, pol)
	if err != nil {
		return res, err
	}
	res.Governance = report

	// Stage 4: source-tree integrity, independent of stage 3. A
	// manifest that declares no source tree has nothing to verify.
	if m.Integrity.SourceRoot != "" {
		if err := verifyIntegrity(cfg.ManifestPath, m, res); err != nil {
			res.Passed = false
			return res, err
		}
	}

	res.Passed = report.Passed && (!res.Integrity.Checked || res.Integrity.Passed)
	return res, nil
}

// verifyIntegrity recomputes the declared source tree's digest and
// compares it to the manifest's expected value.
func verifyIntegrity(manifestPath string, m *manifest.Model, res *Result) error {
	root := m.Integrity.SourceRoot
	if !filepath.IsAbs(root) {
		root = filepath.Join(filepath.Dir(manifestPath), root)
	}

	res.Integrity.Checked = true
	res.Integrity.Expected = m.Integrity.SourceDigest

	actual, err := digest.Tree(root)
	if err != nil {
		res.Integrity.Error = err.Error()
		return err
	}
	res.Integrity.Actual = actual

	if m.Integrity.SourceDigest == "" {
		err := errclass.ErrIntegrity.WithMessage("manifest declares a source root but no expected digest")
		res.Integrity.Error = err.Error()
		return err
	}
	if actual != m.Integrity.SourceDigest {
		err := errclass.ErrIntegrity.WithMessagef("source tree digest mismatch: expected %s, got %s", m.Integrity.SourceDigest, actual)
		res.Integrity.Error = err.Error()
		return err
	}

	res.Integrity.Passed = true
	return nil
}

// Summary renders a one-line human verdict for a result.
func Summary(res *Result) string {
	if res.Passed {
		return fmt.Sprintf("PASS %s", res.ManifestPath)
	}
	n := 0
	if res.Governance != nil {
		n = len(res.Governance.Violations)
	}
	return fmt.Sprintf("FAIL %s (%d violation(s))", res.ManifestPath, n)
}

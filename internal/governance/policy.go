// Package governance evaluates agent manifests against deployment
// policy. Every rule runs independently and violations accumulate, so a
// single pass reports everything wrong with a manifest rather than the
// first problem found.
package governance

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// External configures the out-of-process declarative rule evaluator.
type External struct {
	Evaluator string   `yaml:"evaluator,omitempty"`
	RuleFile  string   `yaml:"rule_file,omitempty"`
	DataFiles []string `yaml:"data_files,omitempty"`
}

// Policy holds all configurable governance parameters.
type Policy struct {
	// AllowedDomains is the endpoint host allowlist. Nil disables the
	// domain rule entirely; empty but non-nil allows nothing.
	AllowedDomains []string `yaml:"allowed_domains"`

	// MaxRiskLevel is the highest permitted tool risk level. Empty
	// disables the risk rule.
	MaxRiskLevel string `yaml:"max_risk_level,omitempty"`

	// AllowCustomLogic permits inline code in workflow steps and call
	// syntax in edge conditions.
	AllowCustomLogic bool `yaml:"allow_custom_logic"`

	// StrictURLValidation enables full host normalization: lowercasing,
	// single trailing-dot stripping, and IDNA/punycode mapping. Without
	// it only the raw parsed host is compared; the known bypasses that
	// leaves open are intentional legacy behavior.
	StrictURLValidation bool `yaml:"strict_url_validation"`

	External External `yaml:"external,omitempty"`
}

// DefaultPolicy returns the built-in policy: strict normalization on,
// custom logic off, risk capped at STANDARD, no domain allowlist.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxRiskLevel:        RiskStandard,
		AllowCustomLogic:    false,
		StrictURLValidation: true,
	}
}

// LoadPolicy loads governance policy from a YAML file. A missing file
// returns defaults; invalid YAML is an error. Fields present in the
// file overwrite defaults, everything else keeps them.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPolicy(), nil
		}
		return nil, fmt.Errorf("governance: read policy: %w", err)
	}

	pol := DefaultPolicy()
	if err := yaml.Unmarshal(data, pol); err != nil {
		return nil, fmt.Errorf("governance: parse policy: %w", err)
	}
	return pol, nil
}

// DefaultPolicyYAML returns a commented policy file for init-policy.
func DefaultPolicyYAML() string {
	return `# trustgate governance policy
# Generated by: trustgate init-policy

# Endpoint host allowlist. Omit to disable the domain rule.
# An empty list allows nothing.
allowed_domains:
  - good.com

# Highest permitted tool risk level: SAFE | STANDARD | CRITICAL.
# Tools with unrecognized risk levels rank above CRITICAL (fail closed).
max_risk_level: STANDARD

# Permit inline code in workflow steps and call syntax in edge
# conditions.
allow_custom_logic: false

# Full host normalization (lowercase, trailing dot, punycode) before
# allowlist matching. Turning this off restores legacy matching and its
# documented bypasses.
strict_url_validation: true

# Out-of-process declarative rule evaluation. The evaluator receives the
# rule file and data files as arguments and the manifest JSON on stdin,
# and must print {result:[{expressions:[{value:[...]}]}]}.
# external:
#   evaluator: opa-eval
#   rule_file: rules/deploy.rego
#   data_files:
#     - data/approved-deps.json
`
}

package governance

import (
	"fmt"

	"github.com/rvachev/trustgate/internal/manifest"
)

// Violation is one governance rule breach.
type Violation struct {
	Rule        string `json:"rule"`
	Message     string `json:"message"`
	ComponentID string `json:"component_id"`
}

// Report is the outcome of one governance check: the ordered set of
// violations found and a pass/fail verdict.
type Report struct {
	Violations []Violation `json:"violations"`
	Passed     bool        `json:"passed"`
}

// Rule names as they appear in compliance reports.
const (
	RuleRiskLevel   = "risk_level"
	RuleDomain      = "domain_restriction"
	RuleCustomLogic = "custom_logic_restriction"
	RuleExternal    = "external_policy"
)

// Check evaluates a manifest against policy. Rules never short-circuit
// each other: one manifest can accumulate several distinct violations
// in a single pass. The returned error is non-nil only for evaluator
// malfunction (errclass.ErrEvaluator); policy violations are data, not
// errors.
func Check(m *manifest.Model, pol *Policy) (*Report, error) {
	if pol == nil {
		pol = DefaultPolicy()
	}

	report := &Report{}

	checkRiskLevels(m, pol, report)
	checkDomains(m, pol, report)
	checkCustomLogic(m, pol, report)

	external, err := runExternal(m, pol.External)
	if err != nil {
		return nil, err
	}
	for _, msg := range external {
		report.Violations = append(report.Violations, Violation{
			Rule:        RuleExternal,
			Message:     msg,
			ComponentID: m.Name,
		})
	}

	report.Passed = len(report.Violations) == 0
	return report, nil
}

// checkRiskLevels flags every tool whose risk rank exceeds the policy
// maximum. Exactly one violation per offending tool.
func checkRiskLevels(m *manifest.Model, pol *Policy, report *Report) {
	if pol.MaxRiskLevel == "" {
		return
	}
	max := riskRank(pol.MaxRiskLevel)
	for _, tool := range m.Tools {
		if riskRank(tool.RiskLevel) > max {
			report.Violations = append(report.Violations, Violation{
				Rule: RuleRiskLevel,
				Message: fmt.Sprintf("tool risk level %s exceeds policy maximum %s",
					RiskLabel(tool.RiskLevel), RiskLabel(pol.MaxRiskLevel)),
				ComponentID: tool.ID,
			})
		}
	}
}

// checkDomains flags every tool whose endpoint host is not on the
// allowlist. A nil allowlist disables the rule.
func checkDomains(m *manifest.Model, pol *Policy, report *Report) {
	if pol.AllowedDomains == nil {
		return
	}
	for _, tool := range m.Tools {
		host, ok := extractHost(tool.Endpoint)
		if !ok {
			report.Violations = append(report.Violations, Violation{
				Rule:        RuleDomain,
				Message:     fmt.Sprintf("endpoint %q has no parsable host", tool.Endpoint),
				ComponentID: tool.ID,
			})
			continue
		}
		if !domainAllowed(host, pol.AllowedDomains, pol.StrictURLValidation) {
			report.Violations = append(report.Violations, Violation{
				Rule:        RuleDomain,
				Message:     fmt.Sprintf("endpoint host %q is not in the allowed domains", host),
				ComponentID: tool.ID,
			})
		}
	}
}

// checkCustomLogic flags steps embedding executable code and edge
// conditions containing call syntax, import statements, or dunder-like
// tokens, unless the policy explicitly permits custom logic.
func checkCustomLogic(m *manifest.Model, pol *Policy, report *Report) {
	if pol.AllowCustomLogic {
		return
	}
	for _, step := range m.Steps {
		if step.Code != "" {
			report.Violations = append(report.Violations, Violation{
				Rule:        RuleCustomLogic,
				Message:     "workflow step embeds inline executable logic",
				ComponentID: step.ID,
			})
		}
	}
	for _, edge := range m.Edges {
		if expressionHasLogic(edge.Condition) {
			report.Violations = append(report.Violations, Violation{
				Rule:        RuleCustomLogic,
				Message:     fmt.Sprintf("edge condition %q contains executable logic", edge.Condition),
				ComponentID: fmt.Sprintf("%s->%s", edge.From, edge.To),
			})
		}
	}
}

package governance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/rvachev/trustgate/internal/errclass"
	"github.com/rvachev/trustgate/internal/manifest"
)

// evalOutput is the contract of the external declarative evaluator:
// {result: [{expressions: [{value: [string, ...]}]}]}, where the inner
// string list is the set of violation messages.
type evalOutput struct {
	Result []struct {
		Expressions []struct {
			Value []string `json:"value"`
		} `json:"expressions"`
	} `json:"result"`
}

// runExternal hands the manifest to the external rule evaluator as a
// blocking subprocess call and returns the violation messages it
// reports. The rule file and any supplementary trusted-data files are
// passed as arguments; the manifest is streamed as JSON on stdin.
//
// A missing evaluator executable, a failed invocation, or unparsable
// output is errclass.ErrEvaluator — evaluator malfunction, never a
// policy violation. Retries and timeouts belong to the caller.
func runExternal(m *manifest.Model, ext External) ([]string, error) {
	if ext.Evaluator == "" || ext.RuleFile == "" {
		return nil, nil
	}

	bin, err := exec.LookPath(ext.Evaluator)
	if err != nil {
		return nil, errclass.ErrEvaluator.WithMessagef("evaluator executable %q not found", ext.Evaluator)
	}

	input, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("governance: marshal manifest for evaluator: %w", err)
	}

	args := append([]string{ext.RuleFile}, ext.DataFiles...)
	cmd := exec.Command(bin, args...)
	cmd.Stdin = bytes.NewReader(input)

	out, err := cmd.Output()
	if err != nil {
		return nil, errclass.ErrEvaluator.WithMessagef("evaluator %s failed: %v", ext.Evaluator, err)
	}

	var parsed evalOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, errclass.ErrEvaluator.WithMessagef("evaluator %s produced unparsable output: %v", ext.Evaluator, err)
	}
	if parsed.Result == nil {
		return nil, errclass.ErrEvaluator.WithMessagef("evaluator %s produced no result set", ext.Evaluator)
	}

	var messages []string
	for _, r := range parsed.Result {
		for _, e := range r.Expressions {
			messages = append(messages, e.Value...)
		}
	}
	return messages, nil
}

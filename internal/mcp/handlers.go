package mcp

import (
	"context"
	"errors"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rvachev/trustgate/internal/audit"
	"github.com/rvachev/trustgate/internal/digest"
	"github.com/rvachev/trustgate/internal/errclass"
	"github.com/rvachev/trustgate/internal/governance"
	"github.com/rvachev/trustgate/internal/pipeline"
)

// errKind maps a pipeline error onto its stable error class code.
func errKind(err error) string {
	for _, class := range []*errclass.Error{
		errclass.ErrSchema,
		errclass.ErrSecurity,
		errclass.ErrIntegrity,
		errclass.ErrEvaluator,
		errclass.ErrPolicy,
	} {
		if errors.Is(err, class) {
			return class.Code
		}
	}
	return ""
}

// --- Input/Output types ---

// ValidateInput defines parameters for the trustgate_validate tool.
type ValidateInput struct {
	Manifest string `json:"manifest" jsonschema:"path to the manifest document"`
	Jail     string `json:"jail,omitempty" jsonschema:"sandbox root for reference resolution"`
}

// ValidateOutput is the structured validation verdict.
type ValidateOutput struct {
	Passed     bool                     `json:"passed"`
	Violations []governance.Violation   `json:"violations,omitempty"`
	Integrity  pipeline.IntegrityResult `json:"integrity"`
	Error      string                   `json:"error,omitempty"`
	ErrorKind  string                   `json:"error_kind,omitempty"`
}

// DigestInput defines parameters for the trustgate_digest tool.
type DigestInput struct {
	Path string `json:"path" jsonschema:"source tree root to fingerprint"`
}

// DigestOutput carries the computed digest.
type DigestOutput struct {
	Digest string `json:"digest,omitempty"`
	Error  string `json:"error,omitempty"`
}

// AuditVerifyInput defines parameters for the trustgate_audit_verify tool.
type AuditVerifyInput struct {
	Log string `json:"log" jsonschema:"path to the JSONL audit log"`
}

// AuditVerifyOutput carries the chain verification result.
type AuditVerifyOutput struct {
	Valid   bool   `json:"valid"`
	Records int    `json:"records"`
	Error   string `json:"error,omitempty"`
}

// --- Handlers ---

func (s *Server) handleValidate(ctx context.Context, req *mcpsdk.CallToolRequest, input ValidateInput) (*mcpsdk.CallToolResult, ValidateOutput, error) {
	jail := input.Jail
	if jail == "" {
		jail = s.jail
	}

	res, err := pipeline.Run(pipeline.Config{
		ManifestPath: input.Manifest,
		Jail:         jail,
		Policy:       s.policy,
	})

	out := ValidateOutput{Integrity: res.Integrity}
	if res.Governance != nil {
		out.Violations = res.Governance.Violations
	}
	if err != nil {
		out.Error = err.Error()
		out.ErrorKind = errKind(err)
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	out.Passed = res.Passed
	return nil, out, nil
}

func (s *Server) handleDigest(ctx context.Context, req *mcpsdk.CallToolRequest, input DigestInput) (*mcpsdk.CallToolResult, DigestOutput, error) {
	d, err := digest.Tree(input.Path)
	if err != nil {
		return &mcpsdk.CallToolResult{IsError: true}, DigestOutput{Error: err.Error()}, nil
	}
	return nil, DigestOutput{Digest: d}, nil
}

func (s *Server) handleAuditVerify(ctx context.Context, req *mcpsdk.CallToolRequest, input AuditVerifyInput) (*mcpsdk.CallToolResult, AuditVerifyOutput, error) {
	result := audit.VerifyLog(input.Log)
	out := AuditVerifyOutput{
		Valid:   result.Valid,
		Records: result.Records,
		Error:   result.Error,
	}
	if !result.Valid {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

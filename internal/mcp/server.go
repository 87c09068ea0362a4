// Package mcp exposes trustgate over the Model Context Protocol, so an
// agent (or the tooling driving it) can check a manifest, fingerprint a
// source tree, or verify an audit chain without shelling out to the
// CLI.
package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rvachev/trustgate/internal/governance"
)

// Config holds MCP server configuration.
type Config struct {
	// PolicyPath is the governance policy applied to every
	// trustgate_validate call. Empty means defaults.
	PolicyPath string

	// Jail, when set, overrides the per-manifest jail root.
	Jail string
}

// Server wraps the MCP SDK server with trustgate's validation tools.
type Server struct {
	mcpServer *mcpsdk.Server
	policy    *governance.Policy
	jail      string
}

// New creates an MCP server with loaded policy and registered tools.
func New(cfg Config) (*Server, error) {
	pol, err := governance.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("mcp: load policy: %w", err)
	}

	s := &Server{policy: pol, jail: cfg.Jail}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "trustgate",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds all trustgate tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "trustgate_validate",
		Description: "Validate an agent manifest: schema, governance policy, and source-tree integrity. Returns the full compliance report.",
	}, s.handleValidate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "trustgate_digest",
		Description: "Compute the deterministic content digest of a source tree. Fails on any symlink.",
	}, s.handleDigest)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "trustgate_audit_verify",
		Description: "Verify the hash chain of a JSONL audit log. Reports the first broken record, if any.",
	}, s.handleAuditVerify)
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	trustmcp "github.com/rvachev/trustgate/internal/mcp"
)

var (
	mcpPolicy string
	mcpJail   string
)

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpPolicy, "policy", "", "Path to governance policy YAML (optional)")
	mcpCmd.Flags().StringVar(&mcpJail, "jail", "", "Default sandbox root for $ref resolution")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long: "Runs trustgate as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes tools: trustgate_validate, trustgate_digest, trustgate_audit_verify.",
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	srv, err := trustmcp.New(trustmcp.Config{
		PolicyPath: mcpPolicy,
		Jail:       mcpJail,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "trustgate MCP server running on stdio")
	return srv.Run(ctx)
}

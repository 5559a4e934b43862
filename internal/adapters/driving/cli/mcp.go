package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ehalsey/chat-copilot/internal/adapters/driving/mcp"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driving"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Assemble the kernel and expose it as a Model Context Protocol server.

By default, the server communicates over stdio using JSON-RPC and can be
used with MCP-compatible AI assistants.

Use --port to start an HTTP server instead.

Examples:
  # Stdio mode (default)
  chatcopilot mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  chatcopilot mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "chatcopilot": {
        "command": "/path/to/chatcopilot",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	return withKernel(cmd, func(ctx context.Context, kernel driving.Kernel) error {
		server, err := mcp.NewServer(&mcp.Ports{Kernel: kernel})
		if err != nil {
			return err
		}

		if port > 0 {
			addr := fmt.Sprintf(":%d", port)
			fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
			return server.RunHTTP(ctx, addr)
		}
		return server.Run(ctx)
	})
}

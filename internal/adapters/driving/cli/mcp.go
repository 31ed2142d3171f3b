package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lidarqc/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can run the
quality pipeline and review past runs.

Tools:
  run_quality_pipeline  - run standard or quality-first mode for a region
  point_cloud_info      - point count, bounds and SRS of a cloud

Resources:
  lidarqc://runs          - recorded runs, newest first
  lidarqc://runs/{runId}  - full metadata of one run

By default the server speaks JSON-RPC over stdio. Use --port to serve
HTTP instead.

Examples:
  lidarqc mcp serve
  lidarqc mcp serve --port 8080

Over HTTP the MCP endpoint is /mcp and /healthz reports the registered
tools.`,
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

	server, err := mcp.NewServer(mcpPorts())
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		cmd.PrintErrf("MCP server listening on http://localhost%s/mcp (health: /healthz)\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}

func mcpPorts() *mcp.Ports {
	return &mcp.Ports{
		Pipeline:   qualityPipeline,
		Statistics: statisticsService,
		History:    runHistory,
		Settings:   appSettings,
		OutputRoot: resolvedOutputRoot(),
	}
}

package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/joescharf/relstatus/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets coding agents query release status natively. Configure with:

  {
    "mcpServers": {
      "relstatus": { "command": "relstatus", "args": ["mcp"] }
    }
  }

Available tools: relstatus_blueprints, relstatus_blueprint,
relstatus_gauge, relstatus_health`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol
		ui.Out = os.Stderr

		cfg, err := loadRunConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return mcp.NewServer(openPipeline(cfg), buildVersion).ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

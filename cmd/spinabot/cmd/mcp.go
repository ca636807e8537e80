package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spinabot/spinabot/internal/assistant"
	mcpserver "github.com/spinabot/spinabot/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run MCP server for Claude Desktop integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio.

This allows Claude Desktop (or any MCP client) to query the demo inbox
using the tools search_emails, list_emails, get_email, get_stats and
ask_assistant.

Add to Claude Desktop config:
  {
    "mcpServers": {
      "spinabot": {
        "command": "spinabot",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine(cfg)
		if err != nil {
			return err
		}
		defer engine.Close()

		return mcpserver.Serve(cmd.Context(), engine, assistant.DefaultScript(), assistantConfig(cfg), Version)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	wisdommcp "github.com/ppiankov/wisdomgate/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long: "Runs wisdomgate as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes tools: wisdom_evaluate, wisdom_validate_sharing, wisdom_translate,\n" +
		"wisdom_assess, wisdom_enhance, wisdom_health.",
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := startApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer a.Close()

	srv := wisdommcp.New(a, version, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "wisdomgate MCP server running on stdio")
	return srv.Run(ctx)
}

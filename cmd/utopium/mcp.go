package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/utopium/chatflow/internal/logging"
	"github.com/utopium/chatflow/pkg/adapters/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Exposes the assistant as MCP tools (chat_open, chat_send, chat_attach,
chat_reset, chat_transcript) so agents can drive a conversation.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
		Args: cobra.NoArgs,
		RunE: runMCP,
	}

	cmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	cmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
	return cmd
}

func runMCP(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")

	// Logs go to Stderr so they never corrupt JSON-RPC on Stdout.
	a, err := newApp(cmd, os.Stderr, logging.FormatText)
	if err != nil {
		return err
	}
	defer a.Close()

	engine, err := a.engine()
	if err != nil {
		return err
	}

	srv := mcp.NewServer(engine,
		mcp.WithLogger(a.logger),
		mcp.WithMaxInputSize(a.cfg.MaxInputSize),
	)

	switch transport {
	case "stdio":
		log.SetOutput(os.Stderr)
		a.logger.Info("starting MCP server (stdio)")
		return srv.ServeStdio()
	case "sse":
		a.logger.Info("starting MCP server (SSE)", "port", port)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		a.logger.Info("MCP server stopped gracefully")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
	}
}


package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flemzord/crondeck/internal/app"
)

func serveCmd() *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the backup scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd, false, func(ctx context.Context, a *app.App) error {
				if bind != "" {
					a.Config.Gateway.Bind = bind
				}
				return a.Serve(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides gateway.bind)")
	return cmd
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve crontab tools over the Model Context Protocol on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// stdout carries the protocol; logs go to stderr.
			return runApp(cmd, false, func(ctx context.Context, a *app.App) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				return a.MCP().Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}

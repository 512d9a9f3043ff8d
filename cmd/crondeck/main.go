// Package main is the entry point for the crondeck CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

// exitError carries a process exit code, e.g. from `crondeck run`, without
// printing anything more.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "crondeck",
		Short:         "Manage your crontab with names, metadata, backups and an HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.PersistentFlags().String("log-level", "", "Override the configured log level")

	root.AddGroup(
		&cobra.Group{ID: "jobs", Title: "Jobs:"},
		&cobra.Group{ID: "crontab", Title: "Crontab:"},
		&cobra.Group{ID: "server", Title: "Server:"},
	)
	for _, c := range []*cobra.Command{
		listCmd(), showCmd(), addCmd(), editCmd(), removeCmd(),
		enableCmd(), disableCmd(), duplicateCmd(), runCmd(), logsCmd(),
	} {
		c.GroupID = "jobs"
		root.AddCommand(c)
	}
	for _, c := range []*cobra.Command{envCmd(), scheduleCmd(), backupCmd(), exportCmd(), rawCmd()} {
		c.GroupID = "crontab"
		root.AddCommand(c)
	}
	for _, c := range []*cobra.Command{serveCmd(), mcpCmd(), serviceCmd()} {
		c.GroupID = "server"
		root.AddCommand(c)
	}
	root.AddCommand(configCmd(), versionCmd())
	return root
}

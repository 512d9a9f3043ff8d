package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flemzord/crondeck/internal/config"
	"github.com/flemzord/crondeck/internal/update"
)

func versionCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version, optionally checking for a newer release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "crondeck %s (commit: %s, built: %s)\n", version, commit, date)
			if !check {
				return nil
			}

			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			checker := &update.Checker{Repository: cfg.Update.Repository}
			res, err := checker.Check(cmd.Context(), version)
			if err != nil {
				return fmt.Errorf("checking for updates: %w", err)
			}
			switch {
			case res.DevBuild:
				fmt.Fprintf(out, "Development build; latest release is %s\n", res.Latest)
			case res.Available:
				fmt.Fprintf(out, "%s %s is available: %s\n", yellow("Update:"), res.Latest, res.URL)
			default:
				fmt.Fprintln(out, green("You are running the latest version."))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := cmd.Flags().Set("config", args[0]); err != nil {
					return err
				}
			}
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if path == "" {
				path = "(none, using defaults)"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK: %s\n", path)
			fmt.Fprintf(out, "  crontab:  %s\n", describeBackend(cfg.Crontab.Backend, cfg.Crontab.Path))
			fmt.Fprintf(out, "  data dir: %s\n", cfg.DataDir)
			fmt.Fprintf(out, "  backups:  %v (keep %d)\n", cfg.Backups.IsEnabled(), cfg.Backups.Keep)
			fmt.Fprintf(out, "  gateway:  %s (auth: %v)\n", cfg.Gateway.Bind, cfg.Gateway.Auth.IsConfigured())
			return nil
		},
	})
	return cmd
}

func describeBackend(backend, path string) string {
	if backend == config.BackendFile {
		return "file " + path
	}
	return "system crontab"
}

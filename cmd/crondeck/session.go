package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flemzord/crondeck/internal/app"
	"github.com/flemzord/crondeck/internal/config"
	"github.com/flemzord/crondeck/internal/manager"
)

// loadConfig reads the file named by --config, or the first one found in
// the standard locations, and validates it. No file at all means defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.ResolvePath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if err := config.Validate(cfg); err != nil {
		return nil, path, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, path, nil
}

// withApp builds the services, runs fn and releases them. One-shot
// commands log warnings only unless --log-level says otherwise.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	return runApp(cmd, true, fn)
}

func runApp(cmd *cobra.Command, quiet bool, fn func(ctx context.Context, a *app.App) error) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if quiet && !cmd.Flags().Changed("log-level") {
		cfg.Log.Level = "warn"
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, app.Options{Config: cfg, Version: version, LogOutput: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(context.WithoutCancel(ctx)); cerr != nil {
			a.Logger.Warn("shutdown error", "error", cerr)
		}
	}()
	return fn(manager.WithSource(ctx, manager.SourceCLI), a)
}

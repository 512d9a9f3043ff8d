package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flemzord/crondeck/internal/app"
	"github.com/flemzord/crondeck/internal/logging"
)

func envCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage the crontab's global environment",
	}
	cmd.AddCommand(envListCmd(), envSetCmd(), envUnsetCmd(), envImportCmd())
	return cmd
}

func envListCmd() *cobra.Command {
	var (
		showSecrets bool
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Print global variables; secret-looking values are masked",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				env, err := a.Manager.GlobalEnv(ctx)
				if err != nil {
					return err
				}
				out := make(map[string]string, len(env))
				for k, v := range env {
					out[k] = displayValue(k, v, showSecrets)
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), out)
				}
				for _, k := range sortedKeys(out) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, out[k])
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print secret values in clear")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func envSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY=VALUE...",
		Short: "Set global variables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set := make(map[string]string, len(args))
			for _, kv := range args {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("%q: expected KEY=VALUE", kv)
				}
				set[k] = v
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Manager.PatchGlobalEnv(ctx, set, nil, false); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", green("Set"), strings.Join(sortedKeys(set), ", "))
				return nil
			})
		},
	}
}

func envUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY...",
		Short: "Remove global variables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Manager.PatchGlobalEnv(ctx, nil, args, false); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", red("Unset"), strings.Join(args, ", "))
				return nil
			})
		},
	}
}

func envImportCmd() *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import variables from a .env file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				written, err := a.Manager.ImportEnv(ctx, r, overwrite)
				if err != nil {
					return err
				}
				if len(written) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to import.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d variable(s): %s\n", green("Imported"), len(written), strings.Join(written, ", "))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace variables that already exist")
	return cmd
}

// displayValue masks the value of secret-looking variables.
func displayValue(key, value string, show bool) string {
	if show || !logging.IsSecretName(key) || value == "" {
		return value
	}
	return "********"
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}

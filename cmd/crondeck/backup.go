package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/flemzord/crondeck/internal/app"
	"github.com/flemzord/crondeck/internal/audit"
	"github.com/flemzord/crondeck/internal/backup"
)

var errBackupsDisabled = errors.New("backups are disabled in the configuration")

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Browse and restore crontab snapshots",
	}
	cmd.AddCommand(backupListCmd(), backupCreateCmd(), backupShowCmd(), backupDiffCmd(), backupRestoreCmd(), backupPruneCmd())
	return cmd
}

// withBackups is withApp for commands that need the backup store.
func withBackups(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if a.Backups == nil {
			return errBackupsDisabled
		}
		return fn(ctx, a)
	})
}

func parseBackupID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid backup id %q", s)
	}
	return id, nil
}

func backupListCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List snapshots, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackups(cmd, func(ctx context.Context, a *app.App) error {
				list, err := a.Backups.List(ctx, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), list)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No backups.")
					return nil
				}
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "ID\tCREATED\tJOBS\tSIZE\tREASON")
				for _, b := range list {
					fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", b.ID, b.CreatedAt.Local().Format("2006-01-02 15:04:05"), b.JobCount, b.Size, b.Reason)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of snapshots (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func backupCreateCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Snapshot the current crontab",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackups(cmd, func(ctx context.Context, a *app.App) error {
				b, saved, err := a.Manager.Snapshot(ctx, reason)
				if err != nil {
					return err
				}
				if !saved {
					fmt.Fprintf(cmd.OutOrStdout(), "Unchanged since backup %d.\n", b.ID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s backup %d (%d jobs)\n", green("Created"), b.ID, b.JobCount)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "manual", "Reason stored with the snapshot")
	return cmd
}

func backupShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a snapshot's crontab text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBackupID(args[0])
			if err != nil {
				return err
			}
			return withBackups(cmd, func(ctx context.Context, a *app.App) error {
				b, err := a.Backups.Get(ctx, id)
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), b.Content)
				return err
			})
		},
	}
}

func backupDiffCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "diff <id>",
		Short: "Compare a snapshot with the current crontab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBackupID(args[0])
			if err != nil {
				return err
			}
			return withBackups(cmd, func(ctx context.Context, a *app.App) error {
				b, err := a.Backups.Get(ctx, id)
				if err != nil {
					return err
				}
				current, err := a.Manager.Raw(ctx)
				if err != nil {
					return err
				}
				lines := backup.Diff(b.Content, current)
				printDiff(cmd.OutOrStdout(), lines, all)
				added, removed := backup.Stats(lines)
				fmt.Fprintf(cmd.OutOrStdout(), "%s, %s\n", green(fmt.Sprintf("%d added", added)), red(fmt.Sprintf("%d removed", removed)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Print unchanged lines too")
	return cmd
}

func printDiff(w io.Writer, lines []backup.DiffLine, all bool) {
	for _, l := range lines {
		switch l.Type {
		case backup.LineAdd:
			fmt.Fprintln(w, green("+ "+l.Line))
		case backup.LineRemove:
			fmt.Fprintln(w, red("- "+l.Line))
		default:
			if all {
				fmt.Fprintln(w, faint("  "+l.Line))
			}
		}
	}
}

func backupRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Install a snapshot; the current crontab is backed up first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBackupID(args[0])
			if err != nil {
				return err
			}
			return withBackups(cmd, func(ctx context.Context, a *app.App) error {
				b, err := a.Backups.Get(ctx, id)
				if err != nil {
					return err
				}
				if err := a.Manager.Restore(ctx, b.Content, fmt.Sprintf("restore of backup %d", id)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s backup %d (%d jobs)\n", green("Restored"), b.ID, b.JobCount)
				return nil
			})
		},
	}
}

func backupPruneCmd() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackups(cmd, func(ctx context.Context, a *app.App) error {
				if !cmd.Flags().Changed("keep") {
					keep = a.Config.Backups.Keep
				}
				if keep < 0 {
					return fmt.Errorf("--keep must be zero or more")
				}
				n, err := a.Backups.Prune(ctx, keep)
				if err != nil {
					return err
				}
				a.Audit.Record(audit.Event{
					Action: audit.BackupPrune,
					Source: "cli",
					Fields: map[string]string{"deleted": strconv.FormatInt(n, 10), "keep": strconv.Itoa(keep)},
				})
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d backup(s), kept %d.\n", n, keep)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 0, "Snapshots to keep (default: backups.keep)")
	return cmd
}

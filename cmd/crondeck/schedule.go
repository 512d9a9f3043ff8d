package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/flemzord/crondeck/internal/schedule"
)

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedule",
		Aliases: []string{"sched"},
		Short:   "Work with cron expressions",
		Long: `Work with cron expressions. Expressions may be quoted or passed as five
separate arguments, e.g. crondeck schedule next "0 9 * * 1-5".`,
	}
	cmd.AddCommand(scheduleValidateCmd(), scheduleNextCmd(), scheduleDescribeCmd(), scheduleParseCmd(), schedulePresetsCmd())
	return cmd
}

func scheduleValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <expression>",
		Short: "Check a cron expression",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr := strings.Join(args, " ")
			if r := schedule.Validate(expr); !r.Valid {
				return fmt.Errorf("invalid schedule: %s", r.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", green("valid:"), schedule.Describe(expr))
			return nil
		},
	}
}

func scheduleNextCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "next <expression>",
		Short: "Print the next run times",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr := strings.Join(args, " ")
			if r := schedule.Validate(expr); !r.Valid {
				return fmt.Errorf("invalid schedule: %s", r.Error)
			}
			for _, t := range schedule.NextRuns(expr, count, time.Now()) {
				fmt.Fprintln(cmd.OutOrStdout(), t.Format("Mon 2006-01-02 15:04"))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "Number of runs")
	return cmd
}

func scheduleDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <expression>",
		Short: "Describe a cron expression in English",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), schedule.Describe(strings.Join(args, " ")))
		},
	}
}

func scheduleParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <phrase>",
		Short: `Turn a phrase like "every 15 minutes" into a cron expression`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			res := schedule.FromNaturalLanguage(text)
			if res.Confidence == 0 {
				return fmt.Errorf("could not understand %q", text)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s %s\n", res.Schedule,
				schedule.Describe(res.Schedule), faint(fmt.Sprintf("(confidence %.0f%%)", res.Confidence*100)))
			return nil
		},
	}
}

func schedulePresetsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List schedule presets for `add --preset`",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			presets := schedule.Presets()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), presets)
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tSCHEDULE\tDESCRIPTION")
			for _, p := range presets {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Schedule, p.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

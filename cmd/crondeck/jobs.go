package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flemzord/crondeck/internal/app"
	"github.com/flemzord/crondeck/internal/logtail"
	"github.com/flemzord/crondeck/internal/manager"
	"github.com/flemzord/crondeck/internal/schedule"
)

func listCmd() *cobra.Command {
	var (
		tag    string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List jobs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				jobs, err := a.Manager.List(ctx)
				if err != nil {
					return err
				}
				if tag != "" {
					jobs = slices.DeleteFunc(jobs, func(j manager.JobView) bool {
						return !slices.Contains(j.Tags, tag)
					})
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), jobs)
				}
				return printJobs(cmd.OutOrStdout(), jobs)
			})
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "Only list jobs with this tag")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func showCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				job, err := a.Manager.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), job)
				}
				return printJob(cmd.OutOrStdout(), job)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

// jobFlags are the flags shared by add and edit.
type jobFlags struct {
	name        string
	description string
	schedule    string
	preset      string
	natural     string
	command     string
	env         []string
	unsetEnv    []string
	workingDir  string
	logFile     string
	logStderr   string
	tags        []string
	disabled    bool
}

func (f *jobFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.name, "name", "n", "", "Display name")
	fs.StringVar(&f.description, "description", "", "Description")
	fs.StringVarP(&f.schedule, "schedule", "s", "", `Cron expression, e.g. "*/5 * * * *"`)
	fs.StringVar(&f.preset, "preset", "", "Schedule preset ID (see `crondeck schedule presets`)")
	fs.StringVar(&f.natural, "every", "", `Schedule in words, e.g. "every 15 minutes" or "7 pm"`)
	fs.StringVar(&f.command, "command", "", "Command to run (or pass it after --)")
	fs.StringArrayVarP(&f.env, "env", "e", nil, "Environment variable KEY=VALUE (repeatable)")
	fs.StringVar(&f.workingDir, "workdir", "", "Working directory")
	fs.StringVar(&f.logFile, "log", "", "Append output to this file")
	fs.StringVar(&f.logStderr, "log-stderr", "", "Send stderr to this file instead of --log")
	fs.StringSliceVarP(&f.tags, "tag", "t", nil, "Tag (repeatable or comma separated)")
	fs.BoolVar(&f.disabled, "disabled", false, "Create or leave the job disabled")
	cmd.MarkFlagsMutuallyExclusive("schedule", "preset", "every")
}

// resolveSchedule returns the schedule named by --schedule, --preset or
// --every, or "" when none is set.
func (f *jobFlags) resolveSchedule(w io.Writer) (string, error) {
	switch {
	case f.preset != "":
		p, ok := schedule.PresetByID(f.preset)
		if !ok {
			return "", fmt.Errorf("unknown preset %q", f.preset)
		}
		return p.Schedule, nil
	case f.natural != "":
		res := schedule.FromNaturalLanguage(f.natural)
		if res.Confidence == 0 {
			return "", fmt.Errorf("could not understand %q; use --schedule", f.natural)
		}
		if res.Confidence < 1 {
			fmt.Fprintf(w, "%s interpreted %q as %q\n", yellow("note:"), f.natural, res.Schedule)
		}
		return res.Schedule, nil
	}
	return f.schedule, nil
}

// apply copies the flags the user set onto spec.
func (f *jobFlags) apply(cmd *cobra.Command, spec *manager.JobSpec, args []string) error {
	changed := cmd.Flags().Changed

	sched, err := f.resolveSchedule(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if sched != "" {
		spec.Schedule = sched
	}
	if changed("name") {
		spec.Name = f.name
	}
	if changed("description") {
		spec.Description = f.description
	}
	if changed("command") {
		spec.Command = f.command
	} else if len(args) > 0 {
		spec.Command = strings.Join(args, " ")
	}
	if changed("env") || len(f.unsetEnv) > 0 {
		env := maps.Clone(spec.Env)
		if env == nil {
			env = make(map[string]string)
		}
		for _, kv := range f.env {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("--env %q: expected KEY=VALUE", kv)
			}
			env[k] = v
		}
		for _, k := range f.unsetEnv {
			delete(env, k)
		}
		spec.Env = env
	}
	if changed("workdir") {
		spec.WorkingDir = f.workingDir
	}
	if changed("log") {
		spec.LogFile = f.logFile
	}
	if changed("log-stderr") {
		spec.LogStderr = f.logStderr
	}
	if changed("tag") {
		spec.Tags = f.tags
	}
	if changed("disabled") {
		enabled := !f.disabled
		spec.Enabled = &enabled
	}
	return nil
}

func addCmd() *cobra.Command {
	var (
		f           jobFlags
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "add [flags] [-- command...]",
		Short: "Add a job",
		Example: `  crondeck add --name backup --schedule "0 2 * * *" -- /usr/local/bin/backup.sh
  crondeck add --every "every 15 minutes" --log ~/logs/sync.log -- rsync -a src/ dst/
  crondeck add --interactive`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var spec manager.JobSpec
			if err := f.apply(cmd, &spec, args); err != nil {
				return err
			}
			if interactive {
				if err := runJobForm(cmd.Context(), &spec); err != nil {
					return err
				}
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				job, err := a.Manager.Create(ctx, spec)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s job %s (%s) %s\n", green("Added"), short(job.ID), job.Name, faint(job.HumanSchedule))
				return nil
			})
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Fill in the job with a form")
	return cmd
}

func editCmd() *cobra.Command {
	var (
		f           jobFlags
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "edit <id> [flags] [-- command...]",
		Short: "Change a job; unset flags keep their current value",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				current, err := a.Manager.Get(ctx, args[0])
				if err != nil {
					return err
				}
				spec := manager.SpecFromJob(current.Job)
				if err := f.apply(cmd, &spec, args[1:]); err != nil {
					return err
				}
				if interactive {
					if err := runJobForm(ctx, &spec); err != nil {
						return err
					}
				}
				job, err := a.Manager.Update(ctx, current.ID, spec)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s job %s (%s)\n", green("Updated"), short(job.ID), job.Name)
				return nil
			})
		},
	}
	f.register(cmd)
	cmd.Flags().StringSliceVar(&f.unsetEnv, "unset-env", nil, "Remove an environment variable (repeatable)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Edit the job with a form")
	return cmd
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a job (the crontab is backed up first)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				job, err := a.Manager.Delete(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s job %s (%s)\n", red("Removed"), short(job.ID), job.Name)
				return nil
			})
		},
	}
}

func enableCmd() *cobra.Command  { return toggleCmd("enable", true) }
func disableCmd() *cobra.Command { return toggleCmd("disable", false) }

func toggleCmd(use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>...",
		Short: strings.ToUpper(use[:1]) + use[1:] + " jobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				var errs []error
				for _, id := range args {
					job, err := a.Manager.SetEnabled(ctx, id, enabled)
					if err != nil {
						errs = append(errs, fmt.Errorf("%s: %w", id, err))
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", short(job.ID), state(job.Enabled))
				}
				return errors.Join(errs...)
			})
		},
	}
}

func duplicateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "duplicate <id>",
		Aliases: []string{"dup"},
		Short:   "Copy a job; the copy starts disabled",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				job, err := a.Manager.Duplicate(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s job %s (%s)\n", green("Created"), short(job.ID), job.Name)
				return nil
			})
		},
	}
}

func runCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "run <id>",
		Short: "Run a job now and print its output",
		Long: `Run a job now with the configured shell, the crontab's environment and the
job's working directory. Output is printed instead of going to the job's log
file. crondeck exits with the job's exit code.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Manager.Run(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					if err := writeJSON(out, res); err != nil {
						return err
					}
				} else {
					fmt.Fprint(out, res.Output)
					if res.Truncated {
						fmt.Fprintln(cmd.ErrOrStderr(), yellow("output truncated"))
					}
					summary := fmt.Sprintf("exit %d in %s", res.ExitCode, res.Duration.Round(time.Millisecond))
					switch {
					case res.TimedOut:
						fmt.Fprintln(cmd.ErrOrStderr(), red("timed out after "+res.Duration.Round(time.Millisecond).String()))
					case res.Success():
						fmt.Fprintln(cmd.ErrOrStderr(), green(summary))
					default:
						fmt.Fprintln(cmd.ErrOrStderr(), red(summary))
					}
				}
				if !res.Success() {
					return &exitError{code: max(res.ExitCode, 1)}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func logsCmd() *cobra.Command {
	var (
		follow bool
		lines  int
	)
	cmd := &cobra.Command{
		Use:   "logs <id>",
		Short: "Print a job's log file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				job, err := a.Manager.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if job.LogFile == "" {
					return fmt.Errorf("job %s has no log file; set one with `crondeck edit %s --log PATH`", short(job.ID), short(job.ID))
				}
				path := manager.ExpandHome(job.LogFile)
				out := cmd.OutOrStdout()

				if !follow {
					tail, err := logtail.Tail(path, lines)
					if err != nil {
						return err
					}
					for _, l := range tail {
						fmt.Fprintln(out, l)
					}
					return nil
				}

				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				f := logtail.New(logtail.Config{Path: path, Backlog: lines})
				return f.Follow(ctx, func(line string) error {
					_, err := fmt.Fprintln(out, line)
					return err
				})
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().IntVarP(&lines, "lines", "l", 20, "Number of existing lines to print")
	return cmd
}

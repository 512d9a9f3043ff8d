package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/flemzord/crondeck/internal/manager"
	"github.com/flemzord/crondeck/internal/schedule"
)

// customSchedule is the preset choice that keeps the typed expression.
const customSchedule = "custom"

// runJobForm asks for the job fields in a terminal form, starting from the
// values already in spec.
func runJobForm(ctx context.Context, spec *manager.JobSpec) error {
	var (
		preset  = customSchedule
		enabled = spec.Enabled == nil || *spec.Enabled
		tags    = strings.Join(spec.Tags, ", ")
	)

	options := []huh.Option[string]{huh.NewOption("Custom expression", customSchedule)}
	for _, p := range schedule.Presets() {
		options = append(options, huh.NewOption(fmt.Sprintf("%s  (%s)", p.Name, p.Schedule), p.ID))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Description("Leave empty to derive it from the command.").
				Value(&spec.Name),
			huh.NewInput().
				Title("Command").
				Value(&spec.Command).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("command is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Description").
				Value(&spec.Description),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Schedule").
				Options(options...).
				Value(&preset),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Cron expression").
				Placeholder("*/5 * * * *").
				Value(&spec.Schedule).
				Validate(func(s string) error {
					if r := schedule.Validate(s); !r.Valid {
						return errors.New(r.Error)
					}
					return nil
				}).
				DescriptionFunc(func() string { return schedule.Describe(spec.Schedule) }, &spec.Schedule),
		).WithHideFunc(func() bool { return preset != customSchedule }),
		huh.NewGroup(
			huh.NewInput().
				Title("Log file").
				Description("Absolute or ~/ path. Empty leaves output to cron's mail.").
				Value(&spec.LogFile),
			huh.NewInput().
				Title("Working directory").
				Value(&spec.WorkingDir),
			huh.NewInput().
				Title("Tags").
				Description("Comma separated.").
				Value(&tags),
			huh.NewConfirm().
				Title("Enabled?").
				Value(&enabled),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("aborted")
		}
		return fmt.Errorf("form: %w", err)
	}

	if preset != customSchedule {
		if p, ok := schedule.PresetByID(preset); ok {
			spec.Schedule = p.Schedule
		}
	}
	spec.Tags = splitList(tags)
	spec.Enabled = &enabled
	return nil
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

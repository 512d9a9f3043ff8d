package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/crondeck/internal/app"
	"github.com/flemzord/crondeck/internal/manager"
)

// exportDoc is the document written by `crondeck export`.
type exportDoc struct {
	Env  map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	Jobs []exportJob       `json:"jobs" yaml:"jobs"`
}

type exportJob struct {
	manager.JobSpec `yaml:",inline"`

	ID            string `json:"id" yaml:"id"`
	HumanSchedule string `json:"human_schedule" yaml:"human_schedule"`
}

func exportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print jobs and global environment as YAML or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "yaml" && format != "json" {
				return fmt.Errorf("unknown format %q (want yaml or json)", format)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				doc, err := buildExport(ctx, a.Manager)
				if err != nil {
					return err
				}
				if format == "json" {
					return writeJSON(cmd.OutOrStdout(), doc)
				}
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(doc); err != nil {
					return err
				}
				return enc.Close()
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml or json")
	return cmd
}

func buildExport(ctx context.Context, m *manager.Manager) (exportDoc, error) {
	env, err := m.GlobalEnv(ctx)
	if err != nil {
		return exportDoc{}, err
	}
	jobs, err := m.List(ctx)
	if err != nil {
		return exportDoc{}, err
	}
	doc := exportDoc{Env: map[string]string(env), Jobs: make([]exportJob, 0, len(jobs))}
	if len(doc.Env) == 0 {
		doc.Env = nil
	}
	for _, j := range jobs {
		doc.Jobs = append(doc.Jobs, exportJob{
			ID:            j.ID,
			JobSpec:       manager.SpecFromJob(j.Job),
			HumanSchedule: j.HumanSchedule,
		})
	}
	return doc, nil
}

func rawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "raw",
		Short: "Print the installed crontab text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				text, err := a.Manager.Raw(ctx)
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), text)
				return err
			})
		},
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/flemzord/crondeck/internal/manager"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	faint  = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// shortID is the length of IDs shown in tables. Any unique prefix of four
// or more characters is accepted back.
const shortID = 8

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func short(id string) string {
	if len(id) > shortID {
		return id[:shortID]
	}
	return id
}

func state(enabled bool) string {
	if enabled {
		return green("enabled")
	}
	return yellow("disabled")
}

func nextRun(j manager.JobView) string {
	if !j.Enabled || len(j.NextRuns) == 0 {
		return faint("-")
	}
	return j.NextRuns[0].Local().Format("2006-01-02 15:04")
}

func printJobs(w io.Writer, jobs []manager.JobView) error {
	if len(jobs) == 0 {
		_, err := fmt.Fprintln(w, "No jobs.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tSCHEDULE\tNEXT RUN\tSTATUS")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", short(j.ID), j.Name, j.Schedule, nextRun(j), state(j.Enabled))
	}
	return tw.Flush()
}

func printJob(w io.Writer, j manager.JobView) error {
	tw := newTable(w)
	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(tw, "%s\t%s\n", bold(k), v)
		}
	}
	row("ID", j.ID)
	row("Name", j.Name)
	row("Description", j.Description)
	row("Schedule", fmt.Sprintf("%s (%s)", j.Schedule, j.HumanSchedule))
	row("Command", j.Command)
	row("Status", state(j.Enabled))
	row("Working dir", j.WorkingDir)
	row("Log file", j.LogFile)
	row("Stderr log", j.LogStderr)
	row("Tags", strings.Join(j.Tags, ", "))
	for _, k := range sortedKeys(j.Env) {
		row("Env", k+"="+displayValue(k, j.Env[k], false))
	}
	if j.Enabled {
		for i, t := range j.NextRuns {
			label := ""
			if i == 0 {
				label = "Next runs"
			}
			fmt.Fprintf(tw, "%s\t%s\n", bold(label), t.Local().Format(time.DateTime))
		}
	}
	return tw.Flush()
}

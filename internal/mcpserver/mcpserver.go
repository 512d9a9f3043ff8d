// Package mcpserver exposes crontab management as Model Context Protocol
// tools over stdio, so assistants can inspect and edit jobs.
package mcpserver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flemzord/crondeck/internal/manager"
)

// maxNextRuns caps the count argument of next_runs.
const maxNextRuns = 50

// Server wraps an MCP server bound to a job manager.
type Server struct {
	mcp     *server.MCPServer
	manager *manager.Manager
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Server with every tool registered.
func New(m *manager.Manager, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mcp: server.NewMCPServer("crondeck", version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
			server.WithToolHandlerMiddleware(tagSource),
		),
		manager: m,
		logger:  logger.With("component", "mcp"),
		now:     time.Now,
	}
	s.registerTools()
	return s
}

// Serve speaks MCP over in and out until ctx is done or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("mcp server listening on stdio")
	stdio := server.NewStdioServer(s.mcp)
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcpserver: %w", err)
	}
	return nil
}

// tagSource marks tool calls so audit events name MCP as their origin.
func tagSource(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return next(manager.WithSource(ctx, manager.SourceMCP), req)
	}
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("list_jobs",
		mcp.WithDescription("List every cron job with its schedule, state and next runs."),
		mcp.WithString("tag", mcp.Description("Only return jobs carrying this tag.")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.listJobs)

	s.mcp.AddTool(mcp.NewTool("get_job",
		mcp.WithDescription("Show one cron job by ID or unique ID prefix."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Job ID or a prefix of at least 4 characters.")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.getJob)

	s.mcp.AddTool(mcp.NewTool("create_job",
		mcp.WithDescription("Add a cron job. The crontab is backed up before it is changed."),
		mcp.WithString("schedule", mcp.Required(), mcp.Description("Five-field cron expression.")),
		mcp.WithString("command", mcp.Required(), mcp.Description("Shell command to run.")),
		mcp.WithString("name", mcp.Description("Display name. Derived from the command when empty.")),
		mcp.WithString("description", mcp.Description("Free-form description.")),
		mcp.WithBoolean("enabled", mcp.Description("Whether the job is active. Defaults to true.")),
	), s.createJob)

	s.mcp.AddTool(mcp.NewTool("set_job_enabled",
		mcp.WithDescription("Enable or disable a cron job."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Job ID or unique prefix.")),
		mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("New state.")),
		mcp.WithIdempotentHintAnnotation(true),
	), s.setJobEnabled)

	s.mcp.AddTool(mcp.NewTool("delete_job",
		mcp.WithDescription("Remove a cron job. The crontab is backed up before it is changed."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Job ID or unique prefix.")),
		mcp.WithDestructiveHintAnnotation(true),
	), s.deleteJob)

	s.mcp.AddTool(mcp.NewTool("validate_schedule",
		mcp.WithDescription("Check whether a cron expression is valid."),
		mcp.WithString("schedule", mcp.Required(), mcp.Description("Five-field cron expression.")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.validateSchedule)

	s.mcp.AddTool(mcp.NewTool("describe_schedule",
		mcp.WithDescription("Describe a cron expression in plain English."),
		mcp.WithString("schedule", mcp.Required(), mcp.Description("Five-field cron expression.")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.describeSchedule)

	s.mcp.AddTool(mcp.NewTool("next_runs",
		mcp.WithDescription("List the upcoming run times of a cron expression."),
		mcp.WithString("schedule", mcp.Required(), mcp.Description("Five-field cron expression.")),
		mcp.WithNumber("count", mcp.Description("How many runs to return (default 5, max 50).")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.nextRuns)

	s.mcp.AddTool(mcp.NewTool("parse_schedule",
		mcp.WithDescription(`Turn a phrase such as "every 15 minutes" or "7 pm" into a cron expression.`),
		mcp.WithString("text", mcp.Required(), mcp.Description("English phrase.")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.parseSchedule)

	s.mcp.AddTool(mcp.NewTool("list_presets",
		mcp.WithDescription("List the built-in schedule presets."),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.listPresets)
}

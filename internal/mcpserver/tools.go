package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flemzord/crondeck/internal/manager"
	"github.com/flemzord/crondeck/internal/schedule"
)

// jsonResult renders v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// toolError reports err to the client as a failed tool call. Protocol errors
// are reserved for malformed requests.
func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func (s *Server) listJobs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobs, err := s.manager.List(ctx)
	if err != nil {
		return toolError(err)
	}
	if tag := req.GetString("tag", ""); tag != "" {
		jobs = slices.DeleteFunc(jobs, func(j manager.JobView) bool {
			return !slices.Contains(j.Tags, tag)
		})
	}
	return jsonResult(jobs)
}

func (s *Server) getJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return toolError(err)
	}
	job, err := s.manager.Get(ctx, id)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(job)
}

func (s *Server) createJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	spec := manager.JobSpec{
		Name:        req.GetString("name", ""),
		Description: req.GetString("description", ""),
		Schedule:    req.GetString("schedule", ""),
		Command:     req.GetString("command", ""),
	}
	if args := req.GetArguments(); args != nil {
		if _, ok := args["enabled"]; ok {
			enabled := req.GetBool("enabled", true)
			spec.Enabled = &enabled
		}
	}
	job, err := s.manager.Create(ctx, spec)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(job)
}

func (s *Server) setJobEnabled(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return toolError(err)
	}
	enabled, err := req.RequireBool("enabled")
	if err != nil {
		return toolError(err)
	}
	job, err := s.manager.SetEnabled(ctx, id, enabled)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(job)
}

func (s *Server) deleteJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return toolError(err)
	}
	job, err := s.manager.Delete(ctx, id)
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted job %s (%s)", job.ID, job.Name)), nil
}

func (s *Server) validateSchedule(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := req.RequireString("schedule")
	if err != nil {
		return toolError(err)
	}
	return jsonResult(schedule.Validate(expr))
}

func (s *Server) describeSchedule(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := req.RequireString("schedule")
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(schedule.Describe(expr)), nil
}

func (s *Server) nextRuns(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := req.RequireString("schedule")
	if err != nil {
		return toolError(err)
	}
	if r := schedule.Validate(expr); !r.Valid {
		return mcp.NewToolResultError("invalid schedule: " + r.Error), nil
	}
	count := min(max(req.GetInt("count", manager.NextRunCount), 1), maxNextRuns)
	return jsonResult(schedule.NextRuns(expr, count, s.now()))
}

func (s *Server) parseSchedule(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return toolError(err)
	}
	res := schedule.FromNaturalLanguage(text)
	if res.Confidence == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("could not understand %q", text)), nil
	}
	return jsonResult(res)
}

func (s *Server) listPresets(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(schedule.Presets())
}

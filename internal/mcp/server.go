package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/relstatus/internal/gauge"
	"github.com/joescharf/relstatus/internal/models"
	"github.com/joescharf/relstatus/internal/report"
)

// Source produces fresh data for every tool call.
type Source interface {
	Report(ctx context.Context) (*report.Report, error)
	Gauge() (gauge.Description, error)
}

// Server exposes release status as MCP tools.
type Server struct {
	src     Source
	version string
}

// NewServer creates the MCP server wrapper.
func NewServer(src Source, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{src: src, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("relstatus", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listBlueprintsTool())
	srv.AddTool(s.blueprintTool())
	srv.AddTool(s.gaugeTool())
	srv.AddTool(s.healthTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

type blueprintOut struct {
	Name           string   `json:"name"`
	Project        string   `json:"project"`
	Priority       string   `json:"priority"`
	Implementation string   `json:"implementation"`
	Milestone      string   `json:"milestone"`
	MilestoneDate  string   `json:"milestone_date,omitempty"`
	Owner          string   `json:"owner"`
	Reviews        int      `json:"reviews"`
	Warnings       []string `json:"warnings"`
	Errors         []string `json:"errors"`
}

func summarize(bp *models.EnrichedBlueprint) blueprintOut {
	return blueprintOut{
		Name:           bp.Name,
		Project:        bp.Project,
		Priority:       bp.Priority,
		Implementation: bp.Implementation,
		Milestone:      bp.MilestoneName,
		MilestoneDate:  report.MilestoneDate(bp),
		Owner:          bp.OwnerName,
		Reviews:        len(bp.LinkedReviews),
		Warnings:       bp.Warnings,
		Errors:         bp.Errors,
	}
}

// relstatus_blueprints
func (s *Server) listBlueprintsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("relstatus_blueprints",
		mcp.WithDescription("List blueprints of the configured series, most urgent first. Returns a JSON array with priority, implementation status, milestone, owner, linked review count, and health warnings and errors."),
		mcp.WithString("project", mcp.Description("Only blueprints of this project (e.g. nova)")),
		mcp.WithString("set", mcp.Description("Which set to list: active (default), completed, or all"), mcp.Enum("active", "completed", "all")),
		mcp.WithBoolean("flagged", mcp.Description("Only blueprints with at least one warning or error")),
	)
	return tool, s.handleListBlueprints
}

func (s *Server) handleListBlueprints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project := request.GetString("project", "")
	set := request.GetString("set", "active")
	flagged := request.GetBool("flagged", false)

	rep, err := s.src.Report(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build report: %v", err)), nil
	}

	var bps []*models.EnrichedBlueprint
	switch set {
	case "active":
		bps = rep.Active
	case "completed":
		bps = rep.Completed
	case "all":
		bps = append(append(bps, rep.Active...), rep.Completed...)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("invalid set: %s (use: active, completed, all)", set)), nil
	}

	out := make([]blueprintOut, 0, len(bps))
	for _, bp := range bps {
		if project != "" && bp.Project != project {
			continue
		}
		if flagged && len(bp.Warnings) == 0 && len(bp.Errors) == 0 {
			continue
		}
		out = append(out, summarize(bp))
	}
	return jsonResult(out)
}

// relstatus_blueprint
func (s *Server) blueprintTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("relstatus_blueprint",
		mcp.WithDescription("Get one blueprint with its linked reviews (number, URL, subject, MERGED or NEEDSREVIEW) and health findings."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Blueprint name")),
	)
	return tool, s.handleBlueprint
}

func (s *Server) handleBlueprint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: name"), nil
	}

	rep, err := s.src.Report(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build report: %v", err)), nil
	}
	bp, ok := rep.Find(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("blueprint not found: %s", name)), nil
	}
	return jsonResult(bp)
}

// relstatus_gauge
func (s *Server) gaugeTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("relstatus_gauge",
		mcp.WithDescription("Get the release cycle gauge: day offsets of the green, yellow and red thresholds and the release, today's progress, and the zone it falls in. Does not contact any service."),
	)
	return tool, s.handleGauge
}

func (s *Server) handleGauge(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := s.src.Gauge()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to compute gauge: %v", err)), nil
	}
	return jsonResult(struct {
		gauge.Description
		Zone string `json:"zone"`
	}{g, g.Zone()})
}

// relstatus_health
func (s *Server) healthTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("relstatus_health",
		mcp.WithDescription("Get the health summary of active blueprints: totals, counts with warnings and errors, and a 0-100 score."),
	)
	return tool, s.handleHealth
}

func (s *Server) handleHealth(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.src.Report(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build report: %v", err)), nil
	}
	return jsonResult(rep.Health)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/relstatus/internal/gauge"
	"github.com/joescharf/relstatus/internal/health"
	"github.com/joescharf/relstatus/internal/models"
	"github.com/joescharf/relstatus/internal/report"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

type mockSource struct {
	rep      *report.Report
	err      error
	gauge    gauge.Description
	gaugeErr error
}

func (m *mockSource) Report(context.Context) (*report.Report, error) { return m.rep, m.err }
func (m *mockSource) Gauge() (gauge.Description, error)             { return m.gauge, m.gaugeErr }

func blueprint(name, project string, warnings, errs []string) *models.EnrichedBlueprint {
	return &models.EnrichedBlueprint{
		RawBlueprint:  models.RawBlueprint{Name: name, Project: project, Priority: "High", Implementation: "Started"},
		MilestoneDate: models.FarFuture,
		LinkedReviews: []models.LinkedReview{},
		Warnings:      warnings,
		Errors:        errs,
	}
}

func newTestServer(t *testing.T) (*Server, *mockSource) {
	t.Helper()

	linked := blueprint("cells-v2", "nova", []string{}, []string{})
	linked.LinkedReviews = []models.LinkedReview{{Number: 12345, URL: "https://review.openstack.org/12345", Tag: models.ReviewTagMerged}}
	linked.MilestoneName = "kilo-2"
	linked.MilestoneDate = time.Date(2015, 1, 22, 0, 0, 0, 0, time.UTC)

	active := []*models.EnrichedBlueprint{
		linked,
		blueprint("orphan", "nova", []string{}, []string{"no assignee or drafter"}),
		blueprint("image-cache", "glance", []string{"no assignee yet"}, []string{}),
	}
	completed := []*models.EnrichedBlueprint{blueprint("done-thing", "nova", []string{}, []string{})}

	ms := &mockSource{
		rep: &report.Report{
			Series:    "kilo",
			Active:    active,
			Completed: completed,
			Health:    health.Summarize(active),
		},
		gauge: gauge.Description{End: 2, RedThreshold: -1, YellowThreshold: -4, GreenThreshold: -7, Progress: 0},
	}
	srv := NewServer(ms, "test")
	require.NotNil(t, srv)
	return srv, ms
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	err := json.Unmarshal([]byte(text), target)
	require.NoError(t, err, "failed to parse result JSON: %s", text)
}

func names(out []blueprintOut) []string {
	var n []string
	for _, b := range out {
		n = append(n, b.Name)
	}
	return n
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestNewServer(t *testing.T) {
	srv, _ := newTestServer(t)
	require.NotNil(t, srv.MCPServer(), "MCPServer() should return non-nil")
}

func TestHandleListBlueprints_Active(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleListBlueprints(context.Background(), callToolReq("relstatus_blueprints", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out []blueprintOut
	resultJSON(t, result, &out)
	assert.Equal(t, []string{"cells-v2", "orphan", "image-cache"}, names(out))
	assert.Equal(t, 1, out[0].Reviews)
	assert.Equal(t, "2015-01-22", out[0].MilestoneDate)
	assert.Empty(t, out[1].MilestoneDate)
}

func TestHandleListBlueprints_Filters(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
		want []string
	}{
		{"by project", map[string]any{"project": "glance"}, []string{"image-cache"}},
		{"flagged", map[string]any{"flagged": true}, []string{"orphan", "image-cache"}},
		{"completed", map[string]any{"set": "completed"}, []string{"done-thing"}},
		{"all in nova", map[string]any{"set": "all", "project": "nova"}, []string{"cells-v2", "orphan", "done-thing"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := srv.handleListBlueprints(ctx, callToolReq("relstatus_blueprints", tt.args))
			require.NoError(t, err)
			require.False(t, result.IsError, resultText(t, result))

			var out []blueprintOut
			resultJSON(t, result, &out)
			assert.Equal(t, tt.want, names(out))
		})
	}
}

func TestHandleListBlueprints_InvalidSet(t *testing.T) {
	srv, _ := newTestServer(t)
	result, err := srv.handleListBlueprints(context.Background(), callToolReq("relstatus_blueprints", map[string]any{"set": "past"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "invalid set")
}

func TestHandleListBlueprints_SourceError(t *testing.T) {
	srv, ms := newTestServer(t)
	ms.err = errors.New("fetch merged changes: ssh timed out")

	result, err := srv.handleListBlueprints(context.Background(), callToolReq("relstatus_blueprints", nil))
	require.NoError(t, err, "handler should not return Go error; should wrap in result")
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "ssh timed out")
}

func TestHandleBlueprint(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleBlueprint(context.Background(), callToolReq("relstatus_blueprint", map[string]any{"name": "cells-v2"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var bp models.EnrichedBlueprint
	resultJSON(t, result, &bp)
	require.Len(t, bp.LinkedReviews, 1)
	assert.Equal(t, models.ReviewTagMerged, bp.LinkedReviews[0].Tag)
}

func TestHandleBlueprint_Errors(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleBlueprint(ctx, callToolReq("relstatus_blueprint", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "missing required parameter")

	result, err = srv.handleBlueprint(ctx, callToolReq("relstatus_blueprint", map[string]any{"name": "nope"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "blueprint not found")
}

func TestHandleGauge(t *testing.T) {
	srv, ms := newTestServer(t)

	result, err := srv.handleGauge(context.Background(), callToolReq("relstatus_gauge", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out map[string]any
	resultJSON(t, result, &out)
	assert.Equal(t, "red", out["zone"])
	assert.Equal(t, float64(2), out["end"])

	ms.gaugeErr = gauge.ErrInsufficientSchedule
	result, err = srv.handleGauge(context.Background(), callToolReq("relstatus_gauge", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleHealth(context.Background(), callToolReq("relstatus_health", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var sum health.Summary
	resultJSON(t, result, &sum)
	assert.Equal(t, health.Summary{Total: 3, WithWarnings: 1, WithErrors: 1, Score: 33}, sum)
}

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/clawsync/clawsync/internal/analytics"
	"github.com/clawsync/clawsync/pkg/models"
)

// ToolCapture is a request-scoped cell holding the most recent tool
// output of a generation. When the model ends its turn without text,
// the captured output becomes the reply.
type ToolCapture struct {
	mu     sync.Mutex
	output string
	set    bool
}

// Set records a tool output, replacing any earlier one.
func (c *ToolCapture) Set(output string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.output = output
	c.set = true
}

// Get returns the captured output and whether one was recorded.
func (c *ToolCapture) Get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.output, c.set
}

// ToolRegistry holds the tools offered to the model. Registration is
// conditional on each tool's credentials being present, so a
// deployment without GA4 keys simply fields no analytics tool.
type ToolRegistry struct {
	tools []Tool
}

// NewToolRegistry builds the tool set from the environment. lookup
// defaults to os.LookupEnv via the analytics package.
func NewToolRegistry(lookup func(string) (string, bool)) *ToolRegistry {
	reg := &ToolRegistry{}
	if creds, ok := analytics.CredentialsFromEnv(lookup); ok {
		reg.tools = append(reg.tools, NewAnalyticsTool(analytics.NewClient(creds)))
	}
	return reg
}

// Tools returns the registered tools.
func (r *ToolRegistry) Tools() []Tool {
	return r.tools
}

// Names returns the registered tool names.
func (r *ToolRegistry) Names() []string {
	names := make([]string, len(r.tools))
	for i, tool := range r.tools {
		names[i] = tool.Name()
	}
	return names
}

// ForRequest wraps every tool so its output is also written to the
// per-request capture cell.
func (r *ToolRegistry) ForRequest(capture *ToolCapture) []Tool {
	wrapped := make([]Tool, len(r.tools))
	for i, tool := range r.tools {
		wrapped[i] = &capturingTool{Tool: tool, capture: capture}
	}
	return wrapped
}

type capturingTool struct {
	Tool
	capture *ToolCapture
}

func (t *capturingTool) Execute(ctx context.Context, params json.RawMessage) (*models.ToolResult, error) {
	result, err := t.Tool.Execute(ctx, params)
	// Error results are captured too: when the model ends the turn
	// without text, the tool's error message is still a better reply
	// than the generic fallback line.
	if result != nil && result.Content != "" {
		t.capture.Set(result.Content)
	}
	return result, err
}

// ga4Reporter is the part of the analytics client the tool needs.
type ga4Reporter interface {
	RunReport(ctx context.Context, req *analytics.ReportRequest) (*analytics.Report, error)
}

// AnalyticsTool exposes GA4 reports to the model.
type AnalyticsTool struct {
	client ga4Reporter
}

// NewAnalyticsTool creates the GA4 query tool.
func NewAnalyticsTool(client ga4Reporter) *AnalyticsTool {
	return &AnalyticsTool{client: client}
}

func (t *AnalyticsTool) Name() string {
	return "get_analytics"
}

func (t *AnalyticsTool) Description() string {
	return "Query Google Analytics (GA4) for website traffic data. " +
		"Supports metrics like activeUsers, sessions, and screenPageViews, " +
		"broken down by dimensions like country, pagePath, or date."
}

func (t *AnalyticsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"start_date": {
				"type": "string",
				"description": "Start of the date range, e.g. '7daysAgo' or '2026-08-01'"
			},
			"end_date": {
				"type": "string",
				"description": "End of the date range, e.g. 'today'"
			},
			"dimensions": {
				"type": "array",
				"items": {"type": "string"},
				"description": "GA4 dimension names, e.g. country, pagePath, date"
			},
			"metrics": {
				"type": "array",
				"items": {"type": "string"},
				"description": "GA4 metric names, e.g. activeUsers, sessions, screenPageViews"
			},
			"limit": {
				"type": "integer",
				"description": "Maximum number of rows to return (default 20)"
			}
		},
		"required": ["metrics"]
	}`)
}

type analyticsParams struct {
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
	Dimensions []string `json:"dimensions"`
	Metrics    []string `json:"metrics"`
	Limit      int      `json:"limit"`
}

// Execute runs the report. All failures are returned as tool results
// with IsError set so the model can explain them to the user.
func (t *AnalyticsTool) Execute(ctx context.Context, params json.RawMessage) (*models.ToolResult, error) {
	var p analyticsParams
	if err := json.Unmarshal(params, &p); err != nil {
		return &models.ToolResult{
			Content: fmt.Sprintf("invalid parameters: %v", err),
			IsError: true,
		}, nil
	}
	if len(p.Metrics) == 0 {
		return &models.ToolResult{
			Content: "at least one metric is required",
			IsError: true,
		}, nil
	}
	if p.StartDate == "" {
		p.StartDate = "7daysAgo"
	}
	if p.EndDate == "" {
		p.EndDate = "today"
	}
	if p.Limit <= 0 {
		p.Limit = 20
	}

	report, err := t.client.RunReport(ctx, &analytics.ReportRequest{
		StartDate:  p.StartDate,
		EndDate:    p.EndDate,
		Dimensions: p.Dimensions,
		Metrics:    p.Metrics,
		Limit:      p.Limit,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &models.ToolResult{
			Content: fmt.Sprintf("analytics query failed: %v", err),
			IsError: true,
		}, nil
	}

	return &models.ToolResult{Content: report.Format()}, nil
}

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/clawsync/clawsync/internal/analytics"
)

type fakeReporter struct {
	lastReq *analytics.ReportRequest
	report  *analytics.Report
	err     error
}

func (f *fakeReporter) RunReport(ctx context.Context, req *analytics.ReportRequest) (*analytics.Report, error) {
	f.lastReq = req
	return f.report, f.err
}

func TestToolRegistry_GatedOnCredentials(t *testing.T) {
	empty := NewToolRegistry(func(string) (string, bool) { return "", false })
	if len(empty.Tools()) != 0 {
		t.Errorf("len(Tools()) = %d without GA4 credentials, want 0", len(empty.Tools()))
	}

	env := map[string]string{
		"GA4_PROPERTY_ID":  "123",
		"GA4_CLIENT_EMAIL": "svc@project.iam.gserviceaccount.com",
		"GA4_PRIVATE_KEY":  "key",
	}
	full := NewToolRegistry(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if names := full.Names(); len(names) != 1 || names[0] != "get_analytics" {
		t.Errorf("Names() = %v, want [get_analytics]", names)
	}
}

func TestAnalyticsTool_Execute(t *testing.T) {
	reporter := &fakeReporter{
		report: &analytics.Report{
			MetricHeaders: []string{"activeUsers"},
			Rows:          []analytics.ReportRow{{Metrics: []string{"42"}}},
			RowCount:      1,
		},
	}
	tool := NewAnalyticsTool(reporter)

	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"metrics": ["activeUsers"], "dimensions": ["country"]}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("IsError = true: %s", result.Content)
	}
	if result.Content != "activeUsers\n42" {
		t.Errorf("Content = %q", result.Content)
	}

	// Defaults applied when dates and limit are omitted.
	if reporter.lastReq.StartDate != "7daysAgo" || reporter.lastReq.EndDate != "today" {
		t.Errorf("date defaults = %s..%s", reporter.lastReq.StartDate, reporter.lastReq.EndDate)
	}
	if reporter.lastReq.Limit != 20 {
		t.Errorf("Limit = %d, want 20", reporter.lastReq.Limit)
	}
}

func TestAnalyticsTool_ErrorsAreData(t *testing.T) {
	tool := NewAnalyticsTool(&fakeReporter{err: errors.New("403 forbidden")})

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"metrics": ["sessions"]}`))
	if err != nil {
		t.Fatalf("Execute() error = %v, want failure as data", err)
	}
	if !result.IsError {
		t.Error("IsError = false, want true for API failure")
	}

	result, err = tool.Execute(context.Background(), json.RawMessage(`{not json`))
	if err != nil || !result.IsError {
		t.Errorf("malformed params: result=%+v err=%v, want IsError", result, err)
	}

	result, err = tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil || !result.IsError {
		t.Errorf("missing metrics: result=%+v err=%v, want IsError", result, err)
	}
}

func TestToolCapture(t *testing.T) {
	var capture ToolCapture
	if _, ok := capture.Get(); ok {
		t.Error("Get() = ok before any Set")
	}
	capture.Set("first")
	capture.Set("second")
	got, ok := capture.Get()
	if !ok || got != "second" {
		t.Errorf("Get() = %q, %v; want second, true", got, ok)
	}
}

func TestForRequest_CapturesOutput(t *testing.T) {
	reporter := &fakeReporter{
		report: &analytics.Report{
			MetricHeaders: []string{"sessions"},
			Rows:          []analytics.ReportRow{{Metrics: []string{"7"}}},
		},
	}
	reg := &ToolRegistry{tools: []Tool{NewAnalyticsTool(reporter)}}

	var capture ToolCapture
	wrapped := reg.ForRequest(&capture)
	if len(wrapped) != 1 {
		t.Fatalf("len(wrapped) = %d", len(wrapped))
	}

	result, err := wrapped[0].Execute(context.Background(), json.RawMessage(`{"metrics": ["sessions"]}`))
	if err != nil || result.IsError {
		t.Fatalf("Execute() = %+v, %v", result, err)
	}
	if got, ok := capture.Get(); !ok || got != result.Content {
		t.Errorf("capture = %q, %v; want tool output", got, ok)
	}
}

func TestForRequest_CapturesErrorResults(t *testing.T) {
	reporter := &fakeReporter{err: errors.New("403 forbidden")}
	reg := &ToolRegistry{tools: []Tool{NewAnalyticsTool(reporter)}}

	var capture ToolCapture
	wrapped := reg.ForRequest(&capture)

	result, err := wrapped[0].Execute(context.Background(), json.RawMessage(`{"metrics": ["sessions"]}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("IsError = false, want error-as-data result")
	}
	// The error text is captured so it can stand in as the reply when
	// the model produces no text of its own.
	if got, ok := capture.Get(); !ok || got != result.Content {
		t.Errorf("capture = %q, %v; want the error content", got, ok)
	}
}

// Package analytics queries the Google Analytics Data API (GA4) on
// behalf of the agent's analytics tool.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/jwt"
)

const (
	reportEndpoint = "https://analyticsdata.googleapis.com/v1beta/properties/%s:runReport"
	tokenURL       = "https://oauth2.googleapis.com/token"
	scope          = "https://www.googleapis.com/auth/analytics.readonly"
)

// Credentials holds the GA4 service account settings. All three fields
// are required for the analytics tool to be registered.
type Credentials struct {
	PropertyID  string
	ClientEmail string
	PrivateKey  string
}

// CredentialsFromEnv reads GA4 credentials from the environment using
// lookup. It returns (nil, false) unless the full triple is present.
func CredentialsFromEnv(lookup func(string) (string, bool)) (*Credentials, bool) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	property, ok1 := lookup("GA4_PROPERTY_ID")
	email, ok2 := lookup("GA4_CLIENT_EMAIL")
	key, ok3 := lookup("GA4_PRIVATE_KEY")
	if !ok1 || !ok2 || !ok3 || property == "" || email == "" || key == "" {
		return nil, false
	}
	// Keys pasted through env files often carry literal \n sequences.
	key = strings.ReplaceAll(key, `\n`, "\n")
	return &Credentials{PropertyID: property, ClientEmail: email, PrivateKey: key}, true
}

// Client runs GA4 reports using a service account.
type Client struct {
	propertyID string
	httpClient *http.Client
}

// NewClient builds a GA4 client. The underlying oauth2 transport mints
// and refreshes access tokens from the service account key.
func NewClient(creds *Credentials) *Client {
	conf := &jwt.Config{
		Email:      creds.ClientEmail,
		PrivateKey: []byte(creds.PrivateKey),
		Scopes:     []string{scope},
		TokenURL:   tokenURL,
	}
	httpClient := conf.Client(context.Background())
	httpClient.Timeout = 30 * time.Second
	return &Client{
		propertyID: creds.PropertyID,
		httpClient: httpClient,
	}
}

// ReportRequest describes a GA4 report query.
type ReportRequest struct {
	StartDate  string   // e.g. "7daysAgo" or "2026-08-01"
	EndDate    string   // e.g. "today"
	Dimensions []string // e.g. "country", "pagePath"
	Metrics    []string // e.g. "activeUsers", "screenPageViews"
	Limit      int
}

// ReportRow is one row of the report result.
type ReportRow struct {
	Dimensions []string
	Metrics    []string
}

// Report is the parsed result of a runReport call.
type Report struct {
	DimensionHeaders []string
	MetricHeaders    []string
	Rows             []ReportRow
	RowCount         int
}

type runReportBody struct {
	DateRanges []dateRange `json:"dateRanges"`
	Dimensions []named     `json:"dimensions,omitempty"`
	Metrics    []named     `json:"metrics"`
	Limit      int         `json:"limit,omitempty"`
}

type dateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type named struct {
	Name string `json:"name"`
}

type runReportResponse struct {
	DimensionHeaders []named `json:"dimensionHeaders"`
	MetricHeaders    []struct {
		Name string `json:"name"`
	} `json:"metricHeaders"`
	Rows []struct {
		DimensionValues []struct {
			Value string `json:"value"`
		} `json:"dimensionValues"`
		MetricValues []struct {
			Value string `json:"value"`
		} `json:"metricValues"`
	} `json:"rows"`
	RowCount int `json:"rowCount"`
}

// RunReport executes a runReport query against the configured property.
func (c *Client) RunReport(ctx context.Context, req *ReportRequest) (*Report, error) {
	body := runReportBody{
		DateRanges: []dateRange{{StartDate: req.StartDate, EndDate: req.EndDate}},
		Limit:      req.Limit,
	}
	for _, d := range req.Dimensions {
		body.Dimensions = append(body.Dimensions, named{Name: d})
	}
	for _, m := range req.Metrics {
		body.Metrics = append(body.Metrics, named{Name: m})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal report request: %w", err)
	}

	url := fmt.Sprintf(reportEndpoint, c.propertyID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build report request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("run report: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read report response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GA4 API returned %d: %s", resp.StatusCode, truncate(string(data), 500))
	}

	var parsed runReportResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse report response: %w", err)
	}

	report := &Report{RowCount: parsed.RowCount}
	for _, h := range parsed.DimensionHeaders {
		report.DimensionHeaders = append(report.DimensionHeaders, h.Name)
	}
	for _, h := range parsed.MetricHeaders {
		report.MetricHeaders = append(report.MetricHeaders, h.Name)
	}
	for _, row := range parsed.Rows {
		var r ReportRow
		for _, v := range row.DimensionValues {
			r.Dimensions = append(r.Dimensions, v.Value)
		}
		for _, v := range row.MetricValues {
			r.Metrics = append(r.Metrics, v.Value)
		}
		report.Rows = append(report.Rows, r)
	}
	return report, nil
}

// Format renders a report as plain text for the model to read.
func (r *Report) Format() string {
	if len(r.Rows) == 0 {
		return "No data returned for this query."
	}

	var b strings.Builder
	headers := append(append([]string{}, r.DimensionHeaders...), r.MetricHeaders...)
	b.WriteString(strings.Join(headers, " | "))
	b.WriteString("\n")
	for _, row := range r.Rows {
		cells := append(append([]string{}, row.Dimensions...), row.Metrics...)
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}
	if r.RowCount > len(r.Rows) {
		fmt.Fprintf(&b, "(%d of %d rows shown)\n", len(r.Rows), r.RowCount)
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

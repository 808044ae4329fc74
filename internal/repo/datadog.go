package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DatadogClient fetches telemetry from the Datadog HTTP API. In mock mode it
// serves deterministic synthetic telemetry instead, so the pipeline can run
// without vendor credentials.
type DatadogClient struct {
	mode       string
	baseURL    string
	apiKey     string
	appKey     string
	httpClient *http.Client
}

// NewDatadogClient constructs a telemetry client. mode is "mock" or "live".
func NewDatadogClient(mode, site, apiKey, appKey string, timeout time.Duration) *DatadogClient {
	if site == "" {
		site = "datadoghq.com"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &DatadogClient{
		mode:    mode,
		baseURL: "https://api." + site,
		apiKey:  apiKey,
		appKey:  appKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetActiveMonitors returns monitors that alerted within the window.
func (c *DatadogClient) GetActiveMonitors(ctx context.Context, window time.Duration) ([]Monitor, error) {
	if c.mode != "live" {
		return mockMonitors(), nil
	}

	var raw []struct {
		ID           int64    `json:"id"`
		Name         string   `json:"name"`
		Query        string   `json:"query"`
		OverallState string   `json:"overall_state"`
		Tags         []string `json:"tags"`
	}
	params := url.Values{"with_downtimes": {"false"}}
	if err := c.getJSON(ctx, "/api/v1/monitor", params, &raw); err != nil {
		return nil, fmt.Errorf("datadog monitors request failed: %w", err)
	}

	monitors := make([]Monitor, 0, len(raw))
	for _, m := range raw {
		severity := "warning"
		if m.OverallState == "Alert" {
			severity = "critical"
		}
		monitors = append(monitors, Monitor{
			ID:       strconv.FormatInt(m.ID, 10),
			Name:     m.Name,
			Query:    m.Query,
			Severity: severity,
			Status:   m.OverallState,
			Tags:     m.Tags,
		})
	}
	return monitors, nil
}

// QueryMetrics runs a time-series metric query over [from, to].
func (c *DatadogClient) QueryMetrics(ctx context.Context, query string, from, to time.Time) ([]MetricSeries, error) {
	if c.mode != "live" {
		return mockMetricSeries(query, from, to), nil
	}

	var response struct {
		Series []struct {
			Metric    string       `json:"metric"`
			Pointlist [][2]float64 `json:"pointlist"`
			TagSet    []string     `json:"tag_set"`
		} `json:"series"`
	}
	params := url.Values{
		"query": {query},
		"from":  {strconv.FormatInt(from.Unix(), 10)},
		"to":    {strconv.FormatInt(to.Unix(), 10)},
	}
	if err := c.getJSON(ctx, "/api/v1/query", params, &response); err != nil {
		return nil, fmt.Errorf("datadog metrics request failed: %w", err)
	}

	series := make([]MetricSeries, 0, len(response.Series))
	for _, s := range response.Series {
		points := make([]MetricPoint, 0, len(s.Pointlist))
		for _, p := range s.Pointlist {
			points = append(points, MetricPoint{TimestampMS: p[0], Value: p[1]})
		}
		series = append(series, MetricSeries{Metric: s.Metric, Points: points, Tags: s.TagSet})
	}
	return series, nil
}

// SearchLogs returns up to limit log events matching the query.
func (c *DatadogClient) SearchLogs(ctx context.Context, query string, from, to time.Time, limit int) ([]LogEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if c.mode != "live" {
		return mockLogEvents(query, from, to, limit), nil
	}

	payload := map[string]any{
		"filter": map[string]any{
			"query": query,
			"from":  from.Format(time.RFC3339),
			"to":    to.Format(time.RFC3339),
		},
		"page": map[string]any{"limit": limit},
	}
	var response struct {
		Data []struct {
			Attributes struct {
				Timestamp time.Time `json:"timestamp"`
				Service   string    `json:"service"`
				Status    string    `json:"status"`
				Message   string    `json:"message"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := c.postJSON(ctx, "/api/v2/logs/events/search", payload, &response); err != nil {
		return nil, fmt.Errorf("datadog logs request failed: %w", err)
	}

	events := make([]LogEvent, 0, len(response.Data))
	for _, d := range response.Data {
		events = append(events, LogEvent{
			Timestamp: d.Attributes.Timestamp,
			Service:   d.Attributes.Service,
			Status:    d.Attributes.Status,
			Message:   d.Attributes.Message,
		})
	}
	return events, nil
}

// FetchTraces returns up to limit recent APM spans for a service.
func (c *DatadogClient) FetchTraces(ctx context.Context, service string, from, to time.Time, limit int) ([]TraceSpan, error) {
	if limit <= 0 {
		limit = 50
	}
	if c.mode != "live" {
		return mockTraceSpans(service, from, to, limit), nil
	}

	payload := map[string]any{
		"filter": map[string]any{
			"query": "service:" + service,
			"from":  from.Format(time.RFC3339),
			"to":    to.Format(time.RFC3339),
		},
		"page": map[string]any{"limit": limit},
	}
	var response struct {
		Data []struct {
			Attributes struct {
				TraceID    string    `json:"trace_id"`
				SpanID     string    `json:"span_id"`
				Service    string    `json:"service"`
				ResourceN  string    `json:"resource_name"`
				DurationNS float64   `json:"duration"`
				Status     string    `json:"status"`
				StartTime  time.Time `json:"start_timestamp"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := c.postJSON(ctx, "/api/v2/spans/events/search", payload, &response); err != nil {
		return nil, fmt.Errorf("datadog traces request failed: %w", err)
	}

	spans := make([]TraceSpan, 0, len(response.Data))
	for _, d := range response.Data {
		spans = append(spans, TraceSpan{
			TraceID:    d.Attributes.TraceID,
			SpanID:     d.Attributes.SpanID,
			Service:    firstNonEmpty(d.Attributes.Service, service),
			Resource:   d.Attributes.ResourceN,
			DurationMS: d.Attributes.DurationNS / 1e6,
			Status:     d.Attributes.Status,
			Timestamp:  d.Attributes.StartTime,
		})
	}
	return spans, nil
}

func (c *DatadogClient) headers() map[string]string {
	return map[string]string{
		"DD-API-KEY":         c.apiKey,
		"DD-APPLICATION-KEY": c.appKey,
		"Content-Type":       "application/json",
	}
}

func (c *DatadogClient) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *DatadogClient) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *DatadogClient) do(req *http.Request, out any) error {
	for k, v := range c.headers() {
		req.Header.Set(k, v)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("datadog returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// SetBaseURL overrides the vendor endpoint; used by tests.
func (c *DatadogClient) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

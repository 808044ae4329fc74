package repo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMockModeReturnsSyntheticTelemetry(t *testing.T) {
	client := NewDatadogClient("mock", "", "", "", 0)
	ctx := context.Background()
	now := time.Now()

	monitors, err := client.GetActiveMonitors(ctx, time.Hour)
	if err != nil || len(monitors) == 0 {
		t.Fatalf("expected mock monitors, got %d (err %v)", len(monitors), err)
	}

	series, err := client.QueryMetrics(ctx, "avg:demo{*}", now.Add(-time.Hour), now)
	if err != nil || len(series) == 0 {
		t.Fatalf("expected mock metric series, got %d (err %v)", len(series), err)
	}
	if len(series[0].Points) == 0 {
		t.Fatal("mock series has no points")
	}

	logs, err := client.SearchLogs(ctx, "status:error", now.Add(-time.Hour), now, 20)
	if err != nil || len(logs) == 0 {
		t.Fatalf("expected mock logs, got %d (err %v)", len(logs), err)
	}

	traces, err := client.FetchTraces(ctx, "checkout", now.Add(-time.Hour), now, 20)
	if err != nil || len(traces) == 0 {
		t.Fatalf("expected mock traces, got %d (err %v)", len(traces), err)
	}
}

func TestLiveModeQueryMetrics(t *testing.T) {
	var gotAPIKey, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("DD-API-KEY")
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{
			"series": []map[string]any{
				{
					"metric":    "trace.http.request.hits",
					"pointlist": [][2]float64{{1700000000000, 42}, {1700000060000, 44}},
					"tag_set":   []string{"service:checkout"},
				},
			},
		})
	}))
	defer server.Close()

	client := NewDatadogClient("live", "datadoghq.com", "key-123", "app-456", time.Second)
	client.SetBaseURL(server.URL)

	series, err := client.QueryMetrics(context.Background(), "avg:demo{*}", time.Unix(1700000000, 0), time.Unix(1700003600, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAPIKey != "key-123" {
		t.Fatalf("api key header = %q", gotAPIKey)
	}
	if gotPath != "/api/v1/query" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if len(series) != 1 || series[0].Metric != "trace.http.request.hits" {
		t.Fatalf("unexpected series %+v", series)
	}
	values := series[0].Values()
	if len(values) != 2 || values[0] != 42 || values[1] != 44 {
		t.Fatalf("unexpected values %v", values)
	}
}

func TestLiveModeSearchLogs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"attributes": map[string]any{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
					"service":   "checkout",
					"status":    "error",
					"message":   "connection pool exhausted",
				}},
			},
		})
	}))
	defer server.Close()

	client := NewDatadogClient("live", "", "k", "a", time.Second)
	client.SetBaseURL(server.URL)

	logs, err := client.SearchLogs(context.Background(), "status:error", time.Now().Add(-time.Hour), time.Now(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 1 || logs[0].Service != "checkout" || logs[0].Status != "error" {
		t.Fatalf("unexpected logs %+v", logs)
	}
}

func TestLiveModeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewDatadogClient("live", "", "k", "a", time.Second)
	client.SetBaseURL(server.URL)

	if _, err := client.GetActiveMonitors(context.Background(), time.Hour); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

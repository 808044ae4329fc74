// Package tools exposes the fixed catalog of observability tools available
// to analysis stages. The catalog is read-only from the pipeline's
// perspective; stages receive it as prompt context so generated steps refer
// to real, invocable actions.
package tools

// Definition describes one tool: its name, purpose, and JSON parameter schema.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Catalog returns the full tool catalog.
func Catalog() []Definition {
	return []Definition{
		{
			Name:        "query_metrics",
			Description: "Query time-series metrics from the telemetry vendor",
			Parameters: map[string]any{
				"type":     "object",
				"required": []string{"query"},
				"properties": map[string]any{
					"query":   map[string]any{"type": "string"},
					"from_ts": map[string]any{"type": "integer"},
					"to_ts":   map[string]any{"type": "integer"},
				},
			},
		},
		{
			Name:        "search_logs",
			Description: "Search logs from the telemetry vendor",
			Parameters: map[string]any{
				"type":     "object",
				"required": []string{"query"},
				"properties": map[string]any{
					"query":   map[string]any{"type": "string"},
					"from_ts": map[string]any{"type": "integer"},
					"to_ts":   map[string]any{"type": "integer"},
					"limit":   map[string]any{"type": "integer", "default": 50},
				},
			},
		},
		{
			Name:        "fetch_traces",
			Description: "Fetch APM distributed traces for a service",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"service": map[string]any{"type": "string"},
					"from_ts": map[string]any{"type": "integer"},
					"to_ts":   map[string]any{"type": "integer"},
					"limit":   map[string]any{"type": "integer", "default": 50},
				},
			},
		},
		{
			Name:        "get_active_monitors",
			Description: "List monitors that alerted within a time window",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"tags":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"time_window": map[string]any{"type": "integer", "default": 3600},
				},
			},
		},
		{
			Name:        "forecast_series",
			Description: "Forecast a metric series and score recent anomalies",
			Parameters: map[string]any{
				"type":     "object",
				"required": []string{"series_name", "metric_values", "interval_seconds"},
				"properties": map[string]any{
					"series_name":      map[string]any{"type": "string"},
					"metric_values":    map[string]any{"type": "array", "items": map[string]any{"type": "number"}},
					"interval_seconds": map[string]any{"type": "integer"},
				},
			},
		},
		{
			Name:        "generate_test_plan",
			Description: "Generate a validation test plan from a recommendation",
			Parameters: map[string]any{
				"type":     "object",
				"required": []string{"recommendation"},
				"properties": map[string]any{
					"recommendation": map[string]any{"type": "object"},
				},
			},
		},
		{
			Name:        "run_tests",
			Description: "Execute a previously generated test plan",
			Parameters: map[string]any{
				"type":     "object",
				"required": []string{"plan_id"},
				"properties": map[string]any{
					"plan_id": map[string]any{"type": "string"},
				},
			},
		},
	}
}

// Names returns the catalog's tool names in order.
func Names() []string {
	defs := Catalog()
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	return names
}

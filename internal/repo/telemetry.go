package repo

import "time"

// Monitor is an active alerting monitor returned by the telemetry vendor.
type Monitor struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Query    string   `json:"query"`
	Severity string   `json:"severity"`
	Status   string   `json:"status"`
	Tags     []string `json:"tags"`
}

// MetricPoint is a single [timestamp, value] metric sample. The timestamp is
// milliseconds since epoch, matching the vendor wire format.
type MetricPoint struct {
	TimestampMS float64 `json:"ts"`
	Value       float64 `json:"value"`
}

// MetricSeries is one named metric time series with its tag scope.
type MetricSeries struct {
	Metric string        `json:"metric"`
	Points []MetricPoint `json:"pointlist"`
	Tags   []string      `json:"tags"`
}

// Values returns the raw sample values in order.
func (s MetricSeries) Values() []float64 {
	values := make([]float64, 0, len(s.Points))
	for _, p := range s.Points {
		values = append(values, p.Value)
	}
	return values
}

// LogEvent is one log record matched by a search.
type LogEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
}

// TraceSpan captures essential fields from an APM span.
type TraceSpan struct {
	TraceID    string    `json:"trace_id"`
	SpanID     string    `json:"span_id"`
	Service    string    `json:"service"`
	Resource   string    `json:"resource"`
	DurationMS float64   `json:"duration_ms"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// TelemetryBundle is the immutable snapshot of signals fetched for one run.
// It is passed by value through the pipeline and never mutated after fetch.
type TelemetryBundle struct {
	Monitors []Monitor      `json:"monitors"`
	Metrics  []MetricSeries `json:"metrics"`
	Logs     []LogEvent     `json:"logs"`
	Traces   []TraceSpan    `json:"traces"`
}

// EmptyBundle returns a bundle with empty (non-nil) collections, used when
// every fetch degraded.
func EmptyBundle() TelemetryBundle {
	return TelemetryBundle{
		Monitors: []Monitor{},
		Metrics:  []MetricSeries{},
		Logs:     []LogEvent{},
		Traces:   []TraceSpan{},
	}
}

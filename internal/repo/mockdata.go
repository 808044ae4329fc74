package repo

import (
	"fmt"
	"time"
)

// Deterministic synthetic telemetry served in mock mode. The shapes mirror a
// demo service under load with an error spike near the end of the window, so
// downstream anomaly scoring has something to find.

func mockMonitors() []Monitor {
	return []Monitor{
		{
			ID:       "101",
			Name:     "High error rate on demo-service",
			Query:    "sum(last_5m):sum:demo.http.errors.count{service:demo-service}.as_rate() > 5",
			Severity: "critical",
			Status:   "Alert",
			Tags:     []string{"service:demo-service", "team:platform"},
		},
		{
			ID:       "102",
			Name:     "p95 latency above 800ms",
			Query:    "avg(last_10m):p95:demo.http.request.duration{service:demo-service} > 0.8",
			Severity: "warning",
			Status:   "Warn",
			Tags:     []string{"service:demo-service"},
		},
	}
}

func mockMetricSeries(query string, from, to time.Time) []MetricSeries {
	if from.IsZero() || to.IsZero() || !to.After(from) {
		to = time.Now().UTC()
		from = to.Add(-time.Hour)
	}
	const samples = 60
	step := to.Sub(from) / samples

	points := make([]MetricPoint, 0, samples)
	for i := 0; i < samples; i++ {
		ts := from.Add(time.Duration(i) * step)
		value := 120.0 + 4.0*float64(i%7)
		if i >= samples-5 {
			value *= 3.2 // spike in the final window
		}
		points = append(points, MetricPoint{
			TimestampMS: float64(ts.UnixMilli()),
			Value:       value,
		})
	}
	return []MetricSeries{{
		Metric: "demo.http.requests.count",
		Points: points,
		Tags:   []string{"service:demo-service"},
	}}
}

func mockLogEvents(query string, from, to time.Time, limit int) []LogEvent {
	if from.IsZero() || to.IsZero() || !to.After(from) {
		to = time.Now().UTC()
		from = to.Add(-time.Hour)
	}
	count := 12
	if count > limit {
		count = limit
	}
	step := to.Sub(from) / time.Duration(count+1)

	events := make([]LogEvent, 0, count)
	for i := 0; i < count; i++ {
		status := "info"
		message := "request completed"
		if i >= count-4 {
			status = "error"
			message = "upstream connection refused: dial tcp 10.0.3.12:5432"
		}
		events = append(events, LogEvent{
			Timestamp: from.Add(time.Duration(i+1) * step),
			Service:   "demo-service",
			Status:    status,
			Message:   message,
		})
	}
	return events
}

func mockTraceSpans(service string, from, to time.Time, limit int) []TraceSpan {
	if service == "" {
		service = "demo-service"
	}
	if from.IsZero() || to.IsZero() || !to.After(from) {
		to = time.Now().UTC()
		from = to.Add(-time.Hour)
	}
	count := 8
	if count > limit {
		count = limit
	}
	step := to.Sub(from) / time.Duration(count+1)

	spans := make([]TraceSpan, 0, count)
	for i := 0; i < count; i++ {
		duration := 42.0 + 6.0*float64(i)
		status := "ok"
		if i >= count-2 {
			duration = 1450.0
			status = "error"
		}
		spans = append(spans, TraceSpan{
			TraceID:    fmt.Sprintf("trace-%04d", i+1),
			SpanID:     fmt.Sprintf("span-%04d", i+1),
			Service:    service,
			Resource:   "POST /checkout",
			DurationMS: duration,
			Status:     status,
			Timestamp:  from.Add(time.Duration(i+1) * step),
		})
	}
	return spans
}

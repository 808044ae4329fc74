package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels investigations where every stage produced a
	// model-backed result.
	OutcomeSuccess = "success"
	// OutcomeDegraded labels investigations that completed on one or more
	// stage fallbacks.
	OutcomeDegraded = "degraded"
)

var (
	investigationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incident_copilot",
			Name:      "investigations_total",
			Help:      "Total number of investigations handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	investigationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "incident_copilot",
			Name:      "investigation_seconds",
			Help:      "End-to-end investigation latency in seconds.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
	)

	stageFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incident_copilot",
			Name:      "stage_fallbacks_total",
			Help:      "Stage executions that substituted a fallback result, partitioned by stage and fault kind.",
		},
		[]string{"stage", "kind"},
	)

	forecastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incident_copilot",
			Name:      "forecasts_total",
			Help:      "Forecast passes, partitioned by result (ok, anomalous, unavailable).",
		},
		[]string{"result"},
	)
)

// Register attaches incident-copilot collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		investigationsTotal,
		investigationDurationSeconds,
		stageFallbacksTotal,
		forecastsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveInvestigation records an investigation duration and outcome label.
func ObserveInvestigation(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeDegraded {
		label = OutcomeSuccess
	}
	investigationsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	investigationDurationSeconds.Observe(duration.Seconds())
}

// ObserveStageFallback counts one fallback substitution for a stage.
func ObserveStageFallback(stage, kind string) {
	stageFallbacksTotal.WithLabelValues(stage, kind).Inc()
}

// ObserveForecast counts one forecast pass by result.
func ObserveForecast(result string) {
	forecastsTotal.WithLabelValues(result).Inc()
}

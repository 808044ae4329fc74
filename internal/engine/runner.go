// Package engine orchestrates one end-to-end incident investigation: open a
// working-memory session, fetch telemetry, forecast the metric series, run
// the analysis stages in order, persist the learned pattern, and close the
// session. No stage failure halts the pipeline; every degraded stage
// contributes its fallback value and the run always produces a structurally
// complete result.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/aidogstack/incident-copilot/internal/agents"
	"github.com/aidogstack/incident-copilot/internal/forecast"
	"github.com/aidogstack/incident-copilot/internal/memory"
	"github.com/aidogstack/incident-copilot/internal/metrics"
	"github.com/aidogstack/incident-copilot/internal/models"
	"github.com/aidogstack/incident-copilot/internal/patterns"
	"github.com/aidogstack/incident-copilot/internal/repo"
	"github.com/aidogstack/incident-copilot/internal/tools"
	"github.com/aidogstack/incident-copilot/internal/utils"
)

// Collector defines the telemetry vendor operations used by the runner.
type Collector interface {
	GetActiveMonitors(ctx context.Context, window time.Duration) ([]repo.Monitor, error)
	QueryMetrics(ctx context.Context, query string, from, to time.Time) ([]repo.MetricSeries, error)
	SearchLogs(ctx context.Context, query string, from, to time.Time, limit int) ([]repo.LogEvent, error)
	FetchTraces(ctx context.Context, service string, from, to time.Time, limit int) ([]repo.TraceSpan, error)
}

// Result is the aggregated output of one investigation. Collections are
// always non-nil; a fully degraded run yields empty collections, never a
// partially absent structure.
type Result struct {
	SessionID       string                          `json:"session_id"`
	Envelope        models.IncidentEnvelope         `json:"envelope"`
	Evidence        repo.TelemetryBundle            `json:"evidence"`
	Forecasts       []forecast.Forecast             `json:"forecasts"`
	Hypotheses      []models.Hypothesis             `json:"hypotheses"`
	GuidedSteps     []models.GuidedStep             `json:"guided_steps"`
	Recommendations []models.RecommendationProposal `json:"recommendations"`
	TestPlan        *models.TestPlan                `json:"test_plan,omitempty"`
	BehaviorSummary string                          `json:"behavior_summary,omitempty"`
	Events          []memory.Event                  `json:"events"`
	Degraded        bool                            `json:"degraded"`
}

// Runner drives the linear investigation pipeline. All collaborators are
// injected; only sessions and the stage agents are required, the rest
// degrade to documented fallbacks when nil.
type Runner struct {
	logger       *slog.Logger
	sessions     *memory.Store
	collector    Collector
	forecaster   *forecast.Forecaster
	summarizer   *agents.IncidentSummarizer
	ranker       *agents.HypothesisRanker
	planner      *agents.GuidedStepsPlanner
	designer     *agents.RecommendationDesigner
	tester       *agents.TestPlanner
	miner        *agents.BehaviorMiner
	patterns     patterns.Store
	patternMiner *patterns.Miner
	latency      *utils.LatencyTracker
	horizon      int
	lookback     time.Duration
}

// NewRunner constructs a Runner.
func NewRunner(
	logger *slog.Logger,
	sessions *memory.Store,
	collector Collector,
	forecaster *forecast.Forecaster,
	summarizer *agents.IncidentSummarizer,
	ranker *agents.HypothesisRanker,
	planner *agents.GuidedStepsPlanner,
	designer *agents.RecommendationDesigner,
	tester *agents.TestPlanner,
	miner *agents.BehaviorMiner,
	patternStore patterns.Store,
	horizon int,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if horizon <= 0 {
		horizon = forecast.DefaultHorizon
	}
	return &Runner{
		logger:       logger,
		sessions:     sessions,
		collector:    collector,
		forecaster:   forecaster,
		summarizer:   summarizer,
		ranker:       ranker,
		planner:      planner,
		designer:     designer,
		tester:       tester,
		miner:        miner,
		patterns:     patternStore,
		patternMiner: patterns.NewMiner(logger),
		latency:      utils.NewLatencyTracker(256),
		horizon:      horizon,
		lookback:     time.Hour,
	}
}

// Run executes the full investigation for one incident. The returned result
// is always structurally complete; Degraded reports whether any stage or
// fetch substituted a fallback.
func (r *Runner) Run(ctx context.Context, incident models.Incident, profile models.MemoryProfile) Result {
	started := time.Now()
	sessionID := r.sessions.CreateSession(ctx, incident.ID, profile.UserID)

	r.sessions.AppendEvent(sessionID, "runner_start", map[string]any{
		"incident_id":      incident.ID,
		"user_id":          profile.UserID,
		"tools_registered": tools.Names(),
	})
	r.sessions.StoreSlot(ctx, sessionID, "current_incident", incident)

	degraded := false

	bundle := r.fetchTelemetry(ctx, sessionID, incident, &degraded)
	r.sessions.StoreSlot(ctx, sessionID, "last_tool_output", map[string]any{
		"monitors": len(bundle.Monitors),
		"metrics":  len(bundle.Metrics),
		"logs":     len(bundle.Logs),
		"traces":   len(bundle.Traces),
	})

	forecasts := r.forecastSeries(ctx, sessionID, bundle)

	envelope := r.summarize(ctx, sessionID, incident, bundle, &degraded)

	hypotheses := r.rankHypotheses(ctx, sessionID, bundle, profile, &degraded)

	steps := r.planSteps(ctx, sessionID, envelope, profile, bundle, hypotheses, &degraded)

	recommendations := r.designRecommendations(ctx, sessionID, hypotheses, profile, &degraded)

	testPlan := r.planTests(ctx, sessionID, envelope, bundle, recommendations, &degraded)

	r.sessions.StoreSlot(ctx, sessionID, "investigation_graph", map[string]any{
		"hypotheses":      len(hypotheses),
		"guided_steps":    len(steps),
		"recommendations": len(recommendations),
		"forecasts":       len(forecasts),
	})

	r.persistPattern(ctx, sessionID, profile.UserID, envelope, hypotheses, recommendations)

	behaviorSummary := r.mineBehavior(ctx, sessionID, &degraded)

	r.sessions.AppendEvent(sessionID, "runner_complete", map[string]any{
		"hypotheses":      len(hypotheses),
		"recommendations": len(recommendations),
		"degraded":        degraded,
	})
	r.sessions.CloseSession(sessionID)

	elapsed := time.Since(started)
	r.latency.Observe(elapsed)
	outcome := metrics.OutcomeSuccess
	if degraded {
		outcome = metrics.OutcomeDegraded
	}
	metrics.ObserveInvestigation(elapsed, outcome)
	r.logger.Info("investigation complete",
		slog.String("session_id", sessionID),
		slog.Bool("degraded", degraded),
		slog.Duration("elapsed", elapsed),
		slog.Duration("p95", r.latency.Percentile(95)),
	)

	return Result{
		SessionID:       sessionID,
		Envelope:        envelope,
		Evidence:        bundle,
		Forecasts:       forecasts,
		Hypotheses:      hypotheses,
		GuidedSteps:     steps,
		Recommendations: recommendations,
		TestPlan:        testPlan,
		BehaviorSummary: behaviorSummary,
		Events:          r.sessions.Events(sessionID),
		Degraded:        degraded,
	}
}

// fetchTelemetry gathers all four signal types. Each fetch degrades
// independently to an empty collection; a vendor outage never stops the run.
func (r *Runner) fetchTelemetry(ctx context.Context, sessionID string, incident models.Incident, degraded *bool) repo.TelemetryBundle {
	bundle := repo.EmptyBundle()
	if r.collector == nil {
		*degraded = true
		r.sessions.AppendEvent(sessionID, "tool_call", map[string]any{
			"agent": "collector", "action": "fetch_telemetry", "status": "error",
		})
		return bundle
	}

	to := time.Now().UTC()
	from := to.Add(-r.lookback)
	checked := make([]string, 0, 4)

	r.toolCall(sessionID, "get_active_monitors", "running")
	monitors, err := r.collector.GetActiveMonitors(ctx, r.lookback)
	if err != nil {
		r.degradeFetch(sessionID, "get_active_monitors", err, degraded)
	} else {
		bundle.Monitors = monitors
		r.toolCall(sessionID, "get_active_monitors", "complete")
		checked = append(checked, "get_active_monitors")
	}

	query := metricQuery(incident.Services)
	r.toolCall(sessionID, "query_metrics", "running")
	series, err := r.collector.QueryMetrics(ctx, query, from, to)
	if err != nil {
		r.degradeFetch(sessionID, "query_metrics", err, degraded)
	} else {
		bundle.Metrics = series
		r.toolCall(sessionID, "query_metrics", "complete")
		checked = append(checked, "query_metrics")
	}

	r.toolCall(sessionID, "search_logs", "running")
	logs, err := r.collector.SearchLogs(ctx, logQuery(incident.Services), from, to, 50)
	if err != nil {
		r.degradeFetch(sessionID, "search_logs", err, degraded)
	} else {
		bundle.Logs = logs
		r.toolCall(sessionID, "search_logs", "complete")
		checked = append(checked, "search_logs")
	}

	service := ""
	if len(incident.Services) > 0 {
		service = incident.Services[0]
	}
	r.toolCall(sessionID, "fetch_traces", "running")
	traces, err := r.collector.FetchTraces(ctx, service, from, to, 50)
	if err != nil {
		r.degradeFetch(sessionID, "fetch_traces", err, degraded)
	} else {
		bundle.Traces = traces
		r.toolCall(sessionID, "fetch_traces", "complete")
		checked = append(checked, "fetch_traces")
	}

	r.sessions.StoreSlot(ctx, sessionID, "checked_items", checked)
	return bundle
}

// forecastSeries runs the forecaster over every fetched metric series. A nil
// forecast is the supported degraded mode, not a pipeline failure.
func (r *Runner) forecastSeries(ctx context.Context, sessionID string, bundle repo.TelemetryBundle) []forecast.Forecast {
	forecasts := make([]forecast.Forecast, 0, len(bundle.Metrics))
	if r.forecaster == nil || len(bundle.Metrics) == 0 {
		return forecasts
	}

	scores := make(map[string]float64, len(bundle.Metrics))
	for _, series := range bundle.Metrics {
		r.toolCall(sessionID, "forecast_series", "running")
		fc := r.forecaster.Forecast(ctx, series.Values(), seriesInterval(series), series.Metric, r.horizon)
		if fc == nil {
			metrics.ObserveForecast("unavailable")
			r.toolCall(sessionID, "forecast_series", "error")
			continue
		}
		if fc.IsAnomalous {
			metrics.ObserveForecast("anomalous")
		} else {
			metrics.ObserveForecast("ok")
		}
		r.toolCall(sessionID, "forecast_series", "complete")
		scores[series.Metric] = fc.AnomalyScore
		forecasts = append(forecasts, *fc)
	}

	if len(scores) > 0 {
		r.sessions.StoreSlot(ctx, sessionID, "anomaly_scores", scores)
	}
	return forecasts
}

func (r *Runner) summarize(ctx context.Context, sessionID string, incident models.Incident, bundle repo.TelemetryBundle, degraded *bool) models.IncidentEnvelope {
	r.agentCall(sessionID, "incident_summarizer", "running")
	envelope, err := r.summarizer.Summarize(ctx, bundle)
	r.finishStage(sessionID, "incident_summarizer", err, degraded)

	// A fallback envelope is empty; seed it from the caller's incident so
	// downstream stages still have real context to work with.
	if envelope.Title == "" {
		envelope.Title = incident.Title
	}
	if envelope.Description == "" {
		envelope.Description = incident.Description
	}
	if envelope.Severity == "" {
		envelope.Severity = incident.Severity
	}
	if envelope.StartedAt == "" && !incident.StartedAt.IsZero() {
		envelope.StartedAt = incident.StartedAt.UTC().Format(time.RFC3339)
	}
	if len(envelope.AffectedServices) == 0 && len(incident.Services) > 0 {
		envelope.AffectedServices = append([]string(nil), incident.Services...)
	}
	return envelope
}

func (r *Runner) rankHypotheses(ctx context.Context, sessionID string, bundle repo.TelemetryBundle, profile models.MemoryProfile, degraded *bool) []models.Hypothesis {
	// Recurring per-service templates mined from the user's investigation
	// history bias the ranker toward failures this user has seen before.
	servicePatterns := r.patternMiner.Mine(profile.Patterns)

	r.agentCall(sessionID, "hypothesis_ranker", "running")
	ranked, err := r.ranker.Rank(ctx, bundle, profile.Patterns, servicePatterns)
	r.finishStage(sessionID, "hypothesis_ranker", err, degraded)

	top := make([]string, 0, 3)
	for i, h := range ranked.Hypotheses {
		if i == 3 {
			break
		}
		top = append(top, h.Label())
	}
	r.sessions.StoreSlot(ctx, sessionID, "open_hypotheses", top)
	return ranked.Hypotheses
}

func (r *Runner) planSteps(ctx context.Context, sessionID string, envelope models.IncidentEnvelope, profile models.MemoryProfile, bundle repo.TelemetryBundle, hypotheses []models.Hypothesis, degraded *bool) []models.GuidedStep {
	summary := agents.TelemetrySummary{
		MonitorsCount:   len(bundle.Monitors),
		LogsCount:       len(bundle.Logs),
		TracesCount:     len(bundle.Traces),
		TopHypotheses:   make([]string, 0, len(hypotheses)),
		LearnedPatterns: make([]string, 0, len(profile.Patterns)),
	}
	for _, h := range hypotheses {
		summary.TopHypotheses = append(summary.TopHypotheses, h.Label())
	}
	for _, p := range profile.Patterns {
		summary.LearnedPatterns = append(summary.LearnedPatterns, p.Description)
	}

	r.agentCall(sessionID, "guided_steps", "running")
	planned, err := r.planner.Plan(ctx, envelope, profile.Preferences, summary, tools.Names())
	r.finishStage(sessionID, "guided_steps", err, degraded)
	return planned.Steps
}

func (r *Runner) designRecommendations(ctx context.Context, sessionID string, hypotheses []models.Hypothesis, profile models.MemoryProfile, degraded *bool) []models.RecommendationProposal {
	digest := make([]agents.HypothesisContext, 0, len(hypotheses))
	for _, h := range hypotheses {
		digest = append(digest, agents.HypothesisContext{
			ID:          h.ID,
			Title:       h.Label(),
			Description: h.Description,
			Confidence:  h.Confidence,
		})
	}

	r.agentCall(sessionID, "recommendation_designer", "running")
	designed, err := r.designer.Design(ctx, digest, map[string]any{
		"action_style":    profile.Preferences.ActionStyle,
		"noise_tolerance": profile.Preferences.NoiseTolerance,
		"focus_areas":     profile.Preferences.FocusAreas,
	})
	r.finishStage(sessionID, "recommendation_designer", err, degraded)
	return designed.Recommendations
}

// planTests generates a validation plan for the top recommendation only.
// Skipped entirely when no test planner is configured or nothing was
// recommended.
func (r *Runner) planTests(ctx context.Context, sessionID string, envelope models.IncidentEnvelope, bundle repo.TelemetryBundle, recommendations []models.RecommendationProposal, degraded *bool) *models.TestPlan {
	if r.tester == nil || len(recommendations) == 0 {
		return nil
	}

	r.agentCall(sessionID, "test_planner", "running")
	planned, err := r.tester.Generate(ctx, recommendations[0], envelope.PrimarySymptom, map[string]any{
		"monitors": len(bundle.Monitors),
		"metrics":  len(bundle.Metrics),
		"logs":     len(bundle.Logs),
		"traces":   len(bundle.Traces),
	})
	r.finishStage(sessionID, "test_planner", err, degraded)
	if planned.Plan != nil {
		r.sessions.StoreSlot(ctx, sessionID, "test_plan", planned.Plan)
	}
	return planned.Plan
}

// mineBehavior runs the behavior miner over this session's event log. The
// accept and reject lists stay empty during a live run; decisions arrive
// after the user reviews the output.
func (r *Runner) mineBehavior(ctx context.Context, sessionID string, degraded *bool) string {
	if r.miner == nil {
		return ""
	}

	r.agentCall(sessionID, "behavior_miner", "running")
	mined, err := r.miner.Analyze(ctx, r.sessions.Events(sessionID), nil, nil)
	r.finishStage(sessionID, "behavior_miner", err, degraded)
	if len(mined.PreferenceAdjustments) > 0 {
		r.sessions.StoreSlot(ctx, sessionID, "preference_adjustments", mined.PreferenceAdjustments)
	}
	return mined.Summary
}

// persistPattern writes the learned pattern to the durable store. Failures
// are logged and swallowed; the session outcome is never tied to the store.
func (r *Runner) persistPattern(ctx context.Context, sessionID, userID string, envelope models.IncidentEnvelope, hypotheses []models.Hypothesis, recommendations []models.RecommendationProposal) {
	if r.patterns == nil {
		return
	}
	pattern := patterns.Build(envelope, hypotheses, recommendations)
	if err := r.patterns.StorePattern(ctx, userID, pattern); err != nil {
		r.logger.Warn("pattern persist failed", slog.String("user_id", userID), slog.Any("error", err))
		return
	}
	r.sessions.AppendEvent(sessionID, "memory_update", map[string]any{
		"key":        "learned_patterns",
		"pattern_id": pattern.ID,
	})
}

func (r *Runner) toolCall(sessionID, action, status string) {
	r.sessions.AppendEvent(sessionID, "tool_call", map[string]any{
		"agent":  "collector",
		"action": action,
		"status": status,
	})
}

func (r *Runner) agentCall(sessionID, agent, status string) {
	r.sessions.AppendEvent(sessionID, "agent_call", map[string]any{
		"agent":  agent,
		"status": status,
	})
}

func (r *Runner) finishStage(sessionID, stage string, err error, degraded *bool) {
	if err != nil {
		*degraded = true
		metrics.ObserveStageFallback(stage, string(utils.KindOf(err)))
		r.logger.Warn("stage degraded", slog.String("stage", stage), slog.Any("error", err))
	}
	r.agentCall(sessionID, stage, "complete")
}

func (r *Runner) degradeFetch(sessionID, action string, err error, degraded *bool) {
	*degraded = true
	r.toolCall(sessionID, action, "error")
	r.logger.Warn("telemetry fetch degraded", slog.String("action", action), slog.Any("error", err))
}

func metricQuery(services []string) string {
	if len(services) == 0 {
		return "avg:system.load.1{*}"
	}
	return "avg:trace.http.request.hits{service:" + services[0] + "}.as_count()"
}

func logQuery(services []string) string {
	if len(services) == 0 {
		return "status:error"
	}
	return "status:error service:" + services[0]
}

// seriesInterval derives the sampling interval from the first two points,
// defaulting to one minute.
func seriesInterval(series repo.MetricSeries) int {
	if len(series.Points) < 2 {
		return 60
	}
	delta := (series.Points[1].TimestampMS - series.Points[0].TimestampMS) / 1000
	if delta <= 0 {
		return 60
	}
	return int(delta)
}

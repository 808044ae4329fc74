package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aidogstack/incident-copilot/internal/agents"
	"github.com/aidogstack/incident-copilot/internal/llm"
	"github.com/aidogstack/incident-copilot/internal/memory"
	"github.com/aidogstack/incident-copilot/internal/models"
	"github.com/aidogstack/incident-copilot/internal/patterns"
	"github.com/aidogstack/incident-copilot/internal/repo"
	"github.com/aidogstack/incident-copilot/internal/utils"
)

type fakeCollector struct {
	fail bool
}

func (f *fakeCollector) GetActiveMonitors(ctx context.Context, window time.Duration) ([]repo.Monitor, error) {
	if f.fail {
		return nil, errors.New("vendor down")
	}
	return []repo.Monitor{{ID: "1", Name: "High latency", Severity: "critical", Status: "Alert"}}, nil
}

func (f *fakeCollector) QueryMetrics(ctx context.Context, query string, from, to time.Time) ([]repo.MetricSeries, error) {
	if f.fail {
		return nil, errors.New("vendor down")
	}
	points := make([]repo.MetricPoint, 0, 10)
	for i := 0; i < 10; i++ {
		points = append(points, repo.MetricPoint{TimestampMS: float64(i * 60000), Value: float64(i)})
	}
	return []repo.MetricSeries{{Metric: "demo.requests", Points: points}}, nil
}

func (f *fakeCollector) SearchLogs(ctx context.Context, query string, from, to time.Time, limit int) ([]repo.LogEvent, error) {
	if f.fail {
		return nil, errors.New("vendor down")
	}
	return []repo.LogEvent{{Service: "checkout", Status: "error", Message: "pool exhausted"}}, nil
}

func (f *fakeCollector) FetchTraces(ctx context.Context, service string, from, to time.Time, limit int) ([]repo.TraceSpan, error) {
	if f.fail {
		return nil, errors.New("vendor down")
	}
	return []repo.TraceSpan{{TraceID: "t1", Service: "checkout", DurationMS: 2500, Status: "error"}}, nil
}

// fullResponse satisfies every stage schema at once; unknown fields are
// ignored per stage, so one payload drives the whole happy path.
const fullResponse = `{
  "title": "Checkout latency surge",
  "description": "p99 latency doubled after deploy",
  "started_at": "2026-08-28T10:00:00Z",
  "affected_services": ["checkout"],
  "blast_radius": "1 service, 20% of traffic",
  "severity": "critical",
  "primary_symptom": "latency",
  "hypotheses": [
    {"id": "h1", "title": "Pool exhaustion", "description": "DB pool exhausted", "confidence": 80, "evidence": [], "reasoning": "errors correlate with latency"}
  ],
  "steps": [
    {"id": "s1", "title": "Check pool", "description": "inspect pool metrics", "action_type": "query_metrics", "action_params": {}, "rationale": "most direct signal", "priority": 9}
  ],
  "reasoning": "start with the database",
  "recommendations": [
    {"id": "r1", "type": "monitor_tune", "title": "Tighten pool alert", "description": "alert at 80% saturation", "confidence": 70, "rationale": "earlier warning"}
  ],
  "plan": {"name": "Validate tuning", "description": "confirm the alert fires earlier", "steps": [], "validation_criteria": "alert fires before saturation", "failure_interpretation": "threshold still too high"},
  "patterns": [],
  "preference_adjustments": [],
  "summary": "one strong hypothesis",
  "rationale": "validates the threshold change"
}`

type scriptedProvider struct {
	raw     string
	err     error
	prompts []string
}

func (p *scriptedProvider) GenerateJSON(ctx context.Context, messages []llm.Message, systemPrompt string, temperature float32, maxTokens int) (json.RawMessage, error) {
	if len(messages) > 0 {
		p.prompts = append(p.prompts, messages[0].Content)
	}
	if p.err != nil {
		return nil, p.err
	}
	return json.RawMessage(p.raw), nil
}

func newTestRunner(provider llm.Provider, collector Collector, store patterns.Store) (*Runner, *memory.Store) {
	sessions := memory.NewStore(nil, nil)
	runner := NewRunner(
		nil,
		sessions,
		collector,
		nil,
		agents.NewIncidentSummarizer(provider, nil),
		agents.NewHypothesisRanker(provider, nil),
		agents.NewGuidedStepsPlanner(provider, nil),
		agents.NewRecommendationDesigner(provider, nil),
		agents.NewTestPlanner(provider, nil),
		agents.NewBehaviorMiner(provider, nil),
		store,
		10,
	)
	return runner, sessions
}

func testIncident() models.Incident {
	return models.Incident{
		ID:          "inc-7",
		Title:       "Checkout latency",
		Description: "p99 latency doubled",
		Severity:    "critical",
		Services:    []string{"checkout"},
		StartedAt:   time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
	}
}

func testProfile() models.MemoryProfile {
	return models.MemoryProfile{
		UserID:      "alice",
		Preferences: models.DefaultPreferences("SRE"),
		Patterns:    []models.LearnedPattern{},
	}
}

func TestRunnerFullPipeline(t *testing.T) {
	stored := 0
	store := patterns.StoreFunc(func(ctx context.Context, userID string, pattern models.LearnedPattern) error {
		stored++
		if userID != "alice" {
			t.Errorf("pattern stored for user %q", userID)
		}
		return nil
	})

	runner, sessions := newTestRunner(&scriptedProvider{raw: fullResponse}, &fakeCollector{}, store)
	result := runner.Run(context.Background(), testIncident(), testProfile())

	if result.Degraded {
		t.Fatal("pipeline reported degraded on clean run")
	}
	if result.Envelope.Title != "Checkout latency surge" {
		t.Fatalf("unexpected envelope title %q", result.Envelope.Title)
	}
	if len(result.Hypotheses) != 1 || result.Hypotheses[0].ID != "h1" {
		t.Fatalf("unexpected hypotheses %+v", result.Hypotheses)
	}
	if len(result.GuidedSteps) != 1 || result.GuidedSteps[0].ActionType != "query_metrics" {
		t.Fatalf("unexpected steps %+v", result.GuidedSteps)
	}
	if len(result.Recommendations) != 1 {
		t.Fatalf("unexpected recommendations %+v", result.Recommendations)
	}
	if result.TestPlan == nil || result.TestPlan.Name != "Validate tuning" {
		t.Fatalf("unexpected test plan %+v", result.TestPlan)
	}
	if stored != 1 {
		t.Fatalf("expected 1 stored pattern, got %d", stored)
	}
	if !sessions.Closed(result.SessionID) {
		t.Fatal("session left open")
	}
	if !strings.HasPrefix(result.SessionID, "incident-inc-7-user-alice-") {
		t.Fatalf("unexpected session id %q", result.SessionID)
	}
}

func TestRunnerEventLog(t *testing.T) {
	runner, _ := newTestRunner(&scriptedProvider{raw: fullResponse}, &fakeCollector{}, nil)
	result := runner.Run(context.Background(), testIncident(), testProfile())

	if len(result.Events) == 0 {
		t.Fatal("no events recorded")
	}
	if result.Events[0].Kind != "runner_start" {
		t.Fatalf("first event %q, want runner_start", result.Events[0].Kind)
	}
	if last := result.Events[len(result.Events)-1]; last.Kind != "runner_complete" {
		t.Fatalf("last event %q, want runner_complete", last.Kind)
	}

	// Every tool and agent call must log running before complete.
	running := map[string]int{}
	for i, e := range result.Events {
		if e.Kind != "tool_call" && e.Kind != "agent_call" {
			continue
		}
		name, _ := e.Payload["action"].(string)
		if name == "" {
			name, _ = e.Payload["agent"].(string)
		}
		switch e.Payload["status"] {
		case "running":
			running[name] = i
		case "complete":
			start, ok := running[name]
			if !ok || start >= i {
				t.Fatalf("complete without prior running for %q at event %d", name, i)
			}
		}
	}

	if tools, ok := result.Events[0].Payload["tools_registered"].([]string); !ok || len(tools) == 0 {
		t.Fatalf("runner_start missing registered tools: %v", result.Events[0].Payload)
	}
}

func TestRunnerAllDependenciesDown(t *testing.T) {
	providerErr := utils.NewFault("llm.generate", utils.KindExternalUnavailable, errors.New("no credential"))
	runner, sessions := newTestRunner(&scriptedProvider{err: providerErr}, &fakeCollector{fail: true}, nil)

	incident := testIncident()
	result := runner.Run(context.Background(), incident, testProfile())

	if !result.Degraded {
		t.Fatal("expected degraded run")
	}
	if result.Hypotheses == nil || result.GuidedSteps == nil || result.Recommendations == nil || result.Forecasts == nil {
		t.Fatalf("degraded run returned nil collections: %+v", result)
	}
	if len(result.Hypotheses) != 0 || len(result.Recommendations) != 0 {
		t.Fatalf("expected empty fallback collections, got %+v", result)
	}
	if result.TestPlan != nil {
		t.Fatalf("expected no test plan without recommendations, got %+v", result.TestPlan)
	}
	if result.Envelope.Title != incident.Title {
		t.Fatalf("fallback envelope not seeded from incident: %q", result.Envelope.Title)
	}
	if result.Evidence.Monitors == nil || len(result.Evidence.Monitors) != 0 {
		t.Fatalf("expected empty evidence bundle, got %+v", result.Evidence)
	}
	if last := result.Events[len(result.Events)-1]; last.Kind != "runner_complete" {
		t.Fatalf("degraded run did not complete: last event %q", last.Kind)
	}
	if !sessions.Closed(result.SessionID) {
		t.Fatal("degraded run left session open")
	}
}

func TestRunnerMinesProfileHistoryForRanker(t *testing.T) {
	provider := &scriptedProvider{raw: fullResponse}
	runner, _ := newTestRunner(provider, &fakeCollector{}, nil)

	now := time.Now().UTC()
	profile := testProfile()
	profile.Patterns = []models.LearnedPattern{
		{Services: []string{"checkout"}, PrimarySymptom: "latency", Timestamp: now.Add(-time.Hour)},
		{Services: []string{"checkout"}, PrimarySymptom: "latency", Timestamp: now},
	}

	runner.Run(context.Background(), testIncident(), profile)

	found := false
	for _, prompt := range provider.prompts {
		if strings.Contains(prompt, "service_patterns") && strings.Contains(prompt, "pattern-checkout") {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("mined service patterns never reached the ranker context")
	}
}

func TestRunnerPatternStoreFailureIsSwallowed(t *testing.T) {
	store := patterns.StoreFunc(func(ctx context.Context, userID string, pattern models.LearnedPattern) error {
		return errors.New("redis down")
	})
	runner, _ := newTestRunner(&scriptedProvider{raw: fullResponse}, &fakeCollector{}, store)
	result := runner.Run(context.Background(), testIncident(), testProfile())

	if result.Degraded {
		t.Fatal("pattern store failure must not degrade the run")
	}
	if last := result.Events[len(result.Events)-1]; last.Kind != "runner_complete" {
		t.Fatalf("run did not complete: %q", last.Kind)
	}
}

func TestSeriesInterval(t *testing.T) {
	series := repo.MetricSeries{Points: []repo.MetricPoint{
		{TimestampMS: 0}, {TimestampMS: 30000},
	}}
	if got := seriesInterval(series); got != 30 {
		t.Fatalf("seriesInterval = %d, want 30", got)
	}
	if got := seriesInterval(repo.MetricSeries{}); got != 60 {
		t.Fatalf("default interval = %d, want 60", got)
	}
}

package agents

import (
	"context"
	"log/slog"

	"github.com/aidogstack/incident-copilot/internal/llm"
	"github.com/aidogstack/incident-copilot/internal/models"
)

const stepsSystemPrompt = `You are an investigation guide agent that suggests the next best steps for investigating an incident.

Given an incident envelope, memory profile, and telemetry summary, generate 3-7 actionable investigation steps.
Each step should:
- Have a clear title and description
- Specify the action type (query_metrics, search_logs, fetch_traces, etc.)
- Include action parameters
- Provide rationale for why this step is useful
- Have a priority (1-10, higher is more important)

Consider the user's learned patterns and preferences when suggesting steps.

Output must be valid JSON matching the schema.`

const stepsInstruction = `Generate 3-7 guided investigation steps for this incident.
Each step should include:
- id: Unique identifier
- title: Short title
- description: What this step does
- action_type: one of the available tools listed in the context
- action_params: Parameters for the action (as object)
- rationale: Why this step is useful
- priority: 1-10 (higher = more important)

Consider the user's preferences and learned patterns from memory_profile.

Return JSON with steps (list) and reasoning (string).`

// TelemetrySummary is the compact upstream digest handed to the guided-steps
// stage; it is derived from whatever earlier stages produced and never a
// hard dependency on non-empty data.
type TelemetrySummary struct {
	MonitorsCount   int      `json:"monitors_count"`
	LogsCount       int      `json:"logs_count"`
	TracesCount     int      `json:"traces_count"`
	TopHypotheses   []string `json:"top_hypotheses"`
	LearnedPatterns []string `json:"learned_patterns"`
}

// GuidedStepsPlanner proposes the next investigation actions.
type GuidedStepsPlanner struct {
	stage *stage[models.GuidedStepsOutput]
}

// NewGuidedStepsPlanner constructs the guided-steps stage.
func NewGuidedStepsPlanner(provider llm.Provider, logger *slog.Logger) *GuidedStepsPlanner {
	return &GuidedStepsPlanner{
		stage: newStage("guided_steps", provider, logger,
			stepsSystemPrompt, models.DefaultGuidedStepsOutput, 0.3, 2000),
	}
}

// Plan generates guided steps personalized by the user's preferences. The
// availableTools names come from the read-only tool catalog.
func (a *GuidedStepsPlanner) Plan(ctx context.Context, envelope models.IncidentEnvelope, prefs models.Preferences, summary TelemetrySummary, availableTools []string) (models.GuidedStepsOutput, error) {
	return a.stage.execute(ctx, stepsInstruction, map[string]any{
		"incident":          envelope,
		"memory_profile":    prefs,
		"telemetry_summary": summary,
		"available_tools":   availableTools,
	})
}

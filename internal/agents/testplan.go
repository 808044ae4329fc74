package agents

import (
	"context"
	"log/slog"

	"github.com/aidogstack/incident-copilot/internal/llm"
	"github.com/aidogstack/incident-copilot/internal/models"
)

const testPlanSystemPrompt = `You are a test plan generator agent that creates test plans for validating recommendations.

Given a recommendation, incident type, and telemetry signature, generate a test plan with:
- Name and description
- Test steps (what to validate)
- Validation criteria (how to interpret results)
- Failure interpretation (what failures mean)

Test steps should be actionable and validate the recommendation's effectiveness.

Output must be valid JSON matching the schema.`

const testPlanInstruction = `Generate a test plan for validating this recommendation.
The plan should include:
- name: Test plan name
- description: What this test validates
- steps: List of test steps (name, description, type, params, expected_result)
- validation_criteria: How to interpret test results
- failure_interpretation: What test failures indicate

Return JSON with plan (object) and rationale (string).`

// TestPlanner designs validation plans for accepted recommendations.
type TestPlanner struct {
	stage *stage[models.TestPlanOutput]
}

// NewTestPlanner constructs the test-planner stage.
func NewTestPlanner(provider llm.Provider, logger *slog.Logger) *TestPlanner {
	return &TestPlanner{
		stage: newStage("test_planner", provider, logger,
			testPlanSystemPrompt, models.DefaultTestPlanOutput, 0.3, 3000),
	}
}

// Generate produces a test plan for one recommendation.
func (a *TestPlanner) Generate(ctx context.Context, recommendation models.RecommendationProposal, incidentType string, telemetrySignature map[string]any) (models.TestPlanOutput, error) {
	return a.stage.execute(ctx, testPlanInstruction, map[string]any{
		"recommendation":      recommendation,
		"incident_type":       incidentType,
		"telemetry_signature": telemetrySignature,
	})
}

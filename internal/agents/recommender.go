package agents

import (
	"context"
	"log/slog"

	"github.com/aidogstack/incident-copilot/internal/llm"
	"github.com/aidogstack/incident-copilot/internal/models"
)

const recommenderSystemPrompt = `You are a recommendation designer agent that creates actionable proposals based on hypotheses and user preferences.

Generate recommendations for:
- Monitor tuning (threshold adjustments, query improvements)
- Dashboard creation (new correlation panels)
- SLO definitions (new service level objectives)
- Shortcut templates (reusable investigation shortcuts)
- Hypothesis validation (ways to test hypotheses)

Each recommendation must include:
- Type (monitor_tune, dashboard, slo, shortcut, hypothesis)
- Title and description
- Confidence score (0-100)
- Export payload (JSON that can be applied)
- CLI snippet (optional, for applying the change)
- Rationale

Consider user preferences (conservative vs aggressive, noise tolerance, focus areas).

Output must be valid JSON matching the schema.`

const recommenderInstruction = `Generate actionable recommendations based on the hypotheses and user preferences.
Each recommendation should include:
- id: Unique identifier
- type: monitor_tune, dashboard, slo, shortcut, or hypothesis
- title: Short title
- description: What this recommendation does
- confidence: 0-100 score
- export_payload: JSON payload with type and payload fields, plus optional cli_snippet
- rationale: Why this recommendation is valuable

Consider user preferences for action style and focus areas.

Return JSON with recommendations (list) and summary (string).`

// HypothesisContext is the lean hypothesis digest handed to the designer;
// verbose evidence lists are dropped to stay inside the token budget.
type HypothesisContext struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Confidence  int    `json:"confidence"`
}

// RecommendationDesigner turns hypotheses into applyable proposals.
type RecommendationDesigner struct {
	stage *stage[models.RecommendationDesignerOutput]
}

// NewRecommendationDesigner constructs the designer stage.
func NewRecommendationDesigner(provider llm.Provider, logger *slog.Logger) *RecommendationDesigner {
	return &RecommendationDesigner{
		stage: newStage("recommendation_designer", provider, logger,
			recommenderSystemPrompt, models.DefaultRecommendationDesignerOutput, 0.3, 4000),
	}
}

// Design produces recommendations from the hypothesis digest and the user's
// preferences plus incident context.
func (a *RecommendationDesigner) Design(ctx context.Context, hypotheses []HypothesisContext, preferences map[string]any) (models.RecommendationDesignerOutput, error) {
	if hypotheses == nil {
		hypotheses = []HypothesisContext{}
	}
	return a.stage.execute(ctx, recommenderInstruction, map[string]any{
		"hypotheses":       hypotheses,
		"user_preferences": preferences,
	})
}

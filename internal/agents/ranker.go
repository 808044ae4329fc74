package agents

import (
	"context"
	"log/slog"

	"github.com/aidogstack/incident-copilot/internal/llm"
	"github.com/aidogstack/incident-copilot/internal/models"
	"github.com/aidogstack/incident-copilot/internal/repo"
)

const rankerSystemPrompt = `You are a hypothesis ranking agent that analyzes telemetry evidence to rank potential root causes.

Given telemetry evidence and known patterns, generate ranked hypotheses with:
- Description of the hypothesis
- Confidence score (0-100)
- Evidence pointers (metrics, logs, traces that support this)
- Reasoning

Rank hypotheses by confidence and evidence strength.

Output must be valid JSON matching the schema.`

const rankerInstruction = `Analyze the telemetry evidence and generate ranked hypotheses for the root cause.
Each hypothesis should include:
- id: Unique identifier (e.g. "h1", "h2")
- title: Short title for the hypothesis (e.g. "Database connection pool exhausted")
- description: What the hypothesis proposes
- confidence: 0-100 score
- evidence: List of evidence pointers, each with type (metric/log/trace), source, key_findings (list of strings)
- reasoning: Why this hypothesis is plausible

Rank by confidence (highest first). Generate 3-5 hypotheses.

Return JSON with hypotheses (list) and summary (string).`

// HypothesisRanker ranks candidate root causes against the evidence.
type HypothesisRanker struct {
	stage *stage[models.HypothesisRankerOutput]
}

// NewHypothesisRanker constructs the ranker stage.
func NewHypothesisRanker(provider llm.Provider, logger *slog.Logger) *HypothesisRanker {
	return &HypothesisRanker{
		stage: newStage("hypothesis_ranker", provider, logger,
			rankerSystemPrompt, models.DefaultHypothesisRankerOutput, 0.3, 2000),
	}
}

// Rank produces ranked hypotheses from the evidence, the user's learned
// patterns, and the recurring per-service patterns mined from them.
func (a *HypothesisRanker) Rank(ctx context.Context, evidence repo.TelemetryBundle, knownPatterns []models.LearnedPattern, servicePatterns []models.ServicePattern) (models.HypothesisRankerOutput, error) {
	if knownPatterns == nil {
		knownPatterns = []models.LearnedPattern{}
	}
	if servicePatterns == nil {
		servicePatterns = []models.ServicePattern{}
	}
	return a.stage.execute(ctx, rankerInstruction, map[string]any{
		"evidence":         evidence,
		"known_patterns":   knownPatterns,
		"service_patterns": servicePatterns,
	})
}

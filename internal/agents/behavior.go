package agents

import (
	"context"
	"log/slog"

	"github.com/aidogstack/incident-copilot/internal/llm"
	"github.com/aidogstack/incident-copilot/internal/memory"
	"github.com/aidogstack/incident-copilot/internal/models"
)

const behaviorSystemPrompt = `You are a behavior analysis agent that identifies patterns in user investigation behavior.
Analyze user events, investigation sessions, and accepted/rejected recommendations to extract:
1. Recurring investigation patterns (e.g., "user always checks traces before logs")
2. Preference adjustments (e.g., "user prefers conservative recommendations")
3. Success patterns (e.g., "user's preferred steps for latency incidents")

Output must be valid JSON matching the schema.`

const behaviorInstruction = `Analyze the user's investigation behavior and extract:
1. Patterns: Recurring investigation sequences or preferences
2. Preference adjustments: Changes in user preferences based on actions
3. Summary: Brief summary of key behavioral insights

Return JSON with patterns (list), preference_adjustments (list), and summary (string).`

// BehaviorMiner extracts durable behavior patterns from a user's history.
type BehaviorMiner struct {
	stage *stage[models.BehaviorMinerOutput]
}

// NewBehaviorMiner constructs the behavior-miner stage.
func NewBehaviorMiner(provider llm.Provider, logger *slog.Logger) *BehaviorMiner {
	return &BehaviorMiner{
		stage: newStage("behavior_miner", provider, logger,
			behaviorSystemPrompt, models.DefaultBehaviorMinerOutput, 0.3, 2000),
	}
}

// Analyze mines patterns from session event history and recommendation
// accept/reject decisions.
func (a *BehaviorMiner) Analyze(ctx context.Context, sessionEvents []memory.Event, accepted, rejected []models.RecommendationProposal) (models.BehaviorMinerOutput, error) {
	if accepted == nil {
		accepted = []models.RecommendationProposal{}
	}
	if rejected == nil {
		rejected = []models.RecommendationProposal{}
	}
	return a.stage.execute(ctx, behaviorInstruction, map[string]any{
		"user_events":              sessionEvents,
		"accepted_recommendations": accepted,
		"rejected_recommendations": rejected,
	})
}

package patterns

import (
	"time"

	"github.com/google/uuid"

	"github.com/aidogstack/incident-copilot/internal/models"
)

// Build derives a learned pattern from the outputs of one investigation:
// the envelope plus the top hypothesis and top recommendation when present.
// Lower-ranked items are deliberately not recorded.
func Build(envelope models.IncidentEnvelope, hypotheses []models.Hypothesis, recommendations []models.RecommendationProposal) models.LearnedPattern {
	pattern := models.LearnedPattern{
		ID:             uuid.NewString(),
		Services:       append([]string(nil), envelope.AffectedServices...),
		Severity:       envelope.Severity,
		PrimarySymptom: envelope.PrimarySymptom,
		Timestamp:      time.Now().UTC(),
	}
	if pattern.Services == nil {
		pattern.Services = []string{}
	}

	if len(hypotheses) > 0 {
		pattern.Description = hypotheses[0].Label()
	} else {
		pattern.Description = envelope.Title
	}
	if len(recommendations) > 0 {
		pattern.TopRecommendation = recommendations[0].Title
	}
	return pattern
}

package agents

import (
	"context"
	"log/slog"

	"github.com/aidogstack/incident-copilot/internal/llm"
	"github.com/aidogstack/incident-copilot/internal/models"
	"github.com/aidogstack/incident-copilot/internal/repo"
)

const summarizerSystemPrompt = `You are an incident analysis agent that processes telemetry data (metrics, logs, traces, monitors)
to create a structured incident envelope.

Extract:
- What happened (title, description)
- When it started
- Where (affected services)
- Blast radius (impact estimate)
- Severity
- Primary symptom
- Initial root cause hypothesis

Output must be valid JSON matching the schema.`

const summarizerInstruction = `Analyze the telemetry bundle and create an incident envelope with:
- title: Brief incident title
- description: What happened
- started_at: ISO timestamp
- affected_services: List of service names
- blast_radius: Impact estimate (e.g., "3 services, 15% of traffic")
- severity: critical, warning, or info
- primary_symptom: Main symptom observed
- root_cause_hypothesis: Initial hypothesis (optional)

Return JSON matching the incident envelope schema.`

// IncidentSummarizer condenses a telemetry bundle into an incident envelope.
type IncidentSummarizer struct {
	stage *stage[models.IncidentEnvelope]
}

// NewIncidentSummarizer constructs the summarizer stage.
func NewIncidentSummarizer(provider llm.Provider, logger *slog.Logger) *IncidentSummarizer {
	return &IncidentSummarizer{
		stage: newStage("incident_summarizer", provider, logger,
			summarizerSystemPrompt, models.DefaultIncidentEnvelope, 0.3, 2000),
	}
}

// Summarize produces the envelope for a telemetry bundle. The returned
// envelope is always structurally valid; err reports any fallback taken.
func (a *IncidentSummarizer) Summarize(ctx context.Context, bundle repo.TelemetryBundle) (models.IncidentEnvelope, error) {
	return a.stage.execute(ctx, summarizerInstruction, map[string]any{"telemetry": bundle})
}

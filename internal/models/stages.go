package models

// Stage output schemas. Every schema has a companion Default* constructor
// that enumerates a type-correct empty value for each required field; the
// stage execution layer merges raw model output over these defaults when
// strict validation fails, accepting the merge when only top-level scalar
// fields remain at their empty default. Slice fields in defaults are non-nil
// empty slices so a merged instance stays structurally complete.

// IncidentEnvelope is the structured incident summary produced by the
// summarizer stage.
type IncidentEnvelope struct {
	Title               string   `json:"title" validate:"required"`
	Description         string   `json:"description" validate:"required"`
	StartedAt           string   `json:"started_at" validate:"required"`
	AffectedServices    []string `json:"affected_services" validate:"required"`
	BlastRadius         string   `json:"blast_radius" validate:"required"`
	Severity            string   `json:"severity" validate:"required"`
	PrimarySymptom      string   `json:"primary_symptom" validate:"required"`
	RootCauseHypothesis string   `json:"root_cause_hypothesis,omitempty"`
}

// DefaultIncidentEnvelope returns an empty but structurally complete envelope.
func DefaultIncidentEnvelope() IncidentEnvelope {
	return IncidentEnvelope{AffectedServices: []string{}}
}

// EvidencePointer links a hypothesis to supporting telemetry.
type EvidencePointer struct {
	Type        string   `json:"type" validate:"required"`
	Source      string   `json:"source" validate:"required"`
	KeyFindings []string `json:"key_findings"`
}

// Hypothesis is one ranked candidate root cause.
type Hypothesis struct {
	ID          string            `json:"id" validate:"required"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description" validate:"required"`
	Confidence  int               `json:"confidence" validate:"gte=0,lte=100"`
	Evidence    []EvidencePointer `json:"evidence" validate:"dive"`
	Reasoning   string            `json:"reasoning" validate:"required"`
}

// Label returns the display name of the hypothesis, preferring the title.
func (h Hypothesis) Label() string {
	if h.Title != "" {
		return h.Title
	}
	return h.Description
}

// HypothesisRankerOutput is the ranker stage result.
type HypothesisRankerOutput struct {
	Hypotheses []Hypothesis `json:"hypotheses" validate:"required,dive"`
	Summary    string       `json:"summary" validate:"required"`
}

// DefaultHypothesisRankerOutput returns an empty ranker result.
func DefaultHypothesisRankerOutput() HypothesisRankerOutput {
	return HypothesisRankerOutput{Hypotheses: []Hypothesis{}}
}

// GuidedStep is one suggested investigation action.
type GuidedStep struct {
	ID           string         `json:"id" validate:"required"`
	Title        string         `json:"title" validate:"required"`
	Description  string         `json:"description" validate:"required"`
	ActionType   string         `json:"action_type" validate:"required"`
	ActionParams map[string]any `json:"action_params"`
	Rationale    string         `json:"rationale" validate:"required"`
	Priority     int            `json:"priority" validate:"gte=0,lte=10"`
}

// GuidedStepsOutput is the guided-steps stage result.
type GuidedStepsOutput struct {
	Steps     []GuidedStep `json:"steps" validate:"required,dive"`
	Reasoning string       `json:"reasoning" validate:"required"`
}

// DefaultGuidedStepsOutput returns an empty guided-steps result.
func DefaultGuidedStepsOutput() GuidedStepsOutput {
	return GuidedStepsOutput{Steps: []GuidedStep{}}
}

// ExportPayload is machine-applicable output attached to a recommendation.
type ExportPayload struct {
	Type       string         `json:"type" validate:"required"`
	Payload    map[string]any `json:"payload"`
	CLISnippet string         `json:"cli_snippet,omitempty"`
}

// RecommendationProposal is one actionable remediation proposal.
type RecommendationProposal struct {
	ID            string         `json:"id" validate:"required"`
	Type          string         `json:"type" validate:"required"`
	Title         string         `json:"title" validate:"required"`
	Description   string         `json:"description" validate:"required"`
	Confidence    int            `json:"confidence" validate:"gte=0,lte=100"`
	ExportPayload *ExportPayload `json:"export_payload,omitempty"`
	Rationale     string         `json:"rationale" validate:"required"`
}

// RecommendationDesignerOutput is the recommendation-designer stage result.
type RecommendationDesignerOutput struct {
	Recommendations []RecommendationProposal `json:"recommendations" validate:"required,dive"`
	Summary         string                   `json:"summary" validate:"required"`
}

// DefaultRecommendationDesignerOutput returns an empty designer result.
func DefaultRecommendationDesignerOutput() RecommendationDesignerOutput {
	return RecommendationDesignerOutput{Recommendations: []RecommendationProposal{}}
}

// TestStep is one step inside a validation test plan.
type TestStep struct {
	Name           string         `json:"name" validate:"required"`
	Description    string         `json:"description" validate:"required"`
	Type           string         `json:"type" validate:"required"`
	Params         map[string]any `json:"params"`
	ExpectedResult string         `json:"expected_result" validate:"required"`
}

// TestPlan validates the effectiveness of a recommendation.
type TestPlan struct {
	Name                  string     `json:"name" validate:"required"`
	Description           string     `json:"description" validate:"required"`
	Steps                 []TestStep `json:"steps" validate:"dive"`
	ValidationCriteria    string     `json:"validation_criteria"`
	FailureInterpretation string     `json:"failure_interpretation"`
}

// TestPlanOutput is the test-planner stage result.
type TestPlanOutput struct {
	Plan      *TestPlan `json:"plan,omitempty"`
	Rationale string    `json:"rationale"`
}

// DefaultTestPlanOutput returns an empty test-planner result.
func DefaultTestPlanOutput() TestPlanOutput {
	return TestPlanOutput{}
}

// MinedPattern is one recurring behavior identified by the behavior miner.
type MinedPattern struct {
	Description string `json:"description" validate:"required"`
	Confidence  int    `json:"confidence" validate:"gte=0,lte=100"`
	Frequency   int    `json:"frequency"`
	LastSeen    string `json:"last_seen,omitempty"`
}

// PreferenceAdjustment proposes a change to a user's stored preferences.
type PreferenceAdjustment struct {
	Key    string `json:"key" validate:"required"`
	Value  any    `json:"value"`
	Reason string `json:"reason" validate:"required"`
}

// BehaviorMinerOutput is the behavior-miner stage result.
type BehaviorMinerOutput struct {
	Patterns              []MinedPattern         `json:"patterns" validate:"required,dive"`
	PreferenceAdjustments []PreferenceAdjustment `json:"preference_adjustments" validate:"required,dive"`
	Summary               string                 `json:"summary" validate:"required"`
}

// DefaultBehaviorMinerOutput returns an empty behavior-miner result.
func DefaultBehaviorMinerOutput() BehaviorMinerOutput {
	return BehaviorMinerOutput{
		Patterns:              []MinedPattern{},
		PreferenceAdjustments: []PreferenceAdjustment{},
	}
}

package models

import "time"

// Incident is the caller-supplied description of an active service incident.
type Incident struct {
	ID          string
	Title       string
	Description string
	Severity    string
	Services    []string
	StartedAt   time.Time
}

// Preferences captures a user's investigation style, used to personalize
// guided steps and recommendations.
type Preferences struct {
	ActionStyle    string   `json:"action_style"`
	NoiseTolerance string   `json:"noise_tolerance"`
	FocusAreas     []string `json:"focus_areas"`
}

// MemoryProfile is the durable per-user personalization profile. The profile
// itself is owned by the durable pattern store; the pipeline only reads it.
type MemoryProfile struct {
	UserID      string
	Preferences Preferences
	Patterns    []LearnedPattern
}

// DefaultPreferences returns role-appropriate starting preferences.
func DefaultPreferences(role string) Preferences {
	switch role {
	case "Backend":
		return Preferences{ActionStyle: "moderate", NoiseTolerance: "medium", FocusAreas: []string{"infra", "errors"}}
	case "ML":
		return Preferences{ActionStyle: "moderate", NoiseTolerance: "medium", FocusAreas: []string{"quality", "latency"}}
	case "Product":
		return Preferences{ActionStyle: "conservative", NoiseTolerance: "high", FocusAreas: []string{"quality"}}
	default: // SRE
		return Preferences{ActionStyle: "conservative", NoiseTolerance: "low", FocusAreas: []string{"infra", "latency"}}
	}
}

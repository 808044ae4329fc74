package models

import "time"

// LearnedPattern summarises one completed investigation for a user's durable
// profile. Constructed by the engine after a run; owned by the pattern store.
type LearnedPattern struct {
	ID                string    `json:"id"`
	Description       string    `json:"description"`
	Services          []string  `json:"services"`
	Severity          string    `json:"severity"`
	PrimarySymptom    string    `json:"primary_symptom"`
	TopRecommendation string    `json:"top_recommendation"`
	Timestamp         time.Time `json:"timestamp"`
}

// ServicePattern is a recurring per-service failure template mined from
// investigation history. Serialized into stage context, so fields carry
// JSON names.
type ServicePattern struct {
	ID         string    `json:"id"`
	Service    string    `json:"service"`
	Symptoms   []string  `json:"symptoms"`
	Prevalence float64   `json:"prevalence"`
	LastSeen   time.Time `json:"last_seen"`
}

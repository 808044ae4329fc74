package patterns

import (
	"testing"
	"time"

	"github.com/aidogstack/incident-copilot/internal/models"
)

func TestMineEmptyHistory(t *testing.T) {
	miner := NewMiner(nil)
	if mined := miner.Mine(nil); mined != nil {
		t.Fatalf("expected nil for empty history, got %v", mined)
	}
}

func TestMineAggregatesByService(t *testing.T) {
	now := time.Now().UTC()
	history := []models.LearnedPattern{
		{Services: []string{"checkout"}, PrimarySymptom: "latency", Timestamp: now.Add(-2 * time.Hour)},
		{Services: []string{"checkout"}, PrimarySymptom: "latency", Timestamp: now.Add(-time.Hour)},
		{Services: []string{"checkout", "payments"}, PrimarySymptom: "errors", Timestamp: now},
		{Services: []string{"payments"}, PrimarySymptom: "errors", Timestamp: now.Add(-3 * time.Hour)},
	}

	miner := NewMiner(nil)
	mined := miner.Mine(history)
	if len(mined) != 2 {
		t.Fatalf("expected 2 service patterns, got %d", len(mined))
	}

	top := mined[0]
	if top.Service != "checkout" {
		t.Fatalf("expected checkout first by prevalence, got %q", top.Service)
	}
	if top.Prevalence != 0.75 {
		t.Fatalf("expected prevalence 0.75, got %f", top.Prevalence)
	}
	if len(top.Symptoms) == 0 || top.Symptoms[0] != "latency" {
		t.Fatalf("expected latency as top symptom, got %v", top.Symptoms)
	}
	if !top.LastSeen.Equal(now) {
		t.Fatalf("expected most recent timestamp, got %v", top.LastSeen)
	}
}

func TestMineHandlesMissingService(t *testing.T) {
	history := []models.LearnedPattern{
		{Services: []string{""}, PrimarySymptom: "latency", Timestamp: time.Now()},
	}
	mined := NewMiner(nil).Mine(history)
	if len(mined) != 1 || mined[0].Service != "unknown" {
		t.Fatalf("expected unknown service bucket, got %v", mined)
	}
}

func TestBuildUsesTopHypothesisAndRecommendation(t *testing.T) {
	envelope := models.IncidentEnvelope{
		Title:            "Checkout latency surge",
		Severity:         "critical",
		PrimarySymptom:   "latency",
		AffectedServices: []string{"checkout"},
	}
	hypotheses := []models.Hypothesis{
		{ID: "h1", Title: "Pool exhaustion", Description: "DB pool exhausted", Confidence: 80},
		{ID: "h2", Description: "ignored", Confidence: 40},
	}
	recommendations := []models.RecommendationProposal{
		{ID: "r1", Title: "Tighten pool alert"},
		{ID: "r2", Title: "ignored"},
	}

	pattern := Build(envelope, hypotheses, recommendations)
	if pattern.ID == "" {
		t.Fatal("expected generated pattern id")
	}
	if pattern.Description != "Pool exhaustion" {
		t.Fatalf("expected top hypothesis label, got %q", pattern.Description)
	}
	if pattern.TopRecommendation != "Tighten pool alert" {
		t.Fatalf("expected top recommendation, got %q", pattern.TopRecommendation)
	}
	if pattern.Severity != "critical" || pattern.PrimarySymptom != "latency" {
		t.Fatalf("envelope fields not carried: %+v", pattern)
	}
}

func TestBuildFallsBackToEnvelopeTitle(t *testing.T) {
	envelope := models.IncidentEnvelope{Title: "Unexplained error spike"}
	pattern := Build(envelope, nil, nil)
	if pattern.Description != "Unexplained error spike" {
		t.Fatalf("expected envelope title fallback, got %q", pattern.Description)
	}
	if pattern.TopRecommendation != "" {
		t.Fatalf("expected empty recommendation, got %q", pattern.TopRecommendation)
	}
	if pattern.Services == nil {
		t.Fatal("services not normalized to empty slice")
	}
}

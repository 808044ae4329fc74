package patterns

import (
	"log/slog"
	"sort"
	"time"

	"github.com/aidogstack/incident-copilot/internal/models"
)

// Miner mines simple frequency-based service patterns from a user's learned
// pattern history.
type Miner struct {
	logger *slog.Logger
}

// NewMiner constructs a Miner.
func NewMiner(logger *slog.Logger) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{logger: logger}
}

// Mine aggregates learned patterns into per-service templates ordered by
// prevalence. Returns nil when there is no history.
func (m *Miner) Mine(history []models.LearnedPattern) []models.ServicePattern {
	if len(history) == 0 {
		return nil
	}

	serviceStats := make(map[string]*serviceAggregate)
	for _, learned := range history {
		for _, service := range learned.Services {
			agg := ensureAggregate(serviceStats, service)
			agg.count++
			if learned.Timestamp.After(agg.lastSeen) {
				agg.lastSeen = learned.Timestamp
			}
			if learned.PrimarySymptom != "" {
				agg.symptomCounts[learned.PrimarySymptom]++
			}
		}
	}

	mined := make([]models.ServicePattern, 0, len(serviceStats))
	for service, agg := range serviceStats {
		mined = append(mined, models.ServicePattern{
			ID:         "pattern-" + service,
			Service:    service,
			Symptoms:   agg.topSymptoms(3),
			Prevalence: float64(agg.count) / float64(len(history)),
			LastSeen:   agg.lastSeen,
		})
	}

	sort.Slice(mined, func(i, j int) bool {
		return mined[i].Prevalence > mined[j].Prevalence
	})
	return mined
}

type serviceAggregate struct {
	count         int
	lastSeen      time.Time
	symptomCounts map[string]int
}

func ensureAggregate(m map[string]*serviceAggregate, service string) *serviceAggregate {
	if service == "" {
		service = "unknown"
	}
	agg, ok := m[service]
	if !ok {
		agg = &serviceAggregate{symptomCounts: make(map[string]int)}
		m[service] = agg
	}
	return agg
}

func (agg *serviceAggregate) topSymptoms(limit int) []string {
	symptoms := make([]string, 0, len(agg.symptomCounts))
	for s := range agg.symptomCounts {
		symptoms = append(symptoms, s)
	}
	sort.Slice(symptoms, func(i, j int) bool {
		if agg.symptomCounts[symptoms[i]] != agg.symptomCounts[symptoms[j]] {
			return agg.symptomCounts[symptoms[i]] > agg.symptomCounts[symptoms[j]]
		}
		return symptoms[i] < symptoms[j]
	})
	if len(symptoms) > limit {
		symptoms = symptoms[:limit]
	}
	return symptoms
}

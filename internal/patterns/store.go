// Package patterns builds, persists, and mines learned investigation
// patterns. A learned pattern is the durable residue of one completed run;
// mined service patterns aggregate that history into per-service templates.
package patterns

import (
	"context"

	"github.com/aidogstack/incident-copilot/internal/models"
)

// Store abstracts persistence for learned patterns.
type Store interface {
	StorePattern(ctx context.Context, userID string, pattern models.LearnedPattern) error
}

// StoreFunc adapts a function to the Store interface.
type StoreFunc func(ctx context.Context, userID string, pattern models.LearnedPattern) error

// StorePattern implements Store.
func (f StoreFunc) StorePattern(ctx context.Context, userID string, pattern models.LearnedPattern) error {
	return f(ctx, userID, pattern)
}

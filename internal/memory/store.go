// Package memory implements the session-scoped working-memory store: per-run
// key/value slots plus an append-only event log. An optional durable mirror
// receives best-effort copies of every write, but reads are always served
// from the in-process state so the pipeline never blocks on the mirror.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one timestamped fact in a session's log. Events are immutable
// once appended and strictly ordered by insertion.
type Event struct {
	Kind      string         `json:"kind"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// Mirror is the external durable memory service. Every method is
// best-effort from the store's perspective: errors are logged and swallowed.
type Mirror interface {
	RegisterSession(ctx context.Context, sessionID, incidentID, userID string) error
	StoreSlot(ctx context.Context, sessionID, key string, value []byte) error
	Search(ctx context.Context, sessionID, query string, maxResults int) ([]string, error)
}

type session struct {
	incidentID string
	userID     string
	createdAt  time.Time
	closedAt   time.Time
	slots      map[string]any
	events     []Event
}

// Store holds every investigation session for the life of the process.
// Safe for concurrent use by multiple in-flight runs.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
	mirror   Mirror
	logger   *slog.Logger
}

// NewStore constructs a Store. mirror may be nil when no durable memory
// service is configured.
func NewStore(logger *slog.Logger, mirror Mirror) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions: make(map[string]*session),
		mirror:   mirror,
		logger:   logger,
	}
}

// CreateSession allocates a new working-memory session and returns its id.
// Registration with the mirror is attempted but never blocks progress.
func (s *Store) CreateSession(ctx context.Context, incidentID, userID string) string {
	now := time.Now().UTC()
	id := fmt.Sprintf("incident-%s-user-%s-%d", incidentID, userID, now.Unix())

	s.mu.Lock()
	if _, exists := s.sessions[id]; exists {
		// Same incident, user and second; disambiguate.
		id = id + "-" + uuid.NewString()[:8]
	}
	s.sessions[id] = &session{
		incidentID: incidentID,
		userID:     userID,
		createdAt:  now,
		slots:      make(map[string]any),
	}
	s.mu.Unlock()

	if s.mirror != nil {
		if err := s.mirror.RegisterSession(ctx, id, incidentID, userID); err != nil {
			s.logger.Warn("session mirror registration failed", slog.String("session_id", id), slog.Any("error", err))
		}
	}
	return id
}

// StoreSlot upserts one memory slot, mirrors the write best-effort, and
// appends a memory_update event.
func (s *Store) StoreSlot(ctx context.Context, sessionID, key string, value any) {
	if s.mirror != nil {
		if serialized, err := json.Marshal(value); err == nil {
			if err := s.mirror.StoreSlot(ctx, sessionID, key, serialized); err != nil {
				s.logger.Warn("session mirror write failed", slog.String("key", key), slog.Any("error", err))
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	sess.slots[key] = value
	sess.events = append(sess.events, Event{
		Kind:      "memory_update",
		Payload:   map[string]any{"key": key},
		Timestamp: time.Now().UTC(),
	})
}

// Retrieve returns a copy of the full slot mapping. The mirror is never the
// read path; reads are always served in-process.
func (s *Store) Retrieve(sessionID string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return map[string]any{}
	}
	out := make(map[string]any, len(sess.slots))
	for k, v := range sess.slots {
		out[k] = v
	}
	return out
}

// Search delegates to the mirror when available; otherwise performs a
// case-insensitive substring scan over serialized slot values. Match order
// follows map iteration and is not guaranteed.
func (s *Store) Search(ctx context.Context, sessionID, query string, maxResults int) []string {
	if maxResults <= 0 {
		maxResults = 5
	}

	if s.mirror != nil {
		results, err := s.mirror.Search(ctx, sessionID, query, maxResults)
		if err == nil {
			return results
		}
		s.logger.Warn("session mirror search failed", slog.Any("error", err))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}

	needle := strings.ToLower(query)
	matches := make([]string, 0, maxResults)
	for key, value := range sess.slots {
		serialized, err := json.Marshal(value)
		if err != nil {
			continue
		}
		text := string(serialized)
		if strings.Contains(strings.ToLower(text), needle) {
			if len(text) > 200 {
				text = text[:200]
			}
			matches = append(matches, key+": "+text)
			if len(matches) >= maxResults {
				break
			}
		}
	}
	return matches
}

// AppendEvent appends one event to the session log. The log is structurally
// append-only; it is not reachable through StoreSlot.
func (s *Store) AppendEvent(sessionID, kind string, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	sess.events = append(sess.events, Event{
		Kind:      kind,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
}

// Events returns the ordered event log for a session.
func (s *Store) Events(sessionID string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	return append([]Event(nil), sess.events...)
}

// CloseSession marks the closure time. State is retained for the life of
// the process so traces can be re-read afterward.
func (s *Store) CloseSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.closedAt = time.Now().UTC()
	}
}

// Closed reports whether the session has been closed.
func (s *Store) Closed(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	return ok && !sess.closedAt.IsZero()
}

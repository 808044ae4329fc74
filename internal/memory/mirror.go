package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisMirrorConfig configures Redis access for the durable session mirror.
type RedisMirrorConfig struct {
	Addr        string
	Password    string
	DB          int
	KeyPrefix   string
	DialTimeout time.Duration
	SessionTTL  time.Duration
}

// RedisMirror mirrors session slots into Redis hashes so another process can
// inspect a live investigation. It is never the read path for the pipeline.
type RedisMirror struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisMirror connects and pings the target to fail fast when
// connectivity or credentials are wrong.
func NewRedisMirror(cfg RedisMirrorConfig) (*RedisMirror, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, fmt.Errorf("redis mirror addr is required")
	}
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		cfg.KeyPrefix = "aidog:session"
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping session mirror: %w", err)
	}

	return &RedisMirror{client: client, prefix: cfg.KeyPrefix, ttl: cfg.SessionTTL}, nil
}

// RegisterSession records session metadata under a dedicated hash.
func (m *RedisMirror) RegisterSession(ctx context.Context, sessionID, incidentID, userID string) error {
	key := m.metaKey(sessionID)
	pipe := m.client.Pipeline()
	pipe.HSet(ctx, key,
		"incident_id", incidentID,
		"user_id", userID,
		"created_at", time.Now().UTC().Format(time.RFC3339),
	)
	if m.ttl > 0 {
		pipe.Expire(ctx, key, m.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("register session %s: %w", sessionID, err)
	}
	return nil
}

// StoreSlot mirrors one serialized slot value.
func (m *RedisMirror) StoreSlot(ctx context.Context, sessionID, key string, value []byte) error {
	slotKey := m.slotKey(sessionID)
	pipe := m.client.Pipeline()
	pipe.HSet(ctx, slotKey, key, string(value))
	if m.ttl > 0 {
		pipe.Expire(ctx, slotKey, m.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror slot %s/%s: %w", sessionID, key, err)
	}
	return nil
}

// Search scans the mirrored slots for a case-insensitive substring match.
func (m *RedisMirror) Search(ctx context.Context, sessionID, query string, maxResults int) ([]string, error) {
	slots, err := m.client.HGetAll(ctx, m.slotKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("search session %s: %w", sessionID, err)
	}

	needle := strings.ToLower(query)
	matches := make([]string, 0, maxResults)
	for key, value := range slots {
		if strings.Contains(strings.ToLower(value), needle) {
			if len(value) > 200 {
				value = value[:200]
			}
			matches = append(matches, key+": "+value)
			if len(matches) >= maxResults {
				break
			}
		}
	}
	return matches, nil
}

// Close releases the underlying client.
func (m *RedisMirror) Close() error {
	return m.client.Close()
}

func (m *RedisMirror) metaKey(sessionID string) string {
	return m.prefix + ":" + sessionID + ":meta"
}

func (m *RedisMirror) slotKey(sessionID string) string {
	return m.prefix + ":" + sessionID + ":slots"
}

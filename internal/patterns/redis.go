package patterns

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/aidogstack/incident-copilot/internal/models"
)

// RedisStoreConfig configures the durable pattern store.
type RedisStoreConfig struct {
	Addr        string
	Password    string
	DB          int
	KeyPrefix   string
	DialTimeout time.Duration
	MaxPerUser  int
}

// RedisStore keeps each user's learned patterns in a capped Redis list,
// newest first.
type RedisStore struct {
	client *redis.Client
	prefix string
	cap    int
}

// NewRedisStore connects and pings the target to fail fast when
// connectivity or credentials are wrong.
func NewRedisStore(cfg RedisStoreConfig) (*RedisStore, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, fmt.Errorf("redis pattern store addr is required")
	}
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		cfg.KeyPrefix = "aidog:patterns"
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.MaxPerUser <= 0 {
		cfg.MaxPerUser = 50
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping pattern store: %w", err)
	}

	return &RedisStore{client: client, prefix: cfg.KeyPrefix, cap: cfg.MaxPerUser}, nil
}

// StorePattern prepends the pattern to the user's list and trims to the cap.
func (s *RedisStore) StorePattern(ctx context.Context, userID string, pattern models.LearnedPattern) error {
	serialized, err := json.Marshal(pattern)
	if err != nil {
		return fmt.Errorf("marshal pattern: %w", err)
	}

	key := s.key(userID)
	pipe := s.client.Pipeline()
	pipe.LPush(ctx, key, string(serialized))
	pipe.LTrim(ctx, key, 0, int64(s.cap-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store pattern for %s: %w", userID, err)
	}
	return nil
}

// ListPatterns returns up to limit most recent patterns for a user. Entries
// that fail to decode are skipped.
func (s *RedisStore) ListPatterns(ctx context.Context, userID string, limit int) ([]models.LearnedPattern, error) {
	if limit <= 0 {
		limit = s.cap
	}
	raw, err := s.client.LRange(ctx, s.key(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list patterns for %s: %w", userID, err)
	}

	patterns := make([]models.LearnedPattern, 0, len(raw))
	for _, entry := range raw {
		var p models.LearnedPattern
		if err := json.Unmarshal([]byte(entry), &p); err != nil {
			continue
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + ":" + userID
}

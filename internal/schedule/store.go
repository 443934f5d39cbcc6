package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const settingsKey = "schedule:settings"

// Store reads and writes the schedule configuration.
type Store interface {
	Get(ctx context.Context) (*Config, error)
	Set(ctx context.Context, cfg *Config) error
}

// RedisStore keeps the schedule configuration as a JSON document in Redis.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed settings store.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("schedule: redis client required")
	}
	return &RedisStore{redis: client}
}

// Get returns the stored configuration or DefaultConfig when none was saved.
func (s *RedisStore) Get(ctx context.Context) (*Config, error) {
	data, err := s.redis.Get(ctx, settingsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("schedule: get settings: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("schedule: unmarshal settings: %w", err)
	}
	return &cfg, nil
}

// Set saves cfg, stamping UpdatedAt.
func (s *RedisStore) Set(ctx context.Context, cfg *Config) error {
	cfg.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("schedule: marshal settings: %w", err)
	}
	if err := s.redis.Set(ctx, settingsKey, data, 0).Err(); err != nil {
		return fmt.Errorf("schedule: set settings: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store used when Redis is not configured.
type MemoryStore struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewMemoryStore returns a store seeded with cfg, or DefaultConfig when nil.
func NewMemoryStore(cfg *Config) *MemoryStore {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &MemoryStore{cfg: cfg}
}

func (s *MemoryStore) Get(ctx context.Context) (*Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := *s.cfg
	clone.WorkDays = append([]int(nil), s.cfg.WorkDays...)
	return &clone, nil
}

func (s *MemoryStore) Set(ctx context.Context, cfg *Config) error {
	clone := *cfg
	clone.UpdatedAt = time.Now().UTC()
	clone.WorkDays = append([]int(nil), cfg.WorkDays...)
	s.mu.Lock()
	s.cfg = &clone
	s.mu.Unlock()
	return nil
}

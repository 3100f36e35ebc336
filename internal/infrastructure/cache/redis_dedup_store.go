package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/salesops/backend/internal/domain/notification"
)

const defaultDedupKeyPrefix = "notification:dedup:"

// RedisDedupStore implements notification.DedupStore using Redis.
// This is suitable for distributed deployments where several scheduler
// instances may race on the same notice.
type RedisDedupStore struct {
	client    *redis.Client
	keyPrefix string
	retention time.Duration
	now       func() time.Time
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type storedRecord struct {
	SentAt time.Time `json:"sent_at"`
	SentTo []string  `json:"sent_to,omitempty"`
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisDedupStoreWithClient creates a store with an existing Redis client
func NewRedisDedupStoreWithClient(client *redis.Client, keyPrefix string, retention time.Duration) *RedisDedupStore {
	if keyPrefix == "" {
		keyPrefix = defaultDedupKeyPrefix
	}
	return &RedisDedupStore{
		client:    client,
		keyPrefix: keyPrefix,
		retention: retention,
		now:       time.Now,
	}
}

// Insert records a sent notice with SETNX so exactly one caller wins a key
func (s *RedisDedupStore) Insert(ctx context.Context, rec notification.Record) error {
	if err := rec.Key.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(storedRecord{SentAt: rec.SentAt, SentTo: rec.SentTo})
	if err != nil {
		return fmt.Errorf("failed to encode dedup record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.keyPrefix+rec.Key.String(), payload, s.ttl(rec.Key)).Result()
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	if !ok {
		return notification.ErrDuplicate
	}
	return nil
}

// Delete removes the record for key
func (s *RedisDedupStore) Delete(ctx context.Context, key notification.DedupKey) error {
	if err := s.client.Del(ctx, s.keyPrefix+key.String()).Err(); err != nil {
		return fmt.Errorf("failed to delete notification record: %w", err)
	}
	return nil
}

// Find returns the record for key
func (s *RedisDedupStore) Find(ctx context.Context, key notification.DedupKey) (*notification.Record, error) {
	raw, err := s.client.Get(ctx, s.keyPrefix+key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notification.ErrNotRecorded
		}
		return nil, fmt.Errorf("failed to read notification record: %w", err)
	}
	var stored storedRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode dedup record: %w", err)
	}
	return &notification.Record{Key: key, SentAt: stored.SentAt, SentTo: stored.SentTo}, nil
}

// ttl is zero, meaning no expiry, when retention is zero
func (s *RedisDedupStore) ttl(key notification.DedupKey) time.Duration {
	now := s.now()
	until := retainUntil(key, s.retention, now)
	if until.IsZero() {
		return 0
	}
	return until.Sub(now)
}

// Close closes the Redis client
func (s *RedisDedupStore) Close() error {
	return s.client.Close()
}

var _ notification.DedupStore = (*RedisDedupStore)(nil)

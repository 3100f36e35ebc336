package cache

import (
	"fmt"
	"time"

	"github.com/salesops/backend/internal/domain/notification"
	"github.com/salesops/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Dedup backends selectable in configuration
const (
	BackendGorm   = "gorm"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// DedupStoreFactory creates notification dedup stores based on configuration
type DedupStoreFactory struct {
	redisConfig           config.RedisConfig
	retention             time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// DedupStoreFactoryOption is a functional option for configuring the factory
type DedupStoreFactoryOption func(*DedupStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) DedupStoreFactoryOption {
	return func(f *DedupStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory store when Redis is unavailable.
// Default is false.
func WithInMemoryFallback(allow bool) DedupStoreFactoryOption {
	return func(f *DedupStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewDedupStoreFactory creates a new factory
func NewDedupStoreFactory(redisCfg config.RedisConfig, retention time.Duration, opts ...DedupStoreFactoryOption) *DedupStoreFactory {
	f := &DedupStoreFactory{
		redisConfig: redisCfg,
		retention:   retention,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStore creates a Redis-based dedup store
func (f *DedupStoreFactory) CreateRedisStore() (*RedisDedupStore, error) {
	client, err := NewRedisClient(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis dedup store: %w", err)
	}
	return NewRedisDedupStoreWithClient(client, defaultDedupKeyPrefix, f.retention), nil
}

// CreateInMemoryStore creates an in-memory dedup store.
// WARNING: in-memory stores do not share state across process instances, so
// two schedulers could each send the same notice.
func (f *DedupStoreFactory) CreateInMemoryStore() *InMemoryDedupStore {
	return NewInMemoryDedupStore(f.retention)
}

// CreateStore creates the store for backend. durable backs the gorm backend
// and is supplied by the caller since it needs the database.
func (f *DedupStoreFactory) CreateStore(backend string, durable notification.DedupStore) (notification.DedupStore, error) {
	switch backend {
	case BackendGorm:
		if durable == nil {
			return nil, fmt.Errorf("gorm dedup backend requires a database store")
		}
		f.logger.Info("using database notification dedup store")
		return durable, nil
	case BackendMemory:
		f.logger.Warn("using in-memory notification dedup store; notices may repeat across instances")
		return f.CreateInMemoryStore(), nil
	case BackendRedis:
		store, err := f.CreateRedisStore()
		if err == nil {
			f.logger.Info("using Redis notification dedup store")
			return store, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required for notification dedup but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory notification dedup store",
			zap.Error(err),
		)
		return f.CreateInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown dedup backend %q", backend)
	}
}

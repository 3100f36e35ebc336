package cache

import (
	"testing"
	"time"

	"github.com/salesops/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// unreachableRedis points at a port nothing listens on
var unreachableRedis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

func TestDedupStoreFactory_CreateStore(t *testing.T) {
	t.Run("gorm backend returns the durable store", func(t *testing.T) {
		durable := NewInMemoryDedupStore(time.Hour)
		defer durable.Close()

		store, err := NewDedupStoreFactory(unreachableRedis, time.Hour).CreateStore(BackendGorm, durable)
		require.NoError(t, err)
		assert.Same(t, durable, store)
	})

	t.Run("gorm backend without a store fails", func(t *testing.T) {
		_, err := NewDedupStoreFactory(unreachableRedis, time.Hour).CreateStore(BackendGorm, nil)
		assert.Error(t, err)
	})

	t.Run("memory backend", func(t *testing.T) {
		store, err := NewDedupStoreFactory(unreachableRedis, time.Hour).CreateStore(BackendMemory, nil)
		require.NoError(t, err)
		assert.IsType(t, &InMemoryDedupStore{}, store)
		store.(*InMemoryDedupStore).Close()
	})

	t.Run("redis unavailable without fallback fails", func(t *testing.T) {
		_, err := NewDedupStoreFactory(unreachableRedis, time.Hour).CreateStore(BackendRedis, nil)
		assert.ErrorContains(t, err, "Redis required")
	})

	t.Run("redis unavailable falls back when allowed", func(t *testing.T) {
		core, recorded := observer.New(zapcore.WarnLevel)
		f := NewDedupStoreFactory(unreachableRedis, time.Hour, WithInMemoryFallback(true), WithLogger(zap.New(core)))

		store, err := f.CreateStore(BackendRedis, nil)
		require.NoError(t, err)
		assert.IsType(t, &InMemoryDedupStore{}, store)
		store.(*InMemoryDedupStore).Close()
		assert.Equal(t, 1, recorded.Len())
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewDedupStoreFactory(unreachableRedis, time.Hour).CreateStore("etcd", nil)
		assert.Error(t, err)
	})
}

package sessionstore

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"

	"github.com/seu-repo/botcore/internal/domain"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Skipf("Redis container not available: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := goredis.ParseURL(uri)
	require.NoError(t, err)

	s := NewRedisStoreFromClient(goredis.NewClient(opts), "", zap.NewNop())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisStore_KeyEscapesBotID(t *testing.T) {
	s := NewRedisStoreFromClient(nil, "", zap.NewNop())

	first := s.key(domain.SessionKey{BotID: "a", SessionID: "b:c"})
	second := s.key(domain.SessionKey{BotID: "a:b", SessionID: "c"})

	assert.NotEqual(t, first, second)
	assert.Equal(t, "botcore:session:support:s1", s.key(domain.SessionKey{BotID: "support", SessionID: "s1"}))
}

func TestRedisStore_CompareAndSwap(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()
	key := domain.SessionKey{BotID: "bot", SessionID: "s1"}

	session := domain.NewSession(key, "u1", time.Now(), time.Hour)
	require.NoError(t, s.Put(ctx, session, 0))
	stale := session.Clone()

	session.Variables["order"] = "12345"
	require.NoError(t, s.Put(ctx, session, 1))

	err := s.Put(ctx, stale, stale.Revision)
	assert.True(t, errors.Is(err, domain.ErrVersionConflict))

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Revision)
	assert.Equal(t, "12345", got.Variables["order"])
}

func TestRedisStore_TTL(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()
	key := domain.SessionKey{BotID: "bot", SessionID: "ttl"}

	require.NoError(t, s.Put(ctx, domain.NewSession(key, "", time.Now(), 1500*time.Millisecond), 0))

	ttl, err := s.client.TTL(ctx, s.key(key)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	time.Sleep(2 * time.Second)
	_, err = s.Get(ctx, key)
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
}

func TestRedisStore_Delete(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()
	key := domain.SessionKey{BotID: "bot", SessionID: "gone"}

	require.NoError(t, s.Put(ctx, domain.NewSession(key, "", time.Now(), time.Hour), 0))
	require.NoError(t, s.Delete(ctx, key))

	_, err := s.Get(ctx, key)
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
}

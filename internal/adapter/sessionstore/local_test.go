package sessionstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/seu-repo/botcore/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newLocal(t *testing.T) (*LocalStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewLocalStore(time.Hour, zap.NewNop(), WithLocalClock(clock.Now))
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func TestLocalStore_PutGetRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)
	s, clock := newLocal(t)
	ctx := context.Background()
	key := domain.SessionKey{BotID: "bot", SessionID: "s1"}

	session := domain.NewSession(key, "u1", clock.Now(), 30*time.Minute)
	session.Variables["name"] = "Ada"
	require.NoError(t, s.Put(ctx, session, 0))
	assert.Equal(t, int64(1), session.Revision)

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Variables["name"])
	assert.Equal(t, int64(1), got.Revision)

	got.Variables["name"] = "Grace"
	again, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Ada", again.Variables["name"], "stored session must not alias returned copies")
	require.NoError(t, s.Close())
}

func TestLocalStore_CompareAndSwap(t *testing.T) {
	defer goleak.VerifyNone(t)
	s, clock := newLocal(t)
	ctx := context.Background()
	key := domain.SessionKey{BotID: "bot", SessionID: "s1"}

	session := domain.NewSession(key, "", clock.Now(), time.Hour)
	require.NoError(t, s.Put(ctx, session, 0))

	stale := session.Clone()
	require.NoError(t, s.Put(ctx, session, 1))
	assert.Equal(t, int64(2), session.Revision)

	err := s.Put(ctx, stale, stale.Revision)
	assert.True(t, errors.Is(err, domain.ErrVersionConflict))

	err = s.Put(ctx, domain.NewSession(key, "", clock.Now(), time.Hour), 0)
	assert.True(t, errors.Is(err, domain.ErrVersionConflict), "creating over a live session must conflict")
	require.NoError(t, s.Close())
}

func TestLocalStore_ExpiryIsNotFound(t *testing.T) {
	defer goleak.VerifyNone(t)
	s, clock := newLocal(t)
	ctx := context.Background()
	key := domain.SessionKey{BotID: "bot", SessionID: "s1"}

	require.NoError(t, s.Put(ctx, domain.NewSession(key, "", clock.Now(), time.Minute), 0))
	clock.Advance(2 * time.Minute)

	_, err := s.Get(ctx, key)
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))

	// An expired record no longer blocks creation.
	require.NoError(t, s.Put(ctx, domain.NewSession(key, "", clock.Now(), time.Minute), 0))
	require.NoError(t, s.Close())
}

func TestLocalStore_Sweep(t *testing.T) {
	defer goleak.VerifyNone(t)
	s, clock := newLocal(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, domain.NewSession(domain.SessionKey{BotID: "b", SessionID: "short"}, "", clock.Now(), time.Minute), 0))
	require.NoError(t, s.Put(ctx, domain.NewSession(domain.SessionKey{BotID: "b", SessionID: "long"}, "", clock.Now(), time.Hour), 0))
	clock.Advance(5 * time.Minute)

	assert.Equal(t, 1, s.Sweep())
	_, err := s.Get(ctx, domain.SessionKey{BotID: "b", SessionID: "long"})
	assert.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestLocalStore_KeysAreScopedByBot(t *testing.T) {
	defer goleak.VerifyNone(t)
	s, clock := newLocal(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, domain.NewSession(domain.SessionKey{BotID: "a", SessionID: "same"}, "", clock.Now(), time.Hour), 0))

	_, err := s.Get(ctx, domain.SessionKey{BotID: "b", SessionID: "same"})
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
	require.NoError(t, s.Close())
}

package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/botcore/internal/domain"
	"github.com/seu-repo/botcore/internal/observability/telemetry"
	"github.com/seu-repo/botcore/internal/ports"
)

type localEntry struct {
	value     []byte
	revision  int64
	expiresAt time.Time
}

// LocalStore implements ports.SessionStore with an in-memory map. Sessions
// are stored encoded so callers never share memory with the store.
type LocalStore struct {
	data     map[domain.SessionKey]localEntry
	mu       sync.RWMutex
	now      func() time.Time
	log      *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

type LocalOption func(*LocalStore)

// WithLocalClock overrides the time source used for expiry checks.
func WithLocalClock(now func() time.Time) LocalOption {
	return func(s *LocalStore) { s.now = now }
}

// NewLocalStore creates an in-memory store that sweeps expired sessions every
// cleanupInterval.
func NewLocalStore(cleanupInterval time.Duration, log *zap.Logger, opts ...LocalOption) *LocalStore {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	s := &LocalStore{
		data:   make(map[domain.SessionKey]localEntry),
		now:    time.Now,
		log:    log,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.cleanupLoop(cleanupInterval)

	log.Info("Local in-memory session store initialized",
		zap.Duration("cleanup_interval", cleanupInterval),
	)
	return s
}

var _ ports.SessionStore = (*LocalStore)(nil)

func (s *LocalStore) Get(ctx context.Context, key domain.SessionKey) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entry, ok := s.data[key]
	s.mu.RUnlock()

	if !ok || s.expired(entry) {
		return nil, domain.ErrSessionNotFound
	}

	var session domain.Session
	if err := json.Unmarshal(entry.value, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", key, err)
	}
	return &session, nil
}

func (s *LocalStore) Put(ctx context.Context, session *domain.Session, expected int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := session.Key()
	next := *session
	next.Revision = expected + 1
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if entry, ok := s.data[key]; ok && !s.expired(entry) {
		current = entry.revision
	}
	if current != expected {
		return domain.ErrVersionConflict
	}

	s.data[key] = localEntry{value: data, revision: next.Revision, expiresAt: session.ExpiresAt}
	session.Revision = next.Revision
	telemetry.ActiveSessions.Set(float64(len(s.data)))
	return nil
}

func (s *LocalStore) Delete(ctx context.Context, key domain.SessionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	telemetry.ActiveSessions.Set(float64(len(s.data)))
	return nil
}

func (s *LocalStore) Ping(ctx context.Context) error {
	return nil
}

// Close stops the sweeper and waits for it to exit.
func (s *LocalStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.done
	return nil
}

func (s *LocalStore) expired(e localEntry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}

func (s *LocalStore) cleanupLoop(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stopCh:
			return
		}
	}
}

// Sweep drops every expired session and returns how many were removed.
func (s *LocalStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for key, entry := range s.data {
		if s.expired(entry) {
			delete(s.data, key)
			expired++
		}
	}
	telemetry.ActiveSessions.Set(float64(len(s.data)))

	if expired > 0 {
		s.log.Debug("Session sweep completed", zap.Int("expired_sessions", expired))
	}
	return expired
}

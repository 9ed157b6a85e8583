package dialogue

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/botcore/internal/domain"
	"github.com/seu-repo/botcore/internal/observability/telemetry"
	"github.com/seu-repo/botcore/internal/ports"
)

const (
	DefaultSessionTTL     = 30 * time.Minute
	DefaultEndedRetention = 5 * time.Minute
	DefaultStoreTimeout   = 2 * time.Second
	DefaultMaxTurns       = 10
	DefaultHistoryLimit   = 50
)

type SessionConfig struct {
	TTL            time.Duration `mapstructure:"session_ttl"`
	EndedRetention time.Duration `mapstructure:"ended_retention"`
	StoreTimeout   time.Duration `mapstructure:"store_timeout"`
	MaxTurns       int           `mapstructure:"max_turns"`
	HistoryLimit   int           `mapstructure:"history_limit"`
	CASRetries     int           `mapstructure:"cas_retries"`
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.TTL <= 0 {
		c.TTL = DefaultSessionTTL
	}
	if c.EndedRetention <= 0 {
		c.EndedRetention = DefaultEndedRetention
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = DefaultStoreTimeout
	}
	if c.MaxTurns <= 0 {
		c.MaxTurns = DefaultMaxTurns
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.CASRetries <= 0 {
		c.CASRetries = 3
	}
	return c
}

// Manager is the dialogue context store: it applies TTL and retention
// policy on top of a SessionStore and bounds every call by StoreTimeout.
type Manager struct {
	store ports.SessionStore
	cfg   SessionConfig
	now   func() time.Time
	log   *zap.Logger
}

func NewManager(store ports.SessionStore, cfg SessionConfig, log *zap.Logger) *Manager {
	return &Manager{
		store: store,
		cfg:   cfg.withDefaults(),
		now:   time.Now,
		log:   log,
	}
}

func (m *Manager) Config() SessionConfig { return m.cfg }

// Get returns the stored session, ErrSessionNotFound when missing or expired.
func (m *Manager) Get(ctx context.Context, key domain.SessionKey) (*domain.Session, error) {
	sctx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
	defer cancel()

	s, err := m.store.Get(sctx, key)
	if err != nil {
		return nil, m.wrap(ctx, "get", err)
	}
	if s.Expired(m.now()) {
		return nil, domain.ErrSessionNotFound
	}
	s.EnsureMaps()
	return s, nil
}

// GetOrCreate loads the session or returns a fresh, unsaved one.
func (m *Manager) GetOrCreate(ctx context.Context, key domain.SessionKey, userID string) (*domain.Session, error) {
	s, err := m.Get(ctx, key)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.NewSession(key, userID, m.now(), m.cfg.TTL), nil
	}
	return s, err
}

// Put refreshes activity and expiry and writes s if its Revision still
// matches the stored one.
func (m *Manager) Put(ctx context.Context, s *domain.Session) error {
	now := m.now()
	s.LastActivityAt = now
	if s.State == domain.SessionStateEnded {
		s.ExpiresAt = now.Add(m.cfg.EndedRetention)
	} else {
		s.ExpiresAt = now.Add(m.cfg.TTL)
	}

	sctx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
	defer cancel()

	if err := m.store.Put(sctx, s, s.Revision); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			telemetry.SessionConflictsTotal.Inc()
		}
		return m.wrap(ctx, "put", err)
	}
	return nil
}

// End marks the session ended. The record is kept for EndedRetention so
// late messages get SessionEndedError instead of a silent restart.
func (m *Manager) End(ctx context.Context, key domain.SessionKey) (*domain.Session, error) {
	var err error
	for attempt := 0; attempt <= m.cfg.CASRetries; attempt++ {
		var s *domain.Session
		s, err = m.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if s.State == domain.SessionStateEnded {
			return s, nil
		}
		s.State = domain.SessionStateEnded
		s.PendingSlots = make(map[string]*string)
		if err = m.Put(ctx, s); err == nil {
			return s, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}
	}
	return nil, err
}

// History returns up to HistoryLimit most recent turns, oldest first.
func (m *Manager) History(ctx context.Context, key domain.SessionKey) ([]domain.Turn, error) {
	s, err := m.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	turns := s.Turns
	if len(turns) > m.cfg.HistoryLimit {
		turns = turns[len(turns)-m.cfg.HistoryLimit:]
	}
	return append([]domain.Turn{}, turns...), nil
}

// Ping checks the backing store within StoreTimeout.
func (m *Manager) Ping(ctx context.Context) error {
	sctx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
	defer cancel()
	if err := m.store.Ping(sctx); err != nil {
		return m.wrap(ctx, "ping", err)
	}
	return nil
}

// wrap maps store failures onto the domain taxonomy. Not-found and conflicts
// pass through; a cancelled caller gets its own context error; anything else
// is reported as a retryable store outage.
func (m *Manager) wrap(ctx context.Context, op string, err error) error {
	if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrVersionConflict) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	telemetry.SessionStoreErrorsTotal.WithLabelValues(op).Inc()
	m.log.Warn("session store failure", zap.String("op", op), zap.Error(err))
	return &domain.ContextStoreUnavailableError{Op: op, Err: err}
}

package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/seu-repo/botcore/internal/domain"
	"github.com/seu-repo/botcore/internal/ports"
)

const DefaultKeyPrefix = "botcore:session:"

// RedisStore keeps one JSON record per session under
// "<prefix><bot_id>:<session_id>" (bot id escaped) with a TTL matching the session expiry.
// Writes are compare-and-swap on Revision using WATCH/MULTI.
type RedisStore struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
}

func NewRedisStore(url, prefix string, log *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Ping to verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Successfully connected to Redis")
	return NewRedisStoreFromClient(client, prefix, log), nil
}

func NewRedisStoreFromClient(client *redis.Client, prefix string, log *zap.Logger) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		log:    log,
	}
}

var _ ports.SessionStore = (*RedisStore)(nil)

func (s *RedisStore) key(k domain.SessionKey) string {
	return s.prefix + k.String()
}

func (s *RedisStore) Get(ctx context.Context, key domain.SessionKey) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", key, err)
	}
	if session.Expired(time.Now()) {
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

func (s *RedisStore) Put(ctx context.Context, session *domain.Session, expected int64) error {
	key := s.key(session.Key())
	next := *session
	next.Revision = expected + 1
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.Key(), err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.revision(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != expected {
			return domain.ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		return domain.ErrVersionConflict
	case err != nil:
		return err
	}
	session.Revision = next.Revision
	return nil
}

func (s *RedisStore) revision(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var stored struct {
		Revision  int64     `json:"revision"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return 0, fmt.Errorf("decode stored session: %w", err)
	}
	if !stored.ExpiresAt.IsZero() && !time.Now().Before(stored.ExpiresAt) {
		return 0, nil
	}
	return stored.Revision, nil
}

func (s *RedisStore) Delete(ctx context.Context, key domain.SessionKey) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

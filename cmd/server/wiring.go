package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"github.com/seu-repo/botcore/internal/adapter/ai/hashing"
	"github.com/seu-repo/botcore/internal/adapter/ai/ollama"
	"github.com/seu-repo/botcore/internal/adapter/ai/openai"
	"github.com/seu-repo/botcore/internal/adapter/catalog"
	"github.com/seu-repo/botcore/internal/adapter/queue"
	"github.com/seu-repo/botcore/internal/adapter/sessionstore"
	"github.com/seu-repo/botcore/internal/adapter/storage/memory"
	"github.com/seu-repo/botcore/internal/adapter/storage/postgres"
	"github.com/seu-repo/botcore/internal/adapter/vault"
	"github.com/seu-repo/botcore/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/botcore/internal/ports"
	"github.com/seu-repo/botcore/pkg/config"
)

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = level
	return zc.Build()
}

// storage bundles the persistence adapters chosen by configuration.
type storage struct {
	catalog  ports.Catalog
	models   ports.ModelRepository
	sessions ports.SessionStore

	// yaml is set whenever a definitions directory is loaded, either as
	// the catalog itself or as the seed for Postgres.
	yaml     *catalog.YAMLCatalog
	importer *postgres.CatalogRepository
	db       *gorm.DB
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	s := &storage{}

	if cfg.Catalog.Driver == "postgres" || cfg.Models.Driver == "postgres" {
		db, err := postgres.NewConnection(cfg.Database.URL, cfg.Database.Pool, logger)
		if err != nil {
			return nil, err
		}
		s.db = db
		if cfg.Database.AutoMigrate {
			if err := postgres.RunMigrations(db); err != nil {
				s.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
	}

	switch cfg.Catalog.Driver {
	case "postgres":
		s.importer = postgres.NewCatalogRepository(s.db, logger)
		s.catalog = s.importer
		if cfg.Catalog.Seed {
			yc, err := catalog.NewYAMLCatalog(cfg.Catalog.Dir, logger)
			if err != nil {
				s.Close()
				return nil, err
			}
			s.yaml = yc
			if err := seedCatalog(ctx, yc, s.importer); err != nil {
				s.Close()
				return nil, err
			}
		}
	default:
		yc, err := catalog.NewYAMLCatalog(cfg.Catalog.Dir, logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.yaml = yc
		s.catalog = yc
	}

	if cfg.Models.Driver == "postgres" {
		s.models = postgres.NewModelRepository(s.db, logger)
	} else {
		s.models = memory.NewModelRepository(logger)
	}

	switch cfg.Sessions.Driver {
	case "redis":
		store, err := sessionstore.NewRedisStore(cfg.Redis.URL, cfg.Redis.KeyPrefix, logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.sessions = store
	default:
		s.sessions = sessionstore.NewLocalStore(cfg.Sessions.CleanupInterval, logger)
	}

	return s, nil
}

func (s *storage) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *storage) Close() {
	if s.sessions != nil {
		s.sessions.Close()
	}
	if s.db != nil {
		postgres.Close(s.db)
	}
}

func seedCatalog(ctx context.Context, src *catalog.YAMLCatalog, dst *postgres.CatalogRepository) error {
	bots, err := src.ListBots(ctx)
	if err != nil {
		return err
	}
	for _, id := range bots {
		if err := importBot(ctx, src, dst, id); err != nil {
			return fmt.Errorf("seed bot %s: %w", id, err)
		}
	}
	return nil
}

func importBot(ctx context.Context, src *catalog.YAMLCatalog, dst *postgres.CatalogRepository, botID string) error {
	bot, err := src.GetBotConfig(ctx, botID)
	if err != nil {
		return err
	}
	intents, err := src.GetIntents(ctx, botID)
	if err != nil {
		return err
	}
	entities, err := src.GetEntityDefinitions(ctx, botID)
	if err != nil {
		return err
	}
	return dst.Import(ctx, bot, intents, entities)
}

func newQueue(cfg config.QueueConfig, logger *zap.Logger) (queue.MessageQueue, error) {
	switch cfg.Driver {
	case "nats":
		return queue.NewNATSQueue(cfg.NATSURL, cfg.Group, logger)
	case "rabbitmq":
		return queue.NewRabbitMQQueue(cfg.RabbitMQURL, cfg.Group, logger)
	default:
		return queue.NewMemoryQueue(logger), nil
	}
}

// newEmbedder builds the configured provider. Remote providers go through
// an HTTP client guarded by a circuit breaker; the API key comes from Vault
// when it is enabled.
// The returned breaker client is nil for the local provider or when
// breakers are disabled.
func newEmbedder(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.Embedder, *circuitbreaker.HTTPClient, error) {
	ec := cfg.Embedder
	if ec.Provider == "hashing" {
		return hashing.New(ec.Dimensions), nil, nil
	}

	var (
		client  openai.Doer = &http.Client{Timeout: ec.Timeout}
		guarded *circuitbreaker.HTTPClient
	)
	if cfg.CircuitBreaker.Enabled {
		guarded = circuitbreaker.NewHTTPClientWithSettings(ec.Timeout, cfg.CircuitBreaker.Embedder, logger)
		client = guarded
	}

	switch ec.Provider {
	case "openai":
		apiKey := ec.APIKey
		if cfg.Vault.Enabled {
			sm, err := vault.NewSecretManager(cfg.Vault.Address, cfg.Vault.Token)
			if err != nil {
				return nil, nil, fmt.Errorf("vault: %w", err)
			}
			apiKey, err = sm.GetEmbeddingAPIKey(ctx, cfg.Vault.EmbeddingKeyPath)
			if err != nil {
				return nil, nil, fmt.Errorf("vault: %w", err)
			}
		}
		if apiKey == "" {
			return nil, nil, fmt.Errorf("embedder.api_key is required for openai")
		}
		return openai.NewClient(apiKey, ec.BaseURL, ec.Model, client, logger), guarded, nil
	case "ollama":
		return ollama.NewClient(ec.BaseURL, ec.Model, ec.Concurrency, client, logger), guarded, nil
	}
	return nil, nil, fmt.Errorf("unknown embedder provider %q", ec.Provider)
}

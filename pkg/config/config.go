package config

import (
	"time"

	"github.com/seu-repo/botcore/internal/adapter/storage/postgres"
	"github.com/seu-repo/botcore/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/botcore/internal/nlu/classifier"
	"github.com/seu-repo/botcore/internal/service/dialogue"
	"github.com/seu-repo/botcore/internal/service/training"
)

type Config struct {
	App            AppConfig              `mapstructure:"app"`
	HTTP           HTTPConfig             `mapstructure:"http"`
	CORS           CORSConfig             `mapstructure:"cors"`
	RateLimiting   RateLimitingConfig     `mapstructure:"rate_limiting"`
	CircuitBreaker CircuitBreakerConfig   `mapstructure:"circuit_breaker"`
	Database       DatabaseConfig         `mapstructure:"database"`
	Redis          RedisConfig            `mapstructure:"redis"`
	Queue          QueueConfig            `mapstructure:"queue"`
	Catalog        CatalogConfig          `mapstructure:"catalog"`
	Models         ModelsConfig           `mapstructure:"models"`
	Sessions       SessionsConfig         `mapstructure:"sessions"`
	NLU            NLUConfig              `mapstructure:"nlu"`
	Training       training.ServiceConfig `mapstructure:"training"`
	Embedder       EmbedderConfig         `mapstructure:"embedder"`
	Vault          VaultConfig            `mapstructure:"vault"`
	OpenTelemetry  OpenTelemetryConfig    `mapstructure:"opentelemetry"`
	Prometheus     PrometheusConfig       `mapstructure:"prometheus"`
	Logging        LoggingConfig          `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	TurnTimeout  time.Duration `mapstructure:"turn_timeout"`
}

type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

type RateLimitingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
	ByUser      bool          `mapstructure:"by_user"`
}

type CircuitBreakerConfig struct {
	Enabled  bool                    `mapstructure:"enabled"`
	API      circuitbreaker.Settings `mapstructure:"api"`
	Embedder circuitbreaker.Settings `mapstructure:"embedder"`
}

type DatabaseConfig struct {
	URL         string              `mapstructure:"url"`
	Pool        postgres.PoolConfig `mapstructure:"pool"`
	AutoMigrate bool                `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	URL       string `mapstructure:"url"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// QueueConfig selects the event transport: memory, nats or rabbitmq.
type QueueConfig struct {
	Driver      string `mapstructure:"driver"`
	NATSURL     string `mapstructure:"nats_url"`
	RabbitMQURL string `mapstructure:"rabbitmq_url"`
	Group       string `mapstructure:"group"`
}

// CatalogConfig selects where bot definitions are read from: yaml or postgres.
type CatalogConfig struct {
	Driver   string        `mapstructure:"driver"`
	Dir      string        `mapstructure:"dir"`
	Watch    bool          `mapstructure:"watch"`
	Debounce time.Duration `mapstructure:"debounce"`
	// Seed imports the directory's definitions into Postgres on start.
	Seed bool `mapstructure:"seed"`
}

// ModelsConfig selects where trained artifacts live: memory or postgres.
type ModelsConfig struct {
	Driver        string `mapstructure:"driver"`
	WarmupOnStart bool   `mapstructure:"warmup_on_start"`
	TrainOnStart  bool   `mapstructure:"train_on_start"`
}

// SessionsConfig selects the dialogue store: local or redis.
type SessionsConfig struct {
	Driver          string                 `mapstructure:"driver"`
	CleanupInterval time.Duration          `mapstructure:"cleanup_interval"`
	Policy          dialogue.SessionConfig `mapstructure:"policy"`
}

type NLUConfig struct {
	Pipeline   training.PipelineConfig `mapstructure:"pipeline"`
	Classifier classifier.Config       `mapstructure:"classifier"`
}

// EmbedderConfig selects the embedding provider: hashing, openai or ollama.
type EmbedderConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Dimensions  int           `mapstructure:"dimensions"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
}

type VaultConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Address          string `mapstructure:"address"`
	Token            string `mapstructure:"token"`
	EmbeddingKeyPath string `mapstructure:"embedding_key_path"`
}

type OpenTelemetryConfig struct {
	Enabled     bool         `mapstructure:"enabled"`
	Jaeger      JaegerConfig `mapstructure:"jaeger"`
	ServiceName string       `mapstructure:"service_name"`
}

type JaegerConfig struct {
	Endpoint     string  `mapstructure:"endpoint"`
	SamplerParam float64 `mapstructure:"sampler_param"`
}

type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads configs/config.yaml (or ./config.yaml) and APP_* environment
// variables. Missing files are fine; every key has a default.
func Load() (*Config, error) {
	return LoadFrom(viper.New(), "./configs", ".", "/app/configs")
}

func LoadFrom(v *viper.Viper, paths ...string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Allow common env vars without APP_ prefix for Docker/VM deploys
	v.BindEnv("http.port", "HTTP_PORT", "APP_HTTP_PORT")
	v.BindEnv("database.url", "DATABASE_URL", "APP_DATABASE_URL")
	v.BindEnv("redis.url", "REDIS_URL", "APP_REDIS_URL")
	v.BindEnv("queue.nats_url", "NATS_URL", "APP_QUEUE_NATS_URL")
	v.BindEnv("queue.rabbitmq_url", "RABBITMQ_URL", "APP_QUEUE_RABBITMQ_URL")
	v.BindEnv("embedder.api_key", "OPENAI_API_KEY", "APP_EMBEDDER_API_KEY")
	v.BindEnv("vault.address", "VAULT_ADDR", "APP_VAULT_ADDRESS")
	v.BindEnv("vault.token", "VAULT_TOKEN", "APP_VAULT_TOKEN")
	v.BindEnv("app.environment", "APP_ENVIRONMENT")
	v.BindEnv("logging.level", "LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "botcore")
	v.SetDefault("app.version", "v0.1.0")
	v.SetDefault("app.environment", "development")

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.turn_timeout", 10*time.Second)

	v.SetDefault("cors.enabled", true)
	v.SetDefault("rate_limiting.enabled", false)
	v.SetDefault("rate_limiting.max_requests", 120)
	v.SetDefault("rate_limiting.window", time.Minute)
	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.api.name", "botcore-api")
	v.SetDefault("circuit_breaker.embedder.name", "embedder")

	v.SetDefault("redis.key_prefix", "botcore:session:")

	v.SetDefault("queue.driver", "memory")
	v.SetDefault("queue.group", "botcore")

	v.SetDefault("catalog.driver", "yaml")
	v.SetDefault("catalog.dir", "./bots")
	v.SetDefault("catalog.watch", true)
	v.SetDefault("catalog.debounce", 500*time.Millisecond)

	v.SetDefault("models.driver", "memory")
	v.SetDefault("models.warmup_on_start", true)
	v.SetDefault("models.train_on_start", true)

	v.SetDefault("sessions.driver", "local")
	v.SetDefault("sessions.cleanup_interval", time.Minute)
	v.SetDefault("sessions.policy.session_ttl", 30*time.Minute)
	v.SetDefault("sessions.policy.ended_retention", 5*time.Minute)
	v.SetDefault("sessions.policy.store_timeout", 2*time.Second)
	v.SetDefault("sessions.policy.max_turns", 10)
	v.SetDefault("sessions.policy.history_limit", 50)
	v.SetDefault("sessions.policy.cas_retries", 3)

	v.SetDefault("nlu.pipeline.strip_punctuation", true)
	v.SetDefault("nlu.pipeline.max_training_examples", 10000)
	v.SetDefault("nlu.pipeline.embed_batch_size", 64)
	v.SetDefault("nlu.classifier.top_k", 5)

	v.SetDefault("training.queue_size", 16)
	v.SetDefault("training.job_timeout", 5*time.Minute)
	v.SetDefault("training.job_retention", time.Hour)
	v.SetDefault("training.refresh_interval", time.Minute)

	v.SetDefault("embedder.provider", "hashing")
	v.SetDefault("embedder.dimensions", 256)
	v.SetDefault("embedder.timeout", 30*time.Second)
	v.SetDefault("embedder.concurrency", 4)

	v.SetDefault("vault.embedding_key_path", "secret/data/embedding")

	v.SetDefault("opentelemetry.service_name", "botcore")
	v.SetDefault("opentelemetry.jaeger.sampler_param", 1.0)
	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate rejects unknown drivers early instead of at first use.
func (c *Config) Validate() error {
	checks := []struct {
		key, value string
		allowed    []string
	}{
		{"queue.driver", c.Queue.Driver, []string{"memory", "nats", "rabbitmq"}},
		{"catalog.driver", c.Catalog.Driver, []string{"yaml", "postgres"}},
		{"models.driver", c.Models.Driver, []string{"memory", "postgres"}},
		{"sessions.driver", c.Sessions.Driver, []string{"local", "redis"}},
		{"embedder.provider", c.Embedder.Provider, []string{"hashing", "openai", "ollama"}},
		{"logging.format", c.Logging.Format, []string{"json", "console"}},
	}
	for _, ch := range checks {
		if !contains(ch.allowed, ch.value) {
			return fmt.Errorf("config: %s must be one of %s, got %q", ch.key, strings.Join(ch.allowed, ", "), ch.value)
		}
	}
	if (c.Catalog.Driver == "postgres" || c.Models.Driver == "postgres") && c.Database.URL == "" {
		return fmt.Errorf("config: database.url is required for the postgres drivers")
	}
	if c.Sessions.Driver == "redis" && c.Redis.URL == "" {
		return fmt.Errorf("config: redis.url is required for the redis session store")
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

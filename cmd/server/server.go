package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/seu-repo/botcore/internal/adapter/catalog"
	"github.com/seu-repo/botcore/internal/adapter/http/fiber/handlers"
	"github.com/seu-repo/botcore/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/botcore/internal/adapter/queue"
	wsAdapter "github.com/seu-repo/botcore/internal/adapter/websocket"
	"github.com/seu-repo/botcore/internal/domain"
	"github.com/seu-repo/botcore/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/botcore/internal/nlu/classifier"
	"github.com/seu-repo/botcore/internal/service/dialogue"
	"github.com/seu-repo/botcore/internal/service/engine"
	"github.com/seu-repo/botcore/internal/service/health"
	"github.com/seu-repo/botcore/internal/service/training"
	"github.com/seu-repo/botcore/pkg/config"
)

// server is the fully wired process: adapters, services and the Fiber app.
type server struct {
	cfg     *config.Config
	log     *zap.Logger
	storage *storage
	mq      queue.MessageQueue
	trainer *training.Service
	engine  *engine.Service
	hub     *wsAdapter.Hub
	health  *health.Service
	app     *fiber.App
}

func newServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*server, error) {
	deps, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	messageQueue, err := newQueue(cfg.Queue, logger)
	if err != nil {
		deps.Close()
		return nil, err
	}

	embedder, breaker, err := newEmbedder(ctx, cfg, logger)
	if err != nil {
		messageQueue.Close()
		deps.Close()
		return nil, err
	}
	logger.Info("Embedder ready", zap.String("embedder", embedder.Name()))

	pipeline := training.NewPipeline(embedder, cfg.NLU.Pipeline, logger)
	trainer := training.NewService(deps.catalog, deps.models, pipeline, training.NewRegistry(), messageQueue, cfg.Training, logger)
	sessions := dialogue.NewManager(deps.sessions, cfg.Sessions.Policy, logger)
	orchestrator := dialogue.NewOrchestrator(
		deps.catalog,
		trainer,
		classifier.New(embedder, cfg.NLU.Classifier, logger),
		sessions,
		dialogue.NewSelector(logger),
		logger,
	)

	s := &server{
		cfg:     cfg,
		log:     logger,
		storage: deps,
		mq:      messageQueue,
		trainer: trainer,
		engine:  engine.NewService(trainer, orchestrator, sessions, messageQueue, logger),
		hub:     wsAdapter.NewHub(logger),
		health:  health.NewService(cfg.App.Version, cfg.Sessions.Policy.StoreTimeout, logger),
	}
	s.registerChecks(breaker)
	s.app = s.routes()
	return s, nil
}

func (s *server) routes() *fiber.App {
	cfg := s.cfg
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		ServerHeader:          cfg.App.Name,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		IdleTimeout:           cfg.HTTP.IdleTimeout,
		ErrorHandler:          middleware.ErrorHandler(s.log),
	})

	// Global Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	if cfg.CORS.Enabled {
		app.Use(middleware.NewCORS(cfg.CORS))
	}
	if cfg.RateLimiting.Enabled {
		app.Use(middleware.RateLimit(cfg.RateLimiting))
	}

	// Health Check Endpoints
	health.NewFiberHandler(s.health).RegisterRoutes(app)

	// Metrics endpoint for Prometheus
	if cfg.Prometheus.Enabled {
		metrics := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
		app.Get(cfg.Prometheus.Path, func(c *fiber.Ctx) error {
			metrics(c.Context())
			return nil
		})
	}

	// WebSocket routes
	wsAdapter.SetupChatRoutes(app, wsAdapter.NewChatStreamHandler(s.engine, cfg.HTTP.TurnTimeout, s.log))
	wsAdapter.SetupEventRoutes(app, s.hub)

	// API v1 Routes
	v1 := app.Group("/api/v1")
	if cfg.CircuitBreaker.Enabled {
		v1.Use(middleware.CircuitBreaker(cfg.CircuitBreaker.API, s.log))
	}
	handlers.Register(v1, s.engine, s.log)

	return app
}

// registerChecks wires readiness. Sessions and the database are critical;
// an untrained bot or an open embedder breaker only degrades the process.
func (s *server) registerChecks(breaker *circuitbreaker.HTTPClient) {
	s.health.Register("sessions", true, s.engine.Ready)
	if s.storage.db != nil {
		s.health.Register("database", true, s.storage.Ping)
	}
	s.health.Register("models", false, func(ctx context.Context) error {
		bots, err := s.storage.catalog.ListBots(ctx)
		if err != nil {
			return err
		}
		var untrained []string
		for _, id := range bots {
			if st, err := s.trainer.Status(ctx, id); err == nil && !st.IsTrained {
				untrained = append(untrained, id)
			}
		}
		if len(untrained) > 0 {
			return fmt.Errorf("no model for: %s", strings.Join(untrained, ", "))
		}
		return nil
	})
	if breaker != nil {
		s.health.Register("embedder", false, func(context.Context) error {
			if breaker.State() == gobreaker.StateOpen {
				return errors.New("circuit open")
			}
			return nil
		})
	}
}

// Start launches the training worker, event forwarding, the catalog
// watcher and the startup warmup. Everything stops with ctx.
func (s *server) Start(ctx context.Context) error {
	go s.trainer.Run(ctx)
	go s.hub.Run(ctx)

	if err := s.trainer.ListenForRequests(); err != nil {
		return err
	}
	if err := s.trainer.ListenForModels(); err != nil {
		return err
	}
	if err := s.hub.ForwardEvents(s.mq,
		queue.SubjectModelPublished,
		queue.SubjectTrainFailed,
		queue.SubjectSessionEnded,
	); err != nil {
		return err
	}

	if s.cfg.Models.WarmupOnStart {
		if err := s.trainer.Warmup(ctx); err != nil {
			s.log.Error("Model warmup failed", zap.Error(err))
		}
	}
	if s.cfg.Models.TrainOnStart {
		s.trainUntrained(ctx)
	}
	if s.storage.yaml != nil && s.cfg.Catalog.Watch {
		go s.watchCatalog(ctx)
	}
	return nil
}

func (s *server) Close() {
	if err := s.mq.Close(); err != nil {
		s.log.Warn("Failed to close message queue", zap.Error(err))
	}
	s.storage.Close()
}

// trainUntrained queues a training job for every bot that has no model yet.
func (s *server) trainUntrained(ctx context.Context) {
	bots, err := s.storage.catalog.ListBots(ctx)
	if err != nil {
		s.log.Error("Failed to list bots", zap.Error(err))
		return
	}
	for _, id := range bots {
		st, err := s.trainer.Status(ctx, id)
		if err != nil || st.IsTrained {
			continue
		}
		if _, err := s.trainer.Enqueue(ctx, id); err != nil && !errors.Is(err, domain.ErrTrainingQueueFull) {
			s.log.Warn("Failed to queue initial training", zap.String("bot_id", id), zap.Error(err))
		}
	}
}

// watchCatalog retrains a bot whenever its definition file changes. With a
// Postgres catalog the new definition is imported first.
func (s *server) watchCatalog(ctx context.Context) {
	watcher, err := catalog.NewWatcher(s.storage.yaml, s.cfg.Catalog.Debounce, s.log)
	if err != nil {
		s.log.Error("Catalog watcher unavailable", zap.Error(err))
		return
	}
	watcher.Run(ctx, func(botID string) {
		if s.storage.importer != nil {
			if err := importBot(ctx, s.storage.yaml, s.storage.importer, botID); err != nil {
				s.log.Error("Failed to import changed bot", zap.String("bot_id", botID), zap.Error(err))
				return
			}
		}
		if _, err := s.trainer.Enqueue(ctx, botID); err != nil {
			s.log.Warn("Failed to queue retraining", zap.String("bot_id", botID), zap.Error(err))
		}
	})
}

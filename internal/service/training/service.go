package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/seu-repo/botcore/internal/adapter/queue"
	"github.com/seu-repo/botcore/internal/domain"
	"github.com/seu-repo/botcore/internal/nlu/model"
	"github.com/seu-repo/botcore/internal/observability/telemetry"
	"github.com/seu-repo/botcore/internal/ports"
)

// ServiceConfig tunes the job queue. RefreshInterval bounds how long a model
// published by another replica can go unnoticed when its event is lost; zero
// disables the resync.
type ServiceConfig struct {
	QueueSize       int           `mapstructure:"queue_size"`
	JobTimeout      time.Duration `mapstructure:"job_timeout"`
	JobRetention    time.Duration `mapstructure:"job_retention"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type jobRequest struct {
	id    string
	botID string
}

// Service trains bots, persists their artifacts and serves the current
// compiled model per bot.
type Service struct {
	catalog  ports.Catalog
	models   ports.ModelRepository
	pipeline *Pipeline
	registry *Registry
	mq       queue.MessageQueue
	cfg      ServiceConfig
	log      *zap.Logger

	group singleflight.Group

	trainingMu sync.Mutex
	training   map[string]int

	jobsMu sync.Mutex
	jobs   map[string]*domain.TrainingJob
	queue  chan jobRequest
}

func NewService(catalog ports.Catalog, models ports.ModelRepository, pipeline *Pipeline, registry *Registry, mq queue.MessageQueue, cfg ServiceConfig, log *zap.Logger) *Service {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	if cfg.JobRetention <= 0 {
		cfg.JobRetention = time.Hour
	}
	return &Service{
		catalog:  catalog,
		models:   models,
		pipeline: pipeline,
		registry: registry,
		mq:       mq,
		cfg:      cfg,
		log:      log,
		training: make(map[string]int),
		jobs:     make(map[string]*domain.TrainingJob),
		queue:    make(chan jobRequest, cfg.QueueSize),
	}
}

// Train builds and publishes a new model version for botID. Concurrent calls
// for the same bot share one run. On failure the previous model keeps serving.
func (s *Service) Train(ctx context.Context, botID string) (*domain.TrainingSummary, error) {
	v, err, _ := s.group.Do("train:"+botID, func() (interface{}, error) {
		return s.train(ctx, botID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.TrainingSummary), nil
}

func (s *Service) train(ctx context.Context, botID string) (*domain.TrainingSummary, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "training.Train", trace.WithAttributes(attribute.String("bot.id", botID)))
	defer span.End()

	s.markTraining(botID, 1)
	defer s.markTraining(botID, -1)

	start := time.Now()
	summary, err := s.build(ctx, botID)
	telemetry.TrainingDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		telemetry.TrainingRunsTotal.WithLabelValues(botID, "failed").Inc()
		s.log.Warn("training failed", zap.String("bot_id", botID), zap.Error(err))
		return nil, err
	}
	summary.Duration = time.Since(start)

	telemetry.TrainingRunsTotal.WithLabelValues(botID, "succeeded").Inc()
	span.SetAttributes(attribute.Int64("model.version", summary.Version))
	s.log.Info("model published",
		zap.String("bot_id", botID),
		zap.Int64("version", summary.Version),
		zap.Int("intents", summary.IntentCount),
		zap.Int("phrases", summary.PhraseCount),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (s *Service) build(ctx context.Context, botID string) (*domain.TrainingSummary, error) {
	bot, err := s.catalog.GetBotConfig(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("load bot config: %w", err)
	}
	intents, err := s.catalog.GetIntents(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("load intents: %w", err)
	}
	entities, err := s.catalog.GetEntityDefinitions(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("load entity definitions: %w", err)
	}

	latest, err := s.models.LatestVersion(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("read latest model version: %w", err)
	}
	version := max(latest, s.registry.Version(botID)) + 1

	compiled, err := s.pipeline.Build(ctx, bot, intents, entities, version)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.models.Publish(ctx, compiled.Artifact); err != nil {
		return nil, fmt.Errorf("publish model: %w", err)
	}
	s.registry.Swap(compiled)
	telemetry.ModelVersion.WithLabelValues(botID).Set(float64(version))

	a := compiled.Artifact
	if err := queue.PublishJSON(s.mq, queue.SubjectModelPublished, queue.ModelPublished{
		BotID:       botID,
		Version:     version,
		IntentCount: len(a.Intents),
		PhraseCount: len(a.Phrases),
		Checksum:    a.Checksum,
		PublishedAt: a.BuiltAt,
	}); err != nil {
		s.log.Warn("failed to publish model event", zap.String("bot_id", botID), zap.Error(err))
	}

	return &domain.TrainingSummary{
		BotID:       botID,
		Version:     version,
		IntentCount: len(a.Intents),
		PhraseCount: len(a.Phrases),
	}, nil
}

// Model returns the served model for botID, loading the current artifact from
// the repository on first use.
func (s *Service) Model(ctx context.Context, botID string) (*model.Compiled, error) {
	if m, ok := s.registry.Get(botID); ok {
		return m, nil
	}

	v, err, _ := s.group.Do("load:"+botID, func() (interface{}, error) {
		return s.loadCurrent(ctx, botID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Compiled), nil
}

// loadCurrent compiles the repository's current artifact and serves it unless
// a newer version is already served. It returns whichever handle is current.
func (s *Service) loadCurrent(ctx context.Context, botID string) (*model.Compiled, error) {
	a, err := s.models.Current(ctx, botID)
	if errors.Is(err, domain.ErrModelNotFound) {
		return nil, &domain.NotTrainedError{BotID: botID}
	}
	if err != nil {
		return nil, fmt.Errorf("load current model: %w", err)
	}
	if served, ok := s.registry.Get(botID); ok && served.Version() >= a.Version {
		return served, nil
	}
	compiled, err := model.Compile(a, s.pipeline.CompileOptions())
	if err != nil {
		return nil, fmt.Errorf("compile model %d: %w", a.Version, err)
	}
	if s.registry.Swap(compiled) {
		telemetry.ModelVersion.WithLabelValues(botID).Set(float64(a.Version))
	}
	m, _ := s.registry.Get(botID)
	return m, nil
}

// Refresh serves the repository's current model for botID when it is newer
// than the one in memory. It reports whether the served version changed.
func (s *Service) Refresh(ctx context.Context, botID string) (bool, error) {
	before := s.registry.Version(botID)
	latest, err := s.models.LatestVersion(ctx, botID)
	if err != nil {
		return false, fmt.Errorf("read latest model version: %w", err)
	}
	if latest <= before {
		return false, nil
	}

	_, err, _ = s.group.Do("load:"+botID, func() (interface{}, error) {
		return s.loadCurrent(ctx, botID)
	})
	if err != nil {
		return false, err
	}
	after := s.registry.Version(botID)
	if after > before {
		s.log.Info("serving model published elsewhere",
			zap.String("bot_id", botID),
			zap.Int64("from_version", before),
			zap.Int64("to_version", after),
		)
	}
	return after > before, nil
}

// ListenForModels reloads a bot's model whenever another process publishes
// a newer version. Every replica receives the event.
func (s *Service) ListenForModels() error {
	if s.mq == nil {
		return nil
	}
	return s.mq.SubscribeAll(queue.SubjectModelPublished, func(data []byte) error {
		var ev queue.ModelPublished
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("decode model event: %w", err)
		}
		if ev.BotID == "" || ev.Version <= s.registry.Version(ev.BotID) {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
		defer cancel()
		_, err := s.Refresh(ctx, ev.BotID)
		return err
	})
}

func (s *Service) resync(ctx context.Context) {
	for _, botID := range s.registry.Bots() {
		if _, err := s.Refresh(ctx, botID); err != nil {
			s.log.Warn("model resync failed", zap.String("bot_id", botID), zap.Error(err))
		}
	}
}

func (s *Service) Status(ctx context.Context, botID string) (*domain.ModelStatus, error) {
	if _, err := s.catalog.GetBotConfig(ctx, botID); err != nil {
		return nil, err
	}

	st := &domain.ModelStatus{BotID: botID, Training: s.isTraining(botID)}
	m, err := s.Model(ctx, botID)
	var notTrained *domain.NotTrainedError
	if errors.As(err, &notTrained) {
		return st, nil
	}
	if err != nil {
		return nil, err
	}

	builtAt := m.Artifact.BuiltAt
	st.IsTrained = true
	st.Version = m.Version()
	st.TrainedAt = &builtAt
	st.IntentCount = len(m.Artifact.Intents)
	st.PhraseCount = len(m.Artifact.Phrases)
	return st, nil
}

// Warmup loads the current model of every catalog bot that has one.
func (s *Service) Warmup(ctx context.Context) error {
	bots, err := s.catalog.ListBots(ctx)
	if err != nil {
		return fmt.Errorf("list bots: %w", err)
	}
	for _, id := range bots {
		_, err := s.Model(ctx, id)
		var notTrained *domain.NotTrainedError
		switch {
		case errors.As(err, &notTrained):
			s.log.Info("bot has no trained model yet", zap.String("bot_id", id))
		case err != nil:
			return err
		}
	}
	return nil
}

func (s *Service) Enqueue(ctx context.Context, botID string) (*domain.TrainingJob, error) {
	if _, err := s.catalog.GetBotConfig(ctx, botID); err != nil {
		return nil, err
	}

	job := &domain.TrainingJob{
		ID:        uuid.New().String(),
		BotID:     botID,
		Status:    domain.TrainingJobQueued,
		CreatedAt: time.Now().UTC(),
	}

	s.jobsMu.Lock()
	s.pruneJobsLocked()
	s.jobs[job.ID] = job
	s.jobsMu.Unlock()

	select {
	case s.queue <- jobRequest{id: job.ID, botID: botID}:
	default:
		s.jobsMu.Lock()
		delete(s.jobs, job.ID)
		s.jobsMu.Unlock()
		return nil, domain.ErrTrainingQueueFull
	}

	s.log.Info("training job queued", zap.String("job_id", job.ID), zap.String("bot_id", botID))
	cp := *job
	return &cp, nil
}

func (s *Service) Job(ctx context.Context, jobID string) (*domain.TrainingJob, error) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

// Run processes queued training jobs until ctx is cancelled. With a refresh
// interval it also polls the repository for models published elsewhere.
func (s *Service) Run(ctx context.Context) {
	var tick <-chan time.Time
	if s.cfg.RefreshInterval > 0 {
		ticker := time.NewTicker(s.cfg.RefreshInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.queue:
			s.runJob(ctx, req)
		case <-tick:
			s.resync(ctx)
		}
	}
}

func (s *Service) runJob(ctx context.Context, req jobRequest) {
	s.updateJob(req.id, func(j *domain.TrainingJob) { j.Status = domain.TrainingJobRunning })

	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()
	summary, err := s.Train(jobCtx, req.botID)

	now := time.Now().UTC()
	s.updateJob(req.id, func(j *domain.TrainingJob) {
		j.FinishedAt = &now
		if err != nil {
			j.Status = domain.TrainingJobFailed
			j.Error = err.Error()
			return
		}
		j.Status = domain.TrainingJobSucceeded
		j.Summary = summary
	})

	if err != nil {
		if perr := queue.PublishJSON(s.mq, queue.SubjectTrainFailed, queue.TrainFailed{
			BotID:    req.botID,
			JobID:    req.id,
			Error:    err.Error(),
			FailedAt: now,
		}); perr != nil {
			s.log.Warn("failed to publish training failure", zap.String("bot_id", req.botID), zap.Error(perr))
		}
	}
}

// ListenForRequests enqueues a job for every message on the train request
// subject.
func (s *Service) ListenForRequests() error {
	if s.mq == nil {
		return nil
	}
	return s.mq.Subscribe(queue.SubjectTrainRequested, func(data []byte) error {
		var req queue.TrainRequested
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("decode train request: %w", err)
		}
		if req.BotID == "" {
			return fmt.Errorf("train request without bot_id")
		}
		_, err := s.Enqueue(context.Background(), req.BotID)
		return err
	})
}

func (s *Service) updateJob(id string, fn func(*domain.TrainingJob)) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	if j, ok := s.jobs[id]; ok {
		fn(j)
	}
}

func (s *Service) pruneJobsLocked() {
	cutoff := time.Now().Add(-s.cfg.JobRetention)
	for id, j := range s.jobs {
		if j.FinishedAt != nil && j.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
}

func (s *Service) markTraining(botID string, delta int) {
	s.trainingMu.Lock()
	defer s.trainingMu.Unlock()
	s.training[botID] += delta
	if s.training[botID] <= 0 {
		delete(s.training, botID)
	}
}

func (s *Service) isTraining(botID string) bool {
	s.trainingMu.Lock()
	defer s.trainingMu.Unlock()
	return s.training[botID] > 0
}

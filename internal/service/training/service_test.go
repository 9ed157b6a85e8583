package training

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/seu-repo/botcore/internal/adapter/queue"
	"github.com/seu-repo/botcore/internal/domain"
	"github.com/seu-repo/botcore/internal/mocks"
)

type fixture struct {
	catalog  *mocks.MockCatalog
	models   *mocks.MockModelRepository
	mq       *mocks.MockMessageQueue
	embedder *mocks.MockEmbedder
	service  *Service
}

func newFixture() *fixture {
	f := &fixture{
		catalog:  mocks.ScenarioCatalog(),
		models:   mocks.NewMockModelRepository(),
		mq:       mocks.NewMockMessageQueue(),
		embedder: mocks.ScenarioEmbedder(),
	}
	f.service = NewService(f.catalog, f.models, newTestPipeline(f.embedder), NewRegistry(), f.mq, ServiceConfig{QueueSize: 2}, newTestLogger())
	return f
}

func TestTrain_PublishesIncreasingVersions(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture()

	// Act
	first, err := f.service.Train(ctx, mocks.ScenarioBotID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := f.service.Train(ctx, mocks.ScenarioBotID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	status, err := f.service.Status(ctx, mocks.ScenarioBotID)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if first.Version != 1 || second.Version != 2 {
		t.Errorf("expected versions 1 and 2, got %d and %d", first.Version, second.Version)
	}
	if !status.IsTrained || status.Version != second.Version {
		t.Errorf("expected trained status at version %d, got %+v", second.Version, status)
	}
	if _, err := f.models.Get(ctx, mocks.ScenarioBotID, 1); err != nil {
		t.Errorf("expected version 1 to stay stored, got %v", err)
	}

	messages := f.mq.GetPublishedMessages(queue.SubjectModelPublished)
	if len(messages) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(messages))
	}
	var ev queue.ModelPublished
	if err := json.Unmarshal(messages[1], &ev); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}
	if ev.Version != 2 || ev.BotID != mocks.ScenarioBotID {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestTrain_VersionContinuesFromRepository(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture()
	if err := f.models.Publish(ctx, &domain.ModelArtifact{BotID: mocks.ScenarioBotID, Version: 7}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Act
	summary, err := f.service.Train(ctx, mocks.ScenarioBotID)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if summary.Version != 8 {
		t.Errorf("expected version 8, got %d", summary.Version)
	}
}

func TestTrain_FailureKeepsPreviousModel(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture()
	if _, err := f.service.Train(ctx, mocks.ScenarioBotID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	f.catalog.GetIntentsFunc = func(ctx context.Context, botID string) ([]domain.Intent, error) {
		return nil, nil
	}

	// Act
	_, err := f.service.Train(ctx, mocks.ScenarioBotID)

	// Assert
	var insufficient *domain.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	m, err := f.service.Model(ctx, mocks.ScenarioBotID)
	if err != nil {
		t.Fatalf("expected previous model to be served, got %v", err)
	}
	if m.Version() != 1 {
		t.Errorf("expected version 1 to keep serving, got %d", m.Version())
	}
}

func TestTrain_ConcurrentCallsAreCollapsed(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture()
	release := make(chan struct{})
	f.models.PublishFunc = func(ctx context.Context, a *domain.ModelArtifact) error {
		<-release
		return nil
	}

	// Act
	var wg sync.WaitGroup
	results := make([]*domain.TrainingSummary, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = f.service.Train(ctx, mocks.ScenarioBotID)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	// Assert
	if f.models.PublishCalls != 1 {
		t.Errorf("expected a single publish, got %d", f.models.PublishCalls)
	}
	for i, r := range results {
		if r == nil || r.Version != 1 {
			t.Errorf("result %d: expected version 1, got %+v", i, r)
		}
	}
}

func TestStatus_NotTrained(t *testing.T) {
	// Arrange
	f := newFixture()

	// Act
	status, err := f.service.Status(context.Background(), mocks.ScenarioBotID)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if status.IsTrained {
		t.Error("expected untrained status")
	}

	_, err = f.service.Model(context.Background(), mocks.ScenarioBotID)
	var notTrained *domain.NotTrainedError
	if !errors.As(err, &notTrained) {
		t.Errorf("expected NotTrainedError, got %v", err)
	}
}

func TestStatus_UnknownBot(t *testing.T) {
	f := newFixture()

	_, err := f.service.Status(context.Background(), "nope")

	if !errors.Is(err, domain.ErrBotNotFound) {
		t.Errorf("expected ErrBotNotFound, got %v", err)
	}
}

func TestModel_LoadsCurrentArtifactFromRepository(t *testing.T) {
	// Arrange
	ctx := context.Background()
	trained := newFixture()
	if _, err := trained.service.Train(ctx, mocks.ScenarioBotID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	restarted := NewService(trained.catalog, trained.models, newTestPipeline(trained.embedder), NewRegistry(), nil, ServiceConfig{}, newTestLogger())

	// Act
	err := restarted.Warmup(ctx)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	m, err := restarted.Model(ctx, mocks.ScenarioBotID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if m.Version() != 1 || m.Index.Len() != 4 {
		t.Errorf("expected restored version 1 with 4 phrases, got v%d with %d", m.Version(), m.Index.Len())
	}
}

func TestEnqueue_RunsJob(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture()
	done := make(chan struct{})
	go func() {
		f.service.Run(ctx)
		close(done)
	}()

	// Act
	job, err := f.service.Enqueue(ctx, mocks.ScenarioBotID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Assert
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := f.service.Job(ctx, job.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Status == domain.TrainingJobSucceeded {
			if got.Summary == nil || got.Summary.Version != 1 {
				t.Errorf("expected summary with version 1, got %+v", got.Summary)
			}
			break
		}
		if got.Status == domain.TrainingJobFailed {
			t.Fatalf("expected job to succeed, got error %s", got.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, last status %s", got.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	<-done
}

func TestEnqueue_QueueFull(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture()

	// Act
	for i := 0; i < 2; i++ {
		if _, err := f.service.Enqueue(ctx, mocks.ScenarioBotID); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}
	_, err := f.service.Enqueue(ctx, mocks.ScenarioBotID)

	// Assert
	if !errors.Is(err, domain.ErrTrainingQueueFull) {
		t.Errorf("expected ErrTrainingQueueFull, got %v", err)
	}
}

func TestListenForRequests_EnqueuesJob(t *testing.T) {
	// Arrange
	f := newFixture()
	if err := f.service.ListenForRequests(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	payload, _ := json.Marshal(queue.TrainRequested{BotID: mocks.ScenarioBotID})

	// Act
	err := f.mq.Deliver(queue.SubjectTrainRequested, payload)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(f.service.queue) != 1 {
		t.Errorf("expected one queued job, got %d", len(f.service.queue))
	}
}

func TestListenForModels_ReplicaServesVersionPublishedElsewhere(t *testing.T) {
	// Arrange
	ctx := context.Background()
	catalog, models := mocks.ScenarioCatalog(), mocks.NewMockModelRepository()
	mq := queue.NewMemoryQueue(newTestLogger())
	embedder := mocks.ScenarioEmbedder()
	a := NewService(catalog, models, newTestPipeline(embedder), NewRegistry(), mq, ServiceConfig{}, newTestLogger())
	b := NewService(catalog, models, newTestPipeline(embedder), NewRegistry(), mq, ServiceConfig{}, newTestLogger())
	for _, svc := range []*Service{a, b} {
		if err := svc.ListenForModels(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}
	if _, err := a.Train(ctx, mocks.ScenarioBotID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := b.Model(ctx, mocks.ScenarioBotID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Act
	summary, err := a.Train(ctx, mocks.ScenarioBotID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	status, err := b.Status(ctx, mocks.ScenarioBotID)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if summary.Version != 2 {
		t.Fatalf("expected replica A to publish version 2, got %d", summary.Version)
	}
	if status.Version != summary.Version {
		t.Errorf("expected replica B to serve version %d, got %d", summary.Version, status.Version)
	}
	if a.registry.Version(mocks.ScenarioBotID) != 2 {
		t.Errorf("expected replica A to keep version 2, got %d", a.registry.Version(mocks.ScenarioBotID))
	}
}

func TestRefresh_PicksUpNewerVersionWithoutEvents(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture()
	if _, err := f.service.Train(ctx, mocks.ScenarioBotID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	replica := NewService(f.catalog, f.models, newTestPipeline(f.embedder), NewRegistry(), nil, ServiceConfig{}, newTestLogger())
	if _, err := replica.Model(ctx, mocks.ScenarioBotID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := f.service.Train(ctx, mocks.ScenarioBotID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Act
	stale := replica.registry.Version(mocks.ScenarioBotID)
	replica.resync(ctx)
	changed, err := replica.Refresh(ctx, mocks.ScenarioBotID)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if stale != 1 {
		t.Fatalf("expected replica to start at version 1, got %d", stale)
	}
	if got := replica.registry.Version(mocks.ScenarioBotID); got != 2 {
		t.Errorf("expected resync to serve version 2, got %d", got)
	}
	if changed {
		t.Error("expected a second refresh to be a no-op")
	}
}

func TestJob_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.service.Job(context.Background(), "missing")

	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

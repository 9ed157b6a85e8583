package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/botcore/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/botcore/internal/domain"
)

type stubEngine struct {
	TrainFunc   func(ctx context.Context, botID string) (*domain.TrainingSummary, error)
	StatusFunc  func(ctx context.Context, botID string) (*domain.ModelStatus, error)
	EnqueueFunc func(ctx context.Context, botID string) (*domain.TrainingJob, error)
	JobFunc     func(ctx context.Context, jobID string) (*domain.TrainingJob, error)
	ChatFunc    func(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error)
	HistoryFunc func(ctx context.Context, botID, sessionID string) ([]domain.Turn, error)
	EndFunc     func(ctx context.Context, botID, sessionID string) error
}

func (s *stubEngine) Train(ctx context.Context, botID string) (*domain.TrainingSummary, error) {
	return s.TrainFunc(ctx, botID)
}

func (s *stubEngine) Status(ctx context.Context, botID string) (*domain.ModelStatus, error) {
	return s.StatusFunc(ctx, botID)
}

func (s *stubEngine) Enqueue(ctx context.Context, botID string) (*domain.TrainingJob, error) {
	return s.EnqueueFunc(ctx, botID)
}

func (s *stubEngine) Job(ctx context.Context, jobID string) (*domain.TrainingJob, error) {
	return s.JobFunc(ctx, jobID)
}

func (s *stubEngine) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	return s.ChatFunc(ctx, req)
}

func (s *stubEngine) GetHistory(ctx context.Context, botID, sessionID string) ([]domain.Turn, error) {
	return s.HistoryFunc(ctx, botID, sessionID)
}

func (s *stubEngine) EndConversation(ctx context.Context, botID, sessionID string) error {
	return s.EndFunc(ctx, botID, sessionID)
}

func newTestApp(engine *stubEngine) *fiber.App {
	log := zap.NewNop()
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(log)})
	Register(app.Group("/api/v1"), engine, log)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}, string) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]interface{}{}
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out, resp.Header.Get("Retry-After")
}

func TestChat_Success(t *testing.T) {
	// Arrange
	var got domain.ChatRequest
	intent := "greeting"
	app := newTestApp(&stubEngine{
		ChatFunc: func(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
			got = req
			return &domain.ChatResponse{SessionID: req.SessionID, ResponseText: "Hi!", IntentName: &intent, Confidence: 1}, nil
		},
	})

	// Act
	code, body, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/bots/support/chat", ChatRequest{SessionID: "s1", Message: "hello"})

	// Assert
	if code != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if got.BotID != "support" || got.SessionID != "s1" || got.Message != "hello" {
		t.Errorf("unexpected request %+v", got)
	}
	if body["response_text"] != "Hi!" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestChat_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not trained", &domain.NotTrainedError{BotID: "support"}, fiber.StatusConflict, "not_ready"},
		{"ended", &domain.SessionEndedError{SessionID: "s1"}, fiber.StatusGone, "session_ended"},
		{"store down", &domain.ContextStoreUnavailableError{Op: "get", Err: errors.New("refused")}, fiber.StatusServiceUnavailable, "store_unavailable"},
		{"unknown bot", domain.ErrBotNotFound, fiber.StatusNotFound, "not_found"},
		{"empty", domain.ErrEmptyMessage, fiber.StatusBadRequest, "invalid_request"},
		{"boom", errors.New("boom"), fiber.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(&stubEngine{
				ChatFunc: func(context.Context, domain.ChatRequest) (*domain.ChatResponse, error) {
					return nil, tt.err
				},
			})

			code, body, retryAfter := doJSON(t, app, fiber.MethodPost, "/api/v1/bots/support/chat", ChatRequest{SessionID: "s1", Message: "x"})

			if code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, code)
			}
			if body["code"] != tt.wantCode {
				t.Errorf("expected code %s, got %v", tt.wantCode, body["code"])
			}
			if tt.wantStatus == fiber.StatusServiceUnavailable && retryAfter == "" {
				t.Error("expected Retry-After header")
			}
		})
	}
}

func TestTrain_SyncAndAsync(t *testing.T) {
	// Arrange
	app := newTestApp(&stubEngine{
		TrainFunc: func(ctx context.Context, botID string) (*domain.TrainingSummary, error) {
			return &domain.TrainingSummary{BotID: botID, Version: 3}, nil
		},
		EnqueueFunc: func(ctx context.Context, botID string) (*domain.TrainingJob, error) {
			return &domain.TrainingJob{ID: "job-1", BotID: botID, Status: domain.TrainingJobQueued}, nil
		},
	})

	// Act
	syncCode, syncBody, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/bots/support/train", nil)
	asyncCode, asyncBody, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/bots/support/train?async=true", nil)

	// Assert
	if syncCode != fiber.StatusOK || syncBody["version"] != float64(3) {
		t.Errorf("unexpected sync response %d %v", syncCode, syncBody)
	}
	if asyncCode != fiber.StatusAccepted || asyncBody["id"] != "job-1" {
		t.Errorf("unexpected async response %d %v", asyncCode, asyncBody)
	}
}

func TestTrain_InsufficientData(t *testing.T) {
	app := newTestApp(&stubEngine{
		TrainFunc: func(ctx context.Context, botID string) (*domain.TrainingSummary, error) {
			return nil, &domain.InsufficientDataError{Intent: "greeting", Reason: "no training phrases"}
		},
	})

	code, body, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/bots/support/train", nil)

	if code != fiber.StatusUnprocessableEntity || body["code"] != "training_failed" {
		t.Errorf("expected 422 training_failed, got %d %v", code, body)
	}
}

func TestHistoryAndEnd(t *testing.T) {
	// Arrange
	var ended string
	app := newTestApp(&stubEngine{
		HistoryFunc: func(ctx context.Context, botID, sessionID string) ([]domain.Turn, error) {
			return []domain.Turn{{ID: "t1", InputText: "hello"}}, nil
		},
		EndFunc: func(ctx context.Context, botID, sessionID string) error {
			ended = botID + "/" + sessionID
			return nil
		},
	})

	// Act
	historyCode, historyBody, _ := doJSON(t, app, fiber.MethodGet, "/api/v1/bots/support/sessions/s1/history", nil)
	endCode, _, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/bots/support/sessions/s1/end", nil)

	// Assert
	if historyCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", historyCode)
	}
	turns, _ := historyBody["turns"].([]interface{})
	if len(turns) != 1 {
		t.Errorf("expected one turn, got %v", historyBody)
	}
	if endCode != fiber.StatusNoContent || ended != "support/s1" {
		t.Errorf("expected 204 for support/s1, got %d %q", endCode, ended)
	}
}

func TestJob_NotFound(t *testing.T) {
	app := newTestApp(&stubEngine{
		JobFunc: func(ctx context.Context, jobID string) (*domain.TrainingJob, error) {
			return nil, domain.ErrJobNotFound
		},
	})

	code, _, _ := doJSON(t, app, fiber.MethodGet, "/api/v1/training/jobs/nope", nil)

	if code != fiber.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

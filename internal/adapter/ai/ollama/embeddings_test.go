package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestEmbed(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": []float32{0.1, 0.2, 0.3},
		})
	}))
	defer server.Close()
	client := NewClient(server.URL, "test-model", 0, nil, zap.NewNop())

	// Act
	emb, err := client.Embed(context.Background(), "hello")

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(emb) != 3 {
		t.Errorf("expected 3 dims, got %d", len(emb))
	}
}

func TestEmbedBatch_KeepsInputOrder(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": []float32{float32(len(req.Prompt))},
		})
	}))
	defer server.Close()
	client := NewClient(server.URL, "test-model", 2, nil, zap.NewNop())

	// Act
	out, err := client.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for i, v := range out {
		if v[0] != float32(i+1) {
			t.Errorf("expected vector %d to be %d, got %v", i, i+1, v)
		}
	}
}

func TestEmbed_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()
	client := NewClient(server.URL, "test", 0, nil, zap.NewNop())

	_, err := client.Embed(context.Background(), "test")

	if err == nil {
		t.Error("expected error on 500")
	}
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("", "", 0, nil, zap.NewNop())

	if client.baseURL != DefaultBaseURL || client.model != DefaultModel {
		t.Errorf("unexpected defaults %s %s", client.baseURL, client.model)
	}
}

package vault

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetEmbeddingAPIKey_KVv2(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/embedding" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("X-Vault-Token") != "root" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"data": map[string]interface{}{"api_key": "sk-test"},
			},
		})
	}))
	defer server.Close()
	sm, err := NewSecretManager(server.URL, "root")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Act
	key, err := sm.GetEmbeddingAPIKey(context.Background(), "")

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if key != "sk-test" {
		t.Errorf("expected sk-test, got %s", key)
	}
}

func TestReadField_MissingField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"other": "x"},
		})
	}))
	defer server.Close()
	sm, _ := NewSecretManager(server.URL, "root")

	_, err := sm.ReadField(context.Background(), "secret/embedding", "api_key")

	if err == nil {
		t.Error("expected error for missing field")
	}
}

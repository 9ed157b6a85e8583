package vault

import (
	"context"
	"fmt"

	"github.com/hashicorp/vault/api"
)

type SecretManager struct {
	client *api.Client
}

func NewSecretManager(address, token string) (*SecretManager, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, err
	}

	client.SetToken(token)

	return &SecretManager{client: client}, nil
}

// ReadField reads one field from a KV secret. Both KV v2 ("data" wrapped)
// and KV v1 layouts are accepted.
func (sm *SecretManager) ReadField(ctx context.Context, path, field string) (string, error) {
	secret, err := sm.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return "", fmt.Errorf("vault: read %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("vault: secret %s not found", path)
	}

	data := secret.Data
	if nested, ok := data["data"].(map[string]interface{}); ok {
		data = nested
	}
	value, ok := data[field].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("vault: field %q missing in %s", field, path)
	}
	return value, nil
}

// GetEmbeddingAPIKey returns the API key of the remote embedding provider.
func (sm *SecretManager) GetEmbeddingAPIKey(ctx context.Context, path string) (string, error) {
	if path == "" {
		path = "secret/data/embedding"
	}
	return sm.ReadField(ctx, path, "api_key")
}

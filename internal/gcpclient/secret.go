package gcpclient

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// SecretAdapter wraps the Secret Manager client to implement
// service.SecretResolver, resolving the sensitive values spec.md §6 calls
// out by secret id instead of raw environment values.
type SecretAdapter struct {
	client  *secretmanager.Client
	project string
}

// NewSecretAdapter creates a SecretAdapter bound to project.
func NewSecretAdapter(ctx context.Context, project string) (*SecretAdapter, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcpclient.NewSecretAdapter: %w", err)
	}
	return &SecretAdapter{client: client, project: project}, nil
}

// Resolve fetches the latest version of secretID and returns its payload as
// a string.
func (a *SecretAdapter) Resolve(ctx context.Context, secretID string) (string, error) {
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", a.project, secretID)
	resp, err := a.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("gcpclient.Resolve %s: %w", secretID, err)
	}
	return string(resp.Payload.Data), nil
}

// Close closes the underlying client.
func (a *SecretAdapter) Close() {
	a.client.Close()
}

package ports

import (
	"context"

	"github.com/hashicorp/vault/api"
)

// SecretsRepository is the slice of the Vault logical API used to overlay
// credentials on the environment configuration at startup.
type SecretsRepository interface {
	// SetToken replaces the token used by subsequent calls, e.g. after an AppRole login.
	SetToken(v string)
	GetSecrets(ctx context.Context, path string) (*api.Secret, error)
	WriteWithContext(ctx context.Context, path string, data map[string]any) (*api.Secret, error)
}

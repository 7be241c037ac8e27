package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/architeacher/device-inventory/internal/ports"
	"github.com/cenkalti/backoff/v5"
	"github.com/kelseyhightower/envconfig"
)

var errSecretsDisabled = errors.New("secret storage is not enabled")

// Init reads the configuration from the environment.
func Init() (*ServiceConfig, error) {
	cfg := &ServiceConfig{}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("unable to parse service configuration: %w", err)
	}

	if len(ServiceVersion) != 0 {
		cfg.App.ServiceVersion = ServiceVersion
	}

	if len(CommitSHA) != 0 {
		cfg.App.CommitSHA = CommitSHA
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service configuration: %w", err)
	}

	return cfg, nil
}

// Loader overlays credentials kept in Vault on top of the environment configuration.
type Loader struct {
	cfg         *ServiceConfig
	secretsRepo ports.SecretsRepository
}

func NewLoader(cfg *ServiceConfig, secretsRepo ports.SecretsRepository) *Loader {
	return &Loader{
		cfg:         cfg,
		secretsRepo: secretsRepo,
	}
}

// Load authenticates, reads the service secret and applies the known keys. It
// returns the secret version that was applied.
func (l *Loader) Load(ctx context.Context) (uint, error) {
	if !l.cfg.SecretsStorage.Enabled {
		return 0, errSecretsDisabled
	}

	if err := l.authenticate(ctx); err != nil {
		return 0, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	payload, err := l.readSecret(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load secrets from Vault: %w", err)
	}

	data, err := section(payload, "data")
	if err != nil {
		return 0, err
	}

	for key, value := range data {
		if str, ok := value.(string); ok && str != "" {
			l.apply(key, str)
		}
	}

	metadata, err := section(payload, "metadata")
	if err != nil {
		return 0, err
	}

	return secretVersion(metadata)
}

// Dump renders the configuration without credentials.
func (l *Loader) Dump() string {
	out, err := json.MarshalIndent(l.cfg, "", "  ")
	if err != nil {
		return fmt.Sprintf("unable to render configuration: %v", err)
	}

	return string(out)
}

func (l *Loader) authenticate(ctx context.Context) error {
	storage := l.cfg.SecretsStorage

	switch strings.ToLower(storage.AuthMethod) {
	case "token":
		if storage.Token == "" {
			return errors.New("token is required for token auth method")
		}

		l.secretsRepo.SetToken(storage.Token)

		return nil

	case "approle":
		if storage.RoleID == "" || storage.SecretID == "" {
			return errors.New("role_id and secret_id are required for approle auth method")
		}

		resp, err := l.secretsRepo.WriteWithContext(ctx, "auth/approle/login", map[string]any{
			"role_id":   storage.RoleID,
			"secret_id": storage.SecretID,
		})
		if err != nil {
			return fmt.Errorf("failed to authenticate via approle: %w", err)
		}

		if resp == nil || resp.Auth == nil {
			return errors.New("no auth info returned from Vault")
		}

		l.secretsRepo.SetToken(resp.Auth.ClientToken)

		return nil

	default:
		return fmt.Errorf("unsupported auth method: %s", storage.AuthMethod)
	}
}

func (l *Loader) readSecret(ctx context.Context) (map[string]any, error) {
	storage := l.cfg.SecretsStorage
	path := "apps/data/" + storage.MountPath

	ctx, cancel := context.WithTimeout(ctx, storage.Timeout)
	defer cancel()

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = l.cfg.Backoff.BaseDelay
	expBackoff.Multiplier = l.cfg.Backoff.Multiplier
	expBackoff.RandomizationFactor = l.cfg.Backoff.Jitter
	expBackoff.MaxInterval = l.cfg.Backoff.MaxDelay

	secret, err := backoff.Retry(ctx, func() (map[string]any, error) {
		s, err := l.secretsRepo.GetSecrets(ctx, path)
		if err != nil {
			return nil, err
		}

		if s == nil {
			return nil, nil
		}

		return s.Data, nil
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(storage.MaxRetries+1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read from path %s: %w", path, err)
	}

	return secret, nil
}

// apply maps the secret keys this service understands onto the configuration.
func (l *Loader) apply(key, value string) {
	switch key {
	case "POSTGRES_USERNAME":
		l.cfg.Database.Username = value
	case "POSTGRES_PASSWORD":
		l.cfg.Database.Password = value
	case "CACHE_PASSWORD":
		l.cfg.Cache.Password = value
	}
}

func section(payload map[string]any, name string) (map[string]any, error) {
	if payload == nil {
		return nil, nil
	}

	raw, ok := payload[name]
	if !ok || raw == nil {
		return nil, nil
	}

	result, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid secret format, %q is %T", name, raw)
	}

	return result, nil
}

func secretVersion(metadata map[string]any) (uint, error) {
	raw, ok := metadata["version"]
	if !ok {
		return 0, nil
	}

	switch v := raw.(type) {
	case float64:
		return uint(v), nil
	case int:
		return uint(v), nil
	case json.Number:
		version, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("failed to parse version: %w", err)
		}

		return uint(version), nil
	default:
		return 0, fmt.Errorf("unexpected version type: %T", raw)
	}
}


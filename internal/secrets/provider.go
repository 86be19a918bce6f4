package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// ErrSecretNotFound is returned when a secret has no value in the store
var ErrSecretNotFound = errors.New("secret not found")

// Source defines where secrets are loaded from
type Source string

const (
	// SourceEnvironment reads secrets from environment variables
	SourceEnvironment Source = "environment"
	// SourceVault reads secrets from Azure Key Vault
	SourceVault Source = "vault"
	// SourceAuto uses the environment in development and the vault elsewhere
	SourceAuto Source = "auto"
)

// Store is a backend that can resolve a secret by name
type Store interface {
	Get(ctx context.Context, name string) (string, error)
}

// EnvStore resolves secrets from process environment variables
type EnvStore struct{}

// Get returns the environment variable value or ErrSecretNotFound
func (EnvStore) Get(_ context.Context, name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	return value, nil
}

// Provider resolves named secrets, preferring explicit environment overrides
type Provider struct {
	source Source
	store  Store
	logger *zap.Logger
}

// ProviderConfig holds configuration for the secrets provider
type ProviderConfig struct {
	Source      Source
	VaultName   string
	Environment string
	Cache       CacheConfig
}

// ResolveSource maps SourceAuto to a concrete source for the given environment
func ResolveSource(source Source, environment string) Source {
	if source != SourceAuto {
		return source
	}
	switch environment {
	case "development", "local", "test", "":
		return SourceEnvironment
	default:
		return SourceVault
	}
}

// NewProvider builds a provider for the configured source
func NewProvider(cfg *ProviderConfig, logger *zap.Logger) (*Provider, error) {
	source := ResolveSource(cfg.Source, cfg.Environment)

	var store Store
	switch source {
	case SourceEnvironment:
		store = EnvStore{}
	case SourceVault:
		vault, err := NewVaultStore(cfg.VaultName, cfg.Cache, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vault store: %w", err)
		}
		store = vault
	default:
		return nil, fmt.Errorf("unknown secret source: %s", cfg.Source)
	}

	logger.Info("Secrets provider initialized",
		zap.String("source", string(source)),
		zap.String("environment", cfg.Environment),
	)

	return NewProviderWithStore(source, store, logger), nil
}

// NewProviderWithStore wraps an existing store
func NewProviderWithStore(source Source, store Store, logger *zap.Logger) *Provider {
	return &Provider{source: source, store: store, logger: logger}
}

// Get retrieves a secret from the configured store
func (p *Provider) Get(ctx context.Context, name string) (string, error) {
	return p.store.Get(ctx, name)
}

// GetOrEnv returns envName when it is set, otherwise the secret from the store
func (p *Provider) GetOrEnv(ctx context.Context, secretName, envName string) (string, error) {
	if v := os.Getenv(envName); v != "" {
		p.logger.Debug("Using environment variable override", zap.String("env_name", envName))
		return v, nil
	}
	return p.store.Get(ctx, secretName)
}

// Source returns the resolved secret source
func (p *Provider) Source() Source {
	return p.source
}

package secrets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"go.uber.org/zap"
)

// CacheConfig controls in-process caching of vault lookups
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

// VaultStore reads secrets from Azure Key Vault
type VaultStore struct {
	client *azsecrets.Client
	logger *zap.Logger
	cache  CacheConfig
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]cachedSecret
}

// NewVaultStore creates a Key Vault backed store.
// Authentication goes through DefaultAzureCredential: environment variables,
// managed identity or the Azure CLI login.
func NewVaultStore(vaultName string, cache CacheConfig, logger *zap.Logger) (*VaultStore, error) {
	if vaultName == "" {
		return nil, fmt.Errorf("vault name is required")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	vaultURL := fmt.Sprintf("https://%s.vault.azure.net/", vaultName)
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}

	if cache.TTL == 0 {
		cache.TTL = 5 * time.Minute
	}

	logger.Info("Azure Key Vault client initialized",
		zap.String("vault_url", vaultURL),
		zap.Bool("cache_enabled", cache.Enabled),
	)

	return &VaultStore{
		client:  client,
		logger:  logger,
		cache:   cache,
		now:     time.Now,
		entries: make(map[string]cachedSecret),
	}, nil
}

// Get fetches a secret, serving from cache while the entry is fresh
func (v *VaultStore) Get(ctx context.Context, name string) (string, error) {
	if value, ok := v.cached(name); ok {
		return value, nil
	}

	resp, err := v.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", fmt.Errorf("failed to get secret '%s': %w", name, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}

	if v.cache.Enabled {
		v.mu.Lock()
		v.entries[name] = cachedSecret{value: *resp.Value, expiresAt: v.now().Add(v.cache.TTL)}
		v.mu.Unlock()
	}
	v.logger.Debug("Secret retrieved from Key Vault", zap.String("secret_name", name))
	return *resp.Value, nil
}

func (v *VaultStore) cached(name string) (string, bool) {
	if !v.cache.Enabled {
		return "", false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	entry, ok := v.entries[name]
	if !ok {
		return "", false
	}
	if v.now().After(entry.expiresAt) {
		delete(v.entries, name)
		return "", false
	}
	return entry.value, true
}

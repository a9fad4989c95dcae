package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/vault/api"

	"resumecvpro/internal/errors"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets names the KV v2 secrets holding credentials. Paths are
// relative to Mount, e.g. "resumecvpro/gemini".
type VaultSecrets struct {
	Mount string `mapstructure:"mount"`
	// APIKeys holds a "keys" field with comma-separated server API keys
	APIKeys string `mapstructure:"apiKeys"`
	// GeminiKey holds an "api_key" field with the Gemini key
	GeminiKey string `mapstructure:"geminiKey"`
}

const defaultKVMount = "secret"

// VaultClient reads credentials from a KV v2 engine.
type VaultClient struct {
	kv     *api.KVv2
	logger *errors.Logger
}

// NewVaultClient connects to Vault and checks it is reachable and unsealed.
// It returns nil, nil when Vault is disabled.
func NewVaultClient(ctx context.Context, cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if !cfg.Enabled {
		logger.Debug("Vault integration disabled")
		return nil, nil
	}

	apiCfg := api.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	token, err := resolveVaultToken(cfg, logger)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().HealthWithContext(ctx)
	if err != nil {
		logger.LogError(err, "Failed to reach Vault", "address", apiCfg.Address)
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	if health.Sealed {
		return nil, fmt.Errorf("vault at %s is sealed", apiCfg.Address)
	}
	logger.Info("Connected to Vault", "address", apiCfg.Address, "version", health.Version)

	mount := cfg.Secrets.Mount
	if mount == "" {
		mount = defaultKVMount
	}
	return &VaultClient{kv: client.KVv2(mount), logger: logger}, nil
}

// resolveVaultToken prefers the inline token over the token file.
func resolveVaultToken(cfg VaultConfig, logger *errors.Logger) (string, error) {
	if cfg.Token != "" {
		return cfg.Token, nil
	}
	if cfg.TokenFile != "" {
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			if logger != nil {
				logger.LogError(err, "Failed to read Vault token file", "file", cfg.TokenFile)
			}
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		if token := strings.TrimSpace(string(raw)); token != "" {
			return token, nil
		}
	}
	return "", fmt.Errorf("vault token is required when vault is enabled")
}

// ReadString returns one string field of the latest version of a secret.
func (vc *VaultClient) ReadString(ctx context.Context, path, key string) (string, error) {
	if vc == nil {
		return "", fmt.Errorf("vault client not initialized")
	}
	secret, err := vc.kv.Get(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret %s: %w", path, err)
	}

	raw, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}

	version := 0
	if secret.VersionMetadata != nil {
		version = secret.VersionMetadata.Version
	}
	vc.logger.Debug("Secret read from Vault", "path", path, "key", key, "version", version, "value", maskSecret(value))
	return value, nil
}

func maskSecret(s string) string {
	switch {
	case len(s) > 8:
		return s[:4] + "****" + s[len(s)-4:]
	case len(s) > 0:
		return "****"
	default:
		return ""
	}
}

// ApplyVaultSecrets overrides API credentials with the values stored in Vault.
func ApplyVaultSecrets(ctx context.Context, cfg *Config, logger *errors.Logger) error {
	if !cfg.Vault.Enabled {
		return nil
	}
	client, err := NewVaultClient(ctx, cfg.Vault, logger)
	if err != nil {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "vault is unavailable", err)
	}
	return applySecrets(ctx, client, cfg, logger)
}

// secretReader is the subset of VaultClient used to apply secrets.
type secretReader interface {
	ReadString(ctx context.Context, path, key string) (string, error)
}

func applySecrets(ctx context.Context, client secretReader, cfg *Config, logger *errors.Logger) error {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	secrets := cfg.Vault.Secrets

	if secrets.APIKeys != "" {
		raw, err := client.ReadString(ctx, secrets.APIKeys, "keys")
		if err != nil {
			return errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to load API keys from vault", err)
		}
		if keys := splitKeys(raw); len(keys) > 0 {
			cfg.Server.APIKeys = keys
			logger.Info("Server API keys loaded from Vault", "count", len(keys))
		} else {
			logger.Warn("Vault secret holds no API keys", "path", secrets.APIKeys)
		}
	}

	if secrets.GeminiKey != "" {
		key, err := client.ReadString(ctx, secrets.GeminiKey, "api_key")
		if err != nil {
			return errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to load Gemini API key from vault", err)
		}
		if key == "" {
			logger.Warn("Vault secret holds an empty Gemini key", "path", secrets.GeminiKey)
			return nil
		}
		// an explicit ai.analyze.apiKey still wins
		cfg.AI.APIKey = key
		if cfg.AI.Analyze.APIKey == "" {
			cfg.AI.Analyze.APIKey = key
		}
		logger.Info("Gemini API key loaded from Vault")
	}
	return nil
}

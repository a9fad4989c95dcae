package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"resumecvpro/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *errors.Logger {
	logger, _ := errors.New("debug")
	return logger
}

type fakeSecrets map[string]map[string]string

func (f fakeSecrets) ReadString(_ context.Context, path, key string) (string, error) {
	secret, ok := f[path]
	if !ok {
		return "", fmt.Errorf("secret not found at path: %s", path)
	}
	value, ok := secret[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	return value, nil
}

// fakeVault serves the health and KV v2 read endpoints for the given secrets.
func fakeVault(t *testing.T, sealed bool, secrets map[string]map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/sys/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"initialized": true, "sealed": sealed, "version": "1.15.0"})
	})
	mux.HandleFunc("GET /v1/secret/data/{path...}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "test-token" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
			return
		}
		data, ok := secrets[r.PathValue("path")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data":     data,
				"metadata": map[string]any{"version": 3, "created_time": "2025-01-01T00:00:00Z", "destroyed": false},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestVaultClient(t *testing.T) {
	srv := fakeVault(t, false, map[string]map[string]any{
		"resumecvpro/gemini": {"api_key": "vault-gemini", "count": 2},
		"resumecvpro/api":    {"keys": "k1,k2"},
	})
	ctx := context.Background()

	client, err := NewVaultClient(ctx, VaultConfig{Enabled: true, Address: srv.URL, Token: "test-token"}, newTestLogger())
	require.NoError(t, err)

	value, err := client.ReadString(ctx, "resumecvpro/gemini", "api_key")
	require.NoError(t, err)
	assert.Equal(t, "vault-gemini", value)

	_, err = client.ReadString(ctx, "resumecvpro/gemini", "count")
	assert.ErrorContains(t, err, "is not a string")

	_, err = client.ReadString(ctx, "resumecvpro/gemini", "missing")
	assert.ErrorContains(t, err, "not found")

	_, err = client.ReadString(ctx, "resumecvpro/nope", "api_key")
	assert.Error(t, err)

	t.Run("apply end to end", func(t *testing.T) {
		cfg := &Config{Vault: VaultConfig{
			Enabled: true,
			Address: srv.URL,
			Token:   "test-token",
			Secrets: VaultSecrets{APIKeys: "resumecvpro/api", GeminiKey: "resumecvpro/gemini"},
		}}
		require.NoError(t, ApplyVaultSecrets(ctx, cfg, nil))
		assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
		assert.Equal(t, "vault-gemini", cfg.AI.APIKey)
	})
}

func TestVaultClientSealed(t *testing.T) {
	srv := fakeVault(t, true, nil)
	_, err := NewVaultClient(context.Background(), VaultConfig{Enabled: true, Address: srv.URL, Token: "test-token"}, nil)
	assert.ErrorContains(t, err, "sealed")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "AIza****wxyz", maskSecret("AIzaSyABCDEFwxyz"))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "", maskSecret(""))
}

func TestResolveVaultToken(t *testing.T) {
	t.Run("inline token wins", func(t *testing.T) {
		token, err := resolveVaultToken(VaultConfig{Token: "inline", TokenFile: "/does/not/exist"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "inline", token)
	})

	t.Run("token file is trimmed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token")
		require.NoError(t, os.WriteFile(path, []byte("  from-file\n"), 0600))

		token, err := resolveVaultToken(VaultConfig{TokenFile: path}, newTestLogger())
		require.NoError(t, err)
		assert.Equal(t, "from-file", token)
	})

	t.Run("missing token file", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{TokenFile: filepath.Join(t.TempDir(), "nope")}, newTestLogger())
		assert.ErrorContains(t, err, "failed to read vault token file")
	})

	t.Run("no token at all", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{}, nil)
		assert.ErrorContains(t, err, "vault token is required")
	})
}

func TestNewVaultClientDisabled(t *testing.T) {
	client, err := NewVaultClient(context.Background(), VaultConfig{Enabled: false}, newTestLogger())
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestReadStringNilClient(t *testing.T) {
	var vc *VaultClient
	_, err := vc.ReadString(context.Background(), "x", "y")
	assert.ErrorContains(t, err, "not initialized")
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{AI: AIConfig{APIKey: "env-key"}}
	require.NoError(t, ApplyVaultSecrets(context.Background(), cfg, newTestLogger()))
	assert.Equal(t, "env-key", cfg.AI.APIKey)
}

func TestApplySecrets(t *testing.T) {
	ctx := context.Background()
	secrets := fakeSecrets{
		"api":    {"keys": " k1, k2 ,,"},
		"gemini": {"api_key": "vault-gemini"},
		"empty":  {"keys": "", "api_key": ""},
	}

	t.Run("loads API keys and gemini key", func(t *testing.T) {
		cfg := &Config{
			AI:    AIConfig{APIKey: "env-key"},
			Vault: VaultConfig{Secrets: VaultSecrets{APIKeys: "api", GeminiKey: "gemini"}},
		}
		require.NoError(t, applySecrets(ctx, secrets, cfg, newTestLogger()))

		assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
		assert.Equal(t, "vault-gemini", cfg.AI.APIKey)
		assert.Equal(t, "vault-gemini", cfg.AI.Analyze.APIKey)
	})

	t.Run("explicit analyze key is kept", func(t *testing.T) {
		cfg := &Config{
			AI:    AIConfig{Analyze: OperationAIConfig{APIKey: "analyze-key"}},
			Vault: VaultConfig{Secrets: VaultSecrets{GeminiKey: "gemini"}},
		}
		require.NoError(t, applySecrets(ctx, secrets, cfg, nil))

		assert.Equal(t, "vault-gemini", cfg.AI.APIKey)
		assert.Equal(t, "analyze-key", cfg.AI.Analyze.APIKey)
	})

	t.Run("empty values leave config untouched", func(t *testing.T) {
		cfg := &Config{
			AI:     AIConfig{APIKey: "env-key"},
			Server: ServerConfig{APIKeys: []string{"existing"}},
			Vault:  VaultConfig{Secrets: VaultSecrets{APIKeys: "empty", GeminiKey: "empty"}},
		}
		require.NoError(t, applySecrets(ctx, secrets, cfg, newTestLogger()))

		assert.Equal(t, "env-key", cfg.AI.APIKey)
		assert.Equal(t, []string{"existing"}, cfg.Server.APIKeys)
	})

	t.Run("missing path is a config error", func(t *testing.T) {
		cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{GeminiKey: "missing"}}}
		err := applySecrets(ctx, secrets, cfg, nil)
		assert.ErrorContains(t, err, "failed to load Gemini API key from vault")
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})
}

package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	clearEnv(t, "EMBEDDING_BASE_URL", "EMBEDDING_MODEL", "DB_MEMORY_BACKEND", "DB_CHAT_BACKEND", "DB_TELEGRAM_BACKEND")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:11434", cfg.Embedding.BaseURL)
	require.Equal(t, "/v1/embeddings", cfg.Embedding.Path)
	require.Equal(t, "memory", cfg.Databases.Memory.Backend)
	require.Equal(t, 5, cfg.Enrichment.RAG.TopK)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	os.Setenv("EMBEDDING_MODEL", "custom-model")
	t.Cleanup(func() { os.Unsetenv("EMBEDDING_MODEL") })

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "custom-model", cfg.Embedding.Model)
}

func TestLoad_PostgresBackendWithoutDSNIsInvalid(t *testing.T) {
	os.Setenv("DB_CHAT_BACKEND", "postgres")
	os.Setenv("DB_CHAT_DSN", "")
	t.Cleanup(func() {
		os.Unsetenv("DB_CHAT_BACKEND")
		os.Unsetenv("DB_CHAT_DSN")
	})

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_UnknownBackendIsInvalid(t *testing.T) {
	os.Setenv("DB_MEMORY_BACKEND", "sqlite")
	t.Cleanup(func() { os.Unsetenv("DB_MEMORY_BACKEND") })

	_, err := Load()
	require.Error(t, err)
}

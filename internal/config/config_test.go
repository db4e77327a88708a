package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedEnv = []string{
	"DAYBOOK_CONFIG", "PORT",
	"DAYBOOK_AI_PROVIDER", "DAYBOOK_AI_MODEL", "DAYBOOK_AI_TEMPERATURE", "DAYBOOK_AI_MAX_TOKENS", "DAYBOOK_AI_TIMEOUT",
	"GEMINI_API_KEY", "ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "ARK_BASE_URL", "ARK_REGION",
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "OLLAMA_BASE_URL", "OLLAMA_API_KEY",
	"DAYBOOK_SEMANTIC_CRISIS_CHECK", "DAYBOOK_SAFETY_MODEL",
	"DAYBOOK_USER_NAME", "DAYBOOK_TIMEZONE", "DAYBOOK_CONTEXT_DAYS", "DAYBOOK_CONTEXT_ENTRIES",
	"DAYBOOK_STORE", "DAYBOOK_DATA_DIR", "DAYBOOK_LOG_LEVEL", "DAYBOOK_LOG_DEV",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range managedEnv {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, "gemini-2.0-flash-lite", cfg.AI.Model)
	assert.False(t, cfg.AI.Enabled(), "no key configured")
	assert.True(t, cfg.Safety.SemanticCheck)
	assert.Equal(t, 3, cfg.Journal.ContextDays)
	assert.Equal(t, StoreFile, cfg.Store.Driver)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Run("gemini key selects gemini", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "g-key")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, ProviderGemini, cfg.AI.Provider)
		assert.Equal(t, "g-key", cfg.AI.APIKey)
		assert.True(t, cfg.AI.Enabled())
	})

	t.Run("ark requires model", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ARK_API_KEY", "a-key")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, ProviderArk, cfg.AI.Provider)
		assert.False(t, cfg.AI.Enabled())

		t.Setenv("DAYBOOK_AI_MODEL", "doubao")
		cfg, err = Load()
		require.NoError(t, err)
		assert.True(t, cfg.AI.Enabled())
	})

	t.Run("explicit provider wins", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "g-key")
		t.Setenv("DAYBOOK_AI_PROVIDER", "ollama")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, ProviderOllama, cfg.AI.Provider)
		assert.Equal(t, "http://localhost:11434/v1/", cfg.AI.BaseURL)
		assert.True(t, cfg.AI.Enabled())
	})

	t.Run("port and semantic flag", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "9000")
		t.Setenv("DAYBOOK_SEMANTIC_CRISIS_CHECK", "false")
		t.Setenv("DAYBOOK_AI_TIMEOUT", "5")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, ":9000", cfg.Server.Addr)
		assert.False(t, cfg.Safety.SemanticCheck)
		assert.Equal(t, 5*time.Second, cfg.AI.Timeout)
	})
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad port", "PORT", "80 80"},
		{"bad temperature", "DAYBOOK_AI_TEMPERATURE", "warm"},
		{"bad bool", "DAYBOOK_SEMANTIC_CRISIS_CHECK", "maybe"},
		{"bad provider", "DAYBOOK_AI_PROVIDER", "mystery"},
		{"bad store", "DAYBOOK_STORE", "redis"},
		{"bad timezone", "DAYBOOK_TIMEZONE", "Mars/Olympus"},
		{"zero timeout", "DAYBOOK_AI_TIMEOUT", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "daybook.yaml")
	content := `
ai:
  provider: openai
  api_key: file-key
  timeout: 12s
journal:
  user_name: Ada
  context_days: 5
store:
  driver: sqlite
  data_dir: /tmp/daybook
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("DAYBOOK_CONFIG", path)
	t.Setenv("DAYBOOK_CONTEXT_DAYS", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.AI.Provider)
	assert.Equal(t, "file-key", cfg.AI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, 12*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "Ada", cfg.Journal.UserName)
	assert.Equal(t, 2, cfg.Journal.ContextDays, "env overrides file")
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("DAYBOOK_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
}

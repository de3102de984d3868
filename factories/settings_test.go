package factories

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsConfig(t *testing.T) {
	cfg := DefaultSettingsConfig()
	require.Equal(t, ":3000", cfg.Server.Addr)
	require.Equal(t, "ollama", cfg.Completion.Backend)
	require.Equal(t, "gemma3:4b", cfg.Completion.Ollama.Model)
	require.Equal(t, "memory", cfg.Store.Backend)
	require.Equal(t, "nova", cfg.Synthesis.OpenAIFM.Voice)
}

func TestSettingsConfigFromJSONOverlaysDefaults(t *testing.T) {
	cfg, err := SettingsConfigFromJSON([]byte(`{
		"server": {"addr": ":8080"},
		"completion": {"backend": "openai", "openai": {"model": "gpt-4o-mini"}},
		"store": {"backend": "mongo", "mongo": {"uri": "mongodb://db:27017"}}
	}`))
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, "openai", cfg.Completion.Backend)
	require.Equal(t, "gpt-4o-mini", cfg.Completion.OpenAI.Model)
	require.Equal(t, "mongodb://db:27017", cfg.Store.Mongo.URI)

	// Untouched sections keep their defaults.
	require.Equal(t, "gemma3:4b", cfg.Completion.Ollama.Model)
	require.Equal(t, "vagent", cfg.Store.Mongo.Database)
}

func TestSettingsConfigRejectsUnknownBackends(t *testing.T) {
	_, err := SettingsConfigFromJSON([]byte(`{"completion": {"backend": "anthropic"}}`))
	require.Error(t, err)

	_, err = SettingsConfigFromJSON([]byte(`{"store": {"backend": "redis"}}`))
	require.Error(t, err)
}

func TestSettingsConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server": {"addr": ":9999"}}`), 0o600))

	cfg, err := SettingsConfigFromFile(path)
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.Server.Addr)

	_, err = SettingsConfigFromFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestBuildServerMemoryBackend(t *testing.T) {
	srv, err := BuildServer(DefaultSettingsConfig(), APIKeys{}, nil)
	require.NoError(t, err)
	require.NotNil(t, srv)
}

func TestBuildServerOpenAIRequiresKey(t *testing.T) {
	cfg := DefaultSettingsConfig()
	cfg.Completion.Backend = "openai"

	_, err := BuildServer(cfg, APIKeys{}, nil)
	require.Error(t, err)

	_, err = BuildServer(cfg, APIKeys{OpenAI: "key"}, nil)
	require.NoError(t, err)
}

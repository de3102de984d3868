// Package factories loads settings and wires stores, gateway services and
// handlers into a runnable server.
package factories

import (
	"fmt"
	"os"

	"vagent/handlers/completion"
	ollamallm "vagent/services/ollama/llm"
	openaillm "vagent/services/openai/llm"
	openaifmtts "vagent/services/openaifm/tts"
	"vagent/store"

	"github.com/bytedance/sonic"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `json:"addr"`
}

// CompletionSettings selects and configures the completion backend.
type CompletionSettings struct {
	// Backend is "ollama" (default) or "openai".
	Backend string                      `json:"backend"`
	Ollama  ollamallm.Config            `json:"ollama"`
	OpenAI  openaillm.Config            `json:"openai"`
	Handler completion.CompletionConfig `json:"handler"`
}

// SynthesisSettings configures the speech synthesis backend.
type SynthesisSettings struct {
	OpenAIFM openaifmtts.Config `json:"openaifm"`
}

// StoreSettings selects and configures conversation persistence.
type StoreSettings struct {
	// Backend is "memory" (default) or "mongo".
	Backend string            `json:"backend"`
	Mongo   store.MongoConfig `json:"mongo"`
}

// SettingsConfig is the top-level config loaded from settings.json.
type SettingsConfig struct {
	Server     ServerConfig       `json:"server"`
	Completion CompletionSettings `json:"completion"`
	Synthesis  SynthesisSettings  `json:"synthesis"`
	Store      StoreSettings      `json:"store"`
}

// APIKeys carries credentials injected from the environment, never from
// settings JSON.
type APIKeys struct {
	OpenAI string
}

// DefaultSettingsConfig returns a SettingsConfig pre-filled with every
// component's defaults: local Ollama, openai.fm synthesis, memory store.
func DefaultSettingsConfig() SettingsConfig {
	return SettingsConfig{
		Server:     ServerConfig{Addr: ":3000"},
		Completion: CompletionSettings{Backend: "ollama", Ollama: ollamallm.DefaultConfig(), OpenAI: openaillm.DefaultConfig(), Handler: completion.DefaultConfig()},
		Synthesis:  SynthesisSettings{OpenAIFM: openaifmtts.DefaultConfig()},
		Store:      StoreSettings{Backend: "memory", Mongo: store.DefaultMongoConfig()},
	}
}

// SettingsConfigFromJSON parses a JSON blob over the defaults.
func SettingsConfigFromJSON(data []byte) (SettingsConfig, error) {
	cfg := DefaultSettingsConfig()
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return SettingsConfig{}, fmt.Errorf("settings: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return SettingsConfig{}, err
	}
	return cfg, nil
}

// SettingsConfigFromFile reads and parses a SettingsConfig from a JSON file.
func SettingsConfigFromFile(path string) (SettingsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSettingsConfig(), fmt.Errorf("settings: read %q: %w", path, err)
	}
	return SettingsConfigFromJSON(data)
}

func (c SettingsConfig) validate() error {
	switch c.Completion.Backend {
	case "", "ollama", "openai":
	default:
		return fmt.Errorf("settings: unknown completion backend %q", c.Completion.Backend)
	}
	switch c.Store.Backend {
	case "", "memory", "mongo":
	default:
		return fmt.Errorf("settings: unknown store backend %q", c.Store.Backend)
	}
	return nil
}

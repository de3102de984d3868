package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vagent/core"
	"vagent/factories"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env.local"); err != nil {
		core.GetLogger().With(map[string]any{"error": err}).Warn("No .env.local file found or failed to load")
	}

	logger := core.GetLogger()
	settings, apiKeys := loadSettingsFromEnv()

	srv, err := factories.BuildServer(settings, apiKeys, logger)
	if err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to build server")
	}

	httpServer := &http.Server{
		Addr:    settings.Server.Addr,
		Handler: srv.Routes(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.With(map[string]any{"addr": settings.Server.Addr}).Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.With(map[string]any{"error": err}).Error("server error")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.With(map[string]any{"error": err}).Warn("shutdown did not finish cleanly")
	}
	srv.Close()
}

// loadSettingsFromEnv loads SettingsConfig from file and applies env var overrides.
func loadSettingsFromEnv() (factories.SettingsConfig, factories.APIKeys) {
	logger := core.GetLogger()

	settingsPath := getEnv("SETTINGS_PATH", "./settings.json")
	settings, err := factories.SettingsConfigFromFile(settingsPath)
	if err != nil {
		logger.With(map[string]any{"path": settingsPath, "error": err}).Warn("failed to load settings, using defaults")
		settings = factories.DefaultSettingsConfig()
	}

	settings.Server.Addr = getEnv("ADDR", settings.Server.Addr)
	settings.Completion.Backend = getEnv("COMPLETION_BACKEND", settings.Completion.Backend)
	settings.Completion.Ollama.BaseURL = getEnv("OLLAMA_BASE_URL", settings.Completion.Ollama.BaseURL)
	settings.Completion.Ollama.Model = getEnv("OLLAMA_MODEL", settings.Completion.Ollama.Model)
	settings.Synthesis.OpenAIFM.BaseURL = getEnv("TTS_BASE_URL", settings.Synthesis.OpenAIFM.BaseURL)
	settings.Synthesis.OpenAIFM.Voice = getEnv("TTS_VOICE", settings.Synthesis.OpenAIFM.Voice)
	settings.Synthesis.OpenAIFM.Prompt = getEnv("TTS_PROMPT", settings.Synthesis.OpenAIFM.Prompt)

	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		settings.Store.Backend = "mongo"
		settings.Store.Mongo.URI = uri
		settings.Store.Mongo.Database = getEnv("MONGODB_DATABASE", settings.Store.Mongo.Database)
	}

	apiKeys := factories.APIKeys{
		OpenAI: getEnv("OPENROUTER_API_KEY", ""),
	}

	return settings, apiKeys
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

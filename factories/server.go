package factories

import (
	"fmt"

	"vagent/core"
	"vagent/handlers/completion"
	"vagent/handlers/synthesis"
	"vagent/server"
	ollamallm "vagent/services/ollama/llm"
	openaillm "vagent/services/openai/llm"
	openaifmtts "vagent/services/openaifm/tts"
	"vagent/store"
)

// BuildServer wires the configured store and gateway services into a
// ready-to-serve Server.
func BuildServer(settings SettingsConfig, apiKeys APIKeys, logger *core.Logger) (*server.Server, error) {
	if logger == nil {
		logger = core.GetLogger()
	}

	st, err := buildStore(settings.Store, logger)
	if err != nil {
		return nil, err
	}

	completionService, err := buildCompletionService(settings.Completion, apiKeys, logger)
	if err != nil {
		return nil, err
	}
	completionHandler := completion.NewCompletionHandler(completionService, settings.Completion.Handler, logger)

	synthesisService := openaifmtts.NewOpenAIFMTTS(settings.Synthesis.OpenAIFM, logger)
	synthesisHandler := synthesis.NewSynthesisHandler(synthesisService, logger)

	hub := server.NewStatusHub(logger)

	return server.New(st, completionHandler, synthesisHandler, hub, logger), nil
}

func buildStore(settings StoreSettings, logger *core.Logger) (store.ConversationStore, error) {
	switch settings.Backend {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "mongo":
		return store.NewMongoStore(settings.Mongo, logger), nil
	default:
		return nil, fmt.Errorf("factories: unknown store backend %q", settings.Backend)
	}
}

func buildCompletionService(settings CompletionSettings, apiKeys APIKeys, logger *core.Logger) (completion.ICompletionService, error) {
	switch settings.Backend {
	case "", "ollama":
		return ollamallm.NewOllamaLLMService(settings.Ollama, logger), nil
	case "openai":
		config := settings.OpenAI
		config.APIKey = apiKeys.OpenAI
		return openaillm.NewOpenAILLMService(config, logger)
	default:
		return nil, fmt.Errorf("factories: unknown completion backend %q", settings.Backend)
	}
}

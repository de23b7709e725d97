package ai

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Registry config keys
const (
	ConfigAPIKey  = "api_key"
	ConfigBaseURL = "base_url"
	ConfigModel   = "model"
)

// DefaultRegistry returns a registry with the OpenAI and Gemini providers registered
func DefaultRegistry(logger *zap.Logger, debugMode bool) *ProviderRegistry {
	r := NewProviderRegistry()
	r.Register(ProviderOpenAI, func(config map[string]string) (Provider, error) {
		if config[ConfigAPIKey] == "" {
			return nil, errors.New("openai api key is required")
		}
		return NewOpenAIProvider(config[ConfigAPIKey], config[ConfigBaseURL], config[ConfigModel], logger, debugMode), nil
	})
	r.Register(ProviderGemini, func(config map[string]string) (Provider, error) {
		return NewGeminiProvider(context.Background(), config[ConfigAPIKey], config[ConfigBaseURL], config[ConfigModel], logger, debugMode)
	})
	return r
}

package ai

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Provider names used for registry keys, logs and metrics
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// callLogger emits the debug request/response/error lines shared by providers
type callLogger struct {
	logger    *zap.Logger
	debugMode bool
	provider  string
}

func (l callLogger) enabled() bool {
	return l.logger != nil && l.debugMode
}

func (l callLogger) fields(ctx context.Context, operation, model string) []zap.Field {
	return []zap.Field{
		zap.String("provider", l.provider),
		zap.String("operation", operation),
		zap.String("model", model),
		zap.String("user_id", ExtractUserID(ctx)),
		zap.String("session_id", ExtractSessionID(ctx)),
		zap.String("request_id", ExtractRequestID(ctx)),
	}
}

func (l callLogger) request(ctx context.Context, operation, model, prompt string, messageCount int) {
	if !l.enabled() {
		return
	}
	fields := append(l.fields(ctx, operation, model),
		zap.Int("prompt_length", len(prompt)),
		zap.Int("message_count", messageCount),
		zap.String("prompt_preview", SanitizePrompt(prompt, false)),
	)
	l.logger.Debug("llm_api_request", fields...)
}

func (l callLogger) response(ctx context.Context, operation, model, content string, latency time.Duration) {
	if !l.enabled() {
		return
	}
	fields := append(l.fields(ctx, operation, model),
		zap.Int("response_length", len(content)),
		zap.String("response_preview", SanitizeResponse(content, false)),
		zap.Int64("latency_ms", latency.Milliseconds()),
	)
	l.logger.Debug("llm_api_response", fields...)
}

func (l callLogger) failure(ctx context.Context, operation, model string, err error, latency time.Duration) {
	if l.logger == nil {
		return
	}
	fields := append(l.fields(ctx, operation, model),
		zap.Error(err),
		zap.Int64("latency_ms", latency.Milliseconds()),
	)
	l.logger.Warn("llm_api_error", fields...)
}

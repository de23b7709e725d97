package ai

import (
	"context"
	"fmt"

	logpkg "github.com/benvon/sculptor/internal/logger"
)

type contextKey string

const (
	userIDContextKey    contextKey = "user_id"
	sessionIDContextKey contextKey = "session_id"
	requestIDContextKey contextKey = "request_id"
)

// MaxPreviewLength bounds prompt and response previews in debug logs
const MaxPreviewLength = 200

// WithSessionID tags ctx with the session a call belongs to
func WithSessionID(ctx context.Context, id fmt.Stringer) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, id.String())
}

// WithUserID tags ctx with the calling user
func WithUserID(ctx context.Context, id fmt.Stringer) context.Context {
	return context.WithValue(ctx, userIDContextKey, id.String())
}

// WithRequestID tags ctx with the inbound request id. Empty ids are ignored.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDContextKey, logpkg.SanitizeString(id, logpkg.MaxUserIDLength))
}

// ExtractUserID returns the user tagged on ctx, or ""
func ExtractUserID(ctx context.Context) string { return contextString(ctx, userIDContextKey) }

// ExtractSessionID returns the session tagged on ctx, or ""
func ExtractSessionID(ctx context.Context) string { return contextString(ctx, sessionIDContextKey) }

// ExtractRequestID returns the request id tagged on ctx, or ""
func ExtractRequestID(ctx context.Context) string { return contextString(ctx, requestIDContextKey) }

func contextString(ctx context.Context, key contextKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// SanitizeResponse previews model output for logs. Control characters are
// stripped so a response cannot forge log lines.
func SanitizeResponse(response string, fullLog bool) string {
	if fullLog {
		return logpkg.SanitizeDebugContent(response)
	}
	return logpkg.SanitizeString(response, MaxPreviewLength)
}

// SanitizePrompt previews a system instruction or transcript for logs
func SanitizePrompt(prompt string, fullLog bool) string {
	return SanitizeResponse(prompt, fullLog)
}

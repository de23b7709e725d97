package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/benvon/sculptor/internal/services/ai"
	"github.com/benvon/sculptor/internal/services/career"
)

// engineErrorStatus maps engine and provider errors to an HTTP status and error label
func engineErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, career.ErrSessionNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, career.ErrTurnInProgress):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, career.ErrEmptyMessage),
		errors.Is(err, career.ErrGoalRequired),
		errors.Is(err, career.ErrUnsupportedSessionType),
		errors.Is(err, ai.ErrAudioUnsupported):
		return http.StatusBadRequest, "Bad Request"
	case ai.IsRateLimitError(err), ai.IsQuotaError(err):
		return http.StatusServiceUnavailable, "Service Unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Gateway Timeout"
	default:
		return http.StatusBadGateway, "Bad Gateway"
	}
}

// engineErrorMessage is the client-facing text for an engine failure. Provider
// details stay in the server log.
func engineErrorMessage(err error) string {
	switch {
	case errors.Is(err, career.ErrSessionNotFound):
		return "Session not found"
	case errors.Is(err, career.ErrTurnInProgress):
		return "A response is already being generated for this session"
	case errors.Is(err, career.ErrEmptyMessage):
		return "Message text or audio is required"
	case errors.Is(err, career.ErrGoalRequired):
		return "A career goal is required"
	case errors.Is(err, career.ErrUnsupportedSessionType):
		return "This action is not available for this session type"
	case errors.Is(err, ai.ErrAudioUnsupported):
		return "The configured AI provider does not accept audio"
	case errors.Is(err, career.ErrTurnFailed):
		return career.ErrorReply
	case errors.Is(err, career.ErrMalformedOutput), errors.Is(err, career.ErrNoValidItems):
		return "The AI response could not be used. Please try again."
	case ai.IsRateLimitError(err), ai.IsQuotaError(err):
		return "The AI provider is busy. Please try again later."
	default:
		return "AI request failed"
	}
}

func respondEngineError(w http.ResponseWriter, err error) {
	status, label := engineErrorStatus(err)
	respondJSONError(w, status, label, engineErrorMessage(err))
}

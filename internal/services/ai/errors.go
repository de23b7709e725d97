package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"
)

var (
	// ErrRateLimited indicates the API rate limit was exceeded
	ErrRateLimited = errors.New("rate limited")
	// ErrQuotaExceeded indicates the API quota was exceeded
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrAudioUnsupported is returned by providers that cannot take inline audio
	ErrAudioUnsupported = errors.New("audio input not supported by provider")
	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = errors.New("no choices in response")
	// ErrEmptyResponse is returned when a completion carries no text
	ErrEmptyResponse = errors.New("empty response")
)

// APIError represents an error from the AI provider API
type APIError struct {
	Provider    string
	Message     string
	Type        string
	Code        string
	StatusCode  int
	IsPermanent bool // true for quota errors, false for rate limits
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (provider %s, status %d, type %s): %s", e.Provider, e.StatusCode, e.Type, e.Message)
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests && !apiErr.IsPermanent
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

// IsQuotaError checks if an error is a quota exhaustion error
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsPermanent || apiErr.Code == "insufficient_quota"
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "insufficient_quota") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "billing")
}

// ExtractAPIError converts SDK errors into an APIError. It returns nil when
// err carries no provider status information.
func ExtractAPIError(err error) *APIError {
	if err == nil {
		return nil
	}

	var existing *APIError
	if errors.As(err, &existing) {
		return existing
	}

	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return &APIError{
			Provider:    ProviderOpenAI,
			Message:     oaErr.Message,
			Type:        oaErr.Type,
			Code:        oaErr.Code,
			StatusCode:  oaErr.StatusCode,
			IsPermanent: oaErr.Code == "insufficient_quota",
		}
	}

	var gErr genai.APIError
	if errors.As(err, &gErr) {
		return &APIError{
			Provider:    ProviderGemini,
			Message:     gErr.Message,
			Type:        gErr.Status,
			StatusCode:  gErr.Code,
			IsPermanent: gErr.Status == "RESOURCE_EXHAUSTED" && strings.Contains(strings.ToLower(gErr.Message), "quota"),
		}
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "429") {
		return nil
	}

	apiErr := &APIError{
		StatusCode: http.StatusTooManyRequests,
		Message:    errStr,
		Type:       "rate_limit_error",
	}

	// Try to parse JSON error details if present
	if jsonStart := strings.Index(errStr, "{"); jsonStart != -1 {
		jsonStr := errStr[jsonStart:]
		if jsonEnd := strings.LastIndex(jsonStr, "}"); jsonEnd != -1 {
			jsonStr = jsonStr[:jsonEnd+1]
			var errorData struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    string `json:"code"`
			}
			if json.Unmarshal([]byte(jsonStr), &errorData) == nil {
				apiErr.Message = errorData.Message
				apiErr.Type = errorData.Type
				apiErr.Code = errorData.Code
				apiErr.IsPermanent = errorData.Code == "insufficient_quota"
			}
		}
	}

	return apiErr
}

// wrapProviderError annotates err with the operation and normalized API details
func wrapProviderError(operation string, err error) error {
	if apiErr := ExtractAPIError(err); apiErr != nil {
		return fmt.Errorf("failed to %s: %w", operation, apiErr)
	}
	return fmt.Errorf("failed to %s: %w", operation, err)
}

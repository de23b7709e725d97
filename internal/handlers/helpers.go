package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/benvon/sculptor/internal/models"
	"github.com/benvon/sculptor/internal/request"
	"github.com/benvon/sculptor/internal/services/ai"
	"github.com/benvon/sculptor/internal/validation"
	"github.com/benvon/sculptor/internal/workspace"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Workspaces resolves the in-memory state of an authenticated user.
// *workspace.Manager satisfies it.
type Workspaces interface {
	Get(ctx context.Context, user *models.User) (*workspace.Workspace, error)
	Reload(ctx context.Context, user *models.User) error
}

var _ Workspaces = (*workspace.Manager)(nil)

const maxErrorMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage bounds client-facing error text
func sanitizeErrorMessage(message string) string {
	if len(message) <= maxErrorMessageLength {
		return message
	}
	cut := maxErrorMessageLength
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut] + "..."
}

// respondJSONError sends an error JSON response with sanitized error messages
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// decodeJSON decodes and validates the request body into dst. It writes the
// error response itself and reports whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}

	if err := validation.Validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", validationErrors[0].Error()))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return false
	}
	return true
}

// userWorkspace resolves the caller's workspace, writing an error response on failure
func userWorkspace(w http.ResponseWriter, r *http.Request, workspaces Workspaces) (*workspace.Workspace, bool) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return nil, false
	}
	ws, err := workspaces.Get(r.Context(), user)
	if err != nil {
		if errors.Is(err, workspace.ErrManagerClosed) {
			respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Server is shutting down")
			return nil, false
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to open workspace")
		return nil, false
	}
	return ws, true
}

// sessionID parses the {id} route variable
func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}

// sessionFromRequest resolves the {id} session of the caller's workspace
func sessionFromRequest(w http.ResponseWriter, r *http.Request, workspaces Workspaces) (*workspace.Workspace, *models.ChatSession, bool) {
	ws, ok := userWorkspace(w, r, workspaces)
	if !ok {
		return nil, nil, false
	}
	id, ok := sessionID(w, r)
	if !ok {
		return nil, nil, false
	}
	sess, found := ws.Sessions.Get(id)
	if !found {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Session not found")
		return nil, nil, false
	}
	return ws, sess, true
}

// callContext tags the request context with the caller for provider call logs
func callContext(r *http.Request) context.Context {
	ctx := ai.WithRequestID(r.Context(), r.Header.Get("X-Request-ID"))
	if user := request.UserFromContext(r); user != nil {
		ctx = ai.WithUserID(ctx, user.ID)
	}
	return ctx
}

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/benvon/sculptor/internal/models"
	"github.com/benvon/sculptor/internal/request"
	"github.com/benvon/sculptor/internal/session"
	"github.com/benvon/sculptor/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SessionHandler serves the caller's session collection
type SessionHandler struct {
	workspaces Workspaces
	logger     *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(workspaces Workspaces, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{workspaces: workspaces, logger: logger}
}

// RegisterRoutes registers session routes
// The router should already have the /sessions prefix
func (h *SessionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListSessions).Methods("GET")
	r.HandleFunc("", h.CreateSession).Methods("POST")
	r.HandleFunc("/active", h.GetActive).Methods("GET")
	r.HandleFunc("/active", h.SetActive).Methods("PUT")
	r.HandleFunc("/reload", h.Reload).Methods("POST")
	r.HandleFunc("/{id}", h.GetSession).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateSession).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteSession).Methods("DELETE")
}

const (
	// MaxTitleLength is the maximum length for session titles
	MaxTitleLength = 200
	// MaxDocumentLength bounds free text such as job descriptions and documents
	MaxDocumentLength = 100000
)

// CreateSessionRequest represents a create session request
type CreateSessionRequest struct {
	Type           models.SessionType     `json:"type" validate:"required,session_type"`
	InitialContext *models.InitialContext `json:"initial_context,omitempty"`
}

// UpdateSessionRequest represents a partial session update
type UpdateSessionRequest struct {
	Title            *string            `json:"title,omitempty" validate:"omitempty,max=200"`
	JobDescription   *string            `json:"job_description,omitempty" validate:"omitempty,max=100000"`
	ResumeText       *string            `json:"resume_text,omitempty" validate:"omitempty,max=100000"`
	FinalResume      *string            `json:"final_resume,omitempty" validate:"omitempty,max=100000"`
	ClearFinalResume bool               `json:"clear_final_resume,omitempty"`
	StylePrefs       *models.StylePrefs `json:"style_prefs,omitempty"`
}

// SetActiveRequest selects the active session; a null id clears it
type SetActiveRequest struct {
	ID *uuid.UUID `json:"id"`
}

// ListSessionsResponse is the session collection plus the active id
type ListSessionsResponse struct {
	Sessions []*models.ChatSession `json:"sessions"`
	ActiveID *uuid.UUID            `json:"active_id"`
}

// ListSessions lists sessions newest first
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ws, ok := userWorkspace(w, r, h.workspaces)
	if !ok {
		return
	}

	response := ListSessionsResponse{Sessions: ws.Sessions.List()}
	if active, found := ws.Sessions.Active(); found {
		response.ActiveID = &active.ID
	}
	respondJSON(w, http.StatusOK, response)
}

// CreateSession creates a session and makes it active
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ws, ok := userWorkspace(w, r, h.workspaces)
	if !ok {
		return
	}

	var req CreateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if ic := req.InitialContext; ic != nil {
		ic.JobTitle = validation.SanitizeText(ic.JobTitle)
		ic.Company = validation.SanitizeText(ic.Company)
		ic.JobDescription = validation.SanitizeText(ic.JobDescription)
		ic.ResumeText = validation.SanitizeText(ic.ResumeText)
	}

	id, err := ws.Sessions.Create(req.Type, req.InitialContext)
	if err != nil {
		if errors.Is(err, session.ErrInvalidType) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create session")
		return
	}

	sess, _ := ws.Sessions.Get(id)
	respondJSON(w, http.StatusCreated, sess)
}

// GetSession returns one session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := sessionFromRequest(w, r, h.workspaces)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// UpdateSession applies a partial update. Style preferences merge field by field.
func (h *SessionHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	ws, ok := userWorkspace(w, r, h.workspaces)
	if !ok {
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req UpdateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patch := session.Patch{
		JobDescription:   req.JobDescription,
		ResumeText:       req.ResumeText,
		FinalResume:      req.FinalResume,
		ClearFinalResume: req.ClearFinalResume && req.FinalResume == nil,
		StylePrefs:       req.StylePrefs,
	}
	if req.Title != nil {
		title := validation.SanitizeText(*req.Title)
		if title == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty")
			return
		}
		patch.Title = &title
	}
	if len(patch.Fields()) == 0 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "No fields to update")
		return
	}

	if !ws.Sessions.Update(id, patch) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Session not found")
		return
	}
	sess, _ := ws.Sessions.Get(id)
	respondJSON(w, http.StatusOK, sess)
}

// DeleteSession removes a session
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ws, ok := userWorkspace(w, r, h.workspaces)
	if !ok {
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	if !ws.Sessions.Delete(id) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetActive returns the active session, or null when none is selected
func (h *SessionHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	ws, ok := userWorkspace(w, r, h.workspaces)
	if !ok {
		return
	}
	if sess, found := ws.Sessions.Active(); found {
		respondJSON(w, http.StatusOK, sess)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// SetActive selects the active session
func (h *SessionHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	ws, ok := userWorkspace(w, r, h.workspaces)
	if !ok {
		return
	}

	var req SetActiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID == nil || *req.ID == uuid.Nil {
		ws.Sessions.SetActive(uuid.Nil)
		respondJSON(w, http.StatusOK, nil)
		return
	}
	sess, found := ws.Sessions.Get(*req.ID)
	if !found {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Session not found")
		return
	}
	ws.Sessions.SetActive(sess.ID)
	respondJSON(w, http.StatusOK, sess)
}

// Reload refetches the session list from the remote store, replacing local state
func (h *SessionHandler) Reload(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}
	if err := h.workspaces.Reload(r.Context(), user); err != nil {
		h.logger.Warn("session_reload_failed",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Failed to reload sessions: "+strings.TrimSpace(err.Error()))
		return
	}
	h.ListSessions(w, r)
}

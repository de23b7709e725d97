package handlers

import (
	"errors"
	"net/http"

	"github.com/benvon/sculptor/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// ProfileHandler serves the caller's profile
type ProfileHandler struct {
	workspaces Workspaces
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(workspaces Workspaces) *ProfileHandler {
	return &ProfileHandler{workspaces: workspaces}
}

// RegisterRoutes registers profile routes
// The router should already have the /profile prefix
func (h *ProfileHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetProfile).Methods("GET")
	r.HandleFunc("", h.UpdateProfile).Methods("PATCH")
	r.HandleFunc("/status", h.GetStatus).Methods("GET")
}

// ProfileStatus reports the debounced save state
type ProfileStatus struct {
	Saving  bool `json:"saving"`
	Pending bool `json:"pending"`
}

// GetProfile returns the profile as held in memory
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ws, ok := userWorkspace(w, r, h.workspaces)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, ws.Profile.Get())
}

// UpdateProfile merges a partial update. The change is visible immediately and
// written remotely once edits go quiet.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ws, ok := userWorkspace(w, r, h.workspaces)
	if !ok {
		return
	}

	var patch models.ProfilePatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	updated, err := ws.Profile.Update(patch)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed: "+validationErrors[0].Error())
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// GetStatus reports whether a profile save is pending or in flight
func (h *ProfileHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ws, ok := userWorkspace(w, r, h.workspaces)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, ProfileStatus{
		Saving:  ws.Profile.IsSaving(),
		Pending: ws.Profile.Pending(),
	})
}

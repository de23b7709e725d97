package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/benvon/sculptor/internal/services/career"
	"github.com/benvon/sculptor/internal/validation"
	"github.com/gorilla/mux"
)

// StudyHandler serves quiz and flashcard generation
type StudyHandler struct {
	study       *career.StudyEngine
	callTimeout time.Duration
}

// NewStudyHandler creates a new study handler
func NewStudyHandler(study *career.StudyEngine) *StudyHandler {
	return &StudyHandler{study: study, callTimeout: DefaultGenerationTimeout}
}

// RegisterRoutes registers study routes
// The router should already have the /study prefix
func (h *StudyHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/quiz", h.Quiz).Methods("POST")
	r.HandleFunc("/flashcards", h.Flashcards).Methods("POST")
}

// StudyRequest names the topic and the number of items wanted
type StudyRequest struct {
	Topic string `json:"topic" validate:"required,max=5000"`
	Count int    `json:"count" validate:"gte=0,lte=50"`
}

func (h *StudyHandler) decode(w http.ResponseWriter, r *http.Request) (StudyRequest, bool) {
	var req StudyRequest
	if !decodeJSON(w, r, &req) {
		return req, false
	}
	req.Topic = validation.SanitizeText(req.Topic)
	if req.Topic == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Topic is required and cannot be empty after sanitization")
		return req, false
	}
	return req, true
}

// Quiz generates multiple-choice questions
func (h *StudyHandler) Quiz(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	ctx, cancel := contextWithTimeout(r, h.callTimeout)
	defer cancel()

	items, err := h.study.Quiz(ctx, req.Topic, req.Count)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// Flashcards generates front/back study cards
func (h *StudyHandler) Flashcards(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	ctx, cancel := contextWithTimeout(r, h.callTimeout)
	defer cancel()

	cards, err := h.study.Flashcards(ctx, req.Topic, req.Count)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cards)
}

// contextWithTimeout bounds a generation call by d on top of the request context
func contextWithTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(callContext(r), d)
}

package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/benvon/sculptor/internal/export"
	"github.com/benvon/sculptor/internal/services/career"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// DocumentHandler generates, plans and exports session documents
type DocumentHandler struct {
	workspaces  Workspaces
	sculpt      *career.SculptEngine
	roadmap     *career.RoadmapEngine
	callTimeout time.Duration
	logger      *zap.Logger
}

// DefaultGenerationTimeout bounds one document or plan generation call
const DefaultGenerationTimeout = 2 * time.Minute

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(workspaces Workspaces, sculpt *career.SculptEngine, roadmap *career.RoadmapEngine, logger *zap.Logger) *DocumentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentHandler{
		workspaces:  workspaces,
		sculpt:      sculpt,
		roadmap:     roadmap,
		callTimeout: DefaultGenerationTimeout,
		logger:      logger,
	}
}

// RegisterRoutes registers AI-backed document routes
// The router should already have the /sessions prefix
func (h *DocumentHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{id}/sculpt", h.Sculpt).Methods("POST")
	r.HandleFunc("/{id}/roadmap", h.Roadmap).Methods("POST")
}

// RegisterExportRoutes registers export routes, which make no AI calls
// The router should already have the /sessions prefix
func (h *DocumentHandler) RegisterExportRoutes(r *mux.Router) {
	r.HandleFunc("/{id}/export", h.Export).Methods("GET")
}

// SculptResponse carries the generated document
type SculptResponse struct {
	Document string `json:"document"`
}

// RoadmapRequest asks for a plan; an empty goal reuses the session's current goal
type RoadmapRequest struct {
	Goal string `json:"goal" validate:"max=2000"`
	Days int    `json:"days" validate:"gte=0,lte=90"`
}

// Sculpt generates the final document for a session. On failure the previous document is kept.
func (h *DocumentHandler) Sculpt(w http.ResponseWriter, r *http.Request) {
	ws, sess, ok := sessionFromRequest(w, r, h.workspaces)
	if !ok {
		return
	}

	ctx, cancel := contextWithTimeout(r, h.callTimeout)
	defer cancel()
	doc, err := h.sculpt.Sculpt(ctx, ws.Sessions, ws.Profile.Get(), sess.ID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, SculptResponse{Document: doc})
}

// Roadmap generates a day-by-day plan for a career-copilot session
func (h *DocumentHandler) Roadmap(w http.ResponseWriter, r *http.Request) {
	ws, sess, ok := sessionFromRequest(w, r, h.workspaces)
	if !ok {
		return
	}

	var req RoadmapRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r, h.callTimeout)
	defer cancel()
	plan, err := h.roadmap.Plan(ctx, ws.Sessions, ws.Profile.Get(), sess.ID, req.Goal, req.Days)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

// Export renders the session's final document as PDF or DOCX
func (h *DocumentHandler) Export(w http.ResponseWriter, r *http.Request) {
	ws, sess, ok := sessionFromRequest(w, r, h.workspaces)
	if !ok {
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "format must be 'pdf' or 'docx'")
		return
	}

	doc, ok := export.DocumentFromSession(sess, ws.Profile.Get().Name)
	if !ok {
		respondJSONError(w, http.StatusConflict, "Conflict", "Session has no generated document yet")
		return
	}

	var buf bytes.Buffer
	if err := export.Render(&buf, format, doc); err != nil {
		h.logger.Error("export_render_failed",
			zap.String("session_id", sess.ID.String()),
			zap.String("format", string(format)),
			zap.Error(err),
		)
		if errors.Is(err, export.ErrUnknownFormat) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to render document")
		return
	}

	filename := export.Filename(sess.Title, sess.Type, format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Debug("export_write_failed", zap.Error(err))
	}
}

package career

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/sculptor/internal/models"
	"github.com/benvon/sculptor/internal/services/ai"
	"github.com/benvon/sculptor/internal/session"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultSculptTemperature = 0.4

// SculptEngine compiles a session's conversation into one finished document
type SculptEngine struct {
	provider ai.Provider
	catalog  *Catalog
	model    string
	logger   *zap.Logger
}

// NewSculptEngine creates a sculpt engine
func NewSculptEngine(provider ai.Provider, catalog *Catalog, model string, logger *zap.Logger) *SculptEngine {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SculptEngine{provider: provider, catalog: catalog, model: model, logger: logger}
}

// BuildPrompt concatenates background, transcript, job target and contact block.
// The whole transcript is included; nothing is truncated.
func (e *SculptEngine) BuildPrompt(s *models.ChatSession, profile models.UserProfile) string {
	pc := NewContext(s, profile, e.model)

	transcript := make([]string, 0, len(s.Messages))
	for _, m := range s.Messages {
		transcript = append(transcript, m.Content)
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(e.catalog.Documents[s.Type]))
	b.WriteString("\nReturn only the markdown document, with no commentary before or after it.\n\n")
	b.WriteString("Background:\n")
	b.WriteString(pc.Background)
	b.WriteString("\n\nConversation:\n")
	b.WriteString(strings.Join(transcript, "\n"))
	b.WriteString("\n\nTarget job:\n")
	b.WriteString(e.catalog.JobLabel(pc))
	b.WriteString("\n\nContact details:\n")
	b.WriteString(profile.ContactBlock())
	return b.String()
}

// Sculpt generates the document and stores it verbatim as the session's final
// document. On failure nothing is written and the previous document is kept.
// A blank completion counts as a failure (ai.ErrEmptyResponse) whichever
// provider produced it, so a blank document is never stored.
func (e *SculptEngine) Sculpt(ctx context.Context, sessions Sessions, profile models.UserProfile, sessionID uuid.UUID) (string, error) {
	ctx, span := otel.Tracer("career/SculptEngine").Start(ctx, "Sculpt",
		trace.WithAttributes(attribute.String("session.id", sessionID.String())),
	)
	defer span.End()

	sess, ok := sessions.Get(sessionID)
	if !ok {
		return "", ErrSessionNotFound
	}
	span.SetAttributes(attribute.String("session.type", string(sess.Type)))

	prompt := e.BuildPrompt(sess, profile)
	doc, err := e.provider.Complete(ai.WithSessionID(ctx, sessionID), ai.CompletionRequest{
		Model:       e.model,
		Prompt:      prompt,
		Temperature: defaultSculptTemperature,
	})
	if err == nil && strings.TrimSpace(doc) == "" {
		err = ai.ErrEmptyResponse
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sculpt failed")
		e.logger.Warn("sculpt_failed", zap.String("session_id", sessionID.String()), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrSculptFailed, err)
	}

	if !sessions.Update(sessionID, session.Patch{FinalResume: &doc}) {
		e.logger.Debug("sculpt_target_missing", zap.String("session_id", sessionID.String()))
	}
	e.logger.Info("document_sculpted",
		zap.String("session_id", sessionID.String()),
		zap.String("session_type", string(sess.Type)),
		zap.Int("document_length", len(doc)),
	)
	return doc, nil
}

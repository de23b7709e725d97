package career

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/benvon/sculptor/internal/metrics"
	"github.com/benvon/sculptor/internal/models"
	"github.com/benvon/sculptor/internal/services/ai"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// ErrorReply replaces the assistant placeholder when a turn fails
	ErrorReply = "Sorry, I couldn't complete that response. Please try again."
	// VoiceMessageLabel is stored as the user message text for audio-only turns
	VoiceMessageLabel = "[Voice message]"

	defaultChatTemperature = 0.7
)

// TurnInput is the newest user message of a chat turn
type TurnInput struct {
	Text  string
	Audio *ai.Audio
	// OnFragment, when set, receives each streamed fragment in arrival order
	OnFragment func(fragment string)
}

// TurnResult describes the messages a turn produced
type TurnResult struct {
	UserMessage      models.Message
	AssistantMessage models.Message
	Fragments        int
}

// ChatEngine runs one streamed question/answer round trip per call
type ChatEngine struct {
	provider    ai.Provider
	catalog     *Catalog
	model       string
	temperature float64
	logger      *zap.Logger

	inflight sync.Map // session id -> struct{}
}

// NewChatEngine creates a chat engine
func NewChatEngine(provider ai.Provider, catalog *Catalog, model string, logger *zap.Logger) *ChatEngine {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatEngine{
		provider:    provider,
		catalog:     catalog,
		model:       model,
		temperature: defaultChatTemperature,
		logger:      logger,
	}
}

// Busy reports whether a turn is running for the session
func (e *ChatEngine) Busy(sessionID uuid.UUID) bool {
	_, ok := e.inflight.Load(sessionID)
	return ok
}

// Send appends the user message, streams the assistant reply into a placeholder
// and syncs the final message list. A provider failure overwrites the placeholder
// with ErrorReply and returns an error wrapping ErrTurnFailed; the session stays usable.
// If the session disappears mid-stream the remaining updates are dropped silently.
func (e *ChatEngine) Send(ctx context.Context, sessions Sessions, profile models.UserProfile, sessionID uuid.UUID, in TurnInput) (TurnResult, error) {
	ctx, span := otel.Tracer("career/ChatEngine").Start(ctx, "Send",
		trace.WithAttributes(attribute.String("session.id", sessionID.String())),
	)
	defer span.End()

	text := strings.TrimSpace(in.Text)
	if text == "" && in.Audio == nil {
		return TurnResult{}, ErrEmptyMessage
	}

	if _, busy := e.inflight.LoadOrStore(sessionID, struct{}{}); busy {
		return TurnResult{}, ErrTurnInProgress
	}
	defer e.inflight.Delete(sessionID)

	sess, ok := sessions.Get(sessionID)
	if !ok {
		return TurnResult{}, ErrSessionNotFound
	}
	span.SetAttributes(attribute.String("session.type", string(sess.Type)))

	history := toTurns(sess.Messages)
	stored := text
	if stored == "" {
		stored = VoiceMessageLabel
	}
	userMsg := models.NewMessage(models.RoleUser, stored)
	sessions.AppendMessage(sessionID, userMsg)

	pc := NewContext(sess, profile, e.model)
	req := ai.ChatRequest{
		Model:             pc.Model,
		SystemInstruction: e.catalog.SystemInstruction(pc),
		Temperature:       e.temperature,
		History:           history,
		Message:           text,
		Audio:             in.Audio,
	}

	placeholder := models.NewMessage(models.RoleAssistant, "")
	sessions.StageMessage(sessionID, placeholder)

	ctx = ai.WithSessionID(ctx, sessionID)
	content, fragments, err := e.stream(ctx, sessions, sessionID, placeholder.ID, req, in.OnFragment)

	result := TurnResult{UserMessage: userMsg, AssistantMessage: placeholder, Fragments: fragments}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat turn failed")
		e.logger.Warn("chat_turn_failed",
			zap.String("session_id", sessionID.String()),
			zap.Int("fragments", fragments),
			zap.Error(err),
		)
		sessions.SetMessageContent(sessionID, placeholder.ID, ErrorReply)
		sessions.SyncMessages(sessionID)
		result.AssistantMessage.Content = ErrorReply
		return result, fmt.Errorf("%w: %w", ErrTurnFailed, err)
	}

	sessions.SyncMessages(sessionID)
	result.AssistantMessage.Content = content
	e.logger.Debug("chat_turn_completed",
		zap.String("session_id", sessionID.String()),
		zap.Int("fragments", fragments),
		zap.Int("response_length", len(content)),
	)
	return result, nil
}

// stream applies fragments to the placeholder strictly in arrival order
func (e *ChatEngine) stream(ctx context.Context, sessions Sessions, sessionID, placeholderID uuid.UUID, req ai.ChatRequest, onFragment func(string)) (string, int, error) {
	seq, err := e.provider.StreamChat(ctx, req)
	if err != nil {
		return "", 0, err
	}

	var (
		content   strings.Builder
		fragments int
	)
	for fragment, err := range seq {
		if err != nil {
			return content.String(), fragments, err
		}
		fragments++
		content.WriteString(fragment)
		metrics.ObserveFragment()
		sessions.SetMessageContent(sessionID, placeholderID, content.String())
		if onFragment != nil {
			onFragment(fragment)
		}
	}
	return content.String(), fragments, nil
}

func toTurns(messages []models.Message) []ai.Turn {
	turns := make([]ai.Turn, 0, len(messages))
	for _, m := range messages {
		role := ai.RoleUser
		if m.Role == models.RoleAssistant {
			role = ai.RoleAssistant
		}
		turns = append(turns, ai.Turn{Role: role, Content: m.Content})
	}
	return turns
}

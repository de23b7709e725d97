package career

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/sculptor/internal/models"
	"github.com/benvon/sculptor/internal/services/ai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultStudyCount is the number of items requested when none is given
	DefaultStudyCount = 5
	// MaxStudyCount caps a single generation request
	MaxStudyCount = 20
)

var quizSchema = &ai.Schema{
	Type: ai.TypeObject,
	Properties: map[string]*ai.Schema{
		"items": {
			Type:     ai.TypeArray,
			MinItems: ai.Int64(1),
			Items: &ai.Schema{
				Type: ai.TypeObject,
				Properties: map[string]*ai.Schema{
					"question": {Type: ai.TypeString},
					"options": {
						Type:     ai.TypeArray,
						Items:    &ai.Schema{Type: ai.TypeString},
						MinItems: ai.Int64(models.QuizOptionCount),
						MaxItems: ai.Int64(models.QuizOptionCount),
					},
					"correctIndex": {
						Type:    ai.TypeInteger,
						Minimum: ai.Float(0),
						Maximum: ai.Float(models.QuizOptionCount - 1),
					},
				},
				Required: []string{"question", "options", "correctIndex"},
			},
		},
	},
	Required: []string{"items"},
}

var flashcardSchema = &ai.Schema{
	Type: ai.TypeObject,
	Properties: map[string]*ai.Schema{
		"items": {
			Type:     ai.TypeArray,
			MinItems: ai.Int64(1),
			Items: &ai.Schema{
				Type: ai.TypeObject,
				Properties: map[string]*ai.Schema{
					"front": {Type: ai.TypeString},
					"back":  {Type: ai.TypeString},
				},
				Required: []string{"front", "back"},
			},
		},
	},
	Required: []string{"items"},
}

// StudyEngine produces schema-constrained study material
type StudyEngine struct {
	provider ai.Provider
	model    string
	logger   *zap.Logger
}

// NewStudyEngine creates a study engine
func NewStudyEngine(provider ai.Provider, model string, logger *zap.Logger) *StudyEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudyEngine{provider: provider, model: model, logger: logger}
}

func clampCount(n int) int {
	switch {
	case n <= 0:
		return DefaultStudyCount
	case n > MaxStudyCount:
		return MaxStudyCount
	default:
		return n
	}
}

// Quiz generates multiple-choice questions about topic. Items with the wrong
// number of options or an out-of-range correctIndex are dropped, so every
// returned item indexes safely into its options.
func (e *StudyEngine) Quiz(ctx context.Context, topic string, count int) ([]models.QuizItem, error) {
	ctx, span := otel.Tracer("career/StudyEngine").Start(ctx, "Quiz",
		trace.WithAttributes(attribute.Int("study.count", clampCount(count))),
	)
	defer span.End()

	prompt := fmt.Sprintf(
		"Create %d multiple-choice interview practice questions about the following topic. "+
			"Each question has exactly %d options and correctIndex is the zero-based index of the right option.\n\nTopic:\n%s",
		clampCount(count), models.QuizOptionCount, strings.TrimSpace(topic))

	raw, err := e.provider.GenerateJSON(ctx, ai.StructuredRequest{
		Model:      e.model,
		Prompt:     prompt,
		SchemaName: "quiz",
		Schema:     quizSchema,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "quiz generation failed")
		return nil, fmt.Errorf("failed to generate quiz: %w", err)
	}

	items, err := ParseQuiz(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "quiz parse failed")
		e.logger.Warn("quiz_parse_failed", zap.Error(err), zap.String("response_preview", ai.SanitizeResponse(raw, false)))
		return nil, err
	}
	return items, nil
}

// ParseQuiz decodes and validates a quiz payload
func ParseQuiz(raw string) ([]models.QuizItem, error) {
	items, err := parseItems[models.QuizItem](raw)
	if err != nil {
		return nil, err
	}
	valid := make([]models.QuizItem, 0, len(items))
	for _, item := range items {
		item.Question = strings.TrimSpace(item.Question)
		if item.Valid() {
			valid = append(valid, item)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoValidItems
	}
	return valid, nil
}

// Flashcards generates front/back study cards about topic
func (e *StudyEngine) Flashcards(ctx context.Context, topic string, count int) ([]models.Flashcard, error) {
	ctx, span := otel.Tracer("career/StudyEngine").Start(ctx, "Flashcards",
		trace.WithAttributes(attribute.Int("study.count", clampCount(count))),
	)
	defer span.End()

	prompt := fmt.Sprintf(
		"Create %d flashcards to prepare for an interview on the following topic. "+
			"The front is a short prompt and the back a concise answer.\n\nTopic:\n%s",
		clampCount(count), strings.TrimSpace(topic))

	raw, err := e.provider.GenerateJSON(ctx, ai.StructuredRequest{
		Model:      e.model,
		Prompt:     prompt,
		SchemaName: "flashcards",
		Schema:     flashcardSchema,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "flashcard generation failed")
		return nil, fmt.Errorf("failed to generate flashcards: %w", err)
	}

	cards, err := ParseFlashcards(raw)
	if err != nil {
		span.RecordError(err)
		e.logger.Warn("flashcard_parse_failed", zap.Error(err))
		return nil, err
	}
	return cards, nil
}

// ParseFlashcards decodes a flashcard payload, dropping cards with an empty side
func ParseFlashcards(raw string) ([]models.Flashcard, error) {
	cards, err := parseItems[models.Flashcard](raw)
	if err != nil {
		return nil, err
	}
	valid := make([]models.Flashcard, 0, len(cards))
	for _, c := range cards {
		c.Front = strings.TrimSpace(c.Front)
		c.Back = strings.TrimSpace(c.Back)
		if c.Front != "" && c.Back != "" {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoValidItems
	}
	return valid, nil
}

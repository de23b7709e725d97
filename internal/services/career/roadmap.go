package career

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

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

// DefaultPlanDays is the roadmap length used when none is requested
const DefaultPlanDays = 30

// RoadmapEngine turns a career goal into a day-by-day task plan
type RoadmapEngine struct {
	provider ai.Provider
	model    string
	logger   *zap.Logger
	now      func() time.Time
}

// NewRoadmapEngine creates a roadmap engine
func NewRoadmapEngine(provider ai.Provider, model string, logger *zap.Logger) *RoadmapEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoadmapEngine{
		provider: provider,
		model:    model,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func roadmapSchema(days int) *ai.Schema {
	return &ai.Schema{
		Type: ai.TypeObject,
		Properties: map[string]*ai.Schema{
			"items": {
				Type:     ai.TypeArray,
				MinItems: ai.Int64(1),
				MaxItems: ai.Int64(int64(days)),
				Items: &ai.Schema{
					Type: ai.TypeObject,
					Properties: map[string]*ai.Schema{
						"day":  {Type: ai.TypeInteger, Minimum: ai.Float(1), Maximum: ai.Float(float64(days))},
						"task": {Type: ai.TypeString},
					},
					Required: []string{"day", "task"},
				},
			},
		},
		Required: []string{"items"},
	}
}

// Plan generates a roadmap for a career-copilot session and stores it as the
// session's career goal data. Task completion flags always start false.
func (e *RoadmapEngine) Plan(ctx context.Context, sessions Sessions, profile models.UserProfile, sessionID uuid.UUID, goal string, days int) (*models.CareerGoal, error) {
	if days <= 0 {
		days = DefaultPlanDays
	}
	ctx, span := otel.Tracer("career/RoadmapEngine").Start(ctx, "Plan",
		trace.WithAttributes(
			attribute.String("session.id", sessionID.String()),
			attribute.Int("plan.days", days),
		),
	)
	defer span.End()

	sess, ok := sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.Type != models.SessionTypeCareerCopilot {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSessionType, sess.Type)
	}
	goal = strings.TrimSpace(goal)
	if goal == "" && sess.CareerGoalData != nil {
		goal = sess.CareerGoalData.MainGoal
	}
	if goal == "" {
		return nil, ErrGoalRequired
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a %d-day action plan towards this career goal: %s\n", days, goal)
	fmt.Fprintf(&b, "Give exactly one concrete task per day, numbered from day 1 to day %d.\n", days)
	if profile.DailyAvailability > 0 {
		fmt.Fprintf(&b, "Each task must fit in %d hours.\n", profile.DailyAvailability)
	}
	if profile.Title != "" {
		fmt.Fprintf(&b, "Current role: %s\n", profile.Title)
	}

	raw, err := e.provider.GenerateJSON(ai.WithSessionID(ctx, sessionID), ai.StructuredRequest{
		Model:      e.model,
		Prompt:     b.String(),
		SchemaName: "roadmap",
		Schema:     roadmapSchema(days),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "roadmap generation failed")
		return nil, fmt.Errorf("failed to generate roadmap: %w", err)
	}

	tasks, err := ParseRoadmap(raw, days)
	if err != nil {
		span.RecordError(err)
		e.logger.Warn("roadmap_parse_failed", zap.String("session_id", sessionID.String()), zap.Error(err))
		return nil, err
	}

	plan := &models.CareerGoal{
		MainGoal:  goal,
		Tasks:     tasks,
		Logs:      []string{},
		StartDate: e.now(),
	}
	if sess.CareerGoalData != nil && sess.CareerGoalData.Logs != nil {
		plan.Logs = append(plan.Logs, sess.CareerGoalData.Logs...)
	}
	sessions.Update(sessionID, session.Patch{CareerGoalData: plan})

	e.logger.Info("roadmap_generated", zap.String("session_id", sessionID.String()), zap.Int("tasks", len(tasks)))
	return plan, nil
}

// ParseRoadmap decodes and normalizes roadmap entries: days outside 1..days and
// empty tasks are dropped, the first entry for a day wins, output is sorted by day.
func ParseRoadmap(raw string, days int) ([]models.ScheduledTask, error) {
	entries, err := parseItems[models.ScheduledTask](raw)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(entries))
	tasks := make([]models.ScheduledTask, 0, len(entries))
	for _, entry := range entries {
		entry.Task = strings.TrimSpace(entry.Task)
		if entry.Day < 1 || entry.Day > days || entry.Task == "" || seen[entry.Day] {
			continue
		}
		seen[entry.Day] = true
		entry.Completed = false
		tasks = append(tasks, entry)
	}
	if len(tasks) == 0 {
		return nil, ErrNoValidItems
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Day < tasks[j].Day })
	return tasks, nil
}

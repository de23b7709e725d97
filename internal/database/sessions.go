package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/benvon/sculptor/internal/models"
	"github.com/google/uuid"
)

// ErrUnknownColumn is returned when an update names a column outside the synced set
var ErrUnknownColumn = errors.New("unknown session column")

// SessionRepository mirrors chat sessions into the sessions table
type SessionRepository struct {
	db  *DB
	now func() time.Time
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

// InsertSession writes a freshly created session. Local-only fields are not stored.
func (r *SessionRepository) InsertSession(ctx context.Context, s *models.ChatSession) error {
	messages, err := encodeMessages(s.Messages)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	goal, err := encodeGoal(s.CareerGoalData)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	lastUpdated := s.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = r.now()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, type, title, messages, job_description, final_resume, career_goal_data, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, s.ID.String(), s.UserID.String(), string(s.Type), s.Title, messages,
		nullableText(s.JobDescription), nullableText(s.FinalResume), goal, lastUpdated.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// UpdateSession writes the given columns and bumps last_updated.
// Every column must belong to the synced set.
func (r *SessionRepository) UpdateSession(ctx context.Context, userID, id uuid.UUID, columns map[string]any) error {
	if len(columns) == 0 {
		return nil
	}

	names := make([]string, 0, len(columns))
	for name := range columns {
		if _, ok := sessionColumns[name]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+3)
	for _, name := range names {
		value, err := sessionColumns[name].encode(columns[name])
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", name, len(args)))
	}
	args = append(args, r.now().UnixMilli())
	sets = append(sets, fmt.Sprintf("last_updated = $%d", len(args)))
	args = append(args, id.String(), userID.String())

	query := fmt.Sprintf(`UPDATE sessions SET %s WHERE id = $%d AND user_id = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session %w", ErrNotFound)
	}
	return nil
}

// DeleteSession removes a session owned by userID. Deleting a missing row is not an error.
func (r *SessionRepository) DeleteSession(ctx context.Context, userID, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1 AND user_id = $2`, id.String(), userID.String())
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListSessions returns every session owned by userID, most recently updated first
func (r *SessionRepository) ListSessions(ctx context.Context, userID uuid.UUID) ([]*models.ChatSession, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, type, title, messages, job_description, final_resume, career_goal_data, last_updated
		FROM sessions WHERE user_id = $1
		ORDER BY last_updated DESC
	`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*models.ChatSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

func scanSession(rows *sql.Rows) (*models.ChatSession, error) {
	var (
		s              models.ChatSession
		sessionType    string
		messages       []byte
		jobDescription sql.NullString
		finalResume    sql.NullString
		goal           []byte
		lastUpdated    int64
	)
	if err := rows.Scan(&s.ID, &s.UserID, &sessionType, &s.Title, &messages,
		&jobDescription, &finalResume, &goal, &lastUpdated); err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	s.Type = models.SessionType(sessionType)
	s.LastUpdated = time.UnixMilli(lastUpdated).UTC()
	if len(messages) > 0 {
		if err := json.Unmarshal(messages, &s.Messages); err != nil {
			return nil, fmt.Errorf("failed to decode messages: %w", err)
		}
	}
	if s.Messages == nil {
		s.Messages = []models.Message{}
	}
	if jobDescription.Valid {
		s.JobDescription = models.StringPtr(jobDescription.String)
	}
	if finalResume.Valid {
		s.FinalResume = models.StringPtr(finalResume.String)
	}
	if len(goal) > 0 && string(goal) != "null" {
		var g models.CareerGoal
		if err := json.Unmarshal(goal, &g); err != nil {
			return nil, fmt.Errorf("failed to decode career goal: %w", err)
		}
		s.CareerGoalData = &g
	}
	return &s, nil
}

// sessionColumn knows how to move one synced column across the wire and into SQL
type sessionColumn struct {
	encode func(v any) (any, error)
	decode func(raw json.RawMessage) (any, error)
}

var sessionColumns = map[string]sessionColumn{
	"title":            {encode: encodeTitle, decode: decodeTitle},
	"messages":         {encode: encodeMessagesValue, decode: decodeMessages},
	"job_description":  {encode: encodeText, decode: decodeText},
	"final_resume":     {encode: encodeText, decode: decodeText},
	"career_goal_data": {encode: encodeGoalValue, decode: decodeGoal},
}

// DecodeSessionColumns restores typed column values from their JSON form,
// as produced by marshalling an update payload onto a queue
func DecodeSessionColumns(raw map[string]json.RawMessage) (map[string]any, error) {
	columns := make(map[string]any, len(raw))
	for name, value := range raw {
		col, ok := sessionColumns[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}
		decoded, err := col.decode(value)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}
		columns[name] = decoded
	}
	return columns, nil
}

func encodeTitle(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case *string:
		if t == nil {
			return nil, fmt.Errorf("title cannot be null")
		}
		return *t, nil
	default:
		return nil, fmt.Errorf("unexpected title type %T", v)
	}
}

func decodeTitle(raw json.RawMessage) (any, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return s, nil
}

func encodeMessagesValue(v any) (any, error) {
	msgs, ok := v.([]models.Message)
	if !ok {
		return nil, fmt.Errorf("unexpected messages type %T", v)
	}
	return encodeMessages(msgs)
}

func encodeMessages(msgs []models.Message) (string, error) {
	if msgs == nil {
		msgs = []models.Message{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeMessages(raw json.RawMessage) (any, error) {
	var msgs []models.Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

func encodeText(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return t, nil
	case *string:
		return nullableText(t), nil
	default:
		return nil, fmt.Errorf("unexpected text type %T", v)
	}
}

func decodeText(raw json.RawMessage) (any, error) {
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return s, nil
}

func encodeGoalValue(v any) (any, error) {
	switch g := v.(type) {
	case nil:
		return nil, nil
	case *models.CareerGoal:
		return encodeGoal(g)
	case models.CareerGoal:
		return encodeGoal(&g)
	default:
		return nil, fmt.Errorf("unexpected career goal type %T", v)
	}
}

func encodeGoal(g *models.CareerGoal) (any, error) {
	if g == nil {
		return nil, nil
	}
	data, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeGoal(raw json.RawMessage) (any, error) {
	var g *models.CareerGoal
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return g, nil
}

func nullableText(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

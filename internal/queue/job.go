package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/benvon/sculptor/internal/models"
	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeSessionInsert mirrors a newly created session
	JobTypeSessionInsert JobType = "session_insert"
	// JobTypeSessionUpdate writes a whitelisted column subset of a session
	JobTypeSessionUpdate JobType = "session_update"
	// JobTypeSessionDelete removes a session
	JobTypeSessionDelete JobType = "session_delete"
	// JobTypeProfileUpsert writes the full profile
	JobTypeProfileUpsert JobType = "profile_upsert"
)

// Job represents one outbound sync write in the queue
type Job struct {
	ID        uuid.UUID       `json:"id"`
	Type      JobType         `json:"type"`
	UserID    uuid.UUID       `json:"user_id"`
	SessionID *uuid.UUID      `json:"session_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	NotAfter  *time.Time      `json:"not_after,omitempty"` // Latest time to apply the write (nil = no expiration)
	CreatedAt time.Time       `json:"created_at"`
}

// NewJob creates a new job
func NewJob(jobType JobType, userID uuid.UUID, sessionID *uuid.UUID, payload any) (*Job, error) {
	job := &Job{
		ID:        models.NewID(),
		Type:      jobType,
		UserID:    userID,
		SessionID: sessionID,
		CreatedAt: time.Now(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", jobType, err)
		}
		job.Payload = data
	}
	return job, nil
}

// NewSessionInsertJob carries the full session row
func NewSessionInsertJob(s *models.ChatSession) (*Job, error) {
	id := s.ID
	return NewJob(JobTypeSessionInsert, s.UserID, &id, s)
}

// NewSessionUpdateJob carries the column/value map of a partial update
func NewSessionUpdateJob(userID, sessionID uuid.UUID, columns map[string]any) (*Job, error) {
	return NewJob(JobTypeSessionUpdate, userID, &sessionID, columns)
}

// NewSessionDeleteJob has no payload
func NewSessionDeleteJob(userID, sessionID uuid.UUID) (*Job, error) {
	return NewJob(JobTypeSessionDelete, userID, &sessionID, nil)
}

// NewProfileUpsertJob carries the full profile
func NewProfileUpsertJob(p models.UserProfile) (*Job, error) {
	return NewJob(JobTypeProfileUpsert, p.UserID, nil, p)
}

// Session decodes the payload of a session insert job
func (j *Job) Session() (*models.ChatSession, error) {
	var s models.ChatSession
	if err := j.decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Columns decodes the payload of a session update job into raw column values
func (j *Job) Columns() (map[string]json.RawMessage, error) {
	var columns map[string]json.RawMessage
	if err := j.decode(&columns); err != nil {
		return nil, err
	}
	return columns, nil
}

// Profile decodes the payload of a profile upsert job
func (j *Job) Profile() (models.UserProfile, error) {
	var p models.UserProfile
	err := j.decode(&p)
	return p, err
}

func (j *Job) decode(v any) error {
	if len(j.Payload) == 0 {
		return fmt.Errorf("job %s has no payload", j.ID)
	}
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", j.Type, err)
	}
	return nil
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}

	return time.Now().After(*j.NotAfter)
}

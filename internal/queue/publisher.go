package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/sculptor/internal/models"
	"github.com/google/uuid"
)

// DefaultJobTTL bounds how long a sync job may wait before the worker drops it
const DefaultJobTTL = 24 * time.Hour

// SyncPublisher turns store writes into queued sync jobs.
// It satisfies the session mirror and profile upserter contracts.
type SyncPublisher struct {
	queue JobQueue
	ttl   time.Duration
}

// NewSyncPublisher creates a publisher; a non-positive ttl disables expiry
func NewSyncPublisher(queue JobQueue, ttl time.Duration) *SyncPublisher {
	return &SyncPublisher{queue: queue, ttl: ttl}
}

// InsertSession enqueues a session insert
func (p *SyncPublisher) InsertSession(ctx context.Context, s *models.ChatSession) error {
	job, err := NewSessionInsertJob(s)
	if err != nil {
		return err
	}
	return p.publish(ctx, job)
}

// UpdateSession enqueues a partial session update
func (p *SyncPublisher) UpdateSession(ctx context.Context, userID, id uuid.UUID, columns map[string]any) error {
	job, err := NewSessionUpdateJob(userID, id, columns)
	if err != nil {
		return err
	}
	return p.publish(ctx, job)
}

// DeleteSession enqueues a session delete
func (p *SyncPublisher) DeleteSession(ctx context.Context, userID, id uuid.UUID) error {
	job, err := NewSessionDeleteJob(userID, id)
	if err != nil {
		return err
	}
	return p.publish(ctx, job)
}

// UpsertProfile enqueues a full profile write
func (p *SyncPublisher) UpsertProfile(ctx context.Context, profile models.UserProfile) error {
	job, err := NewProfileUpsertJob(profile)
	if err != nil {
		return err
	}
	return p.publish(ctx, job)
}

func (p *SyncPublisher) publish(ctx context.Context, job *Job) error {
	if p.ttl > 0 {
		notAfter := job.CreatedAt.Add(p.ttl)
		job.NotAfter = &notAfter
	}
	if err := p.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue %s job: %w", job.Type, err)
	}
	return nil
}

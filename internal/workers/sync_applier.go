package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/sculptor/internal/database"
	"github.com/benvon/sculptor/internal/metrics"
	"github.com/benvon/sculptor/internal/models"
	"github.com/benvon/sculptor/internal/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnknownJobType is returned for jobs this worker does not apply
var ErrUnknownJobType = errors.New("unknown job type")

// SessionWriter applies session writes to the remote store
type SessionWriter interface {
	InsertSession(ctx context.Context, s *models.ChatSession) error
	UpdateSession(ctx context.Context, userID, id uuid.UUID, columns map[string]any) error
	DeleteSession(ctx context.Context, userID, id uuid.UUID) error
}

// ProfileWriter applies profile writes to the remote store
type ProfileWriter interface {
	UpsertProfile(ctx context.Context, p models.UserProfile) error
}

// SyncApplier applies queued sync jobs exactly once. Failed jobs are dead-lettered, never retried.
type SyncApplier struct {
	sessions SessionWriter
	profiles ProfileWriter
	timeout  time.Duration
	logger   *zap.Logger
}

// NewSyncApplier creates a new sync applier
func NewSyncApplier(sessions SessionWriter, profiles ProfileWriter, timeout time.Duration, logger *zap.Logger) *SyncApplier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SyncApplier{
		sessions: sessions,
		profiles: profiles,
		timeout:  timeout,
		logger:   logger,
	}
}

// ProcessJob applies the job carried by msg, acking on success and dead-lettering on failure
func (a *SyncApplier) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()
	if job == nil {
		_ = msg.Nack(false)
		return fmt.Errorf("message has no job")
	}

	applyCtx, cancel := context.WithTimeout(ctx, a.timeout)
	err := a.apply(applyCtx, job)
	cancel()
	metrics.ObserveSync("worker_"+string(job.Type), err)

	if err != nil {
		if nackErr := msg.Nack(false); nackErr != nil {
			a.logger.Error("sync_job_nack_failed",
				zap.String("job_id", job.ID.String()),
				zap.Error(nackErr),
			)
		}
		return fmt.Errorf("failed to apply %s job %s: %w", job.Type, job.ID, err)
	}

	if err := msg.Ack(); err != nil {
		return fmt.Errorf("failed to ack job %s: %w", job.ID, err)
	}
	a.logger.Debug("sync_job_applied",
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.String("user_id", job.UserID.String()),
	)
	return nil
}

func (a *SyncApplier) apply(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeSessionInsert:
		s, err := job.Session()
		if err != nil {
			return err
		}
		if s.UserID != job.UserID {
			return fmt.Errorf("session does not belong to user")
		}
		return a.sessions.InsertSession(ctx, s)

	case queue.JobTypeSessionUpdate:
		if job.SessionID == nil {
			return fmt.Errorf("session_id is required for session update job")
		}
		raw, err := job.Columns()
		if err != nil {
			return err
		}
		columns, err := database.DecodeSessionColumns(raw)
		if err != nil {
			return err
		}
		return a.sessions.UpdateSession(ctx, job.UserID, *job.SessionID, columns)

	case queue.JobTypeSessionDelete:
		if job.SessionID == nil {
			return fmt.Errorf("session_id is required for session delete job")
		}
		return a.sessions.DeleteSession(ctx, job.UserID, *job.SessionID)

	case queue.JobTypeProfileUpsert:
		p, err := job.Profile()
		if err != nil {
			return err
		}
		if p.UserID != job.UserID {
			return fmt.Errorf("profile does not belong to user")
		}
		return a.profiles.UpsertProfile(ctx, p)

	default:
		return fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type)
	}
}

// Run drains msgs until the channel closes or ctx is cancelled
func (a *SyncApplier) Run(ctx context.Context, msgs <-chan *queue.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				a.logger.Info("sync_job_channel_closed")
				return
			}
			if err := a.ProcessJob(ctx, msg); err != nil {
				fields := []zap.Field{zap.Error(err)}
				if job := msg.GetJob(); job != nil {
					fields = append(fields,
						zap.String("job_id", job.ID.String()),
						zap.String("job_type", string(job.Type)),
					)
				}
				a.logger.Error("sync_job_failed", fields...)
			}
		}
	}
}

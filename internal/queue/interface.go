package queue

import (
	"context"
	"time"
)

// MessageInterface is one delivered sync job awaiting settlement.
// The worker acks applied jobs and nacks failed ones without requeue.
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// JobQueue carries sync jobs from the API to the worker
type JobQueue interface {
	Enqueue(ctx context.Context, job *Job) error

	// Consume delivers jobs until ctx is done. At most prefetchCount jobs are
	// unsettled at once. Both channels close when delivery stops.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	Close() error
	HealthCheck(ctx context.Context) error
}

// DLQPurger drops dead-lettered jobs older than retention and reports how many
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}

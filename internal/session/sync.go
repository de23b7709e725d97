package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benvon/sculptor/internal/metrics"
	"github.com/benvon/sculptor/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mirror is the best-effort remote copy of a user's sessions
type Mirror interface {
	InsertSession(ctx context.Context, s *models.ChatSession) error
	UpdateSession(ctx context.Context, userID, id uuid.UUID, columns map[string]any) error
	DeleteSession(ctx context.Context, userID, id uuid.UUID) error
}

// Fetcher loads the remote snapshot used to hydrate a store
type Fetcher interface {
	ListSessions(ctx context.Context, userID uuid.UUID) ([]*models.ChatSession, error)
}

const (
	defaultQueueSize    = 256
	defaultWriteTimeout = 10 * time.Second
)

var errDispatcherClosed = errors.New("sync dispatcher closed")

type syncOp struct {
	name      string
	sessionID uuid.UUID
	run       func(ctx context.Context) error
	done      chan struct{}
}

// dispatcher applies remote writes one at a time in issue order.
// It never reads or writes store state; every op carries its own snapshot.
// ops is never closed, so senders only need mu to observe closed, never to
// stay safe while blocked.
type dispatcher struct {
	ops     chan syncOp
	quit    chan struct{}
	stopped chan struct{}
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
}

func newDispatcher(logger *zap.Logger, queueSize int, timeout time.Duration) *dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	d := &dispatcher{
		ops:     make(chan syncOp, queueSize),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		timeout: timeout,
		logger:  logger,
	}
	go d.loop()
	return d
}

func (d *dispatcher) loop() {
	defer close(d.stopped)
	for {
		select {
		case op := <-d.ops:
			d.apply(op)
		case <-d.quit:
			for {
				select {
				case op := <-d.ops:
					d.apply(op)
				default:
					return
				}
			}
		}
	}
}

func (d *dispatcher) apply(op syncOp) {
	if op.run == nil {
		close(op.done)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	err := op.run(ctx)
	cancel()
	metrics.ObserveSync(op.name, err)
	if err != nil {
		d.logger.Warn("remote_sync_failed",
			zap.String("operation", op.name),
			zap.String("session_id", op.sessionID.String()),
			zap.Error(err),
		)
	}
}

// enqueue schedules op without blocking the caller; a full queue drops the write
func (d *dispatcher) enqueue(op syncOp) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.logger.Debug("remote_sync_skipped_closed", zap.String("operation", op.name))
		return
	}
	select {
	case d.ops <- op:
	default:
		metrics.ObserveSync(op.name, errors.New("queue full"))
		d.logger.Warn("remote_sync_dropped_queue_full",
			zap.String("operation", op.name),
			zap.String("session_id", op.sessionID.String()),
		)
	}
}

// flush waits until every write queued before the call has been attempted.
// It may wait for room in a full queue but holds no lock while doing so.
func (d *dispatcher) flush(ctx context.Context) error {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return errDispatcherClosed
	}

	barrier := syncOp{name: "flush", done: make(chan struct{})}
	select {
	case d.ops <- barrier:
	case <-d.quit:
		return errDispatcherClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-barrier.done:
		return nil
	case <-d.stopped:
		select {
		case <-barrier.done:
			return nil
		default:
			return errDispatcherClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting writes, applies what is already queued and returns
// once the loop has exited
func (d *dispatcher) close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.quit)
	}
	d.mu.Unlock()
	<-d.stopped
}

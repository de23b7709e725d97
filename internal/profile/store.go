// Package profile holds the user profile in memory and mirrors it remotely
// through a single debounced upsert.
package profile

import (
	"context"
	"sync"
	"time"

	"github.com/benvon/sculptor/internal/metrics"
	"github.com/benvon/sculptor/internal/models"
	"github.com/benvon/sculptor/internal/validation"
	"go.uber.org/zap"
)

const (
	// DefaultDelay is the quiet period after the last edit before a write is issued
	DefaultDelay = 2 * time.Second
	// DefaultMinSaving is the minimum time IsSaving stays true for one write
	DefaultMinSaving = 1 * time.Second

	defaultWriteTimeout = 10 * time.Second
)

// Upserter persists a whole profile row keyed by user id
type Upserter interface {
	UpsertProfile(ctx context.Context, p models.UserProfile) error
}

// Option configures a Store
type Option func(*Store)

// WithDelay overrides the debounce delay
func WithDelay(d time.Duration) Option {
	return func(s *Store) { s.delay = d }
}

// WithMinSaving overrides the minimum saving indicator duration
func WithMinSaving(d time.Duration) Option {
	return func(s *Store) { s.minSaving = d }
}

// Store owns one profile. Edits apply immediately; remote writes are coalesced
// so a burst of edits shorter than the delay produces exactly one upsert.
type Store struct {
	upserter  Upserter
	logger    *zap.Logger
	delay     time.Duration
	minSaving time.Duration

	mu         sync.Mutex
	profile    models.UserProfile
	timer      *time.Timer
	generation uint64
	saving     int
	closed     bool
	inflight   sync.WaitGroup
}

// NewStore creates a store seeded with initial. A nil upserter keeps the profile local.
func NewStore(initial models.UserProfile, upserter Upserter, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		upserter:  upserter,
		logger:    logger.With(zap.String("user_id", initial.UserID.String())),
		delay:     DefaultDelay,
		minSaving: DefaultMinSaving,
		profile:   initial,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current profile
func (s *Store) Get() models.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Update validates and merges patch, then (re)arms the debounce timer
func (s *Store) Update(patch models.ProfilePatch) (models.UserProfile, error) {
	if err := validation.ValidateProfilePatch(patch); err != nil {
		return models.UserProfile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	patch.Apply(&s.profile)
	s.scheduleLocked()
	return s.profile, nil
}

// Load replaces the profile without scheduling a write; used for hydration
func (s *Store) Load(p models.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.UserID = s.profile.UserID
	s.profile = p
}

// IsSaving reports whether a write is in flight or still inside its minimum display window
func (s *Store) IsSaving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving > 0
}

// Pending reports whether an edit is waiting for the debounce timer
func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

func (s *Store) scheduleLocked() {
	if s.upserter == nil || s.closed {
		return
	}
	s.generation++
	gen := s.generation
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
}

// fire runs on the timer goroutine. A stale generation means a later edit replaced this timer.
func (s *Store) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.generation || s.closed || s.timer == nil {
		s.mu.Unlock()
		return
	}
	snapshot := s.beginLocked()
	s.mu.Unlock()

	started := time.Now()
	s.write(context.Background(), snapshot)
	if remaining := s.minSaving - time.Since(started); remaining > 0 {
		time.Sleep(remaining)
	}
	s.end()
}

func (s *Store) beginLocked() models.UserProfile {
	s.timer = nil
	s.saving++
	s.inflight.Add(1)
	return s.profile
}

func (s *Store) end() {
	s.mu.Lock()
	s.saving--
	s.mu.Unlock()
	s.inflight.Done()
}

func (s *Store) write(ctx context.Context, p models.UserProfile) error {
	ctx, cancel := context.WithTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	err := s.upserter.UpsertProfile(ctx, p)
	metrics.ObserveSync("profile_upsert", err)
	if err != nil {
		s.logger.Warn("profile_sync_failed", zap.Error(err))
		return err
	}
	s.logger.Debug("profile_synced")
	return nil
}

// Flush issues the pending write immediately instead of waiting for the timer.
// It returns the write error, if any; nothing is retried.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer == nil || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.timer.Stop()
	s.generation++
	snapshot := s.beginLocked()
	s.mu.Unlock()

	defer s.end()
	return s.write(ctx, snapshot)
}

// Close flushes any pending edit, waits for in-flight writes and stops accepting new ones
func (s *Store) Close(ctx context.Context) error {
	err := s.Flush(ctx)

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

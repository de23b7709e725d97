// Package session owns the in-memory collection of chat sessions for one user.
//
// The store is authoritative for the running process. Every mutation is applied
// locally and becomes visible to the next read before the call returns; the
// corresponding remote write is handed to a FIFO dispatcher and attempted once.
// Remote failures are logged and counted, never retried and never rolled back.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benvon/sculptor/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInvalidType is returned when creating a session of an unknown type
	ErrInvalidType = errors.New("invalid session type")
	// ErrNotFound is returned by lookups that require an existing session
	ErrNotFound = errors.New("session not found")
)

// Option configures a Store
type Option func(*Store)

// WithQueueSize sets the outbound write buffer size
func WithQueueSize(n int) Option {
	return func(s *Store) { s.queueSize = n }
}

// WithWriteTimeout bounds each remote write
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Store) { s.writeTimeout = d }
}

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store holds the ordered sessions of one user and the active session id
type Store struct {
	userID uuid.UUID
	mirror Mirror
	logger *zap.Logger
	now    func() time.Time

	queueSize    int
	writeTimeout time.Duration
	outbound     *dispatcher

	mu       sync.RWMutex
	sessions []*models.ChatSession
	activeID uuid.UUID

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// NewStore creates a store for userID. A nil mirror runs the store in local-only mode.
func NewStore(userID uuid.UUID, mirror Mirror, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		userID: userID,
		mirror: mirror,
		logger: logger.With(zap.String("user_id", userID.String())),
		now:    func() time.Time { return time.Now().UTC() },
		subs:   make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	if mirror != nil {
		s.outbound = newDispatcher(s.logger, s.queueSize, s.writeTimeout)
	}
	return s
}

// LocalOnly reports whether remote persistence is disabled for this store
func (s *Store) LocalOnly() bool {
	return s.mirror == nil
}

// DefaultTitle derives a session title from the job context, falling back to the type
func DefaultTitle(t models.SessionType, ic *models.InitialContext) string {
	if ic != nil {
		title := strings.TrimSpace(ic.JobTitle)
		company := strings.TrimSpace(ic.Company)
		switch {
		case title != "" && company != "":
			return title + " at " + company
		case title != "":
			return title
		case company != "":
			return company
		}
	}
	return "New " + t.Label()
}

// Create prepends a new session, makes it active and schedules the remote insert
func (s *Store) Create(t models.SessionType, ic *models.InitialContext) (uuid.UUID, error) {
	if !t.Valid() {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidType, t)
	}

	sess := &models.ChatSession{
		ID:          models.NewID(),
		UserID:      s.userID,
		Title:       DefaultTitle(t, ic),
		Type:        t,
		Messages:    []models.Message{},
		LastUpdated: s.now(),
	}
	if ic != nil {
		if jd := strings.TrimSpace(ic.JobDescription); jd != "" {
			sess.JobDescription = models.StringPtr(jd)
		}
		if rt := strings.TrimSpace(ic.ResumeText); rt != "" {
			sess.ResumeText = models.StringPtr(rt)
		}
	}

	s.mu.Lock()
	s.sessions = append([]*models.ChatSession{sess}, s.sessions...)
	s.activeID = sess.ID
	snapshot := sess.Clone()
	s.mu.Unlock()

	s.publish(EventCreated, sess.ID)
	s.publish(EventActive, sess.ID)
	s.remote("session_insert", sess.ID, func(ctx context.Context) error {
		return s.mirror.InsertSession(ctx, snapshot)
	})
	return sess.ID, nil
}

// Update merges patch onto the session. Only whitelisted fields are sent remotely.
// Updating a missing session is a no-op and reports false.
func (s *Store) Update(id uuid.UUID, patch Patch) bool {
	s.mu.Lock()
	sess := s.find(id)
	if sess == nil {
		s.mu.Unlock()
		s.logger.Debug("session_update_missing_target", zap.String("session_id", id.String()))
		return false
	}
	patch.apply(sess)
	sess.LastUpdated = s.now()
	payload := RemotePayload(sess.Clone(), patch.Fields())
	s.mu.Unlock()

	s.publish(EventUpdated, id)
	if payload != nil {
		s.remote("session_update", id, func(ctx context.Context) error {
			return s.mirror.UpdateSession(ctx, s.userID, id, payload)
		})
	}
	return true
}

// Rename sets the session title
func (s *Store) Rename(id uuid.UUID, title string) bool {
	return s.Update(id, Patch{Title: &title})
}

// Delete removes the session, clearing the active id if it pointed at it
func (s *Store) Delete(id uuid.UUID) bool {
	s.mu.Lock()
	idx := s.index(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)
	if s.activeID == id {
		s.activeID = uuid.Nil
	}
	s.mu.Unlock()

	s.publish(EventDeleted, id)
	s.remote("session_delete", id, func(ctx context.Context) error {
		return s.mirror.DeleteSession(ctx, s.userID, id)
	})
	return true
}

// Get returns a copy of the session
func (s *Store) Get(id uuid.UUID) (*models.ChatSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess := s.find(id)
	if sess == nil {
		return nil, false
	}
	return sess.Clone(), true
}

// List returns copies of all sessions, newest first
func (s *Store) List() []*models.ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ChatSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Clone())
	}
	return out
}

// ActiveID returns the raw active id, which may reference a deleted session
func (s *Store) ActiveID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Active resolves the active session. A dangling active id means no active session.
func (s *Store) Active() (*models.ChatSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeID == uuid.Nil {
		return nil, false
	}
	sess := s.find(s.activeID)
	if sess == nil {
		return nil, false
	}
	return sess.Clone(), true
}

// SetActive marks id as the active session; uuid.Nil clears it
func (s *Store) SetActive(id uuid.UUID) {
	s.mu.Lock()
	s.activeID = id
	s.mu.Unlock()
	s.publish(EventActive, id)
}

// AppendMessage appends msg and syncs the message list remotely
func (s *Store) AppendMessage(id uuid.UUID, msg models.Message) bool {
	payload, ok := s.appendMessage(id, msg)
	if !ok {
		return false
	}
	s.remote("session_update", id, func(ctx context.Context) error {
		return s.mirror.UpdateSession(ctx, s.userID, id, payload)
	})
	return true
}

// StageMessage appends msg locally only; used for streaming placeholders
func (s *Store) StageMessage(id uuid.UUID, msg models.Message) bool {
	_, ok := s.appendMessage(id, msg)
	return ok
}

func (s *Store) appendMessage(id uuid.UUID, msg models.Message) (map[string]any, bool) {
	s.mu.Lock()
	sess := s.find(id)
	if sess == nil {
		s.mu.Unlock()
		return nil, false
	}
	sess.Messages = append(sess.Messages, msg)
	sess.LastUpdated = s.now()
	payload := RemotePayload(sess.Clone(), []Field{FieldMessages})
	s.mu.Unlock()

	s.publish(EventMessage, id)
	return payload, true
}

// SetMessageContent replaces the content of one message locally. Missing
// sessions or messages are silently ignored.
func (s *Store) SetMessageContent(id, messageID uuid.UUID, content string) bool {
	s.mu.Lock()
	sess := s.find(id)
	if sess == nil {
		s.mu.Unlock()
		return false
	}
	found := false
	for i := range sess.Messages {
		if sess.Messages[i].ID == messageID {
			sess.Messages[i].Content = content
			found = true
			break
		}
	}
	if found {
		sess.LastUpdated = s.now()
	}
	s.mu.Unlock()

	if found {
		s.publish(EventMessage, id)
	}
	return found
}

// SyncMessages pushes the current message list of the session to the mirror
func (s *Store) SyncMessages(id uuid.UUID) bool {
	s.mu.RLock()
	sess := s.find(id)
	if sess == nil {
		s.mu.RUnlock()
		return false
	}
	payload := RemotePayload(sess.Clone(), []Field{FieldMessages})
	s.mu.RUnlock()

	s.remote("session_update", id, func(ctx context.Context) error {
		return s.mirror.UpdateSession(ctx, s.userID, id, payload)
	})
	return true
}

// Replace overwrites local state with a fetched remote snapshot (last fetch wins)
func (s *Store) Replace(sessions []*models.ChatSession) {
	fresh := make([]*models.ChatSession, 0, len(sessions))
	for _, sess := range sessions {
		if sess == nil {
			continue
		}
		c := sess.Clone()
		if c.Messages == nil {
			c.Messages = []models.Message{}
		}
		fresh = append(fresh, c)
	}
	s.mu.Lock()
	s.sessions = fresh
	s.mu.Unlock()
	s.publish(EventReplaced, uuid.Nil)
}

// Hydrate fetches the remote snapshot and replaces local state with it
func (s *Store) Hydrate(ctx context.Context, fetcher Fetcher) error {
	if fetcher == nil {
		return nil
	}
	sessions, err := fetcher.ListSessions(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("failed to fetch sessions: %w", err)
	}
	s.Replace(sessions)
	s.logger.Info("sessions_hydrated", zap.Int("count", len(sessions)))
	return nil
}

// Flush blocks until every remote write issued so far has been attempted
func (s *Store) Flush(ctx context.Context) error {
	if s.outbound == nil {
		return nil
	}
	return s.outbound.flush(ctx)
}

// Close drains pending remote writes and releases subscribers
func (s *Store) Close() {
	if s.outbound != nil {
		s.outbound.close()
	}
	s.closeSubscribers()
}

func (s *Store) remote(op string, id uuid.UUID, run func(ctx context.Context) error) {
	if s.outbound == nil {
		return
	}
	s.outbound.enqueue(syncOp{name: op, sessionID: id, run: run})
}

func (s *Store) find(id uuid.UUID) *models.ChatSession {
	if idx := s.index(id); idx >= 0 {
		return s.sessions[idx]
	}
	return nil
}

func (s *Store) index(id uuid.UUID) int {
	for i, sess := range s.sessions {
		if sess.ID == id {
			return i
		}
	}
	return -1
}

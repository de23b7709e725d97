// Package workspace binds one profile store and one session store to each
// authenticated user and hydrates them from the remote store on first use.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benvon/sculptor/internal/models"
	"github.com/benvon/sculptor/internal/profile"
	"github.com/benvon/sculptor/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultHydrateTimeout bounds the remote reads done when a workspace is opened
const DefaultHydrateTimeout = 10 * time.Second

// ProfileSource reads a stored profile
type ProfileSource interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
}

// Backend groups the remote collaborators. A zero Backend yields local-only workspaces.
type Backend struct {
	Mirror   session.Mirror
	Fetcher  session.Fetcher
	Upserter profile.Upserter
	Profiles ProfileSource
}

// LocalOnly reports whether no remote store is configured
func (b Backend) LocalOnly() bool {
	return b.Mirror == nil && b.Fetcher == nil && b.Upserter == nil && b.Profiles == nil
}

// Workspace is the in-memory state of one user
type Workspace struct {
	User     models.User
	Sessions *session.Store
	Profile  *profile.Store

	ready chan struct{}
}

// Option configures a Manager
type Option func(*Manager)

// WithSessionOptions forwards options to every session store
func WithSessionOptions(opts ...session.Option) Option {
	return func(m *Manager) { m.sessionOpts = append(m.sessionOpts, opts...) }
}

// WithProfileOptions forwards options to every profile store
func WithProfileOptions(opts ...profile.Option) Option {
	return func(m *Manager) { m.profileOpts = append(m.profileOpts, opts...) }
}

// WithHydrateTimeout overrides DefaultHydrateTimeout
func WithHydrateTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.hydrateTimeout = d
		}
	}
}

// Manager lazily opens one Workspace per user
type Manager struct {
	backend        Backend
	logger         *zap.Logger
	sessionOpts    []session.Option
	profileOpts    []profile.Option
	hydrateTimeout time.Duration

	mu         sync.Mutex
	workspaces map[uuid.UUID]*Workspace
	closed     bool
}

// ErrManagerClosed is returned once Close has been called
var ErrManagerClosed = errors.New("workspace manager closed")

// NewManager creates a manager over backend
func NewManager(backend Backend, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		backend:        backend,
		logger:         logger,
		hydrateTimeout: DefaultHydrateTimeout,
		workspaces:     make(map[uuid.UUID]*Workspace),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LocalOnly reports whether workspaces are memory-only
func (m *Manager) LocalOnly() bool {
	return m.backend.LocalOnly()
}

// Get returns the workspace for user, opening and hydrating it on first access.
// Concurrent first calls for the same user share one hydration.
func (m *Manager) Get(ctx context.Context, user *models.User) (*Workspace, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	ws, ok := m.workspaces[user.ID]
	if !ok {
		ws = m.open(user)
		m.workspaces[user.ID] = ws
	}
	m.mu.Unlock()

	if !ok {
		m.hydrate(ctx, ws)
		close(ws.ready)
		return ws, nil
	}

	select {
	case <-ws.ready:
		return ws, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) open(user *models.User) *Workspace {
	logger := m.logger.With(zap.String("user_id", user.ID.String()))
	return &Workspace{
		User:     *user,
		Sessions: session.NewStore(user.ID, m.backend.Mirror, logger, m.sessionOpts...),
		Profile:  profile.NewStore(user.SeedProfile(), m.backend.Upserter, logger, m.profileOpts...),
		ready:    make(chan struct{}),
	}
}

// hydrate overlays the remote profile and replaces sessions with the remote snapshot.
// Failures degrade to the seeded local state.
func (m *Manager) hydrate(ctx context.Context, ws *Workspace) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.hydrateTimeout)
	defer cancel()

	logger := m.logger.With(zap.String("user_id", ws.User.ID.String()))

	if m.backend.Profiles != nil {
		remote, err := m.backend.Profiles.GetProfile(ctx, ws.User.ID)
		switch {
		case err == nil && remote != nil:
			ws.Profile.Load(OverlayProfile(ws.Profile.Get(), *remote))
		case err != nil:
			logger.Info("profile_hydrate_skipped", zap.Error(err))
		}
	}

	if err := ws.Sessions.Hydrate(ctx, m.backend.Fetcher); err != nil {
		logger.Warn("sessions_hydrate_failed", zap.Error(err))
	}
}

// Reload re-fetches the user's sessions, replacing local state (last fetch wins)
func (m *Manager) Reload(ctx context.Context, user *models.User) error {
	ws, err := m.Get(ctx, user)
	if err != nil {
		return err
	}
	if err := ws.Sessions.Hydrate(ctx, m.backend.Fetcher); err != nil {
		return fmt.Errorf("failed to reload sessions: %w", err)
	}
	return nil
}

// Len returns the number of open workspaces
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workspaces)
}

// Close flushes pending profile writes and drains every session store
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	workspaces := make([]*Workspace, 0, len(m.workspaces))
	for _, ws := range m.workspaces {
		workspaces = append(workspaces, ws)
	}
	m.workspaces = make(map[uuid.UUID]*Workspace)
	m.mu.Unlock()

	var errs []error
	for _, ws := range workspaces {
		<-ws.ready
		if err := ws.Profile.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", ws.User.ID, err))
		}
		ws.Sessions.Close()
	}
	return errors.Join(errs...)
}

// OverlayProfile returns seed with every non-empty field of remote applied on top
func OverlayProfile(seed, remote models.UserProfile) models.UserProfile {
	return models.Overlay(seed, remote)
}

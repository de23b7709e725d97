package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/sculptor/internal/config"
	"github.com/benvon/sculptor/internal/database"
	"github.com/benvon/sculptor/internal/logger"
	"github.com/benvon/sculptor/internal/middleware"
	"github.com/benvon/sculptor/internal/models"
	"github.com/benvon/sculptor/internal/profile"
	"github.com/benvon/sculptor/internal/services/ai"
	"github.com/benvon/sculptor/internal/workspace"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Options are the persistent flags shared by every command
type Options struct {
	DatabaseURL string
	Subject     string
	Debug       bool
}

// NewRootCmd creates the sculptorctl command tree
func NewRootCmd() *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:           "sculptorctl",
		Short:         "Command line client for Sculptor",
		Long:          "Chat with the career assistant, manage sessions and export documents from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.DatabaseURL, "database", "", "Database URL (defaults to DATABASE_URL; empty keeps everything in memory)")
	root.PersistentFlags().StringVar(&opts.Subject, "user", middleware.DevUserClaims.Sub, "Subject of the local user whose data is used")
	root.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "Enable debug logging to stderr")

	root.AddCommand(
		newSessionsCmd(opts),
		newChatCmd(opts),
		newSculptCmd(opts),
		newExportCmd(opts),
		newRoadmapCmd(opts),
		newQuizCmd(opts),
		newFlashcardsCmd(opts),
		newProfileCmd(opts),
		newCheckOIDCCmd(),
	)
	return root
}

// app is one opened user workspace plus the resources behind it
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *database.DB
	manager *workspace.Manager
	ws      *workspace.Workspace
}

func openApp(ctx context.Context, opts *Options) (*app, error) {
	cfg, err := config.LoadCLI()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.DatabaseURL != "" {
		cfg.DatabaseURL = opts.DatabaseURL
	}

	zapLogger, err := logger.NewCLILogger(opts.Debug || cfg.ServerDebugMode)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{cfg: cfg, logger: zapLogger}

	var backend workspace.Backend
	if !cfg.LocalOnly() {
		a.db, err = database.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		sessions := database.NewSessionRepository(a.db)
		profiles := database.NewProfileRepository(a.db)
		backend = workspace.Backend{Mirror: sessions, Fetcher: sessions, Upserter: profiles, Profiles: profiles}
	} else {
		zapLogger.Warn("no_database_configured_changes_are_not_kept")
	}

	// Profile edits are written on exit rather than after the interactive debounce
	a.manager = workspace.NewManager(backend, zapLogger,
		workspace.WithProfileOptions(profile.WithDelay(0), profile.WithMinSaving(0)),
	)

	claims := middleware.DevUserClaims
	claims.Sub = opts.Subject
	a.ws, err = a.manager.Get(ctx, models.UserFromClaims(&claims))
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// close drains pending remote writes before releasing the database
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.manager.Close(ctx); err != nil {
		a.logger.Error("workspace_flush_failed", zap.Error(err))
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("database_close_failed", zap.Error(err))
		}
	}
	_ = logger.Sync(a.logger)
}

func (a *app) provider() (ai.Provider, error) {
	if a.cfg.AIKey() == "" {
		return nil, fmt.Errorf("no API key configured for AI provider %q", a.cfg.AIProvider)
	}
	return ai.DefaultRegistry(a.logger, a.cfg.ServerDebugMode).GetProvider(a.cfg.AIProvider, map[string]string{
		ai.ConfigAPIKey:  a.cfg.AIKey(),
		ai.ConfigModel:   a.cfg.AIModel,
		ai.ConfigBaseURL: a.cfg.AIBaseURL,
	})
}

// withApp runs fn against the opened workspace and always flushes afterwards
func withApp(cmd *cobra.Command, opts *Options, fn func(a *app) error) error {
	a, err := openApp(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

// resolveSession accepts a full id, a unique id prefix, or "active"/"" for the active session
func resolveSession(ws *workspace.Workspace, ref string) (*models.ChatSession, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "active" {
		sess, ok := ws.Sessions.Active()
		if !ok {
			return nil, fmt.Errorf("no active session")
		}
		return sess, nil
	}
	if id, err := uuid.Parse(ref); err == nil {
		sess, ok := ws.Sessions.Get(id)
		if !ok {
			return nil, fmt.Errorf("session %s not found", id)
		}
		return sess, nil
	}

	var match *models.ChatSession
	for _, sess := range ws.Sessions.List() {
		if !strings.HasPrefix(sess.ID.String(), ref) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("session prefix %q is ambiguous", ref)
		}
		match = sess
	}
	if match == nil {
		return nil, fmt.Errorf("session %q not found", ref)
	}
	return match, nil
}

func sessionArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

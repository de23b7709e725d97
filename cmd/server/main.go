package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/sculptor/internal/config"
	"github.com/benvon/sculptor/internal/database"
	"github.com/benvon/sculptor/internal/handlers"
	"github.com/benvon/sculptor/internal/logger"
	"github.com/benvon/sculptor/internal/middleware"
	"github.com/benvon/sculptor/internal/profile"
	"github.com/benvon/sculptor/internal/queue"
	"github.com/benvon/sculptor/internal/services/ai"
	"github.com/benvon/sculptor/internal/services/career"
	"github.com/benvon/sculptor/internal/services/oidc"
	"github.com/benvon/sculptor/internal/telemetry"
	"github.com/benvon/sculptor/internal/workspace"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const serviceName = "sculptor-api"

const (
	// audioRequestSize admits a recorded voice turn encoded as base64
	audioRequestSize int64 = 12 << 20
	// documentRequestSize admits pasted resumes and job descriptions
	documentRequestSize int64 = 2 << 20
	// aiRequestTimeout covers one full chat turn including the stream
	aiRequestTimeout = handlers.DefaultTurnTimeout + 30*time.Second

	dlqInterval  = time.Hour
	dlqRetention = 24 * time.Hour
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewServiceLogger(serviceName, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_server",
		zap.String("version", version),
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.String("sync_mode", string(cfg.SyncMode)),
		zap.Bool("local_only", cfg.LocalOnly()),
		zap.Bool("auth_disabled", cfg.AuthDisabled),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracerProvider, err := telemetry.Setup(ctx, telemetry.Options{
		Enabled:     cfg.OTELEnabled,
		ServiceName: serviceName,
		Endpoint:    cfg.OTELEndpoint,
	})
	if err != nil {
		zapLogger.Warn("otel_tracer_init_failed", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx, tracerProvider); err != nil {
			zapLogger.Error("otel_tracer_shutdown_failed", zap.Error(err))
		}
	}()

	var healthOpts []handlers.HealthOption

	// Remote persistence is optional; without DATABASE_URL every workspace stays in memory
	var backend workspace.Backend
	if !cfg.LocalOnly() {
		db, err := database.New(ctx, cfg.DatabaseURL)
		if err != nil {
			zapLogger.Fatal("database_connect_failed", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				zapLogger.Warn("database_close_failed", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_database", zap.String("dialect", string(db.Dialect())))
		healthOpts = append(healthOpts, handlers.WithCheck("database", db.PingContext))

		sessionRepo := database.NewSessionRepository(db)
		profileRepo := database.NewProfileRepository(db)
		backend = workspace.Backend{
			Mirror:   sessionRepo,
			Fetcher:  sessionRepo,
			Upserter: profileRepo,
			Profiles: profileRepo,
		}

		if cfg.SyncMode == config.SyncModeQueue {
			jobQueue, err := queue.DialWithRetry(ctx, cfg.RabbitMQURL, zapLogger)
			if err != nil {
				zapLogger.Fatal("rabbitmq_connect_failed", zap.Error(err))
			}
			defer func() {
				if err := jobQueue.Close(); err != nil {
					zapLogger.Warn("rabbitmq_close_failed", zap.Error(err))
				}
			}()
			zapLogger.Info("connected_to_rabbitmq")
			healthOpts = append(healthOpts, handlers.WithCheck("queue", jobQueue.HealthCheck))

			publisher := queue.NewSyncPublisher(jobQueue, queue.DefaultJobTTL)
			backend.Mirror = publisher
			backend.Upserter = publisher

			gc := queue.NewGarbageCollector(jobQueue, dlqInterval, dlqRetention, zapLogger)
			go func() {
				if err := gc.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					zapLogger.Error("dlq_garbage_collector_stopped", zap.Error(err))
				}
			}()
		}
	}

	manager := workspace.NewManager(backend, zapLogger,
		workspace.WithProfileOptions(
			profile.WithDelay(cfg.ProfileSyncDelay),
			profile.WithMinSaving(cfg.ProfileSavingMin),
		),
	)

	// Redis backs the AI rate limiter when configured; otherwise limits are per process
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = middleware.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("redis_connect_failed", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("redis_close_failed", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_redis")
		healthOpts = append(healthOpts, handlers.WithCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
	}
	aiLimit, err := middleware.AIRateLimit(redisClient, cfg.AIRateLimit, zapLogger)
	if err != nil {
		zapLogger.Fatal("rate_limiter_init_failed", zap.Error(err))
	}

	authMW := middleware.NoAuth()
	if !cfg.AuthDisabled {
		verifier, err := oidc.NewVerifier(ctx, oidc.NewJWKSManager(nil, 0), cfg.OIDCIssuer, cfg.OIDCJWKSURL)
		if err != nil {
			zapLogger.Fatal("oidc_verifier_init_failed", zap.Error(err))
		}
		authMW = middleware.Auth(verifier, zapLogger)
	} else {
		zapLogger.Warn("authentication_disabled_using_dev_user")
	}

	provider, err := createAIProvider(cfg, zapLogger, debugMode)
	if err != nil {
		zapLogger.Warn("ai_provider_unavailable_ai_features_disabled", zap.Error(err))
	}

	catalog := career.DefaultCatalog()
	healthChecker := handlers.NewHealthChecker(healthOpts...)
	sessionHandler := handlers.NewSessionHandler(manager, zapLogger)
	profileHandler := handlers.NewProfileHandler(manager)

	r := mux.NewRouter()

	// Middleware runs in registration order, the first one being outermost
	if tracerProvider != nil {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))
	r.Use(middleware.Metrics)

	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMW)
	api.Use(middleware.ContentType)

	profileRouter := api.PathPrefix("/profile").Subrouter()
	profileRouter.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	profileRouter.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	profileHandler.RegisterRoutes(profileRouter)

	// Session CRUD and export share a prefix with the AI routes below; the first
	// subrouter only claims the paths it registers.
	sessionsRouter := api.PathPrefix("/sessions").Subrouter()
	sessionsRouter.Use(middleware.MaxRequestSize(documentRequestSize))
	sessionsRouter.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	sessionHandler.RegisterRoutes(sessionsRouter)

	if provider != nil {
		chatHandler := handlers.NewChatHandler(manager,
			career.NewChatEngine(provider, catalog, cfg.AIModel, zapLogger),
			middleware.AllowedOrigins(cfg.FrontendURL), zapLogger)
		documentHandler := handlers.NewDocumentHandler(manager,
			career.NewSculptEngine(provider, catalog, cfg.AIModel, zapLogger),
			career.NewRoadmapEngine(provider, cfg.AIModel, zapLogger), zapLogger)
		studyHandler := handlers.NewStudyHandler(career.NewStudyEngine(provider, cfg.AIModel, zapLogger))

		documentHandler.RegisterExportRoutes(sessionsRouter)

		aiSessions := api.PathPrefix("/sessions").Subrouter()
		aiSessions.Use(middleware.MaxRequestSize(audioRequestSize))
		aiSessions.Use(aiLimit)
		aiSessions.Use(middleware.Timeout(aiRequestTimeout))
		chatHandler.RegisterRoutes(aiSessions)
		documentHandler.RegisterRoutes(aiSessions)

		studyRouter := api.PathPrefix("/study").Subrouter()
		studyRouter.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
		studyRouter.Use(aiLimit)
		studyRouter.Use(middleware.Timeout(aiRequestTimeout))
		studyHandler.RegisterRoutes(studyRouter)

		chatHandler.RegisterEventRoutes(api)
	} else {
		// Export needs no provider
		handlers.NewDocumentHandler(manager, nil, nil, zapLogger).RegisterExportRoutes(sessionsRouter)
	}

	// Preflight requests need a matching route for the CORS middleware to run
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      aiRequestTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		zapLogger.Info("server_listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("server_shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}
	// Pending profile writes and queued session writes drain before the backends close
	if err := manager.Close(shutdownCtx); err != nil {
		zapLogger.Error("workspace_flush_failed", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// createAIProvider builds the configured provider from the registry
func createAIProvider(cfg *config.Config, logger *zap.Logger, debugMode bool) (ai.Provider, error) {
	if cfg.AIKey() == "" {
		return nil, fmt.Errorf("%s API key not configured", cfg.AIProvider)
	}
	return ai.DefaultRegistry(logger, debugMode).GetProvider(cfg.AIProvider, map[string]string{
		ai.ConfigAPIKey:  cfg.AIKey(),
		ai.ConfigModel:   cfg.AIModel,
		ai.ConfigBaseURL: cfg.AIBaseURL,
	})
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"version":%q,"timestamp":%q}`, version, time.Now().UTC().Format(time.RFC3339))
}

// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Atheneo HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire domain services, the session monitor, and HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/atheneo/internal/api"
	"github.com/taibuivan/atheneo/internal/course"
	"github.com/taibuivan/atheneo/internal/identity"
	"github.com/taibuivan/atheneo/internal/invite"
	"github.com/taibuivan/atheneo/internal/platform/config"
	"github.com/taibuivan/atheneo/internal/platform/constants"
	"github.com/taibuivan/atheneo/internal/platform/mailer"
	"github.com/taibuivan/atheneo/internal/platform/migration"
	pgstore "github.com/taibuivan/atheneo/internal/platform/postgres"
	redisstore "github.com/taibuivan/atheneo/internal/platform/redis"
	"github.com/taibuivan/atheneo/internal/platform/sec"
	"github.com/taibuivan/atheneo/internal/rbac"
	"github.com/taibuivan/atheneo/internal/session"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "atheneo"))
	slog.SetDefault(log)

	log.Info("[Atheneo] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "atheneo"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Token Service & Mailer ─────────────────────────────────────────
	jwtSvc, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	var mail mailer.Mailer
	if cfg.ResendAPIKey != "" {
		mail, err = mailer.NewResendMailer(cfg.ResendAPIKey, cfg.EmailFrom, log)
		must(log, err, "initialize resend mailer")
	} else {
		log.Warn("no_resend_api_key_configured_using_log_mailer")
		mail = mailer.NewLogMailer(log)
	}

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	// Identity: accounts, sessions, credentials.
	userRepository := identity.NewUserRepository(pool)
	sessionRepository := identity.NewSessionRepository(pool)
	resetTokenRepository := identity.NewResetTokenRepository(rdb)
	notifier := identity.NewNotifier()

	identityService := identity.NewService(
		userRepository,
		sessionRepository,
		resetTokenRepository,
		jwtSvc,
		mail,
		notifier,
		cfg.AppBaseURL,
		log,
	)
	identityHandler := identity.NewHandler(identityService)

	// Session monitor: idle timeout with Redis-backed activity timestamps.
	// Expiry revokes every persisted session for the identity.
	activityStore := session.NewActivityStore(rdb)
	monitor := session.NewMonitor(
		session.Config{},
		activityStore,
		identityService.ClearSessions,
		log,
	)
	defer monitor.Stop()

	// Session lifecycle events drive the monitor's watch set.
	notifier.Subscribe(func(event identity.SessionEvent) {
		switch event.Type {
		case identity.SessionEstablished:
			monitor.Track(event.UserID)
		case identity.SessionCleared:
			monitor.Untrack(event.UserID)
		}
	})

	// Access control: fresh role resolution over the profile store.
	resolver := rbac.NewResolver(identityService.Users())
	gate := rbac.NewGate(resolver)
	accessHandler := rbac.NewHandler(resolver, monitor)

	// Invitation and role-change workflow.
	workflowService := invite.NewService(
		invite.NewInvitationRepository(pool),
		invite.NewRequestRepository(pool),
		invite.NewAuditRepository(pool),
		identityService.Users(),
		identityService,
		mail,
		cfg.AppBaseURL,
		log,
	)
	workflowHandler := invite.NewHandler(workflowService, gate)

	// Course catalog and enrollments, gated on derived permissions.
	courseService := course.NewService(
		course.NewCourseRepository(pool),
		course.NewEnrollmentRepository(pool),
		resolver,
		log,
	)
	courseHandler := course.NewHandler(courseService)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Identity:  identityHandler,
		Access:    accessHandler,
		Workflow:  workflowHandler,
		Course:    courseHandler,
	}

	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	server := api.NewServer(serverCtx, cfg, log, jwtSvc, monitor, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}

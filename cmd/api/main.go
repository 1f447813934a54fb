// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Agora identity API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool) and Redis.
//  4. Run database migrations (idempotent).
//  5. Build token, cipher, mailer and federated login clients.
//  6. Wire repositories, services and HTTP handlers.
//  7. Start the verification janitor and the HTTP server with graceful shutdown.
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

	"github.com/taibuivan/agora/internal/api"
	"github.com/taibuivan/agora/internal/platform/config"
	"github.com/taibuivan/agora/internal/platform/constants"
	"github.com/taibuivan/agora/internal/platform/mailer"
	"github.com/taibuivan/agora/internal/platform/migration"
	pgstore "github.com/taibuivan/agora/internal/platform/postgres"
	redisstore "github.com/taibuivan/agora/internal/platform/redis"
	"github.com/taibuivan/agora/internal/platform/sec"
	"github.com/taibuivan/agora/internal/users/account"
	"github.com/taibuivan/agora/internal/users/auth"
	"github.com/taibuivan/agora/internal/users/oauth"
)

const appName = "agora-api"

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Startup deadline so misconfiguration fails fast.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL and Redis ───────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing_redis_client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_failed", slog.Any("error", cerr))
		}
	}()

	// ── 4. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 5. Security and outbound clients ──────────────────────────────────
	tokens, err := sec.NewTokenService(sec.TokenConfig{
		Secret:     cfg.JWTSecret,
		Issuer:     constants.AuthIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	must(log, err, "initialize token service")

	cipher, err := sec.NewCipher(sec.CipherConfig{Key: cfg.CipherKey, IV: cfg.CipherIV})
	must(log, err, "initialize authorization key cipher")

	var outbound mailer.Mailer = mailer.NewLogMailer(log)
	if cfg.SMTPHost != "" {
		outbound = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}

	federated := oauth.NewClient(&http.Client{Timeout: 10 * time.Second}, registrations(cfg)...)

	// ── 6. Domain wiring ──────────────────────────────────────────────────
	members := auth.NewMemberRepository(pool)
	verification := auth.NewVerificationTokenRepository(pool)

	authService := auth.NewService(auth.Dependencies{
		Members:      members,
		Sessions:     auth.NewRefreshSessionRepository(pool),
		Verification: verification,
		Resets:       auth.NewPasswordResetRepository(pool),
		Cooldowns:    auth.NewCooldownRepository(rdb),
		Tokens:       tokens,
		Cipher:       cipher,
		Mailer:       outbound,
		Federated:    auth.NewFederatedResolver(members, log),
	}, auth.Config{
		VerificationTTL:     cfg.VerificationTokenTTL,
		VerifyEmailCooldown: cfg.VerifyEmailCooldown,
	}, log)

	accountService := account.NewService(members, account.NewWithdrawalRepository(pool), log)

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
		CheckCache:    func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) },
	}, log)

	// ── 7. Background work and HTTP server ────────────────────────────────
	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	janitor := auth.NewJanitor(verification, constants.JanitorInterval, constants.VerificationGraceWindow, log)
	janitorDone := make(chan struct{})
	go func() {
		defer close(janitorDone)
		janitor.Run(runCtx)
	}()

	server := api.NewServer(runCtx, cfg, log, tokens, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService, federated),
		Account:   account.NewHandler(accountService),
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case <-runCtx.Done():
		log.Info("shutdown_signal_received")
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
	}
	stop()

	log.Info("shutting_down_server", slog.Duration("timeout", constants.ShutdownTimeout))

	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
	}
	<-janitorDone

	log.Info("server_stopped")
}

// newLogger builds the JSON logger tagged with the application name.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", appName))
}

// registrations lists the federated providers that have a client id configured.
func registrations(cfg *config.Config) []oauth.Registration {
	providers := []struct {
		provider oauth.Provider
		settings config.OAuthProvider
	}{
		{oauth.ProviderGoogle, cfg.Google},
		{oauth.ProviderKakao, cfg.Kakao},
		{oauth.ProviderNaver, cfg.Naver},
	}

	var enabled []oauth.Registration
	for _, entry := range providers {
		if !entry.settings.Enabled() {
			continue
		}
		enabled = append(enabled, oauth.DefaultRegistration(
			entry.provider, entry.settings.ClientID, entry.settings.ClientSecret, entry.settings.RedirectURL,
		))
	}
	return enabled
}

// must logs a structured fatal error and terminates the process if err is non-nil.
// Limited to startup wiring.
func must(log *slog.Logger, err error, step string) {
	if err != nil {
		log.Error("startup_failed",
			slog.String("step", step),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}

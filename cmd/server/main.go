// Package main initializes and starts the GophAuth HTTP server,
// setting up configuration, logging, tracing, database connections,
// repositories, the registration orchestrator, services and handlers.
package main

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/atinyakov/GophAuth/internal/cache"
	"github.com/atinyakov/GophAuth/internal/config"
	"github.com/atinyakov/GophAuth/internal/db"
	"github.com/atinyakov/GophAuth/internal/logger"
	"github.com/atinyakov/GophAuth/internal/middleware"
	"github.com/atinyakov/GophAuth/internal/password"
	"github.com/atinyakov/GophAuth/internal/profile"
	"github.com/atinyakov/GophAuth/internal/registration"
	"github.com/atinyakov/GophAuth/internal/repository"
	"github.com/atinyakov/GophAuth/internal/server"
	"github.com/atinyakov/GophAuth/internal/server/handler/http"
	"github.com/atinyakov/GophAuth/internal/service"
	"github.com/atinyakov/GophAuth/internal/telemetry"
	"github.com/atinyakov/GophAuth/internal/token"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	app := fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newDatabase,
			repository.NewAccountRepository,
			repository.NewResetTokenRepository,
			newHasher,
			newIssuer,
			newProfileClient,
			newOrchestrator,
			newLoginGuard,
			newAuthService,
			newRateLimiter,
			newRouter,
			newHTTPServer,
		),
		fx.Invoke(startResetTokenCleaner, startHTTPServer),
	)

	app.Run()
}

func newConfig() (*config.Options, error) {
	options := config.Parse()
	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return options, nil
}

func newLogger(lc fx.Lifecycle, cfg *config.Options) (*zap.Logger, error) {
	log := logger.New()
	if err := log.Init(cfg.LogLevel); err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = log.Log.Sync()
			return nil
		},
	})
	return log.Log, nil
}

func newTelemetry(lc fx.Lifecycle, cfg *config.Options, log *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg.OTLPEndpoint, cfg.ServiceName, log)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})
	return provider, nil
}

func newDatabase(lc fx.Lifecycle, cfg *config.Options) (*sql.DB, db.Dialect, error) {
	conn, dialect, err := db.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, "", fmt.Errorf("cannot init database: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return conn.Close()
		},
	})
	return conn, dialect, nil
}

func newHasher() *password.Argon2Hasher {
	return password.NewArgon2Hasher(password.DefaultParams)
}

func newIssuer(cfg *config.Options) *token.Issuer {
	return token.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
}

func newProfileClient(cfg *config.Options) *profile.Client {
	return profile.NewClient(cfg.ProfileServiceURL, &nethttp.Client{}, cfg.ProfileTimeout)
}

func newOrchestrator(
	accounts *repository.AccountRepository,
	hasher *password.Argon2Hasher,
	profiles *profile.Client,
	provider *telemetry.Provider,
	cfg *config.Options,
	log *zap.Logger,
) *registration.Orchestrator {
	return registration.NewOrchestrator(accounts, hasher, profiles, log.Named("registration"), provider.Tracer(), registration.Options{
		CompensationTimeout: cfg.CompensationTimeout,
	})
}

// newLoginGuard returns nil when Redis is not configured, which turns
// lockout tracking off.
func newLoginGuard(lc fx.Lifecycle, cfg *config.Options, log *zap.Logger) (service.LoginGuard, error) {
	if cfg.RedisAddr == "" {
		log.Info("redis not configured, login lockout disabled")
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return cache.NewAttemptTracker(client, cfg.LoginMaxAttempts, cfg.LoginLockout), nil
}

type serviceParams struct {
	fx.In

	Config       *config.Options
	Logger       *zap.Logger
	Accounts     *repository.AccountRepository
	Resets       *repository.ResetTokenRepository
	Hasher       *password.Argon2Hasher
	Issuer       *token.Issuer
	Orchestrator *registration.Orchestrator
	Guard        service.LoginGuard
}

func newAuthService(p serviceParams) *service.Service {
	return service.NewAuthService(service.Deps{
		Accounts:      p.Accounts,
		Resets:        p.Resets,
		Hasher:        p.Hasher,
		Tokens:        p.Issuer,
		Registrar:     p.Orchestrator,
		Guard:         p.Guard,
		Notifier:      service.NewLogResetNotifier(p.Logger.Named("reset"), p.Config.ResetTokenDebug),
		Logger:        p.Logger,
		ResetTokenTTL: p.Config.ResetTokenTTL,
	})
}

func newRateLimiter(cfg *config.Options) *middleware.RateLimiter {
	return middleware.NewRateLimiter(cfg.RateLimitRPM)
}

func newRouter(svc *service.Service, limiter *middleware.RateLimiter, cfg *config.Options, log *zap.Logger) nethttp.Handler {
	authHandler := &http.AuthHandler{AuthService: svc, Logger: log, LockoutWindow: cfg.LoginLockout}
	return http.NewRouter(authHandler, svc, limiter, log)
}

func newHTTPServer(router nethttp.Handler, cfg *config.Options) *server.HTTPServer {
	return server.NewHTTPServer(router, cfg.TLSCert, cfg.TLSKey)
}

func startResetTokenCleaner(lc fx.Lifecycle, conn *sql.DB, dialect db.Dialect, cfg *config.Options, log *zap.Logger) {
	var cancel context.CancelFunc
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, stop := context.WithCancel(context.Background())
			cancel = stop
			db.StartResetTokenCleaner(ctx, conn, dialect, cfg.ResetCleanupInterval, log)
			return nil
		},
		OnStop: func(context.Context) error {
			if cancel != nil {
				cancel()
			}
			return nil
		},
	})
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg *config.Options, log *zap.Logger) {
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			log.Info("starting HTTP server", zap.String("addr", cfg.Port), zap.Bool("tls", srv.TLS()))
			go func() {
				if err := srv.Run(runCtx, cfg.Port); err != nil {
					log.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

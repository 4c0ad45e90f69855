package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/99minutos/identity-access/internal/api"
	"github.com/99minutos/identity-access/internal/api/handler"
	"github.com/99minutos/identity-access/internal/api/middleware"
	"github.com/99minutos/identity-access/internal/core/command"
	"github.com/99minutos/identity-access/internal/core/service"
	mongostore "github.com/99minutos/identity-access/internal/infrastructure/db/mongo"
	"github.com/99minutos/identity-access/internal/infrastructure/db/postgres"
	redisstore "github.com/99minutos/identity-access/internal/infrastructure/db/redis"
	"github.com/99minutos/identity-access/internal/infrastructure/queue"
	"github.com/99minutos/identity-access/internal/pkg/config"
	"github.com/99minutos/identity-access/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.Init(logger.Options{Service: "identity-access"})
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "identity-access",
	})

	// --- Storage ---
	db, err := postgres.Connect(ctx, postgres.Config{
		DSN:             cfg.Postgres.DSN(),
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("postgres unavailable")
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("postgres schema")
	}

	mongoClient, mongoDB, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo unavailable")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("redis unavailable")
	}
	defer rdb.Close()

	audit := mongostore.NewAuditRepository(mongoDB)
	if err := audit.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("audit index creation failed")
	}

	// --- Core ---
	bcryptHasher, err := service.NewBcryptPasswordHasher(cfg.Password.Pepper, cfg.Password.Cost)
	if err != nil {
		log.Fatal().Err(err).Msg("password hasher")
	}
	hashing := queue.NewHashingPool(cfg.Password.Workers, bcryptHasher, logger.Component(log, "hashing_pool"))
	hashing.Start(ctx)
	defer hashing.Close()

	sessions, err := service.NewSessionTokenService(service.SessionConfig{
		Algorithm:        cfg.Auth.Algorithm,
		Key:              cfg.Auth.Secret,
		TTL:              cfg.Auth.SessionTTL(),
		RefreshThreshold: cfg.Auth.RefreshThreshold,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("session token service")
	}

	reader := postgres.NewUserReader(db)
	authService := service.NewAuthService(
		reader,
		hashing,
		sessions,
		redisstore.NewLoginThrottle(rdb, cfg.Throttle.MaxFailures, cfg.Throttle.Window),
		logger.Component(log, "auth"),
	)
	admin := command.NewUserAdmin(
		service.NewCurrentUserService(reader),
		service.NewAuthorizationService(),
		service.NewUserService(hashing),
		postgres.NewTransactionManager(db),
		audit,
		logger.Component(log, "user_admin"),
	)

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		Auth:     authService,
		Admin:    admin,
		Sessions: sessions,
		Cookie:   middleware.CookieOptions{Secure: cfg.Auth.CookieSecure},
		HealthChecks: map[string]handler.Check{
			"postgres": handler.PostgresCheck(db),
			"mongodb":  handler.MongoCheck(mongoClient),
			"redis":    handler.RedisCheck(rdb),
		},
		Log: log,
	})

	go func() {
		addr := ":" + strconv.Itoa(cfg.Port)
		log.Info().Str("addr", addr).Msg("http server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
}

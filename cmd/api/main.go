// @title           Account Service API
// @version         1.0
// @description     Sign-in, profiles, roles and route decisions for the appointment marketplace.
// @BasePath        /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lastslot/account-service/internal/api"
	"github.com/lastslot/account-service/internal/api/handler"
	"github.com/lastslot/account-service/internal/core/service"
	"github.com/lastslot/account-service/internal/infrastructure/db/mongo"
	"github.com/lastslot/account-service/internal/infrastructure/db/redis"
	"github.com/lastslot/account-service/internal/infrastructure/queue"
	"github.com/lastslot/account-service/internal/pkg/config"
	"github.com/lastslot/account-service/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fatalLog := logger.Init(logger.Options{Level: "error"})
		fatalLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "account-service",
	})

	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo unavailable")
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()
	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("mongo indexes")
	}

	rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("redis unavailable")
	}
	defer rdb.Close()

	auditService := service.NewAuditService(mongo.NewAuditRepository(db), log)
	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, auditService, log)
	dispatcher.Start(context.Background())

	authService := service.NewAuthService(
		mongo.NewUserRepository(db),
		redis.NewTokenStore(rdb),
		redis.NewRateLimiter(rdb, cfg.Signin.MaxAttempts, cfg.Signin.Window),
		dispatcher,
		service.AuthOptions{
			JWTSecret:  cfg.Auth.JWTSecret,
			AccessTTL:  cfg.Auth.AccessTokenTTL,
			RefreshTTL: cfg.Auth.RefreshTokenTTL,
		},
		log,
	)
	accountService := service.NewAccountService(
		mongo.NewProfileRepository(db),
		mongo.NewRoleRepository(db),
		dispatcher,
		log,
	)

	e := api.NewRouter(api.Deps{
		Auth:     authService,
		Accounts: accountService,
		Checks:   []handler.DependencyCheck{handler.MongoCheck(db), handler.RedisCheck(rdb)},
		Log:      log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("account service listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	dispatcher.Stop()
}

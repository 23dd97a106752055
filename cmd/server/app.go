package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"volunteer_chat/internal/broadcast"
	"volunteer_chat/internal/config"
	"volunteer_chat/internal/handler"
	"volunteer_chat/internal/jobs"
	"volunteer_chat/internal/mail"
	"volunteer_chat/internal/repository"
	"volunteer_chat/internal/service"
	"volunteer_chat/pkg/logger"
)

// app holds the wired dependency graph shared by every subcommand.
type app struct {
	repos      *repository.Repositories
	dispatcher *broadcast.Dispatcher
	services   *service.Services
	expiry     *jobs.FeaturedExpiryJob
	checks     map[string]handler.HealthCheck
	closers    []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, log logger.Logger, migrate bool) (*app, error) {
	a := &app{checks: map[string]handler.HealthCheck{}}

	var broadcaster broadcast.Broadcaster
	if cfg.UsesMemoryStorage() {
		a.repos = repository.NewMemoryRepositories(log)
		broadcaster = broadcast.NewMemoryBroadcaster()
	} else {
		dbPool, err := connectPostgres(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, dbPool.Close)
		a.checks["postgres"] = dbPool.Ping

		if migrate {
			if err := repository.Migrate(ctx, dbPool, log); err != nil {
				a.Close()
				return nil, err
			}
		}

		rdb, err := connectRedis(ctx, cfg.Redis, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		a.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }

		a.repos = repository.NewRepositories(dbPool, rdb, log)
		broadcaster = broadcast.NewRedisBroadcaster(rdb, log)
	}

	a.dispatcher = broadcast.NewDispatcher(broadcaster, cfg.Chat.BroadcastTimeout, log)
	a.closers = append(a.closers, a.dispatcher.Wait)

	a.services = service.NewServices(a.repos, a.dispatcher, cfg, log)

	var mailer mail.Mailer = mail.NopMailer{}
	if cfg.Mail.Enabled {
		mailer = mail.NewLogMailer(cfg.Mail.From, log)
	}
	a.expiry = jobs.NewFeaturedExpiryJob(a.repos.Featured, a.services.Notification, mailer, cfg.Jobs, log)

	return a, nil
}

func connectPostgres(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConnections)
	poolCfg.MaxConnIdleTime = cfg.MaxIdleTime
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info("Database connection established")

	return dbPool, nil
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log logger.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	log.Info("Redis connection established")

	return rdb, nil
}

/**
 * @description
 * Entry point for the user-service. It loads configuration, connects to the User Store,
 * wires the optional Redis rate limiter and RabbitMQ publisher, starts the pool stats
 * scheduler and serves the credit API until SIGINT/SIGTERM.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5/pgxpool: database connection pooling (via internal/store).
 * - github.com/joho/godotenv: loads .env files for local development.
 * - github.com/redis/go-redis/v9: backs the credit route rate limiter.
 * - golang.org/x/sync/errgroup: runs the HTTP server and the shutdown watcher together.
 */
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goversion "github.com/caarlos0/go-version"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/swiftorder/user-service/internal/api"
	"github.com/swiftorder/user-service/internal/app"
	"github.com/swiftorder/user-service/internal/config"
	"github.com/swiftorder/user-service/internal/store"
	"github.com/swiftorder/user-service/pkg/rabbitmq"
)

// Set through -ldflags at build time.
var (
	version   = ""
	commit    = ""
	treeState = ""
	date      = ""
	builtBy   = ""
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file for local development. In production, env vars are set directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("user-service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := store.NewPool(ctx, cfg.DatabaseDSN(), store.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return fmt.Errorf("unable to create database pool: %w", err)
	}
	defer dbpool.Close()
	logger.Info("database pool created", "max_conns", cfg.DBMaxConns, "min_conns", cfg.DBMinConns)

	userRepo := store.NewPostgresUserRepository(dbpool)
	service := app.NewService(userRepo, cfg.ServiceVersion, cfg.DBQueryTimeout, logger)

	if cfg.RabbitMQURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, cfg.CreditEventExchange)
		if err != nil {
			logger.Warn("failed to connect to RabbitMQ; credit events disabled", "error", err)
		} else {
			defer producer.Close()
			service.SetEventPublisher(producer, cfg.CreditEventExchange)
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := service.Close(flushCtx); err != nil {
					logger.Warn("credit events not fully flushed", "error", err)
				}
			}()
			logger.Info("credit events enabled", "exchange", cfg.CreditEventExchange)
		}
	}

	routerOpts := api.RouterOptions{
		JWTSecret:          cfg.ServiceJWTSecret,
		JWTAudience:        cfg.ServiceJWTAudience,
		RateLimitPerMinute: cfg.CreditRateLimitPerMinute,
		Logger:             logger,
	}
	if cfg.RateLimitingEnabled() {
		redisClient, err := newRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable; credit rate limiting disabled", "error", err)
		} else {
			defer redisClient.Close()
			routerOpts.RateLimiter = app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
			logger.Info("credit rate limiting enabled", "per_minute", cfg.CreditRateLimitPerMinute)
		}
	}
	if strings.TrimSpace(cfg.ServiceJWTSecret) == "" {
		logger.Info("service authentication disabled")
	}

	scheduler := app.NewScheduler(app.NewJobs(store.NewPoolStatsReader(dbpool), logger), logger, cfg.PoolStatsSchedule)
	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
	}()

	buildInfo := buildVersion(version, commit, date, builtBy, treeState)
	handler := api.NewHandler(service, buildInfo, logger)
	router := api.NewRouter(handler, routerOpts)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server",
			"port", cfg.ServerPort,
			"version_tag", service.VersionTag(),
			"build", buildInfo.GitVersion,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, gracefully shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func newRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildVersion(version, commit, date, builtBy, treeState string) goversion.Info {
	return goversion.GetVersionInfo(
		goversion.WithAppDetails("user-service", "Credit lookup for the SwiftOrder platform", ""),
		func(i *goversion.Info) {
			if commit != "" {
				i.GitCommit = commit
			}
			if version != "" {
				i.GitVersion = version
			}
			if treeState != "" {
				i.GitTreeState = treeState
			}
			if date != "" {
				i.BuildDate = date
			}
			if builtBy != "" {
				i.BuiltBy = builtBy
			}
		},
	)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/pitchfeed/internal/handlers"
	"github.com/anonto42/pitchfeed/internal/metrics"
	"github.com/anonto42/pitchfeed/internal/repositories"
	"github.com/anonto42/pitchfeed/internal/router"
	"github.com/anonto42/pitchfeed/internal/validators"
	"github.com/anonto42/pitchfeed/pkg/config"
	"github.com/anonto42/pitchfeed/pkg/firebase"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if !cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize databases")
	}
	defer db.CloseDB()

	if err := router.Migrate(db.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to auto migrate models")
	}
	log.Info().Msg("PostgreSQL auto-migrations completed.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := router.Dependencies{
		Users:          repositories.NewPostgresUserRepository(db.Postgres),
		Investments:    repositories.NewPostgresInvestmentRepository(db.Postgres),
		Metrics:        metrics.New(),
		Logger:         log.Logger,
		JWTSecret:      cfg.JWTSecret,
		FeedPageSize:   cfg.FeedPageSize,
		BoostRateLimit: cfg.BoostRateLimit,
	}

	mongoPosts := repositories.NewMongoPostRepository(db.Mongo.Database(cfg.MongoDatabase))
	if err := mongoPosts.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure post indexes")
	}
	deps.Posts = mongoPosts
	if db.Redis != nil {
		deps.Posts = repositories.NewCachedPostRepository(mongoPosts, db.Redis, cfg.FeedCacheTTL, deps.Metrics, log.Logger)
	}
	deps.Health = healthChecks(db)

	// Firebase login is optional
	if cfg.FirebaseCredentialsPath != "" {
		verifier, err := firebase.NewVerifier(ctx, cfg.FirebaseCredentialsPath, cfg.IsProduction())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Firebase")
		}
		deps.Firebase = verifier
	} else {
		log.Warn().Msg("FIREBASE_CREDENTIALS_PATH not set, firebase login disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e, log.Logger)
	router.SetupRoutes(e, deps)

	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           deps.Metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("API server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info().Str("port", cfg.MetricsPort).Msg("Metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down")
		return errors.Join(e.Shutdown(shutdownCtx), metricsServer.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
	}
}

func healthChecks(db *config.DB) map[string]handlers.HealthCheckFunc {
	checks := map[string]handlers.HealthCheckFunc{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := db.Postgres.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"mongo": func(ctx context.Context) error {
			return db.Mongo.Ping(ctx, nil)
		},
	}
	if db.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return db.Redis.Ping(ctx).Err()
		}
	}
	return checks
}

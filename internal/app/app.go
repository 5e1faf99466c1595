// Package app assembles repositories and services from configuration. Both the
// HTTP server and the operator CLI start from here.
package app

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tmc-tutoring/match-api/internal/repository"
	"github.com/tmc-tutoring/match-api/internal/service"
	"github.com/tmc-tutoring/match-api/pkg/cache"
	"github.com/tmc-tutoring/match-api/pkg/config"
	"github.com/tmc-tutoring/match-api/pkg/database"
)

// App holds the wired dependency graph.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client

	Metrics      *service.MetricsService
	Cache        *service.CacheService
	Generator    *service.MatchGenerationService
	Admin        *service.AdminService
	Participants *service.ParticipantService
	Matches      *service.MatchQueryService
	Exports      *service.ExportService
}

// New connects to PostgreSQL (and Redis when enabled), applies the schema if
// configured and wires every service.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return Wire(cfg, logger, db, redisClient), nil
}

// Wire builds services over already opened connections. redisClient may be nil.
func Wire(cfg *config.Config, logger *zap.Logger, db *sqlx.DB, redisClient *redis.Client) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := validator.New()

	tutorRepo := repository.NewTutorRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	matchRepo := repository.NewMatchRepository(db)
	settingsRepo := repository.NewAdminSettingsRepository(db)
	resetRepo := repository.NewResetRepository(db)
	lockRepo := repository.NewRunLockRepository(redisClient, db)
	cacheRepo := repository.NewCacheRepository(redisClient, logger.Named("cache"))

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Matching.SummaryCacheTTL, logger.Named("cache"), redisClient != nil)

	generator := service.NewMatchGenerationService(
		tutorRepo,
		studentRepo,
		matchRepo,
		lockRepo,
		cacheSvc,
		metrics,
		logger.Named("generator"),
		service.MatchGenerationConfig{
			DefaultTutorCapacity: cfg.Matching.DefaultTutorCapacity,
			LockKey:              cfg.Matching.LockKey,
			LockTTL:              cfg.Matching.LockTTL,
			SummaryTTL:           cfg.Matching.SummaryCacheTTL,
		},
	)

	admin := service.NewAdminService(settingsRepo, resetRepo, generator, validate, logger.Named("admin"), service.AdminConfig{
		TokenSecret:     cfg.JWT.Secret,
		TokenExpiry:     cfg.JWT.Expiration,
		Issuer:          cfg.JWT.Issuer,
		DefaultPassword: cfg.Admin.DefaultPassword,
		DefaultEmail:    cfg.Admin.DefaultEmail,
	})

	return &App{
		Config:       cfg,
		Logger:       logger,
		DB:           db,
		Redis:        redisClient,
		Metrics:      metrics,
		Cache:        cacheSvc,
		Generator:    generator,
		Admin:        admin,
		Participants: service.NewParticipantService(admin, tutorRepo, studentRepo, validate, logger.Named("intake")),
		Matches:      service.NewMatchQueryService(matchRepo, validate),
		Exports:      service.NewExportService(matchRepo, logger.Named("export"), nil, nil),
	}
}

// Close releases the connections.
func (a *App) Close() error {
	var firstErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			firstErr = err
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

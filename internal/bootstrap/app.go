package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"copper-backend/internal/accounts"
	"copper-backend/internal/analyzer"
	"copper-backend/internal/samples"
	"copper-backend/internal/services/health"
	"copper-backend/internal/shared/auth"
	"copper-backend/internal/shared/cache"
	"copper-backend/internal/shared/config"
	"copper-backend/internal/shared/server"
	"copper-backend/internal/shared/server/middleware"
	"copper-backend/internal/shared/storage/db"
	"copper-backend/internal/shared/storage/object"
	localstore "copper-backend/internal/shared/storage/object/local"
	s3store "copper-backend/internal/shared/storage/object/s3"
	"copper-backend/internal/shared/telemetry"
)

const rateLimitPrefix = "copper:ratelimit"

// App is the explicitly constructed application context. Handlers receive
// their dependencies from here; nothing is held in package globals.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Store           object.ObjectStore
	Counter         *cache.RedisCounter
	Limiter         middleware.Limiter
	Analyzer        analyzer.Analyzer
	Sessions        *middleware.Sessions
	AccountsRepo    accounts.Repo
	SamplesRepo     samples.Repo
	AccountsService *accounts.Service
	SamplesService  *samples.Service
	AccountsHandler *accounts.Handler
	SamplesHandler  *samples.Handler
	Health          *health.Service

	passwordCost int
}

// Option customizes Build, mainly for tests.
type Option func(*App)

// WithAnalyzer replaces the simulated analyzer.
func WithAnalyzer(a analyzer.Analyzer) Option {
	return func(app *App) { app.Analyzer = a }
}

// WithPasswordCost sets the bcrypt cost for new accounts.
func WithPasswordCost(cost int) Option {
	return func(app *App) { app.passwordCost = cost }
}

// Build validates cfg and wires every dependency and route.
func Build(cfg config.Config, opts ...Option) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if strings.TrimSpace(cfg.UploadDir) == "" {
		cfg.UploadDir = "static/uploads"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = config.DefaultMaxUploadBytes
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.LogLevel != "" {
		telemetry.SetLevel(cfg.LogLevel)
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}
	for _, opt := range opts {
		opt(app)
	}
	app.Counter, app.Limiter = buildLimiter(ctx, cfg)

	if err := buildServices(app); err != nil {
		app.Close()
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		Sessions:        app.Sessions,
		AccountsHandler: app.AccountsHandler,
		SamplesHandler:  app.SamplesHandler,
		Health:          app.Health,
		Limiter:         app.Limiter,
	})

	return app, nil
}

// Close releases the database pool and Redis client.
func (a *App) Close() {
	if a == nil {
		return
	}
	closeDB(a.DB)
	if a.Counter != nil {
		_ = a.Counter.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{
				"reason": "database connect failed",
				"error":  err.Error(),
			})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		closeDB(sqlDB)
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.UploadDir), nil
	}
}

// buildLimiter prefers a Redis-backed limiter so limits hold across
// replicas, and falls back to the in-process one when Redis is unusable.
func buildLimiter(ctx context.Context, cfg config.Config) (*cache.RedisCounter, middleware.Limiter) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, middleware.NewRateLimiter(nil)
	}
	counter, err := cache.NewRedisCounter(cfg.RedisURL)
	if err == nil {
		err = counter.Ping(ctx)
		if err != nil {
			_ = counter.Close()
		}
	}
	if err != nil {
		telemetry.Warn("bootstrap.redis_unavailable", map[string]any{"error": err.Error()})
		return nil, middleware.NewRateLimiter(nil)
	}
	return counter, middleware.NewCounterLimiter(counter, rateLimitPrefix, nil)
}

func buildServices(app *App) error {
	if app.DB != nil {
		app.AccountsRepo = &accounts.PGRepo{DB: app.DB}
	} else {
		app.AccountsRepo = accounts.NewMemoryRepo()
	}
	app.AccountsService = accounts.NewService(app.AccountsRepo)
	app.AccountsService.HashCost = app.passwordCost

	if app.DB != nil {
		app.SamplesRepo = &samples.PGRepo{DB: app.DB}
	} else {
		app.SamplesRepo = samples.NewMemoryRepo(app.AccountsService)
	}
	if app.Analyzer == nil {
		app.Analyzer = analyzer.NewSimulated(app.Store, nil)
	}
	app.SamplesService = samples.NewService(app.SamplesRepo, app.Store, app.Analyzer)

	signer, err := auth.NewSigner(app.Config.SessionSecret)
	if err != nil {
		return err
	}
	app.Sessions = middleware.NewSessions(signer, app.AccountsService, !app.Config.IsDevLike())

	app.AccountsHandler = accounts.NewHandler(app.AccountsService, app.Sessions)
	app.SamplesHandler = samples.NewHandler(app.SamplesService, app.Config.MaxUploadBytes)

	checks := map[string]health.Pinger{}
	if app.DB != nil {
		checks["database"] = app.DB
	}
	if app.Counter != nil {
		checks["redis"] = health.PingFunc(app.Counter.Ping)
	}
	app.Health = health.NewService(checks)

	if app.AccountsHandler == nil || app.SamplesHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}

func closeDB(sqlDB *sql.DB) {
	if sqlDB != nil {
		_ = sqlDB.Close()
	}
}

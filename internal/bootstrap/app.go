package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"skillgap-backend/internal/analyses"
	"skillgap-backend/internal/catalog"
	"skillgap-backend/internal/engine"
	"skillgap-backend/internal/queue"
	"skillgap-backend/internal/servicecatalog"
	"skillgap-backend/internal/services/health"
	"skillgap-backend/internal/shared/config"
	"skillgap-backend/internal/shared/server"
	"skillgap-backend/internal/shared/storage/db"
	"skillgap-backend/internal/shared/storage/object"
	localstore "skillgap-backend/internal/shared/storage/object/local"
	s3store "skillgap-backend/internal/shared/storage/object/s3"
	"skillgap-backend/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Store           object.ObjectStore
	Queue           queue.Client
	Catalog         *catalog.Registry
	Models          *engine.ModelProvider
	Engine          *engine.Engine
	AnalysesRepo    analyses.Repo
	AnalysesService *analyses.Service
	Services        *servicecatalog.Registry
	Health          *health.Service

	closers []func() error
}

// Options tunes Build for the calling process.
type Options struct {
	DB db.Options
	// SkipRouter leaves Router nil for processes that serve no HTTP.
	SkipRouter bool
	// SkipQueue leaves Queue nil; the worker consumes rather than publishes.
	SkipQueue bool
}

// Build prepares shared dependencies and loads the catalog and model.
func Build(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if err := telemetry.Configure(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}

	app := &App{Config: cfg, Health: health.NewService()}

	sqlDB, err := buildDB(ctx, cfg, opts.DB)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	app.Health.Database(sqlDB)

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store

	if !opts.SkipQueue {
		if err := app.buildQueue(cfg); err != nil {
			return nil, err
		}
	}

	app.Models = engine.NewModelProvider(engine.ModelConfigFromConfig(cfg))
	app.closers = append(app.closers, app.Models.Close)
	app.Catalog = catalog.NewRegistry(buildCatalogStore(cfg, sqlDB, store), app.Models.PrepareCatalog)
	if _, err := app.Catalog.Refresh(ctx); err != nil {
		// The service still starts; analyses report model_unavailable until a
		// refresh succeeds.
		telemetry.Error("bootstrap.catalog_load_failed", map[string]any{"error": err.Error()})
	}
	app.Engine = engine.New(app.Catalog, app.Models, engine.PolicyFromConfig(cfg.Engine))
	app.Health.Register("model", func(context.Context) (bool, string) {
		st := app.Models.Status()
		return st.State == "ready", st.State
	})
	app.Health.Register("catalog", func(context.Context) (bool, string) {
		st := app.Catalog.Status()
		return !app.Catalog.Current().Empty(), st.Version
	})

	if sqlDB != nil {
		app.AnalysesRepo = &analyses.PGRepo{DB: sqlDB}
	} else {
		app.AnalysesRepo = analyses.NewMemoryRepo()
	}
	app.AnalysesService = &analyses.Service{
		Repo:           app.AnalysesRepo,
		Engine:         app.Engine,
		Store:          store,
		Queue:          app.Queue,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	app.Services = servicecatalog.NewRegistry(cfg.ServicesCatalogPath)

	if !opts.SkipRouter {
		app.Router = server.NewRouter(server.RouterDeps{
			Config:   cfg,
			Analyses: app.AnalysesService,
			Catalog:  app.Catalog,
			Models:   app.Models,
			Services: app.Services,
			Health:   app.Health,
		})
	}

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":            cfg.Env,
		"object_store":   cfg.ObjectStoreType,
		"database":       sqlDB != nil,
		"queue":          app.Queue != nil,
		"catalog_source": app.Catalog.Status().Source,
		"embedder":       cfg.Embedder,
	})
	return app, nil
}

// Close releases the model, queue and database.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil && first == nil {
			first = err
		}
	}
	telemetry.Sync()
	return first
}

func buildDB(ctx context.Context, cfg config.Config, opts db.Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(opts))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func (a *App) buildQueue(cfg config.Config) error {
	if strings.TrimSpace(cfg.AMQPURL) == "" {
		return nil
	}
	client, err := queue.NewAMQPClient(cfg.AMQPURL, cfg.AMQPQueue)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.queue_disabled", map[string]any{"error": err.Error()})
			return nil
		}
		return err
	}
	a.Queue = client
	a.closers = append(a.closers, client.Close)
	return nil
}

// buildCatalogStore picks the catalog source named by CATALOG_SOURCE.
func buildCatalogStore(cfg config.Config, sqlDB *sql.DB, objects object.ObjectStore) catalog.Store {
	src := strings.TrimSpace(cfg.CatalogSource)
	switch {
	case src == "":
		return catalog.EmbeddedStore{}
	case src == "postgres":
		if sqlDB == nil {
			telemetry.Warn("bootstrap.catalog_fallback", map[string]any{"source": src, "reason": "no database"})
			return catalog.EmbeddedStore{}
		}
		return &catalog.PGStore{DB: sqlDB}
	case strings.HasPrefix(src, "object:"):
		return &catalog.ObjectStore{Objects: objects, Key: strings.TrimPrefix(src, "object:")}
	case strings.HasPrefix(src, "legacy:"):
		return catalog.NewLegacyDirStore(strings.TrimPrefix(src, "legacy:"))
	default:
		return &catalog.FileStore{Path: src}
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

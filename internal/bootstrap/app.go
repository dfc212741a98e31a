package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"dochub-backend/internal/account"
	googleauth "dochub-backend/internal/auth"
	"dochub-backend/internal/documents"
	"dochub-backend/internal/shared/auth"
	"dochub-backend/internal/shared/config"
	"dochub-backend/internal/shared/health"
	"dochub-backend/internal/shared/ratelimit"
	"dochub-backend/internal/shared/server"
	"dochub-backend/internal/shared/storage/db"
	"dochub-backend/internal/shared/storage/object"
	localstore "dochub-backend/internal/shared/storage/object/local"
	s3store "dochub-backend/internal/shared/storage/object/s3"
	"dochub-backend/internal/shared/telemetry"
	"dochub-backend/internal/users"
)

const tokenIssuer = "dochub"

// App holds the composed dependencies of the API process.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Store            object.ObjectStore
	Tokens           *auth.TokenService
	Limiter          *ratelimit.FixedWindow
	UsersRepo        users.Repo
	DocumentsRepo    documents.Repo
	UsersService     *users.Service
	DocumentsService *documents.Service
	AccountService   *account.Service
	UsersHandler     *users.Handler
	DocumentsHandler *documents.Handler
	AccountHandler   *account.Handler
	GoogleAuth       *googleauth.GoogleService
}

// Build wires repositories, services and handlers from cfg and mounts them
// on a router. Without DATABASE_URL in a dev-like env it uses in-memory
// repositories.
func Build(cfg config.Config) (*App, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:     []byte(cfg.JWTSecret),
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		Issuer:     tokenIssuer,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Tokens: tokens,
		Limiter: ratelimit.NewFixedWindow(ratelimit.Config{
			Limit:  cfg.RateLimitRequests,
			Window: cfg.RateLimitWindow,
		}, nil),
	}
	buildServices(app)

	var pinger health.Pinger
	if app.DB != nil {
		pinger = app.DB
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Resolver:        auth.NewResolver(tokens, app.UsersService),
		Limiter:         app.Limiter,
		UserHandler:     app.UsersHandler,
		DocumentHandler: app.DocumentsHandler,
		AccountHandler:  app.AccountHandler,
		GoogleAuth:      app.GoogleAuth,
		Health:          health.NewService(pinger),
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "database connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}

	if isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "local":
		return localstore.New(cfg.LocalStoreDir), nil
	default:
		return nil, nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}

func buildServices(app *App) {
	var userRepo users.Repo
	var docRepo documents.Repo
	if app.DB != nil {
		userRepo = &users.PGRepo{DB: app.DB}
		docRepo = &documents.PGRepo{DB: app.DB}
	} else {
		userRepo = users.NewMemoryRepo()
		docRepo = documents.NewMemoryRepo()
	}

	userSvc := users.NewService(userRepo, auth.NewPasswordHasher(app.Config.BcryptCost), app.Tokens)
	docSvc := &documents.Service{
		Repo:           docRepo,
		Store:          app.Store,
		MaxUploadBytes: app.Config.MaxUploadBytes,
	}

	app.UsersRepo = userRepo
	app.DocumentsRepo = docRepo
	app.UsersService = userSvc
	app.DocumentsService = docSvc
	app.AccountService = account.NewService(userRepo, docRepo, app.Store)
	app.UsersHandler = users.NewHandler(userSvc)
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.AccountHandler = account.NewHandler(app.AccountService)
	app.GoogleAuth = googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		userSvc,
	)
}

// Close releases the database pool, if any.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

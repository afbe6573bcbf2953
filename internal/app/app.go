// Package app wires the application together.
package app

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"myfeed/internal/auth"
	"myfeed/internal/cache"
	"myfeed/internal/config"
	"myfeed/internal/database"
	"myfeed/internal/feed"
	"myfeed/internal/httpapi"
	"myfeed/internal/ingest"
	"myfeed/internal/logging"
	"myfeed/internal/ratelimit"
	"myfeed/internal/status"
	"myfeed/internal/thumbnail"
)

// App holds all application dependencies.
type App struct {
	Config     *config.Config
	Logger     *logging.Logger
	Bus        *status.Bus
	Poller     *ingest.Poller
	HTTPServer *httpapi.Server

	db *database.DB
}

// New creates and initializes a new App instance.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}
	app.Logger = logging.New(logging.ParseLevel(cfg.Logging.Level))

	db, err := database.New(database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: database.DefaultConfig().ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	app.db = db

	if err := db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	sourceStore := database.NewSourceStore(db)
	itemStore := database.NewItemStore(db)
	tagStore := database.NewTagStore(db)

	// One connection pool shared by feed fetches and article page fetches,
	// with a short connect timeout so a dead host can't stall a cycle for
	// long.
	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: cfg.Poller.FetchTimeout,
			}).DialContext,
		},
	}

	limiter := ratelimit.New(cfg.Server.RateLimitDur)
	thumbCache := app.initCache()

	feedClient := feed.NewClient(httpClient, limiter)
	resolver := thumbnail.NewResolver(httpClient, thumbCache, limiter, app.Logger)
	enricher := ingest.NewEnricher(resolver, app.Logger)

	app.Bus = status.NewBus()
	coordinator := ingest.NewCoordinator(feedClient, enricher, sourceStore, itemStore, tagStore, app.Bus, app.Logger)
	app.Poller = ingest.NewPoller(coordinator, sourceStore, app.Bus, app.Logger, cfg.Poller.CheckInterval, cfg.Poller.DefaultTTL)

	authSvc := auth.NewService(cfg.Auth.Password, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	app.HTTPServer = httpapi.New(sourceStore, itemStore, tagStore, coordinator, app.Poller, app.Bus, authSvc, app.Logger)

	return app, nil
}

func (a *App) initCache() cache.Cache {
	switch a.Config.Cache.Backend {
	case "redis":
		a.Logger.Info("Using Redis thumbnail cache", logging.WithField("addr", a.Config.Cache.RedisAddr))
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr:   a.Config.Cache.RedisAddr,
			Prefix: "myfeed:thumb:",
		}, a.Config.Cache.TTL)
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			return cache.NewMemory(a.Config.Cache.TTL)
		}
		return redisCache
	default:
		a.Logger.Info("Using in-memory thumbnail cache")
		return cache.NewMemory(a.Config.Cache.TTL)
	}
}

// Run starts the poll loop and serves the API until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	go a.Poller.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.HTTPServer.Start(a.Config.Server.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		return nil
	}
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Error("Database close error", logging.WithField("error", err.Error()))
		}
	}

	return nil
}

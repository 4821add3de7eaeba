// Package server wires the CRM API: it opens PostgreSQL, applies migrations,
// builds the services and runs the HTTP server together with its background
// janitors until the context is cancelled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/foodcrm/internal/logging"
	"github.com/dmitrijs2005/foodcrm/internal/metrics"
	"github.com/dmitrijs2005/foodcrm/internal/server/config"
	"github.com/dmitrijs2005/foodcrm/internal/server/httpapi"
	"github.com/dmitrijs2005/foodcrm/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/foodcrm/internal/server/services"
)

const (
	tokenPurgeInterval   = time.Hour
	limiterSweepInterval = 10 * time.Minute
)

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type tokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	server      *httpapi.Server
	limiter     *httpapi.RateLimiter
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	us := services.NewUserService(db, rm, c)
	es := services.NewEntityService(db, rm, c.MaxPageSize, logger)
	as := services.NewAttachmentService(c)
	limiter := httpapi.NewRateLimiter(c.RateLimit, c.RateBurst, logger.With("module", "ratelimit"))

	router := httpapi.NewRouter(httpapi.Deps{
		Users:       us,
		Entities:    es,
		Attachments: as,
		Logger:      logger,
		SecretKey:   []byte(c.SecretKey),
		Metrics:     metrics.New(true),
		Limiter:     limiter,
	})

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		userService: us,
		server:      httpapi.NewServer(c.EndpointAddr, router, logger, c.ShutdownTimeout),
		limiter:     limiter,
	}, nil
}

// Run blocks until ctx is cancelled or the HTTP server fails.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...", "address", app.config.EndpointAddr)
	defer app.db.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.server.Run(ctx)
	})
	g.Go(func() error {
		purgeTokens(ctx, app.userService, tokenPurgeInterval, app.logger)
		return nil
	})
	g.Go(func() error {
		app.limiter.RunSweeper(ctx, limiterSweepInterval)
		return nil
	})

	err := g.Wait()
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
	return err
}

// purgeTokens removes expired refresh tokens every interval.
func purgeTokens(ctx context.Context, p tokenPurger, interval time.Duration, log logging.Logger) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := p.PurgeExpiredTokens(ctx)
			if err != nil {
				log.Warn(ctx, "refresh token purge failed", "error", err)
				continue
			}
			if n > 0 {
				log.Debug(ctx, "purged expired refresh tokens", "count", n)
			}
		}
	}
}

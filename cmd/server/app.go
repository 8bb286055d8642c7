package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-classroom/internal/clock"
	"github.com/phrazzld/scry-classroom/internal/config"
	"github.com/phrazzld/scry-classroom/internal/domain/srs"
	"github.com/phrazzld/scry-classroom/internal/notify"
	"github.com/phrazzld/scry-classroom/internal/platform/memory"
	"github.com/phrazzld/scry-classroom/internal/platform/postgres"
	"github.com/phrazzld/scry-classroom/internal/service/auth"
	"github.com/phrazzld/scry-classroom/internal/service/distribution"
	"github.com/phrazzld/scry-classroom/internal/service/evaluation"
	"github.com/phrazzld/scry-classroom/internal/service/importer"
	"github.com/phrazzld/scry-classroom/internal/service/review"
	"github.com/phrazzld/scry-classroom/internal/service/session"
	"github.com/phrazzld/scry-classroom/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// application holds the shared dependencies of the server and owns their
// shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB // nil with the memory driver

	stores     store.Stores
	transactor store.Transactor

	jwtService auth.JWTService

	reviews      *review.Service
	sessions     *session.Service
	evaluations  *evaluation.Service
	distribution *distribution.Service
	imports      *importer.Service

	hub        *notify.Hub
	dispatcher *notify.Dispatcher
}

// newApplication wires every service. db must be non-nil exactly when the
// postgres driver is configured.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	switch cfg.Store.Driver {
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres driver selected without a database connection")
		}
		app.stores = postgres.NewStores(db, logger)
		app.transactor = postgres.NewTransactor(db, logger)
	case "memory":
		mem := memory.NewDB(logger)
		app.stores = mem.Stores()
		app.transactor = mem
		logger.Warn("using in-memory store; data is lost on restart")
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	app.hub = notify.NewHub(cfg.Notify.SendBuffer, logger)
	app.dispatcher = notify.NewDispatcher(app.hub, cfg.Notify, logger)

	clk := clock.System{}
	scheduler := srs.NewServiceWithParams(srs.NewParams(srs.ParamsConfig{
		AgainOffset: cfg.SRS.AgainOffset,
		HardOffset:  cfg.SRS.HardOffset,
		GoodOffset:  cfg.SRS.GoodOffset,
		EasyOffset:  cfg.SRS.EasyOffset,
	}))

	s := app.stores
	app.reviews = review.NewService(s.Cards, s.Collections, scheduler, clk, logger)
	app.sessions = session.NewService(s.Sessions, s.Collections, app.dispatcher, clk, logger)
	app.evaluations = evaluation.NewService(s.Collections, s.Sessions, logger)
	app.distribution = distribution.NewService(
		s.Grants,
		s.Collections,
		s.Classes,
		auth.NewBcryptHasher(bcrypt.DefaultCost),
		cfg.Distribution,
		logger,
		distribution.WithClock(clk),
	)
	app.imports = importer.NewService(app.transactor, s, app.distribution, app.dispatcher, clk, logger)

	logger.Info("application initialized", slog.String("store_driver", cfg.Store.Driver))
	return app, nil
}

// Run serves HTTP until ctx is cancelled, then shuts everything down.
func (app *application) Run(ctx context.Context) error {
	if err := app.dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start notification dispatcher: %w", err)
	}

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		app.sweepLoop(ctx)
	}()

	err := app.startHTTPServer(ctx, app.setupRouter())
	<-sweepDone
	app.cleanup()
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// sweepLoop deactivates expired grants every SweepInterval until ctx ends.
// A zero interval disables it.
func (app *application) sweepLoop(ctx context.Context) {
	interval := app.config.Distribution.SweepInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.distribution.SweepExpired(ctx); err != nil && ctx.Err() == nil {
				app.logger.Error("grant sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout())
	defer cancel()

	if err := app.dispatcher.Stop(ctx); err != nil {
		app.logger.Warn("notification dispatcher did not drain", slog.String("error", err.Error()))
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}

	app.logger.Info("application shutdown completed")
}

func (app *application) shutdownTimeout() time.Duration {
	if d := app.config.Server.ShutdownTimeout; d > 0 {
		return d
	}
	return 10 * time.Second
}

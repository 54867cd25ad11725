// Package server wires the configuration, database, media stores and
// services together and runs the HTTP API next to the gRPC health server
// until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/folio/internal/logging"
	"github.com/dmitrijs2005/folio/internal/server/config"
	"github.com/dmitrijs2005/folio/internal/server/httpapi"
	"github.com/dmitrijs2005/folio/internal/server/media"
	"github.com/dmitrijs2005/folio/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/folio/internal/server/services"

	gs "github.com/dmitrijs2005/folio/internal/server/grpc"
)

const (
	startupTimeout = 30 * time.Second
	healthInterval = 10 * time.Second
)

// seams for tests
var (
	openDB               = repomanager.Open
	newRepositoryManager = repomanager.NewPostgresRepositoryManager
	newRemoteStore       = media.NewS3Store
	stdoutLogger         = func(level string) logging.Logger { return logging.NewJSON(os.Stdout, level) }
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler http.Handler
}

func NewApp(c *config.Config) (*App, error) {
	logger := stdoutLogger(c.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := assemble(ctx, c, logger, db, newRepositoryManager())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

// assemble runs the migrations and builds the services and HTTP handler on
// top of an open database.
func assemble(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	local, err := media.NewLocalStore(c.UploadDir, c.UploadRoutePrefix)
	if err != nil {
		return nil, err
	}
	c.UploadDir = local.Dir()

	remote, err := newRemoteStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("remote media store: %w", err)
	}
	if !remote.Configured() {
		logger.Warn(ctx, "remote media storage is not configured, uploads will be rejected")
	}

	auth := services.NewAuthService(c)
	if !auth.Enabled() {
		logger.Warn(ctx, "authentication is disabled, every route is open")
	}

	handler := httpapi.NewHandler(c, httpapi.Deps{
		Content: services.NewContentService(db, rm, c),
		CV:      services.NewCVService(db, rm, c, remote),
		Auth:    auth,
		Media:   media.NewRouter(local, remote, logger),
		DB:      db,
	}, logger)

	return &App{config: c, logger: logger, db: db, handler: handler}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.HTTPAddr, app.handler, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewHealthServer(app.config.GRPCHealthAddr, app.db, healthInterval, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a signal arrives or a server fails,
// then closes the database.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "close database", "err", err)
	}
	app.logger.Info(ctx, "App stopped")
}

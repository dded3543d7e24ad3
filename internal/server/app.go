// Package server wires configuration, storage, services and the HTTP
// transport together and runs them until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/filekeeper/internal/server/config"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filekeeper/internal/server/rest"
	"github.com/dmitrijs2005/filekeeper/internal/server/services"
	"github.com/dmitrijs2005/filekeeper/internal/server/sweeper"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap/zapcore"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	registry    *prometheus.Registry
	userService *services.UserService
	fileService *services.FileService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := newLogger(c.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
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
		return nil, fmt.Errorf("migration error: %w", err)
	}

	store, err := newBlobStore(ctx, c)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		registry:    reg,
		userService: services.NewUserService(db, rm, c, logger),
		fileService: services.NewFileService(db, rm, store, logger),
	}, nil
}

func newLogger(format string) (logging.Logger, error) {
	if format == config.LogFormatZap {
		return logging.NewProductionZapLogger(zapcore.InfoLevel)
	}
	return logging.NewJSONSlogLogger(os.Stdout, slog.LevelInfo), nil
}

func newBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, error) {
	switch c.StorageBackend {
	case config.StorageS3:
		return blobstore.NewS3Store(ctx, c)
	case config.StorageLocal:
		return blobstore.NewLocalStore(c.UploadDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
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
	s := rest.NewHTTPServer(app.config.EndpointAddr, app.logger, app.userService, app.fileService, app.registry, app.config.ShutdownTimeout)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.New(app.userService, app.config.SweepInterval, app.logger).Run(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	if z, ok := app.logger.(*logging.ZapLogger); ok {
		_ = z.Sync()
	}

	app.logger.Info(ctx, "App stopped")
}

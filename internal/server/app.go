// Package server wires the finkeeper server together: PostgreSQL storage,
// the gRPC API, receipt storage on S3 and the operational HTTP endpoints.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/finkeeper/internal/logging"
	"github.com/dmitrijs2005/finkeeper/internal/metrics"
	"github.com/dmitrijs2005/finkeeper/internal/server/config"
	"github.com/dmitrijs2005/finkeeper/internal/server/ops"
	"github.com/dmitrijs2005/finkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/finkeeper/internal/server/services"

	gs "github.com/dmitrijs2005/finkeeper/internal/server/grpc"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const metricsNamespace = "finkeeper_server"

// seams for tests
var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}
	newRepositoryManager = repomanager.NewPostgresRepositoryManager
)

type runner interface {
	Run(ctx context.Context) error
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	metrics *metrics.Collector
	grpc    runner
	ops     runner
}

// NewApp opens the database, applies migrations and builds the services.
// Receipt URLs are disabled when the S3 client cannot be configured.
func NewApp(ctx context.Context, c *config.Config, l logging.Logger) (*App, error) {
	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := newRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	mc := metrics.NewCollector(metricsNamespace)
	us := services.NewUserService(db, m, c)
	rs := services.NewRecordService(db, m)

	opts := []gs.Option{gs.WithMetrics(mc)}
	presigner, err := services.NewS3Presigner(ctx, c)
	if err != nil {
		l.Warn(ctx, "receipt storage disabled", "error", err)
	} else {
		opts = append(opts, gs.WithReceipts(services.NewReceiptService(presigner, rs, c.S3Bucket)))
	}

	app := &App{
		config:  c,
		logger:  l,
		db:      db,
		metrics: mc,
		grpc:    gs.NewGRPCServer(c.EndpointAddrGRPC, l, c.SecretKey, us, rs, opts...),
	}
	if c.HTTPAddr != "" {
		app.ops = ops.NewServer(c.HTTPAddr, db, mc, l)
	}
	return app, nil
}

// Run serves until ctx is cancelled or one of the listeners fails, which
// stops the others. The first failure is returned.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	start := func(name string, r runner) {
		if r == nil {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Run(ctx); err != nil {
				app.logger.Error(ctx, "server failed", "server", name, "error", err)
				once.Do(func() { firstErr = fmt.Errorf("%s: %w", name, err) })
				cancelFunc()
			}
		}()
	}

	start("grpc", app.grpc)
	start("http", app.ops)
	wg.Wait()

	app.logger.Info(ctx, "App stopped")
	return firstErr
}

func (app *App) Close() error {
	if app.db == nil {
		return nil
	}
	return app.db.Close()
}

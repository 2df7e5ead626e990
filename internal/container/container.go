// Package container assembles the application: database, repositories,
// services, HTTP server and background workers, in dependency order.
package container

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/facturio/facturio/internal/application/port"
	"github.com/facturio/facturio/internal/application/service"
	"github.com/facturio/facturio/internal/config"
	"github.com/facturio/facturio/internal/domain/paymentterm"
	"github.com/facturio/facturio/internal/infrastructure/persistence/repository"
	"github.com/facturio/facturio/internal/infrastructure/persistence/sqlite"
	"github.com/facturio/facturio/internal/infrastructure/plan"
	"github.com/facturio/facturio/internal/infrastructure/worker"
	httpserver "github.com/facturio/facturio/internal/interfaces/http"
	"github.com/facturio/facturio/pkg/database"
)

// Container holds the wired application.
type Container struct {
	cfg    *config.Config
	logger *zap.Logger

	sqlDB   *sql.DB
	workers *worker.Manager
	server  *httpserver.Server

	ClientService    service.ClientService
	InvoiceService   service.InvoiceService
	LedgerService    service.LedgerService
	SchedulerService service.SchedulerService
	NotifierService  service.NotifierService
}

// New opens the database, runs migrations and wires every component.
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	migrator := database.NewMigrator(sqlDB, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db := sqlite.NewDB(sqlDB, logger)

	clientRepo := repository.NewClientRepository(db, logger)
	invoiceRepo := repository.NewInvoiceRepository(db, logger)
	templateRepo := repository.NewTemplateRepository(db, logger)
	sequenceRepo := repository.NewSequenceRepository(db, invoiceRepo, logger)
	notificationRepo := repository.NewNotificationRepository(db, logger)

	planLimits := plan.NewLimits(cfg.Plan.MaxRecurringTemplates)
	clock := port.SystemClock{}
	calculator := paymentterm.NewCalculator(logger)
	serviceLogger := &zapLoggerAdapter{logger: logger}

	c := &Container{
		cfg:    cfg,
		logger: logger,
		sqlDB:  sqlDB,
	}

	c.ClientService = service.NewClientService(clientRepo, serviceLogger)
	c.InvoiceService = service.NewInvoiceService(
		invoiceRepo, clientRepo, sequenceRepo, db, clock,
		cfg.Invoice.NumberPrefix, serviceLogger)
	c.LedgerService = service.NewLedgerService(invoiceRepo, db, clock, serviceLogger)
	c.SchedulerService = service.NewSchedulerService(
		templateRepo, invoiceRepo, clientRepo, sequenceRepo, planLimits, db, clock,
		cfg.Invoice.NumberPrefix, serviceLogger)
	c.NotifierService = service.NewNotifierService(
		invoiceRepo, notificationRepo, calculator, clock, serviceLogger)

	c.workers = worker.NewManager(logger)
	c.workers.Register(worker.NewSweepWorker(
		"recurring-emission", cfg.Scheduler.ScanInterval, templateRepo,
		func(ctx context.Context, userID int64) error {
			_, err := c.SchedulerService.RunDueScan(ctx, userID)
			return err
		}, logger))
	c.workers.Register(worker.NewSweepWorker(
		"notification-scan", cfg.Notifier.ScanInterval, invoiceRepo,
		func(ctx context.Context, userID int64) error {
			_, err := c.NotifierService.Scan(ctx, userID)
			return err
		}, logger))

	c.server = httpserver.NewServer(
		httpserver.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		c.ClientService,
		c.InvoiceService,
		c.LedgerService,
		c.SchedulerService,
		c.NotifierService,
		serviceLogger,
	)

	return c, nil
}

// Run starts the workers and serves HTTP until the context is cancelled.
func (c *Container) Run(ctx context.Context) error {
	if err := c.workers.StartAll(ctx); err != nil {
		return err
	}
	return c.server.Start(ctx)
}

// Close stops the workers and releases the database.
func (c *Container) Close() error {
	if err := c.workers.StopAll(); err != nil {
		c.logger.Error("Failed to stop workers", zap.Error(err))
	}
	return c.sqlDB.Close()
}

// zapLoggerAdapter adapts zap.Logger to the narrow logger interfaces the
// service and HTTP layers consume.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

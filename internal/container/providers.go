package container

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/gsblab/gsb-frais/internal/application/dispatcher"
	"github.com/gsblab/gsb-frais/internal/application/port"
	"github.com/gsblab/gsb-frais/internal/application/service"
	"github.com/gsblab/gsb-frais/internal/domain/event"
	"github.com/gsblab/gsb-frais/internal/infrastructure/export"
	"github.com/gsblab/gsb-frais/internal/infrastructure/justification"
	"github.com/gsblab/gsb-frais/internal/infrastructure/metrics"
	"github.com/gsblab/gsb-frais/internal/infrastructure/persistence/repository"
	"github.com/gsblab/gsb-frais/internal/infrastructure/persistence/sqlite"
	"github.com/gsblab/gsb-frais/internal/infrastructure/security"
	"github.com/gsblab/gsb-frais/internal/infrastructure/storage"
	"github.com/gsblab/gsb-frais/internal/infrastructure/worker"
	"github.com/gsblab/gsb-frais/migrations"
	"github.com/gsblab/gsb-frais/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// SecurityBundle holds password hashing and session tokens.
type SecurityBundle struct {
	Hasher port.PasswordHasher
	Tokens port.TokenIssuer
}

// StorageBundle holds storage-related components.
type StorageBundle struct {
	FileStorage port.FileStorage
	PageCounter port.PageCounter
	SheetWriter port.SheetWriter
}

// ProvideDatabase opens the database and returns it with its transaction manager.
// Pending migrations are applied when AutoMigrate is set.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if _, err := database.NewMigrator(db, logger).Run(migrations.FS); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Visitor:    repository.NewVisitorRepository(sqlDB, logger),
		Accountant: repository.NewAccountantRepository(sqlDB, logger),
		Report:     repository.NewReportRepository(sqlDB, logger),
		FlatRate:   repository.NewFlatRateLineRepository(sqlDB, logger),
		Itemized:   repository.NewItemizedLineRepository(sqlDB, logger),
		Reference:  repository.NewReferenceRepository(sqlDB, logger),
	}, nil
}

// ProvideSecurity creates the password hasher and the token issuer.
func ProvideSecurity(cfg *AuthConfig) (*SecurityBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("auth config is required")
	}

	return &SecurityBundle{
		Hasher: security.NewBcryptHasher(cfg.BcryptCost),
		Tokens: security.NewJWTIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL),
	}, nil
}

// ProvideStorage creates justification storage, the PDF page counter and the sheet writer.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (*StorageBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := os.MkdirAll(cfg.JustificationDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create justification directory: %w", err)
	}

	return &StorageBundle{
		FileStorage: storage.NewLocalFileStorage(cfg.JustificationDir, logger),
		PageCounter: justification.NewPDFPageCounter(cfg.MaxPDFPages, logger),
		SheetWriter: export.NewExcelWriter(logger),
	}, nil
}

// ProvideMetrics creates the Prometheus collectors, nil when metrics are disabled.
func ProvideMetrics(cfg *MetricsConfig) *metrics.Metrics {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return metrics.New()
}

// ProvideDispatcher creates the event dispatcher and registers the
// audit log and, when enabled, the event counter.
func ProvideDispatcher(m *metrics.Metrics, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	d := dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}),
	)

	d.SubscribeAll("audit_log", auditLogHandler(logger))
	if m != nil {
		d.SubscribeAll("event_metrics", m.CountEvent)
	}

	return d, nil
}

func auditLogHandler(logger *zap.Logger) dispatcher.Handler {
	return func(_ context.Context, evt *event.Event) error {
		fields := []zap.Field{
			zap.String("event_id", evt.ID),
			zap.String("event_type", evt.Type.String()),
			zap.String("visitor_id", evt.VisitorID),
			zap.String("month", evt.Month),
			zap.String("actor", evt.Actor),
		}
		for k, v := range evt.Payload {
			fields = append(fields, zap.String(k, v))
		}
		logger.Info("Report event", fields...)
		return nil
	}
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	Security  *SecurityBundle
	Storage   *StorageBundle
	Publisher service.EventPublisher
	Clock     service.Clock
	Logger    *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Security == nil {
		return nil, fmt.Errorf("security components are required")
	}
	if deps.Storage == nil {
		return nil, fmt.Errorf("storage components are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}
	repos := deps.Repos

	return &ServiceBundle{
		Auth: service.NewAuthService(
			repos.Visitor,
			repos.Accountant,
			deps.Security.Hasher,
			deps.Security.Tokens,
			serviceLogger,
		),
		Reports: service.NewReportService(
			repos.Report,
			repos.FlatRate,
			repos.Itemized,
			repos.Reference,
			deps.TxManager,
			deps.Publisher,
			serviceLogger,
			deps.Clock,
		),
		Expenses: service.NewExpenseService(
			repos.Report,
			repos.FlatRate,
			repos.Itemized,
			repos.Reference,
			deps.TxManager,
			deps.Publisher,
			serviceLogger,
			deps.Clock,
		),
		Directory: service.NewDirectoryService(
			repos.Visitor,
			repos.Reference,
			serviceLogger,
		),
		Justifications: service.NewJustificationService(
			repos.Report,
			deps.Storage.FileStorage,
			deps.Storage.PageCounter,
			deps.TxManager,
			serviceLogger,
			deps.Clock,
		),
		Export: service.NewExportService(
			repos.Visitor,
			repos.Report,
			repos.FlatRate,
			repos.Itemized,
			deps.Storage.SheetWriter,
			serviceLogger,
		),
	}, nil
}

// WorkerDeps holds dependencies required for creating workers.
type WorkerDeps struct {
	Reports   service.ReportService
	WorkerCfg *WorkerConfig
	Clock     func() time.Time
	Logger    *zap.Logger
}

// ProvideWorkers creates the worker manager and registers the enabled workers.
func ProvideWorkers(deps *WorkerDeps) (*worker.Manager, error) {
	if deps == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.WorkerCfg == nil {
		return nil, fmt.Errorf("worker config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	manager := worker.NewManager(deps.Logger)

	if deps.WorkerCfg.CloseEnabled {
		if deps.Reports == nil {
			return nil, fmt.Errorf("report service is required")
		}
		manager.Register(worker.NewCloseWorker(worker.CloseWorkerConfig{
			Interval: deps.WorkerCfg.CloseInterval,
			Clock:    deps.Clock,
		}, deps.Reports, deps.Logger))
	}

	return manager, nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethpandaops/itsbench/pkg/config"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned by per-row updates that match no row.
var ErrNotFound = errors.New("record not found")

// Store provides persistence for runs and the tables derived from them.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	// Transaction runs fn inside one database transaction. Any error
	// returned by fn rolls back every write made through the Tx.
	Transaction(ctx context.Context, fn func(tx *Tx) error) error

	ReplaceRuns(ctx context.Context, runs []Run) ([]Run, error)
	ListRuns(ctx context.Context) ([]Run, error)
	CountRuns(ctx context.Context) (int64, error)

	ListPerformanceResults(ctx context.Context) ([]PerformanceResult, error)
	ListAppDetails(ctx context.Context) ([]AppDetails, error)
	ListSystemInfo(ctx context.Context) ([]SystemInfo, error)
	ListLibraries(ctx context.Context) ([]Libraries, error)
	ListGPUs(ctx context.Context) ([]GPU, error)
	ListRunDetails(ctx context.Context) ([]RunMoreDetails, error)
	ListModelMaps(ctx context.Context) ([]ModelMap, error)

	UpdateGPU(ctx context.Context, gpu *GPU) error
	ListRunDetailsWithoutModelMap(ctx context.Context) ([]RunMoreDetails, error)
	UpdateRunDetails(ctx context.Context, details *RunMoreDetails) error
	FindModelMapByName(ctx context.Context, modelName string) (*ModelMap, error)
	SeedModelMaps(ctx context.Context, maps []config.ModelMapConfig) error

	AnalyzeAppDetails(ctx context.Context) (*AppDetailsAnalysis, error)
	FixAppNames(ctx context.Context, names AppNameFixes) (*AppNameFixResult, error)
}

// Compile-time interface check.
var _ Store = (*store)(nil)

// defaultBatchSize is the bulk insert chunk size when none is configured.
const defaultBatchSize = 100

type store struct {
	log       logrus.FieldLogger
	cfg       *config.DatabaseConfig
	db        *gorm.DB
	batchSize int
}

// NewStore creates a new Store backed by the configured database driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
) Store {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &store{
		log:       log.WithField("component", "store"),
		cfg:       cfg,
		batchSize: batchSize,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	s.db = db

	if s.cfg.Driver == "sqlite" {
		// One connection keeps an in-memory database alive and shared, and
		// the foreign_keys pragma is per connection.
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("getting underlying db: %w", err)
		}

		sqlDB.SetMaxOpenConns(1)

		if err := db.WithContext(ctx).
			Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return fmt.Errorf("enabling sqlite foreign keys: %w", err)
		}
	}

	if err := s.db.WithContext(ctx).AutoMigrate(
		&Run{},
		&PerformanceResult{},
		&AppDetails{},
		&SystemInfo{},
		&Libraries{},
		&GPU{},
		&ModelMap{},
		&RunMoreDetails{},
	); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).
		Info("Database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// Transaction runs fn in a single transaction.
func (s *store) Transaction(
	ctx context.Context, fn func(tx *Tx) error,
) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&Tx{db: db, batchSize: s.batchSize})
	})
}

package postgres

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/seu-repo/sigec-ve/internal/domain"
)

// PoolSettings carries the DB_POOL_* knobs from configuration.
type PoolSettings struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// NewConnection opens the GORM/Postgres connection backing the persistence
// repository (C2) and applies the configured pool sizing.
func NewConnection(url string, pool PoolSettings, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(url), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	log.Info("connected to postgres",
		zap.Int("max_open_conns", pool.MaxOpenConns),
		zap.Int("max_idle_conns", pool.MaxIdleConns),
	)
	return db, nil
}

// RunMigrations brings the schema up to date. The five tables in spec.md §3
// are simple enough to manage with GORM AutoMigrate rather than a separate
// SQL migration tool.
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.ChargePoint{},
		&domain.ConnectorStatus{},
		&domain.IdTag{},
		&domain.Session{},
		&domain.MeterValue{},
	)
}

// Close releases the underlying *sql.DB pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"auction-platform/internal/auctionerrors"
	"auction-platform/internal/events"
	"auction-platform/internal/models"
)

// Open connects to the configured database and migrates every table the
// core owns. Any failure is wrapped in ErrFatalStartup.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("database: unsupported driver %q: %w", driver, auctionerrors.ErrFatalStartup)
	}

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("database: connect %s: %w: %w", driver, auctionerrors.ErrFatalStartup, err)
	}

	if driver == "sqlite" {
		// a single connection serializes writers and keeps :memory: databases shared
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("database: sqlite handle: %w: %w", auctionerrors.ErrFatalStartup, err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the core tables.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Auction{},
		&models.LedgerAuction{},
		&models.Bid{},
		&models.Item{},
		&models.ProjectionCursor{},
		&events.ProcessedEvent{},
	)
	if err != nil {
		return fmt.Errorf("database: migrate: %w: %w", auctionerrors.ErrFatalStartup, err)
	}
	return nil
}

// OpenTest opens a private in-memory sqlite database for tests.
func OpenTest(name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Classify wraps a gorm error with the matching core sentinel so callers can
// branch on NotFound or Transient without knowing the driver.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, auctionerrors.ErrNotFound)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrBadConn),
		errors.As(err, &netErr):
		return fmt.Errorf("%s: %w: %w", op, auctionerrors.ErrTransient, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

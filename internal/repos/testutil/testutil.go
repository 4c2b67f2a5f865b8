package testutil

import (
	"log"
	"os"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/campuspulse/campuspulse-backend/internal/logger"
	"github.com/campuspulse/campuspulse-backend/internal/types"
)

// Logger returns a quiet logger for store tests.
func Logger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() { l.Sync() })
	return l
}

// DB opens the Postgres database named by TEST_POSTGRES_DSN and migrates the
// schema. Tests that need a real store skip when the variable is unset.
func DB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("set TEST_POSTGRES_DSN to run Postgres store tests")
	}

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Error,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		t.Fatalf("enable uuid-ossp: %v", err)
	}
	if err := gdb.AutoMigrate(
		&types.Template{},
		&types.Section{},
		&types.Question{},
		&types.Publication{},
		&types.Submission{},
		&types.SubmissionAnswer{},
		&types.FormationCache{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return gdb
}

// Tx begins a transaction that is rolled back when the test finishes, so
// tests never leak rows into each other.
func Tx(t *testing.T) *gorm.DB {
	t.Helper()
	tx := DB(t).Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() { tx.Rollback() })
	return tx
}

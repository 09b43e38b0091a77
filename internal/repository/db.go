package repository

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"multi-timer/internal/model"
)

const defaultDSN = "multi_timer.db"

// NewDB opens the SQLite database backing the blob store and runs migrations.
// The pool holds a single connection.
func NewDB(dsn string) (*gorm.DB, error) {
	dsn, err := prepareSQLiteDSN(dsn)
	if err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.Blob{}, &model.Subscriber{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return db, nil
}

// prepareSQLiteDSN creates the parent dir of a file DSN and adds a busy
// timeout unless the caller set one.
func prepareSQLiteDSN(dsn string) (string, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return dsn, nil
	}

	path, query, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create db dir %q: %w", dir, err)
		}
	}

	if strings.Contains(query, "_busy_timeout") {
		return dsn, nil
	}
	if query == "" {
		return dsn + "?_busy_timeout=5000", nil
	}
	return dsn + "&_busy_timeout=5000", nil
}

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/wordsanctuary/guestbook/internal/config"
	"github.com/wordsanctuary/guestbook/internal/models"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
	pingTimeout     = 5 * time.Second

	sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
)

var conn *gorm.DB

// Init opens the configured database, migrates it and keeps the handle for Conn.
func Init(cfg config.DatabaseConfig) error {
	gdb, err := Open(cfg)
	if err != nil {
		return err
	}
	if err := Migrate(gdb); err != nil {
		return err
	}
	conn = gdb
	return nil
}

func Conn() *gorm.DB {
	return conn
}

// Open connects to PostgreSQL or SQLite depending on the URL scheme.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if cfg.IsPostgres() {
		dialector = postgres.Open(cfg.URL)
	} else {
		sqlDB, err := sql.Open("sqlite", sqliteDSN(cfg.SQLitePath()))
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		// SQLite works best with a single writer; cap the pool accordingly.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		dialector = sqlite.Dialector{DriverName: "sqlite", Conn: sqlDB}
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.IsPostgres() {
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetMaxIdleConns(maxIdleConns)
		sqlDB.SetConnMaxLifetime(connMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return gdb, nil
}

// Migrate creates the tables owned by this service.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&models.OutboxEntry{}); err != nil {
		return fmt.Errorf("auto-migrate failed: %w", err)
	}
	// Composite index GORM doesn't auto-create from struct tags.
	if err := gdb.Exec("CREATE INDEX IF NOT EXISTS idx_outbox_state_created ON outbox_entries(state, created_at)").Error; err != nil {
		return fmt.Errorf("create outbox index: %w", err)
	}
	return nil
}

// MigrateSheet creates the emulated spreadsheet table.
func MigrateSheet(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&models.SheetRow{}); err != nil {
		return fmt.Errorf("auto-migrate sheet failed: %w", err)
	}
	return nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + sqlitePragmas
	}
	return path + "?" + sqlitePragmas
}

// Ping checks the connection held by Init.
func Ping(ctx context.Context) error {
	if conn == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

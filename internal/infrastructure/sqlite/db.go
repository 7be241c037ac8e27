package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/architeacher/device-inventory/internal/config"
	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

// Open opens the database file and verifies it is usable. All statements share a
// single connection so transactions never contend for the write lock.
func Open(ctx context.Context, cfg config.SQLite) (*sql.DB, error) {
	db, err := sql.Open(driverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("pinging sqlite database: %w", err)
	}

	return db, nil
}

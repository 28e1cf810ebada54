package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	sqliteMaxOpenConns = 5
	sqliteBusyTimeout  = 5000
)

func openSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("db: error while opening sqlite database %q: %w", path, err)
	}
	db.SetMaxOpenConns(sqliteMaxOpenConns)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db: error while connecting to sqlite database %q: %w", path, err)
	}
	return db, nil
}

// sqliteDSN applies per-connection pragmas through the DSN so every pooled
// connection gets them.
func sqliteDSN(path string) string {
	params := fmt.Sprintf("_journal_mode=WAL&_busy_timeout=%d", sqliteBusyTimeout)
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + "?" + params
}

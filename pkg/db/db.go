package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"betheprofessional-bot/pkg/config"

	"github.com/jmoiron/sqlx"
)

const (
	createTopicsTableQuery    = "CREATE TABLE IF NOT EXISTS guild_topics (guild_id BIGINT PRIMARY KEY, topics TEXT NOT NULL);"
	createLanguagesTableQuery = "CREATE TABLE IF NOT EXISTS guild_languages (guild_id BIGINT PRIMARY KEY, language TEXT NOT NULL);"
	countGuildsQuery          = "SELECT COUNT(*) FROM guild_topics;"
)

var (
	ErrInvalidTopic = errors.New("db: topic must be a single non-empty line")
)

// DB is the topic registry. All reads and writes of guild state go through a
// Tx obtained from Begin; nothing is durable before Tx.Commit.
type DB struct {
	db       *sqlx.DB
	closers  []func()
	defaults config.Defaults
}

// Open connects to the registry store. DSNs with a postgres:// or
// postgresql:// scheme use PostgreSQL, anything else is a SQLite file path.
func Open(ctx context.Context, dsn string, defaults config.Defaults) (*DB, error) {
	var (
		sdb     *sqlx.DB
		closers []func()
		err     error
	)
	if isPostgres(dsn) {
		sdb, closers, err = openPostgres(ctx, dsn)
	} else {
		sdb, err = openSQLite(ctx, dsn)
	}
	if err != nil {
		return nil, err
	}
	d := &DB{db: sdb, closers: closers, defaults: defaults}
	if err := d.Setup(ctx); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) Setup(ctx context.Context) error {
	for _, query := range []string{createTopicsTableQuery, createLanguagesTableQuery} {
		if _, err := d.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("db: error while creating tables: %w", err)
		}
	}
	return nil
}

func (d *DB) Defaults() config.Defaults {
	return d.defaults
}

func (d *DB) DriverName() string {
	return d.db.DriverName()
}

func (d *DB) Begin(ctx context.Context) (*Tx, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("db: error while starting a transaction: %w", err)
	}
	return &Tx{tx: tx, defaults: d.defaults}, nil
}

func (d *DB) GuildCount(ctx context.Context) (count int, err error) {
	err = d.db.GetContext(ctx, &count, countGuildsQuery)
	return
}

func (d *DB) Close() error {
	err := d.db.Close()
	for _, closer := range d.closers {
		closer()
	}
	return err
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

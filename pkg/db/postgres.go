package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

func openPostgres(ctx context.Context, dsn string) (*sqlx.DB, []func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db: error while creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("db: error while connecting to postgres: %w", err)
	}
	// closing the *sql.DB leaves the pool open
	return sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx"), []func(){pool.Close}, nil
}

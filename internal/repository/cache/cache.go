// Package cache implements the entity store interface over a local sqlite
// database. It is the optimistic side of the sync boundary: every mutation
// lands here first and is queued for push to the remote store by the sync
// reconciler. modernc.org/sqlite keeps the local side pure Go.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"promptdeck/internal/repository/cache/migrations"
)

// Open opens (creating if needed) the cache database at path and brings its
// schema up to date. Use ":memory:" for tests.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	// A single writer avoids SQLITE_BUSY under the reconciler's pull loop.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping cache database: %w", err)
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("cache database ready", "path", path)

	return newStore(db, logger), nil
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txContextKey struct{}

func setTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

func getTx(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txContextKey{}).(*sql.Tx)
	return tx
}

// executor returns the transaction from the context if one is open,
// otherwise the database handle.
func executor(ctx context.Context, db *sql.DB) dbtx {
	if tx := getTx(ctx); tx != nil {
		return tx
	}
	return db
}

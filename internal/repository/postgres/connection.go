package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"promptdeck/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Folders            string
	Prompts            string
	SharedFolders      string
	Subscriptions      string
	QuickAccessFolders string
	QuickAccessItems   string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Folders:            prefix + "folders",
		Prompts:            prefix + "prompts",
		SharedFolders:      prefix + "shared_folders",
		Subscriptions:      prefix + "subscriptions",
		QuickAccessFolders: prefix + "quick_access_folders",
		QuickAccessItems:   prefix + "quick_access_items",
	}
}

// CreateConnectionPool creates a new pgx connection pool and verifies
// connectivity with a ping.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the query executor for the context: the transaction if
// one is present, otherwise the pool. Repositories automatically participate
// in transactions opened by the TransactionManager.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}

package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"promptdeck/internal/domain/repositories"
)

// TransactionManager implements the TransactionManager interface over sqlite.
// Re-entrant: nesting under an open transaction joins it instead of opening a
// second one, so batch-reorder paths compose with service-level transactions.
type TransactionManager struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(db *sql.DB, logger *slog.Logger) repositories.TransactionManager {
	return &TransactionManager{db: db, logger: logger}
}

// ExecTx executes a function within a transaction
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if getTx(ctx) != nil {
		return fn(ctx)
	}

	tx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			tm.logger.Error("rollback failed", "error", err)
		}
	}()

	if err := fn(setTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// isPgDuplicateError checks if error is a unique constraint violation
func isPgDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 = unique_violation
		return pgErr.Code == "23505"
	}
	return false
}

// isPgCheckError checks if error is a check constraint violation
// (the quick-access XOR rule is a CHECK constraint)
func isPgCheckError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23514 = check_violation
		return pgErr.Code == "23514"
	}
	return false
}

// isPgNoRowsError checks if error is a "no rows" error
func isPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// isPgUnavailableError checks if error is a connectivity failure
// (connection exceptions map to the sync layer's retryable class)
func isPgUnavailableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 08 = connection exception
		return len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08"
	}
	return false
}

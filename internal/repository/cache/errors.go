package cache

import (
	"errors"

	sqlite3 "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// isUniqueError checks if error is a unique constraint violation
func isUniqueError(err error) bool {
	var se *sqlite3.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlitelib.SQLITE_CONSTRAINT_UNIQUE || code == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// isCheckError checks if error is a check constraint violation
// (the quick-access XOR rule is a CHECK constraint)
func isCheckError(err error) bool {
	var se *sqlite3.Error
	if errors.As(err, &se) {
		return se.Code() == sqlitelib.SQLITE_CONSTRAINT_CHECK
	}
	return false
}

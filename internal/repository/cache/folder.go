package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"promptdeck/internal/domain"
	"promptdeck/internal/domain/models"
	"promptdeck/internal/domain/repositories"
	"promptdeck/internal/position"
)

// CacheFolderRepository implements the FolderRepository interface over the
// local sqlite cache.
type CacheFolderRepository struct {
	db *sql.DB
	tx repositories.TransactionManager
}

// NewFolderRepository creates a new cache folder repository
func NewFolderRepository(db *sql.DB, tx repositories.TransactionManager) repositories.FolderRepository {
	return &CacheFolderRepository{db: db, tx: tx}
}

// Upsert inserts or replaces a folder by id
func (r *CacheFolderRepository) Upsert(ctx context.Context, folder *models.Folder) error {
	query := `
		INSERT INTO folders (id, user_id, name, position, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			position = excluded.position,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at
	`

	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		folder.ID,
		folder.UserID,
		folder.Name,
		folder.Position,
		folder.CreatedAt.UTC(),
		folder.UpdatedAt.UTC(),
		nullableTime(folder.DeletedAt),
	)
	if err != nil {
		if isUniqueError(err) {
			return fmt.Errorf("folder '%s': %w", folder.Name, domain.ErrConstraint)
		}
		return fmt.Errorf("upsert folder: %w", err)
	}

	return nil
}

// GetByID retrieves a non-deleted folder by ID
func (r *CacheFolderRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	query := `
		SELECT id, user_id, name, position, created_at, updated_at, deleted_at
		FROM folders
		WHERE id = ? AND deleted_at IS NULL
	`

	var folder models.Folder
	err := executor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&folder.ID,
		&folder.UserID,
		&folder.Name,
		&folder.Position,
		&folder.CreatedAt,
		&folder.UpdatedAt,
		&folder.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}

	return &folder, nil
}

// ListByUser lists a user's non-deleted folders ordered by position
func (r *CacheFolderRepository) ListByUser(ctx context.Context, userID string) ([]models.Folder, error) {
	query := `
		SELECT id, user_id, name, position, created_at, updated_at, deleted_at
		FROM folders
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY position ASC
	`

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	var folders []models.Folder
	for rows.Next() {
		var folder models.Folder
		err := rows.Scan(
			&folder.ID,
			&folder.UserID,
			&folder.Name,
			&folder.Position,
			&folder.CreatedAt,
			&folder.UpdatedAt,
			&folder.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	return folders, nil
}

// SoftDelete sets deleted_at on a folder
func (r *CacheFolderRepository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE folders
		SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	now := time.Now().UTC()
	result, err := executor(ctx, r.db).ExecContext(ctx, query, now, now, id)
	if err != nil {
		return fmt.Errorf("soft delete folder: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete folder: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// BatchReorder atomically rewrites positions for exactly the given folder ids
// of one user, in the given order.
func (r *CacheFolderRepository) BatchReorder(ctx context.Context, userID string, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return nil
	}

	keys := position.Renormalize(len(orderedIDs))
	return r.tx.ExecTx(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		for i, id := range orderedIDs {
			result, err := executor(ctx, r.db).ExecContext(ctx, `
				UPDATE folders SET position = ?, updated_at = ?
				WHERE id = ? AND user_id = ? AND deleted_at IS NULL
			`, keys[i], now, id, userID)
			if err != nil {
				return fmt.Errorf("batch reorder folders: %w", err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("batch reorder folders: %w", err)
			}
			if affected == 0 {
				return fmt.Errorf("folder order changed concurrently: %w", domain.ErrConflict)
			}
		}
		return nil
	})
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

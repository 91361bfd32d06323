package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"promptdeck/internal/domain"
	"promptdeck/internal/domain/models"
	"promptdeck/internal/domain/repositories"
	"promptdeck/internal/position"
)

// PostgresFolderRepository implements the FolderRepository interface
type PostgresFolderRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(config *RepositoryConfig) repositories.FolderRepository {
	return &PostgresFolderRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Upsert inserts or replaces a folder by id
func (r *PostgresFolderRepository) Upsert(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, name, position, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			position = EXCLUDED.position,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
		RETURNING created_at, updated_at
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		folder.ID,
		folder.UserID,
		folder.Name,
		folder.Position,
		folder.CreatedAt,
		folder.UpdatedAt,
		folder.DeletedAt,
	).Scan(&folder.CreatedAt, &folder.UpdatedAt)

	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("folder '%s': %w", folder.Name, domain.ErrConstraint)
		}
		return fmt.Errorf("upsert folder: %w", err)
	}

	return nil
}

// GetByID retrieves a non-deleted folder by ID
func (r *PostgresFolderRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, name, position, created_at, updated_at, deleted_at
		FROM %s
		WHERE id = $1 AND deleted_at IS NULL
	`, r.tables.Folders)

	var folder models.Folder
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&folder.ID,
		&folder.UserID,
		&folder.Name,
		&folder.Position,
		&folder.CreatedAt,
		&folder.UpdatedAt,
		&folder.DeletedAt,
	)

	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}

	return &folder, nil
}

// ListByUser lists a user's non-deleted folders ordered by position
func (r *PostgresFolderRepository) ListByUser(ctx context.Context, userID string) ([]models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, name, position, created_at, updated_at, deleted_at
		FROM %s
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY position ASC
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
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
func (r *PostgresFolderRepository) SoftDelete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft delete folder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// BatchReorder atomically rewrites positions for exactly the given folder ids
// of one user, in the given order. A single UPDATE keeps the sibling list
// consistent under concurrent moves; a shortfall in matched rows means the
// list changed underneath the caller.
func (r *PostgresFolderRepository) BatchReorder(ctx context.Context, userID string, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE %s AS f
		SET position = v.pos, updated_at = now()
		FROM (SELECT unnest($2::text[]) AS id, unnest($3::bigint[]) AS pos) v
		WHERE f.id = v.id AND f.user_id = $1 AND f.deleted_at IS NULL
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, userID, orderedIDs, position.Renormalize(len(orderedIDs)))
	if err != nil {
		return fmt.Errorf("batch reorder folders: %w", err)
	}

	if int(result.RowsAffected()) != len(orderedIDs) {
		return fmt.Errorf("folder order changed concurrently: %w", domain.ErrConflict)
	}

	return nil
}

package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"promptdeck/internal/domain"
	"promptdeck/internal/domain/models"
	"promptdeck/internal/domain/repositories"
	"promptdeck/internal/position"
)

// CacheQuickAccessRepository implements the QuickAccessRepository interface
// over the local sqlite cache.
type CacheQuickAccessRepository struct {
	db *sql.DB
	tx repositories.TransactionManager
}

// NewQuickAccessRepository creates a new cache quick-access repository
func NewQuickAccessRepository(db *sql.DB, tx repositories.TransactionManager) repositories.QuickAccessRepository {
	return &CacheQuickAccessRepository{db: db, tx: tx}
}

// UpsertFolder inserts or replaces a quick-access folder by id
func (r *CacheQuickAccessRepository) UpsertFolder(ctx context.Context, folder *models.QuickAccessFolder) error {
	query := `
		INSERT INTO quick_access_folders (id, user_id, name, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			position = excluded.position,
			updated_at = excluded.updated_at
	`

	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		folder.ID,
		folder.UserID,
		folder.Name,
		folder.Position,
		folder.CreatedAt.UTC(),
		folder.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert quick access folder: %w", err)
	}

	return nil
}

// GetFolder retrieves a quick-access folder by ID
func (r *CacheQuickAccessRepository) GetFolder(ctx context.Context, id string) (*models.QuickAccessFolder, error) {
	query := `
		SELECT id, user_id, name, position, created_at, updated_at
		FROM quick_access_folders WHERE id = ?
	`

	var folder models.QuickAccessFolder
	err := executor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&folder.ID,
		&folder.UserID,
		&folder.Name,
		&folder.Position,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("quick access folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get quick access folder: %w", err)
	}

	return &folder, nil
}

// ListFolders lists a user's quick-access folders ordered by position
func (r *CacheQuickAccessRepository) ListFolders(ctx context.Context, userID string) ([]models.QuickAccessFolder, error) {
	query := `
		SELECT id, user_id, name, position, created_at, updated_at
		FROM quick_access_folders WHERE user_id = ? ORDER BY position ASC
	`

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list quick access folders: %w", err)
	}
	defer rows.Close()

	var folders []models.QuickAccessFolder
	for rows.Next() {
		var folder models.QuickAccessFolder
		err := rows.Scan(
			&folder.ID,
			&folder.UserID,
			&folder.Name,
			&folder.Position,
			&folder.CreatedAt,
			&folder.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan quick access folder: %w", err)
		}
		folders = append(folders, folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quick access folders: %w", err)
	}

	return folders, nil
}

// DeleteFolder hard-deletes a quick-access folder (items cascade via FK)
func (r *CacheQuickAccessRepository) DeleteFolder(ctx context.Context, id string) error {
	result, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM quick_access_folders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete quick access folder: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete quick access folder: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("quick access folder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// BatchReorderFolders atomically rewrites positions for a user's quick-access folders
func (r *CacheQuickAccessRepository) BatchReorderFolders(ctx context.Context, userID string, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return nil
	}

	keys := position.Renormalize(len(orderedIDs))
	return r.tx.ExecTx(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		for i, id := range orderedIDs {
			result, err := executor(ctx, r.db).ExecContext(ctx, `
				UPDATE quick_access_folders SET position = ?, updated_at = ?
				WHERE id = ? AND user_id = ?
			`, keys[i], now, id, userID)
			if err != nil {
				return fmt.Errorf("batch reorder quick access folders: %w", err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("batch reorder quick access folders: %w", err)
			}
			if affected == 0 {
				return fmt.Errorf("quick access folder order changed concurrently: %w", domain.ErrConflict)
			}
		}
		return nil
	})
}

const quickAccessItemColumns = `id, user_id, quick_access_folder_id, position,
		owned_prompt_id, subscribed_prompt_id, created_at, updated_at`

func scanQuickAccessItem(row interface{ Scan(...any) error }, i *models.QuickAccessItem) error {
	return row.Scan(
		&i.ID,
		&i.UserID,
		&i.QuickAccessFolderID,
		&i.Position,
		&i.OwnedPromptID,
		&i.SubscribedPromptID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
}

// UpsertItem inserts or replaces a quick-access item. The XOR rule is checked
// before the write; the table CHECK constraint is the backstop.
func (r *CacheQuickAccessRepository) UpsertItem(ctx context.Context, item *models.QuickAccessItem) error {
	if _, err := item.Ref(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO quick_access_items (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			quick_access_folder_id = excluded.quick_access_folder_id,
			position = excluded.position,
			owned_prompt_id = excluded.owned_prompt_id,
			subscribed_prompt_id = excluded.subscribed_prompt_id,
			updated_at = excluded.updated_at
	`, quickAccessItemColumns)

	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		item.ID,
		item.UserID,
		item.QuickAccessFolderID,
		item.Position,
		item.OwnedPromptID,
		item.SubscribedPromptID,
		item.CreatedAt.UTC(),
		item.UpdatedAt.UTC(),
	)
	if err != nil {
		if isCheckError(err) {
			return fmt.Errorf("quick access item %s: %w", item.ID, domain.ErrConstraint)
		}
		return fmt.Errorf("upsert quick access item: %w", err)
	}

	return nil
}

// GetItem retrieves a quick-access item by ID
func (r *CacheQuickAccessRepository) GetItem(ctx context.Context, id string) (*models.QuickAccessItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM quick_access_items WHERE id = ?`, quickAccessItemColumns)

	var item models.QuickAccessItem
	if err := scanQuickAccessItem(executor(ctx, r.db).QueryRowContext(ctx, query, id), &item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("quick access item %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get quick access item: %w", err)
	}

	return &item, nil
}

// ListItems lists a quick-access folder's items ordered by position
func (r *CacheQuickAccessRepository) ListItems(ctx context.Context, quickAccessFolderID string) ([]models.QuickAccessItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM quick_access_items WHERE quick_access_folder_id = ? ORDER BY position ASC
	`, quickAccessItemColumns)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, quickAccessFolderID)
	if err != nil {
		return nil, fmt.Errorf("list quick access items: %w", err)
	}
	defer rows.Close()

	var items []models.QuickAccessItem
	for rows.Next() {
		var item models.QuickAccessItem
		if err := scanQuickAccessItem(rows, &item); err != nil {
			return nil, fmt.Errorf("scan quick access item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quick access items: %w", err)
	}

	return items, nil
}

// DeleteItem hard-deletes a quick-access item
func (r *CacheQuickAccessRepository) DeleteItem(ctx context.Context, id string) error {
	result, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM quick_access_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete quick access item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete quick access item: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("quick access item %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// BatchReorderItems atomically rewrites positions for a quick-access folder's items
func (r *CacheQuickAccessRepository) BatchReorderItems(ctx context.Context, quickAccessFolderID string, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return nil
	}

	keys := position.Renormalize(len(orderedIDs))
	return r.tx.ExecTx(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		for i, id := range orderedIDs {
			result, err := executor(ctx, r.db).ExecContext(ctx, `
				UPDATE quick_access_items SET quick_access_folder_id = ?, position = ?, updated_at = ?
				WHERE id = ?
			`, quickAccessFolderID, keys[i], now, id)
			if err != nil {
				return fmt.Errorf("batch reorder quick access items: %w", err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("batch reorder quick access items: %w", err)
			}
			if affected == 0 {
				return fmt.Errorf("quick access item order changed concurrently: %w", domain.ErrConflict)
			}
		}
		return nil
	})
}

// DeleteByPromptID removes every item referencing the prompt through either
// column, across all users
func (r *CacheQuickAccessRepository) DeleteByPromptID(ctx context.Context, promptID string) (int, error) {
	result, err := executor(ctx, r.db).ExecContext(ctx, `
		DELETE FROM quick_access_items WHERE owned_prompt_id = ? OR subscribed_prompt_id = ?
	`, promptID, promptID)
	if err != nil {
		return 0, fmt.Errorf("delete quick access items by prompt: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete quick access items by prompt: %w", err)
	}

	return int(affected), nil
}

// DeleteSubscribedRefs removes one user's items whose subscribed reference is
// among the given prompt ids
func (r *CacheQuickAccessRepository) DeleteSubscribedRefs(ctx context.Context, userID string, promptIDs []string) (int, error) {
	if len(promptIDs) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(promptIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(promptIDs)+1)
	args = append(args, userID)
	for _, id := range promptIDs {
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		DELETE FROM quick_access_items
		WHERE user_id = ? AND subscribed_prompt_id IN (%s)
	`, placeholders)

	result, err := executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete subscribed quick access items: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete subscribed quick access items: %w", err)
	}

	return int(affected), nil
}

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

// PostgresQuickAccessRepository implements the QuickAccessRepository interface
type PostgresQuickAccessRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewQuickAccessRepository creates a new quick-access repository
func NewQuickAccessRepository(config *RepositoryConfig) repositories.QuickAccessRepository {
	return &PostgresQuickAccessRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// UpsertFolder inserts or replaces a quick-access folder by id
func (r *PostgresQuickAccessRepository) UpsertFolder(ctx context.Context, folder *models.QuickAccessFolder) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, name, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			position = EXCLUDED.position,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`, r.tables.QuickAccessFolders)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		folder.ID,
		folder.UserID,
		folder.Name,
		folder.Position,
		folder.CreatedAt,
		folder.UpdatedAt,
	).Scan(&folder.CreatedAt, &folder.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upsert quick access folder: %w", err)
	}

	return nil
}

// GetFolder retrieves a quick-access folder by ID
func (r *PostgresQuickAccessRepository) GetFolder(ctx context.Context, id string) (*models.QuickAccessFolder, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, name, position, created_at, updated_at
		FROM %s WHERE id = $1
	`, r.tables.QuickAccessFolders)

	var folder models.QuickAccessFolder
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&folder.ID,
		&folder.UserID,
		&folder.Name,
		&folder.Position,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	)
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("quick access folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get quick access folder: %w", err)
	}

	return &folder, nil
}

// ListFolders lists a user's quick-access folders ordered by position
func (r *PostgresQuickAccessRepository) ListFolders(ctx context.Context, userID string) ([]models.QuickAccessFolder, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, name, position, created_at, updated_at
		FROM %s WHERE user_id = $1 ORDER BY position ASC
	`, r.tables.QuickAccessFolders)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
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
func (r *PostgresQuickAccessRepository) DeleteFolder(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.QuickAccessFolders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete quick access folder: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("quick access folder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// BatchReorderFolders atomically rewrites positions for a user's quick-access folders
func (r *PostgresQuickAccessRepository) BatchReorderFolders(ctx context.Context, userID string, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE %s AS f
		SET position = v.pos, updated_at = now()
		FROM (SELECT unnest($2::text[]) AS id, unnest($3::bigint[]) AS pos) v
		WHERE f.id = v.id AND f.user_id = $1
	`, r.tables.QuickAccessFolders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, userID, orderedIDs, position.Renormalize(len(orderedIDs)))
	if err != nil {
		return fmt.Errorf("batch reorder quick access folders: %w", err)
	}
	if int(result.RowsAffected()) != len(orderedIDs) {
		return fmt.Errorf("quick access folder order changed concurrently: %w", domain.ErrConflict)
	}

	return nil
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
// here before the write; the table CHECK constraint is the backstop.
func (r *PostgresQuickAccessRepository) UpsertItem(ctx context.Context, item *models.QuickAccessItem) error {
	if _, err := item.Ref(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			quick_access_folder_id = EXCLUDED.quick_access_folder_id,
			position = EXCLUDED.position,
			owned_prompt_id = EXCLUDED.owned_prompt_id,
			subscribed_prompt_id = EXCLUDED.subscribed_prompt_id,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`, r.tables.QuickAccessItems, quickAccessItemColumns)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		item.ID,
		item.UserID,
		item.QuickAccessFolderID,
		item.Position,
		item.OwnedPromptID,
		item.SubscribedPromptID,
		item.CreatedAt,
		item.UpdatedAt,
	).Scan(&item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		if isPgCheckError(err) {
			return fmt.Errorf("quick access item %s: %w", item.ID, domain.ErrConstraint)
		}
		return fmt.Errorf("upsert quick access item: %w", err)
	}

	return nil
}

// GetItem retrieves a quick-access item by ID
func (r *PostgresQuickAccessRepository) GetItem(ctx context.Context, id string) (*models.QuickAccessItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE id = $1
	`, quickAccessItemColumns, r.tables.QuickAccessItems)

	var item models.QuickAccessItem
	executor := GetExecutor(ctx, r.pool)
	if err := scanQuickAccessItem(executor.QueryRow(ctx, query, id), &item); err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("quick access item %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get quick access item: %w", err)
	}

	return &item, nil
}

// ListItems lists a quick-access folder's items ordered by position
func (r *PostgresQuickAccessRepository) ListItems(ctx context.Context, quickAccessFolderID string) ([]models.QuickAccessItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE quick_access_folder_id = $1 ORDER BY position ASC
	`, quickAccessItemColumns, r.tables.QuickAccessItems)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, quickAccessFolderID)
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
func (r *PostgresQuickAccessRepository) DeleteItem(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.QuickAccessItems)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete quick access item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("quick access item %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// BatchReorderItems atomically rewrites positions for a quick-access folder's items
func (r *PostgresQuickAccessRepository) BatchReorderItems(ctx context.Context, quickAccessFolderID string, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE %s AS i
		SET quick_access_folder_id = $1, position = v.pos, updated_at = now()
		FROM (SELECT unnest($2::text[]) AS id, unnest($3::bigint[]) AS pos) v
		WHERE i.id = v.id
	`, r.tables.QuickAccessItems)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, quickAccessFolderID, orderedIDs, position.Renormalize(len(orderedIDs)))
	if err != nil {
		return fmt.Errorf("batch reorder quick access items: %w", err)
	}
	if int(result.RowsAffected()) != len(orderedIDs) {
		return fmt.Errorf("quick access item order changed concurrently: %w", domain.ErrConflict)
	}

	return nil
}

// DeleteByPromptID removes every item referencing the prompt through either
// column, across all users. The partial indexes on the two nullable columns
// keep this a pair of index scans.
func (r *PostgresQuickAccessRepository) DeleteByPromptID(ctx context.Context, promptID string) (int, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE owned_prompt_id = $1 OR subscribed_prompt_id = $1
	`, r.tables.QuickAccessItems)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, promptID)
	if err != nil {
		return 0, fmt.Errorf("delete quick access items by prompt: %w", err)
	}

	return int(result.RowsAffected()), nil
}

// DeleteSubscribedRefs removes one user's items whose subscribed reference is
// among the given prompt ids
func (r *PostgresQuickAccessRepository) DeleteSubscribedRefs(ctx context.Context, userID string, promptIDs []string) (int, error) {
	if len(promptIDs) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		DELETE FROM %s WHERE user_id = $1 AND subscribed_prompt_id = ANY($2::text[])
	`, r.tables.QuickAccessItems)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, userID, promptIDs)
	if err != nil {
		return 0, fmt.Errorf("delete subscribed quick access items: %w", err)
	}

	return int(result.RowsAffected()), nil
}

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

// CachePromptRepository implements the PromptRepository interface over the
// local sqlite cache.
type CachePromptRepository struct {
	db *sql.DB
	tx repositories.TransactionManager
}

// NewPromptRepository creates a new cache prompt repository
func NewPromptRepository(db *sql.DB, tx repositories.TransactionManager) repositories.PromptRepository {
	return &CachePromptRepository{db: db, tx: tx}
}

const promptColumns = `id, folder_id, user_id, title, text, position,
		is_imported_copy, is_unedited_copy, use_count, last_used_at,
		created_at, updated_at, deleted_at`

func scanPrompt(row interface{ Scan(...any) error }, p *models.Prompt) error {
	return row.Scan(
		&p.ID,
		&p.FolderID,
		&p.UserID,
		&p.Title,
		&p.Text,
		&p.Position,
		&p.IsImportedCopy,
		&p.IsUneditedCopy,
		&p.UseCount,
		&p.LastUsedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.DeletedAt,
	)
}

// Upsert inserts or replaces a prompt by id
func (r *CachePromptRepository) Upsert(ctx context.Context, prompt *models.Prompt) error {
	query := fmt.Sprintf(`
		INSERT INTO prompts (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			folder_id = excluded.folder_id,
			title = excluded.title,
			text = excluded.text,
			position = excluded.position,
			is_imported_copy = excluded.is_imported_copy,
			is_unedited_copy = excluded.is_unedited_copy,
			use_count = excluded.use_count,
			last_used_at = excluded.last_used_at,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at
	`, promptColumns)

	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		prompt.ID,
		prompt.FolderID,
		prompt.UserID,
		prompt.Title,
		prompt.Text,
		prompt.Position,
		prompt.IsImportedCopy,
		prompt.IsUneditedCopy,
		prompt.UseCount,
		nullableTime(prompt.LastUsedAt),
		prompt.CreatedAt.UTC(),
		prompt.UpdatedAt.UTC(),
		nullableTime(prompt.DeletedAt),
	)
	if err != nil {
		if isUniqueError(err) {
			return fmt.Errorf("prompt '%s': %w", prompt.Title, domain.ErrConstraint)
		}
		return fmt.Errorf("upsert prompt: %w", err)
	}

	return nil
}

// GetByID retrieves a non-deleted prompt by ID
func (r *CachePromptRepository) GetByID(ctx context.Context, id string) (*models.Prompt, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM prompts
		WHERE id = ? AND deleted_at IS NULL
	`, promptColumns)

	var prompt models.Prompt
	if err := scanPrompt(executor(ctx, r.db).QueryRowContext(ctx, query, id), &prompt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("prompt %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get prompt: %w", err)
	}

	return &prompt, nil
}

// ListByFolder lists a folder's non-deleted prompts ordered by position
func (r *CachePromptRepository) ListByFolder(ctx context.Context, folderID string) ([]models.Prompt, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM prompts
		WHERE folder_id = ? AND deleted_at IS NULL
		ORDER BY position ASC
	`, promptColumns)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()

	var prompts []models.Prompt
	for rows.Next() {
		var prompt models.Prompt
		if err := scanPrompt(rows, &prompt); err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		prompts = append(prompts, prompt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompts: %w", err)
	}

	return prompts, nil
}

// SoftDelete sets deleted_at on a prompt
func (r *CachePromptRepository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE prompts
		SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	now := time.Now().UTC()
	result, err := executor(ctx, r.db).ExecContext(ctx, query, now, now, id)
	if err != nil {
		return fmt.Errorf("soft delete prompt: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete prompt: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("prompt %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// BatchReorder atomically rewrites positions for exactly the given prompt ids
// within one folder. Prompts arriving from another folder are moved in the
// same transaction, which makes a cross-folder move atomic from the caller's
// perspective.
func (r *CachePromptRepository) BatchReorder(ctx context.Context, folderID string, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return nil
	}

	keys := position.Renormalize(len(orderedIDs))
	return r.tx.ExecTx(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		for i, id := range orderedIDs {
			result, err := executor(ctx, r.db).ExecContext(ctx, `
				UPDATE prompts SET folder_id = ?, position = ?, updated_at = ?
				WHERE id = ? AND deleted_at IS NULL
			`, folderID, keys[i], now, id)
			if err != nil {
				return fmt.Errorf("batch reorder prompts: %w", err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("batch reorder prompts: %w", err)
			}
			if affected == 0 {
				return fmt.Errorf("prompt order changed concurrently: %w", domain.ErrConflict)
			}
		}
		return nil
	})
}

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

// PostgresPromptRepository implements the PromptRepository interface
type PostgresPromptRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewPromptRepository creates a new prompt repository
func NewPromptRepository(config *RepositoryConfig) repositories.PromptRepository {
	return &PostgresPromptRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
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
func (r *PostgresPromptRepository) Upsert(ctx context.Context, prompt *models.Prompt) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			folder_id = EXCLUDED.folder_id,
			title = EXCLUDED.title,
			text = EXCLUDED.text,
			position = EXCLUDED.position,
			is_imported_copy = EXCLUDED.is_imported_copy,
			is_unedited_copy = EXCLUDED.is_unedited_copy,
			use_count = EXCLUDED.use_count,
			last_used_at = EXCLUDED.last_used_at,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
		RETURNING created_at, updated_at
	`, r.tables.Prompts, promptColumns)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		prompt.ID,
		prompt.FolderID,
		prompt.UserID,
		prompt.Title,
		prompt.Text,
		prompt.Position,
		prompt.IsImportedCopy,
		prompt.IsUneditedCopy,
		prompt.UseCount,
		prompt.LastUsedAt,
		prompt.CreatedAt,
		prompt.UpdatedAt,
		prompt.DeletedAt,
	).Scan(&prompt.CreatedAt, &prompt.UpdatedAt)

	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("prompt '%s': %w", prompt.Title, domain.ErrConstraint)
		}
		return fmt.Errorf("upsert prompt: %w", err)
	}

	return nil
}

// GetByID retrieves a non-deleted prompt by ID
func (r *PostgresPromptRepository) GetByID(ctx context.Context, id string) (*models.Prompt, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND deleted_at IS NULL
	`, promptColumns, r.tables.Prompts)

	var prompt models.Prompt
	executor := GetExecutor(ctx, r.pool)
	if err := scanPrompt(executor.QueryRow(ctx, query, id), &prompt); err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("prompt %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get prompt: %w", err)
	}

	return &prompt, nil
}

// ListByFolder lists a folder's non-deleted prompts ordered by position
func (r *PostgresPromptRepository) ListByFolder(ctx context.Context, folderID string) ([]models.Prompt, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE folder_id = $1 AND deleted_at IS NULL
		ORDER BY position ASC
	`, promptColumns, r.tables.Prompts)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, folderID)
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
func (r *PostgresPromptRepository) SoftDelete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, r.tables.Prompts)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft delete prompt: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("prompt %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// BatchReorder atomically rewrites positions for exactly the given prompt ids
// within one folder. Prompts arriving from another folder are moved in the
// same statement, which makes a cross-folder move a single atomic write.
func (r *PostgresPromptRepository) BatchReorder(ctx context.Context, folderID string, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE %s AS p
		SET folder_id = $1, position = v.pos, updated_at = now()
		FROM (SELECT unnest($2::text[]) AS id, unnest($3::bigint[]) AS pos) v
		WHERE p.id = v.id AND p.deleted_at IS NULL
	`, r.tables.Prompts)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, folderID, orderedIDs, position.Renormalize(len(orderedIDs)))
	if err != nil {
		return fmt.Errorf("batch reorder prompts: %w", err)
	}

	if int(result.RowsAffected()) != len(orderedIDs) {
		return fmt.Errorf("prompt order changed concurrently: %w", domain.ErrConflict)
	}

	return nil
}

package repositories

import (
	"context"

	"promptdeck/internal/domain/models"
)

// PromptRepository defines data access for prompts.
type PromptRepository interface {
	Upsert(ctx context.Context, prompt *models.Prompt) error

	// GetByID retrieves a non-deleted prompt.
	GetByID(ctx context.Context, id string) (*models.Prompt, error)

	// ListByFolder lists a folder's non-deleted prompts ordered by position.
	ListByFolder(ctx context.Context, folderID string) ([]models.Prompt, error)

	// SoftDelete sets deleted_at.
	SoftDelete(ctx context.Context, id string) error

	// BatchReorder atomically rewrites positions for exactly the given
	// prompt ids within one folder, in the given order. Prompts not yet in
	// the folder are moved into it (cross-folder move path).
	BatchReorder(ctx context.Context, folderID string, orderedIDs []string) error
}

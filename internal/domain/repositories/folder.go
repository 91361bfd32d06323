package repositories

import (
	"context"

	"promptdeck/internal/domain/models"
)

// FolderRepository defines data access for folders. Get excludes
// soft-deleted rows; Upsert is idempotent by id and bumps updated_at.
type FolderRepository interface {
	// Upsert inserts or replaces a folder by id.
	Upsert(ctx context.Context, folder *models.Folder) error

	// GetByID retrieves a non-deleted folder.
	GetByID(ctx context.Context, id string) (*models.Folder, error)

	// ListByUser lists a user's non-deleted folders ordered by position.
	ListByUser(ctx context.Context, userID string) ([]models.Folder, error)

	// SoftDelete sets deleted_at; the row is not physically removed.
	SoftDelete(ctx context.Context, id string) error

	// BatchReorder atomically rewrites positions for exactly the given
	// folder ids of one user, in the given order.
	BatchReorder(ctx context.Context, userID string, orderedIDs []string) error
}

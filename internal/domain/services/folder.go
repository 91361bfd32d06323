package services

import (
	"context"

	"promptdeck/internal/domain/models"
)

// FolderService handles folder business logic
type FolderService interface {
	// CreateFolder creates a folder positioned after the given sibling
	// (nil = head of the list).
	CreateFolder(ctx context.Context, userID string, req *models.CreateFolderRequest) (*models.Folder, error)

	// GetFolder retrieves one of the user's folders.
	GetFolder(ctx context.Context, userID, id string) (*models.Folder, error)

	// ListFolders lists the user's folders ordered by position.
	ListFolders(ctx context.Context, userID string) ([]models.Folder, error)

	// UpdateFolder renames a folder.
	UpdateFolder(ctx context.Context, userID, id string, req *models.UpdateFolderRequest) (*models.Folder, error)

	// DeleteFolder soft-deletes a folder and the prompts it contains.
	// Quick-access items pointing at those prompts are removed through the
	// change notification cascade.
	DeleteFolder(ctx context.Context, userID, id string) error

	// ReorderFolders rewrites the user's folder order atomically from the
	// full intended id sequence.
	ReorderFolders(ctx context.Context, userID string, req *models.ReorderRequest) error
}

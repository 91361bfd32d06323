package services

import (
	"context"

	"promptdeck/internal/domain/models"
)

// QuickAccessLinker handles quick-access folders and pinned prompt
// references. Every reference is discriminated (owned or subscribed) and
// validated for readability before it is stored.
type QuickAccessLinker interface {
	CreateFolder(ctx context.Context, userID string, req *models.CreateQuickAccessFolderRequest) (*models.QuickAccessFolder, error)
	ListFolders(ctx context.Context, userID string) ([]models.QuickAccessFolder, error)
	DeleteFolder(ctx context.Context, userID, id string) error
	ReorderFolders(ctx context.Context, userID string, req *models.ReorderRequest) error

	// AddItem pins a prompt. The reference must be readable by the user:
	// an owned prompt they own, or a subscribed prompt reachable through one
	// of their subscriptions. Otherwise ErrInvalidReference.
	AddItem(ctx context.Context, userID string, req *models.AddQuickAccessItemRequest) (*models.QuickAccessItem, error)
	ListItems(ctx context.Context, userID, quickAccessFolderID string) ([]models.QuickAccessItem, error)
	RemoveItem(ctx context.Context, userID, id string) error
	ReorderItems(ctx context.Context, userID, quickAccessFolderID string, req *models.ReorderRequest) error

	// ReconcileOnPromptDeleted removes every item referencing the deleted
	// prompt, across all users and both reference kinds.
	ReconcileOnPromptDeleted(ctx context.Context, promptID string) error

	// ReconcileOnUnsubscribe removes the subscriber's items whose subscribed
	// reference points into the given shared folder.
	ReconcileOnUnsubscribe(ctx context.Context, subscriberID, sharedFolderID string) error
}

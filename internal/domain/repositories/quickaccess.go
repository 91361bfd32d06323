package repositories

import (
	"context"

	"promptdeck/internal/domain/models"
)

// QuickAccessRepository defines data access for quick-access folders and
// items. Every item write re-checks the discriminated reference rule: exactly
// one of the two prompt columns set, otherwise ErrConstraint.
type QuickAccessRepository interface {
	UpsertFolder(ctx context.Context, folder *models.QuickAccessFolder) error
	GetFolder(ctx context.Context, id string) (*models.QuickAccessFolder, error)
	ListFolders(ctx context.Context, userID string) ([]models.QuickAccessFolder, error)
	DeleteFolder(ctx context.Context, id string) error
	BatchReorderFolders(ctx context.Context, userID string, orderedIDs []string) error

	UpsertItem(ctx context.Context, item *models.QuickAccessItem) error
	GetItem(ctx context.Context, id string) (*models.QuickAccessItem, error)
	ListItems(ctx context.Context, quickAccessFolderID string) ([]models.QuickAccessItem, error)
	DeleteItem(ctx context.Context, id string) error
	BatchReorderItems(ctx context.Context, quickAccessFolderID string, orderedIDs []string) error

	// DeleteByPromptID removes every item referencing the prompt through
	// either column, across all users. Cascade path for prompt deletion.
	DeleteByPromptID(ctx context.Context, promptID string) (int, error)

	// DeleteSubscribedRefs removes one user's items whose subscribed
	// reference is among the given prompt ids. Cascade path for unsubscribe.
	DeleteSubscribedRefs(ctx context.Context, userID string, promptIDs []string) (int, error)
}

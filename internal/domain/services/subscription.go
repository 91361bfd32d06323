package services

import (
	"context"

	"promptdeck/internal/domain/models"
)

// SubscriptionResolver handles folder sharing and share-code subscriptions.
type SubscriptionResolver interface {
	// ShareFolder creates the single active share for one of the owner's
	// folders. If an active share already exists it is returned unchanged;
	// re-sharing a revoked folder mints a fresh code.
	ShareFolder(ctx context.Context, ownerID, folderID string, req *models.ShareFolderRequest) (*models.SharedFolder, error)

	// RevokeShare deactivates a folder's active share. The code stops
	// resolving; existing subscriptions are not revoked.
	RevokeShare(ctx context.Context, ownerID, folderID string) error

	// Subscribe resolves a share code or share link to an active share and
	// subscribes the user. Fails with ErrShareNotFound, ErrSelfSubscription
	// or ErrAlreadySubscribed.
	Subscribe(ctx context.Context, subscriberID string, req *models.SubscribeRequest) (*models.SubscriptionView, error)

	// Unsubscribe removes a subscription and the subscriber's quick-access
	// items that referenced prompts of the shared folder.
	Unsubscribe(ctx context.Context, subscriberID, subscriptionID string) error

	// ListSubscriptions returns the subscriber's materialized views, prompts
	// read through live at call time.
	ListSubscriptions(ctx context.Context, subscriberID string) ([]models.SubscriptionView, error)

	// SubscriptionPrompts returns the live prompt list of one subscription.
	SubscriptionPrompts(ctx context.Context, subscriberID, subscriptionID string) ([]models.Prompt, error)
}

// IdentityProvider resolves user identity attributes held by the external
// auth system. Display surfaces degrade gracefully when lookups fail.
type IdentityProvider interface {
	EmailByID(ctx context.Context, userID string) (string, error)
}

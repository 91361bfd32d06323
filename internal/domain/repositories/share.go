package repositories

import (
	"context"

	"promptdeck/internal/domain/models"
)

// ShareRepository defines data access for shared folders.
type ShareRepository interface {
	Upsert(ctx context.Context, share *models.SharedFolder) error

	GetByID(ctx context.Context, id string) (*models.SharedFolder, error)

	// GetActiveByCode resolves an active share by its code. Inactive shares
	// do not resolve (their codes may be reused).
	GetActiveByCode(ctx context.Context, code string) (*models.SharedFolder, error)

	// GetActiveByFolder returns the single active share of a folder, if any.
	GetActiveByFolder(ctx context.Context, folderID string) (*models.SharedFolder, error)
}

// SubscriptionRepository defines data access for subscriptions.
// Subscriptions are hard-deleted on unsubscribe.
type SubscriptionRepository interface {
	// Create inserts a subscription. A duplicate (subscriber, shared folder)
	// pair fails with ErrAlreadySubscribed; the unique index is the backstop
	// against concurrent duplicate attempts.
	Create(ctx context.Context, sub *models.Subscription) error

	GetByID(ctx context.Context, id string) (*models.Subscription, error)

	GetBySubscriberAndShare(ctx context.Context, subscriberID, sharedFolderID string) (*models.Subscription, error)

	ListBySubscriber(ctx context.Context, subscriberID string) ([]models.Subscription, error)

	Delete(ctx context.Context, id string) error
}

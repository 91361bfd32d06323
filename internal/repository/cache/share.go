package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"promptdeck/internal/domain"
	"promptdeck/internal/domain/models"
	"promptdeck/internal/domain/repositories"
)

// CacheShareRepository implements the ShareRepository interface over the
// local sqlite cache.
type CacheShareRepository struct {
	db *sql.DB
}

// NewShareRepository creates a new cache shared-folder repository
func NewShareRepository(db *sql.DB) repositories.ShareRepository {
	return &CacheShareRepository{db: db}
}

// Upsert inserts or replaces a shared folder by id
func (r *CacheShareRepository) Upsert(ctx context.Context, share *models.SharedFolder) error {
	query := `
		INSERT INTO shared_folders (id, folder_id, owner_id, share_code, is_active, source_label, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			share_code = excluded.share_code,
			is_active = excluded.is_active,
			source_label = excluded.source_label,
			updated_at = excluded.updated_at
	`

	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		share.ID,
		share.FolderID,
		share.OwnerID,
		share.ShareCode,
		share.IsActive,
		share.SourceLabel,
		share.CreatedAt.UTC(),
		share.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueError(err) {
			return fmt.Errorf("share code or folder already in use: %w", domain.ErrConstraint)
		}
		return fmt.Errorf("upsert shared folder: %w", err)
	}

	return nil
}

const sharedFolderColumns = `id, folder_id, owner_id, share_code, is_active, source_label, created_at, updated_at`

func (r *CacheShareRepository) getOne(ctx context.Context, where string, args ...any) (*models.SharedFolder, error) {
	query := fmt.Sprintf(`SELECT %s FROM shared_folders WHERE %s`, sharedFolderColumns, where)

	var share models.SharedFolder
	err := executor(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(
		&share.ID,
		&share.FolderID,
		&share.OwnerID,
		&share.ShareCode,
		&share.IsActive,
		&share.SourceLabel,
		&share.CreatedAt,
		&share.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get shared folder: %w", err)
	}

	return &share, nil
}

// GetByID retrieves a shared folder by ID (active or not)
func (r *CacheShareRepository) GetByID(ctx context.Context, id string) (*models.SharedFolder, error) {
	share, err := r.getOne(ctx, "id = ?", id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("shared folder %s: %w", id, domain.ErrNotFound)
	}
	return share, err
}

// GetActiveByCode resolves an active share by its code
func (r *CacheShareRepository) GetActiveByCode(ctx context.Context, code string) (*models.SharedFolder, error) {
	share, err := r.getOne(ctx, "share_code = ? AND is_active", code)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("share code %s: %w", code, domain.ErrShareNotFound)
	}
	return share, err
}

// GetActiveByFolder returns the single active share of a folder, if any
func (r *CacheShareRepository) GetActiveByFolder(ctx context.Context, folderID string) (*models.SharedFolder, error) {
	share, err := r.getOne(ctx, "folder_id = ? AND is_active", folderID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("no active share for folder %s: %w", folderID, domain.ErrNotFound)
	}
	return share, err
}

// CacheSubscriptionRepository implements the SubscriptionRepository interface
// over the local sqlite cache.
type CacheSubscriptionRepository struct {
	db *sql.DB
}

// NewSubscriptionRepository creates a new cache subscription repository
func NewSubscriptionRepository(db *sql.DB) repositories.SubscriptionRepository {
	return &CacheSubscriptionRepository{db: db}
}

// Create inserts a subscription. The unique (subscriber_id, shared_folder_id)
// index turns a duplicate into ErrAlreadySubscribed instead of a second row.
func (r *CacheSubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, subscriber_id, shared_folder_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		sub.ID,
		sub.SubscriberID,
		sub.SharedFolderID,
		sub.CreatedAt.UTC(),
		sub.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueError(err) {
			return fmt.Errorf("subscriber %s, shared folder %s: %w",
				sub.SubscriberID, sub.SharedFolderID, domain.ErrAlreadySubscribed)
		}
		return fmt.Errorf("create subscription: %w", err)
	}

	return nil
}

const subscriptionColumns = `id, subscriber_id, shared_folder_id, created_at, updated_at`

func scanSubscription(row interface{ Scan(...any) error }, s *models.Subscription) error {
	return row.Scan(&s.ID, &s.SubscriberID, &s.SharedFolderID, &s.CreatedAt, &s.UpdatedAt)
}

// GetByID retrieves a subscription by ID
func (r *CacheSubscriptionRepository) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE id = ?`, subscriptionColumns)

	var sub models.Subscription
	if err := scanSubscription(executor(ctx, r.db).QueryRowContext(ctx, query, id), &sub); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("subscription %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	return &sub, nil
}

// GetBySubscriberAndShare retrieves the subscription for one (subscriber,
// shared folder) pair
func (r *CacheSubscriptionRepository) GetBySubscriberAndShare(ctx context.Context, subscriberID, sharedFolderID string) (*models.Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM subscriptions WHERE subscriber_id = ? AND shared_folder_id = ?
	`, subscriptionColumns)

	var sub models.Subscription
	if err := scanSubscription(executor(ctx, r.db).QueryRowContext(ctx, query, subscriberID, sharedFolderID), &sub); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	return &sub, nil
}

// ListBySubscriber lists a subscriber's subscriptions
func (r *CacheSubscriptionRepository) ListBySubscriber(ctx context.Context, subscriberID string) ([]models.Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM subscriptions WHERE subscriber_id = ? ORDER BY created_at ASC
	`, subscriptionColumns)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err := scanSubscription(rows, &sub); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	return subs, nil
}

// Delete hard-deletes a subscription
func (r *CacheSubscriptionRepository) Delete(ctx context.Context, id string) error {
	result, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("subscription %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

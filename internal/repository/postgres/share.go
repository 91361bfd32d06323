package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"promptdeck/internal/domain"
	"promptdeck/internal/domain/models"
	"promptdeck/internal/domain/repositories"
)

// PostgresShareRepository implements the ShareRepository interface
type PostgresShareRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewShareRepository creates a new shared-folder repository
func NewShareRepository(config *RepositoryConfig) repositories.ShareRepository {
	return &PostgresShareRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Upsert inserts or replaces a shared folder by id. The partial unique index
// on (share_code) WHERE is_active backs the code-uniqueness invariant.
func (r *PostgresShareRepository) Upsert(ctx context.Context, share *models.SharedFolder) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, folder_id, owner_id, share_code, is_active, source_label, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			share_code = EXCLUDED.share_code,
			is_active = EXCLUDED.is_active,
			source_label = EXCLUDED.source_label,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`, r.tables.SharedFolders)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		share.ID,
		share.FolderID,
		share.OwnerID,
		share.ShareCode,
		share.IsActive,
		share.SourceLabel,
		share.CreatedAt,
		share.UpdatedAt,
	).Scan(&share.CreatedAt, &share.UpdatedAt)

	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("share code or folder already in use: %w", domain.ErrConstraint)
		}
		return fmt.Errorf("upsert shared folder: %w", err)
	}

	return nil
}

const sharedFolderColumns = `id, folder_id, owner_id, share_code, is_active, source_label, created_at, updated_at`

func (r *PostgresShareRepository) getOne(ctx context.Context, where string, args ...any) (*models.SharedFolder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE %s
	`, sharedFolderColumns, r.tables.SharedFolders, where)

	var share models.SharedFolder
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, args...).Scan(
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
		if isPgNoRowsError(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get shared folder: %w", err)
	}

	return &share, nil
}

// GetByID retrieves a shared folder by ID (active or not)
func (r *PostgresShareRepository) GetByID(ctx context.Context, id string) (*models.SharedFolder, error) {
	share, err := r.getOne(ctx, "id = $1", id)
	if err == domain.ErrNotFound {
		return nil, fmt.Errorf("shared folder %s: %w", id, domain.ErrNotFound)
	}
	return share, err
}

// GetActiveByCode resolves an active share by its code
func (r *PostgresShareRepository) GetActiveByCode(ctx context.Context, code string) (*models.SharedFolder, error) {
	share, err := r.getOne(ctx, "share_code = $1 AND is_active", code)
	if err == domain.ErrNotFound {
		return nil, fmt.Errorf("share code %s: %w", code, domain.ErrShareNotFound)
	}
	return share, err
}

// GetActiveByFolder returns the single active share of a folder, if any
func (r *PostgresShareRepository) GetActiveByFolder(ctx context.Context, folderID string) (*models.SharedFolder, error) {
	share, err := r.getOne(ctx, "folder_id = $1 AND is_active", folderID)
	if err == domain.ErrNotFound {
		return nil, fmt.Errorf("no active share for folder %s: %w", folderID, domain.ErrNotFound)
	}
	return share, err
}

// PostgresSubscriptionRepository implements the SubscriptionRepository interface
type PostgresSubscriptionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(config *RepositoryConfig) repositories.SubscriptionRepository {
	return &PostgresSubscriptionRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts a subscription. The unique (subscriber_id, shared_folder_id)
// index turns a concurrent duplicate into ErrAlreadySubscribed instead of a
// second row.
func (r *PostgresSubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, subscriber_id, shared_folder_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, r.tables.Subscriptions)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		sub.ID,
		sub.SubscriberID,
		sub.SharedFolderID,
		sub.CreatedAt,
		sub.UpdatedAt,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)

	if err != nil {
		if isPgDuplicateError(err) {
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
func (r *PostgresSubscriptionRepository) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE id = $1
	`, subscriptionColumns, r.tables.Subscriptions)

	var sub models.Subscription
	executor := GetExecutor(ctx, r.pool)
	if err := scanSubscription(executor.QueryRow(ctx, query, id), &sub); err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("subscription %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	return &sub, nil
}

// GetBySubscriberAndShare retrieves the subscription for one (subscriber,
// shared folder) pair
func (r *PostgresSubscriptionRepository) GetBySubscriberAndShare(ctx context.Context, subscriberID, sharedFolderID string) (*models.Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE subscriber_id = $1 AND shared_folder_id = $2
	`, subscriptionColumns, r.tables.Subscriptions)

	var sub models.Subscription
	executor := GetExecutor(ctx, r.pool)
	if err := scanSubscription(executor.QueryRow(ctx, query, subscriberID, sharedFolderID), &sub); err != nil {
		if isPgNoRowsError(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	return &sub, nil
}

// ListBySubscriber lists a subscriber's subscriptions
func (r *PostgresSubscriptionRepository) ListBySubscriber(ctx context.Context, subscriberID string) ([]models.Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE subscriber_id = $1 ORDER BY created_at ASC
	`, subscriptionColumns, r.tables.Subscriptions)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, subscriberID)
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
func (r *PostgresSubscriptionRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Subscriptions)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("subscription %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

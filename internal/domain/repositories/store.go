package repositories

import (
	"context"
	"time"

	"promptdeck/internal/domain/models"
)

// Store is the entity store interface: the typed repositories plus the
// generic mutation surface the sync reconciler drives. It is implemented
// once against the remote relational store and once against the local cache;
// the reconciler is the only component that holds both.
type Store interface {
	Folders() FolderRepository
	Prompts() PromptRepository
	Shares() ShareRepository
	Subscriptions() SubscriptionRepository
	QuickAccess() QuickAccessRepository

	Tx() TransactionManager

	// ApplyMutation applies one generic mutation. Upserts are idempotent by
	// id and last-writer-wins by updated_at: a mutation older than the
	// stored row is acknowledged as a no-op. Reorders apply atomically.
	ApplyMutation(ctx context.Context, m models.Mutation) error

	// ChangedSince returns entities updated after the watermark, ordered by
	// updated_at ascending. Soft-deleted rows are included with Deleted set.
	ChangedSince(ctx context.Context, watermark time.Time) ([]models.Change, error)
}

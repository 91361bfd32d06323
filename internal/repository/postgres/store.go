package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"promptdeck/internal/domain"
	"promptdeck/internal/domain/models"
	"promptdeck/internal/domain/repositories"
)

// Store bundles the postgres repositories into the entity store interface.
// This is the remote, authoritative side of the sync boundary.
type Store struct {
	pool          *pgxpool.Pool
	tables        *TableNames
	folders       repositories.FolderRepository
	prompts       repositories.PromptRepository
	shares        repositories.ShareRepository
	subscriptions repositories.SubscriptionRepository
	quickAccess   repositories.QuickAccessRepository
	tx            repositories.TransactionManager
}

// NewStore creates the remote store over a connection pool
func NewStore(config *RepositoryConfig) *Store {
	return &Store{
		pool:          config.Pool,
		tables:        config.Tables,
		folders:       NewFolderRepository(config),
		prompts:       NewPromptRepository(config),
		shares:        NewShareRepository(config),
		subscriptions: NewSubscriptionRepository(config),
		quickAccess:   NewQuickAccessRepository(config),
		tx:            NewTransactionManager(config.Pool, config.Logger),
	}
}

func (s *Store) Folders() repositories.FolderRepository            { return s.folders }
func (s *Store) Prompts() repositories.PromptRepository            { return s.prompts }
func (s *Store) Shares() repositories.ShareRepository              { return s.shares }
func (s *Store) Subscriptions() repositories.SubscriptionRepository { return s.subscriptions }
func (s *Store) QuickAccess() repositories.QuickAccessRepository   { return s.quickAccess }
func (s *Store) Tx() repositories.TransactionManager               { return s.tx }

func (s *Store) tableFor(entity models.EntityType) (string, error) {
	switch entity {
	case models.EntityFolder:
		return s.tables.Folders, nil
	case models.EntityPrompt:
		return s.tables.Prompts, nil
	case models.EntitySharedFolder:
		return s.tables.SharedFolders, nil
	case models.EntitySubscription:
		return s.tables.Subscriptions, nil
	case models.EntityQuickAccessFolder:
		return s.tables.QuickAccessFolders, nil
	case models.EntityQuickAccessItem:
		return s.tables.QuickAccessItems, nil
	default:
		return "", fmt.Errorf("unknown entity type %q: %w", entity, domain.ErrValidation)
	}
}

// ApplyMutation applies one generic mutation inside a transaction.
// Last-writer-wins: an upsert or delete older than the stored row is
// acknowledged as a no-op; the loser converges on the next pull.
func (s *Store) ApplyMutation(ctx context.Context, m models.Mutation) error {
	err := s.tx.ExecTx(ctx, func(ctx context.Context) error {
		switch m.Op {
		case models.OpUpsert, models.OpDelete:
			stale, err := s.isStale(ctx, m)
			if err != nil {
				return err
			}
			if stale {
				return nil
			}
			if m.Op == models.OpDelete {
				return s.applyDelete(ctx, m)
			}
			return s.applyUpsert(ctx, m)
		case models.OpReorder:
			return s.applyReorder(ctx, m)
		default:
			return fmt.Errorf("unknown mutation op %q: %w", m.Op, domain.ErrValidation)
		}
	})
	if err != nil && isPgUnavailableError(err) {
		return fmt.Errorf("%v: %w", err, domain.ErrNetworkUnavailable)
	}
	return err
}

// isStale reports whether the stored row is newer than the mutation.
func (s *Store) isStale(ctx context.Context, m models.Mutation) (bool, error) {
	table, err := s.tableFor(m.Entity)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`SELECT updated_at FROM %s WHERE id = $1`, table)
	executor := GetExecutor(ctx, s.pool)

	var storedAt time.Time
	if err := executor.QueryRow(ctx, query, m.EntityID).Scan(&storedAt); err != nil {
		if isPgNoRowsError(err) {
			return false, nil
		}
		return false, fmt.Errorf("read stored version: %w", err)
	}

	return storedAt.After(m.UpdatedAt), nil
}

func (s *Store) applyUpsert(ctx context.Context, m models.Mutation) error {
	switch m.Entity {
	case models.EntityFolder:
		var folder models.Folder
		if err := json.Unmarshal(m.Payload, &folder); err != nil {
			return fmt.Errorf("decode folder payload: %w", err)
		}
		return s.folders.Upsert(ctx, &folder)
	case models.EntityPrompt:
		var prompt models.Prompt
		if err := json.Unmarshal(m.Payload, &prompt); err != nil {
			return fmt.Errorf("decode prompt payload: %w", err)
		}
		return s.prompts.Upsert(ctx, &prompt)
	case models.EntitySharedFolder:
		var share models.SharedFolder
		if err := json.Unmarshal(m.Payload, &share); err != nil {
			return fmt.Errorf("decode shared folder payload: %w", err)
		}
		return s.shares.Upsert(ctx, &share)
	case models.EntitySubscription:
		var sub models.Subscription
		if err := json.Unmarshal(m.Payload, &sub); err != nil {
			return fmt.Errorf("decode subscription payload: %w", err)
		}
		err := s.subscriptions.Create(ctx, &sub)
		if err != nil && domain.Terminal(err) {
			// Replaying a push that already landed is a no-op, not an error.
			if existing, getErr := s.subscriptions.GetByID(ctx, sub.ID); getErr == nil && existing != nil {
				return nil
			}
		}
		return err
	case models.EntityQuickAccessFolder:
		var folder models.QuickAccessFolder
		if err := json.Unmarshal(m.Payload, &folder); err != nil {
			return fmt.Errorf("decode quick access folder payload: %w", err)
		}
		return s.quickAccess.UpsertFolder(ctx, &folder)
	case models.EntityQuickAccessItem:
		var item models.QuickAccessItem
		if err := json.Unmarshal(m.Payload, &item); err != nil {
			return fmt.Errorf("decode quick access item payload: %w", err)
		}
		return s.quickAccess.UpsertItem(ctx, &item)
	default:
		return fmt.Errorf("unknown entity type %q: %w", m.Entity, domain.ErrValidation)
	}
}

// applyDelete is idempotent: deleting an already-deleted entity acknowledges
// cleanly so the push queue can drain after a replay.
func (s *Store) applyDelete(ctx context.Context, m models.Mutation) error {
	var err error
	switch m.Entity {
	case models.EntityFolder:
		err = s.folders.SoftDelete(ctx, m.EntityID)
	case models.EntityPrompt:
		err = s.prompts.SoftDelete(ctx, m.EntityID)
	case models.EntitySubscription:
		err = s.subscriptions.Delete(ctx, m.EntityID)
	case models.EntityQuickAccessFolder:
		err = s.quickAccess.DeleteFolder(ctx, m.EntityID)
	case models.EntityQuickAccessItem:
		err = s.quickAccess.DeleteItem(ctx, m.EntityID)
	default:
		return fmt.Errorf("delete not supported for %q: %w", m.Entity, domain.ErrValidation)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Store) applyReorder(ctx context.Context, m models.Mutation) error {
	var payload models.ReorderPayload
	if err := json.Unmarshal(m.Payload, &payload); err != nil {
		return fmt.Errorf("decode reorder payload: %w", err)
	}

	switch m.Entity {
	case models.EntityFolder:
		return s.folders.BatchReorder(ctx, payload.ParentID, payload.OrderedIDs)
	case models.EntityPrompt:
		return s.prompts.BatchReorder(ctx, payload.ParentID, payload.OrderedIDs)
	case models.EntityQuickAccessFolder:
		return s.quickAccess.BatchReorderFolders(ctx, payload.ParentID, payload.OrderedIDs)
	case models.EntityQuickAccessItem:
		return s.quickAccess.BatchReorderItems(ctx, payload.ParentID, payload.OrderedIDs)
	default:
		return fmt.Errorf("reorder not supported for %q: %w", m.Entity, domain.ErrValidation)
	}
}

// ChangedSince returns entities updated after the watermark across all synced
// tables, ordered by updated_at ascending. Soft-deleted rows appear with
// Deleted set; hard-deleted rows (subscriptions, quick-access items) leave no
// tombstone and converge through their own queued mutations.
func (s *Store) ChangedSince(ctx context.Context, watermark time.Time) ([]models.Change, error) {
	var changes []models.Change

	collect := func(entity models.EntityType, table string, softDelete bool) error {
		deletedCol := "NULL::timestamptz"
		if softDelete {
			deletedCol = "deleted_at"
		}
		query := fmt.Sprintf(`
			SELECT id, updated_at, %s, row_to_json(t)
			FROM %s t
			WHERE updated_at > $1
		`, deletedCol, table)

		executor := GetExecutor(ctx, s.pool)
		rows, err := executor.Query(ctx, query, watermark)
		if err != nil {
			return fmt.Errorf("changed since %s: %w", table, err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				change    models.Change
				deletedAt *time.Time
				payload   []byte
			)
			if err := rows.Scan(&change.ID, &change.UpdatedAt, &deletedAt, &payload); err != nil {
				return fmt.Errorf("scan change from %s: %w", table, err)
			}
			change.Entity = entity
			change.Deleted = deletedAt != nil
			change.Payload = json.RawMessage(payload)
			changes = append(changes, change)
		}
		return rows.Err()
	}

	type table struct {
		entity     models.EntityType
		name       string
		softDelete bool
	}
	for _, t := range []table{
		{models.EntityFolder, s.tables.Folders, true},
		{models.EntityPrompt, s.tables.Prompts, true},
		{models.EntitySharedFolder, s.tables.SharedFolders, false},
		{models.EntitySubscription, s.tables.Subscriptions, false},
		{models.EntityQuickAccessFolder, s.tables.QuickAccessFolders, false},
		{models.EntityQuickAccessItem, s.tables.QuickAccessItems, false},
	} {
		if err := collect(t.entity, t.name, t.softDelete); err != nil {
			if isPgUnavailableError(err) {
				return nil, fmt.Errorf("%v: %w", err, domain.ErrNetworkUnavailable)
			}
			return nil, err
		}
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].UpdatedAt.Before(changes[j].UpdatedAt)
	})

	return changes, nil
}

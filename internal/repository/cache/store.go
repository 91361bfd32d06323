package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"promptdeck/internal/domain"
	"promptdeck/internal/domain/models"
	"promptdeck/internal/domain/repositories"
)

// Store bundles the sqlite repositories into the entity store interface.
// This is the local, optimistic side of the sync boundary.
type Store struct {
	db            *sql.DB
	folders       repositories.FolderRepository
	prompts       repositories.PromptRepository
	shares        repositories.ShareRepository
	subscriptions repositories.SubscriptionRepository
	quickAccess   repositories.QuickAccessRepository
	tx            repositories.TransactionManager
}

func newStore(db *sql.DB, logger *slog.Logger) *Store {
	tx := NewTransactionManager(db, logger)
	return &Store{
		db:            db,
		folders:       NewFolderRepository(db, tx),
		prompts:       NewPromptRepository(db, tx),
		shares:        NewShareRepository(db),
		subscriptions: NewSubscriptionRepository(db),
		quickAccess:   NewQuickAccessRepository(db, tx),
		tx:            tx,
	}
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Folders() repositories.FolderRepository             { return s.folders }
func (s *Store) Prompts() repositories.PromptRepository             { return s.prompts }
func (s *Store) Shares() repositories.ShareRepository               { return s.shares }
func (s *Store) Subscriptions() repositories.SubscriptionRepository { return s.subscriptions }
func (s *Store) QuickAccess() repositories.QuickAccessRepository    { return s.quickAccess }
func (s *Store) Tx() repositories.TransactionManager                { return s.tx }

// ApplyMutation applies one generic mutation inside a transaction.
// Last-writer-wins by updated_at: a mutation older than the stored row is a
// no-op. The pull path drives remote deltas through here, so a remote winner
// overwrites any un-pushed local edit to the same record.
func (s *Store) ApplyMutation(ctx context.Context, m models.Mutation) error {
	return s.tx.ExecTx(ctx, func(ctx context.Context) error {
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
}

var syncTables = map[models.EntityType]string{
	models.EntityFolder:            "folders",
	models.EntityPrompt:            "prompts",
	models.EntitySharedFolder:      "shared_folders",
	models.EntitySubscription:      "subscriptions",
	models.EntityQuickAccessFolder: "quick_access_folders",
	models.EntityQuickAccessItem:   "quick_access_items",
}

func (s *Store) isStale(ctx context.Context, m models.Mutation) (bool, error) {
	table, ok := syncTables[m.Entity]
	if !ok {
		return false, fmt.Errorf("unknown entity type %q: %w", m.Entity, domain.ErrValidation)
	}

	var storedAt time.Time
	err := executor(ctx, s.db).QueryRowContext(ctx,
		fmt.Sprintf(`SELECT updated_at FROM %s WHERE id = ?`, table), m.EntityID,
	).Scan(&storedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
		if errors.Is(err, domain.ErrAlreadySubscribed) {
			// Pull replay of a row that already exists locally.
			return nil
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
		// Already gone; deletes replay cleanly.
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

// ChangedSince returns entities updated after the watermark, ordered by
// updated_at ascending. Used in tests and when the cache plays the remote
// role; the production pull direction reads the postgres side.
func (s *Store) ChangedSince(ctx context.Context, watermark time.Time) ([]models.Change, error) {
	var changes []models.Change

	add := func(entity models.EntityType, id string, updatedAt time.Time, deletedAt *time.Time, v any) error {
		payload, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s change: %w", entity, err)
		}
		changes = append(changes, models.Change{
			Entity:    entity,
			ID:        id,
			Payload:   payload,
			UpdatedAt: updatedAt,
			Deleted:   deletedAt != nil,
		})
		return nil
	}

	e := executor(ctx, s.db)

	rows, err := e.QueryContext(ctx, `
		SELECT id, user_id, name, position, created_at, updated_at, deleted_at
		FROM folders WHERE updated_at > ?
	`, watermark.UTC())
	if err != nil {
		return nil, fmt.Errorf("changed folders: %w", err)
	}
	for rows.Next() {
		var f models.Folder
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.Position, &f.CreatedAt, &f.UpdatedAt, &f.DeletedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan changed folder: %w", err)
		}
		if err := add(models.EntityFolder, f.ID, f.UpdatedAt, f.DeletedAt, f); err != nil {
			rows.Close()
			return nil, err
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = e.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM prompts WHERE updated_at > ?
	`, promptColumns), watermark.UTC())
	if err != nil {
		return nil, fmt.Errorf("changed prompts: %w", err)
	}
	for rows.Next() {
		var p models.Prompt
		if err := scanPrompt(rows, &p); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan changed prompt: %w", err)
		}
		if err := add(models.EntityPrompt, p.ID, p.UpdatedAt, p.DeletedAt, p); err != nil {
			rows.Close()
			return nil, err
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = e.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM shared_folders WHERE updated_at > ?
	`, sharedFolderColumns), watermark.UTC())
	if err != nil {
		return nil, fmt.Errorf("changed shared folders: %w", err)
	}
	for rows.Next() {
		var sh models.SharedFolder
		if err := rows.Scan(&sh.ID, &sh.FolderID, &sh.OwnerID, &sh.ShareCode, &sh.IsActive, &sh.SourceLabel, &sh.CreatedAt, &sh.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan changed shared folder: %w", err)
		}
		if err := add(models.EntitySharedFolder, sh.ID, sh.UpdatedAt, nil, sh); err != nil {
			rows.Close()
			return nil, err
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = e.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM subscriptions WHERE updated_at > ?
	`, subscriptionColumns), watermark.UTC())
	if err != nil {
		return nil, fmt.Errorf("changed subscriptions: %w", err)
	}
	for rows.Next() {
		var sub models.Subscription
		if err := scanSubscription(rows, &sub); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan changed subscription: %w", err)
		}
		if err := add(models.EntitySubscription, sub.ID, sub.UpdatedAt, nil, sub); err != nil {
			rows.Close()
			return nil, err
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = e.QueryContext(ctx, `
		SELECT id, user_id, name, position, created_at, updated_at
		FROM quick_access_folders WHERE updated_at > ?
	`, watermark.UTC())
	if err != nil {
		return nil, fmt.Errorf("changed quick access folders: %w", err)
	}
	for rows.Next() {
		var f models.QuickAccessFolder
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.Position, &f.CreatedAt, &f.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan changed quick access folder: %w", err)
		}
		if err := add(models.EntityQuickAccessFolder, f.ID, f.UpdatedAt, nil, f); err != nil {
			rows.Close()
			return nil, err
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = e.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM quick_access_items WHERE updated_at > ?
	`, quickAccessItemColumns), watermark.UTC())
	if err != nil {
		return nil, fmt.Errorf("changed quick access items: %w", err)
	}
	for rows.Next() {
		var item models.QuickAccessItem
		if err := scanQuickAccessItem(rows, &item); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan changed quick access item: %w", err)
		}
		if err := add(models.EntityQuickAccessItem, item.ID, item.UpdatedAt, nil, item); err != nil {
			rows.Close()
			return nil, err
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].UpdatedAt.Before(changes[j].UpdatedAt)
	})

	return changes, nil
}

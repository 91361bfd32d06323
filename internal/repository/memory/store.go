// Package memory provides an in-process Store used by service and
// reconciler tests. It honors the same error contract as the persistent
// implementations and supports per-call failure injection so tests can
// simulate an unreachable or conflicting remote.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"promptdeck/internal/domain"
	"promptdeck/internal/domain/models"
	"promptdeck/internal/domain/repositories"
)

type Store struct {
	mu sync.Mutex

	folders       map[string]*models.Folder
	prompts       map[string]*models.Prompt
	shares        map[string]*models.SharedFolder
	subscriptions map[string]*models.Subscription
	qaFolders     map[string]*models.QuickAccessFolder
	qaItems       map[string]*models.QuickAccessItem

	// ApplyErr, when set, is consulted before each ApplyMutation and lets a
	// test inject ErrNetworkUnavailable, ErrConflict or any terminal error.
	ApplyErr func(m models.Mutation) error

	// ChangedErr, when set, is returned by ChangedSince.
	ChangedErr error
}

func NewStore() *Store {
	return &Store{
		folders:       make(map[string]*models.Folder),
		prompts:       make(map[string]*models.Prompt),
		shares:        make(map[string]*models.SharedFolder),
		subscriptions: make(map[string]*models.Subscription),
		qaFolders:     make(map[string]*models.QuickAccessFolder),
		qaItems:       make(map[string]*models.QuickAccessItem),
	}
}

var _ repositories.Store = (*Store)(nil)

func (s *Store) Folders() repositories.FolderRepository             { return (*folderRepo)(s) }
func (s *Store) Prompts() repositories.PromptRepository             { return (*promptRepo)(s) }
func (s *Store) Shares() repositories.ShareRepository               { return (*shareRepo)(s) }
func (s *Store) Subscriptions() repositories.SubscriptionRepository { return (*subscriptionRepo)(s) }
func (s *Store) QuickAccess() repositories.QuickAccessRepository    { return (*quickAccessRepo)(s) }

func (s *Store) Tx() repositories.TransactionManager { return passThroughTx{} }

// passThroughTx runs the function directly. The store's mutex already makes
// each repository call atomic, which is enough for tests.
type passThroughTx struct{}

func (passThroughTx) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

// folder repository

type folderRepo Store

func (r *folderRepo) Upsert(ctx context.Context, folder *models.Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *folder
	r.folders[folder.ID] = &clone
	return nil
}

func (r *folderRepo) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[id]
	if !ok || f.DeletedAt != nil {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	clone := *f
	return &clone, nil
}

func (r *folderRepo) ListByUser(ctx context.Context, userID string) ([]models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Folder
	for _, f := range r.folders {
		if f.UserID == userID && f.DeletedAt == nil {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *folderRepo) SoftDelete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[id]
	if !ok || f.DeletedAt != nil {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	now := time.Now().UTC()
	f.DeletedAt = &now
	f.UpdatedAt = now
	return nil
}

func (r *folderRepo) BatchReorder(ctx context.Context, userID string, orderedIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for i, id := range orderedIDs {
		f, ok := r.folders[id]
		if !ok || f.DeletedAt != nil || f.UserID != userID {
			return fmt.Errorf("reorder folders: %d of %d rows matched: %w", i, len(orderedIDs), domain.ErrConflict)
		}
		f.Position = int64(i+1) * 1024
		f.UpdatedAt = now
	}
	return nil
}

// prompt repository

type promptRepo Store

func (r *promptRepo) Upsert(ctx context.Context, prompt *models.Prompt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *prompt
	r.prompts[prompt.ID] = &clone
	return nil
}

func (r *promptRepo) GetByID(ctx context.Context, id string) (*models.Prompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prompts[id]
	if !ok || p.Deleted() {
		return nil, fmt.Errorf("prompt %s: %w", id, domain.ErrNotFound)
	}
	clone := *p
	return &clone, nil
}

func (r *promptRepo) ListByFolder(ctx context.Context, folderID string) ([]models.Prompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Prompt
	for _, p := range r.prompts {
		if p.FolderID == folderID && !p.Deleted() {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *promptRepo) SoftDelete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prompts[id]
	if !ok || p.Deleted() {
		return fmt.Errorf("prompt %s: %w", id, domain.ErrNotFound)
	}
	now := time.Now().UTC()
	p.DeletedAt = &now
	p.UpdatedAt = now
	return nil
}

func (r *promptRepo) BatchReorder(ctx context.Context, folderID string, orderedIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for i, id := range orderedIDs {
		p, ok := r.prompts[id]
		if !ok || p.Deleted() {
			return fmt.Errorf("reorder prompts: %d of %d rows matched: %w", i, len(orderedIDs), domain.ErrConflict)
		}
		p.FolderID = folderID
		p.Position = int64(i+1) * 1024
		p.UpdatedAt = now
	}
	return nil
}

// share repository

type shareRepo Store

func (r *shareRepo) Upsert(ctx context.Context, share *models.SharedFolder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *share
	r.shares[share.ID] = &clone
	return nil
}

func (r *shareRepo) GetByID(ctx context.Context, id string) (*models.SharedFolder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sh, ok := r.shares[id]
	if !ok {
		return nil, fmt.Errorf("shared folder %s: %w", id, domain.ErrNotFound)
	}
	clone := *sh
	return &clone, nil
}

func (r *shareRepo) GetActiveByCode(ctx context.Context, code string) (*models.SharedFolder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sh := range r.shares {
		if sh.IsActive && sh.ShareCode == code {
			clone := *sh
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("share code %s: %w", code, domain.ErrShareNotFound)
}

func (r *shareRepo) GetActiveByFolder(ctx context.Context, folderID string) (*models.SharedFolder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sh := range r.shares {
		if sh.IsActive && sh.FolderID == folderID {
			clone := *sh
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("folder %s share: %w", folderID, domain.ErrNotFound)
}

// subscription repository

type subscriptionRepo Store

func (r *subscriptionRepo) Create(ctx context.Context, sub *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.subscriptions {
		if existing.SubscriberID == sub.SubscriberID && existing.SharedFolderID == sub.SharedFolderID {
			return fmt.Errorf("subscription for share %s: %w", sub.SharedFolderID, domain.ErrAlreadySubscribed)
		}
	}
	clone := *sub
	r.subscriptions[sub.ID] = &clone
	return nil
}

func (r *subscriptionRepo) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subscriptions[id]
	if !ok {
		return nil, fmt.Errorf("subscription %s: %w", id, domain.ErrNotFound)
	}
	clone := *sub
	return &clone, nil
}

func (r *subscriptionRepo) GetBySubscriberAndShare(ctx context.Context, subscriberID, sharedFolderID string) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subscriptions {
		if sub.SubscriberID == subscriberID && sub.SharedFolderID == sharedFolderID {
			clone := *sub
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("subscription: %w", domain.ErrNotFound)
}

func (r *subscriptionRepo) ListBySubscriber(ctx context.Context, subscriberID string) ([]models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Subscription
	for _, sub := range r.subscriptions {
		if sub.SubscriberID == subscriberID {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *subscriptionRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subscriptions[id]; !ok {
		return fmt.Errorf("subscription %s: %w", id, domain.ErrNotFound)
	}
	delete(r.subscriptions, id)
	return nil
}

// quick access repository

type quickAccessRepo Store

func (r *quickAccessRepo) UpsertFolder(ctx context.Context, folder *models.QuickAccessFolder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *folder
	r.qaFolders[folder.ID] = &clone
	return nil
}

func (r *quickAccessRepo) GetFolder(ctx context.Context, id string) (*models.QuickAccessFolder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.qaFolders[id]
	if !ok {
		return nil, fmt.Errorf("quick access folder %s: %w", id, domain.ErrNotFound)
	}
	clone := *f
	return &clone, nil
}

func (r *quickAccessRepo) ListFolders(ctx context.Context, userID string) ([]models.QuickAccessFolder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.QuickAccessFolder
	for _, f := range r.qaFolders {
		if f.UserID == userID {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *quickAccessRepo) DeleteFolder(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.qaFolders[id]; !ok {
		return fmt.Errorf("quick access folder %s: %w", id, domain.ErrNotFound)
	}
	delete(r.qaFolders, id)
	for itemID, item := range r.qaItems {
		if item.QuickAccessFolderID == id {
			delete(r.qaItems, itemID)
		}
	}
	return nil
}

func (r *quickAccessRepo) BatchReorderFolders(ctx context.Context, userID string, orderedIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for i, id := range orderedIDs {
		f, ok := r.qaFolders[id]
		if !ok || f.UserID != userID {
			return fmt.Errorf("reorder quick access folders: %d of %d rows matched: %w", i, len(orderedIDs), domain.ErrConflict)
		}
		f.Position = int64(i+1) * 1024
		f.UpdatedAt = now
	}
	return nil
}

func (r *quickAccessRepo) UpsertItem(ctx context.Context, item *models.QuickAccessItem) error {
	if _, err := item.Ref(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *item
	r.qaItems[item.ID] = &clone
	return nil
}

func (r *quickAccessRepo) GetItem(ctx context.Context, id string) (*models.QuickAccessItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.qaItems[id]
	if !ok {
		return nil, fmt.Errorf("quick access item %s: %w", id, domain.ErrNotFound)
	}
	clone := *item
	return &clone, nil
}

func (r *quickAccessRepo) ListItems(ctx context.Context, quickAccessFolderID string) ([]models.QuickAccessItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.QuickAccessItem
	for _, item := range r.qaItems {
		if item.QuickAccessFolderID == quickAccessFolderID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *quickAccessRepo) DeleteItem(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.qaItems[id]; !ok {
		return fmt.Errorf("quick access item %s: %w", id, domain.ErrNotFound)
	}
	delete(r.qaItems, id)
	return nil
}

func (r *quickAccessRepo) BatchReorderItems(ctx context.Context, quickAccessFolderID string, orderedIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for i, id := range orderedIDs {
		item, ok := r.qaItems[id]
		if !ok || item.QuickAccessFolderID != quickAccessFolderID {
			return fmt.Errorf("reorder quick access items: %d of %d rows matched: %w", i, len(orderedIDs), domain.ErrConflict)
		}
		item.Position = int64(i+1) * 1024
		item.UpdatedAt = now
	}
	return nil
}

func (r *quickAccessRepo) DeleteByPromptID(ctx context.Context, promptID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, item := range r.qaItems {
		owned := item.OwnedPromptID != nil && *item.OwnedPromptID == promptID
		subscribed := item.SubscribedPromptID != nil && *item.SubscribedPromptID == promptID
		if owned || subscribed {
			delete(r.qaItems, id)
			removed++
		}
	}
	return removed, nil
}

func (r *quickAccessRepo) DeleteSubscribedRefs(ctx context.Context, userID string, promptIDs []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make(map[string]struct{}, len(promptIDs))
	for _, id := range promptIDs {
		ids[id] = struct{}{}
	}
	removed := 0
	for id, item := range r.qaItems {
		if item.UserID != userID || item.SubscribedPromptID == nil {
			continue
		}
		if _, ok := ids[*item.SubscribedPromptID]; ok {
			delete(r.qaItems, id)
			removed++
		}
	}
	return removed, nil
}

// generic mutation surface

func (s *Store) ApplyMutation(ctx context.Context, m models.Mutation) error {
	if s.ApplyErr != nil {
		if err := s.ApplyErr(m); err != nil {
			return err
		}
	}

	switch m.Op {
	case models.OpUpsert, models.OpDelete:
		if s.olderThanStored(m) {
			return nil
		}
		if m.Op == models.OpDelete {
			return s.applyDelete(ctx, m)
		}
		return s.applyUpsert(ctx, m)
	case models.OpReorder:
		var payload models.ReorderPayload
		if err := json.Unmarshal(m.Payload, &payload); err != nil {
			return fmt.Errorf("decode reorder payload: %w", err)
		}
		switch m.Entity {
		case models.EntityFolder:
			return s.Folders().BatchReorder(ctx, payload.ParentID, payload.OrderedIDs)
		case models.EntityPrompt:
			return s.Prompts().BatchReorder(ctx, payload.ParentID, payload.OrderedIDs)
		case models.EntityQuickAccessFolder:
			return s.QuickAccess().BatchReorderFolders(ctx, payload.ParentID, payload.OrderedIDs)
		case models.EntityQuickAccessItem:
			return s.QuickAccess().BatchReorderItems(ctx, payload.ParentID, payload.OrderedIDs)
		default:
			return fmt.Errorf("reorder not supported for %q: %w", m.Entity, domain.ErrValidation)
		}
	default:
		return fmt.Errorf("unknown mutation op %q: %w", m.Op, domain.ErrValidation)
	}
}

func (s *Store) olderThanStored(m models.Mutation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var storedAt time.Time
	switch m.Entity {
	case models.EntityFolder:
		if f, ok := s.folders[m.EntityID]; ok {
			storedAt = f.UpdatedAt
		}
	case models.EntityPrompt:
		if p, ok := s.prompts[m.EntityID]; ok {
			storedAt = p.UpdatedAt
		}
	case models.EntitySharedFolder:
		if sh, ok := s.shares[m.EntityID]; ok {
			storedAt = sh.UpdatedAt
		}
	case models.EntitySubscription:
		if sub, ok := s.subscriptions[m.EntityID]; ok {
			storedAt = sub.UpdatedAt
		}
	case models.EntityQuickAccessFolder:
		if f, ok := s.qaFolders[m.EntityID]; ok {
			storedAt = f.UpdatedAt
		}
	case models.EntityQuickAccessItem:
		if item, ok := s.qaItems[m.EntityID]; ok {
			storedAt = item.UpdatedAt
		}
	}
	return storedAt.After(m.UpdatedAt)
}

func (s *Store) applyUpsert(ctx context.Context, m models.Mutation) error {
	switch m.Entity {
	case models.EntityFolder:
		var f models.Folder
		if err := json.Unmarshal(m.Payload, &f); err != nil {
			return fmt.Errorf("decode folder payload: %w", err)
		}
		return s.Folders().Upsert(ctx, &f)
	case models.EntityPrompt:
		var p models.Prompt
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			return fmt.Errorf("decode prompt payload: %w", err)
		}
		return s.Prompts().Upsert(ctx, &p)
	case models.EntitySharedFolder:
		var sh models.SharedFolder
		if err := json.Unmarshal(m.Payload, &sh); err != nil {
			return fmt.Errorf("decode shared folder payload: %w", err)
		}
		return s.Shares().Upsert(ctx, &sh)
	case models.EntitySubscription:
		var sub models.Subscription
		if err := json.Unmarshal(m.Payload, &sub); err != nil {
			return fmt.Errorf("decode subscription payload: %w", err)
		}
		err := s.Subscriptions().Create(ctx, &sub)
		if errors.Is(err, domain.ErrAlreadySubscribed) {
			return nil
		}
		return err
	case models.EntityQuickAccessFolder:
		var f models.QuickAccessFolder
		if err := json.Unmarshal(m.Payload, &f); err != nil {
			return fmt.Errorf("decode quick access folder payload: %w", err)
		}
		return s.QuickAccess().UpsertFolder(ctx, &f)
	case models.EntityQuickAccessItem:
		var item models.QuickAccessItem
		if err := json.Unmarshal(m.Payload, &item); err != nil {
			return fmt.Errorf("decode quick access item payload: %w", err)
		}
		return s.QuickAccess().UpsertItem(ctx, &item)
	default:
		return fmt.Errorf("unknown entity type %q: %w", m.Entity, domain.ErrValidation)
	}
}

func (s *Store) applyDelete(ctx context.Context, m models.Mutation) error {
	var err error
	switch m.Entity {
	case models.EntityFolder:
		err = s.Folders().SoftDelete(ctx, m.EntityID)
	case models.EntityPrompt:
		err = s.Prompts().SoftDelete(ctx, m.EntityID)
	case models.EntitySubscription:
		err = s.Subscriptions().Delete(ctx, m.EntityID)
	case models.EntityQuickAccessFolder:
		err = s.QuickAccess().DeleteFolder(ctx, m.EntityID)
	case models.EntityQuickAccessItem:
		err = s.QuickAccess().DeleteItem(ctx, m.EntityID)
	default:
		return fmt.Errorf("delete not supported for %q: %w", m.Entity, domain.ErrValidation)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Store) ChangedSince(ctx context.Context, watermark time.Time) ([]models.Change, error) {
	if s.ChangedErr != nil {
		return nil, s.ChangedErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var changes []models.Change
	add := func(entity models.EntityType, id string, updatedAt time.Time, deleted bool, v any) error {
		if !updatedAt.After(watermark) {
			return nil
		}
		payload, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s change: %w", entity, err)
		}
		changes = append(changes, models.Change{
			Entity:    entity,
			ID:        id,
			Payload:   payload,
			UpdatedAt: updatedAt,
			Deleted:   deleted,
		})
		return nil
	}

	for _, f := range s.folders {
		if err := add(models.EntityFolder, f.ID, f.UpdatedAt, f.DeletedAt != nil, f); err != nil {
			return nil, err
		}
	}
	for _, p := range s.prompts {
		if err := add(models.EntityPrompt, p.ID, p.UpdatedAt, p.Deleted(), p); err != nil {
			return nil, err
		}
	}
	for _, sh := range s.shares {
		if err := add(models.EntitySharedFolder, sh.ID, sh.UpdatedAt, false, sh); err != nil {
			return nil, err
		}
	}
	for _, sub := range s.subscriptions {
		if err := add(models.EntitySubscription, sub.ID, sub.UpdatedAt, false, sub); err != nil {
			return nil, err
		}
	}
	for _, f := range s.qaFolders {
		if err := add(models.EntityQuickAccessFolder, f.ID, f.UpdatedAt, false, f); err != nil {
			return nil, err
		}
	}
	for _, item := range s.qaItems {
		if err := add(models.EntityQuickAccessItem, item.ID, item.UpdatedAt, false, item); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].UpdatedAt.Before(changes[j].UpdatedAt)
	})

	return changes, nil
}

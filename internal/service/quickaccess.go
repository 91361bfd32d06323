package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"promptdeck/internal/domain"
	"promptdeck/internal/domain/events"
	"promptdeck/internal/domain/models"
	"promptdeck/internal/domain/repositories"
	"promptdeck/internal/domain/services"
)

type quickAccessLinker struct {
	store  repositories.Store
	hub    *events.Hub
	logger *slog.Logger
}

// NewQuickAccessLinker creates the quick-access service and subscribes it to
// prompt deletions so pinned references never outlive their prompt.
func NewQuickAccessLinker(store repositories.Store, hub *events.Hub, logger *slog.Logger) services.QuickAccessLinker {
	s := &quickAccessLinker{
		store:  store,
		hub:    hub,
		logger: logger,
	}
	hub.Register(events.NotifierFunc(func(entity models.EntityType, id string, kind events.ChangeKind) {
		deleted := kind == events.KindDeleted || kind == events.KindMergedDeleted
		if entity == models.EntityPrompt && deleted {
			if err := s.ReconcileOnPromptDeleted(context.Background(), id); err != nil {
				logger.Error("quick access reconcile failed", "prompt_id", id, "error", err)
			}
		}
	}))
	return s
}

// CreateFolder creates a quick-access folder positioned after a sibling
func (s *quickAccessLinker) CreateFolder(ctx context.Context, userID string, req *models.CreateQuickAccessFolderRequest) (*models.QuickAccessFolder, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 255)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	folder := &models.QuickAccessFolder{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      req.Name,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	err := s.store.Tx().ExecTx(ctx, func(ctx context.Context) error {
		siblings, err := s.folderSiblings(ctx, userID)
		if err != nil {
			return err
		}
		pos, err := placeAfter(ctx, siblings, req.After, func(ctx context.Context, orderedIDs []string) error {
			return s.store.QuickAccess().BatchReorderFolders(ctx, userID, orderedIDs)
		})
		if err != nil {
			return err
		}
		folder.Position = pos
		return s.store.QuickAccess().UpsertFolder(ctx, folder)
	})
	if err != nil {
		return nil, err
	}

	s.hub.EntityChanged(models.EntityQuickAccessFolder, folder.ID, events.KindCreated)
	return folder, nil
}

// ListFolders lists the user's quick-access folders ordered by position
func (s *quickAccessLinker) ListFolders(ctx context.Context, userID string) ([]models.QuickAccessFolder, error) {
	return s.store.QuickAccess().ListFolders(ctx, userID)
}

// DeleteFolder removes a quick-access folder and its items
func (s *quickAccessLinker) DeleteFolder(ctx context.Context, userID, id string) error {
	folder, err := s.store.QuickAccess().GetFolder(ctx, id)
	if err != nil {
		return err
	}
	if folder.UserID != userID {
		return fmt.Errorf("quick access folder %s: %w", id, domain.ErrForbidden)
	}

	if err := s.store.QuickAccess().DeleteFolder(ctx, id); err != nil {
		return err
	}

	s.hub.EntityChanged(models.EntityQuickAccessFolder, id, events.KindDeleted)
	return nil
}

// ReorderFolders rewrites the user's quick-access folder order
func (s *quickAccessLinker) ReorderFolders(ctx context.Context, userID string, req *models.ReorderRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.OrderedIDs, validation.Required),
	); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.store.QuickAccess().BatchReorderFolders(ctx, userID, req.OrderedIDs); err != nil {
		return err
	}

	s.hub.EntityChanged(models.EntityQuickAccessFolder, userID, events.KindReordered)
	return nil
}

// AddItem pins a prompt after validating the reference is readable
func (s *quickAccessLinker) AddItem(ctx context.Context, userID string, req *models.AddQuickAccessItemRequest) (*models.QuickAccessItem, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.QuickAccessFolderID, validation.Required),
		validation.Field(&req.PromptID, validation.Required),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	ref, err := models.NewPromptRef(req.Kind, req.PromptID)
	if err != nil {
		return nil, err
	}

	folder, err := s.store.QuickAccess().GetFolder(ctx, req.QuickAccessFolderID)
	if err != nil {
		return nil, err
	}
	if folder.UserID != userID {
		return nil, fmt.Errorf("quick access folder %s: %w", folder.ID, domain.ErrForbidden)
	}

	if err := s.validateReadable(ctx, userID, ref); err != nil {
		return nil, err
	}

	item := &models.QuickAccessItem{
		ID:                  uuid.NewString(),
		UserID:              userID,
		QuickAccessFolderID: folder.ID,
		CreatedAt:           time.Now().UTC(),
		UpdatedAt:           time.Now().UTC(),
	}
	if err := item.SetRef(ref); err != nil {
		return nil, err
	}

	err = s.store.Tx().ExecTx(ctx, func(ctx context.Context) error {
		siblings, err := s.itemSiblings(ctx, folder.ID)
		if err != nil {
			return err
		}
		pos, err := placeAfter(ctx, siblings, req.After, func(ctx context.Context, orderedIDs []string) error {
			return s.store.QuickAccess().BatchReorderItems(ctx, folder.ID, orderedIDs)
		})
		if err != nil {
			return err
		}
		item.Position = pos
		return s.store.QuickAccess().UpsertItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("quick access item added",
		"id", item.ID, "user_id", userID, "kind", ref.Kind, "prompt_id", ref.PromptID)
	s.hub.EntityChanged(models.EntityQuickAccessItem, item.ID, events.KindCreated)
	return item, nil
}

// ListItems lists a quick-access folder's items ordered by position
func (s *quickAccessLinker) ListItems(ctx context.Context, userID, quickAccessFolderID string) ([]models.QuickAccessItem, error) {
	folder, err := s.store.QuickAccess().GetFolder(ctx, quickAccessFolderID)
	if err != nil {
		return nil, err
	}
	if folder.UserID != userID {
		return nil, fmt.Errorf("quick access folder %s: %w", quickAccessFolderID, domain.ErrForbidden)
	}
	return s.store.QuickAccess().ListItems(ctx, quickAccessFolderID)
}

// RemoveItem unpins a prompt
func (s *quickAccessLinker) RemoveItem(ctx context.Context, userID, id string) error {
	item, err := s.store.QuickAccess().GetItem(ctx, id)
	if err != nil {
		return err
	}
	if item.UserID != userID {
		return fmt.Errorf("quick access item %s: %w", id, domain.ErrForbidden)
	}

	if err := s.store.QuickAccess().DeleteItem(ctx, id); err != nil {
		return err
	}

	s.hub.EntityChanged(models.EntityQuickAccessItem, id, events.KindDeleted)
	return nil
}

// ReorderItems rewrites a quick-access folder's item order
func (s *quickAccessLinker) ReorderItems(ctx context.Context, userID, quickAccessFolderID string, req *models.ReorderRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.OrderedIDs, validation.Required),
	); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	folder, err := s.store.QuickAccess().GetFolder(ctx, quickAccessFolderID)
	if err != nil {
		return err
	}
	if folder.UserID != userID {
		return fmt.Errorf("quick access folder %s: %w", quickAccessFolderID, domain.ErrForbidden)
	}

	if err := s.store.QuickAccess().BatchReorderItems(ctx, quickAccessFolderID, req.OrderedIDs); err != nil {
		return err
	}

	s.hub.EntityChanged(models.EntityQuickAccessItem, quickAccessFolderID, events.KindReordered)
	return nil
}

// ReconcileOnPromptDeleted removes every item referencing the deleted
// prompt, both reference kinds, across all users
func (s *quickAccessLinker) ReconcileOnPromptDeleted(ctx context.Context, promptID string) error {
	removed, err := s.store.QuickAccess().DeleteByPromptID(ctx, promptID)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.logger.Info("quick access items reconciled", "prompt_id", promptID, "removed", removed)
	}
	return nil
}

// ReconcileOnUnsubscribe removes the subscriber's items whose subscribed
// reference points into the shared folder they just left
func (s *quickAccessLinker) ReconcileOnUnsubscribe(ctx context.Context, subscriberID, sharedFolderID string) error {
	share, err := s.store.Shares().GetByID(ctx, sharedFolderID)
	if err != nil {
		return err
	}

	prompts, err := s.store.Prompts().ListByFolder(ctx, share.FolderID)
	if err != nil {
		return err
	}
	if len(prompts) == 0 {
		return nil
	}

	ids := make([]string, len(prompts))
	for i, p := range prompts {
		ids[i] = p.ID
	}

	removed, err := s.store.QuickAccess().DeleteSubscribedRefs(ctx, subscriberID, ids)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.logger.Info("quick access items reconciled after unsubscribe",
			"subscriber_id", subscriberID, "shared_folder_id", sharedFolderID, "removed", removed)
	}
	return nil
}

// validateReadable enforces the reference rule: owned prompts must belong to
// the user; subscribed prompts must be reachable through one of the user's
// subscriptions.
func (s *quickAccessLinker) validateReadable(ctx context.Context, userID string, ref models.PromptRef) error {
	prompt, err := s.store.Prompts().GetByID(ctx, ref.PromptID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("prompt %s: %w", ref.PromptID, domain.ErrInvalidReference)
		}
		return err
	}

	switch ref.Kind {
	case models.RefOwned:
		if prompt.UserID != userID {
			return fmt.Errorf("prompt %s is not owned by the user: %w", ref.PromptID, domain.ErrInvalidReference)
		}
		return nil
	case models.RefSubscribed:
		share, err := s.store.Shares().GetActiveByFolder(ctx, prompt.FolderID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("prompt %s is not shared: %w", ref.PromptID, domain.ErrInvalidReference)
			}
			return err
		}
		if _, err := s.store.Subscriptions().GetBySubscriberAndShare(ctx, userID, share.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("no subscription covers prompt %s: %w", ref.PromptID, domain.ErrInvalidReference)
			}
			return err
		}
		return nil
	default:
		return fmt.Errorf("unknown reference kind %q: %w", ref.Kind, domain.ErrInvalidReference)
	}
}

func (s *quickAccessLinker) folderSiblings(ctx context.Context, userID string) ([]sibling, error) {
	folders, err := s.store.QuickAccess().ListFolders(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]sibling, len(folders))
	for i, f := range folders {
		out[i] = sibling{id: f.ID, position: f.Position}
	}
	return out, nil
}

func (s *quickAccessLinker) itemSiblings(ctx context.Context, quickAccessFolderID string) ([]sibling, error) {
	items, err := s.store.QuickAccess().ListItems(ctx, quickAccessFolderID)
	if err != nil {
		return nil, err
	}
	out := make([]sibling, len(items))
	for i, item := range items {
		out[i] = sibling{id: item.ID, position: item.Position}
	}
	return out, nil
}

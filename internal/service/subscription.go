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
	"promptdeck/internal/sharecode"
)

// shareCodeMints bounds code generation per ShareFolder call. Collisions in
// an 8-character space are vanishingly rare; more than a couple in a row
// means something other than luck is wrong.
const shareCodeMints = 3

type subscriptionResolver struct {
	store    repositories.Store
	identity services.IdentityProvider
	linker   services.QuickAccessLinker
	hub      *events.Hub
	logger   *slog.Logger
}

// NewSubscriptionResolver creates the sharing and subscription service.
// The linker handles the quick-access cascade on unsubscribe.
func NewSubscriptionResolver(
	store repositories.Store,
	identity services.IdentityProvider,
	linker services.QuickAccessLinker,
	hub *events.Hub,
	logger *slog.Logger,
) services.SubscriptionResolver {
	return &subscriptionResolver{
		store:    store,
		identity: identity,
		linker:   linker,
		hub:      hub,
		logger:   logger,
	}
}

// ShareFolder creates the single active share for a folder. Idempotent for
// an already active share; re-sharing a revoked folder mints a fresh code.
func (s *subscriptionResolver) ShareFolder(ctx context.Context, ownerID, folderID string, req *models.ShareFolderRequest) (*models.SharedFolder, error) {
	folder, err := s.store.Folders().GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.UserID != ownerID {
		return nil, fmt.Errorf("folder %s: %w", folderID, domain.ErrForbidden)
	}

	existing, err := s.store.Shares().GetActiveByFolder(ctx, folderID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	share := &models.SharedFolder{
		ID:        uuid.NewString(),
		FolderID:  folderID,
		OwnerID:   ownerID,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if req != nil {
		share.SourceLabel = req.SourceLabel
	}

	// The partial unique index on active codes is the collision arbiter:
	// a clash comes back as ErrConstraint and we mint again.
	for attempt := 0; ; attempt++ {
		code, err := sharecode.New()
		if err != nil {
			return nil, err
		}
		share.ShareCode = code

		err = s.store.Shares().Upsert(ctx, share)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConstraint) || attempt >= shareCodeMints-1 {
			return nil, err
		}
		s.logger.Debug("share code collision, regenerating", "folder_id", folderID, "attempt", attempt+1)
	}

	s.logger.Info("folder shared", "folder_id", folderID, "share_id", share.ID, "code", share.ShareCode)
	s.hub.EntityChanged(models.EntitySharedFolder, share.ID, events.KindCreated)
	return share, nil
}

// RevokeShare deactivates a folder's active share. Existing subscriptions
// stay; only future code resolution stops.
func (s *subscriptionResolver) RevokeShare(ctx context.Context, ownerID, folderID string) error {
	share, err := s.store.Shares().GetActiveByFolder(ctx, folderID)
	if err != nil {
		return err
	}
	if share.OwnerID != ownerID {
		return fmt.Errorf("share %s: %w", share.ID, domain.ErrForbidden)
	}

	share.IsActive = false
	share.UpdatedAt = time.Now().UTC()
	if err := s.store.Shares().Upsert(ctx, share); err != nil {
		return err
	}

	s.logger.Info("share revoked", "folder_id", folderID, "share_id", share.ID)
	s.hub.EntityChanged(models.EntitySharedFolder, share.ID, events.KindUpdated)
	return nil
}

// Subscribe resolves a share code or link and subscribes the user
func (s *subscriptionResolver) Subscribe(ctx context.Context, subscriberID string, req *models.SubscribeRequest) (*models.SubscriptionView, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Code, validation.Required),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	code := sharecode.Parse(req.Code)
	share, err := s.store.Shares().GetActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if share.OwnerID == subscriberID {
		return nil, fmt.Errorf("share %s: %w", code, domain.ErrSelfSubscription)
	}

	if _, err := s.store.Subscriptions().GetBySubscriberAndShare(ctx, subscriberID, share.ID); err == nil {
		return nil, fmt.Errorf("share %s: %w", code, domain.ErrAlreadySubscribed)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	sub := &models.Subscription{
		ID:             uuid.NewString(),
		SubscriberID:   subscriberID,
		SharedFolderID: share.ID,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	// The unique (subscriber, shared folder) index backstops the check
	// above against a concurrent duplicate attempt.
	if err := s.store.Subscriptions().Create(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("subscribed", "subscriber_id", subscriberID, "share_id", share.ID)
	s.hub.EntityChanged(models.EntitySubscription, sub.ID, events.KindCreated)

	view, err := s.view(ctx, sub, share)
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Unsubscribe removes a subscription and cascades into quick access
func (s *subscriptionResolver) Unsubscribe(ctx context.Context, subscriberID, subscriptionID string) error {
	sub, err := s.store.Subscriptions().GetByID(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub.SubscriberID != subscriberID {
		return fmt.Errorf("subscription %s: %w", subscriptionID, domain.ErrForbidden)
	}

	if err := s.store.Subscriptions().Delete(ctx, subscriptionID); err != nil {
		return err
	}
	if err := s.linker.ReconcileOnUnsubscribe(ctx, subscriberID, sub.SharedFolderID); err != nil {
		// The subscription is already gone; the dangling items are
		// unreadable but should not fail the unsubscribe.
		s.logger.Warn("quick access cleanup failed after unsubscribe",
			"subscription_id", subscriptionID, "error", err)
	}

	s.logger.Info("unsubscribed", "subscriber_id", subscriberID, "subscription_id", subscriptionID)
	s.hub.EntityChanged(models.EntitySubscription, subscriptionID, events.KindDeleted)
	return nil
}

// ListSubscriptions returns live views of every subscription
func (s *subscriptionResolver) ListSubscriptions(ctx context.Context, subscriberID string) ([]models.SubscriptionView, error) {
	subs, err := s.store.Subscriptions().ListBySubscriber(ctx, subscriberID)
	if err != nil {
		return nil, err
	}

	views := make([]models.SubscriptionView, 0, len(subs))
	for i := range subs {
		share, err := s.store.Shares().GetByID(ctx, subs[i].SharedFolderID)
		if err != nil {
			return nil, err
		}
		view, err := s.view(ctx, &subs[i], share)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

// SubscriptionPrompts returns the live prompt list of one subscription
func (s *subscriptionResolver) SubscriptionPrompts(ctx context.Context, subscriberID, subscriptionID string) ([]models.Prompt, error) {
	sub, err := s.store.Subscriptions().GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.SubscriberID != subscriberID {
		return nil, fmt.Errorf("subscription %s: %w", subscriptionID, domain.ErrForbidden)
	}

	share, err := s.store.Shares().GetByID(ctx, sub.SharedFolderID)
	if err != nil {
		return nil, err
	}
	return s.store.Prompts().ListByFolder(ctx, share.FolderID)
}

// view materializes the read model: folder name, owner email and the live
// prompt list. Prompts are read through at call time, never snapshotted, so
// owner edits and deletions surface immediately.
func (s *subscriptionResolver) view(ctx context.Context, sub *models.Subscription, share *models.SharedFolder) (*models.SubscriptionView, error) {
	view := &models.SubscriptionView{Subscription: *sub}

	folder, err := s.store.Folders().GetByID(ctx, share.FolderID)
	switch {
	case err == nil:
		view.FolderName = folder.Name
	case errors.Is(err, domain.ErrNotFound):
		// Owner deleted the folder; the subscription lingers with an
		// empty view until the subscriber unsubscribes.
	default:
		return nil, err
	}

	email, err := s.identity.EmailByID(ctx, share.OwnerID)
	if err != nil {
		s.logger.Warn("owner email lookup failed", "owner_id", share.OwnerID, "error", err)
	} else {
		view.OwnerEmail = email
	}

	prompts, err := s.store.Prompts().ListByFolder(ctx, share.FolderID)
	if err != nil {
		return nil, err
	}
	view.Prompts = prompts

	return view, nil
}

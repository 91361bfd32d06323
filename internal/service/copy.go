package service

import (
	"context"
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

type copyResolver struct {
	store  repositories.Store
	hub    *events.Hub
	logger *slog.Logger
}

// NewCopyResolver creates the copy service
func NewCopyResolver(store repositories.Store, hub *events.Hub, logger *slog.Logger) services.CopyResolver {
	return &copyResolver{
		store:  store,
		hub:    hub,
		logger: logger,
	}
}

// CopyToMine copies a subscribed prompt into one of the user's own folders.
// The copy is independent: fresh id, verbatim title and text, provenance
// markers set, appended at the destination tail. Later edits or deletions of
// the source never reach the copy.
func (s *copyResolver) CopyToMine(ctx context.Context, userID, promptID string, req *models.CopyPromptRequest) (*models.Prompt, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.SubscriptionID, validation.Required),
		validation.Field(&req.DestinationFolderID, validation.Required),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	sub, err := s.store.Subscriptions().GetByID(ctx, req.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.SubscriberID != userID {
		return nil, fmt.Errorf("subscription %s: %w", req.SubscriptionID, domain.ErrForbidden)
	}

	share, err := s.store.Shares().GetByID(ctx, sub.SharedFolderID)
	if err != nil {
		return nil, err
	}

	source, err := s.store.Prompts().GetByID(ctx, promptID)
	if err != nil {
		return nil, err
	}
	if source.FolderID != share.FolderID {
		return nil, fmt.Errorf("prompt %s is outside the subscribed folder: %w", promptID, domain.ErrInvalidReference)
	}

	dest, err := s.store.Folders().GetByID(ctx, req.DestinationFolderID)
	if err != nil {
		return nil, err
	}
	if dest.UserID != userID {
		return nil, fmt.Errorf("folder %s: %w", dest.ID, domain.ErrForbidden)
	}

	cp := &models.Prompt{
		ID:             uuid.NewString(),
		FolderID:       dest.ID,
		UserID:         userID,
		Title:          source.Title,
		Text:           source.Text,
		IsImportedCopy: true,
		IsUneditedCopy: true,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}

	err = s.store.Tx().ExecTx(ctx, func(ctx context.Context) error {
		existing, err := s.store.Prompts().ListByFolder(ctx, dest.ID)
		if err != nil {
			return err
		}
		siblings := make([]sibling, len(existing))
		for i, p := range existing {
			siblings[i] = sibling{id: p.ID, position: p.Position}
		}
		var after *string
		if len(siblings) > 0 {
			after = &siblings[len(siblings)-1].id
		}
		pos, err := placeAfter(ctx, siblings, after, func(ctx context.Context, orderedIDs []string) error {
			return s.store.Prompts().BatchReorder(ctx, dest.ID, orderedIDs)
		})
		if err != nil {
			return err
		}
		cp.Position = pos
		return s.store.Prompts().Upsert(ctx, cp)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("prompt copied",
		"source_id", source.ID, "copy_id", cp.ID, "user_id", userID, "folder_id", dest.ID)
	s.hub.EntityChanged(models.EntityPrompt, cp.ID, events.KindCreated)

	return cp, nil
}

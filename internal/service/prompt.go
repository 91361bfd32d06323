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

type promptService struct {
	store  repositories.Store
	hub    *events.Hub
	logger *slog.Logger
}

// NewPromptService creates a new prompt service
func NewPromptService(store repositories.Store, hub *events.Hub, logger *slog.Logger) services.PromptService {
	return &promptService{
		store:  store,
		hub:    hub,
		logger: logger,
	}
}

// CreatePrompt creates a prompt in one of the user's folders
func (s *promptService) CreatePrompt(ctx context.Context, userID string, req *models.CreatePromptRequest) (*models.Prompt, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.FolderID, validation.Required),
		validation.Field(&req.Title, validation.Required, validation.Length(1, 500)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	folder, err := s.store.Folders().GetByID(ctx, req.FolderID)
	if err != nil {
		return nil, fmt.Errorf("destination folder: %w", err)
	}
	if folder.UserID != userID {
		return nil, fmt.Errorf("folder %s: %w", folder.ID, domain.ErrForbidden)
	}

	prompt := &models.Prompt{
		ID:        uuid.NewString(),
		FolderID:  folder.ID,
		UserID:    userID,
		Title:     req.Title,
		Text:      req.Text,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	err = s.store.Tx().ExecTx(ctx, func(ctx context.Context) error {
		siblings, err := s.siblings(ctx, folder.ID)
		if err != nil {
			return err
		}
		pos, err := placeAfter(ctx, siblings, req.After, func(ctx context.Context, orderedIDs []string) error {
			return s.store.Prompts().BatchReorder(ctx, folder.ID, orderedIDs)
		})
		if err != nil {
			return err
		}
		prompt.Position = pos
		return s.store.Prompts().Upsert(ctx, prompt)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("prompt created", "id", prompt.ID, "folder_id", folder.ID, "user_id", userID)
	s.hub.EntityChanged(models.EntityPrompt, prompt.ID, events.KindCreated)

	return prompt, nil
}

// GetPrompt retrieves one of the user's prompts
func (s *promptService) GetPrompt(ctx context.Context, userID, id string) (*models.Prompt, error) {
	prompt, err := s.store.Prompts().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if prompt.UserID != userID {
		return nil, fmt.Errorf("prompt %s: %w", id, domain.ErrForbidden)
	}
	return prompt, nil
}

// ListPrompts lists a folder's prompts ordered by position
func (s *promptService) ListPrompts(ctx context.Context, userID, folderID string) ([]models.Prompt, error) {
	folder, err := s.store.Folders().GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.UserID != userID {
		return nil, fmt.Errorf("folder %s: %w", folderID, domain.ErrForbidden)
	}
	return s.store.Prompts().ListByFolder(ctx, folderID)
}

// UpdatePrompt edits title or text. The first edit of an unedited copy
// clears its unedited marker; the imported provenance marker is permanent.
func (s *promptService) UpdatePrompt(ctx context.Context, userID, id string, req *models.UpdatePromptRequest) (*models.Prompt, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.Length(1, 500)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	prompt, err := s.GetPrompt(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	changed := false
	if req.Title != nil && *req.Title != prompt.Title {
		prompt.Title = *req.Title
		changed = true
	}
	if req.Text != nil && *req.Text != prompt.Text {
		prompt.Text = *req.Text
		changed = true
	}
	if !changed {
		return prompt, nil
	}

	if prompt.IsUneditedCopy {
		prompt.IsUneditedCopy = false
	}
	prompt.UpdatedAt = time.Now().UTC()

	if err := s.store.Prompts().Upsert(ctx, prompt); err != nil {
		return nil, err
	}

	s.hub.EntityChanged(models.EntityPrompt, prompt.ID, events.KindUpdated)
	return prompt, nil
}

// DeletePrompt soft-deletes a prompt and publishes the deletion so
// quick-access references get reconciled
func (s *promptService) DeletePrompt(ctx context.Context, userID, id string) error {
	prompt, err := s.GetPrompt(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.store.Prompts().SoftDelete(ctx, prompt.ID); err != nil {
		return err
	}

	s.logger.Info("prompt deleted", "id", prompt.ID, "user_id", userID)
	s.hub.EntityChanged(models.EntityPrompt, prompt.ID, events.KindDeleted)
	return nil
}

// MovePrompt places a prompt under a folder directly after a sibling
func (s *promptService) MovePrompt(ctx context.Context, userID, id string, req *models.MoveRequest) (*models.Prompt, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.ParentID, validation.Required),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	prompt, err := s.GetPrompt(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	dest, err := s.store.Folders().GetByID(ctx, req.ParentID)
	if err != nil {
		return nil, fmt.Errorf("destination folder: %w", err)
	}
	if dest.UserID != userID {
		return nil, fmt.Errorf("folder %s: %w", dest.ID, domain.ErrForbidden)
	}

	err = s.store.Tx().ExecTx(ctx, func(ctx context.Context) error {
		all, err := s.siblings(ctx, dest.ID)
		if err != nil {
			return err
		}
		// The prompt itself is not a placement candidate when moving
		// within its current folder.
		siblings := all[:0:0]
		for _, sib := range all {
			if sib.id != prompt.ID {
				siblings = append(siblings, sib)
			}
		}
		pos, err := placeAfter(ctx, siblings, req.After, func(ctx context.Context, orderedIDs []string) error {
			return s.store.Prompts().BatchReorder(ctx, dest.ID, orderedIDs)
		})
		if err != nil {
			return err
		}
		prompt.FolderID = dest.ID
		prompt.Position = pos
		prompt.UpdatedAt = time.Now().UTC()
		return s.store.Prompts().Upsert(ctx, prompt)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("prompt moved", "id", prompt.ID, "folder_id", dest.ID)
	s.hub.EntityChanged(models.EntityPrompt, prompt.ID, events.KindUpdated)
	return prompt, nil
}

// ReorderPrompts rewrites a folder's prompt order from the full id sequence
func (s *promptService) ReorderPrompts(ctx context.Context, userID, folderID string, req *models.ReorderRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.OrderedIDs, validation.Required),
	); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	folder, err := s.store.Folders().GetByID(ctx, folderID)
	if err != nil {
		return err
	}
	if folder.UserID != userID {
		return fmt.Errorf("folder %s: %w", folderID, domain.ErrForbidden)
	}

	if err := s.store.Prompts().BatchReorder(ctx, folderID, req.OrderedIDs); err != nil {
		return err
	}

	s.hub.EntityChanged(models.EntityPrompt, folderID, events.KindReordered)
	return nil
}

// RecordUse bumps the prompt's use count and last-used timestamp
func (s *promptService) RecordUse(ctx context.Context, userID, id string) (*models.Prompt, error) {
	prompt, err := s.GetPrompt(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	prompt.UseCount++
	prompt.LastUsedAt = &now
	prompt.UpdatedAt = now

	if err := s.store.Prompts().Upsert(ctx, prompt); err != nil {
		return nil, err
	}

	s.hub.EntityChanged(models.EntityPrompt, prompt.ID, events.KindUpdated)
	return prompt, nil
}

func (s *promptService) siblings(ctx context.Context, folderID string) ([]sibling, error) {
	prompts, err := s.store.Prompts().ListByFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	out := make([]sibling, len(prompts))
	for i, p := range prompts {
		out[i] = sibling{id: p.ID, position: p.Position}
	}
	return out, nil
}

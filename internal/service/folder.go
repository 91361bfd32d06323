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

type folderService struct {
	store  repositories.Store
	hub    *events.Hub
	logger *slog.Logger
}

// NewFolderService creates a new folder service
func NewFolderService(store repositories.Store, hub *events.Hub, logger *slog.Logger) services.FolderService {
	return &folderService{
		store:  store,
		hub:    hub,
		logger: logger,
	}
}

// CreateFolder creates a folder positioned after the given sibling
func (s *folderService) CreateFolder(ctx context.Context, userID string, req *models.CreateFolderRequest) (*models.Folder, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 255)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	folder := &models.Folder{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      req.Name,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	err := s.store.Tx().ExecTx(ctx, func(ctx context.Context) error {
		siblings, err := s.siblings(ctx, userID)
		if err != nil {
			return err
		}
		pos, err := placeAfter(ctx, siblings, req.After, func(ctx context.Context, orderedIDs []string) error {
			return s.store.Folders().BatchReorder(ctx, userID, orderedIDs)
		})
		if err != nil {
			return err
		}
		folder.Position = pos
		return s.store.Folders().Upsert(ctx, folder)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder created", "id", folder.ID, "user_id", userID, "name", folder.Name)
	s.hub.EntityChanged(models.EntityFolder, folder.ID, events.KindCreated)

	return folder, nil
}

// GetFolder retrieves one of the user's folders
func (s *folderService) GetFolder(ctx context.Context, userID, id string) (*models.Folder, error) {
	folder, err := s.store.Folders().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if folder.UserID != userID {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrForbidden)
	}
	return folder, nil
}

// ListFolders lists the user's folders ordered by position
func (s *folderService) ListFolders(ctx context.Context, userID string) ([]models.Folder, error) {
	return s.store.Folders().ListByUser(ctx, userID)
}

// UpdateFolder renames a folder
func (s *folderService) UpdateFolder(ctx context.Context, userID, id string, req *models.UpdateFolderRequest) (*models.Folder, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.Length(1, 255)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	folder, err := s.GetFolder(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		folder.Name = *req.Name
	}
	folder.UpdatedAt = time.Now().UTC()

	if err := s.store.Folders().Upsert(ctx, folder); err != nil {
		return nil, err
	}

	s.hub.EntityChanged(models.EntityFolder, folder.ID, events.KindUpdated)
	return folder, nil
}

// DeleteFolder soft-deletes a folder and every prompt it contains. Each
// prompt deletion is published so quick-access references get reconciled.
func (s *folderService) DeleteFolder(ctx context.Context, userID, id string) error {
	folder, err := s.GetFolder(ctx, userID, id)
	if err != nil {
		return err
	}

	var deletedPrompts []string
	err = s.store.Tx().ExecTx(ctx, func(ctx context.Context) error {
		prompts, err := s.store.Prompts().ListByFolder(ctx, folder.ID)
		if err != nil {
			return err
		}
		for _, p := range prompts {
			if err := s.store.Prompts().SoftDelete(ctx, p.ID); err != nil {
				return err
			}
			deletedPrompts = append(deletedPrompts, p.ID)
		}
		return s.store.Folders().SoftDelete(ctx, folder.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("folder deleted", "id", folder.ID, "user_id", userID, "prompts", len(deletedPrompts))
	for _, promptID := range deletedPrompts {
		s.hub.EntityChanged(models.EntityPrompt, promptID, events.KindDeleted)
	}
	s.hub.EntityChanged(models.EntityFolder, folder.ID, events.KindDeleted)

	return nil
}

// ReorderFolders rewrites the user's folder order from the full id sequence
func (s *folderService) ReorderFolders(ctx context.Context, userID string, req *models.ReorderRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.OrderedIDs, validation.Required),
	); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.store.Folders().BatchReorder(ctx, userID, req.OrderedIDs); err != nil {
		return err
	}

	s.hub.EntityChanged(models.EntityFolder, userID, events.KindReordered)
	return nil
}

func (s *folderService) siblings(ctx context.Context, userID string) ([]sibling, error) {
	folders, err := s.store.Folders().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]sibling, len(folders))
	for i, f := range folders {
		out[i] = sibling{id: f.ID, position: f.Position}
	}
	return out, nil
}

package services

import (
	"context"

	"promptdeck/internal/domain/models"
)

// PromptService handles prompt business logic
type PromptService interface {
	// CreatePrompt creates a prompt in one of the user's folders, positioned
	// after the given sibling (nil = head).
	CreatePrompt(ctx context.Context, userID string, req *models.CreatePromptRequest) (*models.Prompt, error)

	// GetPrompt retrieves one of the user's prompts.
	GetPrompt(ctx context.Context, userID, id string) (*models.Prompt, error)

	// ListPrompts lists a folder's prompts ordered by position.
	ListPrompts(ctx context.Context, userID, folderID string) ([]models.Prompt, error)

	// UpdatePrompt edits title or text. Editing an unedited copy clears its
	// unedited marker; the imported provenance marker never changes.
	UpdatePrompt(ctx context.Context, userID, id string, req *models.UpdatePromptRequest) (*models.Prompt, error)

	// DeletePrompt soft-deletes a prompt. Quick-access items referencing it
	// are removed through the change notification cascade.
	DeletePrompt(ctx context.Context, userID, id string) error

	// MovePrompt places a prompt under a folder, directly after a sibling
	// (nil = head). Cross-folder moves re-home the prompt.
	MovePrompt(ctx context.Context, userID, id string, req *models.MoveRequest) (*models.Prompt, error)

	// ReorderPrompts rewrites a folder's prompt order atomically from the
	// full intended id sequence.
	ReorderPrompts(ctx context.Context, userID, folderID string, req *models.ReorderRequest) error

	// RecordUse bumps the prompt's use count and last-used timestamp.
	RecordUse(ctx context.Context, userID, id string) (*models.Prompt, error)
}

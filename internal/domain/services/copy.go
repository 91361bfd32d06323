package services

import (
	"context"

	"promptdeck/internal/domain/models"
)

// CopyResolver materializes subscribed prompts into a user's own folders.
// A copy is an independent prompt: verbatim title and text, fresh id,
// provenance markers set, no link back to the source.
type CopyResolver interface {
	CopyToMine(ctx context.Context, userID, promptID string, req *models.CopyPromptRequest) (*models.Prompt, error)
}

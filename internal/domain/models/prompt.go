package models

import (
	"time"
)

// Prompt is a titled text snippet, the unit of reuse.
type Prompt struct {
	ID             string     `json:"id" db:"id"`
	FolderID       string     `json:"folder_id" db:"folder_id"`
	UserID         string     `json:"user_id" db:"user_id"`
	Title          string     `json:"title" db:"title"`
	Text           string     `json:"text" db:"text"`
	Position       int64      `json:"position" db:"position"`
	IsImportedCopy bool       `json:"is_imported_copy" db:"is_imported_copy"`
	IsUneditedCopy bool       `json:"is_unedited_copy" db:"is_unedited_copy"`
	UseCount       int        `json:"use_count" db:"use_count"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Deleted reports whether the prompt is soft-deleted.
func (p *Prompt) Deleted() bool {
	return p.DeletedAt != nil
}

type CreatePromptRequest struct {
	FolderID string  `json:"folder_id"`
	Title    string  `json:"title"`
	Text     string  `json:"text"`
	After    *string `json:"after,omitempty"`
}

type UpdatePromptRequest struct {
	Title *string `json:"title,omitempty"`
	Text  *string `json:"text,omitempty"`
}

type CopyPromptRequest struct {
	SubscriptionID      string `json:"subscription_id"`
	DestinationFolderID string `json:"destination_folder_id"`
}

package models

import (
	"time"
)

// Folder is a user-owned ordered container of prompts.
type Folder struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	Name      string     `json:"name" db:"name"`
	Position  int64      `json:"position" db:"position"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

type CreateFolderRequest struct {
	Name  string  `json:"name"`
	After *string `json:"after,omitempty"` // sibling folder id to insert after; nil = head
}

type UpdateFolderRequest struct {
	Name *string `json:"name,omitempty"`
}

// ReorderRequest carries the full intended sibling order for a parent.
type ReorderRequest struct {
	OrderedIDs []string `json:"ordered_ids"`
}

// MoveRequest is the pure intent form of a drag gesture: place the item
// under a parent, directly after a sibling (nil = head).
type MoveRequest struct {
	ParentID string  `json:"parent_id"`
	After    *string `json:"after,omitempty"`
}

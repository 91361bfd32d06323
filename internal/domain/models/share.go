package models

import (
	"time"
)

// SharedFolder marks a folder as shared. At most one active share exists per
// folder; the share code is unique among active shares. Deactivating a share
// stops future code resolution but does not revoke existing subscriptions.
type SharedFolder struct {
	ID          string    `json:"id" db:"id"`
	FolderID    string    `json:"folder_id" db:"folder_id"`
	OwnerID     string    `json:"owner_id" db:"owner_id"`
	ShareCode   string    `json:"share_code" db:"share_code"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	SourceLabel string    `json:"source_label,omitempty" db:"source_label"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Subscription is a subscriber's read-only link to another user's shared
// folder. Unique per (subscriber, shared folder); hard-deleted on unsubscribe.
type Subscription struct {
	ID             string    `json:"id" db:"id"`
	SubscriberID   string    `json:"subscriber_id" db:"subscriber_id"`
	SharedFolderID string    `json:"shared_folder_id" db:"shared_folder_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// SubscriptionView is the materialized read model returned to subscribers:
// the subscription row plus the folder name, owner email and the live list of
// the shared folder's non-deleted prompts ordered by position. Prompts are
// read through at query time, never snapshotted.
type SubscriptionView struct {
	Subscription Subscription `json:"subscription"`
	FolderName   string       `json:"folder_name"`
	OwnerEmail   string       `json:"owner_email"`
	Prompts      []Prompt     `json:"prompts"`
}

type SubscribeRequest struct {
	// Code is either a bare share code or a full share link (".../s/<code>").
	Code string `json:"code"`
}

type ShareFolderRequest struct {
	SourceLabel string `json:"source_label,omitempty"`
}

package models

import (
	"encoding/json"
	"time"
)

// EntityType names one of the synced tables. Values match the remote table
// names without prefix.
type EntityType string

const (
	EntityFolder            EntityType = "folders"
	EntityPrompt            EntityType = "prompts"
	EntitySharedFolder      EntityType = "shared_folders"
	EntitySubscription      EntityType = "subscriptions"
	EntityQuickAccessFolder EntityType = "quick_access_folders"
	EntityQuickAccessItem   EntityType = "quick_access_items"
)

// MutationOp is the kind of write a queued mutation performs.
type MutationOp string

const (
	OpUpsert  MutationOp = "upsert"
	OpDelete  MutationOp = "delete"
	OpReorder MutationOp = "reorder"
)

// Mutation is the generic persisted form of a local write queued for push to
// the remote store. Upserts carry the full entity JSON; deletes carry only
// the id; reorders carry a ReorderPayload and use the parent id as EntityID.
type Mutation struct {
	ID        string          `json:"id"`
	Entity    EntityType      `json:"entity"`
	EntityID  string          `json:"entity_id"`
	Op        MutationOp      `json:"op"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ReorderPayload is the payload of an OpReorder mutation: the full intended
// sibling order under one parent.
type ReorderPayload struct {
	ParentID   string   `json:"parent_id"`
	OrderedIDs []string `json:"ordered_ids"`
}

// Change is one remote delta returned by a pull. Payload is the full entity
// JSON as stored remotely; Deleted marks soft-deleted rows.
type Change struct {
	Entity    EntityType      `json:"entity"`
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
	Deleted   bool            `json:"deleted"`
}

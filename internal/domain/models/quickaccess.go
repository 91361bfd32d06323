package models

import (
	"fmt"
	"time"

	"promptdeck/internal/domain"
)

// RefKind discriminates a quick-access reference.
type RefKind string

const (
	RefOwned      RefKind = "owned"
	RefSubscribed RefKind = "subscribed"
)

// PromptRef is the tagged form of a quick-access reference: exactly one kind,
// exactly one prompt id. The persisted form uses two nullable columns with a
// check constraint; construction through NewPromptRef keeps the two in sync.
type PromptRef struct {
	Kind     RefKind `json:"kind"`
	PromptID string  `json:"prompt_id"`
}

// NewPromptRef validates the discriminator and builds a reference.
func NewPromptRef(kind RefKind, promptID string) (PromptRef, error) {
	if promptID == "" {
		return PromptRef{}, fmt.Errorf("prompt id required: %w", domain.ErrConstraint)
	}
	switch kind {
	case RefOwned, RefSubscribed:
		return PromptRef{Kind: kind, PromptID: promptID}, nil
	default:
		return PromptRef{}, fmt.Errorf("unknown reference kind %q: %w", kind, domain.ErrConstraint)
	}
}

// QuickAccessFolder is a user's personal shortcut list container.
type QuickAccessFolder struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Position  int64     `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// QuickAccessItem pins an owned or subscribed prompt into a quick-access
// folder. Exactly one of OwnedPromptID / SubscribedPromptID is set.
type QuickAccessItem struct {
	ID                  string    `json:"id" db:"id"`
	UserID              string    `json:"user_id" db:"user_id"`
	QuickAccessFolderID string    `json:"quick_access_folder_id" db:"quick_access_folder_id"`
	Position            int64     `json:"position" db:"position"`
	OwnedPromptID       *string   `json:"owned_prompt_id,omitempty" db:"owned_prompt_id"`
	SubscribedPromptID  *string   `json:"subscribed_prompt_id,omitempty" db:"subscribed_prompt_id"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// Ref decodes the persisted nullable columns back into the tagged form.
// Returns ErrConstraint if both or neither column is set.
func (i *QuickAccessItem) Ref() (PromptRef, error) {
	switch {
	case i.OwnedPromptID != nil && i.SubscribedPromptID == nil:
		return PromptRef{Kind: RefOwned, PromptID: *i.OwnedPromptID}, nil
	case i.OwnedPromptID == nil && i.SubscribedPromptID != nil:
		return PromptRef{Kind: RefSubscribed, PromptID: *i.SubscribedPromptID}, nil
	default:
		return PromptRef{}, fmt.Errorf("quick access item %s: %w", i.ID, domain.ErrConstraint)
	}
}

// SetRef writes the tagged reference into the nullable columns, clearing the
// other side.
func (i *QuickAccessItem) SetRef(ref PromptRef) error {
	switch ref.Kind {
	case RefOwned:
		id := ref.PromptID
		i.OwnedPromptID = &id
		i.SubscribedPromptID = nil
	case RefSubscribed:
		id := ref.PromptID
		i.SubscribedPromptID = &id
		i.OwnedPromptID = nil
	default:
		return fmt.Errorf("unknown reference kind %q: %w", ref.Kind, domain.ErrConstraint)
	}
	return nil
}

type AddQuickAccessItemRequest struct {
	QuickAccessFolderID string  `json:"quick_access_folder_id"`
	Kind                RefKind `json:"kind"`
	PromptID            string  `json:"prompt_id"`
	After               *string `json:"after,omitempty"`
}

type CreateQuickAccessFolderRequest struct {
	Name  string  `json:"name"`
	After *string `json:"after,omitempty"`
}

package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"promptdeck/internal/domain"
	"promptdeck/internal/domain/events"
	"promptdeck/internal/domain/models"
	"promptdeck/internal/domain/repositories"
)

// Recorder observes entity change notifications from the local store's write
// paths and enqueues the matching mutations for push. It reads the written
// entity back from the local store so the queued payload is the final form.
type Recorder struct {
	local   repositories.Store
	enqueue func(models.Mutation)
	logger  *slog.Logger
}

// NewRecorder builds a recorder feeding the reconciler's queue. Register it
// on the hub the services publish to.
func NewRecorder(local repositories.Store, r *Reconciler, logger *slog.Logger) *Recorder {
	return &Recorder{
		local:   local,
		enqueue: r.Enqueue,
		logger:  logger,
	}
}

var _ events.Notifier = (*Recorder)(nil)

// EntityChanged implements events.Notifier. For reordered notifications the
// id carries the parent whose children were reordered.
func (rec *Recorder) EntityChanged(entity models.EntityType, id string, kind events.ChangeKind) {
	if kind.Merged() {
		// Pull merges are remote state already; queueing them again would
		// push an echo of the row we just received.
		return
	}

	ctx := context.Background()

	m := models.Mutation{
		ID:        uuid.NewString(),
		Entity:    entity,
		EntityID:  id,
		UpdatedAt: time.Now().UTC(),
	}

	switch kind {
	case events.KindDeleted:
		m.Op = models.OpDelete
	case events.KindReordered:
		m.Op = models.OpReorder
		payload, err := rec.reorderPayload(ctx, entity, id)
		if err != nil {
			rec.logger.Error("record reorder failed", "entity", entity, "parent_id", id, "error", err)
			return
		}
		m.Payload = payload
	default:
		m.Op = models.OpUpsert
		payload, err := rec.entityPayload(ctx, entity, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Written and removed before we read it back; the delete
				// notification carries the final word.
				return
			}
			rec.logger.Error("record upsert failed", "entity", entity, "id", id, "error", err)
			return
		}
		m.Payload = payload
	}

	rec.enqueue(m)
}

func (rec *Recorder) entityPayload(ctx context.Context, entity models.EntityType, id string) (json.RawMessage, error) {
	var v any
	var err error
	switch entity {
	case models.EntityFolder:
		v, err = rec.local.Folders().GetByID(ctx, id)
	case models.EntityPrompt:
		v, err = rec.local.Prompts().GetByID(ctx, id)
	case models.EntitySharedFolder:
		v, err = rec.local.Shares().GetByID(ctx, id)
	case models.EntitySubscription:
		v, err = rec.local.Subscriptions().GetByID(ctx, id)
	case models.EntityQuickAccessFolder:
		v, err = rec.local.QuickAccess().GetFolder(ctx, id)
	case models.EntityQuickAccessItem:
		v, err = rec.local.QuickAccess().GetItem(ctx, id)
	default:
		return nil, fmt.Errorf("unknown entity type %q: %w", entity, domain.ErrValidation)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func (rec *Recorder) reorderPayload(ctx context.Context, entity models.EntityType, parentID string) (json.RawMessage, error) {
	var orderedIDs []string
	switch entity {
	case models.EntityFolder:
		folders, err := rec.local.Folders().ListByUser(ctx, parentID)
		if err != nil {
			return nil, err
		}
		for _, f := range folders {
			orderedIDs = append(orderedIDs, f.ID)
		}
	case models.EntityPrompt:
		prompts, err := rec.local.Prompts().ListByFolder(ctx, parentID)
		if err != nil {
			return nil, err
		}
		for _, p := range prompts {
			orderedIDs = append(orderedIDs, p.ID)
		}
	case models.EntityQuickAccessFolder:
		folders, err := rec.local.QuickAccess().ListFolders(ctx, parentID)
		if err != nil {
			return nil, err
		}
		for _, f := range folders {
			orderedIDs = append(orderedIDs, f.ID)
		}
	case models.EntityQuickAccessItem:
		items, err := rec.local.QuickAccess().ListItems(ctx, parentID)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			orderedIDs = append(orderedIDs, item.ID)
		}
	default:
		return nil, fmt.Errorf("reorder not supported for %q: %w", entity, domain.ErrValidation)
	}

	return json.Marshal(models.ReorderPayload{ParentID: parentID, OrderedIDs: orderedIDs})
}

// Package events carries the entity-change notification contract. The store's
// write paths publish; the quick-access linker and external menu-building
// collaborators subscribe. Observers are notified synchronously in
// registration order; the publisher never polls.
package events

import (
	"sync"

	"promptdeck/internal/domain/models"
)

// ChangeKind is what happened to the entity.
type ChangeKind string

const (
	KindCreated   ChangeKind = "created"
	KindUpdated   ChangeKind = "updated"
	KindDeleted   ChangeKind = "deleted"
	KindReordered ChangeKind = "reordered"

	// Merged kinds mark rows the pull loop wrote from remote state. Observers
	// refresh on them like any other change, but the push recorder must not
	// re-queue them as local edits.
	KindMergedUpdated ChangeKind = "merged-updated"
	KindMergedDeleted ChangeKind = "merged-deleted"
)

// Merged reports whether the change originated from a remote pull rather
// than a local write.
func (k ChangeKind) Merged() bool {
	return k == KindMergedUpdated || k == KindMergedDeleted
}

// Notifier receives entity change notifications.
type Notifier interface {
	EntityChanged(entity models.EntityType, id string, kind ChangeKind)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(entity models.EntityType, id string, kind ChangeKind)

func (f NotifierFunc) EntityChanged(entity models.EntityType, id string, kind ChangeKind) {
	f(entity, id, kind)
}

// Hub fans a notification out to every registered notifier.
type Hub struct {
	mu        sync.RWMutex
	notifiers []Notifier
}

func NewHub() *Hub {
	return &Hub{}
}

// Register adds a notifier. Registration order is notification order.
func (h *Hub) Register(n Notifier) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notifiers = append(h.notifiers, n)
}

// EntityChanged implements Notifier so a Hub can be nested.
func (h *Hub) EntityChanged(entity models.EntityType, id string, kind ChangeKind) {
	h.mu.RLock()
	subs := make([]Notifier, len(h.notifiers))
	copy(subs, h.notifiers)
	h.mu.RUnlock()

	for _, n := range subs {
		n.EntityChanged(entity, id, kind)
	}
}

// Package sync reconciles the local cache store with the remote store.
// Local writes are queued as mutations and pushed in arrival order; remote
// deltas are pulled by watermark and merged last-writer-wins. The engine
// works offline: an unreachable remote pauses the queue without losing it.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"promptdeck/internal/domain"
	"promptdeck/internal/domain/events"
	"promptdeck/internal/domain/models"
	"promptdeck/internal/domain/repositories"
)

// Config tunes the reconciliation loops.
type Config struct {
	PushInterval   time.Duration
	PullInterval   time.Duration
	ReorderRetries int
}

// DefaultConfig returns the tuning used when no configuration is supplied.
func DefaultConfig() Config {
	return Config{
		PushInterval:   2 * time.Second,
		PullInterval:   15 * time.Second,
		ReorderRetries: 3,
	}
}

// Result reports the terminal outcome of one pushed mutation.
type Result struct {
	Mutation models.Mutation
	State    MutationState
	Err      error
}

// Reconciler owns the mutation queue and the push/pull loops. It is the only
// component holding both sides of the sync boundary.
type Reconciler struct {
	local  repositories.Store
	remote repositories.Store
	hub    *events.Hub
	cfg    Config
	logger *slog.Logger

	q      *queue
	online atomic.Bool
	wake   chan struct{}

	resultMu sync.Mutex
	onResult func(Result)

	watermarkMu sync.Mutex
	watermark   time.Time
}

// NewReconciler creates a reconciler. The hub, when non-nil, receives change
// notifications for entities merged during pulls.
func NewReconciler(local, remote repositories.Store, hub *events.Hub, cfg Config, logger *slog.Logger) *Reconciler {
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = DefaultConfig().PushInterval
	}
	if cfg.PullInterval <= 0 {
		cfg.PullInterval = DefaultConfig().PullInterval
	}
	if cfg.ReorderRetries <= 0 {
		cfg.ReorderRetries = DefaultConfig().ReorderRetries
	}
	r := &Reconciler{
		local:  local,
		remote: remote,
		hub:    hub,
		cfg:    cfg,
		logger: logger,
		q:      newQueue(),
		wake:   make(chan struct{}, 1),
	}
	r.online.Store(true)
	return r
}

// OnResult sets the callback invoked with each terminal push outcome.
func (r *Reconciler) OnResult(fn func(Result)) {
	r.resultMu.Lock()
	defer r.resultMu.Unlock()
	r.onResult = fn
}

// Enqueue adds a local mutation to the push queue.
func (r *Reconciler) Enqueue(m models.Mutation) {
	r.q.enqueue(m)
	r.logger.Debug("mutation enqueued", "id", m.ID, "entity", m.Entity, "op", m.Op)
	r.signal()
}

// Cancel removes a still-pending mutation or discards the result of one
// already in flight. Reports whether the id was known to the queue.
func (r *Reconciler) Cancel(mutationID string) bool {
	ok := r.q.cancel(mutationID)
	if ok {
		r.logger.Debug("mutation canceled", "id", mutationID)
	}
	return ok
}

// SetOnline feeds the connectivity signal. Going online resumes the paused
// queue and triggers a pull.
func (r *Reconciler) SetOnline(online bool) {
	was := r.online.Swap(online)
	if !was && online {
		r.logger.Info("connectivity restored, resuming sync")
		r.signal()
	}
	if was && !online {
		r.logger.Info("connectivity lost, pausing sync")
	}
}

// Online reports the current connectivity assumption.
func (r *Reconciler) Online() bool {
	return r.online.Load()
}

// Pending returns the queued mutations in push order.
func (r *Reconciler) Pending() []QueuedMutation {
	return r.q.snapshot()
}

// Watermark returns the high-water updated_at of merged remote changes.
func (r *Reconciler) Watermark() time.Time {
	r.watermarkMu.Lock()
	defer r.watermarkMu.Unlock()
	return r.watermark
}

func (r *Reconciler) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run drives the push and pull loops until the context is canceled.
func (r *Reconciler) Run(ctx context.Context) error {
	pushTicker := time.NewTicker(r.cfg.PushInterval)
	defer pushTicker.Stop()
	pullTicker := time.NewTicker(r.cfg.PullInterval)
	defer pullTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.wake:
			r.Drain(ctx)
			if r.online.Load() {
				if err := r.Pull(ctx); err != nil {
					r.logger.Warn("pull failed", "error", err)
				}
			}
		case <-pushTicker.C:
			r.Drain(ctx)
		case <-pullTicker.C:
			if r.online.Load() {
				if err := r.Pull(ctx); err != nil {
					r.logger.Warn("pull failed", "error", err)
				}
			}
		}
	}
}

// Drain pushes queued mutations in order until the queue empties, the
// remote becomes unreachable, or the context is canceled.
func (r *Reconciler) Drain(ctx context.Context) {
	for r.online.Load() && ctx.Err() == nil {
		head := r.q.next()
		if head == nil {
			return
		}

		err := r.push(ctx, head.Mutation)
		switch {
		case errors.Is(err, domain.ErrNetworkUnavailable):
			r.q.requeue()
			r.online.Store(false)
			r.logger.Warn("remote unreachable, queue paused",
				"mutation_id", head.ID, "pending", r.q.len())
			return
		case err != nil && (domain.Terminal(err) || errors.Is(err, domain.ErrConflict)):
			// A conflict here already survived its bounded retries in push.
			if r.q.settle(StateFailed) {
				r.report(Result{Mutation: head.Mutation, State: StateFailed, Err: err})
			}
			r.logger.Error("mutation failed",
				"id", head.ID, "entity", head.Entity, "op", head.Op, "error", err)
		case err != nil:
			// Unclassified error. Treat like unreachable so nothing is lost.
			r.q.requeue()
			r.logger.Warn("push error, mutation kept", "id", head.ID, "error", err)
			return
		default:
			if r.q.settle(StateAcknowledged) {
				r.report(Result{Mutation: head.Mutation, State: StateAcknowledged})
			}
		}
	}
}

// push applies one mutation to the remote. Reorders that hit a concurrent
// conflict are retried with a fresh local read of the intended order.
func (r *Reconciler) push(ctx context.Context, m models.Mutation) error {
	err := r.remote.ApplyMutation(ctx, m)
	if m.Op != models.OpReorder || !errors.Is(err, domain.ErrConflict) {
		return err
	}

	for attempt := 1; attempt <= r.cfg.ReorderRetries; attempt++ {
		fresh, ferr := r.refreshReorder(ctx, m)
		if ferr != nil {
			return ferr
		}
		err = r.remote.ApplyMutation(ctx, fresh)
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
		r.logger.Debug("reorder conflict, retrying",
			"id", m.ID, "attempt", attempt, "of", r.cfg.ReorderRetries)
	}
	return fmt.Errorf("reorder retries exhausted: %w", domain.ErrConflict)
}

// refreshReorder rebuilds a reorder payload from the current local sibling
// order. Ids the remote no longer has are the usual conflict cause; the
// local order is re-read so the retry carries current intent.
func (r *Reconciler) refreshReorder(ctx context.Context, m models.Mutation) (models.Mutation, error) {
	var payload models.ReorderPayload
	if err := json.Unmarshal(m.Payload, &payload); err != nil {
		return m, fmt.Errorf("decode reorder payload: %w", err)
	}

	var orderedIDs []string
	switch m.Entity {
	case models.EntityFolder:
		folders, err := r.local.Folders().ListByUser(ctx, payload.ParentID)
		if err != nil {
			return m, err
		}
		for _, f := range folders {
			orderedIDs = append(orderedIDs, f.ID)
		}
	case models.EntityPrompt:
		prompts, err := r.local.Prompts().ListByFolder(ctx, payload.ParentID)
		if err != nil {
			return m, err
		}
		for _, p := range prompts {
			orderedIDs = append(orderedIDs, p.ID)
		}
	case models.EntityQuickAccessFolder:
		folders, err := r.local.QuickAccess().ListFolders(ctx, payload.ParentID)
		if err != nil {
			return m, err
		}
		for _, f := range folders {
			orderedIDs = append(orderedIDs, f.ID)
		}
	case models.EntityQuickAccessItem:
		items, err := r.local.QuickAccess().ListItems(ctx, payload.ParentID)
		if err != nil {
			return m, err
		}
		for _, item := range items {
			orderedIDs = append(orderedIDs, item.ID)
		}
	default:
		return m, fmt.Errorf("reorder not supported for %q: %w", m.Entity, domain.ErrValidation)
	}

	payload.OrderedIDs = orderedIDs
	raw, err := json.Marshal(payload)
	if err != nil {
		return m, fmt.Errorf("encode reorder payload: %w", err)
	}
	fresh := m
	fresh.Payload = raw
	fresh.UpdatedAt = time.Now().UTC()
	return fresh, nil
}

// Pull fetches remote changes past the watermark and merges them into the
// local cache. Merging goes through ApplyMutation, so last-writer-wins keeps
// a newer un-pushed local edit over an older remote row.
func (r *Reconciler) Pull(ctx context.Context) error {
	changes, err := r.remote.ChangedSince(ctx, r.Watermark())
	if err != nil {
		if errors.Is(err, domain.ErrNetworkUnavailable) {
			r.online.Store(false)
		}
		return err
	}

	merged := 0
	for _, c := range changes {
		m := models.Mutation{
			ID:        c.ID,
			Entity:    c.Entity,
			EntityID:  c.ID,
			Op:        models.OpUpsert,
			Payload:   c.Payload,
			UpdatedAt: c.UpdatedAt,
		}
		if c.Deleted {
			m.Op = models.OpDelete
		}
		if err := r.local.ApplyMutation(ctx, m); err != nil {
			return fmt.Errorf("merge %s %s: %w", c.Entity, c.ID, err)
		}
		merged++
		r.advanceWatermark(c.UpdatedAt)
		if r.hub != nil {
			kind := events.KindMergedUpdated
			if c.Deleted {
				kind = events.KindMergedDeleted
			}
			r.hub.EntityChanged(c.Entity, c.ID, kind)
		}
	}

	if merged > 0 {
		r.logger.Info("pull merged remote changes", "count", merged, "watermark", r.Watermark())
	}
	return nil
}

func (r *Reconciler) advanceWatermark(t time.Time) {
	r.watermarkMu.Lock()
	defer r.watermarkMu.Unlock()
	if t.After(r.watermark) {
		r.watermark = t
	}
}

func (r *Reconciler) report(res Result) {
	r.resultMu.Lock()
	fn := r.onResult
	r.resultMu.Unlock()
	if fn != nil {
		fn(res)
	}
}

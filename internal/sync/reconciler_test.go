package sync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"promptdeck/internal/domain"
	"promptdeck/internal/domain/events"
	"promptdeck/internal/domain/models"
	"promptdeck/internal/repository/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func upsertMutation(t *testing.T, entity models.EntityType, v interface{ id() string }, updatedAt time.Time) models.Mutation {
	t.Helper()
	payload, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return models.Mutation{
		ID:        "m-" + v.id(),
		Entity:    entity,
		EntityID:  v.id(),
		Op:        models.OpUpsert,
		Payload:   payload,
		UpdatedAt: updatedAt,
	}
}

type folderPayload models.Folder

func (f folderPayload) id() string { return f.ID }

func testFolder(id, userID, name string, at time.Time) folderPayload {
	return folderPayload{
		ID: id, UserID: userID, Name: name,
		Position: 1024, CreatedAt: at, UpdatedAt: at,
	}
}

func TestDrainPushesInArrivalOrder(t *testing.T) {
	ctx := context.Background()
	local := memory.NewStore()
	remote := memory.NewStore()

	var applied []string
	remote.ApplyErr = func(m models.Mutation) error {
		applied = append(applied, m.EntityID)
		return nil
	}

	r := NewReconciler(local, remote, nil, DefaultConfig(), testLogger())

	now := time.Now().UTC()
	for _, id := range []string{"f1", "f2", "f3"} {
		r.Enqueue(upsertMutation(t, models.EntityFolder, testFolder(id, "u", id, now), now))
	}

	r.Drain(ctx)

	want := []string{"f1", "f2", "f3"}
	if len(applied) != len(want) {
		t.Fatalf("applied %d mutations, want %d", len(applied), len(want))
	}
	for i, id := range want {
		if applied[i] != id {
			t.Errorf("applied[%d] = %s, want %s", i, applied[i], id)
		}
	}
	if got := len(r.Pending()); got != 0 {
		t.Errorf("pending = %d after drain, want 0", got)
	}

	got, err := remote.Folders().GetByID(ctx, "f2")
	if err != nil {
		t.Fatalf("remote GetByID: %v", err)
	}
	if got.Name != "f2" {
		t.Errorf("remote folder name = %q", got.Name)
	}
}

func TestUnreachableRemotePausesQueue(t *testing.T) {
	ctx := context.Background()
	local := memory.NewStore()
	remote := memory.NewStore()

	down := true
	remote.ApplyErr = func(m models.Mutation) error {
		if down {
			return domain.ErrNetworkUnavailable
		}
		return nil
	}

	r := NewReconciler(local, remote, nil, DefaultConfig(), testLogger())

	now := time.Now().UTC()
	r.Enqueue(upsertMutation(t, models.EntityFolder, testFolder("f1", "u", "a", now), now))
	r.Enqueue(upsertMutation(t, models.EntityFolder, testFolder("f2", "u", "b", now), now))

	r.Drain(ctx)

	if r.Online() {
		t.Error("reconciler still online after unreachable remote")
	}
	pending := r.Pending()
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2 (nothing lost)", len(pending))
	}
	if pending[0].State != StatePending {
		t.Errorf("head state = %s, want pending", pending[0].State)
	}

	// Draining while offline is a no-op.
	r.Drain(ctx)
	if got := len(r.Pending()); got != 2 {
		t.Errorf("offline drain consumed the queue: %d left", got)
	}

	down = false
	r.SetOnline(true)
	r.Drain(ctx)

	if got := len(r.Pending()); got != 0 {
		t.Errorf("pending = %d after recovery, want 0", got)
	}
	if _, err := remote.Folders().GetByID(ctx, "f2"); err != nil {
		t.Errorf("queued mutation never reached the remote: %v", err)
	}
}

func TestTerminalFailureReportsAndDrainContinues(t *testing.T) {
	ctx := context.Background()
	local := memory.NewStore()
	remote := memory.NewStore()

	remote.ApplyErr = func(m models.Mutation) error {
		if m.EntityID == "bad" {
			return domain.ErrValidation
		}
		return nil
	}

	r := NewReconciler(local, remote, nil, DefaultConfig(), testLogger())
	var results []Result
	r.OnResult(func(res Result) { results = append(results, res) })

	now := time.Now().UTC()
	r.Enqueue(upsertMutation(t, models.EntityFolder, testFolder("bad", "u", "a", now), now))
	r.Enqueue(upsertMutation(t, models.EntityFolder, testFolder("ok", "u", "b", now), now))

	r.Drain(ctx)

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].State != StateFailed || !errors.Is(results[0].Err, domain.ErrValidation) {
		t.Errorf("first result = %s %v, want failed ErrValidation", results[0].State, results[0].Err)
	}
	if results[1].State != StateAcknowledged {
		t.Errorf("second result = %s, want acknowledged", results[1].State)
	}
	if got := len(r.Pending()); got != 0 {
		t.Errorf("pending = %d, want 0: a failed mutation must not block the queue", got)
	}
}

func reorderMutation(t *testing.T, entity models.EntityType, parentID string, orderedIDs []string) models.Mutation {
	t.Helper()
	payload, err := json.Marshal(models.ReorderPayload{ParentID: parentID, OrderedIDs: orderedIDs})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return models.Mutation{
		ID:        "m-reorder",
		Entity:    entity,
		EntityID:  parentID,
		Op:        models.OpReorder,
		Payload:   payload,
		UpdatedAt: time.Now().UTC(),
	}
}

func seedFolders(t *testing.T, store *memory.Store, userID string, ids ...string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	for i, id := range ids {
		f := models.Folder{
			ID: id, UserID: userID, Name: id,
			Position:  int64(i+1) * 1024,
			CreatedAt: now, UpdatedAt: now,
		}
		if err := store.Folders().Upsert(ctx, &f); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
}

func TestReorderConflictRetriesWithFreshLocalOrder(t *testing.T) {
	ctx := context.Background()
	local := memory.NewStore()
	remote := memory.NewStore()
	seedFolders(t, local, "u", "f2", "f1")
	seedFolders(t, remote, "u", "f1", "f2")

	calls := 0
	remote.ApplyErr = func(m models.Mutation) error {
		calls++
		if calls == 1 {
			return domain.ErrConflict
		}
		return nil
	}

	r := NewReconciler(local, remote, nil, DefaultConfig(), testLogger())
	var results []Result
	r.OnResult(func(res Result) { results = append(results, res) })

	// The queued order is stale; the retry must re-read local intent.
	r.Enqueue(reorderMutation(t, models.EntityFolder, "u", []string{"f1", "gone", "f2"}))
	r.Drain(ctx)

	if calls != 2 {
		t.Fatalf("remote calls = %d, want 2 (original plus one retry)", calls)
	}
	if len(results) != 1 || results[0].State != StateAcknowledged {
		t.Fatalf("results = %+v, want one acknowledged", results)
	}

	folders, err := remote.Folders().ListByUser(ctx, "u")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	want := []string{"f2", "f1"}
	for i, id := range want {
		if folders[i].ID != id {
			t.Errorf("remote order[%d] = %s, want %s", i, folders[i].ID, id)
		}
	}
}

func TestReorderRetriesAreBounded(t *testing.T) {
	ctx := context.Background()
	local := memory.NewStore()
	remote := memory.NewStore()
	seedFolders(t, local, "u", "f1", "f2")

	calls := 0
	remote.ApplyErr = func(m models.Mutation) error {
		calls++
		return domain.ErrConflict
	}

	cfg := DefaultConfig()
	cfg.ReorderRetries = 2
	r := NewReconciler(local, remote, nil, cfg, testLogger())
	var results []Result
	r.OnResult(func(res Result) { results = append(results, res) })

	r.Enqueue(reorderMutation(t, models.EntityFolder, "u", []string{"f1", "f2"}))
	r.Drain(ctx)

	if calls != 3 {
		t.Errorf("remote calls = %d, want 3 (original plus 2 retries)", calls)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].State != StateFailed || !errors.Is(results[0].Err, domain.ErrConflict) {
		t.Errorf("result = %s %v, want failed ErrConflict", results[0].State, results[0].Err)
	}
	if got := len(r.Pending()); got != 0 {
		t.Errorf("pending = %d, want 0", got)
	}
}

func TestCancelPendingMutation(t *testing.T) {
	ctx := context.Background()
	local := memory.NewStore()
	remote := memory.NewStore()

	var applied []string
	remote.ApplyErr = func(m models.Mutation) error {
		applied = append(applied, m.ID)
		return nil
	}

	r := NewReconciler(local, remote, nil, DefaultConfig(), testLogger())

	now := time.Now().UTC()
	r.Enqueue(upsertMutation(t, models.EntityFolder, testFolder("f1", "u", "a", now), now))
	r.Enqueue(upsertMutation(t, models.EntityFolder, testFolder("f2", "u", "b", now), now))

	if !r.Cancel("m-f1") {
		t.Fatal("Cancel returned false for a pending mutation")
	}
	if r.Cancel("m-f1") {
		t.Error("second Cancel of the same id returned true")
	}
	if r.Cancel("unknown") {
		t.Error("Cancel of an unknown id returned true")
	}

	r.Drain(ctx)

	if len(applied) != 1 || applied[0] != "m-f2" {
		t.Errorf("applied = %v, want only m-f2", applied)
	}
}

func TestCancelInFlightDiscardsResult(t *testing.T) {
	ctx := context.Background()
	local := memory.NewStore()
	remote := memory.NewStore()

	r := NewReconciler(local, remote, nil, DefaultConfig(), testLogger())
	var results []Result
	r.OnResult(func(res Result) { results = append(results, res) })

	// Cancel lands while the mutation is being pushed.
	remote.ApplyErr = func(m models.Mutation) error {
		r.Cancel(m.ID)
		return nil
	}

	now := time.Now().UTC()
	r.Enqueue(upsertMutation(t, models.EntityFolder, testFolder("f1", "u", "a", now), now))
	r.Drain(ctx)

	if len(results) != 0 {
		t.Errorf("results = %+v, want none for a canceled in-flight mutation", results)
	}
	if got := len(r.Pending()); got != 0 {
		t.Errorf("pending = %d, want 0", got)
	}
}

func TestPullMergesRemoteChanges(t *testing.T) {
	ctx := context.Background()
	local := memory.NewStore()
	remote := memory.NewStore()

	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	seedFoldersAt := func(store *memory.Store, id, name string, at time.Time, deleted bool) {
		f := models.Folder{ID: id, UserID: "u", Name: name, Position: 1024, CreatedAt: t1, UpdatedAt: at}
		if deleted {
			f.DeletedAt = &at
		}
		if err := store.Folders().Upsert(ctx, &f); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	seedFoldersAt(remote, "f1", "alive", t1, false)
	seedFoldersAt(remote, "f2", "gone", t2, true)
	seedFoldersAt(local, "f2", "gone", t1, false)

	hub := events.NewHub()
	type note struct {
		id   string
		kind events.ChangeKind
	}
	var notes []note
	hub.Register(events.NotifierFunc(func(entity models.EntityType, id string, kind events.ChangeKind) {
		notes = append(notes, note{id: id, kind: kind})
	}))

	r := NewReconciler(local, remote, hub, DefaultConfig(), testLogger())
	if err := r.Pull(ctx); err != nil {
		t.Fatalf("Pull: %v", err)
	}

	got, err := local.Folders().GetByID(ctx, "f1")
	if err != nil {
		t.Fatalf("merged folder missing: %v", err)
	}
	if got.Name != "alive" {
		t.Errorf("merged name = %q", got.Name)
	}
	if _, err := local.Folders().GetByID(ctx, "f2"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("remote deletion not merged: err = %v", err)
	}

	if !r.Watermark().Equal(t2) {
		t.Errorf("watermark = %v, want %v", r.Watermark(), t2)
	}

	if len(notes) != 2 {
		t.Fatalf("notifications = %d, want 2", len(notes))
	}
	kinds := map[string]events.ChangeKind{}
	for _, n := range notes {
		kinds[n.id] = n.kind
	}
	if kinds["f1"] != events.KindMergedUpdated || kinds["f2"] != events.KindMergedDeleted {
		t.Errorf("notification kinds = %v", kinds)
	}

	// A second pull past the watermark is a no-op.
	notes = nil
	if err := r.Pull(ctx); err != nil {
		t.Fatalf("second Pull: %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("second pull re-merged %d changes", len(notes))
	}
}

func TestPullKeepsNewerLocalEdit(t *testing.T) {
	ctx := context.Background()
	local := memory.NewStore()
	remote := memory.NewStore()

	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	stale := models.Folder{ID: "f1", UserID: "u", Name: "remote stale", Position: 1024, CreatedAt: t1, UpdatedAt: t1}
	if err := remote.Folders().Upsert(ctx, &stale); err != nil {
		t.Fatalf("seed remote: %v", err)
	}
	edited := models.Folder{ID: "f1", UserID: "u", Name: "local edit", Position: 1024, CreatedAt: t1, UpdatedAt: t2}
	if err := local.Folders().Upsert(ctx, &edited); err != nil {
		t.Fatalf("seed local: %v", err)
	}

	r := NewReconciler(local, remote, nil, DefaultConfig(), testLogger())
	if err := r.Pull(ctx); err != nil {
		t.Fatalf("Pull: %v", err)
	}

	got, err := local.Folders().GetByID(ctx, "f1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "local edit" {
		t.Errorf("name = %q, the older remote row overwrote a newer local edit", got.Name)
	}
}

func TestPullUnreachableFlipsOffline(t *testing.T) {
	ctx := context.Background()
	local := memory.NewStore()
	remote := memory.NewStore()
	remote.ChangedErr = domain.ErrNetworkUnavailable

	r := NewReconciler(local, remote, nil, DefaultConfig(), testLogger())
	if err := r.Pull(ctx); !errors.Is(err, domain.ErrNetworkUnavailable) {
		t.Fatalf("Pull err = %v, want ErrNetworkUnavailable", err)
	}
	if r.Online() {
		t.Error("reconciler still online after unreachable pull")
	}
}

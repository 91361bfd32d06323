package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"promptdeck/internal/domain"
	"promptdeck/internal/domain/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

var (
	t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Minute)
	t2 = t0.Add(2 * time.Minute)
)

func seedFolder(t *testing.T, store *Store, id, userID, name string, pos int64, at time.Time) *models.Folder {
	t.Helper()
	f := &models.Folder{ID: id, UserID: userID, Name: name, Position: pos, CreatedAt: at, UpdatedAt: at}
	if err := store.Folders().Upsert(context.Background(), f); err != nil {
		t.Fatalf("seed folder %s: %v", id, err)
	}
	return f
}

func seedPrompt(t *testing.T, store *Store, id, folderID, userID, title string, pos int64, at time.Time) *models.Prompt {
	t.Helper()
	p := &models.Prompt{
		ID: id, FolderID: folderID, UserID: userID,
		Title: title, Text: "body of " + title,
		Position: pos, CreatedAt: at, UpdatedAt: at,
	}
	if err := store.Prompts().Upsert(context.Background(), p); err != nil {
		t.Fatalf("seed prompt %s: %v", id, err)
	}
	return p
}

func TestFolderRepository(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	seedFolder(t, store, "f1", "u", "First", 1024, t0)
	seedFolder(t, store, "f2", "u", "Second", 2048, t0)
	seedFolder(t, store, "f3", "other", "Elsewhere", 1024, t0)

	got, err := store.Folders().GetByID(ctx, "f1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "First" || got.UserID != "u" || got.Position != 1024 {
		t.Errorf("folder = %+v", got)
	}

	// Upsert on an existing id updates in place.
	got.Name = "Renamed"
	got.UpdatedAt = t1
	if err := store.Folders().Upsert(ctx, got); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	got, err = store.Folders().GetByID(ctx, "f1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Renamed" {
		t.Errorf("name = %q after update", got.Name)
	}

	list, err := store.Folders().ListByUser(ctx, "u")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 2 || list[0].ID != "f1" || list[1].ID != "f2" {
		t.Errorf("list = %+v, want f1 then f2", list)
	}

	if err := store.Folders().BatchReorder(ctx, "u", []string{"f2", "f1"}); err != nil {
		t.Fatalf("BatchReorder: %v", err)
	}
	list, err = store.Folders().ListByUser(ctx, "u")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if list[0].ID != "f2" || list[1].ID != "f1" {
		t.Errorf("order after reorder = %s, %s", list[0].ID, list[1].ID)
	}

	if err := store.Folders().BatchReorder(ctx, "u", []string{"f1", "missing"}); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("reorder with unknown id err = %v, want ErrConflict", err)
	}

	if err := store.Folders().SoftDelete(ctx, "f1"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if _, err := store.Folders().GetByID(ctx, "f1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetByID after delete err = %v, want ErrNotFound", err)
	}
	if err := store.Folders().SoftDelete(ctx, "f1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second SoftDelete err = %v, want ErrNotFound", err)
	}
	list, err = store.Folders().ListByUser(ctx, "u")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 1 || list[0].ID != "f2" {
		t.Errorf("list after delete = %+v", list)
	}
}

func TestPromptRepository(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	seedFolder(t, store, "f1", "u", "Home", 1024, t0)
	seedPrompt(t, store, "p1", "f1", "u", "first", 1024, t0)
	p2 := seedPrompt(t, store, "p2", "f1", "u", "second", 2048, t0)

	used := t1
	p2.UseCount = 3
	p2.LastUsedAt = &used
	p2.IsImportedCopy = true
	p2.IsUneditedCopy = true
	p2.UpdatedAt = t1
	if err := store.Prompts().Upsert(ctx, p2); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}

	got, err := store.Prompts().GetByID(ctx, "p2")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.UseCount != 3 || got.LastUsedAt == nil || !got.IsImportedCopy || !got.IsUneditedCopy {
		t.Errorf("prompt = %+v", got)
	}
	if !got.LastUsedAt.UTC().Equal(used) {
		t.Errorf("last_used_at = %v, want %v", got.LastUsedAt, used)
	}

	one, err := store.Prompts().GetByID(ctx, "p1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if one.LastUsedAt != nil {
		t.Errorf("fresh prompt last_used_at = %v, want nil", one.LastUsedAt)
	}

	list, err := store.Prompts().ListByFolder(ctx, "f1")
	if err != nil {
		t.Fatalf("ListByFolder: %v", err)
	}
	if len(list) != 2 || list[0].ID != "p1" || list[1].ID != "p2" {
		t.Errorf("list = %+v", list)
	}

	if err := store.Prompts().SoftDelete(ctx, "p1"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	list, err = store.Prompts().ListByFolder(ctx, "f1")
	if err != nil {
		t.Fatalf("ListByFolder: %v", err)
	}
	if len(list) != 1 || list[0].ID != "p2" {
		t.Errorf("list after delete = %+v", list)
	}
}

func TestShareAndSubscriptionRepositories(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	seedFolder(t, store, "f1", "owner", "Shared", 1024, t0)
	share := &models.SharedFolder{
		ID: "s1", FolderID: "f1", OwnerID: "owner",
		ShareCode: "AbCdEfGh", IsActive: true,
		CreatedAt: t0, UpdatedAt: t0,
	}
	if err := store.Shares().Upsert(ctx, share); err != nil {
		t.Fatalf("Upsert share: %v", err)
	}

	byCode, err := store.Shares().GetActiveByCode(ctx, "AbCdEfGh")
	if err != nil {
		t.Fatalf("GetActiveByCode: %v", err)
	}
	if byCode.ID != "s1" {
		t.Errorf("byCode = %+v", byCode)
	}
	if _, err := store.Shares().GetActiveByCode(ctx, "nope"); !errors.Is(err, domain.ErrShareNotFound) {
		t.Errorf("unknown code err = %v, want ErrShareNotFound", err)
	}
	byFolder, err := store.Shares().GetActiveByFolder(ctx, "f1")
	if err != nil {
		t.Fatalf("GetActiveByFolder: %v", err)
	}
	if byFolder.ID != "s1" {
		t.Errorf("byFolder = %+v", byFolder)
	}

	sub := &models.Subscription{
		ID: "sub1", SubscriberID: "reader", SharedFolderID: "s1",
		CreatedAt: t0, UpdatedAt: t0,
	}
	if err := store.Subscriptions().Create(ctx, sub); err != nil {
		t.Fatalf("Create subscription: %v", err)
	}
	dup := &models.Subscription{
		ID: "sub2", SubscriberID: "reader", SharedFolderID: "s1",
		CreatedAt: t1, UpdatedAt: t1,
	}
	if err := store.Subscriptions().Create(ctx, dup); !errors.Is(err, domain.ErrAlreadySubscribed) {
		t.Errorf("duplicate pair err = %v, want ErrAlreadySubscribed", err)
	}

	got, err := store.Subscriptions().GetBySubscriberAndShare(ctx, "reader", "s1")
	if err != nil {
		t.Fatalf("GetBySubscriberAndShare: %v", err)
	}
	if got.ID != "sub1" {
		t.Errorf("subscription = %+v", got)
	}

	// Deactivating stops code resolution but keeps the row and the
	// subscription.
	share.IsActive = false
	share.UpdatedAt = t1
	if err := store.Shares().Upsert(ctx, share); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := store.Shares().GetActiveByCode(ctx, "AbCdEfGh"); !errors.Is(err, domain.ErrShareNotFound) {
		t.Errorf("revoked code err = %v, want ErrShareNotFound", err)
	}
	if _, err := store.Shares().GetByID(ctx, "s1"); err != nil {
		t.Errorf("GetByID after revoke: %v", err)
	}
	if _, err := store.Subscriptions().GetByID(ctx, "sub1"); err != nil {
		t.Errorf("subscription gone after revoke: %v", err)
	}

	if err := store.Subscriptions().Delete(ctx, "sub1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Subscriptions().GetByID(ctx, "sub1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("deleted subscription err = %v, want ErrNotFound", err)
	}
}

func TestQuickAccessRepository(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	qf := &models.QuickAccessFolder{ID: "q1", UserID: "u", Name: "Pins", Position: 1024, CreatedAt: t0, UpdatedAt: t0}
	if err := store.QuickAccess().UpsertFolder(ctx, qf); err != nil {
		t.Fatalf("UpsertFolder: %v", err)
	}

	owned := "p1"
	subscribed := "p2"
	items := []*models.QuickAccessItem{
		{ID: "i1", UserID: "u", QuickAccessFolderID: "q1", Position: 1024, OwnedPromptID: &owned, CreatedAt: t0, UpdatedAt: t0},
		{ID: "i2", UserID: "u", QuickAccessFolderID: "q1", Position: 2048, SubscribedPromptID: &subscribed, CreatedAt: t0, UpdatedAt: t0},
	}
	for _, item := range items {
		if err := store.QuickAccess().UpsertItem(ctx, item); err != nil {
			t.Fatalf("UpsertItem %s: %v", item.ID, err)
		}
	}

	bad := &models.QuickAccessItem{ID: "i3", UserID: "u", QuickAccessFolderID: "q1", Position: 3072, CreatedAt: t0, UpdatedAt: t0}
	if err := store.QuickAccess().UpsertItem(ctx, bad); !errors.Is(err, domain.ErrConstraint) {
		t.Errorf("item without reference err = %v, want ErrConstraint", err)
	}

	list, err := store.QuickAccess().ListItems(ctx, "q1")
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(list) != 2 || list[0].ID != "i1" || list[1].ID != "i2" {
		t.Errorf("list = %+v", list)
	}
	ref, err := list[1].Ref()
	if err != nil {
		t.Fatalf("Ref: %v", err)
	}
	if ref.Kind != models.RefSubscribed || ref.PromptID != "p2" {
		t.Errorf("ref = %+v", ref)
	}

	n, err := store.QuickAccess().DeleteByPromptID(ctx, "p1")
	if err != nil {
		t.Fatalf("DeleteByPromptID: %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteByPromptID removed %d, want 1", n)
	}

	n, err = store.QuickAccess().DeleteSubscribedRefs(ctx, "u", []string{"p2", "p9"})
	if err != nil {
		t.Fatalf("DeleteSubscribedRefs: %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteSubscribedRefs removed %d, want 1", n)
	}

	list, err = store.QuickAccess().ListItems(ctx, "q1")
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("items left = %d, want 0", len(list))
	}

	// Deleting the folder cascades to its items.
	keep := "p3"
	again := &models.QuickAccessItem{ID: "i4", UserID: "u", QuickAccessFolderID: "q1", Position: 1024, OwnedPromptID: &keep, CreatedAt: t1, UpdatedAt: t1}
	if err := store.QuickAccess().UpsertItem(ctx, again); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}
	if err := store.QuickAccess().DeleteFolder(ctx, "q1"); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	if _, err := store.QuickAccess().GetItem(ctx, "i4"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("item survived folder delete: err = %v", err)
	}
}

func TestApplyMutationLastWriterWins(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	seedFolder(t, store, "f1", "u", "Current", 1024, t1)

	mutation := func(name string, at time.Time) models.Mutation {
		f := models.Folder{ID: "f1", UserID: "u", Name: name, Position: 1024, CreatedAt: t0, UpdatedAt: at}
		payload, err := json.Marshal(f)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return models.Mutation{
			ID: "m-" + name, Entity: models.EntityFolder, EntityID: "f1",
			Op: models.OpUpsert, Payload: payload, UpdatedAt: at,
		}
	}

	// An older remote row must not overwrite the newer local one.
	if err := store.ApplyMutation(ctx, mutation("stale", t0)); err != nil {
		t.Fatalf("ApplyMutation stale: %v", err)
	}
	got, err := store.Folders().GetByID(ctx, "f1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Current" {
		t.Errorf("name = %q, stale mutation applied", got.Name)
	}

	if err := store.ApplyMutation(ctx, mutation("newer", t2)); err != nil {
		t.Fatalf("ApplyMutation newer: %v", err)
	}
	got, err = store.Folders().GetByID(ctx, "f1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "newer" {
		t.Errorf("name = %q, newer mutation skipped", got.Name)
	}

	// Deletes are idempotent: a delete for a row that is already gone
	// merges cleanly.
	del := models.Mutation{
		ID: "m-del", Entity: models.EntityPrompt, EntityID: "no-such-prompt",
		Op: models.OpDelete, UpdatedAt: t2,
	}
	if err := store.ApplyMutation(ctx, del); err != nil {
		t.Errorf("delete of missing row: %v", err)
	}
}

func TestApplyMutationReorder(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	seedFolder(t, store, "f1", "u", "A", 1024, t0)
	seedFolder(t, store, "f2", "u", "B", 2048, t0)

	payload, err := json.Marshal(models.ReorderPayload{ParentID: "u", OrderedIDs: []string{"f2", "f1"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	m := models.Mutation{
		ID: "m1", Entity: models.EntityFolder, EntityID: "u",
		Op: models.OpReorder, Payload: payload, UpdatedAt: t1,
	}
	if err := store.ApplyMutation(ctx, m); err != nil {
		t.Fatalf("ApplyMutation: %v", err)
	}

	list, err := store.Folders().ListByUser(ctx, "u")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if list[0].ID != "f2" || list[1].ID != "f1" {
		t.Errorf("order = %s, %s", list[0].ID, list[1].ID)
	}
}

func TestChangedSince(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	seedFolder(t, store, "f1", "u", "Old", 1024, t0)
	seedFolder(t, store, "f2", "u", "New", 2048, t2)
	seedPrompt(t, store, "p1", "f1", "u", "inside", 1024, t1)
	if err := store.Prompts().SoftDelete(ctx, "p1"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	changes, err := store.ChangedSince(ctx, t0)
	if err != nil {
		t.Fatalf("ChangedSince: %v", err)
	}

	byID := map[string]models.Change{}
	for _, c := range changes {
		if !c.UpdatedAt.After(t0) {
			t.Errorf("change %s at %v precedes the watermark", c.ID, c.UpdatedAt)
		}
		byID[c.ID] = c
	}
	if _, ok := byID["f1"]; ok {
		t.Error("f1 predates the watermark but was returned")
	}
	if c, ok := byID["f2"]; !ok || c.Entity != models.EntityFolder || c.Deleted {
		t.Errorf("f2 change = %+v", c)
	}
	// p1 was soft-deleted, which bumped updated_at past the watermark.
	if c, ok := byID["p1"]; !ok || !c.Deleted {
		t.Errorf("p1 change = %+v, want a deletion", c)
	} else {
		var p models.Prompt
		if err := json.Unmarshal(c.Payload, &p); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if p.Title != "inside" {
			t.Errorf("payload title = %q", p.Title)
		}
	}

	for i := 1; i < len(changes); i++ {
		if changes[i-1].UpdatedAt.After(changes[i].UpdatedAt) {
			t.Fatalf("changes not ordered by updated_at at %d", i)
		}
	}
}

func TestExecTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	sentinel := errors.New("boom")
	err := store.Tx().ExecTx(ctx, func(ctx context.Context) error {
		if err := store.Folders().Upsert(ctx, &models.Folder{
			ID: "f1", UserID: "u", Name: "doomed", Position: 1024, CreatedAt: t0, UpdatedAt: t0,
		}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("ExecTx err = %v, want the sentinel", err)
	}

	if _, err := store.Folders().GetByID(ctx, "f1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("rolled-back folder visible: err = %v", err)
	}
}

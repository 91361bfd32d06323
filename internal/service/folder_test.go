package service

import (
	"context"
	"errors"
	"testing"

	"promptdeck/internal/domain"
	"promptdeck/internal/domain/models"
)

func TestCreateFolderPlacement(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	a := env.mustFolder(t, "owner", "A")
	b := env.mustFolder(t, "owner", "B")

	// nil After inserts at the head.
	head, err := env.folders.CreateFolder(ctx, "owner", &models.CreateFolderRequest{Name: "Head"})
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	// After=a lands between A and B.
	mid, err := env.folders.CreateFolder(ctx, "owner", &models.CreateFolderRequest{Name: "Mid", After: &a.ID})
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	list, err := env.folders.ListFolders(ctx, "owner")
	if err != nil {
		t.Fatalf("ListFolders: %v", err)
	}
	want := []string{head.ID, a.ID, mid.ID, b.ID}
	if len(list) != len(want) {
		t.Fatalf("folders = %d, want %d", len(list), len(want))
	}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("list[%d] = %s (%s), want %s", i, list[i].ID, list[i].Name, id)
		}
	}
}

func TestCreateFolderUnknownAnchor(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.mustFolder(t, "owner", "A")
	missing := "no-such-folder"
	if _, err := env.folders.CreateFolder(ctx, "owner", &models.CreateFolderRequest{Name: "B", After: &missing}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateFolderValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	if _, err := env.folders.CreateFolder(ctx, "owner", &models.CreateFolderRequest{Name: ""}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestRepeatedInsertExhaustsGapAndRecovers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	a := env.mustFolder(t, "owner", "A")
	env.mustFolder(t, "owner", "B")

	// Each insert directly after A halves the remaining gap. The default
	// spacing of 1024 survives ten such splits; the eleventh forces a
	// renormalization, which must be invisible to the caller.
	var newest string
	for i := 0; i < 16; i++ {
		f, err := env.folders.CreateFolder(ctx, "owner", &models.CreateFolderRequest{Name: "wedge", After: &a.ID})
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		newest = f.ID
	}

	list, err := env.folders.ListFolders(ctx, "owner")
	if err != nil {
		t.Fatalf("ListFolders: %v", err)
	}
	if len(list) != 18 {
		t.Fatalf("folders = %d, want 18", len(list))
	}
	if list[0].ID != a.ID {
		t.Errorf("list[0] = %s, want A", list[0].Name)
	}
	if list[1].ID != newest {
		t.Errorf("list[1] = %s, want the most recent insert", list[1].ID)
	}
	if list[len(list)-1].Name != "B" {
		t.Errorf("tail = %s, want B", list[len(list)-1].Name)
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Position >= list[i].Position {
			t.Fatalf("positions not strictly increasing at %d: %d >= %d", i, list[i-1].Position, list[i].Position)
		}
	}
}

func TestUpdateFolder(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	f := env.mustFolder(t, "owner", "Old")
	name := "New"
	got, err := env.folders.UpdateFolder(ctx, "owner", f.ID, &models.UpdateFolderRequest{Name: &name})
	if err != nil {
		t.Fatalf("UpdateFolder: %v", err)
	}
	if got.Name != "New" {
		t.Errorf("name = %q, want New", got.Name)
	}
	if !got.UpdatedAt.After(f.UpdatedAt) {
		t.Error("UpdatedAt did not advance")
	}

	if _, err := env.folders.UpdateFolder(ctx, "intruder", f.ID, &models.UpdateFolderRequest{Name: &name}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("foreign update err = %v, want ErrForbidden", err)
	}
}

func TestDeleteFolderRemovesPrompts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	f := env.mustFolder(t, "owner", "Doomed")
	p := env.mustPrompt(t, "owner", f.ID, "inside")

	if err := env.folders.DeleteFolder(ctx, "owner", f.ID); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}

	if _, err := env.folders.GetFolder(ctx, "owner", f.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetFolder after delete err = %v, want ErrNotFound", err)
	}
	if _, err := env.prompts.GetPrompt(ctx, "owner", p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetPrompt after folder delete err = %v, want ErrNotFound", err)
	}
}

func TestReorderFolders(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	a := env.mustFolder(t, "owner", "A")
	b := env.mustFolder(t, "owner", "B")
	c := env.mustFolder(t, "owner", "C")

	order := []string{c.ID, a.ID, b.ID}
	if err := env.folders.ReorderFolders(ctx, "owner", &models.ReorderRequest{OrderedIDs: order}); err != nil {
		t.Fatalf("ReorderFolders: %v", err)
	}

	list, err := env.folders.ListFolders(ctx, "owner")
	if err != nil {
		t.Fatalf("ListFolders: %v", err)
	}
	for i, id := range order {
		if list[i].ID != id {
			t.Errorf("list[%d] = %s, want %s", i, list[i].ID, id)
		}
	}

	// A stale order naming a folder that no longer exists is rejected wholesale.
	if err := env.folders.DeleteFolder(ctx, "owner", c.ID); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	if err := env.folders.ReorderFolders(ctx, "owner", &models.ReorderRequest{OrderedIDs: order}); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("stale reorder err = %v, want ErrConflict", err)
	}
}

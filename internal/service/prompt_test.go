package service

import (
	"context"
	"errors"
	"testing"

	"promptdeck/internal/domain"
	"promptdeck/internal/domain/models"
)

func TestCreatePrompt(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	mine := env.mustFolder(t, "owner", "Mine")
	theirs := env.mustFolder(t, "intruder", "Theirs")

	tests := []struct {
		name    string
		userID  string
		req     models.CreatePromptRequest
		wantErr error
	}{
		{name: "ok", userID: "owner", req: models.CreatePromptRequest{FolderID: mine.ID, Title: "t", Text: "body"}},
		{name: "missing title", userID: "owner", req: models.CreatePromptRequest{FolderID: mine.ID}, wantErr: domain.ErrValidation},
		{name: "unknown folder", userID: "owner", req: models.CreatePromptRequest{FolderID: "nope", Title: "t"}, wantErr: domain.ErrNotFound},
		{name: "someone else's folder", userID: "owner", req: models.CreatePromptRequest{FolderID: theirs.ID, Title: "t"}, wantErr: domain.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			p, err := env.prompts.CreatePrompt(ctx, tt.userID, &req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreatePrompt: %v", err)
			}
			if p.FolderID != mine.ID || p.UserID != "owner" {
				t.Errorf("prompt = folder %s user %s", p.FolderID, p.UserID)
			}
			if p.IsImportedCopy || p.IsUneditedCopy {
				t.Error("fresh prompt carries copy provenance")
			}
		})
	}
}

func TestMovePrompt(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	src := env.mustFolder(t, "owner", "Src")
	dst := env.mustFolder(t, "owner", "Dst")
	moving := env.mustPrompt(t, "owner", src.ID, "moving")
	anchor := env.mustPrompt(t, "owner", dst.ID, "anchor")
	tail := env.mustPrompt(t, "owner", dst.ID, "tail")

	got, err := env.prompts.MovePrompt(ctx, "owner", moving.ID, &models.MoveRequest{ParentID: dst.ID, After: &anchor.ID})
	if err != nil {
		t.Fatalf("MovePrompt: %v", err)
	}
	if got.FolderID != dst.ID {
		t.Fatalf("folder = %s, want %s", got.FolderID, dst.ID)
	}

	list, err := env.prompts.ListPrompts(ctx, "owner", dst.ID)
	if err != nil {
		t.Fatalf("ListPrompts: %v", err)
	}
	want := []string{anchor.ID, moving.ID, tail.ID}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("list[%d] = %s, want %s", i, list[i].Title, id)
		}
	}

	remaining, err := env.prompts.ListPrompts(ctx, "owner", src.ID)
	if err != nil {
		t.Fatalf("ListPrompts: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("source folder still holds %d prompts", len(remaining))
	}
}

func TestMovePromptWithinFolder(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	f := env.mustFolder(t, "owner", "F")
	a := env.mustPrompt(t, "owner", f.ID, "a")
	b := env.mustPrompt(t, "owner", f.ID, "b")
	c := env.mustPrompt(t, "owner", f.ID, "c")

	// Move a after b: the moving prompt must not anchor against itself.
	if _, err := env.prompts.MovePrompt(ctx, "owner", a.ID, &models.MoveRequest{ParentID: f.ID, After: &b.ID}); err != nil {
		t.Fatalf("MovePrompt: %v", err)
	}

	list, err := env.prompts.ListPrompts(ctx, "owner", f.ID)
	if err != nil {
		t.Fatalf("ListPrompts: %v", err)
	}
	want := []string{b.ID, a.ID, c.ID}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("list[%d] = %s, want %s", i, list[i].Title, id)
		}
	}
}

func TestMovePromptForeignDestination(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	src := env.mustFolder(t, "owner", "Src")
	p := env.mustPrompt(t, "owner", src.ID, "p")
	theirs := env.mustFolder(t, "intruder", "Theirs")

	if _, err := env.prompts.MovePrompt(ctx, "owner", p.ID, &models.MoveRequest{ParentID: theirs.ID}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestRecordUse(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	f := env.mustFolder(t, "owner", "F")
	p := env.mustPrompt(t, "owner", f.ID, "p")
	if p.UseCount != 0 || p.LastUsedAt != nil {
		t.Fatalf("fresh prompt: use_count %d, last_used_at %v", p.UseCount, p.LastUsedAt)
	}

	for i := 1; i <= 3; i++ {
		got, err := env.prompts.RecordUse(ctx, "owner", p.ID)
		if err != nil {
			t.Fatalf("RecordUse: %v", err)
		}
		if got.UseCount != i {
			t.Errorf("use_count = %d, want %d", got.UseCount, i)
		}
		if got.LastUsedAt == nil {
			t.Error("last_used_at not set")
		}
	}

	if _, err := env.prompts.RecordUse(ctx, "intruder", p.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("foreign use err = %v, want ErrForbidden", err)
	}
}

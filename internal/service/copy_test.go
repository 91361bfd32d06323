package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"promptdeck/internal/domain"
	"promptdeck/internal/domain/models"
)

func TestCopyToMine(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	ownerFolder := env.mustFolder(t, "owner", "Shared")
	source := env.mustPrompt(t, "owner", ownerFolder.ID, "greeting")
	share := env.mustShare(t, "owner", ownerFolder.ID)

	view, err := env.subs.Subscribe(ctx, "sub", &models.SubscribeRequest{Code: share.ShareCode})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	destFolder := env.mustFolder(t, "sub", "Mine")
	existing := env.mustPrompt(t, "sub", destFolder.ID, "already here")

	cp, err := env.copies.CopyToMine(ctx, "sub", source.ID, &models.CopyPromptRequest{
		SubscriptionID:      view.Subscription.ID,
		DestinationFolderID: destFolder.ID,
	})
	if err != nil {
		t.Fatalf("CopyToMine: %v", err)
	}

	if cp.ID == source.ID {
		t.Error("copy reused the source id")
	}
	if cp.UserID != "sub" || cp.FolderID != destFolder.ID {
		t.Errorf("copy landed at user %s folder %s", cp.UserID, cp.FolderID)
	}
	if cp.Title != source.Title || cp.Text != source.Text {
		t.Errorf("copy content diverged: %q/%q", cp.Title, cp.Text)
	}
	if !cp.IsImportedCopy || !cp.IsUneditedCopy {
		t.Errorf("provenance flags = imported %v unedited %v, want both true", cp.IsImportedCopy, cp.IsUneditedCopy)
	}
	if cp.Position <= existing.Position {
		t.Errorf("copy position %d not after tail %d", cp.Position, existing.Position)
	}
}

func TestCopyIsIndependentOfSource(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	ownerFolder := env.mustFolder(t, "owner", "Shared")
	source := env.mustPrompt(t, "owner", ownerFolder.ID, "original")
	share := env.mustShare(t, "owner", ownerFolder.ID)
	view, err := env.subs.Subscribe(ctx, "sub", &models.SubscribeRequest{Code: share.ShareCode})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	destFolder := env.mustFolder(t, "sub", "Mine")

	cp, err := env.copies.CopyToMine(ctx, "sub", source.ID, &models.CopyPromptRequest{
		SubscriptionID:      view.Subscription.ID,
		DestinationFolderID: destFolder.ID,
	})
	if err != nil {
		t.Fatalf("CopyToMine: %v", err)
	}

	newTitle := "renamed by owner"
	if _, err := env.prompts.UpdatePrompt(ctx, "owner", source.ID, &models.UpdatePromptRequest{Title: &newTitle}); err != nil {
		t.Fatalf("UpdatePrompt: %v", err)
	}
	if err := env.prompts.DeletePrompt(ctx, "owner", source.ID); err != nil {
		t.Fatalf("DeletePrompt: %v", err)
	}

	got, err := env.prompts.GetPrompt(ctx, "sub", cp.ID)
	if err != nil {
		t.Fatalf("GetPrompt: %v", err)
	}
	if got.Title != "original" {
		t.Errorf("copy title = %q, want %q", got.Title, "original")
	}
}

func TestEditClearsUneditedFlag(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	ownerFolder := env.mustFolder(t, "owner", "Shared")
	source := env.mustPrompt(t, "owner", ownerFolder.ID, "original")
	share := env.mustShare(t, "owner", ownerFolder.ID)
	view, err := env.subs.Subscribe(ctx, "sub", &models.SubscribeRequest{Code: share.ShareCode})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	destFolder := env.mustFolder(t, "sub", "Mine")

	cp, err := env.copies.CopyToMine(ctx, "sub", source.ID, &models.CopyPromptRequest{
		SubscriptionID:      view.Subscription.ID,
		DestinationFolderID: destFolder.ID,
	})
	if err != nil {
		t.Fatalf("CopyToMine: %v", err)
	}

	// A no-op update keeps the flag.
	same := cp.Title
	got, err := env.prompts.UpdatePrompt(ctx, "sub", cp.ID, &models.UpdatePromptRequest{Title: &same})
	if err != nil {
		t.Fatalf("UpdatePrompt: %v", err)
	}
	if !got.IsUneditedCopy {
		t.Error("no-op update cleared the unedited flag")
	}

	edited := "my own spin"
	got, err = env.prompts.UpdatePrompt(ctx, "sub", cp.ID, &models.UpdatePromptRequest{Text: &edited})
	if err != nil {
		t.Fatalf("UpdatePrompt: %v", err)
	}
	if got.IsUneditedCopy {
		t.Error("real edit left the unedited flag set")
	}
	if !got.IsImportedCopy {
		t.Error("edit cleared the imported flag; provenance should stick")
	}
}

func TestCopyRejectsBadInputs(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	ownerFolder := env.mustFolder(t, "owner", "Shared")
	source := env.mustPrompt(t, "owner", ownerFolder.ID, "shared")
	outsideFolder := env.mustFolder(t, "owner", "Private")
	outside := env.mustPrompt(t, "owner", outsideFolder.ID, "not shared")
	share := env.mustShare(t, "owner", ownerFolder.ID)

	view, err := env.subs.Subscribe(ctx, "sub", &models.SubscribeRequest{Code: share.ShareCode})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	destFolder := env.mustFolder(t, "sub", "Mine")
	ownerDest := env.mustFolder(t, "owner", "Owner dest")

	tests := []struct {
		name    string
		userID  string
		prompt  string
		req     models.CopyPromptRequest
		wantErr error
	}{
		{
			name:    "someone else's subscription",
			userID:  "other",
			prompt:  source.ID,
			req:     models.CopyPromptRequest{SubscriptionID: view.Subscription.ID, DestinationFolderID: destFolder.ID},
			wantErr: domain.ErrForbidden,
		},
		{
			name:    "prompt outside the shared folder",
			userID:  "sub",
			prompt:  outside.ID,
			req:     models.CopyPromptRequest{SubscriptionID: view.Subscription.ID, DestinationFolderID: destFolder.ID},
			wantErr: domain.ErrInvalidReference,
		},
		{
			name:    "destination owned by someone else",
			userID:  "sub",
			prompt:  source.ID,
			req:     models.CopyPromptRequest{SubscriptionID: view.Subscription.ID, DestinationFolderID: ownerDest.ID},
			wantErr: domain.ErrForbidden,
		},
		{
			name:    "missing subscription id",
			userID:  "sub",
			prompt:  source.ID,
			req:     models.CopyPromptRequest{DestinationFolderID: destFolder.ID},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			if _, err := env.copies.CopyToMine(ctx, tt.userID, tt.prompt, &req); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCopyToMineRenormalizesExhaustedTail(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	ownerFolder := env.mustFolder(t, "owner", "Shared")
	source := env.mustPrompt(t, "owner", ownerFolder.ID, "greeting")
	share := env.mustShare(t, "owner", ownerFolder.ID)
	view, err := env.subs.Subscribe(ctx, "sub", &models.SubscribeRequest{Code: share.ShareCode})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	destFolder := env.mustFolder(t, "sub", "Mine")

	// Pin the tail so close to the ceiling that appending after it cannot
	// find a gap without renumbering the folder first.
	now := time.Now().UTC()
	edge := models.Prompt{
		ID:        "at-the-edge",
		UserID:    "sub",
		FolderID:  destFolder.ID,
		Title:     "wedged",
		Text:      "wedged",
		Position:  math.MaxInt64 - 1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := env.store.Prompts().Upsert(ctx, &edge); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	cp, err := env.copies.CopyToMine(ctx, "sub", source.ID, &models.CopyPromptRequest{
		SubscriptionID:      view.Subscription.ID,
		DestinationFolderID: destFolder.ID,
	})
	if err != nil {
		t.Fatalf("CopyToMine: %v", err)
	}

	prompts, err := env.prompts.ListPrompts(ctx, "sub", destFolder.ID)
	if err != nil {
		t.Fatalf("ListPrompts: %v", err)
	}
	if len(prompts) != 2 {
		t.Fatalf("prompts = %d, want 2", len(prompts))
	}
	if prompts[1].ID != cp.ID {
		t.Errorf("tail = %s, want the copy %s", prompts[1].ID, cp.ID)
	}
	if prompts[0].Position >= prompts[1].Position {
		t.Errorf("positions %d, %d not ascending", prompts[0].Position, prompts[1].Position)
	}
	if prompts[1].Position >= math.MaxInt64-1 {
		t.Errorf("tail position %d was not renumbered", prompts[1].Position)
	}
}

package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"promptdeck/internal/domain/events"
	"promptdeck/internal/domain/models"
	"promptdeck/internal/domain/services"
	"promptdeck/internal/repository/memory"
)

// identityStub resolves emails from a fixed map.
type identityStub struct {
	emails map[string]string
}

func (s *identityStub) EmailByID(_ context.Context, userID string) (string, error) {
	return s.emails[userID], nil
}

type testEnv struct {
	store    *memory.Store
	hub      *events.Hub
	folders  services.FolderService
	prompts  services.PromptService
	subs     services.SubscriptionResolver
	quick    services.QuickAccessLinker
	copies   services.CopyResolver
	identity *identityStub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	hub := events.NewHub()
	identity := &identityStub{emails: map[string]string{
		"owner": "owner@example.com",
		"sub":   "sub@example.com",
	}}

	quick := NewQuickAccessLinker(store, hub, logger)
	return &testEnv{
		store:    store,
		hub:      hub,
		folders:  NewFolderService(store, hub, logger),
		prompts:  NewPromptService(store, hub, logger),
		subs:     NewSubscriptionResolver(store, identity, quick, hub, logger),
		quick:    quick,
		copies:   NewCopyResolver(store, hub, logger),
		identity: identity,
	}
}

// mustFolder creates a folder at the tail of the user's list.
func (e *testEnv) mustFolder(t *testing.T, userID, name string) *models.Folder {
	t.Helper()
	existing, err := e.folders.ListFolders(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListFolders: %v", err)
	}
	var after *string
	if len(existing) > 0 {
		after = &existing[len(existing)-1].ID
	}
	folder, err := e.folders.CreateFolder(context.Background(), userID, &models.CreateFolderRequest{
		Name:  name,
		After: after,
	})
	if err != nil {
		t.Fatalf("CreateFolder(%q): %v", name, err)
	}
	return folder
}

// mustPrompt creates a prompt at the tail of the folder.
func (e *testEnv) mustPrompt(t *testing.T, userID, folderID, title string) *models.Prompt {
	t.Helper()
	existing, err := e.prompts.ListPrompts(context.Background(), userID, folderID)
	if err != nil {
		t.Fatalf("ListPrompts: %v", err)
	}
	var after *string
	if len(existing) > 0 {
		after = &existing[len(existing)-1].ID
	}
	prompt, err := e.prompts.CreatePrompt(context.Background(), userID, &models.CreatePromptRequest{
		FolderID: folderID,
		Title:    title,
		Text:     "text of " + title,
		After:    after,
	})
	if err != nil {
		t.Fatalf("CreatePrompt(%q): %v", title, err)
	}
	return prompt
}

// mustShare shares a folder and returns the active share.
func (e *testEnv) mustShare(t *testing.T, ownerID, folderID string) *models.SharedFolder {
	t.Helper()
	share, err := e.subs.ShareFolder(context.Background(), ownerID, folderID, &models.ShareFolderRequest{})
	if err != nil {
		t.Fatalf("ShareFolder: %v", err)
	}
	return share
}

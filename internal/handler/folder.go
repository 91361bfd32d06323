package handler

import (
	"log/slog"
	"net/http"

	"promptdeck/internal/domain/models"
	"promptdeck/internal/domain/services"
	"promptdeck/internal/httputil"
)

// FolderHandler handles folder HTTP requests
type FolderHandler struct {
	folders services.FolderService
	prompts services.PromptService
	logger  *slog.Logger
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(folders services.FolderService, prompts services.PromptService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{
		folders: folders,
		prompts: prompts,
		logger:  logger,
	}
}

// CreateFolder creates a new folder
// POST /api/folders
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req models.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	folder, err := h.folders.CreateFolder(r.Context(), userID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// ListFolders lists the user's folders ordered by position
// GET /api/folders
func (h *FolderHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.folders.ListFolders(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folders)
}

// GetFolder retrieves a folder by ID
// GET /api/folders/{id}
func (h *FolderHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	folder, err := h.folders.GetFolder(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// UpdateFolder renames a folder
// PATCH /api/folders/{id}
func (h *FolderHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	folder, err := h.folders.UpdateFolder(r.Context(), httputil.GetUserID(r), r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// DeleteFolder soft-deletes a folder and its prompts
// DELETE /api/folders/{id}
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	if err := h.folders.DeleteFolder(r.Context(), httputil.GetUserID(r), r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReorderFolders rewrites the user's folder order
// POST /api/folders/reorder
func (h *FolderHandler) ReorderFolders(w http.ResponseWriter, r *http.Request) {
	var req models.ReorderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.folders.ReorderFolders(r.Context(), httputil.GetUserID(r), &req); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListPrompts lists a folder's prompts ordered by position
// GET /api/folders/{id}/prompts
func (h *FolderHandler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.prompts.ListPrompts(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, prompts)
}

// ReorderPrompts rewrites a folder's prompt order
// POST /api/folders/{id}/prompts/reorder
func (h *FolderHandler) ReorderPrompts(w http.ResponseWriter, r *http.Request) {
	var req models.ReorderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.prompts.ReorderPrompts(r.Context(), httputil.GetUserID(r), r.PathValue("id"), &req); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

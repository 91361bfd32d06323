package handler

import (
	"log/slog"
	"net/http"

	"promptdeck/internal/domain/models"
	"promptdeck/internal/domain/services"
	"promptdeck/internal/httputil"
)

// QuickAccessHandler handles quick-access HTTP requests
type QuickAccessHandler struct {
	linker services.QuickAccessLinker
	logger *slog.Logger
}

// NewQuickAccessHandler creates a new quick-access handler
func NewQuickAccessHandler(linker services.QuickAccessLinker, logger *slog.Logger) *QuickAccessHandler {
	return &QuickAccessHandler{
		linker: linker,
		logger: logger,
	}
}

// CreateFolder creates a quick-access folder
// POST /api/quick-access/folders
func (h *QuickAccessHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateQuickAccessFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	folder, err := h.linker.CreateFolder(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// ListFolders lists the user's quick-access folders
// GET /api/quick-access/folders
func (h *QuickAccessHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.linker.ListFolders(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folders)
}

// DeleteFolder removes a quick-access folder and its items
// DELETE /api/quick-access/folders/{id}
func (h *QuickAccessHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	if err := h.linker.DeleteFolder(r.Context(), httputil.GetUserID(r), r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReorderFolders rewrites the user's quick-access folder order
// POST /api/quick-access/folders/reorder
func (h *QuickAccessHandler) ReorderFolders(w http.ResponseWriter, r *http.Request) {
	var req models.ReorderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.linker.ReorderFolders(r.Context(), httputil.GetUserID(r), &req); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddItem pins a prompt into a quick-access folder
// POST /api/quick-access/items
func (h *QuickAccessHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req models.AddQuickAccessItemRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.linker.AddItem(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, item)
}

// ListItems lists a quick-access folder's items
// GET /api/quick-access/folders/{id}/items
func (h *QuickAccessHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.linker.ListItems(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, items)
}

// RemoveItem unpins a prompt
// DELETE /api/quick-access/items/{id}
func (h *QuickAccessHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := h.linker.RemoveItem(r.Context(), httputil.GetUserID(r), r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReorderItems rewrites a quick-access folder's item order
// POST /api/quick-access/folders/{id}/items/reorder
func (h *QuickAccessHandler) ReorderItems(w http.ResponseWriter, r *http.Request) {
	var req models.ReorderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.linker.ReorderItems(r.Context(), httputil.GetUserID(r), r.PathValue("id"), &req); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

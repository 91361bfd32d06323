package handler

import (
	"log/slog"
	"net/http"

	"promptdeck/internal/domain/models"
	"promptdeck/internal/domain/services"
	"promptdeck/internal/httputil"
)

// ShareHandler handles folder sharing and subscription HTTP requests
type ShareHandler struct {
	resolver services.SubscriptionResolver
	logger   *slog.Logger
}

// NewShareHandler creates a new share handler
func NewShareHandler(resolver services.SubscriptionResolver, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{
		resolver: resolver,
		logger:   logger,
	}
}

// ShareFolder creates or returns the folder's active share
// POST /api/folders/{id}/share
func (h *ShareHandler) ShareFolder(w http.ResponseWriter, r *http.Request) {
	var req models.ShareFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	share, err := h.resolver.ShareFolder(r.Context(), httputil.GetUserID(r), r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, share)
}

// RevokeShare deactivates the folder's active share
// DELETE /api/folders/{id}/share
func (h *ShareHandler) RevokeShare(w http.ResponseWriter, r *http.Request) {
	if err := h.resolver.RevokeShare(r.Context(), httputil.GetUserID(r), r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Subscribe subscribes the user to a shared folder by code or link
// POST /api/subscriptions
func (h *ShareHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req models.SubscribeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.resolver.Subscribe(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, view)
}

// ListSubscriptions returns the user's subscription views
// GET /api/subscriptions
func (h *ShareHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	views, err := h.resolver.ListSubscriptions(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, views)
}

// SubscriptionPrompts returns the live prompt list of one subscription
// GET /api/subscriptions/{id}/prompts
func (h *ShareHandler) SubscriptionPrompts(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.resolver.SubscriptionPrompts(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, prompts)
}

// Unsubscribe removes a subscription
// DELETE /api/subscriptions/{id}
func (h *ShareHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.resolver.Unsubscribe(r.Context(), httputil.GetUserID(r), r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

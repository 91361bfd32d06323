package handler

import (
	"log/slog"
	"net/http"

	"promptdeck/internal/domain/models"
	"promptdeck/internal/domain/services"
	"promptdeck/internal/httputil"
)

// PromptHandler handles prompt HTTP requests
type PromptHandler struct {
	prompts services.PromptService
	copies  services.CopyResolver
	logger  *slog.Logger
}

// NewPromptHandler creates a new prompt handler
func NewPromptHandler(prompts services.PromptService, copies services.CopyResolver, logger *slog.Logger) *PromptHandler {
	return &PromptHandler{
		prompts: prompts,
		copies:  copies,
		logger:  logger,
	}
}

// CreatePrompt creates a prompt in one of the user's folders
// POST /api/prompts
func (h *PromptHandler) CreatePrompt(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePromptRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prompt, err := h.prompts.CreatePrompt(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, prompt)
}

// GetPrompt retrieves a prompt by ID
// GET /api/prompts/{id}
func (h *PromptHandler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	prompt, err := h.prompts.GetPrompt(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, prompt)
}

// UpdatePrompt edits a prompt's title or text
// PATCH /api/prompts/{id}
func (h *PromptHandler) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	var req models.UpdatePromptRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prompt, err := h.prompts.UpdatePrompt(r.Context(), httputil.GetUserID(r), r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, prompt)
}

// DeletePrompt soft-deletes a prompt
// DELETE /api/prompts/{id}
func (h *PromptHandler) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	if err := h.prompts.DeletePrompt(r.Context(), httputil.GetUserID(r), r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MovePrompt places a prompt under a folder after a sibling
// POST /api/prompts/{id}/move
func (h *PromptHandler) MovePrompt(w http.ResponseWriter, r *http.Request) {
	var req models.MoveRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prompt, err := h.prompts.MovePrompt(r.Context(), httputil.GetUserID(r), r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, prompt)
}

// RecordUse bumps the prompt's use count
// POST /api/prompts/{id}/use
func (h *PromptHandler) RecordUse(w http.ResponseWriter, r *http.Request) {
	prompt, err := h.prompts.RecordUse(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, prompt)
}

// CopyPrompt copies a subscribed prompt into one of the user's folders
// POST /api/prompts/{id}/copy
func (h *PromptHandler) CopyPrompt(w http.ResponseWriter, r *http.Request) {
	var req models.CopyPromptRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cp, err := h.copies.CopyToMine(r.Context(), httputil.GetUserID(r), r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, cp)
}

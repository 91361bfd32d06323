package handler

import (
	"net/http"

	"promptdeck/internal/domain"
	"promptdeck/internal/httputil"
)

// handleError converts domain errors to HTTP responses. Internal failures
// never leak their message.
func handleError(w http.ResponseWriter, err error) {
	status := domain.StatusCode(err)
	if status == http.StatusInternalServerError {
		httputil.RespondError(w, status, "internal server error")
		return
	}
	httputil.RespondError(w, status, err.Error())
}

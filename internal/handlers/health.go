package handlers

import (
	"net/http"
)

// Health handles the health check endpoint. Strict like everything else: any
// query parameter is rejected.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := validateQuery(r); err != nil {
		h.Error(w, err)
		return
	}
	h.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Jtonna/AGORA--Agent-Group-Orchestration-and-Runtime-Architecture/internal/mailbox"
	"github.com/Jtonna/AGORA--Agent-Group-Orchestration-and-Runtime-Architecture/internal/models"
)

// Investigation handles GET /investigation/{name}: the audit view of every
// email the agent participates in, soft deletions ignored and status lists
// included, pages of 20.
func (h *Handler) Investigation(w http.ResponseWriter, r *http.Request) {
	if err := validateQuery(r, "page"); err != nil {
		h.Error(w, err)
		return
	}
	page, apiErr := pageParam(r, "page")
	if apiErr != nil {
		h.Error(w, apiErr)
		return
	}
	agent := models.NormalizeName(chi.URLParam(r, "name"))
	if agent == "" {
		h.Error(w, errorf(CodeInvalidName, "agent name cannot be blank"))
		return
	}

	involved := mailbox.InvestigationFor(h.store, agent)
	pageItems, meta, err := mailbox.Paginate(involved, page, mailbox.InvestigationPageSize)
	if err != nil {
		h.Error(w, errorf(CodeInvalidPage, err.Error()))
		return
	}

	h.JSON(w, http.StatusOK, map[string]any{
		"agent":      agent,
		"data":       pageItems,
		"pagination": meta,
	})
}

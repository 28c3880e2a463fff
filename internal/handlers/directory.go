package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Jtonna/AGORA--Agent-Group-Orchestration-and-Runtime-Architecture/internal/models"
	"github.com/Jtonna/AGORA--Agent-Group-Orchestration-and-Runtime-Architecture/internal/store"
)

// registrableFields is the POST /directory/agents body schema. Registration
// only reserves a name; the pid arrives later through the spawn path.
var registrableFields = map[string]struct{}{"name": {}}

// ListAgents handles GET /directory/agents: every registered agent, sorted
// by name.
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	if err := validateQuery(r); err != nil {
		h.Error(w, err)
		return
	}
	h.JSON(w, http.StatusOK, map[string]any{"agents": h.store.Agents()})
}

// RegisterAgent handles POST /directory/agents. Names are reserved for the
// lifetime of the process; a name that was ever registered stays taken.
func (h *Handler) RegisterAgent(w http.ResponseWriter, r *http.Request) {
	body, apiErr := jsonBody(r)
	if apiErr != nil {
		h.Error(w, apiErr)
		return
	}
	for key := range body {
		if _, allowed := registrableFields[key]; !allowed {
			h.Error(w, errorf(CodeUnknownField, fmt.Sprintf("unknown field: %s", key)))
			return
		}
	}
	rawName, present := body["name"]
	if !present {
		h.Error(w, errorf(CodeMissingField, "missing required field: name"))
		return
	}
	nameValue, isString := rawName.(string)
	if !isString {
		h.Error(w, errorf(CodeInvalidField, "field 'name' must be a string"))
		return
	}
	name := models.NormalizeName(nameValue)
	if name == "" {
		h.Error(w, errorf(CodeInvalidName, "agent name cannot be empty or whitespace"))
		return
	}

	if err := h.store.RegisterAgent(name, nil); err != nil {
		if errors.Is(err, store.ErrNameTaken) {
			h.Error(w, errorf(CodeNameTaken, fmt.Sprintf("agent name is already taken: %s", name)))
			return
		}
		h.Error(w, errorf(CodeInvalidName, err.Error()))
		return
	}
	h.JSON(w, http.StatusCreated, map[string]any{
		"name":    name,
		"pid":     nil,
		"message": "Agent registered successfully",
	})
}

// CheckAgentName handles GET /directory/agents/check?name=: an availability
// probe that reserves nothing.
func (h *Handler) CheckAgentName(w http.ResponseWriter, r *http.Request) {
	if err := validateQuery(r, "name"); err != nil {
		h.Error(w, err)
		return
	}
	raw, present := r.URL.Query()["name"]
	if !present {
		h.Error(w, errorf(CodeMissingField, "missing required 'name' query parameter"))
		return
	}
	name := models.NormalizeName(raw[0])
	if name == "" {
		h.Error(w, errorf(CodeInvalidName, "agent name cannot be blank"))
		return
	}
	h.JSON(w, http.StatusOK, map[string]any{
		"name":      name,
		"available": h.store.IsNameAvailable(name),
	})
}

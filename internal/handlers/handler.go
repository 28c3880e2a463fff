package handlers

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Jtonna/AGORA--Agent-Group-Orchestration-and-Runtime-Architecture/internal/mailbox"
	"github.com/Jtonna/AGORA--Agent-Group-Orchestration-and-Runtime-Architecture/internal/models"
	"github.com/Jtonna/AGORA--Agent-Group-Orchestration-and-Runtime-Architecture/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store *store.EmailStore
	log   zerolog.Logger
}

// NewHandler creates a new Handler backed by the given store.
func NewHandler(s *store.EmailStore, logger zerolog.Logger) *Handler {
	return &Handler{store: s, log: logger}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends the error envelope for an apiError, with the status derived
// from its code.
func (h *Handler) Error(w http.ResponseWriter, err *apiError) {
	status, known := codeStatus[err.Code]
	if !known {
		status = http.StatusBadRequest
	}
	h.JSON(w, status, map[string]string{"error": err.Message, "code": err.Code})
}

// validateQuery enforces the strict query contract: every parameter must be
// in the allowed set for the endpoint and appear at most once.
func validateQuery(r *http.Request, allowed ...string) *apiError {
	values, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		return errorf(CodeUnknownParameter, "malformed query string")
	}
	for key, occurrences := range values {
		permitted := false
		for _, name := range allowed {
			if key == name {
				permitted = true
				break
			}
		}
		if !permitted {
			return errorf(CodeUnknownParameter, fmt.Sprintf("unknown query parameter: %s", key))
		}
		if len(occurrences) > 1 {
			return errorf(CodeDuplicateParameter, fmt.Sprintf("duplicate query parameter: %s", key))
		}
	}
	return nil
}

// viewerParam extracts and normalizes the required viewer parameter.
func viewerParam(r *http.Request) (string, *apiError) {
	raw, present := r.URL.Query()["viewer"]
	if !present {
		return "", errorf(CodeMissingViewer, "query parameter 'viewer' is required")
	}
	viewer := models.NormalizeName(raw[0])
	if viewer == "" {
		return "", errorf(CodeInvalidViewer, "query parameter 'viewer' cannot be blank")
	}
	return viewer, nil
}

// pageParam validates an optional page parameter, defaulting to 1.
func pageParam(r *http.Request, name string) (int, *apiError) {
	page, err := mailbox.ValidatePage(r.URL.Query().Get(name))
	if err != nil {
		return 0, errorf(CodeInvalidPage, fmt.Sprintf("query parameter '%s' must be a positive integer", name))
	}
	return page, nil
}

// uuidParam validates a UUID-shaped path segment.
func uuidParam(value, name string) *apiError {
	if !models.ValidUUID(value) {
		return errorf(CodeInvalidUUID, fmt.Sprintf("invalid UUID for '%s': %s", name, value))
	}
	return nil
}

// jsonBody enforces the JSON content type and decodes the body into a map so
// unknown fields can be rejected.
func jsonBody(r *http.Request) (map[string]any, *apiError) {
	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.EqualFold(mediaType, "application/json") {
		return nil, errorf(CodeUnsupportedMediaType, "Content-Type must be application/json")
	}
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, errorf(CodeInvalidJSON, "request body is not valid JSON")
	}
	return body, nil
}

package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Jtonna/AGORA--Agent-Group-Orchestration-and-Runtime-Architecture/internal/mailbox"
	"github.com/Jtonna/AGORA--Agent-Group-Orchestration-and-Runtime-Architecture/internal/metrics"
	"github.com/Jtonna/AGORA--Agent-Group-Orchestration-and-Runtime-Architecture/internal/models"
)

// inboxItem is the inbox listing shape: headers only, plus the per-viewer
// read flag. Content and status lists stay behind the detail endpoint.
type inboxItem struct {
	ID           string   `json:"id"`
	From         string   `json:"from"`
	To           []string `json:"to"`
	Subject      string   `json:"subject"`
	Timestamp    string   `json:"timestamp"`
	IsResponseTo *string  `json:"isResponseTo"`
	Read         bool     `json:"read"`
}

// threadItem is the thread listing shape inside the detail response.
type threadItem struct {
	ID           string   `json:"id"`
	From         string   `json:"from"`
	To           []string `json:"to"`
	Subject      string   `json:"subject"`
	Timestamp    string   `json:"timestamp"`
	IsResponseTo *string  `json:"isResponseTo"`
}

// detailItem is the detail response shape: full content plus the per-viewer
// read flag. The readBy/deletedBy lists never leave the investigation view.
type detailItem struct {
	ID           string   `json:"id"`
	From         string   `json:"from"`
	To           []string `json:"to"`
	Subject      string   `json:"subject"`
	Content      string   `json:"content"`
	Timestamp    string   `json:"timestamp"`
	IsResponseTo *string  `json:"isResponseTo"`
	Read         bool     `json:"read"`
}

// threadPagination is the standard block with total_items renamed to the
// size of the thread around the viewed email.
type threadPagination struct {
	Page          int  `json:"page"`
	PerPage       int  `json:"per_page"`
	TotalInThread int  `json:"total_in_thread"`
	TotalPages    int  `json:"total_pages"`
	HasNext       bool `json:"has_next"`
	HasPrev       bool `json:"has_prev"`
}

// Inbox handles GET /mail: the viewer's visible messages, newest first,
// pages of 10.
func (h *Handler) Inbox(w http.ResponseWriter, r *http.Request) {
	if err := validateQuery(r, "viewer", "page"); err != nil {
		h.Error(w, err)
		return
	}
	viewer, apiErr := viewerParam(r)
	if apiErr != nil {
		h.Error(w, apiErr)
		return
	}
	page, apiErr := pageParam(r, "page")
	if apiErr != nil {
		h.Error(w, apiErr)
		return
	}

	visible := mailbox.InboxFor(h.store, viewer)
	pageItems, meta, err := mailbox.Paginate(visible, page, mailbox.InboxPageSize)
	if err != nil {
		h.Error(w, errorf(CodeInvalidPage, err.Error()))
		return
	}

	items := make([]inboxItem, 0, len(pageItems))
	for _, email := range pageItems {
		items = append(items, inboxItem{
			ID:           email.ID,
			From:         email.From,
			To:           email.To,
			Subject:      email.Subject,
			Timestamp:    email.Timestamp,
			IsResponseTo: email.IsResponseTo,
			Read:         email.IsReadBy(viewer),
		})
	}
	h.JSON(w, http.StatusOK, map[string]any{"data": items, "pagination": meta})
}

// sendableFields is the POST /mail body schema.
var sendableFields = map[string]struct{}{
	"to": {}, "from": {}, "subject": {}, "content": {}, "isResponseTo": {},
}

// Send handles POST /mail.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	body, apiErr := jsonBody(r)
	if apiErr != nil {
		h.Error(w, apiErr)
		return
	}
	for key := range body {
		if _, allowed := sendableFields[key]; !allowed {
			h.Error(w, errorf(CodeUnknownField, fmt.Sprintf("unknown field: %s", key)))
			return
		}
	}
	for _, field := range []string{"to", "from", "subject", "content"} {
		if _, present := body[field]; !present {
			h.Error(w, errorf(CodeMissingField, fmt.Sprintf("missing required field: %s", field)))
			return
		}
	}

	rawTo, isList := body["to"].([]any)
	if !isList {
		h.Error(w, errorf(CodeInvalidField, "field 'to' must be an array of strings"))
		return
	}
	to := make([]string, 0, len(rawTo))
	for _, item := range rawTo {
		name, isString := item.(string)
		if !isString {
			h.Error(w, errorf(CodeInvalidField, "field 'to' must be an array of strings"))
			return
		}
		to = append(to, name)
	}
	from, isString := body["from"].(string)
	if !isString {
		h.Error(w, errorf(CodeInvalidField, "field 'from' must be a string"))
		return
	}
	subject, isString := body["subject"].(string)
	if !isString {
		h.Error(w, errorf(CodeInvalidField, "field 'subject' must be a string"))
		return
	}
	content, isString := body["content"].(string)
	if !isString {
		h.Error(w, errorf(CodeInvalidField, "field 'content' must be a string"))
		return
	}

	var isResponseTo *string
	if raw, present := body["isResponseTo"]; present && raw != nil {
		parentID, isString := raw.(string)
		if !isString {
			h.Error(w, errorf(CodeInvalidField, "field 'isResponseTo' must be a string or null"))
			return
		}
		if !models.ValidUUID(parentID) {
			h.Error(w, errorf(CodeInvalidUUID, fmt.Sprintf("invalid UUID for 'isResponseTo': %s", parentID)))
			return
		}
		if !h.store.Exists(parentID) {
			h.Error(w, errorf(CodeParentNotFound, fmt.Sprintf("email being responded to does not exist: %s", parentID)))
			return
		}
		isResponseTo = &parentID
	}

	sender := models.NormalizeName(from)
	if sender == "" {
		h.Error(w, errorf(CodeInvalidField, "field 'from' cannot be empty"))
		return
	}

	to, apiErr = h.expandEveryone(to, sender)
	if apiErr != nil {
		h.Error(w, apiErr)
		return
	}

	// Replies get the conventional subject prefix unless already present.
	if isResponseTo != nil && !strings.HasPrefix(strings.ToLower(strings.TrimSpace(subject)), "re:") {
		subject = "Re: " + subject
	}

	email, err := models.NewEmail(to, from, subject, content, isResponseTo)
	if err != nil {
		h.Error(w, errorf(CodeInvalidField, err.Error()))
		return
	}
	email.MarkReadBy(email.From) // the sender has read their own mail
	h.store.Create(email)

	kind := "new"
	if isResponseTo != nil {
		kind = "reply"
	}
	metrics.MailSent.WithLabelValues(kind).Inc()
	h.log.Info().Str("id", email.ID).Str("from", email.From).Int("recipients", len(email.To)).Msg("email sent")

	h.JSON(w, http.StatusCreated, map[string]string{
		"id":      email.ID,
		"message": "Email sent successfully",
	})
}

// expandEveryone replaces the broadcast token with every registered agent
// except the sender. Explicitly named recipients are kept; the expansion is
// appended and the result deduplicated in first-occurrence order.
func (h *Handler) expandEveryone(to []string, sender string) ([]string, *apiError) {
	broadcast := false
	for _, name := range to {
		if models.NormalizeName(name) == "everyone" {
			broadcast = true
			break
		}
	}
	if !broadcast {
		return to, nil
	}
	expanded := make([]string, 0, len(to))
	for _, name := range to {
		if models.NormalizeName(name) != "everyone" {
			expanded = append(expanded, name)
		}
	}
	for _, name := range h.store.AgentNames() {
		if name != sender {
			expanded = append(expanded, name)
		}
	}
	expanded = models.NormalizeNames(expanded)
	if len(expanded) == 0 {
		return nil, errorf(CodeInvalidField, "no known agents to broadcast to")
	}
	return expanded, nil
}

// Detail handles GET /mail/{id}: the full email plus its thread, pages of
// 20. Fetching marks the email read by the viewer.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	if err := validateQuery(r, "viewer", "thread_page"); err != nil {
		h.Error(w, err)
		return
	}
	viewer, apiErr := viewerParam(r)
	if apiErr != nil {
		h.Error(w, apiErr)
		return
	}
	threadPage, apiErr := pageParam(r, "thread_page")
	if apiErr != nil {
		h.Error(w, apiErr)
		return
	}
	id := chi.URLParam(r, "id")
	if err := uuidParam(id, "id"); err != nil {
		h.Error(w, err)
		return
	}

	email, exists := h.store.GetByID(id)
	if !exists {
		h.Error(w, errorf(CodeEmailNotFound, fmt.Sprintf("email not found: %s", id)))
		return
	}
	if email.IsDeletedFor(viewer) {
		h.Error(w, errorf(CodeEmailDeleted, fmt.Sprintf("email has been deleted: %s", id)))
		return
	}

	// Viewing marks the email read, even when the thread page below turns
	// out to be out of range.
	if mailbox.MarkRead(h.store, email.ID, viewer) {
		email.MarkReadBy(viewer)
	}

	thread := mailbox.BuildThread(h.store, email)
	pageItems, meta, err := mailbox.Paginate(thread, threadPage, mailbox.ThreadPageSize)
	if err != nil {
		h.Error(w, errorf(CodeInvalidPage, err.Error()))
		return
	}

	items := make([]threadItem, 0, len(pageItems))
	for _, member := range pageItems {
		items = append(items, threadItem{
			ID:           member.ID,
			From:         member.From,
			To:           member.To,
			Subject:      member.Subject,
			Timestamp:    member.Timestamp,
			IsResponseTo: member.IsResponseTo,
		})
	}
	h.JSON(w, http.StatusOK, map[string]any{
		"email": detailItem{
			ID:           email.ID,
			From:         email.From,
			To:           email.To,
			Subject:      email.Subject,
			Content:      email.Content,
			Timestamp:    email.Timestamp,
			IsResponseTo: email.IsResponseTo,
			Read:         email.IsReadBy(viewer),
		},
		"thread": items,
		"thread_pagination": threadPagination{
			Page:          meta.Page,
			PerPage:       meta.PerPage,
			TotalInThread: meta.TotalItems,
			TotalPages:    meta.TotalPages,
			HasNext:       meta.HasNext,
			HasPrev:       meta.HasPrev,
		},
	})
}

// SoftDelete handles DELETE /mail/{id}: hides the email from the viewer's
// inbox. The record and everyone else's view are untouched. Idempotent.
func (h *Handler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	if err := validateQuery(r, "viewer"); err != nil {
		h.Error(w, err)
		return
	}
	viewer, apiErr := viewerParam(r)
	if apiErr != nil {
		h.Error(w, apiErr)
		return
	}
	id := chi.URLParam(r, "id")
	if err := uuidParam(id, "id"); err != nil {
		h.Error(w, err)
		return
	}

	email, exists := h.store.GetByID(id)
	if !exists {
		h.Error(w, errorf(CodeEmailNotFound, fmt.Sprintf("email not found: %s", id)))
		return
	}
	if !email.IsParticipant(viewer) {
		h.Error(w, errorf(CodeNotParticipant, "only participants can delete an email"))
		return
	}

	if !email.IsDeletedFor(viewer) {
		mailbox.MarkDeleted(h.store, email.ID, viewer)
		metrics.MailDeleted.Inc()
	}
	h.JSON(w, http.StatusOK, map[string]string{"message": "Email deleted"})
}

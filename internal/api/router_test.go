package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Jtonna/AGORA--Agent-Group-Orchestration-and-Runtime-Architecture/internal/store"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	s := store.New(t.TempDir(), zerolog.Nop())
	if err := s.Initialize(); err != nil {
		t.Fatal(err)
	}
	return NewRouter(zerolog.Nop(), s)
}

func doJSON(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	if got := decode(t, rec)["code"]; got != code {
		t.Fatalf("expected code %q, got %v", code, got)
	}
}

func sendMail(t *testing.T, router http.Handler, body string) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/mail", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("send failed with %d: %s", rec.Code, rec.Body.String())
	}
	id, isString := decode(t, rec)["id"].(string)
	if !isString || id == "" {
		t.Fatalf("no id in response: %s", rec.Body.String())
	}
	return id
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if decode(t, rec)["status"] != "ok" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/health?verbose=1", "")
	expectCode(t, rec, http.StatusBadRequest, "UNKNOWN_PARAMETER")
}

func TestSendAndReadMail(t *testing.T) {
	router := newTestRouter(t)
	id := sendMail(t, router, `{"to": ["Bob"], "from": "Alice", "subject": "hi", "content": "hello bob"}`)

	rec := doJSON(t, router, http.MethodGet, "/mail/"+id+"?viewer=bob", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	email := body["email"].(map[string]any)
	if email["from"] != "alice" || email["content"] != "hello bob" {
		t.Fatalf("unexpected email: %v", email)
	}
	// Fetching marks the mail read by the viewer; the detail shape carries a
	// read flag and keeps the status lists private.
	if email["read"] != true {
		t.Fatalf("expected read=true, got %v", email["read"])
	}
	for _, key := range []string{"readBy", "deletedBy"} {
		if _, present := email[key]; present {
			t.Fatalf("detail email must not carry %s", key)
		}
	}
}

func TestDetailMarksReadEvenWhenThreadPageInvalid(t *testing.T) {
	router := newTestRouter(t)
	id := sendMail(t, router, `{"to": ["bob"], "from": "alice", "subject": "s", "content": "c"}`)

	rec := doJSON(t, router, http.MethodGet, "/mail/"+id+"?viewer=bob&thread_page=99", "")
	expectCode(t, rec, http.StatusBadRequest, "INVALID_PAGE")

	// The read side effect landed before pagination failed.
	rec = doJSON(t, router, http.MethodGet, "/investigation/bob", "")
	record := decode(t, rec)["data"].([]any)[0].(map[string]any)
	readBy := record["readBy"].([]any)
	found := false
	for _, name := range readBy {
		if name == "bob" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected bob in readBy, got %v", readBy)
	}
}

func TestSendValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/mail", `{"to": ["bob"], "from": "alice", "subject": "s"}`)
	expectCode(t, rec, http.StatusBadRequest, "MISSING_FIELD")

	rec = doJSON(t, router, http.MethodPost, "/mail", `{"to": ["bob"], "from": "alice", "subject": "s", "content": "c", "priority": "high"}`)
	expectCode(t, rec, http.StatusBadRequest, "UNKNOWN_FIELD")

	rec = doJSON(t, router, http.MethodPost, "/mail", `{"to": "bob", "from": "alice", "subject": "s", "content": "c"}`)
	expectCode(t, rec, http.StatusBadRequest, "INVALID_FIELD")

	rec = doJSON(t, router, http.MethodPost, "/mail", `not json`)
	expectCode(t, rec, http.StatusBadRequest, "INVALID_JSON")

	req := httptest.NewRequest(http.MethodPost, "/mail", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	plain := httptest.NewRecorder()
	router.ServeHTTP(plain, req)
	expectCode(t, plain, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE")
}

func TestReplySubjectPrefix(t *testing.T) {
	router := newTestRouter(t)
	parent := sendMail(t, router, `{"to": ["bob"], "from": "alice", "subject": "plans", "content": "?"}`)
	reply := sendMail(t, router, `{"to": ["alice"], "from": "bob", "subject": "plans", "content": "!", "isResponseTo": "`+parent+`"}`)

	rec := doJSON(t, router, http.MethodGet, "/mail/"+reply+"?viewer=alice", "")
	email := decode(t, rec)["email"].(map[string]any)
	if email["subject"] != "Re: plans" {
		t.Fatalf("expected prefixed subject, got %v", email["subject"])
	}

	// Already-prefixed subjects are left alone, case-insensitively.
	reply2 := sendMail(t, router, `{"to": ["bob"], "from": "alice", "subject": "RE: plans", "content": "!", "isResponseTo": "`+parent+`"}`)
	rec = doJSON(t, router, http.MethodGet, "/mail/"+reply2+"?viewer=bob", "")
	email = decode(t, rec)["email"].(map[string]any)
	if email["subject"] != "RE: plans" {
		t.Fatalf("expected subject untouched, got %v", email["subject"])
	}
}

func TestReplyToUnknownParent(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/mail",
		`{"to": ["bob"], "from": "alice", "subject": "s", "content": "c", "isResponseTo": "99999999-9999-4999-8999-999999999999"}`)
	expectCode(t, rec, http.StatusNotFound, "PARENT_NOT_FOUND")
}

func TestThreadInDetailResponse(t *testing.T) {
	router := newTestRouter(t)
	parent := sendMail(t, router, `{"to": ["bob"], "from": "alice", "subject": "s", "content": "c"}`)
	reply := sendMail(t, router, `{"to": ["alice"], "from": "bob", "subject": "s", "content": "r", "isResponseTo": "`+parent+`"}`)

	rec := doJSON(t, router, http.MethodGet, "/mail/"+reply+"?viewer=alice", "")
	body := decode(t, rec)
	thread := body["thread"].([]any)
	if len(thread) != 1 {
		t.Fatalf("expected 1 thread entry, got %v", thread)
	}
	entry := thread[0].(map[string]any)
	if entry["id"] != parent {
		t.Fatalf("expected parent in thread, got %v", entry)
	}
	if _, present := entry["content"]; present {
		t.Fatal("thread entries must not carry content")
	}
	// total_in_thread counts the thread around the viewed email, which the
	// thread list excludes.
	meta := body["thread_pagination"].(map[string]any)
	if meta["total_in_thread"] != float64(1) {
		t.Fatalf("expected total_in_thread 1, got %v", meta["total_in_thread"])
	}
	if _, present := meta["total_items"]; present {
		t.Fatal("thread pagination must not carry total_items")
	}
}

func TestInboxListing(t *testing.T) {
	router := newTestRouter(t)
	sendMail(t, router, `{"to": ["bob"], "from": "alice", "subject": "one", "content": "c1"}`)
	sendMail(t, router, `{"to": ["carol"], "from": "alice", "subject": "two", "content": "c2"}`)

	rec := doJSON(t, router, http.MethodGet, "/mail?viewer=bob", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	data := body["data"].([]any)
	if len(data) != 1 {
		t.Fatalf("expected 1 inbox item, got %v", data)
	}
	item := data[0].(map[string]any)
	if item["subject"] != "one" || item["read"] != false {
		t.Fatalf("unexpected item: %v", item)
	}
	if _, present := item["content"]; present {
		t.Fatal("inbox items must not carry content")
	}

	rec = doJSON(t, router, http.MethodGet, "/mail", "")
	expectCode(t, rec, http.StatusBadRequest, "MISSING_VIEWER")

	rec = doJSON(t, router, http.MethodGet, "/mail?viewer=bob&viewer=carol", "")
	expectCode(t, rec, http.StatusBadRequest, "DUPLICATE_PARAMETER")

	rec = doJSON(t, router, http.MethodGet, "/mail?viewer=bob&page=2.0", "")
	expectCode(t, rec, http.StatusBadRequest, "INVALID_PAGE")
}

func TestDetailErrors(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/mail/not-a-uuid?viewer=bob", "")
	expectCode(t, rec, http.StatusBadRequest, "INVALID_UUID")

	rec = doJSON(t, router, http.MethodGet, "/mail/99999999-9999-4999-8999-999999999999?viewer=bob", "")
	expectCode(t, rec, http.StatusNotFound, "EMAIL_NOT_FOUND")
}

func TestSoftDeleteLifecycle(t *testing.T) {
	router := newTestRouter(t)
	id := sendMail(t, router, `{"to": ["bob"], "from": "alice", "subject": "s", "content": "c"}`)

	rec := doJSON(t, router, http.MethodDelete, "/mail/"+id+"?viewer=mallory", "")
	expectCode(t, rec, http.StatusForbidden, "NOT_PARTICIPANT")

	rec = doJSON(t, router, http.MethodDelete, "/mail/"+id+"?viewer=bob", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/mail/"+id+"?viewer=bob", "")
	expectCode(t, rec, http.StatusGone, "EMAIL_DELETED")

	// Idempotent for the deleting viewer; untouched for others.
	rec = doJSON(t, router, http.MethodDelete, "/mail/"+id+"?viewer=bob", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected idempotent delete, got %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/mail/"+id+"?viewer=alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected alice to still see the mail, got %d", rec.Code)
	}
}

func TestInvestigationIncludesDeleted(t *testing.T) {
	router := newTestRouter(t)
	id := sendMail(t, router, `{"to": ["bob"], "from": "alice", "subject": "s", "content": "c"}`)
	doJSON(t, router, http.MethodDelete, "/mail/"+id+"?viewer=bob", "")

	rec := doJSON(t, router, http.MethodGet, "/investigation/bob", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	data := body["data"].([]any)
	if len(data) != 1 {
		t.Fatalf("expected deleted mail in investigation, got %v", data)
	}
	record := data[0].(map[string]any)
	deletedBy := record["deletedBy"].([]any)
	if len(deletedBy) != 1 || deletedBy[0] != "bob" {
		t.Fatalf("expected deletedBy [bob], got %v", deletedBy)
	}
}

func TestDirectoryLifecycle(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/directory/agents/check?name=Alice", "")
	if decode(t, rec)["available"] != true {
		t.Fatalf("expected alice available: %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/directory/agents", `{"name": "Alice"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode(t, rec)
	if created["name"] != "alice" || created["pid"] != nil || created["message"] != "Agent registered successfully" {
		t.Fatalf("unexpected registration body: %v", created)
	}

	// Registration reserves a name only; a pid in the body is rejected.
	rec = doJSON(t, router, http.MethodPost, "/directory/agents", `{"name": "bob", "pid": 4242}`)
	expectCode(t, rec, http.StatusBadRequest, "UNKNOWN_FIELD")

	rec = doJSON(t, router, http.MethodPost, "/directory/agents", `{"name": "alice"}`)
	expectCode(t, rec, http.StatusBadRequest, "NAME_TAKEN")

	rec = doJSON(t, router, http.MethodPost, "/directory/agents", `{"name": "   "}`)
	expectCode(t, rec, http.StatusBadRequest, "INVALID_NAME")

	rec = doJSON(t, router, http.MethodGet, "/directory/agents/check?name=alice", "")
	if decode(t, rec)["available"] != false {
		t.Fatalf("expected alice taken: %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/directory/agents/check", "")
	expectCode(t, rec, http.StatusBadRequest, "MISSING_FIELD")

	rec = doJSON(t, router, http.MethodGet, "/directory/agents", "")
	agents := decode(t, rec)["agents"].([]any)
	if len(agents) != 1 {
		t.Fatalf("expected 1 agent, got %v", agents)
	}
	agent := agents[0].(map[string]any)
	if agent["name"] != "alice" || agent["pid"] != nil {
		t.Fatalf("unexpected agent: %v", agent)
	}
}

func TestBroadcastExpansion(t *testing.T) {
	router := newTestRouter(t)

	// Nobody registered and no explicit recipients: broadcast has no audience.
	rec := doJSON(t, router, http.MethodPost, "/mail", `{"to": ["everyone"], "from": "alice", "subject": "s", "content": "c"}`)
	expectCode(t, rec, http.StatusBadRequest, "INVALID_FIELD")

	for _, name := range []string{"alice", "bob", "carol"} {
		doJSON(t, router, http.MethodPost, "/directory/agents", `{"name": "`+name+`"}`)
	}

	id := sendMail(t, router, `{"to": ["everyone"], "from": "alice", "subject": "s", "content": "c"}`)
	rec = doJSON(t, router, http.MethodGet, "/mail/"+id+"?viewer=bob", "")
	email := decode(t, rec)["email"].(map[string]any)
	to := email["to"].([]any)
	if len(to) != 2 {
		t.Fatalf("expected everyone minus the sender, got %v", to)
	}
	for _, name := range to {
		if name == "alice" {
			t.Fatal("sender must not receive their own broadcast")
		}
	}
}

func TestBroadcastKeepsExplicitRecipients(t *testing.T) {
	router := newTestRouter(t)
	for _, name := range []string{"alice", "carol"} {
		doJSON(t, router, http.MethodPost, "/directory/agents", `{"name": "`+name+`"}`)
	}

	// The broadcast token expands in place: explicit recipients survive,
	// even ones that are not registered, and registered agents are appended
	// minus the sender, deduplicated.
	id := sendMail(t, router, `{"to": ["bob", "everyone", "carol"], "from": "alice", "subject": "s", "content": "c"}`)
	rec := doJSON(t, router, http.MethodGet, "/mail/"+id+"?viewer=bob", "")
	email := decode(t, rec)["email"].(map[string]any)
	to := email["to"].([]any)
	want := []string{"bob", "carol"}
	if len(to) != len(want) || to[0] != want[0] || to[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, to)
	}

	// Explicit recipients alone satisfy a broadcast with no other agents.
	router2 := newTestRouter(t)
	id = sendMail(t, router2, `{"to": ["bob", "everyone"], "from": "alice", "subject": "s", "content": "c"}`)
	rec = doJSON(t, router2, http.MethodGet, "/mail/"+id+"?viewer=bob", "")
	email = decode(t, rec)["email"].(map[string]any)
	to = email["to"].([]any)
	if len(to) != 1 || to[0] != "bob" {
		t.Fatalf("expected [bob], got %v", to)
	}
}

package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"margin/api/internal/config"
	"margin/api/internal/logging"
)

func newTestServer(t *testing.T) (*fixture, http.Handler) {
	t.Helper()
	f := newFixture(t, config.Config{})
	return f, NewHTTPServer(f.svc, "*", logging.Discard()).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader([]byte("{}"))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var response map[string]any
	if rr.Code != http.StatusNoContent && rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
			t.Fatalf("failed to parse response %q: %v", rr.Body.String(), err)
		}
	}
	return rr, response
}

func textPointer(from, to int) map[string]any {
	return map[string]any{"type": "text-range", "documentId": "doc-1", "from": from, "to": to}
}

func TestHealthEndpoint(t *testing.T) {
	_, h := newTestServer(t)

	rr, response := doJSON(t, h, http.MethodGet, "/api/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ok, exists := response["ok"]; !exists || ok != true {
		t.Errorf("expected ok=true, got %v", ok)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS header")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Errorf("missing request id header")
	}
}

func TestOptionsRequest(t *testing.T) {
	_, h := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/threads", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}

func TestCreateThreadAndListComments(t *testing.T) {
	_, h := newTestServer(t)

	rr, created := doJSON(t, h, http.MethodPost, "/api/threads", map[string]any{
		"pointer": textPointer(10, 20),
		"content": "Tighten this wording",
		"author":  "ana",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	thread := created["thread"].(map[string]any)
	threadID := thread["id"].(string)
	if thread["status"] != "active" || thread["documentId"] != "doc-1" {
		t.Fatalf("unexpected thread view: %v", thread)
	}
	pointers := thread["pointers"].([]any)
	first := pointers[0].(map[string]any)
	if first["text"] != "HELLOWORLD" || first["schemaVersion"] != float64(1) {
		t.Fatalf("pointer should be re-derived from the document: %v", first)
	}

	rr, _ = doJSON(t, h, http.MethodPost, "/api/threads/"+threadID+"/comments", map[string]any{
		"content": "Agreed",
		"author":  "ben",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("reply: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr, listed := doJSON(t, h, http.MethodGet, "/api/threads/"+threadID+"/comments", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list comments: expected 200, got %d", rr.Code)
	}
	comments := listed["comments"].([]any)
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(comments))
	}
	if comments[1].(map[string]any)["author"] != "ben" {
		t.Fatalf("comments out of order: %v", comments)
	}

	rr, byDoc := doJSON(t, h, http.MethodGet, "/api/threads?documentId=doc-1", nil)
	if rr.Code != http.StatusOK || len(byDoc["threads"].([]any)) != 1 {
		t.Fatalf("documentId filter: %d %v", rr.Code, byDoc)
	}
	_, byType := doJSON(t, h, http.MethodGet, "/api/threads?type=section", nil)
	if len(byType["threads"].([]any)) != 0 {
		t.Fatalf("type filter should exclude text threads: %v", byType)
	}
}

func TestCreateThreadErrors(t *testing.T) {
	_, h := newTestServer(t)

	cases := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"missing pointer", map[string]any{"content": "x", "author": "ana"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown type", map[string]any{"pointer": map[string]any{"type": "pin", "documentId": "doc-1"}, "content": "x", "author": "ana"}, http.StatusUnprocessableEntity, "INVALID_POINTER"},
		{"out of bounds", map[string]any{"pointer": textPointer(25, 40), "content": "x", "author": "ana"}, http.StatusUnprocessableEntity, "INVALID_POINTER"},
		{"unknown document", map[string]any{"pointer": map[string]any{"type": "text-range", "documentId": "doc-9", "from": 1, "to": 2}, "content": "x", "author": "ana"}, http.StatusNotFound, "NOT_FOUND"},
		{"empty content", map[string]any{"pointer": textPointer(1, 2), "content": "", "author": "ana"}, http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, response := doJSON(t, h, http.MethodPost, "/api/threads", tc.body)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
			if response["code"] != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, response["code"])
			}
		})
	}
}

func TestOverlappingThreadIsConflict(t *testing.T) {
	_, h := newTestServer(t)

	doJSON(t, h, http.MethodPost, "/api/threads", map[string]any{"pointer": textPointer(10, 20), "content": "a", "author": "ana"})
	rr, response := doJSON(t, h, http.MethodPost, "/api/threads", map[string]any{"pointer": textPointer(12, 22), "content": "b", "author": "ben"})
	if rr.Code != http.StatusConflict || response["code"] != CodeOverlappingComment {
		t.Fatalf("expected overlap conflict, got %d %v", rr.Code, response)
	}
}

func TestResolveOpenAndStats(t *testing.T) {
	f, h := newTestServer(t)

	_, created := doJSON(t, h, http.MethodPost, "/api/threads", map[string]any{"pointer": textPointer(10, 20), "content": "a", "author": "ana"})
	threadID := created["thread"].(map[string]any)["id"].(string)

	rr, opened := doJSON(t, h, http.MethodPost, "/api/threads/"+threadID+"/open", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("open: expected 200, got %d", rr.Code)
	}
	if len(opened["comments"].([]any)) != 1 {
		t.Fatalf("open should return comments: %v", opened)
	}
	if f.buf.FocusPos() != 10 {
		t.Fatalf("open should focus the anchor, focus=%d", f.buf.FocusPos())
	}

	rr, resolved := doJSON(t, h, http.MethodPost, "/api/threads/"+threadID+"/resolve", map[string]any{"resolvedBy": "ben"})
	if rr.Code != http.StatusOK || resolved["status"] != "resolved" || resolved["resolvedBy"] != "ben" {
		t.Fatalf("resolve: %d %v", rr.Code, resolved)
	}

	_, stats := doJSON(t, h, http.MethodGet, "/api/stats", nil)
	if stats["resolvedThreads"] != float64(1) || stats["activeThreads"] != float64(0) || stats["totalComments"] != float64(1) {
		t.Fatalf("unexpected stats: %v", stats)
	}

	rr, response := doJSON(t, h, http.MethodPost, "/api/threads/"+threadID+"/comments", map[string]any{"content": "late", "author": "cy"})
	if rr.Code != http.StatusConflict || response["code"] != "INVALID_STATE" {
		t.Fatalf("reply to resolved thread: %d %v", rr.Code, response)
	}

	rr, response = doJSON(t, h, http.MethodGet, "/api/threads/thr_missing", nil)
	if rr.Code != http.StatusNotFound || response["code"] != "NOT_FOUND" {
		t.Fatalf("missing thread: %d %v", rr.Code, response)
	}
}

func TestCommentFromSelectionAndLookup(t *testing.T) {
	f, h := newTestServer(t)

	rr, response := doJSON(t, h, http.MethodPost, "/api/documents/doc-1/comments", map[string]any{"content": "x", "author": "ana"})
	if rr.Code != http.StatusUnprocessableEntity || response["code"] != "INVALID_SELECTION" {
		t.Fatalf("expected INVALID_SELECTION, got %d %v", rr.Code, response)
	}

	rr, selected := doJSON(t, h, http.MethodPut, "/api/documents/doc-1/selection", map[string]any{"from": 10, "to": 20})
	if rr.Code != http.StatusOK || len(selected["threads"].([]any)) != 0 {
		t.Fatalf("set selection: %d %v", rr.Code, selected)
	}
	if from, to, ok := f.buf.Selection(); !ok || from != 10 || to != 20 {
		t.Fatalf("buffer selection = [%d,%d) %v", from, to, ok)
	}
	rr, _ = doJSON(t, h, http.MethodPost, "/api/documents/doc-1/comments", map[string]any{"content": "x", "author": "ana"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("comment on selection: %d %s", rr.Code, rr.Body.String())
	}

	_, found := doJSON(t, h, http.MethodPost, "/api/pointers/lookup", map[string]any{"pointer": textPointer(10, 20)})
	if found["exists"] != true || len(found["threads"].([]any)) != 1 {
		t.Fatalf("lookup should find the thread: %v", found)
	}
	_, missing := doJSON(t, h, http.MethodPost, "/api/pointers/lookup", map[string]any{"pointer": textPointer(11, 20)})
	if missing["exists"] != false {
		t.Fatalf("lookup should not match a different range: %v", missing)
	}

	_, atSelection := doJSON(t, h, http.MethodGet, "/api/documents/doc-1/selection", nil)
	if len(atSelection["threads"].([]any)) != 1 {
		t.Fatalf("selection lookup: %v", atSelection)
	}

	_, docs := doJSON(t, h, http.MethodGet, "/api/documents", nil)
	if len(docs["documents"].([]any)) != 2 {
		t.Fatalf("expected both registered documents: %v", docs)
	}
}

func TestSetSelectionErrors(t *testing.T) {
	_, h := newTestServer(t)

	cases := []struct {
		name   string
		path   string
		body   map[string]any
		status int
		code   string
	}{
		{"half range", "/api/documents/doc-1/selection", map[string]any{"from": 1}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"outside document", "/api/documents/doc-1/selection", map[string]any{"from": 1, "to": 99}, http.StatusUnprocessableEntity, "INVALID_SELECTION"},
		{"missing section", "/api/documents/item-7/selection", map[string]any{"sectionPath": "nope"}, http.StatusUnprocessableEntity, "INVALID_SELECTION"},
		{"unknown document", "/api/documents/ghost/selection", map[string]any{}, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, response := doJSON(t, h, http.MethodPut, tc.path, tc.body)
			if rr.Code != tc.status || response["code"] != tc.code {
				t.Fatalf("expected %d %s, got %d %v", tc.status, tc.code, rr.Code, response)
			}
		})
	}

	rr, response := doJSON(t, h, http.MethodPut, "/api/documents/item-7/selection", map[string]any{"sectionPath": "overview"})
	if rr.Code != http.StatusOK {
		t.Fatalf("focus section: %d %v", rr.Code, response)
	}
}

func TestEditDocumentRemapsThreads(t *testing.T) {
	f, h := newTestServer(t)

	rr, created := doJSON(t, h, http.MethodPost, "/api/threads", map[string]any{
		"pointer": textPointer(10, 20),
		"content": "watch this word",
		"author":  "ana",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create thread: %d %s", rr.Code, rr.Body.String())
	}
	threadID := created["thread"].(map[string]any)["id"].(string)

	rr, report := doJSON(t, h, http.MethodPost, "/api/documents/doc-1/edits", map[string]any{"from": 0, "to": 0, "text": "12345"})
	if rr.Code != http.StatusOK {
		t.Fatalf("edit: %d %s", rr.Code, rr.Body.String())
	}
	moved := report["moved"].([]any)
	if len(moved) != 1 || moved[0] != threadID {
		t.Fatalf("expected thread to move: %v", report)
	}
	if got := f.buf.Text(); got != "12345"+sampleText {
		t.Fatalf("buffer text = %q", got)
	}

	_, found := doJSON(t, h, http.MethodPost, "/api/pointers/lookup", map[string]any{"pointer": textPointer(15, 25)})
	if found["exists"] != true {
		t.Fatalf("thread should sit at its new range: %v", found)
	}

	rr, report = doJSON(t, h, http.MethodPost, "/api/documents/doc-1/edits", map[string]any{"from": 13, "to": 27, "text": ""})
	if rr.Code != http.StatusOK || len(report["orphaned"].([]any)) != 1 {
		t.Fatalf("delete over the anchor should orphan it: %d %v", rr.Code, report)
	}

	_, stats := doJSON(t, h, http.MethodGet, "/api/stats", nil)
	if stats["orphanedThreads"] != float64(1) {
		t.Fatalf("stats: %v", stats)
	}

	rr, response := doJSON(t, h, http.MethodPost, "/api/documents/item-7/edits", map[string]any{"from": 0, "to": 0, "text": "x"})
	if rr.Code != http.StatusConflict || response["code"] != "INVALID_STATE" {
		t.Fatalf("items take no text edits: %d %v", rr.Code, response)
	}
	rr, response = doJSON(t, h, http.MethodPost, "/api/documents/doc-1/edits", map[string]any{"text": "x"})
	if rr.Code != http.StatusBadRequest || response["code"] != "VALIDATION_ERROR" {
		t.Fatalf("missing range: %d %v", rr.Code, response)
	}
}

func TestEditStatusAndSearch(t *testing.T) {
	_, h := newTestServer(t)

	_, created := doJSON(t, h, http.MethodPost, "/api/threads", map[string]any{"pointer": textPointer(10, 20), "content": "needs a citation", "author": "ana"})
	commentID := created["comment"].(map[string]any)["id"].(string)

	rr, edited := doJSON(t, h, http.MethodPatch, "/api/comments/"+commentID, map[string]any{"content": "needs two citations", "editedBy": "ana"})
	if rr.Code != http.StatusOK {
		t.Fatalf("edit: %d %s", rr.Code, rr.Body.String())
	}
	if len(edited["editHistory"].([]any)) != 1 {
		t.Fatalf("edit history not recorded: %v", edited)
	}

	_, results := doJSON(t, h, http.MethodGet, "/api/search?q=two+citations", nil)
	if results["total"] != float64(1) || results["query"] != "two citations" {
		t.Fatalf("search: %v", results)
	}

	rr, response := doJSON(t, h, http.MethodPost, "/api/comments/"+commentID+"/status", map[string]any{"status": "archived"})
	if rr.Code != http.StatusBadRequest || response["code"] != "VALIDATION_ERROR" {
		t.Fatalf("bad status: %d %v", rr.Code, response)
	}

	rr, deleted := doJSON(t, h, http.MethodPost, "/api/comments/"+commentID+"/status", map[string]any{"status": "deleted"})
	if rr.Code != http.StatusOK || deleted["status"] != "deleted" {
		t.Fatalf("delete: %d %v", rr.Code, deleted)
	}
	if deleted["content"] != "needs two citations" {
		t.Fatalf("soft delete must keep content: %v", deleted)
	}

	_, results = doJSON(t, h, http.MethodGet, "/api/search?q=citations", nil)
	if results["total"] != float64(0) {
		t.Fatalf("deleted comment still searchable: %v", results)
	}
}

func TestUnknownRoute(t *testing.T) {
	_, h := newTestServer(t)

	rr, response := doJSON(t, h, http.MethodGet, "/api/nope", nil)
	if rr.Code != http.StatusNotFound || response["code"] != "NOT_FOUND" {
		t.Fatalf("expected 404, got %d %v", rr.Code, response)
	}
	rr, _ = doJSON(t, h, http.MethodDelete, "/api/threads", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

package search

import (
	"errors"
	"sync"
	"testing"
)

func TestServiceFallsBackToMemory(t *testing.T) {
	svc := NewService(nil, nil)
	svc.IndexComment(CommentRecord{ID: "cmt_1", ThreadID: "thr_1", DocumentID: "doc_a", Author: "ana", Content: "needs a citation"})
	svc.IndexComment(CommentRecord{ID: "cmt_2", ThreadID: "thr_2", DocumentID: "doc_a", Author: "ben", Content: "fine"})

	resp := svc.Search(Query{Text: "citation"})
	if resp.Total != 1 || len(resp.Results) != 1 {
		t.Fatalf("expected one hit, got %+v", resp)
	}
	if resp.Query != "citation" {
		t.Fatalf("query not echoed: %q", resp.Query)
	}
	if resp.Results[0].ThreadID != "thr_1" || resp.Results[0].Snippet != "needs a citation" {
		t.Fatalf("unexpected result: %+v", resp.Results[0])
	}

	svc.DeleteComment("cmt_1")
	resp = svc.Search(Query{Text: "citation"})
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Fatalf("expected empty non-nil results, got %#v", resp.Results)
	}
}

func TestServiceReindexAllReplacesIndex(t *testing.T) {
	svc := NewService(nil, nil)
	svc.IndexComment(CommentRecord{ID: "cmt_old", Content: "stale"})

	svc.ReindexAll([]CommentRecord{{ID: "cmt_new", Content: "fresh"}})

	if resp := svc.Search(Query{Text: "stale"}); resp.Total != 0 {
		t.Fatalf("stale record survived reindex: %+v", resp)
	}
	if resp := svc.Search(Query{Text: "fresh"}); resp.Total != 1 {
		t.Fatalf("expected fresh record, got %+v", resp)
	}
}

// switchable wraps a Memory so tests can take the backend down or make it
// fail.
type switchable struct {
	*Memory
	mu      sync.Mutex
	down    bool
	failing bool
}

func (b *switchable) Healthy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.down
}

func (b *switchable) Search(q Query) ([]Result, int, error) {
	b.mu.Lock()
	failing := b.failing
	b.mu.Unlock()
	if failing {
		return nil, 0, errors.New("backend unavailable")
	}
	return b.Memory.Search(q)
}

func (b *switchable) set(down, failing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.down, b.failing = down, failing
}

func TestServicePrefersHealthyBackend(t *testing.T) {
	backend := &switchable{Memory: NewMemory()}
	svc := NewServiceWithBackend(backend, nil)

	svc.ReindexAll([]CommentRecord{{ID: "cmt_shared", Content: "shared note"}})
	if resp := svc.Search(Query{Text: "shared"}); resp.Total != 1 {
		t.Fatalf("reindex should reach the backend: %+v", resp)
	}

	_ = backend.Memory.IndexComment(CommentRecord{ID: "cmt_remote", Content: "remote only"})
	if resp := svc.Search(Query{Text: "remote"}); resp.Total != 1 {
		t.Fatalf("healthy backend should answer: %+v", resp)
	}

	backend.set(true, false)
	if resp := svc.Search(Query{Text: "remote"}); resp.Total != 0 {
		t.Fatalf("down backend should fall back to memory: %+v", resp)
	}

	backend.set(false, true)
	if resp := svc.Search(Query{Text: "shared"}); resp.Total != 1 {
		t.Fatalf("failing backend should fall back to memory: %+v", resp)
	}
}

package search

import (
	"log/slog"
)

// Service is the facade that tries the primary backend (Meilisearch) first
// and falls back to the in-memory index, which always holds every indexed
// comment.
type Service struct {
	primary Backend
	memory  *Memory
	logger  *slog.Logger
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, logger *slog.Logger) *Service {
	if meili == nil {
		return NewServiceWithBackend(nil, logger)
	}
	return NewServiceWithBackend(meili, logger)
}

// NewServiceWithBackend creates a search service over any primary backend.
// primary may be nil.
func NewServiceWithBackend(primary Backend, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{primary: primary, memory: NewMemory(), logger: logger}
}

func (s *Service) primaryUp() bool {
	return s.primary != nil && s.primary.Healthy()
}

// Search tries the primary backend if healthy, otherwise falls back to
// memory.
func (s *Service) Search(q Query) Response {
	if s.primaryUp() {
		results, total, err := s.primary.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.logger.Warn("search backend error, falling back to memory index", "error", err)
	}

	results, total, err := s.memory.Search(q)
	if err != nil {
		s.logger.Error("memory search failed", "error", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexComment indexes into memory synchronously and into the primary
// backend fire-and-forget.
func (s *Service) IndexComment(c CommentRecord) {
	_ = s.memory.IndexComment(c)
	if !s.primaryUp() {
		return
	}
	go func() {
		if err := s.primary.IndexComment(c); err != nil {
			s.logger.Warn("index comment", "id", c.ID, "error", err)
		}
	}()
}

// DeleteComment removes a comment from both indexes.
func (s *Service) DeleteComment(id string) {
	_ = s.memory.DeleteComment(id)
	if !s.primaryUp() {
		return
	}
	go func() {
		if err := s.primary.DeleteComment(id); err != nil {
			s.logger.Warn("delete comment", "id", id, "error", err)
		}
	}()
}

// ReindexAll replaces the memory index and pushes every record to the
// primary backend.
func (s *Service) ReindexAll(comments []CommentRecord) {
	s.memory.Reset()
	_ = s.memory.IndexComments(comments)
	if !s.primaryUp() {
		return
	}
	if err := s.primary.IndexComments(comments); err != nil {
		s.logger.Warn("reindex comments", "error", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}

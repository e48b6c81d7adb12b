package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"

	"margin/api/internal/adapter"
	"margin/api/internal/config"
	"margin/api/internal/pointer"
	"margin/api/internal/search"
	"margin/api/internal/store"
	"margin/api/internal/surface"
)

type commentStore interface {
	FindOrCreateThread(p pointer.Pointer, admit func(existing []store.Thread) (*store.Thread, error)) (store.Thread, bool, error)
	AddComment(threadID, content, author string, opts ...store.CommentOption) (store.Comment, error)
	ResolveThread(threadID, resolvedBy string) (store.Thread, error)
	ArchiveThread(threadID string) (store.Thread, error)
	ReanchorThread(threadID string, pointers []pointer.Pointer) (store.Thread, error)
	MarkOrphaned(threadID, reason string) (store.Thread, error)
	EditComment(commentID, content, editedBy string) (store.Comment, error)
	SetCommentStatus(commentID string, status store.CommentStatus) (store.Comment, error)
	GetThread(threadID string) (store.Thread, error)
	GetComment(commentID string) (store.Comment, error)
	Threads() []store.Thread
	Comments() []store.Comment
	ThreadsForPointer(p pointer.Pointer) []store.Thread
	CommentsForThread(threadID string) ([]store.Comment, error)
	ThreadForComment(commentID string) (store.Thread, error)
}

type commentIndex interface {
	Search(q search.Query) search.Response
	IndexComment(c search.CommentRecord)
	DeleteComment(id string)
	ReindexAll(comments []search.CommentRecord)
}

// threadClearer is implemented by adapters that can drop a thread's
// highlight without knowing where it currently sits.
type threadClearer interface {
	ClearThread(threadID string)
}

// textEditor and sectionSelector are implemented by adapters whose surface
// takes selections and edits from the HTTP API.
type textEditor interface {
	Select(from, to int) error
	Replace(from, to int, text string) (surface.StepMap, error)
}

type sectionSelector interface {
	SelectSection(path string) error
}

type Service struct {
	config config.Config
	store  commentStore
	search commentIndex
	logger *slog.Logger

	mu       sync.RWMutex
	adapters map[string]adapter.Adapter

	// anchorMu serializes workflows that touch both a surface and the
	// store: commenting, resolving, archiving and remapping.
	anchorMu sync.Mutex
}

// ThreadDetail is a thread together with the comments anchored with it.
type ThreadDetail struct {
	Thread   store.Thread
	Comments []store.Comment
}

type CommentStats struct {
	TotalThreads    int `json:"totalThreads"`
	ActiveThreads   int `json:"activeThreads"`
	ResolvedThreads int `json:"resolvedThreads"`
	ArchivedThreads int `json:"archivedThreads"`
	OrphanedThreads int `json:"orphanedThreads"`
	TotalComments   int `json:"totalComments"`
}

// RemapReport lists what ApplyEdit did to each thread on a document. A
// thread whose anchor both moved and drifted appears in both lists.
type RemapReport struct {
	DocumentID string   `json:"documentId"`
	Unchanged  []string `json:"unchanged"`
	Moved      []string `json:"moved"`
	Drifted    []string `json:"drifted"`
	Orphaned   []string `json:"orphaned"`
}

// Selection is a selection sent from outside the surface: a rune range for
// text documents or a section path for items. A zero value clears it.
type Selection struct {
	From        int
	To          int
	SectionPath string
}

func New(cfg config.Config, dataStore commentStore, searchService commentIndex, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if searchService == nil {
		searchService = search.NewService(nil, logger)
	}
	return &Service{
		config:   cfg,
		store:    dataStore,
		search:   searchService,
		logger:   logger,
		adapters: make(map[string]adapter.Adapter),
	}
}

// RegisterAdapter makes a document surface available to the service,
// replacing any adapter previously registered for the same document.
func (s *Service) RegisterAdapter(a adapter.Adapter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adapters[a.DocumentID()] = a
	s.logger.Debug("adapter registered", "documentId", a.DocumentID(), "type", a.SurfaceType())
}

func (s *Service) Adapter(documentID string) (adapter.Adapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.adapters[documentID]
	if !ok {
		return nil, domainError(http.StatusNotFound, store.CodeNotFound, "document not found", map[string]any{"documentId": documentID})
	}
	return a, nil
}

// Documents returns the registered document ids in sorted order.
func (s *Service) Documents() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.adapters))
	for id := range s.adapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Service) lookupAdapter(documentID string) (adapter.Adapter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.adapters[documentID]
	return a, ok
}

// Queries

func (s *Service) GetAllThreads() []store.Thread {
	return s.store.Threads()
}

func (s *Service) GetThread(threadID string) (store.Thread, error) {
	thread, err := s.store.GetThread(threadID)
	return thread, translate(err)
}

func (s *Service) GetThreadsForDocument(documentID string) []store.Thread {
	return s.filterThreads(func(p pointer.Pointer) bool { return p.Document() == documentID })
}

func (s *Service) GetThreadsByPointerType(t pointer.Type) []store.Thread {
	return s.filterThreads(func(p pointer.Pointer) bool { return p.Type() == t })
}

func (s *Service) filterThreads(match func(pointer.Pointer) bool) []store.Thread {
	out := []store.Thread{}
	for _, thread := range s.store.Threads() {
		for _, p := range thread.Pointers {
			if match(p) {
				out = append(out, thread)
				break
			}
		}
	}
	return out
}

// GetCommentsForThread returns the comments whose pointers intersect the
// thread's pointers, oldest first. An orphaned thread keeps the comments it
// had when its anchor was lost.
func (s *Service) GetCommentsForThread(threadID string) ([]store.Comment, error) {
	comments, err := s.store.CommentsForThread(threadID)
	if err != nil {
		return nil, translate(err)
	}
	return comments, nil
}

func (s *Service) HasThreadForPointer(p pointer.Pointer) bool {
	if pointer.IsNil(p) {
		return false
	}
	return len(s.store.ThreadsForPointer(p)) > 0
}

func (s *Service) GetThreadsForPointer(p pointer.Pointer) []store.Thread {
	if pointer.IsNil(p) {
		return []store.Thread{}
	}
	return s.store.ThreadsForPointer(p)
}

// GetCommentStats scans the store on every call.
func (s *Service) GetCommentStats() CommentStats {
	var stats CommentStats
	for _, thread := range s.store.Threads() {
		stats.TotalThreads++
		switch thread.Status {
		case store.ThreadActive:
			stats.ActiveThreads++
		case store.ThreadResolved:
			stats.ResolvedThreads++
		case store.ThreadArchived:
			stats.ArchivedThreads++
		}
		if thread.OrphanedReason != "" {
			stats.OrphanedThreads++
		}
	}
	stats.TotalComments = len(s.store.Comments())
	return stats
}

// DecodePointer reads a serialized pointer. When the document has a
// registered adapter the record must also match its surface type.
func (s *Service) DecodePointer(record pointer.Record) (pointer.Pointer, error) {
	p, err := pointer.Deserialize(record)
	if err != nil {
		return nil, translate(err)
	}
	if a, ok := s.lookupAdapter(p.Document()); ok {
		p, err = a.DeserializePointer(record)
		if err != nil {
			return nil, translate(err)
		}
	}
	return p, nil
}

// Workflows

// Comment adds a comment at p, reusing the active thread anchored there or
// starting a new one.
func (s *Service) Comment(ctx context.Context, p pointer.Pointer, content, author string) (store.Thread, store.Comment, error) {
	if err := ctx.Err(); err != nil {
		return store.Thread{}, store.Comment{}, err
	}
	if pointer.IsNil(p) {
		return store.Thread{}, store.Comment{}, translate(pointer.InvalidPointer("pointer is required", nil))
	}
	if err := requireText(content, author); err != nil {
		return store.Thread{}, store.Comment{}, err
	}
	s.anchorMu.Lock()
	defer s.anchorMu.Unlock()

	a, err := s.Adapter(p.Document())
	if err != nil {
		return store.Thread{}, store.Comment{}, err
	}
	ok, err := a.ValidatePointer(p)
	if err != nil {
		return store.Thread{}, store.Comment{}, translate(err)
	}
	if !ok {
		return store.Thread{}, store.Comment{}, translate(pointer.InvalidPointer("pointer does not resolve in the document", map[string]any{
			"documentId": p.Document(),
		}))
	}

	p = captureSnapshot(a, p)

	thread, created, err := s.threadAt(a, p)
	if err != nil {
		return store.Thread{}, store.Comment{}, err
	}
	comment, err := s.store.AddComment(thread.ID, content, author)
	if err != nil {
		return store.Thread{}, store.Comment{}, translate(err)
	}
	a.HighlightPointer(p, thread.ID)

	thread, err = s.store.GetThread(thread.ID)
	if err != nil {
		return store.Thread{}, store.Comment{}, translate(err)
	}
	s.indexComment(thread, comment)
	s.logger.Info("comment added",
		"threadId", thread.ID,
		"commentId", comment.ID,
		"documentId", p.Document(),
		"newThread", created,
	)
	return thread, comment, nil
}

// threadAt finds the active thread anchored at p or creates one. Only one
// thread may hold an anchor: a resolved or archived thread there blocks a
// new one. Orphaned threads are no longer indexed at their old anchor.
func (s *Service) threadAt(a adapter.Adapter, p pointer.Pointer) (store.Thread, bool, error) {
	thread, created, err := s.store.FindOrCreateThread(p, func(existing []store.Thread) (*store.Thread, error) {
		for i := range existing {
			if existing[i].Status == store.ThreadActive {
				return &existing[i], nil
			}
		}
		if len(existing) > 0 {
			return nil, domainError(http.StatusConflict, store.CodeInvalidState, "anchor already has a closed thread", map[string]any{
				"threadId": existing[0].ID,
				"status":   string(existing[0].Status),
			})
		}
		if !s.config.AllowOverlap && a.Overlaps(p) {
			return nil, domainError(http.StatusConflict, CodeOverlappingComment, "selection overlaps an existing comment", map[string]any{
				"documentId": p.Document(),
			})
		}
		return nil, nil
	})
	if err != nil {
		return store.Thread{}, false, translate(err)
	}
	return thread, created, nil
}

// CommentOnSelection comments on whatever is currently selected in the
// document.
func (s *Service) CommentOnSelection(ctx context.Context, documentID, content, author string) (store.Thread, store.Comment, error) {
	a, err := s.Adapter(documentID)
	if err != nil {
		return store.Thread{}, store.Comment{}, err
	}
	p, err := a.RequirePointer()
	if err != nil {
		return store.Thread{}, store.Comment{}, translate(err)
	}
	return s.Comment(ctx, p, content, author)
}

func (s *Service) Reply(ctx context.Context, threadID, parentID, content, author string, draft bool) (store.Comment, error) {
	if err := ctx.Err(); err != nil {
		return store.Comment{}, err
	}
	if err := requireText(content, author); err != nil {
		return store.Comment{}, err
	}
	thread, err := s.store.GetThread(threadID)
	if err != nil {
		return store.Comment{}, translate(err)
	}
	if thread.Status != store.ThreadActive {
		return store.Comment{}, domainError(http.StatusConflict, store.CodeInvalidState, "thread is not active", map[string]any{
			"threadId": threadID,
			"status":   string(thread.Status),
		})
	}
	if thread.OrphanedReason != "" {
		return store.Comment{}, domainError(http.StatusConflict, store.CodeInvalidState, "thread is orphaned", map[string]any{
			"threadId": threadID,
			"reason":   thread.OrphanedReason,
		})
	}

	var opts []store.CommentOption
	if draft {
		opts = append(opts, store.AsDraft())
	}
	if parentID != "" {
		opts = append(opts, store.WithParent(parentID))
	}
	comment, err := s.store.AddComment(threadID, content, author, opts...)
	if err != nil {
		return store.Comment{}, translate(err)
	}
	s.indexComment(thread, comment)
	s.logger.Info("reply added", "threadId", threadID, "commentId", comment.ID, "parentId", parentID, "draft", draft)
	return comment, nil
}

// ResolveThread closes a thread and removes its highlight. Comments keep
// their status.
func (s *Service) ResolveThread(ctx context.Context, threadID, resolvedBy string) (store.Thread, error) {
	if err := ctx.Err(); err != nil {
		return store.Thread{}, err
	}
	if strings.TrimSpace(resolvedBy) == "" {
		return store.Thread{}, validationError("resolvedBy is required")
	}
	s.anchorMu.Lock()
	defer s.anchorMu.Unlock()

	thread, err := s.store.ResolveThread(threadID, resolvedBy)
	if err != nil {
		return store.Thread{}, translate(err)
	}
	s.unhighlight(thread)
	s.logger.Info("thread resolved", "threadId", threadID, "resolvedBy", resolvedBy)
	return thread, nil
}

func (s *Service) ArchiveThread(ctx context.Context, threadID string) (store.Thread, error) {
	if err := ctx.Err(); err != nil {
		return store.Thread{}, err
	}
	s.anchorMu.Lock()
	defer s.anchorMu.Unlock()

	thread, err := s.store.ArchiveThread(threadID)
	if err != nil {
		return store.Thread{}, translate(err)
	}
	s.unhighlight(thread)
	s.logger.Info("thread archived", "threadId", threadID)
	return thread, nil
}

// OpenThread brings the thread's anchor into view and returns the
// discussion.
func (s *Service) OpenThread(threadID string) (ThreadDetail, error) {
	thread, err := s.store.GetThread(threadID)
	if err != nil {
		return ThreadDetail{}, translate(err)
	}
	comments, err := s.store.CommentsForThread(threadID)
	if err != nil {
		return ThreadDetail{}, translate(err)
	}
	if thread.OrphanedReason == "" {
		for _, p := range thread.Pointers {
			if a, ok := s.lookupAdapter(p.Document()); ok {
				a.FocusAtPointer(p)
				break
			}
		}
	}
	return ThreadDetail{Thread: thread, Comments: comments}, nil
}

// SetSelection moves the selection of a document's surface, as the editor
// would when the user selects text or focuses a section.
func (s *Service) SetSelection(documentID string, sel Selection) error {
	a, err := s.Adapter(documentID)
	if err != nil {
		return err
	}
	switch v := a.(type) {
	case textEditor:
		if sel.SectionPath != "" {
			return validationError("text documents are selected by range")
		}
		err = v.Select(sel.From, sel.To)
	case sectionSelector:
		if sel.From != 0 || sel.To != 0 {
			return validationError("items are selected by section path")
		}
		err = v.SelectSection(sel.SectionPath)
	default:
		err = adapter.ErrReadOnly
	}
	return s.surfaceError(documentID, err)
}

// EditDocument replaces [from, to) of a text document with text and remaps
// every thread on it through the edit.
func (s *Service) EditDocument(ctx context.Context, documentID string, from, to int, text string) (RemapReport, error) {
	if err := ctx.Err(); err != nil {
		return RemapReport{}, err
	}
	s.anchorMu.Lock()
	defer s.anchorMu.Unlock()

	a, err := s.Adapter(documentID)
	if err != nil {
		return RemapReport{}, err
	}
	ed, ok := a.(textEditor)
	if !ok {
		return RemapReport{}, s.surfaceError(documentID, adapter.ErrReadOnly)
	}
	step, err := ed.Replace(from, to, text)
	if err != nil {
		return RemapReport{}, s.surfaceError(documentID, err)
	}
	return s.applyEdit(ctx, a, documentID, step)
}

func (s *Service) surfaceError(documentID string, err error) error {
	if errors.Is(err, adapter.ErrReadOnly) {
		return domainError(http.StatusConflict, store.CodeInvalidState, "document does not accept this change", map[string]any{
			"documentId": documentID,
		})
	}
	return translate(err)
}

// ThreadsAtSelection returns the threads anchored exactly at the current
// selection of a document.
func (s *Service) ThreadsAtSelection(documentID string) ([]store.Thread, error) {
	a, err := s.Adapter(documentID)
	if err != nil {
		return nil, err
	}
	p, err := a.CreatePointer()
	if err != nil {
		return nil, translate(err)
	}
	return s.GetThreadsForPointer(p), nil
}

// ApplyEdit remaps every open thread on documentID through m. Threads whose
// anchor collapses, or lands on another thread's anchor, are orphaned.
// Resolved threads are remapped too so their anchors keep blocking the
// right range, but only active threads are highlighted again.
func (s *Service) ApplyEdit(ctx context.Context, documentID string, m surface.Mapper) (RemapReport, error) {
	s.anchorMu.Lock()
	defer s.anchorMu.Unlock()

	a, err := s.Adapter(documentID)
	if err != nil {
		return newRemapReport(documentID), err
	}
	return s.applyEdit(ctx, a, documentID, m)
}

func newRemapReport(documentID string) RemapReport {
	return RemapReport{
		DocumentID: documentID,
		Unchanged:  []string{},
		Moved:      []string{},
		Drifted:    []string{},
		Orphaned:   []string{},
	}
}

// applyEdit must be called with s.anchorMu held.
func (s *Service) applyEdit(ctx context.Context, a adapter.Adapter, documentID string, m surface.Mapper) (RemapReport, error) {
	report := newRemapReport(documentID)

	var pending []remap
	for _, thread := range s.GetThreadsForDocument(documentID) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if thread.Status == store.ThreadArchived || thread.OrphanedReason != "" {
			continue
		}

		updated, moved, drifted, err := remapPointers(a, documentID, thread.Pointers, m)
		if err != nil {
			return report, translate(err)
		}
		if updated == nil {
			if err := s.orphan(a, thread.ID, "anchor collapsed"); err != nil {
				return report, err
			}
			report.Orphaned = append(report.Orphaned, thread.ID)
			continue
		}
		if drifted {
			report.Drifted = append(report.Drifted, thread.ID)
			s.logger.Warn("anchor text drifted", "threadId", thread.ID, "documentId", documentID)
		}
		if !moved && !drifted {
			report.Unchanged = append(report.Unchanged, thread.ID)
			continue
		}
		pending = append(pending, remap{threadID: thread.ID, pointers: updated, moved: moved})
	}

	// A thread may move onto a key that another pending thread is about to
	// vacate, so refused moves are retried until a pass makes no progress.
	for len(pending) > 0 {
		var retry []remap
		for _, r := range pending {
			reanchored, err := s.store.ReanchorThread(r.threadID, r.pointers)
			if errors.Is(err, store.ErrInvalidState) {
				retry = append(retry, r)
				continue
			}
			if err != nil {
				return report, translate(err)
			}
			if r.moved {
				report.Moved = append(report.Moved, r.threadID)
			}
			if reanchored.Status == store.ThreadActive {
				for _, p := range reanchored.Pointers {
					if p.Document() == documentID {
						a.HighlightPointer(p, reanchored.ID)
					}
				}
			}
			s.indexThread(reanchored)
		}
		if len(retry) == len(pending) {
			for _, r := range retry {
				if err := s.orphan(a, r.threadID, "anchor collides with another thread"); err != nil {
					return report, err
				}
				report.Orphaned = append(report.Orphaned, r.threadID)
			}
			break
		}
		pending = retry
	}

	s.logger.Info("edit applied",
		"documentId", documentID,
		"moved", len(report.Moved),
		"drifted", len(report.Drifted),
		"orphaned", len(report.Orphaned),
	)
	return report, nil
}

type remap struct {
	threadID string
	pointers []pointer.Pointer
	moved    bool
}

// remapPointers maps the pointers that live on documentID and keeps the
// rest. A nil result means one of the anchors collapsed.
func remapPointers(a adapter.Adapter, documentID string, pointers []pointer.Pointer, m surface.Mapper) ([]pointer.Pointer, bool, bool, error) {
	out := make([]pointer.Pointer, 0, len(pointers))
	moved, drifted := false, false
	for _, p := range pointers {
		if p.Document() != documentID || p.Type() != a.SurfaceType() {
			out = append(out, p)
			continue
		}
		next, err := a.UpdatePointer(p, m)
		if err != nil {
			return nil, false, false, err
		}
		if pointer.IsNil(next) {
			return nil, false, false, nil
		}
		if !pointer.Equal(p, next) {
			moved = true
		}
		if textDrifted(a, p, next) {
			drifted = true
		}
		out = append(out, next)
	}
	return out, moved, drifted, nil
}

// textDrifted compares captured text for text ranges; other surfaces are
// asked whether the remapped pointer still matches its content.
func textDrifted(a adapter.Adapter, before, after pointer.Pointer) bool {
	if prev, ok := before.(*pointer.TextRange); ok {
		if next, ok := after.(*pointer.TextRange); ok {
			return prev.Text != next.Text
		}
	}
	return !a.IsPointerTextValid(after)
}

func (s *Service) orphan(a adapter.Adapter, threadID, reason string) error {
	if _, err := s.store.MarkOrphaned(threadID, reason); err != nil {
		return translate(err)
	}
	if clearer, ok := a.(threadClearer); ok {
		clearer.ClearThread(threadID)
	}
	s.logger.Warn("thread orphaned", "threadId", threadID, "documentId", a.DocumentID(), "reason", reason)
	return nil
}

func (s *Service) EditComment(ctx context.Context, commentID, content, editedBy string) (store.Comment, error) {
	if err := ctx.Err(); err != nil {
		return store.Comment{}, err
	}
	if strings.TrimSpace(editedBy) == "" {
		return store.Comment{}, validationError("editedBy is required")
	}
	comment, err := s.store.EditComment(commentID, content, editedBy)
	if err != nil {
		return store.Comment{}, translate(err)
	}
	s.reindexComment(comment)
	return comment, nil
}

func (s *Service) SetCommentStatus(ctx context.Context, commentID, status string) (store.Comment, error) {
	if err := ctx.Err(); err != nil {
		return store.Comment{}, err
	}
	parsed, ok := store.ParseCommentStatus(status)
	if !ok {
		return store.Comment{}, domainError(http.StatusBadRequest, store.CodeValidation, "unknown comment status", map[string]any{"status": status})
	}
	comment, err := s.store.SetCommentStatus(commentID, parsed)
	if err != nil {
		return store.Comment{}, translate(err)
	}
	if comment.Status == store.CommentDeleted {
		s.search.DeleteComment(comment.ID)
	} else {
		s.reindexComment(comment)
	}
	s.logger.Info("comment status changed", "commentId", commentID, "status", comment.Status)
	return comment, nil
}

func (s *Service) Search(q search.Query) search.Response {
	return s.search.Search(q)
}

// ReindexSearch rebuilds the search index from the store.
func (s *Service) ReindexSearch() {
	var records []search.CommentRecord
	for _, thread := range s.store.Threads() {
		comments, err := s.store.CommentsForThread(thread.ID)
		if err != nil {
			continue
		}
		for _, comment := range comments {
			if comment.Status == store.CommentDeleted {
				continue
			}
			records = append(records, s.commentRecord(thread, comment))
		}
	}
	s.search.ReindexAll(records)
}

// unhighlight skips orphaned threads: their marks went with the anchor and
// the old range may belong to another thread now.
func (s *Service) unhighlight(thread store.Thread) {
	if thread.OrphanedReason != "" {
		return
	}
	for _, p := range thread.Pointers {
		if a, ok := s.lookupAdapter(p.Document()); ok {
			a.UnhighlightPointer(p)
		}
	}
}

func (s *Service) indexThread(thread store.Thread) {
	comments, err := s.store.CommentsForThread(thread.ID)
	if err != nil {
		return
	}
	for _, comment := range comments {
		if comment.Status != store.CommentDeleted {
			s.indexComment(thread, comment)
		}
	}
}

func (s *Service) reindexComment(comment store.Comment) {
	thread, err := s.store.ThreadForComment(comment.ID)
	if err != nil {
		return
	}
	s.indexComment(thread, comment)
}

func (s *Service) indexComment(thread store.Thread, comment store.Comment) {
	s.search.IndexComment(s.commentRecord(thread, comment))
}

func (s *Service) commentRecord(thread store.Thread, comment store.Comment) search.CommentRecord {
	record := search.CommentRecord{
		ID:         comment.ID,
		ThreadID:   thread.ID,
		DocumentID: thread.DocumentID(),
		Author:     comment.Author,
		Content:    comment.Content,
		Status:     string(comment.Status),
	}
	if len(thread.Pointers) > 0 {
		p := thread.Pointers[0]
		record.PointerType = string(p.Type())
		record.Quote = s.quote(p)
	}
	return record
}

func (s *Service) quote(p pointer.Pointer) string {
	if a, ok := s.lookupAdapter(p.Document()); ok {
		if content, ok := a.ContentAtPointer(p); ok {
			return content
		}
	}
	switch v := p.(type) {
	case *pointer.TextRange:
		return v.Text
	case *pointer.Section:
		return v.SectionPath
	}
	return ""
}

// captureSnapshot fills in the text a range covers when the caller only
// sent coordinates.
func captureSnapshot(a adapter.Adapter, p pointer.Pointer) pointer.Pointer {
	tr, ok := p.(*pointer.TextRange)
	if !ok || tr.Text != "" {
		return p
	}
	content, ok := a.ContentAtPointer(tr)
	if !ok {
		return p
	}
	captured := tr.Clone()
	captured.Text = content
	return captured
}

func requireText(content, author string) error {
	if strings.TrimSpace(content) == "" {
		return validationError("content is required")
	}
	if strings.TrimSpace(author) == "" {
		return validationError("author is required")
	}
	return nil
}

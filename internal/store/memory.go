package store

import (
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"margin/api/internal/pointer"
	"margin/api/internal/util"
)

// MemoryStore is the single source of truth for threads and comments. It
// keeps records in id-keyed maps and indexes them by pointer key so the
// pointer-equality queries never scan every record.
type MemoryStore struct {
	mu    sync.RWMutex
	now   func() time.Time
	newID func(prefix string) string

	threads      map[string]*Thread
	threadOrder  []string
	comments     map[string]*Comment
	commentOrder []string

	threadsByKey  map[string][]string
	commentsByKey map[string][]string

	// Orphaned threads leave the pointer indexes. Their comments are kept
	// here so the discussion survives without blocking the old anchor.
	orphanComments map[string][]string
	orphanOf       map[string]string
}

type Option func(*MemoryStore)

func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

func WithIDGenerator(newID func(prefix string) string) Option {
	return func(s *MemoryStore) { s.newID = newID }
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		now:           time.Now,
		newID:         util.NewID,
		threads:       make(map[string]*Thread),
		comments:      make(map[string]*Comment),
		threadsByKey:  make(map[string][]string),
		commentsByKey: make(map[string][]string),

		orphanComments: make(map[string][]string),
		orphanOf:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CommentOption tunes AddComment.
type CommentOption func(*commentOptions)

type commentOptions struct {
	status   CommentStatus
	parentID string
}

// AsDraft stores the comment as a draft instead of publishing it.
func AsDraft() CommentOption {
	return func(o *commentOptions) { o.status = CommentDraft }
}

// WithParent makes the comment a reply to parentID.
func WithParent(parentID string) CommentOption {
	return func(o *commentOptions) { o.parentID = parentID }
}

// CreateThread opens a new active thread at p. It does not check for an
// existing thread at an equal pointer.
func (s *MemoryStore) CreateThread(p pointer.Pointer) (Thread, error) {
	if pointer.IsNil(p) {
		return Thread{}, pointer.InvalidPointer("thread requires a pointer", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createThread(p), nil
}

// createThread must be called with s.mu held.
func (s *MemoryStore) createThread(p pointer.Pointer) Thread {
	thread := &Thread{
		ID:           s.newID("thr"),
		Pointers:     []pointer.Pointer{pointer.Clone(p)},
		Participants: []string{},
		Status:       ThreadActive,
		CreatedAt:    s.now(),
	}
	s.threads[thread.ID] = thread
	s.threadOrder = append(s.threadOrder, thread.ID)
	s.indexThread(thread)
	return thread.clone()
}

// AddComment appends a comment to threadID, sharing the thread's pointers.
func (s *MemoryStore) AddComment(threadID, content, author string, opts ...CommentOption) (Comment, error) {
	o := commentOptions{status: CommentPublished}
	for _, opt := range opts {
		opt(&o)
	}
	if strings.TrimSpace(content) == "" {
		return Comment{}, validation("content is required")
	}
	author = strings.TrimSpace(author)
	if author == "" {
		return Comment{}, validation("author is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.threads[threadID]
	if !ok {
		return Comment{}, notFound("thread", threadID)
	}
	if thread.OrphanedReason != "" {
		return Comment{}, invalidState("orphaned threads accept no comments", map[string]any{"id": threadID})
	}
	if o.parentID != "" {
		parent, ok := s.comments[o.parentID]
		if !ok || !pointer.Intersects(parent.Pointers, thread.Pointers) {
			return Comment{}, notFound("parent comment", o.parentID)
		}
	}

	comment := &Comment{
		ID:        s.newID("cmt"),
		Author:    author,
		Pointers:  pointer.CloneAll(thread.Pointers),
		Content:   content,
		Timestamp: s.now(),
		ParentID:  o.parentID,
		Status:    o.status,
	}
	s.comments[comment.ID] = comment
	s.commentOrder = append(s.commentOrder, comment.ID)
	s.indexComment(comment)

	if thread.RootCommentID == "" {
		thread.RootCommentID = comment.ID
	}
	if !slices.Contains(thread.Participants, author) {
		thread.Participants = append(thread.Participants, author)
	}
	return comment.clone(), nil
}

// ResolveThread moves an active thread to resolved. Resolving twice is a
// no-op; comment statuses are left alone.
func (s *MemoryStore) ResolveThread(threadID, resolvedBy string) (Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.threads[threadID]
	if !ok {
		return Thread{}, notFound("thread", threadID)
	}
	switch thread.Status {
	case ThreadResolved:
		return thread.clone(), nil
	case ThreadArchived:
		return Thread{}, invalidState("archived threads cannot be resolved", map[string]any{"id": threadID})
	}
	now := s.now()
	thread.Status = ThreadResolved
	thread.ResolvedBy = resolvedBy
	thread.ResolvedAt = &now
	return thread.clone(), nil
}

// ArchiveThread is housekeeping outside the normal flow.
func (s *MemoryStore) ArchiveThread(threadID string) (Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.threads[threadID]
	if !ok {
		return Thread{}, notFound("thread", threadID)
	}
	thread.Status = ThreadArchived
	return thread.clone(), nil
}

// ReanchorThread replaces a thread's pointers and carries the comments made
// at the old anchor along with it, so pointer equality keeps linking them.
// It refuses to move onto an anchor held by another thread and to move an
// orphaned thread.
func (s *MemoryStore) ReanchorThread(threadID string, pointers []pointer.Pointer) (Thread, error) {
	if len(pointers) == 0 {
		return Thread{}, pointer.InvalidPointer("reanchor requires at least one pointer", nil)
	}
	for _, p := range pointers {
		if pointer.IsNil(p) {
			return Thread{}, pointer.InvalidPointer("reanchor pointers must not be nil", nil)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.threads[threadID]
	if !ok {
		return Thread{}, notFound("thread", threadID)
	}
	if thread.OrphanedReason != "" {
		return Thread{}, invalidState("orphaned threads cannot be reanchored", map[string]any{"id": threadID})
	}
	for _, p := range pointers {
		for _, otherID := range s.threadsByKey[p.Key()] {
			if otherID != threadID {
				return Thread{}, invalidState("anchor is held by another thread", map[string]any{
					"id":      threadID,
					"otherId": otherID,
				})
			}
		}
	}

	moved := s.commentIDsFor(thread.Pointers)
	s.unindexThread(thread)
	thread.Pointers = pointer.CloneAll(pointers)
	s.indexThread(thread)

	for _, id := range moved {
		comment := s.comments[id]
		s.unindexComment(comment)
		comment.Pointers = pointer.CloneAll(pointers)
		s.indexComment(comment)
	}
	return thread.clone(), nil
}

// MarkOrphaned records why a thread's anchor stopped pointing anywhere and
// takes the thread and its comments out of the pointer indexes. The old
// anchor is free for a new thread afterwards.
func (s *MemoryStore) MarkOrphaned(threadID, reason string) (Thread, error) {
	if strings.TrimSpace(reason) == "" {
		return Thread{}, validation("orphan reason is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.threads[threadID]
	if !ok {
		return Thread{}, notFound("thread", threadID)
	}
	if thread.OrphanedReason == "" {
		ids := s.commentIDsFor(thread.Pointers)
		for _, id := range ids {
			s.unindexComment(s.comments[id])
			s.orphanOf[id] = threadID
		}
		s.unindexThread(thread)
		s.orphanComments[threadID] = ids
	}
	thread.OrphanedReason = reason
	return thread.clone(), nil
}

// EditComment replaces the content and appends the previous content to the
// edit history.
func (s *MemoryStore) EditComment(commentID, content, editedBy string) (Comment, error) {
	if strings.TrimSpace(content) == "" {
		return Comment{}, validation("content is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[commentID]
	if !ok {
		return Comment{}, notFound("comment", commentID)
	}
	if comment.Status == CommentDeleted {
		return Comment{}, invalidState("deleted comments cannot be edited", map[string]any{"id": commentID})
	}
	if comment.Content == content {
		return comment.clone(), nil
	}
	comment.EditHistory = append(comment.EditHistory, Edit{
		Content:  comment.Content,
		EditedBy: editedBy,
		EditedAt: s.now(),
	})
	comment.Content = content
	return comment.clone(), nil
}

// SetCommentStatus changes a comment's status. Deleted is terminal and
// keeps the content.
func (s *MemoryStore) SetCommentStatus(commentID string, status CommentStatus) (Comment, error) {
	if _, ok := commentStatuses[status]; !ok {
		return Comment{}, validation("unknown comment status")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[commentID]
	if !ok {
		return Comment{}, notFound("comment", commentID)
	}
	if comment.Status == CommentDeleted && status != CommentDeleted {
		return Comment{}, invalidState("deleted comments cannot change status", map[string]any{"id": commentID})
	}
	comment.Status = status
	return comment.clone(), nil
}

func (s *MemoryStore) GetThread(threadID string) (Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	thread, ok := s.threads[threadID]
	if !ok {
		return Thread{}, notFound("thread", threadID)
	}
	return thread.clone(), nil
}

func (s *MemoryStore) GetComment(commentID string) (Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comment, ok := s.comments[commentID]
	if !ok {
		return Comment{}, notFound("comment", commentID)
	}
	return comment.clone(), nil
}

// Threads returns every thread in creation order.
func (s *MemoryStore) Threads() []Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Thread, 0, len(s.threadOrder))
	for _, id := range s.threadOrder {
		out = append(out, s.threads[id].clone())
	}
	return out
}

// Comments returns every comment in creation order.
func (s *MemoryStore) Comments() []Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Comment, 0, len(s.commentOrder))
	for _, id := range s.commentOrder {
		out = append(out, s.comments[id].clone())
	}
	return out
}

// CommentsForThread returns the comments of a thread, oldest first. Live
// threads find them through pointer equality; orphaned threads keep the set
// they had when they were orphaned.
func (s *MemoryStore) CommentsForThread(threadID string) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	thread, ok := s.threads[threadID]
	if !ok {
		return nil, notFound("thread", threadID)
	}
	ids := s.orphanComments[threadID]
	if thread.OrphanedReason == "" {
		ids = s.commentIDsFor(thread.Pointers)
	}
	out := make([]Comment, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.comments[id].clone())
	}
	return out, nil
}

// ThreadForComment returns the thread a comment belongs to.
func (s *MemoryStore) ThreadForComment(commentID string) (Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comment, ok := s.comments[commentID]
	if !ok {
		return Thread{}, notFound("comment", commentID)
	}
	if threadID, ok := s.orphanOf[commentID]; ok {
		return s.threads[threadID].clone(), nil
	}
	for _, p := range comment.Pointers {
		if ids := s.threadsByKey[p.Key()]; len(ids) > 0 {
			return s.threads[ids[0]].clone(), nil
		}
	}
	return Thread{}, notFound("thread for comment", commentID)
}

// FindOrCreateThread returns the thread anchored at p, or creates one when
// admit allows it. The lookup and the creation happen under one lock, so
// concurrent callers never create two threads at one anchor. admit sees the
// threads already at p and may reject with an error.
func (s *MemoryStore) FindOrCreateThread(p pointer.Pointer, admit func(existing []Thread) (reuse *Thread, err error)) (Thread, bool, error) {
	if pointer.IsNil(p) {
		return Thread{}, false, pointer.InvalidPointer("thread requires a pointer", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.threadsByKey[p.Key()]
	existing := make([]Thread, 0, len(ids))
	for _, id := range ids {
		existing = append(existing, s.threads[id].clone())
	}
	reuse, err := admit(existing)
	if err != nil {
		return Thread{}, false, err
	}
	if reuse != nil {
		return *reuse, false, nil
	}
	return s.createThread(p), true, nil
}

// ThreadsForPointer returns threads anchored at a pointer equal to p.
func (s *MemoryStore) ThreadsForPointer(p pointer.Pointer) []Thread {
	if pointer.IsNil(p) {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.threadsByKey[p.Key()]
	out := make([]Thread, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.threads[id].clone())
	}
	return out
}

// CommentsForPointers returns comments sharing at least one pointer with
// pointers, oldest first.
func (s *MemoryStore) CommentsForPointers(pointers []pointer.Pointer) []Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.commentIDsFor(pointers)
	out := make([]Comment, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.comments[id].clone())
	}
	return out
}

// commentIDsFor must be called with s.mu held.
func (s *MemoryStore) commentIDsFor(pointers []pointer.Pointer) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, p := range pointers {
		if pointer.IsNil(p) {
			continue
		}
		for _, id := range s.commentsByKey[p.Key()] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return s.comments[ids[i]].Timestamp.Before(s.comments[ids[j]].Timestamp)
	})
	return ids
}

func (s *MemoryStore) indexThread(t *Thread) {
	for _, p := range t.Pointers {
		s.threadsByKey[p.Key()] = appendUnique(s.threadsByKey[p.Key()], t.ID)
	}
}

func (s *MemoryStore) unindexThread(t *Thread) {
	for _, p := range t.Pointers {
		s.threadsByKey[p.Key()] = removeString(s.threadsByKey[p.Key()], t.ID)
		if len(s.threadsByKey[p.Key()]) == 0 {
			delete(s.threadsByKey, p.Key())
		}
	}
}

func (s *MemoryStore) indexComment(c *Comment) {
	for _, p := range c.Pointers {
		s.commentsByKey[p.Key()] = appendUnique(s.commentsByKey[p.Key()], c.ID)
	}
}

func (s *MemoryStore) unindexComment(c *Comment) {
	for _, p := range c.Pointers {
		s.commentsByKey[p.Key()] = removeString(s.commentsByKey[p.Key()], c.ID)
		if len(s.commentsByKey[p.Key()]) == 0 {
			delete(s.commentsByKey, p.Key())
		}
	}
}

func appendUnique(items []string, value string) []string {
	if slices.Contains(items, value) {
		return items
	}
	return append(items, value)
}

func removeString(items []string, value string) []string {
	out := items[:0]
	for _, item := range items {
		if item != value {
			out = append(out, item)
		}
	}
	return out
}

package store

import (
	"slices"
	"time"

	"margin/api/internal/pointer"
)

type ThreadStatus string

const (
	ThreadActive   ThreadStatus = "active"
	ThreadResolved ThreadStatus = "resolved"
	ThreadArchived ThreadStatus = "archived"
)

type CommentStatus string

const (
	CommentDraft     CommentStatus = "draft"
	CommentPublished CommentStatus = "published"
	CommentFlagged   CommentStatus = "flagged"
	CommentDeleted   CommentStatus = "deleted"
	CommentResolved  CommentStatus = "resolved"
)

var commentStatuses = map[CommentStatus]struct{}{
	CommentDraft:     {},
	CommentPublished: {},
	CommentFlagged:   {},
	CommentDeleted:   {},
	CommentResolved:  {},
}

// ParseCommentStatus reports whether value names a known comment status.
func ParseCommentStatus(value string) (CommentStatus, bool) {
	status := CommentStatus(value)
	_, ok := commentStatuses[status]
	return status, ok
}

// Thread groups the comments made at one anchor. Comments are not linked by
// id: a comment belongs to every thread whose pointers it shares.
type Thread struct {
	ID             string
	RootCommentID  string
	Pointers       []pointer.Pointer
	Participants   []string
	Status         ThreadStatus
	CreatedAt      time.Time
	ResolvedBy     string
	ResolvedAt     *time.Time
	OrphanedReason string
}

// Edit is a snapshot of a comment's content before it was changed.
type Edit struct {
	Content  string
	EditedBy string
	EditedAt time.Time
}

type Comment struct {
	ID          string
	Author      string
	Pointers    []pointer.Pointer
	Content     string
	Timestamp   time.Time
	ParentID    string
	Status      CommentStatus
	EditHistory []Edit
}

// DocumentID is the document of the thread's first pointer.
func (t Thread) DocumentID() string {
	if len(t.Pointers) == 0 || pointer.IsNil(t.Pointers[0]) {
		return ""
	}
	return t.Pointers[0].Document()
}

func (t Thread) clone() Thread {
	out := t
	out.Pointers = pointer.CloneAll(t.Pointers)
	out.Participants = slices.Clone(t.Participants)
	if t.ResolvedAt != nil {
		at := *t.ResolvedAt
		out.ResolvedAt = &at
	}
	return out
}

func (c Comment) clone() Comment {
	out := c
	out.Pointers = pointer.CloneAll(c.Pointers)
	out.EditHistory = append([]Edit(nil), c.EditHistory...)
	return out
}

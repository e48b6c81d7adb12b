// Package search indexes comments for full-text lookup from the comment
// panel.
package search

// Result is a single search hit returned to the caller.
type Result struct {
	CommentID   string `json:"commentId"`
	ThreadID    string `json:"threadId"`
	DocumentID  string `json:"documentId"`
	PointerType string `json:"pointerType"`
	Author      string `json:"author"`
	Snippet     string `json:"snippet"`
	Quote       string `json:"quote,omitempty"`
	Status      string `json:"status"`
}

// Query describes a search request.
type Query struct {
	Text       string
	DocumentID string // empty = all documents
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push comments into a search index.
type Indexer interface {
	IndexComment(c CommentRecord) error
	DeleteComment(id string) error
	IndexComments(comments []CommentRecord) error
}

// Backend is an index the service prefers over the in-memory one while it
// reports healthy.
type Backend interface {
	Searcher
	Indexer
}

var (
	_ Backend = (*Meili)(nil)
	_ Backend = (*Memory)(nil)
)

// CommentRecord is the data we index for a comment. Quote is the text the
// comment's anchor covered when it was indexed.
type CommentRecord struct {
	ID          string `json:"id"`
	ThreadID    string `json:"threadId"`
	DocumentID  string `json:"documentId"`
	PointerType string `json:"pointerType"`
	Author      string `json:"author"`
	Content     string `json:"content"`
	Quote       string `json:"quote"`
	Status      string `json:"status"`
}

const defaultLimit = 20

func recordToResult(rec CommentRecord) Result {
	return Result{
		CommentID:   rec.ID,
		ThreadID:    rec.ThreadID,
		DocumentID:  rec.DocumentID,
		PointerType: rec.PointerType,
		Author:      rec.Author,
		Snippet:     rec.Content,
		Quote:       rec.Quote,
		Status:      rec.Status,
	}
}

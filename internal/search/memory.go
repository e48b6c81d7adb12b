package search

import (
	"strings"
	"sync"
)

// Memory is an in-process index used when Meilisearch is not configured or
// unhealthy. Matching is a case-insensitive substring test over content,
// quote and author.
type Memory struct {
	mu      sync.RWMutex
	records map[string]CommentRecord
	order   []string
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]CommentRecord)}
}

func (m *Memory) Healthy() bool { return true }

func (m *Memory) IndexComment(c CommentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[c.ID]; !ok {
		m.order = append(m.order, c.ID)
	}
	m.records[c.ID] = c
	return nil
}

func (m *Memory) DeleteComment(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return nil
	}
	delete(m.records, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// IndexComments indexes comments in order.
func (m *Memory) IndexComments(comments []CommentRecord) error {
	for _, c := range comments {
		if err := m.IndexComment(c); err != nil {
			return err
		}
	}
	return nil
}

// Reset drops every indexed record.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]CommentRecord)
	m.order = nil
}

func (m *Memory) Search(q Query) ([]Result, int, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Result
	for _, id := range m.order {
		rec := m.records[id]
		if q.DocumentID != "" && rec.DocumentID != q.DocumentID {
			continue
		}
		if needle != "" && !matches(rec, needle) {
			continue
		}
		matched = append(matched, recordToResult(rec))
	}

	total := len(matched)
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Result{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func matches(rec CommentRecord, needle string) bool {
	for _, field := range []string{rec.Content, rec.Quote, rec.Author} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

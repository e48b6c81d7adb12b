// Package surface holds the document surfaces comment adapters work
// against: a linear rich-text buffer and a structured item view.
package surface

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrOutOfRange is returned for positions outside the document.
var ErrOutOfRange = errors.New("position out of range")

// Mark tags [From, To) with a comment annotation.
type Mark struct {
	CommentID string
	From      int
	To        int
}

// TextSurface is the minimal editor contract a text adapter needs.
type TextSurface interface {
	ID() string
	Size() int
	// Selection returns the current selection; ok is false when nothing
	// is selected.
	Selection() (from, to int, ok bool)
	TextBetween(from, to int) (string, error)
	AddMark(from, to int, commentID string) error
	// RemoveMarks clears comment marks spanning exactly [from, to).
	RemoveMarks(from, to int)
	// RemoveComment clears every mark carrying commentID.
	RemoveComment(commentID string)
	// Marks walks the document and returns every comment mark.
	Marks() []Mark
	Focus(pos int)
}

// EditableText is a TextSurface that also takes selections and edits from
// outside the editor.
type EditableText interface {
	TextSurface
	SetSelection(from, to int) error
	ClearSelection()
	Replace(from, to int, text string) (StepMap, error)
}

var _ EditableText = (*Buffer)(nil)

// Buffer is an in-memory text document measured in runes.
type Buffer struct {
	mu        sync.RWMutex
	id        string
	text      []rune
	selFrom   int
	selTo     int
	selection bool
	focus     int
	marks     []Mark
}

func NewBuffer(id, text string) *Buffer {
	return &Buffer{id: id, text: []rune(text)}
}

func (b *Buffer) ID() string { return b.id }

func (b *Buffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.text)
}

func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return string(b.text)
}

func (b *Buffer) Selection() (int, int, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.selFrom, b.selTo, b.selection
}

// SetSelection selects [from, to). A collapsed selection (from == to) is a
// cursor, which Selection still reports.
func (b *Buffer) SetSelection(from, to int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkRange(from, to); err != nil {
		return err
	}
	b.selFrom, b.selTo, b.selection = from, to, true
	return nil
}

func (b *Buffer) ClearSelection() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selFrom, b.selTo, b.selection = 0, 0, false
}

func (b *Buffer) TextBetween(from, to int) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkRange(from, to); err != nil {
		return "", err
	}
	return string(b.text[from:to]), nil
}

// AddMark is idempotent for an identical (commentID, from, to) triple.
func (b *Buffer) AddMark(from, to int, commentID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkRange(from, to); err != nil {
		return err
	}
	if from == to {
		return fmt.Errorf("mark [%d,%d): %w", from, to, ErrOutOfRange)
	}
	for _, m := range b.marks {
		if m.CommentID == commentID && m.From == from && m.To == to {
			return nil
		}
	}
	b.marks = append(b.marks, Mark{CommentID: commentID, From: from, To: to})
	return nil
}

func (b *Buffer) RemoveMarks(from, to int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.marks[:0]
	for _, m := range b.marks {
		if m.From == from && m.To == to {
			continue
		}
		kept = append(kept, m)
	}
	b.marks = kept
}

func (b *Buffer) RemoveComment(commentID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.marks[:0]
	for _, m := range b.marks {
		if m.CommentID == commentID {
			continue
		}
		kept = append(kept, m)
	}
	b.marks = kept
}

func (b *Buffer) Marks() []Mark {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Mark, len(b.marks))
	copy(out, b.marks)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

func (b *Buffer) Focus(pos int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if pos < 0 || pos > len(b.text) {
		return
	}
	b.focus = pos
}

func (b *Buffer) FocusPos() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.focus
}

func (b *Buffer) Insert(pos int, text string) (StepMap, error) {
	return b.Replace(pos, pos, text)
}

func (b *Buffer) Delete(from, to int) (StepMap, error) {
	return b.Replace(from, to, "")
}

// Replace swaps [from, to) for text and returns the edit's position map.
// Marks and selection are carried through the map; marks that collapse are
// dropped.
func (b *Buffer) Replace(from, to int, text string) (StepMap, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkRange(from, to); err != nil {
		return StepMap{}, err
	}
	inserted := []rune(text)
	next := make([]rune, 0, len(b.text)-(to-from)+len(inserted))
	next = append(next, b.text[:from]...)
	next = append(next, inserted...)
	next = append(next, b.text[to:]...)
	b.text = next

	step := ReplaceMap(from, to, len(inserted))
	kept := b.marks[:0]
	for _, m := range b.marks {
		m.From = step.MapAssoc(m.From, 1)
		m.To = step.MapAssoc(m.To, -1)
		if m.From >= m.To {
			continue
		}
		kept = append(kept, m)
	}
	b.marks = kept
	if b.selection {
		b.selFrom = step.MapAssoc(b.selFrom, 1)
		b.selTo = step.MapAssoc(b.selTo, -1)
		if b.selTo < b.selFrom {
			b.selTo = b.selFrom
		}
	}
	b.focus = step.Map(b.focus)
	return step, nil
}

func (b *Buffer) checkRange(from, to int) error {
	if from < 0 || to > len(b.text) || from > to {
		return fmt.Errorf("range [%d,%d) in document of size %d: %w", from, to, len(b.text), ErrOutOfRange)
	}
	return nil
}

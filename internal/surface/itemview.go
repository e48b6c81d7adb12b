package surface

import (
	"fmt"
	"sync"
)

// SectionSurface is the contract a section adapter needs from a structured
// item view.
type SectionSurface interface {
	ItemID() string
	ViewScope() string
	InteractionMode() string
	// Focused returns the section path that currently has focus.
	Focused() (path string, ok bool)
	Section(path string) (content, contentType string, ok bool)
	Highlight(path, threadID string)
	Unhighlight(path string)
	// Highlighted returns the thread id highlighted on path, if any.
	Highlighted(path string) (threadID string, ok bool)
	ScrollTo(path string)
}

// FocusableSections is a SectionSurface whose focus can be moved from
// outside the view.
type FocusableSections interface {
	SectionSurface
	Focus(path string) error
	Blur()
}

var _ FocusableSections = (*ItemView)(nil)

type section struct {
	content     string
	contentType string
}

// ItemView is an in-memory structured view of one item, addressed by
// dotted section paths.
type ItemView struct {
	mu              sync.RWMutex
	itemID          string
	viewScope       string
	interactionMode string
	sections        map[string]section
	order           []string
	focused         string
	highlights      map[string]string
	scrolledTo      string
}

func NewItemView(itemID, viewScope, interactionMode string) *ItemView {
	return &ItemView{
		itemID:          itemID,
		viewScope:       viewScope,
		interactionMode: interactionMode,
		sections:        make(map[string]section),
		highlights:      make(map[string]string),
	}
}

func (v *ItemView) ItemID() string          { return v.itemID }
func (v *ItemView) ViewScope() string       { return v.viewScope }
func (v *ItemView) InteractionMode() string { return v.interactionMode }

func (v *ItemView) SetSection(path, content, contentType string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.sections[path]; !ok {
		v.order = append(v.order, path)
	}
	v.sections[path] = section{content: content, contentType: contentType}
}

// RemoveSection drops a section along with its focus and highlight.
func (v *ItemView) RemoveSection(path string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.sections[path]; !ok {
		return
	}
	delete(v.sections, path)
	delete(v.highlights, path)
	for i, p := range v.order {
		if p == path {
			v.order = append(v.order[:i], v.order[i+1:]...)
			break
		}
	}
	if v.focused == path {
		v.focused = ""
	}
}

func (v *ItemView) Sections() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]string, len(v.order))
	copy(out, v.order)
	return out
}

func (v *ItemView) Section(path string) (string, string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s, ok := v.sections[path]
	return s.content, s.contentType, ok
}

func (v *ItemView) Focus(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.sections[path]; !ok {
		return fmt.Errorf("section %q: %w", path, ErrOutOfRange)
	}
	v.focused = path
	return nil
}

func (v *ItemView) Blur() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.focused = ""
}

func (v *ItemView) Focused() (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.focused, v.focused != ""
}

func (v *ItemView) Highlight(path, threadID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.sections[path]; !ok {
		return
	}
	v.highlights[path] = threadID
}

func (v *ItemView) Unhighlight(path string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.highlights, path)
}

func (v *ItemView) Highlighted(path string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	id, ok := v.highlights[path]
	return id, ok
}

func (v *ItemView) ScrollTo(path string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scrolledTo = path
}

func (v *ItemView) ScrolledTo() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.scrolledTo
}

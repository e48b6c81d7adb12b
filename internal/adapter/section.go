package adapter

import (
	"margin/api/internal/pointer"
	"margin/api/internal/surface"
)

// SectionAdapter anchors comments to named sections of a structured item
// view.
type SectionAdapter struct {
	view surface.SectionSurface
	opts options
}

func NewSectionAdapter(view surface.SectionSurface, opts ...Option) *SectionAdapter {
	return &SectionAdapter{view: view, opts: buildOptions(opts)}
}

func (a *SectionAdapter) SurfaceType() pointer.Type { return pointer.TypeSection }
func (a *SectionAdapter) DocumentID() string        { return a.view.ItemID() }

func (a *SectionAdapter) CreatePointer() (pointer.Pointer, error) {
	path, ok := a.view.Focused()
	if !ok {
		return nil, nil
	}
	p, err := a.CreatePointerForSection(path)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (a *SectionAdapter) RequirePointer() (pointer.Pointer, error) {
	p, err := a.CreatePointer()
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, pointer.InvalidSelection("no section focused", map[string]any{"itemId": a.view.ItemID()})
	}
	return p, nil
}

// CreatePointerForSection anchors path in the current view scope and mode.
func (a *SectionAdapter) CreatePointerForSection(path string) (*pointer.Section, error) {
	_, contentType, ok := a.view.Section(path)
	if path == "" || !ok {
		return nil, pointer.InvalidSelection("section does not exist", map[string]any{"sectionPath": path})
	}
	return &pointer.Section{
		DocumentID:      a.view.ItemID(),
		ItemID:          a.view.ItemID(),
		SectionPath:     path,
		ViewScope:       a.view.ViewScope(),
		InteractionMode: a.view.InteractionMode(),
		ContentType:     contentType,
		CreatedAt:       a.opts.now(),
	}, nil
}

func (a *SectionAdapter) section(p pointer.Pointer) (*pointer.Section, error) {
	if pointer.IsNil(p) {
		return nil, pointer.InvalidPointer("pointer is required", nil)
	}
	s, ok := p.(*pointer.Section)
	if !ok {
		return nil, wrongType(pointer.TypeSection, p)
	}
	if s.Document() != a.view.ItemID() || s.ItemID != a.view.ItemID() {
		return nil, mismatchedDocument(a.view.ItemID(), s.Document())
	}
	return s, nil
}

func (a *SectionAdapter) exists(path string) bool {
	if path == "" {
		return false
	}
	_, _, ok := a.view.Section(path)
	return ok
}

func (a *SectionAdapter) ValidatePointer(p pointer.Pointer) (bool, error) {
	s, err := a.section(p)
	if err != nil {
		return false, err
	}
	return a.exists(s.SectionPath), nil
}

func (a *SectionAdapter) valid(p pointer.Pointer) (*pointer.Section, bool) {
	s, err := a.section(p)
	if err != nil || !a.exists(s.SectionPath) {
		return nil, false
	}
	return s, true
}

func (a *SectionAdapter) HighlightPointer(p pointer.Pointer, threadID string) {
	if s, ok := a.valid(p); ok {
		a.view.Highlight(s.SectionPath, threadID)
	}
}

func (a *SectionAdapter) UnhighlightPointer(p pointer.Pointer) {
	if s, ok := a.valid(p); ok {
		a.view.Unhighlight(s.SectionPath)
	}
}

// SelectSection focuses path in the view. An empty path blurs it.
func (a *SectionAdapter) SelectSection(path string) error {
	view, ok := a.view.(surface.FocusableSections)
	if !ok {
		return ErrReadOnly
	}
	if path == "" {
		view.Blur()
		return nil
	}
	if err := view.Focus(path); err != nil {
		return pointer.InvalidSelection("section does not exist", map[string]any{
			"documentId":  a.view.ItemID(),
			"sectionPath": path,
		})
	}
	return nil
}

func (a *SectionAdapter) FocusAtPointer(p pointer.Pointer) {
	if s, ok := a.valid(p); ok {
		a.view.ScrollTo(s.SectionPath)
	}
}

func (a *SectionAdapter) ContentAtPointer(p pointer.Pointer) (string, bool) {
	s, ok := a.valid(p)
	if !ok {
		return "", false
	}
	content, _, ok := a.view.Section(s.SectionPath)
	return content, ok
}

// UpdatePointer ignores positional maps: a section anchor survives any text
// edit as long as the section itself exists.
func (a *SectionAdapter) UpdatePointer(p pointer.Pointer, _ surface.Mapper) (pointer.Pointer, error) {
	s, err := a.section(p)
	if err != nil {
		return nil, err
	}
	if !a.exists(s.SectionPath) {
		return nil, nil
	}
	return s.Clone(), nil
}

// IsPointerTextValid checks the section still holds the content type the
// pointer was made for.
func (a *SectionAdapter) IsPointerTextValid(p pointer.Pointer) bool {
	s, ok := a.valid(p)
	if !ok {
		return false
	}
	_, contentType, _ := a.view.Section(s.SectionPath)
	return contentType == s.ContentType
}

func (a *SectionAdapter) Overlaps(p pointer.Pointer) bool {
	s, ok := a.valid(p)
	if !ok {
		return false
	}
	_, highlighted := a.view.Highlighted(s.SectionPath)
	return highlighted
}

func (a *SectionAdapter) SerializePointer(p pointer.Pointer) (pointer.Record, error) {
	if _, err := a.section(p); err != nil {
		return nil, err
	}
	return pointer.Serialize(p)
}

func (a *SectionAdapter) DeserializePointer(record pointer.Record) (pointer.Pointer, error) {
	p, err := pointer.Deserialize(record)
	if err != nil {
		return nil, err
	}
	if _, err := a.section(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (a *SectionAdapter) PointersEqual(x, y pointer.Pointer) bool {
	return pointer.Equal(x, y)
}

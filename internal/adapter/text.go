package adapter

import (
	"errors"

	"margin/api/internal/pointer"
	"margin/api/internal/surface"
)

// TextAdapter anchors comments to rune ranges of a text surface.
type TextAdapter struct {
	doc  surface.TextSurface
	opts options
}

func NewTextAdapter(doc surface.TextSurface, opts ...Option) *TextAdapter {
	return &TextAdapter{doc: doc, opts: buildOptions(opts)}
}

func (a *TextAdapter) SurfaceType() pointer.Type { return pointer.TypeTextRange }
func (a *TextAdapter) DocumentID() string        { return a.doc.ID() }

func (a *TextAdapter) CreatePointer() (pointer.Pointer, error) {
	from, to, ok := a.doc.Selection()
	if !ok || from >= to {
		return nil, nil
	}
	p, err := a.CreatePointerForRange(from, to)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (a *TextAdapter) RequirePointer() (pointer.Pointer, error) {
	p, err := a.CreatePointer()
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, pointer.InvalidSelection("no text selected", map[string]any{"documentId": a.doc.ID()})
	}
	return p, nil
}

// CreatePointerForRange anchors [from, to) without consulting the selection.
func (a *TextAdapter) CreatePointerForRange(from, to int) (*pointer.TextRange, error) {
	size := a.doc.Size()
	if from < 0 || to > size || from >= to {
		return nil, pointer.InvalidSelection("range is empty or outside the document", map[string]any{
			"from": from,
			"to":   to,
			"size": size,
		})
	}
	text, err := a.doc.TextBetween(from, to)
	if err != nil {
		return nil, pointer.InvalidSelection(err.Error(), map[string]any{"from": from, "to": to})
	}
	return &pointer.TextRange{
		DocumentID: a.doc.ID(),
		From:       from,
		To:         to,
		Text:       text,
		CreatedAt:  a.opts.now(),
	}, nil
}

func (a *TextAdapter) textRange(p pointer.Pointer) (*pointer.TextRange, error) {
	if pointer.IsNil(p) {
		return nil, pointer.InvalidPointer("pointer is required", nil)
	}
	tr, ok := p.(*pointer.TextRange)
	if !ok {
		return nil, wrongType(pointer.TypeTextRange, p)
	}
	if tr.DocumentID != a.doc.ID() {
		return nil, mismatchedDocument(a.doc.ID(), tr.DocumentID)
	}
	return tr, nil
}

func (a *TextAdapter) inBounds(from, to int) bool {
	return from >= 0 && from < to && to <= a.doc.Size()
}

func (a *TextAdapter) ValidatePointer(p pointer.Pointer) (bool, error) {
	tr, err := a.textRange(p)
	if err != nil {
		return false, err
	}
	return a.inBounds(tr.From, tr.To), nil
}

// valid is ValidatePointer for the side-effect paths, which swallow errors.
func (a *TextAdapter) valid(p pointer.Pointer) (*pointer.TextRange, bool) {
	tr, err := a.textRange(p)
	if err != nil || !a.inBounds(tr.From, tr.To) {
		return nil, false
	}
	return tr, true
}

func (a *TextAdapter) HighlightPointer(p pointer.Pointer, threadID string) {
	tr, ok := a.valid(p)
	if !ok {
		return
	}
	_ = a.doc.AddMark(tr.From, tr.To, threadID)
}

func (a *TextAdapter) UnhighlightPointer(p pointer.Pointer) {
	tr, ok := a.valid(p)
	if !ok {
		return
	}
	a.doc.RemoveMarks(tr.From, tr.To)
}

// ClearThread drops every mark left for threadID, wherever edits moved it.
func (a *TextAdapter) ClearThread(threadID string) {
	a.doc.RemoveComment(threadID)
}

// Select moves the surface selection to [from, to). An empty range clears
// the selection.
func (a *TextAdapter) Select(from, to int) error {
	doc, ok := a.doc.(surface.EditableText)
	if !ok {
		return ErrReadOnly
	}
	if from == to {
		doc.ClearSelection()
		return nil
	}
	if err := doc.SetSelection(from, to); err != nil {
		return outsideDocument(a.doc.ID(), from, to, err)
	}
	return nil
}

// Replace swaps [from, to) for text and returns the position map of the
// edit, ready for UpdatePointer.
func (a *TextAdapter) Replace(from, to int, text string) (surface.StepMap, error) {
	doc, ok := a.doc.(surface.EditableText)
	if !ok {
		return surface.StepMap{}, ErrReadOnly
	}
	step, err := doc.Replace(from, to, text)
	if err != nil {
		return surface.StepMap{}, outsideDocument(a.doc.ID(), from, to, err)
	}
	return step, nil
}

func outsideDocument(documentID string, from, to int, err error) error {
	if errors.Is(err, surface.ErrOutOfRange) {
		return pointer.InvalidSelection("range is outside the document", map[string]any{
			"documentId": documentID,
			"from":       from,
			"to":         to,
		})
	}
	return err
}

func (a *TextAdapter) FocusAtPointer(p pointer.Pointer) {
	tr, ok := a.valid(p)
	if !ok {
		return
	}
	a.doc.Focus(tr.From)
}

func (a *TextAdapter) ContentAtPointer(p pointer.Pointer) (string, bool) {
	tr, ok := a.valid(p)
	if !ok {
		return "", false
	}
	text, err := a.doc.TextBetween(tr.From, tr.To)
	if err != nil {
		return "", false
	}
	return text, true
}

// UpdatePointer maps from with right association and to with left
// association, so content typed exactly at either edge stays outside the
// anchor. Text is read back from the new coordinates.
func (a *TextAdapter) UpdatePointer(p pointer.Pointer, m surface.Mapper) (pointer.Pointer, error) {
	tr, err := a.textRange(p)
	if err != nil {
		return nil, err
	}
	newFrom, newTo := tr.From, tr.To
	if m != nil {
		newFrom = surface.MapWith(m, tr.From, 1)
		newTo = surface.MapWith(m, tr.To, -1)
	}
	if !a.inBounds(newFrom, newTo) {
		return nil, nil
	}
	text, err := a.doc.TextBetween(newFrom, newTo)
	if err != nil {
		return nil, nil
	}
	return &pointer.TextRange{
		DocumentID: tr.DocumentID,
		From:       newFrom,
		To:         newTo,
		Text:       text,
		CreatedAt:  tr.CreatedAt,
	}, nil
}

func (a *TextAdapter) IsPointerTextValid(p pointer.Pointer) bool {
	tr, ok := a.valid(p)
	if !ok {
		return false
	}
	live, err := a.doc.TextBetween(tr.From, tr.To)
	return err == nil && live == tr.Text
}

// HasOverlappingComments uses open-interval overlap: touching ranges do
// not overlap.
func (a *TextAdapter) HasOverlappingComments(from, to int) bool {
	for _, m := range a.doc.Marks() {
		if from < m.To && to > m.From {
			return true
		}
	}
	return false
}

func (a *TextAdapter) Overlaps(p pointer.Pointer) bool {
	tr, err := a.textRange(p)
	if err != nil {
		return false
	}
	return a.HasOverlappingComments(tr.From, tr.To)
}

func (a *TextAdapter) SerializePointer(p pointer.Pointer) (pointer.Record, error) {
	if _, err := a.textRange(p); err != nil {
		return nil, err
	}
	return pointer.Serialize(p)
}

func (a *TextAdapter) DeserializePointer(record pointer.Record) (pointer.Pointer, error) {
	p, err := pointer.Deserialize(record)
	if err != nil {
		return nil, err
	}
	if _, err := a.textRange(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (a *TextAdapter) PointersEqual(x, y pointer.Pointer) bool {
	return pointer.Equal(x, y)
}

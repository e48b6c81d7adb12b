// Package adapter translates between a concrete document surface and the
// surface-agnostic pointer representation.
package adapter

import (
	"errors"
	"time"

	"margin/api/internal/pointer"
	"margin/api/internal/surface"
)

// Adapter is implemented once per document surface. Every method that takes
// a pointer rejects pointers of another type or another document with an
// INVALID_POINTER error, except the side-effect methods, which ignore them.
type Adapter interface {
	SurfaceType() pointer.Type
	DocumentID() string

	// CreatePointer anchors the current selection. It returns nil, nil when
	// nothing addressable is selected.
	CreatePointer() (pointer.Pointer, error)
	// RequirePointer is CreatePointer for callers that cannot proceed
	// without a selection: a missing one is INVALID_SELECTION.
	RequirePointer() (pointer.Pointer, error)

	ValidatePointer(p pointer.Pointer) (bool, error)
	HighlightPointer(p pointer.Pointer, threadID string)
	UnhighlightPointer(p pointer.Pointer)
	FocusAtPointer(p pointer.Pointer)
	ContentAtPointer(p pointer.Pointer) (string, bool)

	// UpdatePointer recomputes p after an edit described by m. A nil result
	// means the anchor no longer points at anything meaningful.
	UpdatePointer(p pointer.Pointer, m surface.Mapper) (pointer.Pointer, error)
	// IsPointerTextValid reports whether the live content still matches
	// what p captured.
	IsPointerTextValid(p pointer.Pointer) bool
	// Overlaps reports whether anchoring p would visually collide with an
	// existing highlight.
	Overlaps(p pointer.Pointer) bool

	SerializePointer(p pointer.Pointer) (pointer.Record, error)
	DeserializePointer(record pointer.Record) (pointer.Pointer, error)
	PointersEqual(a, b pointer.Pointer) bool
}

var (
	_ Adapter = (*TextAdapter)(nil)
	_ Adapter = (*SectionAdapter)(nil)
)

// ErrReadOnly is returned when the surface behind an adapter does not take
// selections or edits from outside.
var ErrReadOnly = errors.New("surface is read-only")

// Option configures an adapter.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used to stamp new pointers.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func mismatchedDocument(want, got string) *pointer.Error {
	return pointer.InvalidPointer("pointer belongs to another document", map[string]any{
		"documentId": got,
		"expected":   want,
	})
}

func wrongType(want pointer.Type, got pointer.Pointer) *pointer.Error {
	return pointer.InvalidPointer("unexpected pointer type", map[string]any{
		"type":     string(got.Type()),
		"expected": string(want),
	})
}

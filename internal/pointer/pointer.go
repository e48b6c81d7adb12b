// Package pointer describes where a comment attaches inside a document,
// independent of the surface that renders it.
package pointer

import (
	"strconv"
	"strings"
	"time"
)

// Type discriminates pointer variants.
type Type string

const (
	TypeTextRange Type = "text-range"
	TypeSection   Type = "section"
)

// Pointer is an anchor into one document. The concrete variants are
// *TextRange and *Section.
type Pointer interface {
	Type() Type
	Document() string
	// Key is the canonical identity of the anchor. Two pointers with the
	// same Type and Key are the same anchor.
	Key() string
}

// TextRange anchors to a rune-offset range [From, To) of a linear text
// buffer. Text is the content captured when the pointer was made.
type TextRange struct {
	DocumentID string
	From       int
	To         int
	Text       string
	CreatedAt  time.Time
}

func (p *TextRange) Type() Type       { return TypeTextRange }
func (p *TextRange) Document() string { return p.DocumentID }

func (p *TextRange) Key() string {
	return joinKey(string(TypeTextRange), p.DocumentID, strconv.Itoa(p.From), strconv.Itoa(p.To))
}

// Clone returns an independent copy.
func (p *TextRange) Clone() *TextRange {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}

// Section anchors to a named location inside a structured item view.
type Section struct {
	DocumentID      string
	ItemID          string
	SectionPath     string
	ViewScope       string
	InteractionMode string
	ContentType     string
	CreatedAt       time.Time
}

func (p *Section) Type() Type { return TypeSection }

func (p *Section) Document() string {
	if p.DocumentID == "" {
		return p.ItemID
	}
	return p.DocumentID
}

func (p *Section) Key() string {
	return joinKey(string(TypeSection), p.Document(), p.ItemID, p.SectionPath, p.ViewScope, p.InteractionMode, p.ContentType)
}

func (p *Section) Clone() *Section {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}

// Equal reports structural equality. Nil pointers are never equal to
// anything, including each other.
func Equal(a, b Pointer) bool {
	if IsNil(a) || IsNil(b) {
		return false
	}
	return a.Type() == b.Type() && a.Key() == b.Key()
}

// Intersects reports whether any pointer in a equals any pointer in b.
func Intersects(a, b []Pointer) bool {
	for _, left := range a {
		for _, right := range b {
			if Equal(left, right) {
				return true
			}
		}
	}
	return false
}

// Clone deep-copies a pointer of a known variant.
func Clone(p Pointer) Pointer {
	switch v := p.(type) {
	case *TextRange:
		return v.Clone()
	case *Section:
		return v.Clone()
	default:
		return p
	}
}

func CloneAll(pointers []Pointer) []Pointer {
	if pointers == nil {
		return nil
	}
	out := make([]Pointer, len(pointers))
	for i, p := range pointers {
		out[i] = Clone(p)
	}
	return out
}

// IsNil reports whether p is nil or a typed nil of a known variant.
func IsNil(p Pointer) bool {
	switch v := p.(type) {
	case nil:
		return true
	case *TextRange:
		return v == nil
	case *Section:
		return v == nil
	default:
		return false
	}
}

// keys are joined with a unit separator so field values cannot collide.
func joinKey(parts ...string) string {
	return strings.Join(parts, "\x1f")
}

package surface

import (
	"errors"
	"testing"
)

func TestBufferTextBetween(t *testing.T) {
	buf := NewBuffer("doc", "héllo wörld")
	got, err := buf.TextBetween(0, 5)
	if err != nil {
		t.Fatalf("TextBetween failed: %v", err)
	}
	if got != "héllo" {
		t.Fatalf("expected rune-based slice, got %q", got)
	}
	if _, err := buf.TextBetween(3, 99); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := buf.TextBetween(4, 2); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange for inverted range, got %v", err)
	}
}

func TestBufferEditsCarryMarks(t *testing.T) {
	buf := NewBuffer("doc", "0123456789abcdefghijklmnop")
	if err := buf.AddMark(10, 20, "c1"); err != nil {
		t.Fatalf("AddMark failed: %v", err)
	}
	if err := buf.AddMark(10, 20, "c1"); err != nil {
		t.Fatalf("AddMark repeat failed: %v", err)
	}
	if len(buf.Marks()) != 1 {
		t.Fatalf("expected AddMark to be idempotent, got %d marks", len(buf.Marks()))
	}

	if _, err := buf.Insert(5, "XXXXX"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	marks := buf.Marks()
	if marks[0].From != 15 || marks[0].To != 25 {
		t.Fatalf("expected mark to shift to [15,25), got [%d,%d)", marks[0].From, marks[0].To)
	}

	// Typing at the end edge must not grow the annotation.
	if _, err := buf.Insert(25, "!"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if m := buf.Marks()[0]; m.To != 25 {
		t.Fatalf("expected mark end to stay at 25, got %d", m.To)
	}

	if _, err := buf.Delete(12, 28); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got := len(buf.Marks()); got != 0 {
		t.Fatalf("expected collapsed mark to be dropped, got %d", got)
	}
}

func TestBufferRemoveMarks(t *testing.T) {
	buf := NewBuffer("doc", "abcdefghij")
	_ = buf.AddMark(1, 3, "a")
	_ = buf.AddMark(1, 3, "b")
	_ = buf.AddMark(4, 6, "a")

	buf.RemoveMarks(1, 3)
	if got := buf.Marks(); len(got) != 1 || got[0].From != 4 {
		t.Fatalf("expected only [4,6) to remain, got %+v", got)
	}
	buf.RemoveComment("a")
	if got := buf.Marks(); len(got) != 0 {
		t.Fatalf("expected no marks, got %+v", got)
	}
}

func TestBufferSelection(t *testing.T) {
	buf := NewBuffer("doc", "abcdefghij")
	if _, _, ok := buf.Selection(); ok {
		t.Fatal("expected no selection on a fresh buffer")
	}
	if err := buf.SetSelection(2, 5); err != nil {
		t.Fatalf("SetSelection failed: %v", err)
	}
	if _, err := buf.Insert(0, "zz"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	from, to, ok := buf.Selection()
	if !ok || from != 4 || to != 7 {
		t.Fatalf("expected selection [4,7), got [%d,%d) ok=%v", from, to, ok)
	}
	if err := buf.SetSelection(3, 40); err == nil {
		t.Fatal("expected out-of-range selection to fail")
	}
	buf.ClearSelection()
	if _, _, ok := buf.Selection(); ok {
		t.Fatal("expected selection to be cleared")
	}
}

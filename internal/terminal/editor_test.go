package terminal

import "testing"

func TestTextBufferInsertAndBackspace(t *testing.T) {
	b := newTextBuffer("")
	b.Insert("hi")
	b.Insert("!")
	if got := b.Text(); got != "hi!" {
		t.Fatalf("text = %q, want %q", got, "hi!")
	}
	b.Backspace()
	if got := b.Text(); got != "hi" {
		t.Errorf("text after backspace = %q, want %q", got, "hi")
	}
	if got := b.Caret(); got != 2 {
		t.Errorf("caret = %d, want 2", got)
	}
}

func TestTextBufferBackspaceMultibyte(t *testing.T) {
	b := newTextBuffer("héllo")
	b.SetCaret(3) // just past the two-byte é
	b.Backspace()
	if got := b.Text(); got != "hllo" {
		t.Errorf("text = %q, want %q", got, "hllo")
	}
}

func TestTextBufferInsertReplacesSelection(t *testing.T) {
	b := newTextBuffer("one two three")
	b.Select(4, 7)
	b.Insert("2")
	if got := b.Text(); got != "one 2 three" {
		t.Errorf("text = %q, want %q", got, "one 2 three")
	}
}

func TestCutLineKeepsNewlineUnlessLastLine(t *testing.T) {
	b := newTextBuffer("alpha\nbeta\ngamma")
	b.SetCaret(7) // inside "beta"
	if got := b.CutLine(); got != "beta\n" {
		t.Errorf("cut = %q, want %q", got, "beta\n")
	}
	if got := b.Text(); got != "alpha\ngamma" {
		t.Errorf("text = %q, want %q", got, "alpha\ngamma")
	}

	b.SetCaret(len(b.Text())) // last line
	if got := b.CutLine(); got != "gamma" {
		t.Errorf("cut last line = %q, want %q", got, "gamma")
	}
	if got := b.Text(); got != "alpha\n" {
		t.Errorf("text = %q, want %q", got, "alpha\n")
	}
}

func TestLinePositioning(t *testing.T) {
	b := newTextBuffer("aa\nbb\ncc\ndd")
	if got := b.LineCount(); got != 4 {
		t.Fatalf("LineCount() = %d, want 4", got)
	}
	b.SetCaret(b.LineStart(3))
	if got, _ := b.lineBounds(); b.Text()[got:got+2] != "cc" {
		t.Errorf("line 3 starts at %d", got)
	}
	if got := b.CaretLine(); got != 3 {
		t.Errorf("CaretLine() = %d, want 3", got)
	}

	b.MoveLines(-10)
	if got := b.CaretLine(); got != 1 {
		t.Errorf("CaretLine() after clamped move up = %d, want 1", got)
	}
	b.MoveLines(99)
	if got := b.CaretLine(); got != 4 {
		t.Errorf("CaretLine() after clamped move down = %d, want 4", got)
	}
}

func TestCaretColCountsRunes(t *testing.T) {
	b := newTextBuffer("héllo")
	b.SetCaret(len("hél"))
	if got := b.CaretCol(); got != 4 {
		t.Errorf("CaretCol() = %d, want 4", got)
	}
}

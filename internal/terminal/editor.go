package terminal

import (
	"strings"
	"unicode/utf8"
)

// Key is one keystroke forwarded from the frontend, using DOM key
// names ("a", "Enter", "Escape", "Backspace", "ArrowUp", ...).
type Key struct {
	Name string `json:"key"`
	Ctrl bool   `json:"ctrl"`
}

// Printable reports whether the key inserts a single character.
func (k Key) Printable() bool {
	return !k.Ctrl && utf8.RuneCountInString(k.Name) == 1
}

// editor is the controller-facing surface shared by vim and nano.
type editor interface {
	Kind() EditorKind
	Filename() string
	HandleKey(k Key)
	Snapshot() EditorSnapshot
}

// editorHost is what an editor needs from its controller: asynchronous
// file persistence, teardown, and a way for timers to re-enter safely.
// saveFile runs the write remotely and invokes done under the
// controller lock; closeEditor tears the editor down and re-enables
// the command line; editorTick runs f under the controller lock and
// re-publishes the editor snapshot if the editor is still open.
type editorHost interface {
	saveFile(filename, content string, done func(ok bool))
	closeEditor(kind EditorKind)
	editorTick(f func())
}

// textBuffer is a flat editing buffer with a caret and an optional
// selection. Offsets are byte positions into the text; rune boundaries
// are respected by the editing operations.
type textBuffer struct {
	text     string
	caret    int
	selStart int
	selEnd   int
}

func newTextBuffer(text string) *textBuffer {
	return &textBuffer{text: text}
}

func (b *textBuffer) Text() string { return b.text }
func (b *textBuffer) Caret() int   { return b.caret }

func (b *textBuffer) SetText(text string) {
	b.text = text
	b.clampCaret()
	b.ClearSelection()
}

func (b *textBuffer) SetCaret(pos int) {
	b.caret = pos
	b.clampCaret()
	b.ClearSelection()
}

func (b *textBuffer) clampCaret() {
	if b.caret < 0 {
		b.caret = 0
	}
	if b.caret > len(b.text) {
		b.caret = len(b.text)
	}
}

// Select highlights [start, end) and parks the caret at start, so a
// follow-up search continues from the match.
func (b *textBuffer) Select(start, end int) {
	b.selStart, b.selEnd = start, end
	b.caret = start
	b.clampCaret()
}

func (b *textBuffer) Selection() (start, end int) { return b.selStart, b.selEnd }
func (b *textBuffer) HasSelection() bool          { return b.selEnd > b.selStart }

func (b *textBuffer) ClearSelection() {
	b.selStart, b.selEnd = b.caret, b.caret
}

// Insert places s at the caret, replacing any active selection.
func (b *textBuffer) Insert(s string) {
	start, end := b.caret, b.caret
	if b.HasSelection() {
		start, end = b.selStart, b.selEnd
	}
	b.text = b.text[:start] + s + b.text[end:]
	b.caret = start + len(s)
	b.ClearSelection()
}

// Backspace removes the selection, or the rune before the caret.
func (b *textBuffer) Backspace() {
	if b.HasSelection() {
		b.text = b.text[:b.selStart] + b.text[b.selEnd:]
		b.caret = b.selStart
		b.ClearSelection()
		return
	}
	if b.caret == 0 {
		return
	}
	_, size := utf8.DecodeLastRuneInString(b.text[:b.caret])
	b.text = b.text[:b.caret-size] + b.text[b.caret:]
	b.caret -= size
	b.ClearSelection()
}

func (b *textBuffer) MoveLeft() {
	if b.caret == 0 {
		b.ClearSelection()
		return
	}
	_, size := utf8.DecodeLastRuneInString(b.text[:b.caret])
	b.SetCaret(b.caret - size)
}

func (b *textBuffer) MoveRight() {
	if b.caret >= len(b.text) {
		b.ClearSelection()
		return
	}
	_, size := utf8.DecodeRuneInString(b.text[b.caret:])
	b.SetCaret(b.caret + size)
}

// lineBounds returns the [start, end) of the line containing the
// caret, where end is the offset of the terminating newline or the end
// of the buffer.
func (b *textBuffer) lineBounds() (start, end int) {
	start = strings.LastIndexByte(b.text[:b.caret], '\n') + 1
	end = strings.IndexByte(b.text[b.caret:], '\n')
	if end < 0 {
		end = len(b.text)
	} else {
		end += b.caret
	}
	return start, end
}

// CutLine removes the caret's line and returns it. The trailing
// newline is included unless this is the last line of the buffer.
func (b *textBuffer) CutLine() string {
	start, end := b.lineBounds()
	if end < len(b.text) {
		end++ // take the newline too
	}
	cut := b.text[start:end]
	b.text = b.text[:start] + b.text[end:]
	b.SetCaret(start)
	return cut
}

// LineCount counts lines the way editors display them: an empty
// buffer is one line, a trailing newline starts another.
func (b *textBuffer) LineCount() int {
	return strings.Count(b.text, "\n") + 1
}

// CaretLine returns the 1-based line number of the caret.
func (b *textBuffer) CaretLine() int {
	return strings.Count(b.text[:b.caret], "\n") + 1
}

// CaretCol returns the 1-based column of the caret within its line.
func (b *textBuffer) CaretCol() int {
	start, _ := b.lineBounds()
	return utf8.RuneCountInString(b.text[start:b.caret]) + 1
}

// LineStart returns the byte offset of the start of the 1-based line
// n, clamped to the buffer's line range.
func (b *textBuffer) LineStart(n int) int {
	if n < 1 {
		n = 1
	}
	if max := b.LineCount(); n > max {
		n = max
	}
	off := 0
	for i := 1; i < n; i++ {
		next := strings.IndexByte(b.text[off:], '\n')
		if next < 0 {
			break
		}
		off += next + 1
	}
	return off
}

// MoveLines moves the caret delta lines down (negative is up), landing
// at the start of the target line.
func (b *textBuffer) MoveLines(delta int) {
	b.SetCaret(b.LineStart(b.CaretLine() + delta))
}

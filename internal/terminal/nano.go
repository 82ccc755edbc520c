package terminal

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	nanoPageLines   = 10
	nanoPageScroll  = 200
	nanoStatusShort = 2 * time.Second
	nanoStatusLong  = 3 * time.Second

	nanoHelpText = "^G Help  ^O Write Out  ^W Where Is  ^K Cut  ^U Paste  ^J Justify  ^C Cur Pos  ^X Exit"
	nanoExitText = "Save modified buffer?  Y Yes  N No  ^C Cancel"
)

// nanoEditor emulates a small nano subset. Besides plain editing it
// has two modal prompts: the exit confirmation and the search term
// entry; while either is active, keystrokes are intercepted before
// reaching the buffer.
type nanoEditor struct {
	host     editorHost
	filename string
	buf      *textBuffer

	// original is the last saved content; the modified indicator shows
	// whenever the buffer differs from it.
	original  string
	cutBuffer string

	exitPrompt   bool
	searchPrompt bool
	searchInput  string
	searchTerm   string
	scroll       int

	status    string
	statusSeq int
}

func newNanoEditor(host editorHost, filename, content string) *nanoEditor {
	return &nanoEditor{
		host:     host,
		filename: filename,
		buf:      newTextBuffer(content),
		original: content,
	}
}

func (n *nanoEditor) Kind() EditorKind { return EditorNano }
func (n *nanoEditor) Filename() string { return n.filename }

func (n *nanoEditor) Dirty() bool { return n.buf.Text() != n.original }

func (n *nanoEditor) Snapshot() EditorSnapshot {
	selStart, selEnd := n.buf.Selection()
	return EditorSnapshot{
		Kind:     EditorNano,
		Filename: n.filename,
		Header:   fmt.Sprintf("GNU nano  %s", n.filename),
		Buffer:   n.buf.Text(),
		Caret:    n.buf.Caret(),
		SelStart: selStart,
		SelEnd:   selEnd,
		Status:   n.status,
		Dirty:    n.Dirty(),
		Prompt:   n.promptLine(),
		Scroll:   n.scroll,
	}
}

func (n *nanoEditor) promptLine() string {
	switch {
	case n.exitPrompt:
		return nanoExitText
	case n.searchPrompt:
		return "Search: " + n.searchInput
	default:
		return ""
	}
}

func (n *nanoEditor) setStatus(msg string, d time.Duration) {
	n.status = msg
	n.statusSeq++
	seq := n.statusSeq
	time.AfterFunc(d, func() {
		n.host.editorTick(func() {
			if n.statusSeq == seq {
				n.status = ""
			}
		})
	})
}

func (n *nanoEditor) HandleKey(k Key) {
	if n.exitPrompt {
		n.handleExitPromptKey(k)
		return
	}
	if n.searchPrompt {
		n.handleSearchPromptKey(k)
		return
	}
	if k.Ctrl {
		n.handleShortcut(k)
		return
	}
	switch {
	case k.Name == "Enter":
		n.buf.Insert("\n")
	case k.Name == "Backspace":
		n.buf.Backspace()
	case k.Name == "ArrowLeft":
		n.buf.MoveLeft()
	case k.Name == "ArrowRight":
		n.buf.MoveRight()
	case k.Name == "ArrowUp":
		n.buf.MoveLines(-1)
	case k.Name == "ArrowDown":
		n.buf.MoveLines(1)
	case k.Printable():
		n.buf.Insert(k.Name)
	}
}

func (n *nanoEditor) handleExitPromptKey(k Key) {
	if k.Ctrl && (k.Name == "c" || k.Name == "C") {
		n.exitPrompt = false
		return
	}
	switch k.Name {
	case "y", "Y":
		n.exitPrompt = false
		n.saveThenClose()
	case "n", "N":
		n.host.closeEditor(EditorNano)
	}
}

func (n *nanoEditor) handleSearchPromptKey(k Key) {
	if k.Ctrl && (k.Name == "c" || k.Name == "C") {
		n.searchPrompt = false
		return
	}
	switch {
	case k.Name == "Escape":
		n.searchPrompt = false
	case k.Name == "Enter":
		n.searchPrompt = false
		n.runSearch(n.searchInput)
	case k.Name == "Backspace":
		if n.searchInput != "" {
			_, size := utf8.DecodeLastRuneInString(n.searchInput)
			n.searchInput = n.searchInput[:len(n.searchInput)-size]
		}
	case k.Printable():
		n.searchInput += k.Name
	}
}

func (n *nanoEditor) handleShortcut(k Key) {
	switch strings.ToLower(k.Name) {
	case "x":
		if n.Dirty() {
			n.exitPrompt = true
		} else {
			n.host.closeEditor(EditorNano)
		}
	case "o":
		n.save(false)
	case "g":
		n.setStatus(nanoHelpText, nanoStatusLong)
	case "w":
		n.searchPrompt = true
		n.searchInput = n.searchTerm
	case "k":
		n.cutBuffer = n.buf.CutLine()
	case "u":
		if n.cutBuffer != "" {
			n.buf.Insert(n.cutBuffer)
		}
	case "j":
		n.justifySelection()
	case "y":
		n.buf.MoveLines(-nanoPageLines)
		n.scroll -= nanoPageScroll
		if n.scroll < 0 {
			n.scroll = 0
		}
	case "v":
		n.buf.MoveLines(nanoPageLines)
		n.scroll += nanoPageScroll
	case "c":
		n.setStatus(n.cursorReport(), nanoStatusLong)
	case "r":
		n.setStatus("Insert file is not supported", nanoStatusShort)
	case "t":
		n.setStatus("Spell checking is not supported", nanoStatusShort)
	}
}

// runSearch is a case-insensitive substring search starting at the
// caret, wrapping to the start of the buffer on miss. The term is
// remembered and pre-seeds the next search prompt.
func (n *nanoEditor) runSearch(term string) {
	if term == "" {
		return
	}
	n.searchTerm = term
	text := strings.ToLower(n.buf.Text())
	needle := strings.ToLower(term)

	idx := strings.Index(text[n.buf.Caret():], needle)
	if idx >= 0 {
		idx += n.buf.Caret()
	} else {
		idx = strings.Index(text, needle)
	}
	if idx < 0 {
		n.setStatus(fmt.Sprintf("%q not found", term), nanoStatusShort)
		return
	}
	n.buf.Select(idx, idx+len(needle))
}

// justifySelection collapses whitespace runs inside the selection to
// single spaces and trims the edges. No selection, no effect.
func (n *nanoEditor) justifySelection() {
	if !n.buf.HasSelection() {
		return
	}
	start, end := n.buf.Selection()
	justified := strings.Join(strings.Fields(n.buf.Text()[start:end]), " ")
	n.buf.Insert(justified)
}

func (n *nanoEditor) cursorReport() string {
	text := n.buf.Text()
	line, col := n.buf.CaretLine(), n.buf.CaretCol()
	total := n.buf.LineCount()
	pos, chars := n.buf.Caret(), len(text)
	charPct := 100
	if chars > 0 {
		charPct = roundPct(pos, chars)
	}
	return fmt.Sprintf("Line %d/%d (%d%%), Col %d, Char %d/%d (%d%%)",
		line, total, roundPct(line, total), col, pos, chars, charPct)
}

// roundPct returns a/b as a percentage rounded to the nearest integer.
func roundPct(a, b int) int {
	return (a*200 + b) / (2 * b)
}

func (n *nanoEditor) save(closeAfter bool) {
	content := n.buf.Text()
	n.host.saveFile(n.filename, content, func(ok bool) {
		if !ok {
			n.setStatus(fmt.Sprintf("Error: Could not save %q", n.filename), nanoStatusLong)
			return
		}
		n.original = content
		n.setStatus(fmt.Sprintf("Wrote %d lines", strings.Count(content, "\n")+1), nanoStatusShort)
		if closeAfter {
			n.host.closeEditor(EditorNano)
		}
	})
}

func (n *nanoEditor) saveThenClose() { n.save(true) }

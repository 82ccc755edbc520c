package terminal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

type vimMode int

const (
	vimNormal vimMode = iota
	vimInsert
	vimExline
)

const (
	vimStatusShort = 2 * time.Second
	vimStatusLong  = 3 * time.Second
	vimCloseDelay  = 100 * time.Millisecond
)

var lineNumberPrefix = regexp.MustCompile(`^\s*\d+\s`)

// vimEditor emulates a small vim subset over a textBuffer. All methods
// are invoked under the owning controller's lock; the asynchronous
// save completion re-enters through editorHost.saveFile's done
// callback, which the controller also runs under its lock.
type vimEditor struct {
	host     editorHost
	filename string
	buf      *textBuffer

	mode      vimMode
	exline    string // includes a leading "/" when entered via search
	searchTerm string
	pending   string // first key of a two-key command, e.g. "d"
	undoStack []string
	newFile   bool

	status      string
	statusSeq   int
	quitPending bool // close after the in-flight save succeeds
}

func newVimEditor(host editorHost, filename, content string) *vimEditor {
	return &vimEditor{
		host:     host,
		filename: filename,
		buf:      newTextBuffer(content),
		newFile:  content == "",
	}
}

func (v *vimEditor) Kind() EditorKind { return EditorVim }
func (v *vimEditor) Filename() string { return v.filename }

func (v *vimEditor) Snapshot() EditorSnapshot {
	selStart, selEnd := v.buf.Selection()
	return EditorSnapshot{
		Kind:     EditorVim,
		Filename: v.filename,
		Header:   v.header(),
		Buffer:   v.buf.Text(),
		Caret:    v.buf.Caret(),
		SelStart: selStart,
		SelEnd:   selEnd,
		Status:   v.statusLine(),
	}
}

func (v *vimEditor) header() string {
	if v.newFile {
		return fmt.Sprintf("%q [New File]", v.filename)
	}
	text := v.buf.Text()
	return fmt.Sprintf("%q %dL, %dC", v.filename, strings.Count(text, "\n")+1, len(text))
}

func (v *vimEditor) statusLine() string {
	if v.status != "" {
		return v.status
	}
	switch v.mode {
	case vimInsert:
		return "-- INSERT --"
	case vimExline:
		if strings.HasPrefix(v.exline, "/") {
			return v.exline
		}
		return ":" + v.exline
	default:
		return "-- NORMAL --"
	}
}

// setStatus shows a transient message that reverts to the mode
// indicator after d, unless a newer message replaced it first.
func (v *vimEditor) setStatus(msg string, d time.Duration) {
	v.status = msg
	v.statusSeq++
	seq := v.statusSeq
	time.AfterFunc(d, func() {
		v.host.editorTick(func() {
			if v.statusSeq == seq {
				v.status = ""
			}
		})
	})
}

func (v *vimEditor) HandleKey(k Key) {
	switch v.mode {
	case vimExline:
		v.handleExlineKey(k)
	case vimInsert:
		v.handleInsertKey(k)
	default:
		v.handleNormalKey(k)
	}
}

func (v *vimEditor) handleInsertKey(k Key) {
	switch {
	case k.Name == "Escape":
		v.mode = vimNormal
	case k.Name == "Enter":
		v.buf.Insert("\n")
	case k.Name == "Backspace":
		v.buf.Backspace()
	case k.Name == "ArrowLeft":
		v.buf.MoveLeft()
	case k.Name == "ArrowRight":
		v.buf.MoveRight()
	case k.Name == "ArrowUp":
		v.buf.MoveLines(-1)
	case k.Name == "ArrowDown":
		v.buf.MoveLines(1)
	case k.Printable():
		v.buf.Insert(k.Name)
	}
}

func (v *vimEditor) handleExlineKey(k Key) {
	switch {
	case k.Name == "Escape":
		v.exline = ""
		v.mode = vimNormal
	case k.Name == "Enter":
		line := v.exline
		v.exline = ""
		v.mode = vimNormal
		if strings.HasPrefix(line, "/") {
			v.runSearch(strings.TrimPrefix(line, "/"))
		} else {
			v.execCommand(line)
		}
	case k.Name == "Backspace":
		if v.exline != "" {
			_, size := utf8.DecodeLastRuneInString(v.exline)
			v.exline = v.exline[:len(v.exline)-size]
		}
	case k.Printable():
		v.exline += k.Name
	}
}

func (v *vimEditor) handleNormalKey(k Key) {
	if v.pending == "d" {
		v.pending = ""
		if k.Name == "d" {
			v.pushUndo()
			v.buf.CutLine()
		}
		return
	}
	switch k.Name {
	case "i":
		v.pushUndo()
		v.mode = vimInsert
	case ":":
		v.mode = vimExline
		v.exline = ""
	case "/":
		v.mode = vimExline
		v.exline = "/"
	case "q":
		v.host.closeEditor(EditorVim)
	case "u":
		v.undo()
	case "d":
		v.pending = "d"
	case "n":
		if v.searchTerm != "" {
			v.findNext(true)
		}
	case "N":
		if v.searchTerm != "" {
			v.findNext(false)
		}
	case "ArrowLeft":
		v.buf.MoveLeft()
	case "ArrowRight":
		v.buf.MoveRight()
	case "ArrowUp":
		v.buf.MoveLines(-1)
	case "ArrowDown":
		v.buf.MoveLines(1)
	case "Escape":
		v.pending = ""
	}
}

func (v *vimEditor) pushUndo() {
	v.undoStack = append(v.undoStack, v.buf.Text())
}

func (v *vimEditor) undo() {
	if n := len(v.undoStack); n > 0 {
		v.buf.SetText(v.undoStack[n-1])
		v.undoStack = v.undoStack[:n-1]
	}
}

func (v *vimEditor) execCommand(cmd string) {
	switch cmd {
	case "":
		return
	case "w", "write", "w!":
		v.save(false)
	case "q", "quit", "q!", "quit!":
		v.host.closeEditor(EditorVim)
	case "wq", "wq!", "x", "x!":
		v.save(true)
	case "set number", "set nu":
		v.numberLines()
	case "set nonumber", "set nonu":
		v.unnumberLines()
	default:
		if opt, ok := strings.CutPrefix(cmd, "set "); ok {
			if opt == "hlsearch" || opt == "nohlsearch" {
				return
			}
			v.setStatus("E518: Unknown option: "+opt, vimStatusShort)
			return
		}
		if n, err := strconv.Atoi(cmd); err == nil {
			v.buf.SetCaret(v.buf.LineStart(n))
			return
		}
		v.setStatus("E492: Not an editor command: "+cmd, vimStatusShort)
	}
}

func (v *vimEditor) numberLines() {
	v.pushUndo()
	lines := strings.Split(v.buf.Text(), "\n")
	for i, line := range lines {
		lines[i] = fmt.Sprintf("%4d %s", i+1, line)
	}
	v.buf.SetText(strings.Join(lines, "\n"))
}

func (v *vimEditor) unnumberLines() {
	v.pushUndo()
	lines := strings.Split(v.buf.Text(), "\n")
	for i, line := range lines {
		lines[i] = lineNumberPrefix.ReplaceAllString(line, "")
	}
	v.buf.SetText(strings.Join(lines, "\n"))
}

func (v *vimEditor) runSearch(term string) {
	if term == "" {
		return
	}
	v.searchTerm = term
	v.findNext(true)
}

// findNext is a case-insensitive substring search. Forward searches
// start one past the caret and wrap to the top; backward searches scan
// the text before the caret and wrap to the last occurrence.
func (v *vimEditor) findNext(forward bool) {
	text := strings.ToLower(v.buf.Text())
	term := strings.ToLower(v.searchTerm)
	caret := v.buf.Caret()

	idx := -1
	if forward {
		from := caret + 1
		if from > len(text) {
			from = len(text)
		}
		idx = strings.Index(text[from:], term)
		if idx >= 0 {
			idx += from
		} else {
			idx = strings.Index(text, term)
		}
	} else {
		idx = strings.LastIndex(text[:caret], term)
		if idx < 0 {
			idx = strings.LastIndex(text, term)
		}
	}
	if idx < 0 {
		v.setStatus("E486: Pattern not found: "+v.searchTerm, vimStatusShort)
		return
	}
	v.buf.Select(idx, idx+len(term))
}

// save writes the buffer through the host. quitAfter schedules the
// editor close shortly after a successful save so the confirmation is
// visible first.
func (v *vimEditor) save(quitAfter bool) {
	v.quitPending = quitAfter
	v.host.saveFile(v.filename, v.buf.Text(), func(ok bool) {
		if !ok {
			v.quitPending = false
			v.setStatus(fmt.Sprintf("Error: Could not save %q", v.filename), vimStatusLong)
			return
		}
		v.newFile = false
		v.setStatus(fmt.Sprintf("%q written", v.filename), vimStatusShort)
		if v.quitPending {
			v.quitPending = false
			time.AfterFunc(vimCloseDelay, func() {
				v.host.editorTick(func() {
					v.host.closeEditor(EditorVim)
				})
			})
		}
	})
}

package terminal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"
)

var (
	vimCommandRe  = regexp.MustCompile(`^(vim|vi)(\s.*)?$`)
	nanoCommandRe = regexp.MustCompile(`^nano(\s.*)?$`)
	homePrefixRe  = regexp.MustCompile(`^/home/[^/]*`)
)

const silentTimeout = 30 * time.Second

// ActionKind tags the result of classifying a submitted line.
type ActionKind int

const (
	ActionExecute ActionKind = iota
	ActionOpenEditor
)

// Action is the classified form of a submitted line: either a remote
// command to execute or an editor to open.
type Action struct {
	Kind     ActionKind
	Editor   EditorKind
	Filename string
	Command  string
}

// Classify decides what a submitted line means without performing any
// side effects.
func Classify(text string) Action {
	if vimCommandRe.MatchString(text) {
		return Action{Kind: ActionOpenEditor, Editor: EditorVim, Filename: editorArg(text)}
	}
	if nanoCommandRe.MatchString(text) {
		return Action{Kind: ActionOpenEditor, Editor: EditorNano, Filename: editorArg(text)}
	}
	return Action{Kind: ActionExecute, Command: text}
}

func editorArg(text string) string {
	if parts := strings.Fields(text); len(parts) > 1 {
		return parts[1]
	}
	return "untitled"
}

// Controller drives one terminal view: it dispatches submitted lines,
// enforces the single-pending-command rule, hosts at most one editor,
// and reconciles prior-session history. All mutable state is guarded
// by mu; command completions arrive on worker goroutines and re-enter
// under the lock.
type Controller struct {
	mu   sync.Mutex
	exec Executor
	ui   UI

	sess         *Session
	editor       editor
	inputEnabled bool

	// pendingGen identifies the in-flight command or editor open; a
	// completion whose generation no longer matches has been
	// interrupted or superseded and must not touch the view.
	pendingGen    uint64
	pendingCancel context.CancelFunc

	prior []HistoryEntry
}

func NewController(exec Executor, ui UI) *Controller {
	return &Controller{exec: exec, ui: ui}
}

// SwitchSession points the controller at a terminal session: prior
// history is fetched and filtered, the transcript is reset with the
// connect banners, and input is enabled. Any in-flight command or open
// editor from the previous session is abandoned.
func (c *Controller) SwitchSession(ctx context.Context, sessionID, clusterName string) {
	entries, err := c.exec.History(ctx, sessionID)
	if err != nil {
		log.Printf("[terminal] history fetch for session %s failed: %v", sessionID, err)
		entries = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingCancel != nil {
		c.pendingCancel()
		c.pendingCancel = nil
	}
	c.pendingGen++
	if c.editor != nil {
		c.ui.EditorClosed(c.editor.Kind())
		c.editor = nil
	}

	c.sess = NewSession(sessionID, clusterName)
	c.prior = PriorHistory(entries)
	c.ui.SetPriorHistory(c.prior)
	c.ui.ClearTranscript()
	c.ui.AppendTranscript(Entry{Role: RoleInfo, Text: fmt.Sprintf("Connected to %s. Terminal ready.", clusterName)})
	c.ui.AppendTranscript(Entry{Role: RoleInfo, Text: "Type 'help' for available commands."})
	c.setInput(true)
}

// HasHistory reports whether the prior-session disclosure control
// should be visible.
func (c *Controller) HasHistory() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return HasRealHistory(c.prior)
}

// PathHint returns the current working directory hint for the prompt.
func (c *Controller) PathHint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ""
	}
	return c.sess.PathHint
}

func (c *Controller) InputEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inputEnabled
}

func (c *Controller) setInput(enabled bool) {
	c.inputEnabled = enabled
	c.ui.SetInputEnabled(enabled)
}

// Submit runs one line of user input through the dispatcher. Empty
// lines, missing sessions, and submissions while the single command
// slot is occupied are all no-ops.
func (c *Controller) Submit(text string) {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if text == "" || c.sess == nil {
		return
	}
	if !c.inputEnabled || c.editor != nil {
		return
	}

	c.ui.AppendTranscript(Entry{Role: RoleCommand, Text: text})
	c.sess.Remember(text)

	switch act := Classify(text); act.Kind {
	case ActionOpenEditor:
		c.openEditorLocked(act.Editor, act.Filename)
	default:
		c.dispatchLocked(text)
	}
}

func (c *Controller) dispatchLocked(text string) {
	c.setInput(false)
	ctx, cancel := context.WithCancel(context.Background())
	c.pendingGen++
	c.pendingCancel = cancel
	go c.runCommand(ctx, c.pendingGen, c.sess, text)
}

func (c *Controller) runCommand(ctx context.Context, gen uint64, sess *Session, text string) {
	res, err := c.exec.Execute(ctx, sess.ID, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.pendingGen {
		// Interrupted: the ^C path already re-enabled input, so only
		// the interruption notice remains. A session switch drops the
		// completion entirely.
		if c.sess == sess && errors.Is(err, context.Canceled) {
			c.ui.AppendTranscript(Entry{Role: RoleInfo, Text: "Command interrupted"})
		}
		return
	}
	c.pendingCancel = nil
	defer c.setInput(true)

	if err != nil {
		c.ui.AppendTranscript(Entry{Role: RoleError, Text: "Network error: " + err.Error()})
		return
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "Command failed"
		}
		c.ui.AppendTranscript(Entry{Role: RoleError, Text: msg})
		return
	}
	if res.Clear {
		c.ui.ClearTranscript()
	} else if strings.TrimSpace(res.Output) != "" {
		c.ui.AppendTranscript(Entry{Role: RoleOutput, Text: res.Output, ExitCode: res.ExitCode})
	}
	if strings.HasPrefix(text, "cd ") {
		go c.refreshPathHint(sess)
	}
}

// refreshPathHint asks the remote for its working directory after a
// cd, collapsing the home directory to "~" for the prompt.
func (c *Controller) refreshPathHint(sess *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), silentTimeout)
	defer cancel()
	res, err := c.exec.Execute(ctx, sess.ID, "pwd")
	if err != nil || !res.Success {
		return
	}
	path := strings.TrimSpace(res.Output)
	if path == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != sess {
		return
	}
	sess.PathHint = homePrefixRe.ReplaceAllString(path, "~")
	c.ui.SetPathHint(sess.PathHint)
}

// Interrupt handles Ctrl-C: an in-flight command or editor open has
// its generation invalidated, and input comes back immediately either
// way. While an editor owns the view its own key handling applies.
func (c *Controller) Interrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editor != nil {
		return
	}
	if c.pendingCancel != nil {
		c.pendingCancel()
		c.pendingCancel = nil
	}
	c.pendingGen++
	c.ui.AppendTranscript(Entry{Role: RoleInfo, Text: "^C"})
	c.setInput(true)
}

// RecallOlder steps the recall cursor toward older commands and
// returns the input line content.
func (c *Controller) RecallOlder() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ""
	}
	return c.sess.RecallOlder()
}

// RecallNewer steps toward newer commands; past the newest entry it
// returns "" so the input clears.
func (c *Controller) RecallNewer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ""
	}
	return c.sess.RecallNewer()
}

// openEditorLocked reads the target file through the remote (so a
// missing file opens as an empty buffer) and then presents the editor.
func (c *Controller) openEditorLocked(kind EditorKind, filename string) {
	c.setInput(false)
	sess := c.sess
	c.pendingGen++
	gen := c.pendingGen
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), silentTimeout)
		defer cancel()
		read := fmt.Sprintf(`test -f "%s" && cat "%s" || echo ""`, filename, filename)
		res, err := c.exec.Execute(ctx, sess.ID, read)
		content := ""
		if err == nil && res.Success {
			content = res.Output
		}
		// A missing file reads back as echo's lone newline.
		if strings.TrimSpace(content) == "" {
			content = ""
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.sess != sess || gen != c.pendingGen || c.editor != nil {
			return
		}
		switch kind {
		case EditorNano:
			c.editor = newNanoEditor(c, filename, content)
		default:
			c.editor = newVimEditor(c, filename, content)
		}
		c.ui.EditorOpened(kind, filename)
		c.ui.EditorUpdated(c.editor.Snapshot())
	}()
}

// HandleEditorKey forwards a keystroke to the open editor and pushes
// the refreshed snapshot. No editor, no effect.
func (c *Controller) HandleEditorKey(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editor == nil {
		return
	}
	c.editor.HandleKey(k)
	if c.editor != nil { // the key may have closed the editor
		c.ui.EditorUpdated(c.editor.Snapshot())
	}
}

// EditorOpen reports whether an editor currently owns the view.
func (c *Controller) EditorOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editor != nil
}

// saveFile implements editorHost: the buffer is written remotely as a
// single-quoted printf redirect, with embedded quotes escaped using
// the '"'"' idiom. done runs under the controller lock.
func (c *Controller) saveFile(filename, content string, done func(ok bool)) {
	sess := c.sess
	escaped := strings.ReplaceAll(content, "'", `'"'"'`)
	command := fmt.Sprintf(`printf '%%s' '%s' > "%s"`, escaped, filename)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), silentTimeout)
		defer cancel()
		res, err := c.exec.Execute(ctx, sess.ID, command)
		ok := err == nil && res.Success
		if err != nil {
			log.Printf("[terminal] save %s failed: %v", filename, err)
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.sess != sess {
			return
		}
		done(ok)
		if c.editor != nil {
			c.ui.EditorUpdated(c.editor.Snapshot())
		}
	}()
}

// closeEditor implements editorHost: tears down the current editor and
// hands the view back to the command line.
func (c *Controller) closeEditor(kind EditorKind) {
	if c.editor == nil || c.editor.Kind() != kind {
		return
	}
	c.editor = nil
	c.ui.EditorClosed(kind)
	c.setInput(true)
}

// editorTick implements editorHost: runs a deferred mutation (status
// reverts, delayed closes) under the lock and re-publishes state.
func (c *Controller) editorTick(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f()
	if c.editor != nil {
		c.ui.EditorUpdated(c.editor.Snapshot())
	}
}

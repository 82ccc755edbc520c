package terminal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// fakeUI records every view update the controller pushes.
type fakeUI struct {
	mu       sync.Mutex
	entries  []Entry
	clears   int
	input    bool
	pathHint string
	prior    []HistoryEntry
	opened   []EditorKind
	closed   []EditorKind
	snapshot EditorSnapshot
}

func (u *fakeUI) AppendTranscript(e Entry) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.entries = append(u.entries, e)
}

func (u *fakeUI) ClearTranscript() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.entries = nil
	u.clears++
}

func (u *fakeUI) SetInputEnabled(enabled bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.input = enabled
}

func (u *fakeUI) SetPathHint(path string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pathHint = path
}

func (u *fakeUI) SetPriorHistory(entries []HistoryEntry) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.prior = entries
}

func (u *fakeUI) EditorOpened(kind EditorKind, filename string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.opened = append(u.opened, kind)
}

func (u *fakeUI) EditorClosed(kind EditorKind) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.closed = append(u.closed, kind)
}

func (u *fakeUI) EditorUpdated(s EditorSnapshot) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.snapshot = s
}

func (u *fakeUI) lastSnapshot() EditorSnapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.snapshot
}

func (u *fakeUI) hasEntry(role Role, substr string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, e := range u.entries {
		if e.Role == role && strings.Contains(e.Text, substr) {
			return true
		}
	}
	return false
}

func (u *fakeUI) inputEnabled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.input
}

func (u *fakeUI) editorOpenCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.opened)
}

// fakeExecutor serves canned results per command. When block is set,
// Execute parks until the channel closes or the context is cancelled.
type fakeExecutor struct {
	mu       sync.Mutex
	executed []string
	results  map[string]Result
	err      error
	history  []HistoryEntry
	histErr  error
	block    chan struct{}
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{results: map[string]Result{}}
}

func (f *fakeExecutor) Execute(ctx context.Context, sessionID, command string) (Result, error) {
	f.mu.Lock()
	f.executed = append(f.executed, command)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-block:
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Result{}, f.err
	}
	if r, ok := f.results[command]; ok {
		return r, nil
	}
	return Result{Success: true}, nil
}

func (f *fakeExecutor) History(ctx context.Context, sessionID string) ([]HistoryEntry, error) {
	return f.history, f.histErr
}

func (f *fakeExecutor) ran(command string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.executed {
		if c == command {
			return true
		}
	}
	return false
}

func newTestController(exec *fakeExecutor) (*Controller, *fakeUI) {
	ui := &fakeUI{}
	c := NewController(exec, ui)
	c.SwitchSession(context.Background(), "sid-1", "staging")
	return c, ui
}

func TestSwitchSessionBannersAndHistory(t *testing.T) {
	exec := newFakeExecutor()
	exec.history = []HistoryEntry{
		{Command: "clear"},
		{Command: "ls", Output: "a b", ExitCode: 0},
		{Command: "history"},
	}
	c, ui := newTestController(exec)

	if !ui.hasEntry(RoleInfo, "Connected to staging. Terminal ready.") {
		t.Error("missing connect banner")
	}
	if !ui.hasEntry(RoleInfo, "Type 'help' for available commands.") {
		t.Error("missing help banner")
	}
	if !ui.inputEnabled() {
		t.Error("input disabled after session switch")
	}
	if len(ui.prior) != 1 || ui.prior[0].Command != "ls" {
		t.Errorf("prior history = %+v, want just the ls entry", ui.prior)
	}
	if !c.HasHistory() {
		t.Error("HasHistory() = false with a surviving entry")
	}
}

func TestSwitchSessionHistoryFetchFailureIsNonFatal(t *testing.T) {
	exec := newFakeExecutor()
	exec.histErr = errors.New("boom")
	c, ui := newTestController(exec)

	if !ui.inputEnabled() {
		t.Error("input disabled after failed history fetch")
	}
	if c.HasHistory() {
		t.Error("HasHistory() = true after failed fetch")
	}
}

func TestSubmitEchoesAndRendersOutput(t *testing.T) {
	exec := newFakeExecutor()
	exec.results["ls"] = Result{Success: true, Output: "file1\nfile2\n", ExitCode: 0}
	c, ui := newTestController(exec)

	c.Submit("ls")
	if !ui.hasEntry(RoleCommand, "ls") {
		t.Error("submitted command not echoed")
	}
	waitFor(t, "command output", func() bool {
		return ui.hasEntry(RoleOutput, "file1")
	})
	waitFor(t, "input re-enabled", ui.inputEnabled)
}

func TestSubmitEmptyOrNoSessionIsNoop(t *testing.T) {
	exec := newFakeExecutor()
	ui := &fakeUI{}
	c := NewController(exec, ui)
	c.Submit("ls") // no session yet
	c.SwitchSession(context.Background(), "sid", "dev")
	c.Submit("   ")
	if ui.hasEntry(RoleCommand, "ls") || exec.ran("ls") {
		t.Error("command dispatched without an active session")
	}
}

func TestClearResultWipesTranscript(t *testing.T) {
	exec := newFakeExecutor()
	exec.results["clear"] = Result{Success: true, Clear: true}
	c, ui := newTestController(exec)

	c.Submit("clear")
	waitFor(t, "transcript wipe", func() bool {
		ui.mu.Lock()
		defer ui.mu.Unlock()
		return ui.clears == 2 // one from the switch, one from clear
	})
}

func TestRemoteFailureMessages(t *testing.T) {
	exec := newFakeExecutor()
	exec.results["bad"] = Result{Success: false, Error: "no such session"}
	exec.results["worse"] = Result{Success: false}
	c, ui := newTestController(exec)

	c.Submit("bad")
	waitFor(t, "reported error", func() bool {
		return ui.hasEntry(RoleError, "no such session")
	})
	waitFor(t, "input re-enabled", ui.inputEnabled)

	c.Submit("worse")
	waitFor(t, "default error", func() bool {
		return ui.hasEntry(RoleError, "Command failed")
	})
}

func TestTransportErrorEntry(t *testing.T) {
	exec := newFakeExecutor()
	exec.err = errors.New("connection refused")
	c, ui := newTestController(exec)

	c.Submit("ls")
	waitFor(t, "network error entry", func() bool {
		return ui.hasEntry(RoleError, "Network error: connection refused")
	})
	waitFor(t, "input re-enabled", ui.inputEnabled)
}

func TestInterruptCancelsPendingCommand(t *testing.T) {
	exec := newFakeExecutor()
	exec.block = make(chan struct{})
	c, ui := newTestController(exec)

	c.Submit("sleep 1000")
	waitFor(t, "command in flight", func() bool { return exec.ran("sleep 1000") })
	if ui.inputEnabled() {
		t.Fatal("input enabled while command in flight")
	}

	c.Interrupt()
	// Input comes back in the same synchronous step.
	if !ui.inputEnabled() {
		t.Fatal("input still disabled right after interrupt")
	}
	if !ui.hasEntry(RoleInfo, "^C") {
		t.Error("missing ^C entry")
	}
	waitFor(t, "interruption notice", func() bool {
		return ui.hasEntry(RoleInfo, "Command interrupted")
	})
}

func TestInterruptWithNoPendingCommand(t *testing.T) {
	exec := newFakeExecutor()
	c, ui := newTestController(exec)

	c.Interrupt()
	if !ui.hasEntry(RoleInfo, "^C") {
		t.Error("missing ^C entry")
	}
	if !ui.inputEnabled() {
		t.Error("input disabled after idle interrupt")
	}
}

func TestBusySlotRejectsSecondSubmit(t *testing.T) {
	exec := newFakeExecutor()
	exec.block = make(chan struct{})
	c, _ := newTestController(exec)

	c.Submit("first")
	waitFor(t, "first command", func() bool { return exec.ran("first") })
	c.Submit("second")
	if exec.ran("second") {
		t.Error("second command dispatched while the slot was busy")
	}
	close(exec.block)
}

func TestCdRefreshesPathHint(t *testing.T) {
	exec := newFakeExecutor()
	exec.results["cd work"] = Result{Success: true}
	exec.results["pwd"] = Result{Success: true, Output: "/home/alice/work\n"}
	c, ui := newTestController(exec)

	c.Submit("cd work")
	waitFor(t, "path hint refresh", func() bool {
		ui.mu.Lock()
		defer ui.mu.Unlock()
		return ui.pathHint == "~/work"
	})
	if got := c.PathHint(); got != "~/work" {
		t.Errorf("PathHint() = %q, want %q", got, "~/work")
	}
}

func TestVimCommandOpensEditor(t *testing.T) {
	exec := newFakeExecutor()
	exec.results[`test -f "notes.txt" && cat "notes.txt" || echo ""`] =
		Result{Success: true, Output: "saved content"}
	c, ui := newTestController(exec)

	c.Submit("vim notes.txt")
	waitFor(t, "editor open", func() bool { return ui.editorOpenCount() == 1 })
	if ui.inputEnabled() {
		t.Error("terminal input enabled while editor is open")
	}

	// The slot is exclusive: submissions are ignored until close.
	c.Submit("ls")
	if exec.ran("ls") {
		t.Error("command dispatched while editor open")
	}

	c.HandleEditorKey(Key{Name: "q"})
	waitFor(t, "editor close", func() bool {
		ui.mu.Lock()
		defer ui.mu.Unlock()
		return len(ui.closed) == 1
	})
	waitFor(t, "input re-enabled", ui.inputEnabled)
}

func TestVimOpensMissingFileAsNew(t *testing.T) {
	exec := newFakeExecutor()
	// A shell echoes a lone newline for the missing-file branch of the
	// existence-check read.
	exec.results[`test -f "notes.txt" && cat "notes.txt" || echo ""`] =
		Result{Success: true, Output: "\n"}
	c, ui := newTestController(exec)

	c.Submit("vim notes.txt")
	waitFor(t, "editor open", func() bool { return ui.editorOpenCount() == 1 })

	snap := ui.lastSnapshot()
	if snap.Header != `"notes.txt" [New File]` {
		t.Errorf("header = %q, want %q", snap.Header, `"notes.txt" [New File]`)
	}
	if snap.Buffer != "" {
		t.Errorf("buffer = %q, want empty", snap.Buffer)
	}

	c.HandleEditorKey(Key{Name: "i"})
	for _, r := range "hello" {
		c.HandleEditorKey(Key{Name: string(r)})
	}
	c.HandleEditorKey(Key{Name: "Escape"})
	c.HandleEditorKey(Key{Name: ":"})
	for _, r := range "wq" {
		c.HandleEditorKey(Key{Name: string(r)})
	}
	c.HandleEditorKey(Key{Name: "Enter"})

	// The write must carry exactly the typed text, with no newline
	// leaked in from the read.
	want := `printf '%s' 'hello' > "notes.txt"`
	waitFor(t, "save command", func() bool { return exec.ran(want) })
}

func TestInterruptAbandonsPendingEditorOpen(t *testing.T) {
	exec := newFakeExecutor()
	exec.block = make(chan struct{})
	c, ui := newTestController(exec)

	read := `test -f "f.txt" && cat "f.txt" || echo ""`
	c.Submit("vim f.txt")
	waitFor(t, "file read in flight", func() bool { return exec.ran(read) })
	if ui.inputEnabled() {
		t.Fatal("input enabled while the file read is in flight")
	}

	c.Interrupt()
	if !ui.inputEnabled() {
		t.Fatal("input still disabled after interrupt")
	}

	close(exec.block)
	c.Submit("echo next")
	waitFor(t, "next command", func() bool { return exec.ran("echo next") })
	waitFor(t, "input re-enabled", ui.inputEnabled)

	if c.EditorOpen() || ui.editorOpenCount() != 0 {
		t.Error("editor installed after its open was interrupted")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text     string
		kind     ActionKind
		editor   EditorKind
		filename string
	}{
		{"vim notes.txt", ActionOpenEditor, EditorVim, "notes.txt"},
		{"vi", ActionOpenEditor, EditorVim, "untitled"},
		{"vim", ActionOpenEditor, EditorVim, "untitled"},
		{"nano conf.yaml", ActionOpenEditor, EditorNano, "conf.yaml"},
		{"nano", ActionOpenEditor, EditorNano, "untitled"},
		{"vimdiff a b", ActionExecute, "", ""},
		{"ls -la", ActionExecute, "", ""},
		{"environment", ActionExecute, "", ""},
	}
	for _, tt := range tests {
		got := Classify(tt.text)
		if got.Kind != tt.kind {
			t.Errorf("Classify(%q).Kind = %v, want %v", tt.text, got.Kind, tt.kind)
			continue
		}
		if tt.kind == ActionOpenEditor && (got.Editor != tt.editor || got.Filename != tt.filename) {
			t.Errorf("Classify(%q) = %v/%q, want %v/%q",
				tt.text, got.Editor, got.Filename, tt.editor, tt.filename)
		}
	}
}

func TestRecallThroughController(t *testing.T) {
	exec := newFakeExecutor()
	c, _ := newTestController(exec)

	c.Submit("echo one")
	waitFor(t, "first command", func() bool { return exec.ran("echo one") })
	waitFor(t, "input re-enabled", c.InputEnabled)
	c.Submit("echo two")
	waitFor(t, "second command", func() bool { return exec.ran("echo two") })

	if got := c.RecallOlder(); got != "echo two" {
		t.Errorf("RecallOlder() = %q, want %q", got, "echo two")
	}
	if got := c.RecallOlder(); got != "echo one" {
		t.Errorf("RecallOlder() = %q, want %q", got, "echo one")
	}
	if got := c.RecallNewer(); got != "echo two" {
		t.Errorf("RecallNewer() = %q, want %q", got, "echo two")
	}
	if got := c.RecallNewer(); got != "" {
		t.Errorf("RecallNewer() past end = %q, want empty", got)
	}
}

func TestEditorSaveGoesThroughExecutor(t *testing.T) {
	exec := newFakeExecutor()
	exec.results[`test -f "f.txt" && cat "f.txt" || echo ""`] = Result{Success: true, Output: ""}
	c, ui := newTestController(exec)

	c.Submit("nano f.txt")
	waitFor(t, "editor open", func() bool { return ui.editorOpenCount() == 1 })

	for _, r := range "it's done" {
		c.HandleEditorKey(Key{Name: string(r)})
	}
	c.HandleEditorKey(Key{Name: "o", Ctrl: true})

	want := `printf '%s' 'it'"'"'s done' > "f.txt"`
	waitFor(t, "save command", func() bool { return exec.ran(want) })
}

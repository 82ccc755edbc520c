// Package terminal implements the interactive session layer behind the
// web terminal: command dispatch, recall, in-browser editor emulation
// and prior-session history. The package is transport-agnostic; the
// websocket handler adapts it to the frontend via the UI interface.
package terminal

// Role classifies a transcript entry for rendering.
type Role string

const (
	RoleCommand Role = "command" // echoed user input
	RoleOutput  Role = "output"  // remote command output
	RoleError   Role = "error"   // failures, network errors, non-zero diagnostics
	RoleInfo    Role = "info"    // banners, ^C, interrupts
	RoleSuccess Role = "success" // connect confirmations
)

// Entry is one line group in the terminal transcript. ExitCode is only
// meaningful for RoleOutput entries.
type Entry struct {
	Role     Role   `json:"role"`
	Text     string `json:"text"`
	ExitCode int    `json:"exit_code"`
}

// EditorKind identifies which editor emulation is active.
type EditorKind string

const (
	EditorVim  EditorKind = "vim"
	EditorNano EditorKind = "nano"
)

// EditorSnapshot is the full renderable state of an open editor,
// pushed to the frontend after every keystroke.
type EditorSnapshot struct {
	Kind     EditorKind `json:"kind"`
	Filename string     `json:"filename"`
	Header   string     `json:"header"`
	Buffer   string     `json:"buffer"`
	Caret    int        `json:"caret"`
	SelStart int        `json:"sel_start"`
	SelEnd   int        `json:"sel_end"`
	Status   string     `json:"status"`
	Dirty    bool       `json:"dirty"`
	Prompt   string     `json:"prompt"` // non-empty while the editor awaits a y/n or text answer
	Scroll   int        `json:"scroll"`
}

// UI receives controller-driven view updates. Implementations must
// tolerate calls from multiple goroutines; the controller serializes
// calls under its own lock but command completions arrive on worker
// goroutines.
type UI interface {
	AppendTranscript(e Entry)
	ClearTranscript()
	SetInputEnabled(enabled bool)
	SetPathHint(path string)
	SetPriorHistory(entries []HistoryEntry)
	EditorOpened(kind EditorKind, filename string)
	EditorClosed(kind EditorKind)
	EditorUpdated(s EditorSnapshot)
}

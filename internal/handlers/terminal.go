package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/kubeterm/kubeterm/internal/database"
	"github.com/kubeterm/kubeterm/internal/terminal"
)

// wsWriteTimeout bounds each outbound event write so a stalled client
// cannot pin controller goroutines.
const wsWriteTimeout = 10 * time.Second

// localExecutor runs terminal commands in-process, sharing the exact
// semantics of the HTTP execute endpoint.
type localExecutor struct{}

func (localExecutor) Execute(ctx context.Context, sessionID, command string) (terminal.Result, error) {
	sess, err := database.GetSessionBySID(sessionID)
	if err != nil {
		return terminal.Result{Success: false, Error: "Terminal session not found"}, nil
	}
	res := runSessionCommand(ctx, sess, strings.TrimSpace(command))
	// The controller distinguishes interruption from remote failure by
	// the returned error, so a cancelled context must not be folded
	// into the result.
	if ctx.Err() != nil {
		return terminal.Result{}, ctx.Err()
	}
	return res, nil
}

func (localExecutor) History(ctx context.Context, sessionID string) ([]terminal.HistoryEntry, error) {
	sess, err := database.GetSessionBySID(sessionID)
	if err != nil {
		return nil, err
	}
	records, err := database.SessionHistory(sess.ID)
	if err != nil {
		return nil, err
	}
	entries := make([]terminal.HistoryEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, terminal.HistoryEntry{
			Command:  rec.Command,
			Output:   rec.Output,
			ExitCode: rec.ExitCode,
		})
	}
	return entries, nil
}

// wsEvent is the envelope for every server-to-client message.
type wsEvent struct {
	Type     string                   `json:"type"`
	Entry    *terminal.Entry          `json:"entry,omitempty"`
	Enabled  *bool                    `json:"enabled,omitempty"`
	Text     string                   `json:"text,omitempty"`
	Path     string                   `json:"path,omitempty"`
	History  []terminal.HistoryEntry  `json:"history,omitempty"`
	Editor   terminal.EditorKind      `json:"editor,omitempty"`
	Filename string                   `json:"filename,omitempty"`
	Snapshot *terminal.EditorSnapshot `json:"snapshot,omitempty"`
}

// wsUI bridges controller callbacks onto one websocket connection.
// Callbacks arrive from multiple goroutines, so writes are serialized.
type wsUI struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (u *wsUI) send(ev wsEvent) {
	u.mu.Lock()
	defer u.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), wsWriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, u.conn, ev); err != nil {
		log.Printf("[terminal] websocket write: %v", err)
	}
}

func (u *wsUI) AppendTranscript(e terminal.Entry) {
	u.send(wsEvent{Type: "transcript", Entry: &e})
}

func (u *wsUI) ClearTranscript() {
	u.send(wsEvent{Type: "clear"})
}

func (u *wsUI) SetInputEnabled(enabled bool) {
	u.send(wsEvent{Type: "input", Enabled: &enabled})
}

func (u *wsUI) SetPathHint(path string) {
	u.send(wsEvent{Type: "path", Path: path})
}

func (u *wsUI) SetPriorHistory(entries []terminal.HistoryEntry) {
	if entries == nil {
		entries = []terminal.HistoryEntry{}
	}
	u.send(wsEvent{Type: "prior_history", History: entries})
}

func (u *wsUI) EditorOpened(kind terminal.EditorKind, filename string) {
	u.send(wsEvent{Type: "editor_opened", Editor: kind, Filename: filename})
}

func (u *wsUI) EditorClosed(kind terminal.EditorKind) {
	u.send(wsEvent{Type: "editor_closed", Editor: kind})
}

func (u *wsUI) EditorUpdated(s terminal.EditorSnapshot) {
	u.send(wsEvent{Type: "editor", Snapshot: &s})
}

type wsClientMsg struct {
	Type        string `json:"type"`
	SessionID   string `json:"session_id,omitempty"`
	ClusterName string `json:"cluster_name,omitempty"`
	Text        string `json:"text,omitempty"`
	Direction   string `json:"direction,omitempty"`
	Key         string `json:"key,omitempty"`
	Ctrl        bool   `json:"ctrl,omitempty"`
}

// TerminalWS hosts one interactive terminal controller per websocket
// connection. GET /api/v1/terminal/ws
func TerminalWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("[terminal] websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	ui := &wsUI{conn: conn}
	ctrl := terminal.NewController(localExecutor{}, ui)

	for {
		var msg wsClientMsg
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return
		}
		switch msg.Type {
		case "switch":
			if msg.SessionID == "" {
				continue
			}
			ctrl.SwitchSession(ctx, msg.SessionID, msg.ClusterName)
		case "line":
			ctrl.Submit(msg.Text)
		case "interrupt":
			ctrl.Interrupt()
		case "recall":
			var text string
			if msg.Direction == "older" {
				text = ctrl.RecallOlder()
			} else {
				text = ctrl.RecallNewer()
			}
			ui.send(wsEvent{Type: "input_set", Text: text})
		case "key":
			ctrl.HandleEditorKey(terminal.Key{Name: msg.Key, Ctrl: msg.Ctrl})
		default:
			log.Printf("[terminal] unknown websocket message type %q", msg.Type)
		}
	}
}

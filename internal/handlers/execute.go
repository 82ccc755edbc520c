package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kubeterm/kubeterm/internal/config"
	"github.com/kubeterm/kubeterm/internal/crypto"
	"github.com/kubeterm/kubeterm/internal/database"
	"github.com/kubeterm/kubeterm/internal/kube"
	"github.com/kubeterm/kubeterm/internal/terminal"
)

const helpText = `Available commands:
• ls, cat, mkdir, rm - File operations
• vim <filename> - Edit files with vim
• nano <filename> - Edit files with nano
• wget <url> - Download files
• kubectl - Kubernetes commands
• clear - Clear terminal
• pwd, cd - Navigation
• All standard Linux commands supported

Navigation:
• ↑↓ Arrow keys - Command history

Vim shortcuts:
• ESC - Normal mode
• i - Insert mode
• :w - Save file
• :q - Quit
• :wq - Save and quit`

// ExecuteCommand runs one command against a terminal session.
// POST /api/v1/terminal/{sessionID}/execute
func ExecuteCommand(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req struct {
		Command string `json:"command"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess, err := database.GetSessionBySID(sessionID)
	if err != nil {
		apiFail(w, "Terminal session not found")
		return
	}

	res := runSessionCommand(r.Context(), sess, strings.TrimSpace(req.Command))
	writeJSON(w, http.StatusOK, res)
}

// runSessionCommand implements the terminal command semantics shared
// by the HTTP endpoint and the websocket controller: builtins first,
// then a shell round trip against the session's cluster, recorded in
// the session history.
func runSessionCommand(ctx context.Context, sess *database.TerminalSession, command string) terminal.Result {
	if command == "" {
		return terminal.Result{Success: false, Error: "Command is required"}
	}

	switch command {
	case "help":
		recordCommand(sess, command, helpText, 0)
		return terminal.Result{Success: true, Output: helpText, ExitCode: 0}
	case "clear":
		return terminal.Result{Success: true, Clear: true}
	}

	kubeconfig, err := crypto.Decrypt(sess.Cluster.Kubeconfig)
	if err != nil {
		log.Printf("[terminal] decrypt kubeconfig for cluster %d: %v", sess.ClusterID, err)
		return terminal.Result{Success: false, Error: "Error executing command: cluster credentials unavailable"}
	}

	execCtx, cancel := context.WithTimeout(ctx, config.Cfg.ExecTimeout)
	defer cancel()

	var out kube.ExecResult
	if config.Cfg.ExecTargetPod != "" {
		conn, err := kube.Connect(kubeconfig)
		if err != nil {
			return terminal.Result{Success: false, Error: "Error executing command: " + err.Error()}
		}
		out, err = conn.ExecInPod(execCtx, config.Cfg.ExecNamespace, config.Cfg.ExecTargetPod, command)
		if err != nil {
			return terminal.Result{Success: false, Error: "Error executing command: " + err.Error()}
		}
	} else {
		out, err = kube.RunLocal(execCtx, kubeconfig, command)
		if err != nil {
			return terminal.Result{Success: false, Error: "Error executing command: " + err.Error()}
		}
	}

	recordCommand(sess, command, out.Output, out.ExitCode)
	return terminal.Result{Success: true, Output: out.Output, ExitCode: out.ExitCode}
}

func recordCommand(sess *database.TerminalSession, command, output string, exitCode int) {
	if err := database.RecordCommand(sess.ID, command, output, exitCode, config.Cfg.HistoryLimit); err != nil {
		log.Printf("[terminal] record command for session %s: %v", sess.SessionID, err)
	}
	if err := database.TouchSession(sess.ID); err != nil {
		log.Printf("[terminal] touch session %s: %v", sess.SessionID, err)
	}
}

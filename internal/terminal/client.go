package terminal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Result is the outcome of one remote command execution.
type Result struct {
	Success  bool   `json:"success"`
	Output   string `json:"output"`
	ExitCode int    `json:"exit_code"`
	Clear    bool   `json:"clear,omitempty"`
	Error    string `json:"error,omitempty"`
}

// HistoryEntry is one recorded command from a previous session.
type HistoryEntry struct {
	Command  string `json:"command"`
	Output   string `json:"output"`
	ExitCode int    `json:"exit_code"`
}

// Executor runs commands against a terminal session and retrieves its
// stored history. Execute returns an error only for transport-level
// failures; remote command failures come back as Result.Success=false.
// Implementations must honor ctx cancellation.
type Executor interface {
	Execute(ctx context.Context, sessionID, command string) (Result, error)
	History(ctx context.Context, sessionID string) ([]HistoryEntry, error)
}

// HTTPExecutor talks to the execute/history API of a kubeterm server.
// The zero value is not usable; use NewHTTPExecutor.
type HTTPExecutor struct {
	baseURL string
	client  *http.Client
}

func NewHTTPExecutor(baseURL string) *HTTPExecutor {
	return &HTTPExecutor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *HTTPExecutor) Execute(ctx context.Context, sessionID, command string) (Result, error) {
	body, err := json.Marshal(map[string]string{"command": command})
	if err != nil {
		return Result{}, fmt.Errorf("encode command: %w", err)
	}
	url := fmt.Sprintf("%s/api/v1/terminal/%s/execute", e.baseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	var res Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&res); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	return res, nil
}

func (e *HTTPExecutor) History(ctx context.Context, sessionID string) ([]HistoryEntry, error) {
	url := fmt.Sprintf("%s/api/v1/terminal/%s/history", e.baseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Success bool           `json:"success"`
		History []HistoryEntry `json:"history"`
		Error   string         `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if !payload.Success {
		return nil, fmt.Errorf("history request failed: %s", payload.Error)
	}
	return payload.History, nil
}

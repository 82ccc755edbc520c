package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kubeterm/kubeterm/internal/database"
)

// SessionHistory returns the stored commands of a session, oldest
// first. GET /api/v1/terminal/{sessionID}/history
func SessionHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := database.GetSessionBySID(chi.URLParam(r, "sessionID"))
	if err != nil {
		apiFail(w, "Terminal session not found")
		return
	}

	records, err := database.SessionHistory(sess.ID)
	if err != nil {
		apiFail(w, "Failed to load history")
		return
	}
	if records == nil {
		records = []database.CommandRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"history":      records,
		"cluster_name": sess.Cluster.Name,
	})
}

// ClearHistory drops every stored command of a session.
// POST /api/v1/terminal/{sessionID}/clear-history
func ClearHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := database.GetSessionBySID(chi.URLParam(r, "sessionID"))
	if err != nil {
		apiFail(w, "Terminal session not found")
		return
	}
	if err := database.ClearSessionHistory(sess.ID); err != nil {
		apiFail(w, "Failed to clear history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "History cleared",
	})
}

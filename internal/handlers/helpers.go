package handlers

import (
	"encoding/json"
	"io"
	"net/http"
)

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// apiFail reports an application-level failure the frontend renders
// inline. The transport still succeeds, so the status stays 200.
func apiFail(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

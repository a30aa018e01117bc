package mw

import (
	"encoding/json"
	"net/http"
)

// deny writes the JSON error body shared by every dashboard endpoint.
func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}

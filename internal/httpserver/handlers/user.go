package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/leakdesk/internal/auth"
	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/deps"
)

// User describes the logged-in dashboard user.
func User(_ deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := auth.CurrentUser(r)
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"user_id":    s.Username,
			"user_name":  s.Name,
			"user_role":  s.Role,
			"login_time": s.LoginTime,
		})
	}
}

// Config lists the endpoints the frontend talks to.
func Config(_ deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := auth.CurrentUser(r)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"endpoints": map[string]string{
				"search":     "/api/search",
				"accounts":   "/api/proxy/accounts",
				"statistics": "/api/stats",
				"health":     "/api/proxy/health",
				"leak_logs":  "/api/leak-logs",
			},
			"user": s.Name,
		})
	}
}

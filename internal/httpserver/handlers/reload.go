package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/leakdesk/internal/auth"
	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
)

// Reload triggers a users file reload and drops the cached table layouts.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := auth.CurrentUser(r)

		d.Store.InvalidateCatalogs()

		usersTriggered := false
		select {
		case d.ReloadTrigger <- struct{}{}:
			usersTriggered = true
			d.Logger.Info("manual users reload triggered via endpoint",
				logger.String("user", s.Username),
				logger.String("remote_ip", r.RemoteAddr))
		default:
			d.Logger.Warn("users reload already in progress",
				logger.String("remote_ip", r.RemoteAddr))
		}

		if usersTriggered {
			writeJSON(w, http.StatusAccepted, map[string]any{
				"success": true,
				"message": "reload triggered, table layouts will be rediscovered",
			})
			return
		}
		writeError(w, http.StatusTooManyRequests, "reload already in progress, please wait", nil)
	}
}

package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/leakdesk/internal/auth"
	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/mw"
)

func init() { Register("admin", registerAdmin) }

func registerAdmin(r chi.Router, d deps.Deps) {
	r.Group(func(r chi.Router) {
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger), auth.RequireAdmin)
		r.Get("/debug/table", handlers.DebugTable(d))
		r.Post("/reload", handlers.Reload(d))
	})
}
